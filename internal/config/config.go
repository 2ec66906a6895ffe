// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint is one hosted game endpoint. Advertise is the address handed
// to clients in redirects and may differ from the bind address behind NAT.
type Endpoint struct {
	Listen        string `yaml:"listen"`
	AdvertiseHost string `yaml:"advertise_host"`
	AdvertisePort uint16 `yaml:"advertise_port"`
}

type Config struct {
	Lobby Endpoint `yaml:"lobby"`
	Ranch Endpoint `yaml:"ranch"`
	Race  Endpoint `yaml:"race"`

	Relay struct {
		Listen        string `yaml:"listen"`
		AdvertiseHost string `yaml:"advertise_host"`
		AdvertisePort uint16 `yaml:"advertise_port"`
	} `yaml:"relay"`

	// Admin binds the loopback observer surface (health, metrics, room
	// snapshot stream).
	Admin struct {
		Listen string `yaml:"listen"`
	} `yaml:"admin"`

	// Notice is shown at login; {players_online} is substituted with the
	// live session count.
	Notice string `yaml:"notice"`

	// FallbackMapBlockID is raced when a mode's map pool filters down to
	// nothing for the current master level.
	FallbackMapBlockID uint16 `yaml:"fallback_map_block_id"`

	DataDir string `yaml:"data_dir"`

	// RecordsPath is the sqlite database file; empty keeps records in
	// memory only.
	RecordsPath string `yaml:"records_path"`

	// RaceLogDir receives the compressed race result log; empty disables
	// result logging.
	RaceLogDir string `yaml:"race_log_dir"`
}

func Defaults() Config {
	var c Config
	c.Lobby = Endpoint{Listen: ":10030", AdvertiseHost: "127.0.0.1", AdvertisePort: 10030}
	c.Ranch = Endpoint{Listen: ":10031", AdvertiseHost: "127.0.0.1", AdvertisePort: 10031}
	c.Race = Endpoint{Listen: ":10032", AdvertiseHost: "127.0.0.1", AdvertisePort: 10032}
	c.Relay.Listen = ":10500"
	c.Relay.AdvertiseHost = "127.0.0.1"
	c.Relay.AdvertisePort = 10500
	c.Admin.Listen = "127.0.0.1:8282"
	c.Notice = "Welcome! {players_online} players online."
	c.FallbackMapBlockID = 1
	c.DataDir = "data"
	return c
}

// Load reads path over the defaults. A missing file returns the defaults
// untouched.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c Config) validate() error {
	for _, ep := range []struct {
		name string
		ep   Endpoint
	}{{"lobby", c.Lobby}, {"ranch", c.Ranch}, {"race", c.Race}} {
		if ep.ep.Listen == "" {
			return fmt.Errorf("%s.listen is required", ep.name)
		}
		if ep.ep.AdvertiseHost == "" || ep.ep.AdvertisePort == 0 {
			return fmt.Errorf("%s advertise address is required", ep.name)
		}
	}
	if c.FallbackMapBlockID == 0 {
		return fmt.Errorf("fallback_map_block_id is required")
	}
	return nil
}

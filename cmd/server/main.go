package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallop.gg/internal/config"
	"gallop.gg/internal/data"
	"gallop.gg/internal/data/recorddb"
	"gallop.gg/internal/infraction"
	"gallop.gg/internal/lobby"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/persistence/racelog"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/race"
	"gallop.gg/internal/ranch"
	"gallop.gg/internal/registry"
	"gallop.gg/internal/relay"
	"gallop.gg/internal/room"
	"gallop.gg/internal/transport/observer"
	"gallop.gg/internal/transport/tcp"
)

const tickInterval = 100 * time.Millisecond

// lateEvents lets the tcp servers be constructed before the directors
// that receive their callbacks.
type lateEvents struct {
	events tcp.Events
}

func (l *lateEvents) HandleClientConnected(c tcp.ClientID) {
	l.events.HandleClientConnected(c)
}

func (l *lateEvents) HandleClientDisconnected(c tcp.ClientID) {
	l.events.HandleClientDisconnected(c)
}

func main() {
	var (
		configPath = flag.String("config", "./config.yaml", "server config path")
		seedDemo   = flag.Bool("seed_demo", false, "seed demo accounts into an in-memory store")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[gallop] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	reg, err := registry.Load(cfg.DataDir)
	if err != nil {
		logger.Fatalf("load registry: %v", err)
	}

	store, err := openStore(cfg, *seedDemo, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()

	dataDir := data.NewDirector(store, logger)
	rooms := room.NewSystem()
	codes := otp.NewRegistry()
	raceLog := racelog.New(cfg.RaceLogDir)
	defer raceLog.Close()

	lobbyEvents := &lateEvents{}
	ranchEvents := &lateEvents{}
	raceEvents := &lateEvents{}
	lobbySrv := tcp.NewServer("lobby", lobbyEvents, logger)
	ranchSrv := tcp.NewServer("ranch", ranchEvents, logger)
	raceSrv := tcp.NewServer("race", raceEvents, logger)

	lobbyDir := lobby.NewDirector(lobby.Deps{
		Log:       logger,
		Transport: lobbySrv,
		Data:      dataDir,
		Rooms:     rooms,
		Registry:  reg,
		OTP:       codes,
		Config:    cfg,
	})
	ranchDir := ranch.NewDirector(ranch.Deps{
		Log:       logger,
		Transport: ranchSrv,
		Data:      dataDir,
		OTP:       codes,
	})
	raceDir := race.NewDirector(race.Deps{
		Log:       logger,
		Transport: raceSrv,
		Data:      dataDir,
		Rooms:     rooms,
		Registry:  reg,
		OTP:       codes,
		Config:    cfg,
		RaceLog:   raceLog,
	})
	lobbyEvents.events = lobbyDir
	ranchEvents.events = ranchDir
	raceEvents.events = raceDir

	lobbyDir.Register(lobbySrv)
	ranchDir.Register(ranchSrv)
	raceDir.Register(raceSrv)

	udp := relay.New(logger)
	if err := udp.Host(cfg.Relay.Listen); err != nil {
		logger.Fatalf("host relay: %v", err)
	}
	defer udp.Close()

	if err := lobbySrv.Host(cfg.Lobby.Listen); err != nil {
		logger.Fatalf("host lobby: %v", err)
	}
	defer lobbySrv.Close()
	if err := ranchSrv.Host(cfg.Ranch.Listen); err != nil {
		logger.Fatalf("host ranch: %v", err)
	}
	defer ranchSrv.Close()
	if err := raceSrv.Host(cfg.Race.Listen); err != nil {
		logger.Fatalf("host race: %v", err)
	}
	defer raceSrv.Close()

	lobbyDir.Start(tickInterval)
	defer lobbyDir.Stop()
	raceDir.Start(tickInterval)
	defer raceDir.Stop()

	obs := observer.NewServer(observer.Deps{
		Log:   logger,
		Rooms: rooms,
		Stats: func() observer.Stats {
			stages := make(map[string]int, 4)
			for stage, n := range raceDir.Stages() {
				stages[stage.String()] = n
			}
			return observer.Stats{
				PlayersOnline: lobbyDir.PlayersOnline(),
				RanchVisitors: ranchDir.VisitorsOnline(),
				Rooms:         len(rooms.Snapshot()),
				RelayPeers:    udp.PeerCount(),
				RacesByStage:  stages,
			}
		},
		Broadcast: lobbyDir.Broadcast,
		Mute: func(userName string, until time.Time) error {
			return store.AddInfraction(context.Background(), userName, infraction.Infraction{
				Kind:      infraction.KindChatBan,
				Reason:    "operator mute",
				IssuedAt:  time.Now(),
				ExpiresAt: until,
			})
		},
		ForceCreator: lobbyDir.ForceCharacterCreator,
	})
	adminSrv, err := obs.Host(cfg.Admin.Listen)
	if err != nil {
		logger.Fatalf("host admin: %v", err)
	}
	logger.Printf("admin surface on %s", cfg.Admin.Listen)

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	logger.Printf("shutting down")
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = adminSrv.Shutdown(shutdownCtx)
}

// openStore picks the sqlite record store when configured, an in-memory
// store otherwise.
func openStore(cfg config.Config, seedDemo bool, logger *log.Logger) (data.Store, error) {
	if cfg.RecordsPath != "" {
		logger.Printf("records database: %s", cfg.RecordsPath)
		return recorddb.Open(cfg.RecordsPath)
	}
	mem := data.NewMemoryStore()
	if seedDemo {
		seedDemoAccounts(mem, logger)
	}
	logger.Printf("records database: in-memory")
	return mem, nil
}

// seedDemoAccounts installs a few ready accounts so a fresh server is
// playable without tooling. Token equals the account name.
func seedDemoAccounts(mem *data.MemoryStore, logger *log.Logger) {
	ctx := context.Background()
	for i, name := range []string{"rider1", "rider2", "rider3", "rider4"} {
		horseUID, err := mem.CreateHorse(ctx, data.Horse{
			Horse: protocol.Horse{TID: 20002, Name: "Star"},
		})
		if err != nil {
			logger.Fatalf("seed horse: %v", err)
		}
		charUID, err := mem.CreateCharacter(ctx, data.Character{
			UserName:  name,
			Name:      name,
			Level:     uint16(10 + 10*i),
			Carrots:   5000,
			HorseUID:  horseUID,
			RanchName: name + "'s ranch",
		})
		if err != nil {
			logger.Fatalf("seed character: %v", err)
		}
		mem.SeedUser(data.User{Name: name, Token: name, CharacterUID: charUID})
	}
	logger.Printf("seeded 4 demo accounts (token = account name)")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// Command admin drives the server's loopback operator surface.
//
//	admin rooms            list live rooms
//	admin metrics          dump the metrics page
//	admin broadcast -msg   push a notice to every lobby client
//	admin mute -user       chat-ban an account
//	admin force-creator -uid  route a character through the creator on next login
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rooms":
			roomsCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		case "broadcast":
			broadcastCmd(os.Args[2:])
			return
		case "mute":
			muteCmd(os.Args[2:])
			return
		case "force-creator":
			forceCreatorCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin {rooms|metrics|broadcast|mute|force-creator} [flags]")
	os.Exit(2)
}

func baseFlag(fs *flag.FlagSet) *string {
	return fs.String("url", "http://127.0.0.1:8282", "admin base url")
}

func get(baseURL, path string) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimRight(string(b), "\n"))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func post(baseURL, path string, body any) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	raw, _ := json.Marshal(body)
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Post(u, "application/json", bytes.NewReader(raw))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(b)) > 0 {
		fmt.Println(strings.TrimRight(string(b), "\n"))
	}
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func roomsCmd(args []string) {
	fs := flag.NewFlagSet("rooms", flag.ExitOnError)
	baseURL := baseFlag(fs)
	_ = fs.Parse(args)
	get(*baseURL, "/admin/v1/rooms")
}

func metricsCmd(args []string) {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	baseURL := baseFlag(fs)
	_ = fs.Parse(args)
	get(*baseURL, "/metrics")
}

func broadcastCmd(args []string) {
	fs := flag.NewFlagSet("broadcast", flag.ExitOnError)
	baseURL := baseFlag(fs)
	msg := fs.String("msg", "", "notice text")
	_ = fs.Parse(args)
	if strings.TrimSpace(*msg) == "" {
		fmt.Fprintln(os.Stderr, "missing -msg")
		os.Exit(2)
	}
	post(*baseURL, "/admin/v1/broadcast", map[string]any{"message": *msg})
}

func muteCmd(args []string) {
	fs := flag.NewFlagSet("mute", flag.ExitOnError)
	baseURL := baseFlag(fs)
	user := fs.String("user", "", "account name")
	minutes := fs.Int("minutes", 0, "duration in minutes (0 = permanent)")
	_ = fs.Parse(args)
	if strings.TrimSpace(*user) == "" {
		fmt.Fprintln(os.Stderr, "missing -user")
		os.Exit(2)
	}
	post(*baseURL, "/admin/v1/mute", map[string]any{"user_name": *user, "minutes": *minutes})
}

func forceCreatorCmd(args []string) {
	fs := flag.NewFlagSet("force-creator", flag.ExitOnError)
	baseURL := baseFlag(fs)
	uid := fs.Uint("uid", 0, "character uid")
	clear := fs.Bool("clear", false, "clear a pending flag instead of setting it")
	_ = fs.Parse(args)
	if *uid == 0 {
		fmt.Fprintln(os.Stderr, "missing -uid")
		os.Exit(2)
	}
	post(*baseURL, "/admin/v1/force_creator", map[string]any{
		"character_uid": uint32(*uid),
		"forced":        !*clear,
	})
}

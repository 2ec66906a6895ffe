// Package observer serves the local operator surface: health, metrics
// in Prometheus exposition format, room listings and a websocket stream
// of room snapshots.
package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gallop.gg/internal/room"
)

// Stats is a point-in-time gauge set scraped by /metrics.
type Stats struct {
	PlayersOnline int
	RanchVisitors int
	RaceClients   int
	Rooms         int
	RelayPeers    int

	// RacesByStage counts race instances per lifecycle stage.
	RacesByStage map[string]int
}

// Deps wires the observer to the rest of the server. Operator actions
// are plain funcs so directors do not depend on this package.
type Deps struct {
	Log   *log.Logger
	Rooms *room.System
	Stats func() Stats

	// Broadcast pushes an operator notice to every lobby client.
	Broadcast func(message string)
	// Mute records a chat ban on the named account until the given time.
	Mute func(userName string, until time.Time) error
	// ForceCreator routes a character through the nickname creator on
	// its next login (or clears a pending flag).
	ForceCreator func(characterUID uint32, forced bool)
}

type Server struct {
	log   *log.Logger
	rooms *room.System
	stats func() Stats

	broadcast    func(string)
	mute         func(string, time.Time) error
	forceCreator func(uint32, bool)

	upgrader websocket.Upgrader
}

func NewServer(deps Deps) *Server {
	return &Server{
		log:          deps.Log,
		rooms:        deps.Rooms,
		stats:        deps.Stats,
		broadcast:    deps.Broadcast,
		mute:         deps.Mute,
		forceCreator: deps.ForceCreator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

// Handler builds the admin mux. Everything except /healthz is
// loopback-gated; the listener is expected to bind 127.0.0.1 anyway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/admin/v1/rooms", s.loopback(s.handleRooms))
	mux.HandleFunc("/admin/v1/broadcast", s.loopback(s.handleBroadcast))
	mux.HandleFunc("/admin/v1/mute", s.loopback(s.handleMute))
	mux.HandleFunc("/admin/v1/force_creator", s.loopback(s.handleForceCreator))
	mux.HandleFunc("/admin/v1/ws", s.loopback(s.handleWS))
	return mux
}

func (s *Server) loopback(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) handleMetrics(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m := s.stats()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP gallop_players_online Authenticated lobby sessions.\n")
	fmt.Fprintf(rw, "# TYPE gallop_players_online gauge\n")
	fmt.Fprintf(rw, "gallop_players_online %d\n", m.PlayersOnline)

	fmt.Fprintf(rw, "# HELP gallop_ranch_visitors Clients on a ranch.\n")
	fmt.Fprintf(rw, "# TYPE gallop_ranch_visitors gauge\n")
	fmt.Fprintf(rw, "gallop_ranch_visitors %d\n", m.RanchVisitors)

	fmt.Fprintf(rw, "# HELP gallop_rooms Live rooms.\n")
	fmt.Fprintf(rw, "# TYPE gallop_rooms gauge\n")
	fmt.Fprintf(rw, "gallop_rooms %d\n", m.Rooms)

	fmt.Fprintf(rw, "# HELP gallop_relay_peers Known UDP relay peers.\n")
	fmt.Fprintf(rw, "# TYPE gallop_relay_peers gauge\n")
	fmt.Fprintf(rw, "gallop_relay_peers %d\n", m.RelayPeers)

	fmt.Fprintf(rw, "# HELP gallop_races Race instances per stage.\n")
	fmt.Fprintf(rw, "# TYPE gallop_races gauge\n")
	for _, stage := range []string{"waiting", "loading", "racing", "finishing"} {
		fmt.Fprintf(rw, "gallop_races{stage=%q} %d\n", stage, m.RacesByStage[stage])
	}
}

// roomView is the JSON shape of one room in listings and the stream.
type roomView struct {
	UID         uint32 `json:"uid"`
	Name        string `json:"name"`
	Players     uint8  `json:"players"`
	MaxPlayers  uint8  `json:"max_players"`
	GameMode    uint8  `json:"game_mode"`
	TeamMode    uint8  `json:"team_mode"`
	CourseID    uint16 `json:"course_id"`
	HasPassword bool   `json:"has_password"`
	Playing     bool   `json:"playing"`
}

func (s *Server) roomViews() []roomView {
	snap := s.rooms.Snapshot()
	out := make([]roomView, 0, len(snap))
	for _, d := range snap {
		out = append(out, roomView{
			UID:         d.UID,
			Name:        d.Name,
			Players:     d.PlayerCount,
			MaxPlayers:  d.MaxPlayers,
			GameMode:    uint8(d.GameMode),
			TeamMode:    uint8(d.TeamMode),
			CourseID:    d.CourseID,
			HasPassword: d.HasPassword,
			Playing:     d.Playing,
		})
	}
	return out
}

func (s *Server) handleRooms(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(struct {
		Rooms []roomView `json:"rooms"`
	}{Rooms: s.roomViews()})
}

func (s *Server) handleBroadcast(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}
	s.broadcast(req.Message)
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMute(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		UserName string `json:"user_name"`
		Minutes  int    `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserName == "" {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}
	until := time.Time{} // permanent
	if req.Minutes > 0 {
		until = time.Now().Add(time.Duration(req.Minutes) * time.Minute)
	}
	if err := s.mute(req.UserName, until); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleForceCreator(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		CharacterUID uint32 `json:"character_uid"`
		Forced       *bool  `json:"forced"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CharacterUID == 0 {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}
	forced := true
	if req.Forced != nil {
		forced = *req.Forced
	}
	s.forceCreator(req.CharacterUID, forced)
	rw.WriteHeader(http.StatusNoContent)
}

// snapshotInterval paces the websocket room stream.
const snapshotInterval = 2 * time.Second

// handleWS streams room snapshots until the client goes away.
func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reads are only consumed for close detection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		payload := struct {
			Time  time.Time  `json:"time"`
			Rooms []roomView `json:"rooms"`
		}{Time: time.Now().UTC(), Rooms: s.roomViews()}
		b, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
		<-ticker.C
	}
}

// Host serves the observer on addr until the listener closes.
func (s *Server) Host(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Printf("[observer] serve: %v", err)
		}
	}()
	return srv, nil
}

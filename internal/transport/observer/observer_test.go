package observer

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gallop.gg/internal/protocol"
	"gallop.gg/internal/room"
)

type serverFixture struct {
	ts     *httptest.Server
	rooms  *room.System
	muted  []string
	forced []uint32
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	fx := &serverFixture{rooms: room.NewSystem()}
	rooms := fx.rooms
	s := NewServer(Deps{
		Log:   log.New(io.Discard, "", 0),
		Rooms: rooms,
		Stats: func() Stats {
			return Stats{
				PlayersOnline: 7,
				RanchVisitors: 2,
				Rooms:         len(rooms.Snapshot()),
				RelayPeers:    3,
				RacesByStage:  map[string]int{"waiting": 1, "racing": 2},
			}
		},
		Broadcast: func(string) {},
		Mute: func(name string, _ time.Time) error {
			fx.muted = append(fx.muted, name)
			return nil
		},
		ForceCreator: func(uid uint32, forced bool) {
			if forced {
				fx.forced = append(fx.forced, uid)
			}
		},
	})
	fx.ts = httptest.NewServer(s.Handler())
	t.Cleanup(fx.ts.Close)
	return fx
}

func TestHealthz(t *testing.T) {
	fx := newTestServer(t)
	resp, err := http.Get(fx.ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || string(body) != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}
}

func TestMetricsExposition(t *testing.T) {
	fx := newTestServer(t)
	fx.rooms.Create(room.Options{Name: "speedway", MaxPlayers: 8}, nil)

	resp, err := http.Get(fx.ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain; version=0.0.4" {
		t.Fatalf("content type: %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"gallop_players_online 7\n",
		"gallop_ranch_visitors 2\n",
		"gallop_rooms 1\n",
		"gallop_relay_peers 3\n",
		`gallop_races{stage="waiting"} 1` + "\n",
		`gallop_races{stage="racing"} 2` + "\n",
		`gallop_races{stage="finishing"} 0` + "\n",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q in:\n%s", want, body)
		}
	}
}

func TestRoomListing(t *testing.T) {
	fx := newTestServer(t)
	r := fx.rooms.Create(room.Options{
		Name:       "magic hour",
		Password:   "sekrit",
		MaxPlayers: 8,
		GameMode:   protocol.GameModeMagic,
		CourseID:   2,
	}, nil)
	if err := r.QueuePlayer(11); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(fx.ts.URL + "/admin/v1/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var payload struct {
		Rooms []roomView `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Rooms) != 1 {
		t.Fatalf("rooms: %+v", payload.Rooms)
	}
	got := payload.Rooms[0]
	if got.Name != "magic hour" || !got.HasPassword || got.Players != 1 || got.CourseID != 2 {
		t.Fatalf("room view: %+v", got)
	}
}

func TestMuteEndpoint(t *testing.T) {
	fx := newTestServer(t)

	resp, err := http.Post(fx.ts.URL+"/admin/v1/mute", "application/json",
		bytes.NewBufferString(`{"user_name":"griefer","minutes":30}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if len(fx.muted) != 1 || fx.muted[0] != "griefer" {
		t.Fatalf("muted: %v", fx.muted)
	}

	resp, err = http.Post(fx.ts.URL+"/admin/v1/mute", "application/json",
		bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty name accepted: %d", resp.StatusCode)
	}
}

func TestForceCreatorEndpoint(t *testing.T) {
	fx := newTestServer(t)

	resp, err := http.Post(fx.ts.URL+"/admin/v1/force_creator", "application/json",
		bytes.NewBufferString(`{"character_uid":42}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if len(fx.forced) != 1 || fx.forced[0] != 42 {
		t.Fatalf("forced: %v", fx.forced)
	}

	resp, err = http.Post(fx.ts.URL+"/admin/v1/force_creator", "application/json",
		bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero uid accepted: %d", resp.StatusCode)
	}
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	fx := newTestServer(t)
	fx.rooms.Create(room.Options{Name: "observed", MaxPlayers: 8}, nil)

	url := "ws" + strings.TrimPrefix(fx.ts.URL, "http") + "/admin/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var payload struct {
		Rooms []roomView `json:"rooms"`
	}
	if err := json.Unmarshal(msg, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Rooms) != 1 || payload.Rooms[0].Name != "observed" {
		t.Fatalf("snapshot: %s", msg)
	}
}

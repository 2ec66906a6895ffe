// Package race runs the race endpoint: room instances, the race stage
// machine and the in-race command handlers.
package race

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"gallop.gg/internal/config"
	"gallop.gg/internal/data"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/persistence/racelog"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/registry"
	"gallop.gg/internal/room"
	"gallop.gg/internal/sched"
	"gallop.gg/internal/tracker"
	"gallop.gg/internal/transport/tcp"
)

// errClientCheat is returned when a racer acts on behalf of another
// object id or spends points it does not have. The command server
// disconnects the client.
var errClientCheat = errors.New("race: client identity check failed")

// Stage is the race lifecycle phase of one room instance.
type Stage uint8

const (
	StageWaiting Stage = iota
	StageLoading
	StageRacing
	StageFinishing
)

const (
	loadingTimeout   = 30 * time.Second
	finishingTimeout = 15 * time.Second
	roomCountdownMs  = 3000
	itemRespawnDelay = 500 * time.Millisecond
	itemTrackRange   = 90.0
	jumpComboCap     = 99
)

// Pseudo-course ids the client uses for the All/New/Hot tabs. Any of
// them means "pick a course for me".
const (
	pseudoCourseAll uint16 = 10000 + iota
	pseudoCourseNew
	pseudoCourseHot
)

// Transport is the slice of the command server the director drives.
type Transport interface {
	Queue(client tcp.ClientID, msg protocol.Clientbound)
	DisconnectClient(client tcp.ClientID)
}

// Deps wires the director into the rest of the server.
type Deps struct {
	Log       *log.Logger
	Transport Transport
	Data      *data.Director
	Rooms     *room.System
	Registry  *registry.Registry
	OTP       *otp.Registry
	Config    config.Config
	RaceLog   *racelog.Logger
}

// session binds a race endpoint connection to its character and room.
type session struct {
	client       tcp.ClientID
	characterUID uint32
	roomUID      uint32
}

// instance is the race-side state of one room.
type instance struct {
	roomUID uint32
	room    *room.Room
	tracker *tracker.Tracker

	stage          Stage
	stageTimeoutAt time.Time
	raceStartAt    time.Time

	masterUID uint32
	ready     map[uint32]bool
	clients   map[uint32]tcp.ClientID

	// Race snapshot, fixed at StartRace.
	gameMode   protocol.GameMode
	teamMode   protocol.TeamMode
	mapBlockID uint16
	missionID  uint16

	// removeDelay maps an item type to its despawn delay for spawn
	// messages, filled from the deck table at race start.
	removeDelay map[uint32]int32

	// targeting maps an attacker oid to its current bolt target oid.
	targeting map[uint16]uint16
}

type Director struct {
	log       *log.Logger
	transport Transport
	data      *data.Director
	rooms     *room.System
	reg       *registry.Registry
	otp       *otp.Registry
	cfg       config.Config
	races     *racelog.Logger

	clock func() time.Time
	sched sched.Scheduler

	mu        sync.Mutex
	instances map[uint32]*instance
	sessions  map[tcp.ClientID]*session

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewDirector(deps Deps) *Director {
	return &Director{
		log:       deps.Log,
		transport: deps.Transport,
		data:      deps.Data,
		rooms:     deps.Rooms,
		reg:       deps.Registry,
		otp:       deps.OTP,
		cfg:       deps.Config,
		races:     deps.RaceLog,
		clock:     time.Now,
		instances: make(map[uint32]*instance),
		sessions:  make(map[tcp.ClientID]*session),
	}
}

// Register installs the race command handlers.
func (d *Director) Register(s *tcp.Server) {
	tcp.HandleTyped(s, d.handleEnterRoom)
	tcp.HandleTyped(s, d.handleChangeRoomOptions)
	tcp.HandleTyped(s, d.handleChangeTeam)
	tcp.HandleTyped(s, d.handleLeaveRoom)
	tcp.HandleTyped(s, d.handleReadyRace)
	tcp.HandleTyped(s, d.handleStartRace)
	tcp.HandleTyped(s, d.handleTimer)
	tcp.HandleTyped(s, d.handleLoadingComplete)
	tcp.HandleTyped(s, d.handleUserRaceFinal)
	tcp.HandleTyped(s, d.handleResult)
	tcp.HandleTyped(s, d.handleP2PResult)
	tcp.HandleTyped(s, d.handleHurdleClearResult)
	tcp.HandleTyped(s, d.handleStarPointGet)
	tcp.HandleTyped(s, d.handleRequestSpur)
	tcp.HandleTyped(s, d.handleStartingRate)
	tcp.HandleTyped(s, d.handleUserPos)
	tcp.HandleTyped(s, d.handleUserRaceItemGet)
	tcp.HandleTyped(s, d.handleRequestMagicItem)
	tcp.HandleTyped(s, d.handleUseMagicItem)
	tcp.HandleTyped(s, d.handleStartMagicTarget)
	tcp.HandleTyped(s, d.handleChangeMagicTargetNotify)
	tcp.HandleTyped(s, d.handleChangeMagicTargetOK)
	tcp.HandleTyped(s, d.handleCancelMagicTarget)
	tcp.HandleTyped(s, d.handleChat)
	tcp.HandleTyped(s, d.handleRelay)
	tcp.HandleTyped(s, d.handleRelayCommand)
	tcp.HandleTyped(s, d.handleAwardStart)
	tcp.HandleTyped(s, d.handleAwardEnd)
	tcp.HandleTyped(s, d.handleChangeSkillCardPreset)
}

// Start begins the director tick.
func (d *Director) Start(interval time.Duration) {
	d.ticker = time.NewTicker(interval)
	d.done = make(chan struct{})
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.done:
				return
			case now := <-d.ticker.C:
				d.Tick(now)
			}
		}
	}()
}

func (d *Director) Stop() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.done)
	d.wg.Wait()
}

// Tick drains the scheduler, then advances every instance's stage
// machine. A given instance transitions at most once per tick.
func (d *Director) Tick(now time.Time) {
	d.sched.Tick(now)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, inst := range d.instances {
		d.advanceLocked(inst, now)
	}
}

func (d *Director) advanceLocked(inst *instance, now time.Time) {
	switch inst.stage {
	case StageLoading:
		if inst.allRacersSettled(tracker.StatusRacing) || !now.Before(inst.stageTimeoutAt) {
			d.beginRacingLocked(inst, now)
		}
	case StageRacing:
		timeout := !now.Before(inst.stageTimeoutAt)
		if inst.anyRacerFinishing() || timeout {
			inst.stage = StageFinishing
			inst.stageTimeoutAt = now.Add(finishingTimeout)
			if timeout {
				d.broadcastLocked(inst, protocol.RaceFinalNotify{})
			}
		}
	case StageFinishing:
		if inst.allRacersSettled(tracker.StatusFinishing) || !now.Before(inst.stageTimeoutAt) {
			d.finishRaceLocked(inst, now)
		}
	}
}

// beginRacingLocked demotes racers that never finished loading and
// announces the shared start timestamp.
func (d *Director) beginRacingLocked(inst *instance, now time.Time) {
	for _, r := range inst.tracker.Racers() {
		if r.Status != tracker.StatusRacing {
			r.Status = tracker.StatusDisconnected
		}
	}

	block, ok := d.reg.MapBlock(inst.mapBlockID)
	if !ok {
		block = registry.MapBlockDef{TimeLimitMs: 120000, WaitTimeMs: 10000}
	}
	inst.stageTimeoutAt = now.Add(time.Duration(block.TimeLimitMs) * time.Millisecond)
	inst.raceStartAt = now.Add(time.Duration(block.WaitTimeMs) * time.Millisecond)
	inst.stage = StageRacing

	d.broadcastLocked(inst, protocol.RaceCountdown{
		RaceStartTimestamp: protocol.WinFileTime(inst.raceStartAt),
	})
}

// finishRaceLocked publishes the scoreboard and rewinds the instance to
// the waiting stage.
func (d *Director) finishRaceLocked(inst *instance, now time.Time) {
	racers := inst.tracker.Racers()
	sort.SliceStable(racers, func(i, j int) bool {
		return racers[i].CourseTime < racers[j].CourseTime
	})

	notify := protocol.RaceResultNotify{Scores: make([]protocol.ScoreInfo, 0, len(racers))}
	logged := racelog.Result{
		RoomUID:    inst.roomUID,
		GameMode:   uint8(inst.gameMode),
		TeamMode:   uint8(inst.teamMode),
		MapBlockID: inst.mapBlockID,
		FinishedAt: now,
	}
	for _, r := range racers {
		score := protocol.ScoreInfo{CourseTime: r.CourseTime, UID: r.CharacterUID}
		if r.Status != tracker.StatusDisconnected {
			score.Bitset |= protocol.ScoreConnected
		}
		if rec, ok := d.data.Character(r.CharacterUID); ok {
			c := rec.Value()
			score.Name = c.Name
			score.Level = c.Level
			if h, ok := d.data.Horse(c.HorseUID); ok {
				score.MountName = h.Value().Name
			}
		}
		notify.Scores = append(notify.Scores, score)
		logged.Scores = append(logged.Scores, racelog.RacerResult{
			CharacterUID: r.CharacterUID,
			Name:         score.Name,
			CourseTime:   r.CourseTime,
			Finished:     r.CourseTime != tracker.CourseTimeUnset,
			StarPoints:   r.StarPoints,
		})
	}
	d.broadcastLocked(inst, notify)

	if err := d.races.Write(logged); err != nil {
		d.log.Printf("[race] room %d: result log: %v", inst.roomUID, err)
	}

	inst.room.SetPlaying(false)
	inst.stage = StageWaiting
	for uid := range inst.ready {
		delete(inst.ready, uid)
	}
	for _, r := range racers {
		if r.Status == tracker.StatusDisconnected {
			inst.tracker.RemoveRacer(r.CharacterUID)
		}
	}
}

// HandleClientConnected implements tcp.Events.
func (d *Director) HandleClientConnected(tcp.ClientID) {}

// HandleClientDisconnected implements tcp.Events.
func (d *Director) HandleClientDisconnected(client tcp.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked(client)
}

// leaveLocked removes the client's character from its room instance:
// mid-race it stays on the scoreboard as disconnected, otherwise it is
// dropped entirely. The master seat moves to the earliest remaining
// joiner and an empty instance deletes itself and its room.
func (d *Director) leaveLocked(client tcp.ClientID) {
	sess := d.sessions[client]
	if sess == nil {
		return
	}
	delete(d.sessions, client)
	inst := d.instances[sess.roomUID]
	if inst == nil {
		return
	}

	if r, ok := inst.tracker.Racer(sess.characterUID); ok {
		if inst.stage == StageWaiting {
			inst.tracker.RemoveRacer(sess.characterUID)
		} else {
			r.Status = tracker.StatusDisconnected
		}
	}
	delete(inst.clients, sess.characterUID)
	delete(inst.ready, sess.characterUID)
	if sess.characterUID != 0 {
		d.data.PersistCharacter(sess.characterUID)
	}

	empty := inst.room.RemovePlayer(sess.characterUID)
	if empty {
		delete(d.instances, inst.roomUID)
		d.rooms.Delete(inst.roomUID)
		return
	}

	d.broadcastLocked(inst, protocol.RaceLeaveRoomNotify{CharacterUID: sess.characterUID, Unk0: 1})
	if inst.masterUID == sess.characterUID {
		if remaining := inst.room.Players(); len(remaining) > 0 {
			inst.masterUID = remaining[0]
			d.broadcastLocked(inst, protocol.RaceChangeMasterNotify{CharacterUID: inst.masterUID})
		}
	}
}

// sessionFor resolves a client to its session and room instance.
func (d *Director) sessionLocked(client tcp.ClientID) (*session, *instance) {
	sess := d.sessions[client]
	if sess == nil {
		return nil, nil
	}
	return sess, d.instances[sess.roomUID]
}

// racerFor additionally checks the command's object id against the
// session's racer.
func (d *Director) racerLocked(client tcp.ClientID, oid uint16) (*instance, *tracker.Racer, error) {
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil, nil, nil
	}
	r, ok := inst.tracker.Racer(sess.characterUID)
	if !ok {
		return nil, nil, nil
	}
	if r.OID != oid {
		return nil, nil, errClientCheat
	}
	return inst, r, nil
}

func (d *Director) broadcastLocked(inst *instance, msg protocol.Clientbound) {
	for _, c := range inst.clients {
		d.transport.Queue(c, msg)
	}
}

func (d *Director) broadcastExceptLocked(inst *instance, except uint32, msg protocol.Clientbound) {
	for uid, c := range inst.clients {
		if uid != except {
			d.transport.Queue(c, msg)
		}
	}
}

func (inst *instance) allRacersSettled(settled tracker.RacerStatus) bool {
	for _, r := range inst.tracker.Racers() {
		if r.Status != settled && r.Status != tracker.StatusDisconnected {
			return false
		}
	}
	return true
}

func (inst *instance) anyRacerFinishing() bool {
	for _, r := range inst.tracker.Racers() {
		if r.Status == tracker.StatusFinishing {
			return true
		}
	}
	return false
}

// Stages reports the instance count per stage for the observer surface.
func (s Stage) String() string {
	switch s {
	case StageWaiting:
		return "waiting"
	case StageLoading:
		return "loading"
	case StageRacing:
		return "racing"
	case StageFinishing:
		return "finishing"
	}
	return "unknown"
}

func (d *Director) Stages() map[Stage]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[Stage]int, 4)
	for _, inst := range d.instances {
		out[inst.stage]++
	}
	return out
}

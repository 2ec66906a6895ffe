// Package lobby runs the lobby endpoint: the staged login pipeline, room
// creation and the handoff grants for the ranch and race endpoints.
package lobby

import (
	"log"
	"sync"
	"time"

	"gallop.gg/internal/config"
	"gallop.gg/internal/data"
	"gallop.gg/internal/infraction"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/registry"
	"gallop.gg/internal/room"
	"gallop.gg/internal/sched"
	"gallop.gg/internal/transport/tcp"
)

// Transport is the slice of the command server the director drives.
type Transport interface {
	Queue(client tcp.ClientID, msg protocol.Clientbound)
	SetCode(client tcp.ClientID, key [4]byte)
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
}

// pendingLogin is a login making its way through the two queues.
type pendingLogin struct {
	userName string
	token    string
}

// instance is an authenticated lobby session.
type instance struct {
	client       tcp.ClientID
	userName     string
	characterUID uint32
	roomUID      uint32
}

type Director struct {
	log       *log.Logger
	transport Transport
	data      *data.Director
	rooms     *room.System
	reg       *registry.Registry
	otp       *otp.Registry
	cfg       config.Config

	clock func() time.Time
	sched sched.Scheduler

	mu            sync.Mutex
	logins        map[tcp.ClientID]*pendingLogin
	requestQueue  []tcp.ClientID
	responseQueue []tcp.ClientID
	creators      map[tcp.ClientID]struct{}
	forcedCreator map[uint32]struct{}
	instances     map[string]*instance
	byClient      map[tcp.ClientID]*instance
	byCharacter   map[uint32]*instance
	invites       map[uint32]uint32

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewDirector(deps Deps) *Director {
	return &Director{
		log:           deps.Log,
		transport:     deps.Transport,
		data:          deps.Data,
		rooms:         deps.Rooms,
		reg:           deps.Registry,
		otp:           deps.OTP,
		cfg:           deps.Config,
		clock:         time.Now,
		logins:        make(map[tcp.ClientID]*pendingLogin),
		creators:      make(map[tcp.ClientID]struct{}),
		forcedCreator: make(map[uint32]struct{}),
		instances:     make(map[string]*instance),
		byClient:      make(map[tcp.ClientID]*instance),
		byCharacter:   make(map[uint32]*instance),
		invites:       make(map[uint32]uint32),
	}
}

// Register installs the lobby command handlers.
func (d *Director) Register(s *tcp.Server) {
	tcp.HandleTyped(s, d.handleLogin)
	tcp.HandleTyped(s, d.handleShowInventory)
	tcp.HandleTyped(s, d.handleCreateNickname)
	tcp.HandleTyped(s, d.handleRoomList)
	tcp.HandleTyped(s, d.handleMakeRoom)
	tcp.HandleTyped(s, d.handleEnterRoom)
	tcp.HandleTyped(s, d.handleEnterRanch)
	tcp.HandleTyped(s, d.handleEnterRanchRandomly)
	tcp.HandleTyped(s, d.handleGetMessengerInfo)
	tcp.HandleTyped(s, d.handleCheckWaitingSeqno)
	tcp.HandleTyped(s, d.handleAchievementCompleteList)
	tcp.HandleTyped(s, d.handleRequestQuestList)
	tcp.HandleTyped(s, d.handleRequestDailyQuestList)
	tcp.HandleTyped(s, d.handleRequestSpecialEventList)
	tcp.HandleTyped(s, d.handleRequestLeagueInfo)
	tcp.HandleTyped(s, d.handleEnterChannel)
	tcp.HandleTyped(s, d.handleLeaveChannel)
	tcp.HandleTyped(s, d.handleHeartbeat)
	tcp.HandleTyped(s, d.handleGoodsShopList)
	tcp.HandleTyped(s, d.handleInquiryTreecash)
	tcp.HandleTyped(s, d.handleClientNotify)
	tcp.HandleTyped(s, d.handleRequestPersonalInfo)
	tcp.HandleTyped(s, d.handleSetIntroduction)
	tcp.HandleTyped(s, d.handleUpdateSystemContent)
	tcp.HandleTyped(s, d.handleQueryServerTime)
	tcp.HandleTyped(s, d.handleUpdateUserSettings)
	tcp.HandleTyped(s, d.handleChangeRanchOption)
	tcp.HandleTyped(s, d.handleRequestMountInfo)
	tcp.HandleTyped(s, d.handleGuildInviteReply)
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

// HandleClientConnected implements tcp.Events.
func (d *Director) HandleClientConnected(tcp.ClientID) {}

// HandleClientDisconnected implements tcp.Events. The client is flushed
// out of both login queues and its session is torn down.
func (d *Director) HandleClientDisconnected(client tcp.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.logins, client)
	delete(d.creators, client)
	d.requestQueue = removeClient(d.requestQueue, client)
	d.responseQueue = removeClient(d.responseQueue, client)

	inst := d.byClient[client]
	if inst == nil {
		return
	}
	delete(d.byClient, client)
	delete(d.instances, inst.userName)
	delete(d.byCharacter, inst.characterUID)
	if inst.characterUID != 0 {
		d.data.PersistCharacter(inst.characterUID)
	}
}

func removeClient(queue []tcp.ClientID, client tcp.ClientID) []tcp.ClientID {
	out := queue[:0]
	for _, c := range queue {
		if c != client {
			out = append(out, c)
		}
	}
	return out
}

// Tick advances one login per queue stage, response stage first, then
// runs the delayed tasks.
func (d *Director) Tick(now time.Time) {
	d.tickResponseStage()
	d.tickRequestStage()
	d.sched.Tick(now)
}

// tickRequestStage settles the head of the authentication queue: once
// the account record lands the credentials and sanctions are checked and
// the login moves to the response queue.
func (d *Director) tickRequestStage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requestQueue) == 0 {
		return
	}
	client := d.requestQueue[0]
	login := d.logins[client]
	if login == nil {
		d.requestQueue = d.requestQueue[1:]
		return
	}

	state, known := d.data.UserLoadState(login.userName)
	if !known || state == data.LoadPending {
		return
	}
	d.requestQueue = d.requestQueue[1:]

	if state == data.LoadFailed {
		d.data.ForgetUser(login.userName)
		d.cancelLoginLocked(client, protocol.LoginCancelGeneric)
		return
	}

	rec, _ := d.data.User(login.userName)
	user := rec.Value()
	if user.Token != login.token {
		d.cancelLoginLocked(client, protocol.LoginCancelInvalidUser)
		return
	}
	if infraction.PreventServerJoining(d.data.UserInfractions(login.userName), d.clock()) {
		d.cancelLoginLocked(client, protocol.LoginCancelDisconnectYourself)
		return
	}

	if user.CharacterUID != 0 {
		d.data.RequestLoadCharacter(user.CharacterUID)
	}
	d.responseQueue = append(d.responseQueue, client)
}

// tickResponseStage settles the head of the response queue: once the
// character record lands the session is established and the login
// payload goes out. Accounts without a character are routed into the
// nickname creator instead.
func (d *Director) tickResponseStage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.responseQueue) == 0 {
		return
	}
	client := d.responseQueue[0]
	login := d.logins[client]
	if login == nil {
		d.responseQueue = d.responseQueue[1:]
		return
	}

	rec, ok := d.data.User(login.userName)
	if !ok {
		d.responseQueue = d.responseQueue[1:]
		d.cancelLoginLocked(client, protocol.LoginCancelGeneric)
		return
	}
	user := rec.Value()

	if user.CharacterUID != 0 {
		state, known := d.data.CharacterLoadState(user.CharacterUID)
		if !known || state == data.LoadPending {
			return
		}
		if state == data.LoadFailed {
			d.responseQueue = d.responseQueue[1:]
			d.cancelLoginLocked(client, protocol.LoginCancelGeneric)
			return
		}
	}
	d.responseQueue = d.responseQueue[1:]

	if _, taken := d.instances[login.userName]; taken {
		d.cancelLoginLocked(client, protocol.LoginCancelDuplicated)
		return
	}
	inst := &instance{client: client, userName: login.userName, characterUID: user.CharacterUID}
	d.instances[login.userName] = inst
	d.byClient[client] = inst
	if user.CharacterUID != 0 {
		d.byCharacter[user.CharacterUID] = inst
	}
	delete(d.logins, client)

	// The operator flag is consumed on the login it redirects.
	_, forced := d.forcedCreator[user.CharacterUID]
	if forced {
		delete(d.forcedCreator, user.CharacterUID)
	}

	if user.CharacterUID == 0 || forced {
		d.creators[client] = struct{}{}
		d.transport.Queue(client, protocol.LobbyCreateNicknameNotify{})
		return
	}
	d.sendLoginOKLocked(inst)
}

// ForceCharacterCreator marks (or clears) an operator request to route
// the character through the nickname creator on its next login.
func (d *Director) ForceCharacterCreator(characterUID uint32, forced bool) {
	if characterUID == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if forced {
		d.forcedCreator[characterUID] = struct{}{}
	} else {
		delete(d.forcedCreator, characterUID)
	}
}

// IsCharacterForcedIntoCreator reports whether the flag is pending.
func (d *Director) IsCharacterForcedIntoCreator(characterUID uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, forced := d.forcedCreator[characterUID]
	return forced
}

func (d *Director) cancelLoginLocked(client tcp.ClientID, reason protocol.LoginCancelReason) {
	delete(d.logins, client)
	d.transport.Queue(client, protocol.LobbyLoginCancel{Reason: reason})
}

// queuePosition is the client's distance from service across both stages.
func (d *Director) queuePosition(client tcp.ClientID) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	pos := uint32(0)
	for i, c := range d.responseQueue {
		if c == client {
			pos += uint32(i + 1)
		}
	}
	for i, c := range d.requestQueue {
		if c == client {
			pos += uint32(i + 1)
		}
	}
	return pos
}

// PlayersOnline reports the authenticated session count.
func (d *Director) PlayersOnline() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.instances)
}

func (d *Director) instanceFor(client tcp.ClientID) *instance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byClient[client]
}

// Broadcast queues an operator notice to every authenticated session.
func (d *Director) Broadcast(message string) {
	d.mu.Lock()
	clients := make([]tcp.ClientID, 0, len(d.byClient))
	for c := range d.byClient {
		clients = append(clients, c)
	}
	d.mu.Unlock()
	for _, c := range clients {
		d.transport.Queue(c, protocol.LobbyMessageNotify{Message: message})
	}
}

// InviteToGuild delivers a guild invitation to an online character.
func (d *Director) InviteToGuild(characterUID, guildUID uint32, inviterUID uint32) bool {
	guild, ok := d.data.Guild(guildUID)
	if !ok {
		return false
	}
	d.mu.Lock()
	inst := d.byCharacter[characterUID]
	if inst != nil {
		d.invites[characterUID] = guildUID
	}
	d.mu.Unlock()
	if inst == nil {
		return false
	}
	d.transport.Queue(inst.client, protocol.LobbyGuildInvitation{
		GuildUID:   guildUID,
		GuildName:  guild.Name,
		InviterUID: inviterUID,
	})
	return true
}

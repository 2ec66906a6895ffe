// Package ranch runs the ranch endpoint. It is a handoff target only:
// visitors authorize with the one-time code the lobby granted, see who
// else is visiting and chat.
package ranch

import (
	"log"
	"sync"
	"time"

	"gallop.gg/internal/chat"
	"gallop.gg/internal/data"
	"gallop.gg/internal/infraction"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/transport/tcp"
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
	OTP       *otp.Registry
}

// visit is one client standing on a ranch.
type visit struct {
	client       tcp.ClientID
	characterUID uint32
	rancherUID   uint32
}

// ranchState is the live visitor set of one ranch, keyed by visitor
// character uid.
type ranchState struct {
	rancherUID uint32
	visitors   map[uint32]*visit
}

type Director struct {
	log       *log.Logger
	transport Transport
	data      *data.Director
	otp       *otp.Registry

	clock func() time.Time

	mu       sync.Mutex
	ranches  map[uint32]*ranchState
	byClient map[tcp.ClientID]*visit
}

func NewDirector(deps Deps) *Director {
	return &Director{
		log:       deps.Log,
		transport: deps.Transport,
		data:      deps.Data,
		otp:       deps.OTP,
		clock:     time.Now,
		ranches:   make(map[uint32]*ranchState),
		byClient:  make(map[tcp.ClientID]*visit),
	}
}

// Register installs the ranch command handlers.
func (d *Director) Register(s *tcp.Server) {
	tcp.HandleTyped(s, d.handleEnterRanch)
	tcp.HandleTyped(s, d.handleLeaveRanch)
	tcp.HandleTyped(s, d.handleChat)
	tcp.HandleTyped(s, d.handleHeartbeat)
}

// HandleClientConnected implements tcp.Events.
func (d *Director) HandleClientConnected(tcp.ClientID) {}

// HandleClientDisconnected implements tcp.Events.
func (d *Director) HandleClientDisconnected(client tcp.ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked(client)
}

func (d *Director) handleEnterRanch(client tcp.ClientID, cmd protocol.RanchEnterRanch) error {
	if !d.otp.Authorize(otp.IdentityHash(cmd.CharacterUID), cmd.OneTimePassword) {
		d.transport.Queue(client, protocol.RanchEnterRanchCancel{})
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.ranches[cmd.RancherUID]
	if state == nil {
		state = &ranchState{rancherUID: cmd.RancherUID, visitors: make(map[uint32]*visit)}
		d.ranches[cmd.RancherUID] = state
	}
	v := &visit{client: client, characterUID: cmd.CharacterUID, rancherUID: cmd.RancherUID}
	state.visitors[cmd.CharacterUID] = v
	d.byClient[client] = v

	reply := protocol.RanchEnterRanchOK{RancherUID: cmd.RancherUID}
	if rec, ok := d.data.Character(cmd.RancherUID); ok {
		c := rec.Value()
		reply.RancherName = c.Name
		reply.RanchName = c.RanchName
	}
	for uid := range state.visitors {
		reply.Visitors = append(reply.Visitors, d.visitorLocked(uid))
	}
	d.transport.Queue(client, reply)

	joined := d.visitorLocked(cmd.CharacterUID)
	for uid, other := range state.visitors {
		if uid != cmd.CharacterUID {
			d.transport.Queue(other.client, protocol.RanchEnterRanchNotify{Visitor: joined})
		}
	}
	return nil
}

func (d *Director) visitorLocked(characterUID uint32) protocol.RanchVisitor {
	v := protocol.RanchVisitor{UID: characterUID}
	if rec, ok := d.data.Character(characterUID); ok {
		c := rec.Value()
		v.Name = c.Name
		v.Level = c.Level
		v.Character = protocol.Character{Parts: c.Parts, Appearance: c.Appearance}
		if h, ok := d.data.Horse(c.HorseUID); ok {
			v.Horse = h.Value().Horse
		}
	}
	return v
}

func (d *Director) handleLeaveRanch(client tcp.ClientID, _ protocol.RanchLeaveRanch) error {
	d.mu.Lock()
	d.leaveLocked(client)
	d.mu.Unlock()
	d.transport.Queue(client, protocol.RanchLeaveRanchOK{})
	return nil
}

func (d *Director) leaveLocked(client tcp.ClientID) {
	v := d.byClient[client]
	if v == nil {
		return
	}
	delete(d.byClient, client)
	state := d.ranches[v.rancherUID]
	if state == nil {
		return
	}
	delete(state.visitors, v.characterUID)
	if len(state.visitors) == 0 {
		delete(d.ranches, v.rancherUID)
		return
	}
	for _, other := range state.visitors {
		d.transport.Queue(other.client, protocol.RanchLeaveRanchNotify{CharacterUID: v.characterUID})
	}
}

func (d *Director) handleChat(client tcp.ClientID, cmd protocol.RanchChat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.byClient[client]
	if v == nil {
		return nil
	}
	rec, ok := d.data.Character(v.characterUID)
	if !ok {
		return nil
	}
	c := rec.Value()
	if infraction.PreventChatting(d.data.UserInfractions(c.UserName), d.clock()) {
		return nil
	}
	message, sayable := chat.Sanitize(cmd.Message)
	if !sayable {
		return nil
	}
	state := d.ranches[v.rancherUID]
	if state == nil {
		return nil
	}
	for _, other := range state.visitors {
		d.transport.Queue(other.client, protocol.RanchChatNotify{Name: c.Name, Message: message})
	}
	return nil
}

func (d *Director) handleHeartbeat(tcp.ClientID, protocol.RanchHeartbeat) error {
	return nil
}

// VisitorsOnline reports the visitor count for the observer surface.
func (d *Director) VisitorsOnline() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byClient)
}

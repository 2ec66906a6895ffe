package race

import (
	"math/rand"
	"time"

	"gallop.gg/internal/chat"
	"gallop.gg/internal/data"
	"gallop.gg/internal/infraction"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/registry"
	"gallop.gg/internal/room"
	"gallop.gg/internal/tracker"
	"gallop.gg/internal/transport/tcp"
)

func (d *Director) handleEnterRoom(client tcp.ClientID, cmd protocol.RaceEnterRoom) error {
	key := otp.Combine(otp.IdentityHash(cmd.CharacterUID), cmd.RoomUID)
	if !d.otp.Authorize(key, cmd.OneTimePassword) {
		d.transport.Queue(client, protocol.RaceEnterRoomCancel{})
		return nil
	}
	r, ok := d.rooms.Get(cmd.RoomUID)
	if !ok {
		d.transport.Queue(client, protocol.RaceEnterRoomCancel{})
		return nil
	}
	if _, err := r.AddPlayer(cmd.CharacterUID); err != nil {
		d.transport.Queue(client, protocol.RaceEnterRoomCancel{})
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	inst := d.instances[cmd.RoomUID]
	if inst == nil {
		inst = &instance{
			roomUID:   cmd.RoomUID,
			room:      r,
			tracker:   tracker.New(),
			masterUID: cmd.CharacterUID,
			ready:     make(map[uint32]bool),
			clients:   make(map[uint32]tcp.ClientID),
			targeting: make(map[uint16]uint16),
		}
		d.instances[cmd.RoomUID] = inst
	}
	inst.tracker.AddRacer(cmd.CharacterUID)
	inst.clients[cmd.CharacterUID] = client
	d.sessions[client] = &session{client: client, characterUID: cmd.CharacterUID, roomUID: cmd.RoomUID}

	opts := r.Options()
	ok2 := protocol.RaceEnterRoomOK{
		RoomUID:     cmd.RoomUID,
		Description: describeRoom(opts),
	}
	if inst.stage == StageWaiting {
		ok2.IsRoomWaiting = 1
	}
	for _, uid := range r.Players() {
		ok2.Racers = append(ok2.Racers, d.roomRacerLocked(inst, uid))
	}
	d.transport.Queue(client, ok2)

	d.broadcastExceptLocked(inst, cmd.CharacterUID, protocol.RaceEnterRoomNotify{
		Racer: d.roomRacerLocked(inst, cmd.CharacterUID),
	})
	return nil
}

func describeRoom(opts room.Options) protocol.RoomDescription {
	desc := protocol.RoomDescription{
		Name:           opts.Name,
		MaxPlayerCount: opts.MaxPlayers,
		GameMode:       opts.GameMode,
		TeamMode:       opts.TeamMode,
		MissionID:      opts.MissionID,
		CourseID:       opts.CourseID,
		NPCRace:        opts.NPCRace,
	}
	if opts.Password != "" {
		desc.HasPassword = 1
	}
	return desc
}

// roomRacerLocked builds one roster entry from the record cache. A
// character whose records have not landed yet shows up with zero values
// rather than blocking admission.
func (d *Director) roomRacerLocked(inst *instance, characterUID uint32) protocol.RoomRacer {
	rr := protocol.RoomRacer{UID: characterUID}
	if r, ok := inst.tracker.Racer(characterUID); ok {
		rr.OID = r.OID
	}
	if inst.masterUID == characterUID {
		rr.IsMaster = 1
	}
	if inst.ready[characterUID] {
		rr.IsReady = 1
	}
	if team, ok := inst.room.Team(characterUID); ok {
		rr.Team = team
	}
	if rec, ok := d.data.Character(characterUID); ok {
		c := rec.Value()
		rr.Name = c.Name
		rr.Level = c.Level
		rr.Character = protocol.Character{Parts: c.Parts, Appearance: c.Appearance}
		if h, ok := d.data.Horse(c.HorseUID); ok {
			rr.Horse = h.Value().Horse
		}
		if c.GuildUID != 0 {
			if g, ok := d.data.Guild(c.GuildUID); ok {
				rr.Guild = protocol.Guild{UID: g.UID, Name: g.Name}
			}
		}
	}
	return rr
}

func (d *Director) handleChangeRoomOptions(client tcp.ClientID, cmd protocol.RaceChangeRoomOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	if sess.characterUID != inst.masterUID {
		d.log.Printf("[race] room %d: options change from non-master %d", inst.roomUID, sess.characterUID)
		return nil
	}

	inst.room.Update(func(o *room.Options) {
		if cmd.Bitfield&protocol.RoomOptionName != 0 {
			o.Name = cmd.Name
		}
		if cmd.Bitfield&protocol.RoomOptionPlayerCount != 0 {
			o.MaxPlayers = cmd.PlayerCount
		}
		if cmd.Bitfield&protocol.RoomOptionPassword != 0 {
			o.Password = cmd.Password
		}
		if cmd.Bitfield&protocol.RoomOptionGameMode != 0 {
			o.GameMode = cmd.GameMode
		}
		if cmd.Bitfield&protocol.RoomOptionMapBlockID != 0 {
			o.CourseID = cmd.MapBlockID
		}
		if cmd.Bitfield&protocol.RoomOptionNPCRace != 0 {
			o.NPCRace = cmd.NPCRace
		}
	})
	d.broadcastLocked(inst, protocol.RaceChangeRoomOptionsNotify{
		Bitfield:    cmd.Bitfield,
		Name:        cmd.Name,
		PlayerCount: cmd.PlayerCount,
		Password:    cmd.Password,
		GameMode:    cmd.GameMode,
		MapBlockID:  cmd.MapBlockID,
		NPCRace:     cmd.NPCRace,
	})
	return nil
}

func (d *Director) handleChangeTeam(client tcp.ClientID, cmd protocol.RaceChangeTeam) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	if err := inst.room.SetTeam(sess.characterUID, cmd.Team); err != nil {
		return nil
	}
	d.transport.Queue(client, protocol.RaceChangeTeamOK{CharacterUID: sess.characterUID, Team: cmd.Team})
	d.broadcastExceptLocked(inst, sess.characterUID, protocol.RaceChangeTeamNotify{
		CharacterUID: sess.characterUID,
		Team:         cmd.Team,
	})
	return nil
}

func (d *Director) handleLeaveRoom(client tcp.ClientID, _ protocol.RaceLeaveRoom) error {
	d.mu.Lock()
	d.leaveLocked(client)
	d.mu.Unlock()
	d.transport.Queue(client, protocol.RaceLeaveRoomOK{})
	return nil
}

func (d *Director) handleReadyRace(client tcp.ClientID, _ protocol.RaceReadyRace) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	inst.ready[sess.characterUID] = !inst.ready[sess.characterUID]
	notify := protocol.RaceReadyRaceNotify{CharacterUID: sess.characterUID}
	if inst.ready[sess.characterUID] {
		notify.IsReady = 1
	}
	d.broadcastLocked(inst, notify)
	return nil
}

func (d *Director) handleStartRace(client tcp.ClientID, _ protocol.RaceStartRace) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	if sess.characterUID != inst.masterUID {
		d.log.Printf("[race] room %d: start from non-master %d", inst.roomUID, sess.characterUID)
		return nil
	}
	if inst.stage != StageWaiting {
		return nil
	}

	opts := inst.room.Options()
	inst.gameMode = opts.GameMode
	inst.teamMode = opts.TeamMode
	inst.missionID = opts.MissionID
	inst.mapBlockID = d.resolveCourseLocked(inst, opts.CourseID)

	inst.room.SetPlaying(true)
	inst.tracker.ResetRace()
	d.prepareItemSpawnersLocked(inst)
	for _, uid := range inst.room.Players() {
		r := inst.tracker.AddRacer(uid)
		if r.Status != tracker.StatusDisconnected {
			r.Status = tracker.StatusLoading
		}
	}
	inst.stage = StageLoading
	now := d.clock()
	inst.stageTimeoutAt = now.Add(loadingTimeout)

	d.broadcastLocked(inst, protocol.RaceRoomCountdown{
		CountdownMs: roomCountdownMs,
		MapBlockID:  inst.mapBlockID,
	})

	roomUID := inst.roomUID
	d.sched.Queue(func() { d.sendStartRaceNotify(roomUID) }, roomCountdownMs*time.Millisecond)
	return nil
}

// resolveCourseLocked turns a pseudo-course selection into a concrete
// map block: a random pick from the mode's pool the master is leveled
// for, or the configured fallback when the pool comes up empty.
func (d *Director) resolveCourseLocked(inst *instance, courseID uint16) uint16 {
	if courseID != pseudoCourseAll && courseID != pseudoCourseNew && courseID != pseudoCourseHot {
		return courseID
	}

	var masterLevel uint16
	if rec, ok := d.data.Character(inst.masterUID); ok {
		masterLevel = rec.Value().Level
	}
	mode := d.reg.GameMode(uint8(inst.gameMode))
	eligible := make([]uint16, 0, len(mode.MapPool))
	for _, id := range mode.MapPool {
		if block, ok := d.reg.MapBlock(id); ok && block.RequiredLevel <= masterLevel {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return d.cfg.FallbackMapBlockID
	}
	return eligible[rand.Intn(len(eligible))]
}

// prepareItemSpawnersLocked populates the tracker's item slots from the
// map block's spawner template.
func (d *Director) prepareItemSpawnersLocked(inst *instance) {
	inst.removeDelay = make(map[uint32]int32)
	for _, deck := range d.reg.ItemDecks {
		inst.removeDelay[deck.ItemType] = deck.RemoveDelayMs
	}

	block, ok := d.reg.MapBlock(inst.mapBlockID)
	if !ok {
		return
	}
	for _, spawn := range block.ItemSpawns {
		deck, ok := d.reg.ItemDeck(spawn.DeckID)
		if !ok {
			continue
		}
		inst.tracker.SpawnItem(deck.ItemType, protocol.Vec3{
			X: spawn.Position[0],
			Y: spawn.Position[1],
			Z: spawn.Position[2],
		}, spawn.Orientation)
	}
}

// sendStartRaceNotify fires when the room countdown elapses. A room
// deleted or rewound in the meantime drops the task silently.
func (d *Director) sendStartRaceNotify(roomUID uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst := d.instances[roomUID]
	if inst == nil || inst.stage != StageLoading {
		return
	}

	mode := d.reg.GameMode(uint8(inst.gameMode))
	msg := protocol.RaceStartRaceNotify{
		GameMode:        inst.gameMode,
		TeamMode:        inst.teamMode,
		MapBlockID:      inst.mapBlockID,
		MissionID:       inst.missionID,
		P2PRelayAddress: protocol.EncodeAddress(d.cfg.Relay.AdvertiseHost),
		P2PRelayPort:    d.cfg.Relay.AdvertisePort,
	}
	for _, r := range inst.tracker.Racers() {
		if r.Status == tracker.StatusDisconnected {
			continue
		}
		sr := protocol.StartRacer{OID: r.OID, P2PID: r.OID}
		if rec, ok := d.data.Character(r.CharacterUID); ok {
			sr.Name = rec.Value().Name
		}
		if team, ok := inst.room.Team(r.CharacterUID); ok {
			sr.TeamColor = uint8(team)
		}
		msg.Racers = append(msg.Racers, sr)
		msg.Skills = append(msg.Skills, d.racerSkillsLocked(r, mode))
	}

	for _, r := range inst.tracker.Racers() {
		if r.Status == tracker.StatusDisconnected {
			continue
		}
		client, ok := inst.clients[r.CharacterUID]
		if !ok {
			continue
		}
		personal := msg
		personal.HostOID = r.OID
		d.transport.Queue(client, personal)
	}
}

// racerSkillsLocked resolves the racer's active skill card pair and
// rolls the bonus skill from the mode pool.
func (d *Director) racerSkillsLocked(r *tracker.Racer, mode registry.GameModeDef) protocol.RacerSkills {
	sk := protocol.RacerSkills{OID: r.OID}
	if rec, ok := d.data.Character(r.CharacterUID); ok {
		c := rec.Value()
		preset := c.SkillPresets[mode.Mode]
		sk.ActiveSet = preset.ActiveSetID
		for _, set := range preset.Sets {
			if set.SetID == preset.ActiveSetID {
				sk.Slot1 = set.Slot1
				sk.Slot2 = set.Slot2
				break
			}
		}
	}
	if len(mode.BonusSkills) > 0 {
		sk.BonusSkill = mode.BonusSkills[rand.Intn(len(mode.BonusSkills))]
	}
	return sk
}

func (d *Director) handleTimer(client tcp.ClientID, cmd protocol.RaceTimer) error {
	d.transport.Queue(client, protocol.RaceTimerOK{
		ClientClock: cmd.ClientClock,
		ServerClock: protocol.WinFileTime(d.clock()),
	})
	return nil
}

func (d *Director) handleChat(client tcp.ClientID, cmd protocol.RaceChat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	rec, ok := d.data.Character(sess.characterUID)
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
	d.broadcastLocked(inst, protocol.RaceChatNotify{Name: c.Name, Message: message})
	return nil
}

func (d *Director) handleRelay(client tcp.ClientID, cmd protocol.RaceRelay) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	r, ok := inst.tracker.Racer(sess.characterUID)
	if !ok {
		return nil
	}
	d.broadcastExceptLocked(inst, sess.characterUID, protocol.RaceRelayNotify{OID: r.OID, Data: cmd.Data})
	return nil
}

func (d *Director) handleRelayCommand(client tcp.ClientID, cmd protocol.RaceRelayCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	r, ok := inst.tracker.Racer(sess.characterUID)
	if !ok {
		return nil
	}
	d.broadcastExceptLocked(inst, sess.characterUID, protocol.RaceRelayCommandNotify{
		OID:       r.OID,
		CommandID: cmd.CommandID,
		Data:      cmd.Data,
	})
	return nil
}

func (d *Director) handleAwardStart(client tcp.ClientID, cmd protocol.RaceAwardStart) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, inst := d.sessionLocked(client)
	if inst == nil {
		return nil
	}
	d.broadcastLocked(inst, protocol.RaceAwardStartNotify{Unk0: cmd.Unk0})
	return nil
}

// handleAwardEnd is accepted and dropped: the award ceremony ends
// client-side and the server keys nothing off it.
func (d *Director) handleAwardEnd(tcp.ClientID, protocol.RaceAwardEnd) error {
	return nil
}

func (d *Director) handleChangeSkillCardPreset(client tcp.ClientID, cmd protocol.RaceChangeSkillCardPreset) error {
	d.mu.Lock()
	sess, inst := d.sessionLocked(client)
	d.mu.Unlock()
	if sess == nil || inst == nil {
		return nil
	}
	rec, ok := d.data.Character(sess.characterUID)
	if !ok {
		return nil
	}
	rec.Mutable(func(c *data.Character) {
		if c.SkillPresets == nil {
			c.SkillPresets = make(map[uint8]protocol.ModeSkills)
		}
		preset := c.SkillPresets[uint8(cmd.GameMode)]
		preset.ActiveSetID = cmd.SetID
		c.SkillPresets[uint8(cmd.GameMode)] = preset
	})
	d.data.PersistCharacter(sess.characterUID)
	return nil
}

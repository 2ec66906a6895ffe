package lobby

import (
	"math/rand"
	"time"

	"gallop.gg/internal/data"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/room"
	"gallop.gg/internal/transport/tcp"
)

const (
	maxRoomPlayers = 8
	roomsPerPage   = 9

	// pseudoCourseAny asks the race endpoint to roll a random course.
	pseudoCourseAny = 10002

	// reservationGrace is how long a lobby redirect holds a race seat
	// before the reservation is reconciled.
	reservationGrace = 7 * time.Second
)

func (d *Director) raceAddress() (uint32, uint16) {
	return protocol.EncodeAddress(d.cfg.Race.AdvertiseHost), d.cfg.Race.AdvertisePort
}

func (d *Director) ranchAddress() (uint32, uint16) {
	return protocol.EncodeAddress(d.cfg.Ranch.AdvertiseHost), d.cfg.Ranch.AdvertisePort
}

func (d *Director) handleMakeRoom(client tcp.ClientID, cmd protocol.LobbyMakeRoom) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		d.transport.Queue(client, protocol.LobbyMakeRoomCancel{Unk0: 1})
		return nil
	}

	playerCount := cmd.PlayerCount
	if playerCount > maxRoomPlayers {
		playerCount = maxRoomPlayers
	}
	if playerCount == 0 {
		playerCount = 1
	}
	if cmd.Name == "" && playerCount != 1 {
		d.transport.Queue(client, protocol.LobbyMakeRoomCancel{Unk0: 1})
		return nil
	}

	// The creator's reservation lands before the room is listed, so no
	// snapshot ever shows the room without its first seat held.
	var reserveErr error
	r := d.rooms.Create(room.Options{
		Name:       cmd.Name,
		Password:   cmd.Password,
		MaxPlayers: playerCount,
		GameMode:   cmd.GameMode,
		TeamMode:   cmd.TeamMode,
		CourseID:   pseudoCourseAny,
		MissionID:  cmd.MissionID,
	}, func(r *room.Room) {
		reserveErr = r.QueuePlayer(inst.characterUID)
	})
	if reserveErr != nil {
		d.rooms.Delete(r.UID())
		d.transport.Queue(client, protocol.LobbyMakeRoomCancel{Unk0: 1})
		return nil
	}

	code := d.otp.Grant(otp.Combine(otp.IdentityHash(inst.characterUID), r.UID()))
	d.scheduleReservationCheck(inst, r)

	addr, port := d.raceAddress()
	d.transport.Queue(client, protocol.LobbyMakeRoomOK{
		RoomUID:           r.UID(),
		OneTimePassword:   code,
		RaceServerAddress: addr,
		RaceServerPort:    port,
	})
	return nil
}

func (d *Director) handleEnterRoom(client tcp.ClientID, cmd protocol.LobbyEnterRoom) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		d.transport.Queue(client, protocol.LobbyEnterRoomCancel{Status: protocol.RoomCancelNotLogin})
		return nil
	}
	r, ok := d.rooms.Get(cmd.RoomUID)
	if !ok {
		d.transport.Queue(client, protocol.LobbyEnterRoomCancel{Status: protocol.RoomCancelInvalidRoom})
		return nil
	}
	if r.IsPlaying() {
		d.transport.Queue(client, protocol.LobbyEnterRoomCancel{Status: protocol.RoomCancelPlayingRoom})
		return nil
	}
	if !r.CheckPassword(cmd.Password) {
		d.transport.Queue(client, protocol.LobbyEnterRoomCancel{Status: protocol.RoomCancelBadPassword})
		return nil
	}
	if err := r.QueuePlayer(inst.characterUID); err != nil {
		d.transport.Queue(client, protocol.LobbyEnterRoomCancel{Status: protocol.RoomCancelCrowdedRoom})
		return nil
	}

	code := d.otp.Grant(otp.Combine(otp.IdentityHash(inst.characterUID), r.UID()))
	d.scheduleReservationCheck(inst, r)

	addr, port := d.raceAddress()
	d.transport.Queue(client, protocol.LobbyEnterRoomOK{
		RoomUID:           r.UID(),
		OneTimePassword:   code,
		RaceServerAddress: addr,
		RaceServerPort:    port,
	})
	return nil
}

// scheduleReservationCheck reconciles a race redirect after the grace
// period: a reservation the player never claimed is released, a claimed
// one binds the session to the room.
func (d *Director) scheduleReservationCheck(inst *instance, r *room.Room) {
	characterUID := inst.characterUID
	d.sched.Queue(func() {
		if r.Dequeue(characterUID) {
			d.otp.Revoke(otp.Combine(otp.IdentityHash(characterUID), r.UID()))
			if r.PlayerCount() == 0 {
				d.rooms.Delete(r.UID())
			}
			return
		}
		d.mu.Lock()
		if d.byCharacter[characterUID] == inst {
			inst.roomUID = r.UID()
		}
		d.mu.Unlock()
	}, reservationGrace)
}

func (d *Director) handleRoomList(client tcp.ClientID, cmd protocol.LobbyRoomList) error {
	snap := d.rooms.Snapshot()
	filtered := snap[:0]
	for _, desc := range snap {
		if desc.GameMode == cmd.GameMode && desc.TeamMode == cmd.TeamMode {
			filtered = append(filtered, desc)
		}
	}

	start := int(cmd.Page) * roomsPerPage
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + roomsPerPage
	if end > len(filtered) {
		end = len(filtered)
	}

	entries := make([]protocol.RoomListEntry, 0, end-start)
	for _, desc := range filtered[start:end] {
		locked := uint8(0)
		if desc.HasPassword {
			locked = 1
		}
		started := uint8(0)
		if desc.Playing {
			started = 1
		}
		entries = append(entries, protocol.RoomListEntry{
			UID:            desc.UID,
			Name:           desc.Name,
			PlayerCount:    desc.PlayerCount,
			MaxPlayerCount: desc.MaxPlayers,
			IsLocked:       locked,
			MapBlockID:     desc.CourseID,
			HasStarted:     started,
		})
	}
	d.transport.Queue(client, protocol.LobbyRoomListOK{
		Page:     cmd.Page,
		GameMode: cmd.GameMode,
		TeamMode: cmd.TeamMode,
		Rooms:    entries,
	})
	return nil
}

func (d *Director) handleEnterRanch(client tcp.ClientID, cmd protocol.LobbyEnterRanch) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		d.transport.Queue(client, protocol.LobbyEnterRanchCancel{})
		return nil
	}
	rancherUID := cmd.RancherUID
	if rancherUID == 0 {
		rancherUID = inst.characterUID
	}
	if rancherUID != inst.characterUID {
		rec, ok := d.data.Character(rancherUID)
		if !ok {
			d.data.RequestLoadCharacter(rancherUID)
			d.transport.Queue(client, protocol.LobbyEnterRanchCancel{})
			return nil
		}
		if rec.Value().RanchLocked {
			d.transport.Queue(client, protocol.LobbyEnterRanchCancel{})
			return nil
		}
	}

	code := d.otp.Grant(otp.IdentityHash(inst.characterUID))
	addr, port := d.ranchAddress()
	d.transport.Queue(client, protocol.LobbyEnterRanchOK{
		RancherUID:      rancherUID,
		OneTimePassword: code,
		RanchAddress:    addr,
		RanchPort:       port,
	})
	return nil
}

func (d *Director) handleEnterRanchRandomly(client tcp.ClientID, _ protocol.LobbyEnterRanchRandomly) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		d.transport.Queue(client, protocol.LobbyEnterRanchCancel{})
		return nil
	}

	d.mu.Lock()
	candidates := make([]uint32, 0, len(d.byCharacter))
	for uid, other := range d.byCharacter {
		if uid == inst.characterUID || other.characterUID == 0 {
			continue
		}
		if rec, ok := d.data.Character(uid); ok && !rec.Value().RanchLocked {
			candidates = append(candidates, uid)
		}
	}
	d.mu.Unlock()

	rancherUID := inst.characterUID
	if len(candidates) > 0 {
		rancherUID = candidates[rand.Intn(len(candidates))]
	}

	code := d.otp.Grant(otp.IdentityHash(inst.characterUID))
	addr, port := d.ranchAddress()
	d.transport.Queue(client, protocol.LobbyEnterRanchOK{
		RancherUID:      rancherUID,
		OneTimePassword: code,
		RanchAddress:    addr,
		RanchPort:       port,
	})
	return nil
}

func (d *Director) handleShowInventory(client tcp.ClientID, _ protocol.LobbyShowInventory) error {
	inst := d.instanceFor(client)
	msg := protocol.LobbyShowInventoryOK{}
	if inst != nil && inst.characterUID != 0 {
		if rec, ok := d.data.Character(inst.characterUID); ok {
			c := rec.Value()
			if horse, ok := d.data.Horse(c.HorseUID); ok {
				msg.Horses = append(msg.Horses, horse.Value().Horse)
			}
		}
	}
	d.transport.Queue(client, msg)
	return nil
}

func (d *Director) handleCheckWaitingSeqno(client tcp.ClientID, cmd protocol.LobbyCheckWaitingSeqno) error {
	d.transport.Queue(client, protocol.LobbyCheckWaitingSeqnoOK{
		UID:      cmd.UID,
		Position: d.queuePosition(client),
	})
	return nil
}

func (d *Director) handleGetMessengerInfo(client tcp.ClientID, _ protocol.LobbyGetMessengerInfo) error {
	d.transport.Queue(client, protocol.LobbyGetMessengerInfoOK{})
	return nil
}

func (d *Director) handleAchievementCompleteList(client tcp.ClientID, cmd protocol.LobbyAchievementCompleteList) error {
	d.transport.Queue(client, protocol.LobbyAchievementCompleteListOK{Unk0: cmd.Unk0})
	return nil
}

func (d *Director) handleRequestQuestList(client tcp.ClientID, cmd protocol.LobbyRequestQuestList) error {
	d.transport.Queue(client, protocol.LobbyRequestQuestListOK{UID: cmd.UID})
	return nil
}

func (d *Director) handleRequestDailyQuestList(client tcp.ClientID, cmd protocol.LobbyRequestDailyQuestList) error {
	d.transport.Queue(client, protocol.LobbyRequestDailyQuestListOK{UID: cmd.UID})
	return nil
}

func (d *Director) handleRequestSpecialEventList(client tcp.ClientID, cmd protocol.LobbyRequestSpecialEventList) error {
	d.transport.Queue(client, protocol.LobbyRequestSpecialEventListOK{Unk0: cmd.Unk0})
	return nil
}

func (d *Director) handleRequestLeagueInfo(client tcp.ClientID, _ protocol.LobbyRequestLeagueInfo) error {
	d.transport.Queue(client, protocol.LobbyRequestLeagueInfoOK{})
	return nil
}

func (d *Director) handleEnterChannel(client tcp.ClientID, cmd protocol.LobbyEnterChannel) error {
	d.transport.Queue(client, protocol.LobbyEnterChannelOK{Unk0: cmd.Channel})
	return nil
}

func (d *Director) handleLeaveChannel(client tcp.ClientID, _ protocol.LobbyLeaveChannel) error {
	d.transport.Queue(client, protocol.LobbyLeaveChannelOK{})
	return nil
}

func (d *Director) handleHeartbeat(tcp.ClientID, protocol.LobbyHeartbeat) error { return nil }

func (d *Director) handleInquiryTreecash(client tcp.ClientID, _ protocol.LobbyInquiryTreecash) error {
	d.transport.Queue(client, protocol.LobbyInquiryTreecashOK{})
	return nil
}

func (d *Director) handleClientNotify(client tcp.ClientID, cmd protocol.LobbyClientNotify) error {
	if cmd.Val0 != 1 {
		d.log.Printf("client %d scene transition failed: code %d retries %d", client, cmd.Val0, cmd.Val1)
	}
	return nil
}

func (d *Director) handleRequestPersonalInfo(client tcp.ClientID, cmd protocol.LobbyRequestPersonalInfo) error {
	msg := protocol.LobbyPersonalInfo{CharacterUID: cmd.CharacterUID, Type: cmd.Type}
	if rec, ok := d.data.Character(cmd.CharacterUID); ok {
		c := rec.Value()
		msg.Basic.Introduction = c.Introduction
		msg.Basic.Level = uint32(c.Level)
		if c.GuildUID != 0 {
			if g, ok := d.data.Guild(c.GuildUID); ok {
				msg.Basic.GuildName = g.Name
			}
		}
	}
	d.transport.Queue(client, msg)
	return nil
}

func (d *Director) handleSetIntroduction(client tcp.ClientID, cmd protocol.LobbySetIntroduction) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		return nil
	}
	if rec, ok := d.data.Character(inst.characterUID); ok {
		rec.Mutable(func(c *data.Character) { c.Introduction = cmd.Introduction })
		d.data.PersistCharacter(inst.characterUID)
	}
	return nil
}

func (d *Director) handleUpdateSystemContent(client tcp.ClientID, cmd protocol.LobbyUpdateSystemContent) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		return nil
	}
	rec, ok := d.data.Character(inst.characterUID)
	if !ok {
		return nil
	}
	var entries []protocol.SystemContentEntry
	rec.Mutable(func(c *data.Character) {
		if c.SystemContent == nil {
			c.SystemContent = make(map[uint32]uint32)
		}
		c.SystemContent[cmd.Key] = cmd.Value
		entries = systemContentEntries(c.SystemContent)
	})
	d.data.PersistCharacter(inst.characterUID)
	d.transport.Queue(client, protocol.LobbySystemContentNotify{SystemContent: entries})
	return nil
}

func (d *Director) handleQueryServerTime(client tcp.ClientID, _ protocol.LobbyQueryServerTime) error {
	d.transport.Queue(client, protocol.LobbyQueryServerTimeOK{LobbyTime: protocol.WinFileTime(d.clock())})
	return nil
}

func (d *Director) handleUpdateUserSettings(client tcp.ClientID, cmd protocol.LobbyUpdateUserSettings) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		return nil
	}
	if rec, ok := d.data.Character(inst.characterUID); ok {
		rec.Mutable(func(c *data.Character) { c.Settings = cmd.Settings })
		d.data.PersistCharacter(inst.characterUID)
	}
	return nil
}

func (d *Director) handleChangeRanchOption(client tcp.ClientID, cmd protocol.LobbyChangeRanchOption) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		return nil
	}
	if rec, ok := d.data.Character(inst.characterUID); ok {
		rec.Mutable(func(c *data.Character) { c.RanchLocked = cmd.Option != 0 })
		d.data.PersistCharacter(inst.characterUID)
	}
	d.transport.Queue(client, protocol.LobbyChangeRanchOptionOK{Option: cmd.Option})
	return nil
}

func (d *Director) handleRequestMountInfo(client tcp.ClientID, cmd protocol.LobbyRequestMountInfo) error {
	msg := protocol.LobbyRequestMountInfoOK{HorseUID: cmd.HorseUID}
	if rec, ok := d.data.Horse(cmd.HorseUID); ok {
		msg.Mastery = rec.Value().Horse.Mastery
	}
	d.transport.Queue(client, msg)
	return nil
}

func (d *Director) handleGuildInviteReply(client tcp.ClientID, cmd protocol.LobbyGuildInviteReply) error {
	inst := d.instanceFor(client)
	if inst == nil || inst.characterUID == 0 {
		return nil
	}
	d.mu.Lock()
	pending, ok := d.invites[inst.characterUID]
	if ok && pending == cmd.GuildUID {
		delete(d.invites, inst.characterUID)
	} else {
		ok = false
	}
	d.mu.Unlock()
	if !ok || cmd.Accepted == 0 {
		return nil
	}
	if rec, found := d.data.Character(inst.characterUID); found {
		rec.Mutable(func(c *data.Character) { c.GuildUID = cmd.GuildUID })
		d.data.PersistCharacter(inst.characterUID)
	}
	return nil
}

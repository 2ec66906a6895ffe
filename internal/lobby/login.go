package lobby

import (
	"bytes"
	"context"
	"math/rand"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"gallop.gg/internal/data"
	"gallop.gg/internal/locale"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/transport/tcp"
)

// loginMissions are the tutorial missions unlocked for every account.
var loginMissions = []uint16{0x18, 0x1F, 0x23, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F}

// Starter character and mount values.
const (
	starterHorseTID     = 20002
	starterHorseStamina = 3500
	starterHorseGrowth  = 150
	starterLevel        = 60
	starterCarrots      = 10000
	nicknameMaxBytes    = 16
)

func (d *Director) handleLogin(client tcp.ClientID, cmd protocol.LobbyLogin) error {
	if cmd.Constant0 != protocol.LoginConstant0 || cmd.Constant1 != protocol.LoginConstant1 {
		d.transport.Queue(client, protocol.LobbyLoginCancel{Reason: protocol.LoginCancelInvalidVersion})
		return nil
	}
	if cmd.LoginID == "" || cmd.AuthKey == "" {
		d.transport.Queue(client, protocol.LobbyLoginCancel{Reason: protocol.LoginCancelInvalidLoginID})
		return nil
	}

	d.mu.Lock()
	if _, online := d.instances[cmd.LoginID]; online {
		d.mu.Unlock()
		d.transport.Queue(client, protocol.LobbyLoginCancel{Reason: protocol.LoginCancelDuplicated})
		return nil
	}
	d.logins[client] = &pendingLogin{userName: cmd.LoginID, token: cmd.AuthKey}
	d.requestQueue = append(d.requestQueue, client)
	d.mu.Unlock()

	d.data.RequestLoadUser(cmd.LoginID)
	return nil
}

// sendLoginOKLocked builds and queues the login payload, rotates the
// outbound scrambler and pushes the skill presets. Caller holds d.mu.
func (d *Director) sendLoginOKLocked(inst *instance) {
	charRec, ok := d.data.Character(inst.characterUID)
	if !ok {
		d.transport.Queue(inst.client, protocol.LobbyLoginCancel{Reason: protocol.LoginCancelGeneric})
		return
	}
	c := charRec.Value()

	var mount protocol.Horse
	if rec, ok := d.data.Horse(c.HorseUID); ok {
		mount = rec.Value().Horse
	}

	missions := make([]protocol.Mission, 0, len(loginMissions))
	for _, id := range loginMissions {
		missions = append(missions, protocol.Mission{ID: id})
	}

	notice := strings.ReplaceAll(d.cfg.Notice, "{players_online}", strconv.Itoa(len(d.instances)))

	msg := protocol.LobbyLoginOK{
		LobbyTime:          protocol.WinFileTime(d.clock()),
		UID:                c.UID,
		Name:               c.Name,
		Motd:               notice,
		Gender:             c.Gender,
		Introduction:       c.Introduction,
		Level:              c.Level,
		Carrots:            c.Carrots,
		Role:               protocol.Role(c.Role),
		Settings:           c.Settings,
		Missions:           missions,
		RanchAddress:       protocol.EncodeAddress(d.cfg.Ranch.AdvertiseHost),
		RanchPort:          d.cfg.Ranch.AdvertisePort,
		ScramblingConstant: 0,
		Character:          protocol.Character{Parts: c.Parts, Appearance: c.Appearance},
		Horse:              mount,
		SystemContent:      systemContentEntries(c.SystemContent),
		Pet:                c.Pet,
	}
	if c.HasPlayedBefore {
		msg.Bitfield |= protocol.AvatarHasPlayedBefore
	}
	if c.GuildUID != 0 {
		if g, ok := d.data.Guild(c.GuildUID); ok {
			msg.Guild = protocol.Guild{UID: g.UID, Name: g.Name}
		}
	}

	d.transport.Queue(inst.client, msg)
	d.transport.SetCode(inst.client, scramblerKeyFor(msg.ScramblingConstant))
	d.transport.Queue(inst.client, protocol.LobbySkillCardPresetList{
		Speed: c.SkillPresets[uint8(protocol.GameModeSpeed)],
		Magic: c.SkillPresets[uint8(protocol.GameModeMagic)],
	})
}

// scramblerKeyFor folds the advertised scrambling constant into the
// initial key; constant zero keeps the initial key.
func scramblerKeyFor(constant uint32) [4]byte {
	key := protocol.InitialScramblerKey
	key[0] ^= byte(constant)
	key[1] ^= byte(constant >> 8)
	key[2] ^= byte(constant >> 16)
	key[3] ^= byte(constant >> 24)
	return key
}

func systemContentEntries(m map[uint32]uint32) []protocol.SystemContentEntry {
	out := make([]protocol.SystemContentEntry, 0, len(m))
	for k, v := range m {
		out = append(out, protocol.SystemContentEntry{Key: k, Value: v})
	}
	return out
}

func (d *Director) handleCreateNickname(client tcp.ClientID, cmd protocol.LobbyCreateNickname) error {
	d.mu.Lock()
	inst := d.byClient[client]
	_, creating := d.creators[client]
	d.mu.Unlock()
	if inst == nil || !creating {
		d.transport.Queue(client, protocol.LobbyCreateNicknameCancel{Error: 1})
		return nil
	}
	if !locale.IsNameValid(cmd.Nickname, nicknameMaxBytes) {
		d.transport.Queue(client, protocol.LobbyCreateNicknameCancel{Error: 1})
		return nil
	}

	// Forced back through the creator: re-customize the existing
	// character instead of creating one.
	if inst.characterUID != 0 {
		rec, ok := d.data.Character(inst.characterUID)
		if !ok {
			d.transport.Queue(client, protocol.LobbyCreateNicknameCancel{Error: 1})
			return nil
		}
		rec.Mutable(func(c *data.Character) {
			c.Name = cmd.Nickname
			c.Parts = cmd.Character.Parts
			c.Appearance = cmd.Character.Appearance
		})
		d.data.PersistCharacter(inst.characterUID)
		d.mu.Lock()
		delete(d.creators, client)
		d.sendLoginOKLocked(inst)
		d.mu.Unlock()
		return nil
	}

	parts := d.reg.HorseParts
	mount := protocol.Horse{
		TID:  starterHorseTID,
		Name: "",
		Parts: protocol.HorseParts{
			SkinID: pick(parts.SkinIDs),
			ManeID: pick(parts.ManeIDs),
			TailID: pick(parts.TailIDs),
			FaceID: pick(parts.FaceIDs),
		},
		Appearance:   protocol.HorseAppearance{Scale: 4, LegLength: 4, LegVolume: 4, BodyLength: 4, BodyVolume: 4},
		Stats:        protocol.HorseStats{Agility: 9, Control: 9, Speed: 9, Strength: 9, Spirit: 9},
		GrowthPoints: starterHorseGrowth,
		Stamina:      starterHorseStamina,
	}
	created, err := d.data.CreateCharacter(context.Background(), data.Character{
		UserName:   inst.userName,
		Name:       cmd.Nickname,
		Level:      starterLevel,
		Carrots:    starterCarrots,
		Parts:      cmd.Character.Parts,
		Appearance: cmd.Character.Appearance,
	}, mount)
	if err != nil {
		d.log.Printf("create character for %q: %v", inst.userName, err)
		d.transport.Queue(client, protocol.LobbyCreateNicknameCancel{Error: 1})
		return nil
	}

	d.mu.Lock()
	delete(d.creators, client)
	inst.characterUID = created.UID
	d.byCharacter[created.UID] = inst
	d.sendLoginOKLocked(inst)
	d.mu.Unlock()
	return nil
}

func pick(pool []uint8) uint8 {
	if len(pool) == 0 {
		return 1
	}
	return pool[rand.Intn(len(pool))]
}

// goodsShopCatalog is the zlib-compressed shop XML handed out verbatim to
// every client that opens the shop.
var goodsShopCatalog = compressCatalog(`<?xml version="1.0" encoding="utf-8"?><GoodsShopList><Category id="1" name="featured"/></GoodsShopList>`)

func compressCatalog(xml string) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write([]byte(xml))
	_ = zw.Close()
	return buf.Bytes()
}

func (d *Director) handleGoodsShopList(client tcp.ClientID, cmd protocol.LobbyGoodsShopList) error {
	d.transport.Queue(client, protocol.LobbyGoodsShopListOK{Data: cmd.Data})
	d.transport.Queue(client, protocol.LobbyGoodsShopListData{
		Member1: cmd.Data,
		Data:    goodsShopCatalog,
	})
	return nil
}

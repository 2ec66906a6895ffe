package protocol

import "net"

// EncodeAddress converts a dotted IPv4 advertised address to the network
// byte order word the client expects in endpoint fields. Unresolvable
// addresses encode as loopback.
func EncodeAddress(host string) uint32 {
	ip := net.ParseIP(host)
	if ip == nil {
		if ips, err := net.LookupIP(host); err == nil && len(ips) > 0 {
			ip = ips[0]
		}
	}
	ip4 := ip.To4()
	if ip4 == nil {
		ip4 = net.IPv4(127, 0, 0, 1).To4()
	}
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}

// LobbyLoginCancel reasons.
type LoginCancelReason uint8

const (
	LoginCancelGeneric LoginCancelReason = iota
	LoginCancelInvalidUser
	LoginCancelDuplicated
	LoginCancelInvalidVersion
	LoginCancelInvalidEquipment
	LoginCancelInvalidLoginID
	LoginCancelDisconnectYourself
)

// LobbyEnterRoomCancel reasons, matching the client's room error table.
type RoomCancelReason uint8

const (
	RoomCancelNotLogin RoomCancelReason = 1 + iota
	RoomCancelNotInChannel
	RoomCancelBusyPrevious
	RoomCancelAlreadyRoom
	RoomCancelInvalidRoom
	RoomCancelCrowdedRoom
	RoomCancelVersionError
	RoomCancelLostRoom
	RoomCancelLostServer
	RoomCancelAuthError
	RoomCancelBadPassword
	RoomCancelPlayingRoom
)

// Version constants the retail client sends in its login frame.
const (
	LoginConstant0 = 50
	LoginConstant1 = 281
)

type LobbyLogin struct {
	Constant0 uint16
	Constant1 uint16
	LoginID   string
	MemberNo  uint32
	AuthKey   string
	Val0      uint8
}

func (LobbyLogin) ID() CommandID { return CmdLobbyLogin }

func (m *LobbyLogin) Decode(r *Reader) error {
	m.Constant0 = r.Uint16()
	m.Constant1 = r.Uint16()
	m.LoginID = r.String()
	m.MemberNo = r.Uint32()
	m.AuthKey = r.String()
	m.Val0 = r.Uint8()
	return r.Err()
}

func (m LobbyLogin) Encode(w *Writer) error {
	w.Uint16(m.Constant0)
	w.Uint16(m.Constant1)
	w.String(m.LoginID)
	w.Uint32(m.MemberNo)
	w.String(m.AuthKey)
	w.Uint8(m.Val0)
	return w.Err()
}

type SystemContentEntry struct {
	Key   uint32
	Value uint32
}

func encodeSystemContent(w *Writer, entries []SystemContentEntry) {
	w.Uint8(uint8(len(entries)))
	for _, e := range entries {
		w.Uint32(e.Key)
		w.Uint32(e.Value)
	}
}

type MissionProgress struct {
	ID    uint32
	Value uint32
}

type Mission struct {
	ID       uint16
	Progress []MissionProgress
}

// Avatar bitfield flags in the login payload.
const AvatarHasPlayedBefore uint32 = 2

type LobbyLoginOK struct {
	LobbyTime          uint64
	MemberNo           uint32
	UID                uint32
	Name               string
	Motd               string
	Gender             uint8
	Introduction       string
	CharacterEquipment []Item
	MountEquipment     []Item
	Level              uint16
	Carrots            int32
	Role               Role
	Settings           Settings
	Missions           []Mission
	RanchAddress       uint32
	RanchPort          uint16
	ScramblingConstant uint32
	Character          Character
	Horse              Horse
	SystemContent      []SystemContentEntry
	Bitfield           uint32
	Guild              Guild
	Pet                Pet
}

func (LobbyLoginOK) ID() CommandID { return CmdLobbyLoginOK }

func (m LobbyLoginOK) Encode(w *Writer) error {
	w.Uint64(m.LobbyTime)
	w.Uint32(m.MemberNo)
	w.Uint32(m.UID)
	w.String(m.Name)
	w.String(m.Motd)
	w.Uint8(m.Gender)
	w.String(m.Introduction)
	encodeItems(w, m.CharacterEquipment)
	encodeItems(w, m.MountEquipment)
	w.Uint16(m.Level)
	w.Int32(m.Carrots)
	w.Uint32(uint32(m.Role))
	m.Settings.Encode(w)
	w.Uint8(uint8(len(m.Missions)))
	for _, mi := range m.Missions {
		w.Uint16(mi.ID)
		w.Uint8(uint8(len(mi.Progress)))
		for _, p := range mi.Progress {
			w.Uint32(p.ID)
			w.Uint32(p.Value)
		}
	}
	w.Uint32(m.RanchAddress)
	w.Uint16(m.RanchPort)
	w.Uint32(m.ScramblingConstant)
	m.Character.Encode(w)
	m.Horse.Encode(w)
	encodeSystemContent(w, m.SystemContent)
	w.Uint32(m.Bitfield)
	m.Guild.Encode(w)
	m.Pet.Encode(w)
	return w.Err()
}

type LobbyLoginCancel struct {
	Reason LoginCancelReason
}

func (LobbyLoginCancel) ID() CommandID { return CmdLobbyLoginCancel }

func (m LobbyLoginCancel) Encode(w *Writer) error {
	w.Uint8(uint8(m.Reason))
	return w.Err()
}

type LobbyShowInventory struct{}

func (LobbyShowInventory) ID() CommandID          { return CmdLobbyShowInventory }
func (m *LobbyShowInventory) Decode(r *Reader) error { return r.Err() }

type LobbyShowInventoryOK struct {
	Items  []Item
	Horses []Horse
}

func (LobbyShowInventoryOK) ID() CommandID { return CmdLobbyShowInventoryOK }

func (m LobbyShowInventoryOK) Encode(w *Writer) error {
	encodeItems(w, m.Items)
	w.Uint8(uint8(len(m.Horses)))
	for _, h := range m.Horses {
		h.Encode(w)
	}
	return w.Err()
}

// LobbyCreateNicknameNotify tells the client to open the character
// creator. Empty payload.
type LobbyCreateNicknameNotify struct{}

func (LobbyCreateNicknameNotify) ID() CommandID        { return CmdLobbyCreateNicknameNotify }
func (m LobbyCreateNicknameNotify) Encode(w *Writer) error { return w.Err() }

type LobbyCreateNickname struct {
	Nickname  string
	Character Character
	Unk0      uint32
}

func (LobbyCreateNickname) ID() CommandID { return CmdLobbyCreateNickname }

func (m *LobbyCreateNickname) Decode(r *Reader) error {
	m.Nickname = r.String()
	m.Character.Decode(r)
	m.Unk0 = r.Uint32()
	return r.Err()
}

type LobbyCreateNicknameCancel struct {
	Error uint8
}

func (LobbyCreateNicknameCancel) ID() CommandID { return CmdLobbyCreateNicknameCancel }

func (m LobbyCreateNicknameCancel) Encode(w *Writer) error {
	w.Uint8(m.Error)
	return w.Err()
}

type LobbyRoomList struct {
	Page     uint8
	GameMode GameMode
	TeamMode TeamMode
}

func (LobbyRoomList) ID() CommandID { return CmdLobbyRoomList }

func (m *LobbyRoomList) Decode(r *Reader) error {
	m.Page = r.Uint8()
	m.GameMode = GameMode(r.Uint8())
	m.TeamMode = TeamMode(r.Uint8())
	return r.Err()
}

type RoomListEntry struct {
	UID            uint32
	Name           string
	PlayerCount    uint8
	MaxPlayerCount uint8
	IsLocked       uint8
	MapBlockID     uint16
	HasStarted     uint8
	SkillBracket   uint8
}

type LobbyRoomListOK struct {
	Page     uint8
	GameMode GameMode
	TeamMode TeamMode
	Rooms    []RoomListEntry
}

func (LobbyRoomListOK) ID() CommandID { return CmdLobbyRoomListOK }

func (m LobbyRoomListOK) Encode(w *Writer) error {
	w.Uint8(m.Page)
	w.Uint8(uint8(m.GameMode))
	w.Uint8(uint8(m.TeamMode))
	w.Uint8(uint8(len(m.Rooms)))
	for _, rm := range m.Rooms {
		w.Uint32(rm.UID)
		w.String(rm.Name)
		w.Uint8(rm.PlayerCount)
		w.Uint8(rm.MaxPlayerCount)
		w.Uint8(rm.IsLocked)
		w.Uint16(rm.MapBlockID)
		w.Uint8(rm.HasStarted)
		w.Uint8(rm.SkillBracket)
	}
	return w.Err()
}

type LobbyMakeRoom struct {
	Name        string
	Password    string
	PlayerCount uint8
	GameMode    GameMode
	TeamMode    TeamMode
	MissionID   uint16
	Unk3        uint8
	Bitset      uint16
	Unk4        uint8
}

func (LobbyMakeRoom) ID() CommandID { return CmdLobbyMakeRoom }

func (m *LobbyMakeRoom) Decode(r *Reader) error {
	m.Name = r.String()
	m.Password = r.String()
	m.PlayerCount = r.Uint8()
	m.GameMode = GameMode(r.Uint8())
	m.TeamMode = TeamMode(r.Uint8())
	m.MissionID = r.Uint16()
	m.Unk3 = r.Uint8()
	m.Bitset = r.Uint16()
	m.Unk4 = r.Uint8()
	return r.Err()
}

func (m LobbyMakeRoom) Encode(w *Writer) error {
	w.String(m.Name)
	w.String(m.Password)
	w.Uint8(m.PlayerCount)
	w.Uint8(uint8(m.GameMode))
	w.Uint8(uint8(m.TeamMode))
	w.Uint16(m.MissionID)
	w.Uint8(m.Unk3)
	w.Uint16(m.Bitset)
	w.Uint8(m.Unk4)
	return w.Err()
}

type LobbyMakeRoomOK struct {
	RoomUID           uint32
	OneTimePassword   uint32
	RaceServerAddress uint32
	RaceServerPort    uint16
	Unk2              uint8
}

func (LobbyMakeRoomOK) ID() CommandID { return CmdLobbyMakeRoomOK }

func (m LobbyMakeRoomOK) Encode(w *Writer) error {
	w.Uint32(m.RoomUID)
	w.Uint32(m.OneTimePassword)
	w.Uint32(m.RaceServerAddress)
	w.Uint16(m.RaceServerPort)
	w.Uint8(m.Unk2)
	return w.Err()
}

type LobbyMakeRoomCancel struct {
	Unk0 uint8
}

func (LobbyMakeRoomCancel) ID() CommandID { return CmdLobbyMakeRoomCancel }

func (m LobbyMakeRoomCancel) Encode(w *Writer) error {
	w.Uint8(m.Unk0)
	return w.Err()
}

type LobbyEnterRoom struct {
	RoomUID  uint32
	Password string
	Member3  uint32
}

func (LobbyEnterRoom) ID() CommandID { return CmdLobbyEnterRoom }

func (m *LobbyEnterRoom) Decode(r *Reader) error {
	m.RoomUID = r.Uint32()
	m.Password = r.String()
	m.Member3 = r.Uint32()
	return r.Err()
}

type LobbyEnterRoomOK struct {
	RoomUID           uint32
	OneTimePassword   uint32
	RaceServerAddress uint32
	RaceServerPort    uint16
	Member6           uint8
}

func (LobbyEnterRoomOK) ID() CommandID { return CmdLobbyEnterRoomOK }

func (m LobbyEnterRoomOK) Encode(w *Writer) error {
	w.Uint32(m.RoomUID)
	w.Uint32(m.OneTimePassword)
	w.Uint32(m.RaceServerAddress)
	w.Uint16(m.RaceServerPort)
	w.Uint8(m.Member6)
	return w.Err()
}

type LobbyEnterRoomCancel struct {
	Status RoomCancelReason
}

func (LobbyEnterRoomCancel) ID() CommandID { return CmdLobbyEnterRoomCancel }

func (m LobbyEnterRoomCancel) Encode(w *Writer) error {
	w.Uint8(uint8(m.Status))
	return w.Err()
}

type LobbyEnterRanch struct {
	RancherUID uint32
	Unk1       string
	Unk2       uint8
}

func (LobbyEnterRanch) ID() CommandID { return CmdLobbyEnterRanch }

func (m *LobbyEnterRanch) Decode(r *Reader) error {
	m.RancherUID = r.Uint32()
	m.Unk1 = r.String()
	m.Unk2 = r.Uint8()
	return r.Err()
}

type LobbyEnterRanchOK struct {
	RancherUID      uint32
	OneTimePassword uint32
	RanchAddress    uint32
	RanchPort       uint16
}

func (LobbyEnterRanchOK) ID() CommandID { return CmdLobbyEnterRanchOK }

func (m LobbyEnterRanchOK) Encode(w *Writer) error {
	w.Uint32(m.RancherUID)
	w.Uint32(m.OneTimePassword)
	w.Uint32(m.RanchAddress)
	w.Uint16(m.RanchPort)
	return w.Err()
}

type LobbyEnterRanchCancel struct {
	Unk0 uint16
}

func (LobbyEnterRanchCancel) ID() CommandID { return CmdLobbyEnterRanchCancel }

func (m LobbyEnterRanchCancel) Encode(w *Writer) error {
	w.Uint16(m.Unk0)
	return w.Err()
}

type LobbyEnterRanchRandomly struct{}

func (LobbyEnterRanchRandomly) ID() CommandID          { return CmdLobbyEnterRanchRandomly }
func (m *LobbyEnterRanchRandomly) Decode(r *Reader) error { return r.Err() }

type LobbyGetMessengerInfo struct{}

func (LobbyGetMessengerInfo) ID() CommandID          { return CmdLobbyGetMessengerInfo }
func (m *LobbyGetMessengerInfo) Decode(r *Reader) error { return r.Err() }

type LobbyGetMessengerInfoOK struct {
	Code uint32
	IP   uint32
	Port uint16
}

func (LobbyGetMessengerInfoOK) ID() CommandID { return CmdLobbyGetMessengerInfoOK }

func (m LobbyGetMessengerInfoOK) Encode(w *Writer) error {
	w.Uint32(m.Code)
	w.Uint32(m.IP)
	w.Uint16(m.Port)
	return w.Err()
}

type LobbyCheckWaitingSeqno struct {
	UID uint32
}

func (LobbyCheckWaitingSeqno) ID() CommandID { return CmdLobbyCheckWaitingSeqno }

func (m *LobbyCheckWaitingSeqno) Decode(r *Reader) error {
	m.UID = r.Uint32()
	return r.Err()
}

type LobbyCheckWaitingSeqnoOK struct {
	UID      uint32
	Position uint32
}

func (LobbyCheckWaitingSeqnoOK) ID() CommandID { return CmdLobbyCheckWaitingSeqnoOK }

func (m LobbyCheckWaitingSeqnoOK) Encode(w *Writer) error {
	w.Uint32(m.UID)
	w.Uint32(m.Position)
	return w.Err()
}

type LobbyAchievementCompleteList struct {
	Unk0 uint32
}

func (LobbyAchievementCompleteList) ID() CommandID { return CmdLobbyAchievementCompleteList }

func (m *LobbyAchievementCompleteList) Decode(r *Reader) error {
	m.Unk0 = r.Uint32()
	return r.Err()
}

type LobbyAchievementCompleteListOK struct {
	Unk0         uint32
	Achievements []Quest
}

func (LobbyAchievementCompleteListOK) ID() CommandID { return CmdLobbyAchievementCompleteListOK }

func (m LobbyAchievementCompleteListOK) Encode(w *Writer) error {
	w.Uint32(m.Unk0)
	encodeQuests(w, m.Achievements)
	return w.Err()
}

type LobbyRequestQuestList struct {
	UID uint32
}

func (LobbyRequestQuestList) ID() CommandID { return CmdLobbyRequestQuestList }

func (m *LobbyRequestQuestList) Decode(r *Reader) error {
	m.UID = r.Uint32()
	return r.Err()
}

type LobbyRequestQuestListOK struct {
	UID    uint32
	Quests []Quest
}

func (LobbyRequestQuestListOK) ID() CommandID { return CmdLobbyRequestQuestListOK }

func (m LobbyRequestQuestListOK) Encode(w *Writer) error {
	w.Uint32(m.UID)
	encodeQuests(w, m.Quests)
	return w.Err()
}

type LobbyRequestDailyQuestList struct {
	UID uint32
}

func (LobbyRequestDailyQuestList) ID() CommandID { return CmdLobbyRequestDailyQuestList }

func (m *LobbyRequestDailyQuestList) Decode(r *Reader) error {
	m.UID = r.Uint32()
	return r.Err()
}

type LobbyRequestDailyQuestListOK struct {
	UID    uint32
	Quests []Quest
}

func (LobbyRequestDailyQuestListOK) ID() CommandID { return CmdLobbyRequestDailyQuestListOK }

func (m LobbyRequestDailyQuestListOK) Encode(w *Writer) error {
	w.Uint32(m.UID)
	encodeQuests(w, m.Quests)
	// Trailing event block, always empty.
	w.Uint16(0)
	return w.Err()
}

type LobbyRequestSpecialEventList struct {
	Unk0 uint32
}

func (LobbyRequestSpecialEventList) ID() CommandID { return CmdLobbyRequestSpecialEventList }

func (m *LobbyRequestSpecialEventList) Decode(r *Reader) error {
	m.Unk0 = r.Uint32()
	return r.Err()
}

type SpecialEvent struct {
	Unk0 uint16
	Unk1 uint32
}

type LobbyRequestSpecialEventListOK struct {
	Unk0   uint32
	Quests []Quest
	Events []SpecialEvent
}

func (LobbyRequestSpecialEventListOK) ID() CommandID { return CmdLobbyRequestSpecialEventListOK }

func (m LobbyRequestSpecialEventListOK) Encode(w *Writer) error {
	w.Uint32(m.Unk0)
	encodeQuests(w, m.Quests)
	w.Uint16(uint16(len(m.Events)))
	for _, e := range m.Events {
		w.Uint16(e.Unk0)
		w.Uint32(e.Unk1)
	}
	return w.Err()
}

type LobbyRequestLeagueInfo struct{}

func (LobbyRequestLeagueInfo) ID() CommandID          { return CmdLobbyRequestLeagueInfo }
func (m *LobbyRequestLeagueInfo) Decode(r *Reader) error { return r.Err() }

type LobbyRequestLeagueInfoOK struct {
	Season           uint8
	League           uint8
	RankingPercentile uint8
	LeagueReward     uint8
	Place            uint32
	Rank             uint8
	ClaimedReward    uint8
}

func (LobbyRequestLeagueInfoOK) ID() CommandID { return CmdLobbyRequestLeagueInfoOK }

func (m LobbyRequestLeagueInfoOK) Encode(w *Writer) error {
	w.Uint8(m.Season)
	w.Uint8(m.League)
	w.Uint32(0)
	w.Uint32(0)
	w.Uint8(m.RankingPercentile)
	w.Uint8(0)
	w.Uint32(0)
	w.Uint32(0)
	w.Uint8(0)
	w.Uint8(m.LeagueReward)
	w.Uint32(m.Place)
	w.Uint8(m.Rank)
	w.Uint8(m.ClaimedReward)
	w.Uint8(0)
	return w.Err()
}

type LobbyEnterChannel struct {
	Channel uint8
}

func (LobbyEnterChannel) ID() CommandID { return CmdLobbyEnterChannel }

func (m *LobbyEnterChannel) Decode(r *Reader) error {
	m.Channel = r.Uint8()
	return r.Err()
}

type LobbyEnterChannelOK struct {
	Unk0 uint8
	Unk1 uint16
}

func (LobbyEnterChannelOK) ID() CommandID { return CmdLobbyEnterChannelOK }

func (m LobbyEnterChannelOK) Encode(w *Writer) error {
	w.Uint8(m.Unk0)
	w.Uint16(m.Unk1)
	return w.Err()
}

type LobbyLeaveChannel struct{}

func (LobbyLeaveChannel) ID() CommandID          { return CmdLobbyLeaveChannel }
func (m *LobbyLeaveChannel) Decode(r *Reader) error { return r.Err() }

type LobbyLeaveChannelOK struct{}

func (LobbyLeaveChannelOK) ID() CommandID        { return CmdLobbyLeaveChannelOK }
func (m LobbyLeaveChannelOK) Encode(w *Writer) error { return w.Err() }

type LobbyHeartbeat struct{}

func (LobbyHeartbeat) ID() CommandID          { return CmdLobbyHeartbeat }
func (m *LobbyHeartbeat) Decode(r *Reader) error { return r.Err() }

type LobbyGoodsShopList struct {
	Data [12]byte
}

func (LobbyGoodsShopList) ID() CommandID { return CmdLobbyGoodsShopList }

func (m *LobbyGoodsShopList) Decode(r *Reader) error {
	copy(m.Data[:], r.Bytes(12))
	return r.Err()
}

type LobbyGoodsShopListOK struct {
	Data [12]byte
}

func (LobbyGoodsShopListOK) ID() CommandID { return CmdLobbyGoodsShopListOK }

func (m LobbyGoodsShopListOK) Encode(w *Writer) error {
	w.Raw(m.Data[:])
	return w.Err()
}

// LobbyGoodsShopListData carries the zlib-compressed shop catalog XML.
type LobbyGoodsShopListData struct {
	Member1 [12]byte
	Member2 uint8
	Member3 uint8
	Data    []byte
}

func (LobbyGoodsShopListData) ID() CommandID { return CmdLobbyGoodsShopListData }

func (m LobbyGoodsShopListData) Encode(w *Writer) error {
	w.Raw(m.Member1[:])
	w.Uint8(m.Member2)
	w.Uint8(m.Member3)
	w.Uint16(uint16(len(m.Data)))
	w.Raw(m.Data)
	return w.Err()
}

type LobbyInquiryTreecash struct{}

func (LobbyInquiryTreecash) ID() CommandID          { return CmdLobbyInquiryTreecash }
func (m *LobbyInquiryTreecash) Decode(r *Reader) error { return r.Err() }

type LobbyInquiryTreecashOK struct {
	Cash uint32
}

func (LobbyInquiryTreecashOK) ID() CommandID { return CmdLobbyInquiryTreecashOK }

func (m LobbyInquiryTreecashOK) Encode(w *Writer) error {
	w.Uint32(m.Cash)
	return w.Err()
}

// LobbyClientNotify reports scene transitions; Val0 1 is success, higher
// values are cancel retries with the retry count in Val1.
type LobbyClientNotify struct {
	Val0 uint16
	Val1 uint32
}

func (LobbyClientNotify) ID() CommandID { return CmdLobbyClientNotify }

func (m *LobbyClientNotify) Decode(r *Reader) error {
	m.Val0 = r.Uint16()
	m.Val1 = r.Uint32()
	return r.Err()
}

type PersonalInfoType uint32

const (
	PersonalInfoBasic   PersonalInfoType = 6
	PersonalInfoCourses PersonalInfoType = 7
	PersonalInfoEight   PersonalInfoType = 8
)

type LobbyRequestPersonalInfo struct {
	CharacterUID uint32
	Type         PersonalInfoType
}

func (LobbyRequestPersonalInfo) ID() CommandID { return CmdLobbyRequestPersonalInfo }

func (m *LobbyRequestPersonalInfo) Decode(r *Reader) error {
	m.CharacterUID = r.Uint32()
	m.Type = PersonalInfoType(r.Uint32())
	return r.Err()
}

type PersonalInfoBasicBlock struct {
	DistanceTravelled uint32
	TopSpeed          uint32
	SpeedSingleWins   uint16
	SpeedTeamWins     uint16
	MagicSingleWins   uint16
	MagicTeamWins     uint16
	Introduction      string
	Level             uint32
	GuildName         string
}

type PersonalCourseRecord struct {
	CourseID   uint16
	RecordTime uint32
	TimesRaced uint32
}

type LobbyPersonalInfo struct {
	CharacterUID uint32
	Type         PersonalInfoType

	Basic   PersonalInfoBasicBlock
	Courses []PersonalCourseRecord
}

func (LobbyPersonalInfo) ID() CommandID { return CmdLobbyPersonalInfo }

func (m LobbyPersonalInfo) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	w.Uint32(uint32(m.Type))
	switch m.Type {
	case PersonalInfoBasic:
		b := m.Basic
		w.Uint32(b.DistanceTravelled)
		w.Uint32(b.TopSpeed)
		w.Uint16(b.SpeedSingleWins)
		w.Uint16(b.SpeedTeamWins)
		w.Uint16(b.MagicSingleWins)
		w.Uint16(b.MagicTeamWins)
		w.String(b.Introduction)
		w.Uint32(b.Level)
		w.String(b.GuildName)
	case PersonalInfoCourses:
		w.Uint8(uint8(len(m.Courses)))
		for _, c := range m.Courses {
			w.Uint16(c.CourseID)
			w.Uint32(c.RecordTime)
			w.Uint32(c.TimesRaced)
		}
	case PersonalInfoEight:
		w.Uint8(0)
	}
	return w.Err()
}

type LobbySetIntroduction struct {
	Introduction string
}

func (LobbySetIntroduction) ID() CommandID { return CmdLobbySetIntroduction }

func (m *LobbySetIntroduction) Decode(r *Reader) error {
	m.Introduction = r.String()
	return r.Err()
}

type LobbyUpdateSystemContent struct {
	Member1 uint8
	Key     uint32
	Value   uint32
}

func (LobbyUpdateSystemContent) ID() CommandID { return CmdLobbyUpdateSystemContent }

func (m *LobbyUpdateSystemContent) Decode(r *Reader) error {
	m.Member1 = r.Uint8()
	m.Key = r.Uint32()
	m.Value = r.Uint32()
	return r.Err()
}

type LobbySystemContentNotify struct {
	SystemContent []SystemContentEntry
}

func (LobbySystemContentNotify) ID() CommandID { return CmdLobbySystemContentNotify }

func (m LobbySystemContentNotify) Encode(w *Writer) error {
	encodeSystemContent(w, m.SystemContent)
	return w.Err()
}

type LobbyQueryServerTime struct{}

func (LobbyQueryServerTime) ID() CommandID          { return CmdLobbyQueryServerTime }
func (m *LobbyQueryServerTime) Decode(r *Reader) error { return r.Err() }

type LobbyQueryServerTimeOK struct {
	LobbyTime uint64
}

func (LobbyQueryServerTimeOK) ID() CommandID { return CmdLobbyQueryServerTimeOK }

func (m LobbyQueryServerTimeOK) Encode(w *Writer) error {
	w.Uint64(m.LobbyTime)
	return w.Err()
}

type LobbyUpdateUserSettings struct {
	Settings Settings
}

func (LobbyUpdateUserSettings) ID() CommandID { return CmdLobbyUpdateUserSettings }

func (m *LobbyUpdateUserSettings) Decode(r *Reader) error {
	m.Settings.Decode(r)
	return r.Err()
}

type LobbyChangeRanchOption struct {
	Option uint8
}

func (LobbyChangeRanchOption) ID() CommandID { return CmdLobbyChangeRanchOption }

func (m *LobbyChangeRanchOption) Decode(r *Reader) error {
	m.Option = r.Uint8()
	return r.Err()
}

type LobbyChangeRanchOptionOK struct {
	Option uint8
}

func (LobbyChangeRanchOptionOK) ID() CommandID { return CmdLobbyChangeRanchOptionOK }

func (m LobbyChangeRanchOptionOK) Encode(w *Writer) error {
	w.Uint8(m.Option)
	return w.Err()
}

type LobbyRequestMountInfo struct {
	HorseUID uint32
}

func (LobbyRequestMountInfo) ID() CommandID { return CmdLobbyRequestMountInfo }

func (m *LobbyRequestMountInfo) Decode(r *Reader) error {
	m.HorseUID = r.Uint32()
	return r.Err()
}

type LobbyRequestMountInfoOK struct {
	HorseUID      uint32
	BoostsInARow  uint32
	TotalDistance uint32
	TopSpeed      uint32
	Mastery       HorseMastery
}

func (LobbyRequestMountInfoOK) ID() CommandID { return CmdLobbyRequestMountInfoOK }

func (m LobbyRequestMountInfoOK) Encode(w *Writer) error {
	w.Uint32(m.HorseUID)
	w.Uint32(m.BoostsInARow)
	w.Uint32(m.TotalDistance)
	w.Uint32(m.TopSpeed)
	m.Mastery.Encode(w)
	return w.Err()
}

// LobbySkillCardPresetList pushes the configured speed and magic skill
// presets after login.
type LobbySkillCardPresetList struct {
	Speed ModeSkills
	Magic ModeSkills
}

func (LobbySkillCardPresetList) ID() CommandID { return CmdLobbySkillCardPresetList }

func (m LobbySkillCardPresetList) Encode(w *Writer) error {
	m.Speed.Encode(w)
	m.Magic.Encode(w)
	return w.Err()
}

type LobbyGuildInvitation struct {
	GuildUID   uint32
	GuildName  string
	InviterUID uint32
}

func (LobbyGuildInvitation) ID() CommandID { return CmdLobbyGuildInvitation }

func (m LobbyGuildInvitation) Encode(w *Writer) error {
	w.Uint32(m.GuildUID)
	w.String(m.GuildName)
	w.Uint32(m.InviterUID)
	return w.Err()
}

type LobbyGuildInviteReply struct {
	GuildUID uint32
	Accepted uint8
}

func (LobbyGuildInviteReply) ID() CommandID { return CmdLobbyGuildInviteReply }

func (m *LobbyGuildInviteReply) Decode(r *Reader) error {
	m.GuildUID = r.Uint32()
	m.Accepted = r.Uint8()
	return r.Err()
}

// LobbyMessageNotify delivers operator notices.
type LobbyMessageNotify struct {
	Message string
}

func (LobbyMessageNotify) ID() CommandID { return CmdLobbyMessageNotify }

func (m LobbyMessageNotify) Encode(w *Writer) error {
	w.String(m.Message)
	return w.Err()
}

package protocol

// Magic item wire ids. The ice wall is spawned through the deck-102 item
// path as a workaround, so it has no dedicated spawn id.
const (
	MagicItemBolt    uint32 = 2
	MagicItemShield  uint32 = 4
	MagicItemIceWall uint32 = 10
)

// Hurdle clear verdicts reported by the client.
type HurdleResult uint8

const (
	HurdleCollision HurdleResult = iota
	HurdleGood
	HurdlePerfect
	HurdleDoubleJumpOrGlide
)

// RoomDescription is the room settings block in the race roster payload.
type RoomDescription struct {
	Name           string
	MaxPlayerCount uint8
	HasPassword    uint8
	GameMode       GameMode
	TeamMode       TeamMode
	MissionID      uint16
	CourseID       uint16
	NPCRace        uint8
}

func (d RoomDescription) Encode(w *Writer) {
	w.String(d.Name)
	w.Uint8(d.MaxPlayerCount)
	w.Uint8(d.HasPassword)
	w.Uint8(uint8(d.GameMode))
	w.Uint8(uint8(d.TeamMode))
	w.Uint16(d.MissionID)
	w.Uint16(d.CourseID)
	w.Uint8(d.NPCRace)
}

// RoomRacer is a roster entry in the race room payloads.
type RoomRacer struct {
	IsMaster  uint8
	OID       uint16
	UID       uint32
	Name      string
	IsReady   uint8
	Team      Team
	Level     uint16
	Character Character
	Equipment []Item
	Horse     Horse
	Guild     Guild
}

func (rr RoomRacer) Encode(w *Writer) {
	w.Uint8(rr.IsMaster)
	w.Uint16(rr.OID)
	w.Uint32(rr.UID)
	w.String(rr.Name)
	w.Uint8(rr.IsReady)
	w.Uint8(uint8(rr.Team))
	w.Uint16(rr.Level)
	rr.Character.Encode(w)
	encodeItems(w, rr.Equipment)
	rr.Horse.Encode(w)
	rr.Guild.Encode(w)
}

type RaceEnterRoom struct {
	OneTimePassword uint32
	CharacterUID    uint32
	RoomUID         uint32
}

func (RaceEnterRoom) ID() CommandID { return CmdRaceEnterRoom }

func (m *RaceEnterRoom) Decode(r *Reader) error {
	m.OneTimePassword = r.Uint32()
	m.CharacterUID = r.Uint32()
	m.RoomUID = r.Uint32()
	return r.Err()
}

func (m RaceEnterRoom) Encode(w *Writer) error {
	w.Uint32(m.OneTimePassword)
	w.Uint32(m.CharacterUID)
	w.Uint32(m.RoomUID)
	return w.Err()
}

type RaceEnterRoomOK struct {
	IsRoomWaiting uint8
	RoomUID       uint32
	Description   RoomDescription
	Racers        []RoomRacer
}

func (RaceEnterRoomOK) ID() CommandID { return CmdRaceEnterRoomOK }

func (m RaceEnterRoomOK) Encode(w *Writer) error {
	w.Uint8(m.IsRoomWaiting)
	w.Uint32(m.RoomUID)
	m.Description.Encode(w)
	w.Uint8(uint8(len(m.Racers)))
	for _, rr := range m.Racers {
		rr.Encode(w)
	}
	return w.Err()
}

type RaceEnterRoomCancel struct{}

func (RaceEnterRoomCancel) ID() CommandID        { return CmdRaceEnterRoomCancel }
func (m RaceEnterRoomCancel) Encode(w *Writer) error { return w.Err() }

type RaceEnterRoomNotify struct {
	Racer             RoomRacer
	AverageTimeRecord uint32
}

func (RaceEnterRoomNotify) ID() CommandID { return CmdRaceEnterRoomNotify }

func (m RaceEnterRoomNotify) Encode(w *Writer) error {
	m.Racer.Encode(w)
	w.Uint32(m.AverageTimeRecord)
	return w.Err()
}

// Room option selector bits for RaceChangeRoomOptions.
const (
	RoomOptionName uint16 = 1 << iota
	RoomOptionPlayerCount
	RoomOptionPassword
	RoomOptionGameMode
	RoomOptionMapBlockID
	RoomOptionNPCRace
)

type RaceChangeRoomOptions struct {
	Bitfield    uint16
	Name        string
	PlayerCount uint8
	Password    string
	GameMode    GameMode
	MapBlockID  uint16
	NPCRace     uint8
}

func (RaceChangeRoomOptions) ID() CommandID { return CmdRaceChangeRoomOptions }

func (m *RaceChangeRoomOptions) Decode(r *Reader) error {
	m.Bitfield = r.Uint16()
	m.Name = r.String()
	m.PlayerCount = r.Uint8()
	m.Password = r.String()
	m.GameMode = GameMode(r.Uint8())
	m.MapBlockID = r.Uint16()
	m.NPCRace = r.Uint8()
	return r.Err()
}

type RaceChangeRoomOptionsNotify struct {
	Bitfield    uint16
	Name        string
	PlayerCount uint8
	Password    string
	GameMode    GameMode
	MapBlockID  uint16
	NPCRace     uint8
}

func (RaceChangeRoomOptionsNotify) ID() CommandID { return CmdRaceChangeRoomOptionsNotify }

func (m RaceChangeRoomOptionsNotify) Encode(w *Writer) error {
	w.Uint16(m.Bitfield)
	w.String(m.Name)
	w.Uint8(m.PlayerCount)
	w.String(m.Password)
	w.Uint8(uint8(m.GameMode))
	w.Uint16(m.MapBlockID)
	w.Uint8(m.NPCRace)
	return w.Err()
}

type RaceChangeTeam struct {
	Team Team
}

func (RaceChangeTeam) ID() CommandID { return CmdRaceChangeTeam }

func (m *RaceChangeTeam) Decode(r *Reader) error {
	m.Team = Team(r.Uint8())
	return r.Err()
}

type RaceChangeTeamOK struct {
	CharacterUID uint32
	Team         Team
}

func (RaceChangeTeamOK) ID() CommandID { return CmdRaceChangeTeamOK }

func (m RaceChangeTeamOK) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	w.Uint8(uint8(m.Team))
	return w.Err()
}

type RaceChangeTeamNotify struct {
	CharacterUID uint32
	Team         Team
}

func (RaceChangeTeamNotify) ID() CommandID { return CmdRaceChangeTeamNotify }

func (m RaceChangeTeamNotify) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	w.Uint8(uint8(m.Team))
	return w.Err()
}

type RaceLeaveRoom struct{}

func (RaceLeaveRoom) ID() CommandID          { return CmdRaceLeaveRoom }
func (m *RaceLeaveRoom) Decode(r *Reader) error { return r.Err() }

type RaceLeaveRoomOK struct{}

func (RaceLeaveRoomOK) ID() CommandID        { return CmdRaceLeaveRoomOK }
func (m RaceLeaveRoomOK) Encode(w *Writer) error { return w.Err() }

type RaceLeaveRoomNotify struct {
	CharacterUID uint32
	Unk0         uint8
}

func (RaceLeaveRoomNotify) ID() CommandID { return CmdRaceLeaveRoomNotify }

func (m RaceLeaveRoomNotify) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	w.Uint8(m.Unk0)
	return w.Err()
}

type RaceReadyRace struct{}

func (RaceReadyRace) ID() CommandID          { return CmdRaceReadyRace }
func (m *RaceReadyRace) Decode(r *Reader) error { return r.Err() }

type RaceReadyRaceNotify struct {
	CharacterUID uint32
	IsReady      uint8
}

func (RaceReadyRaceNotify) ID() CommandID { return CmdRaceReadyRaceNotify }

func (m RaceReadyRaceNotify) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	w.Uint8(m.IsReady)
	return w.Err()
}

type RaceStartRace struct{}

func (RaceStartRace) ID() CommandID          { return CmdRaceStartRace }
func (m *RaceStartRace) Decode(r *Reader) error { return r.Err() }

type RaceRoomCountdown struct {
	CountdownMs uint32
	MapBlockID  uint16
}

func (RaceRoomCountdown) ID() CommandID { return CmdRaceRoomCountdown }

func (m RaceRoomCountdown) Encode(w *Writer) error {
	w.Uint32(m.CountdownMs)
	w.Uint16(m.MapBlockID)
	return w.Err()
}

type StartRacer struct {
	OID       uint16
	Name      string
	P2PID     uint16
	TeamColor uint8
}

type RacerSkills struct {
	OID        uint16
	ActiveSet  uint8
	Slot1      uint32
	Slot2      uint32
	BonusSkill uint32
}

type RaceStartRaceNotify struct {
	GameMode        GameMode
	TeamMode        TeamMode
	MapBlockID      uint16
	MissionID       uint16
	P2PRelayAddress uint32
	P2PRelayPort    uint16
	Racers          []StartRacer
	HostOID         uint16
	Skills          []RacerSkills
}

func (RaceStartRaceNotify) ID() CommandID { return CmdRaceStartRaceNotify }

func (m RaceStartRaceNotify) Encode(w *Writer) error {
	w.Uint8(uint8(m.GameMode))
	w.Uint8(uint8(m.TeamMode))
	w.Uint16(m.MapBlockID)
	w.Uint16(m.MissionID)
	w.Uint32(m.P2PRelayAddress)
	w.Uint16(m.P2PRelayPort)
	w.Uint8(uint8(len(m.Racers)))
	for _, rr := range m.Racers {
		w.Uint16(rr.OID)
		w.String(rr.Name)
		w.Uint16(rr.P2PID)
		w.Uint8(rr.TeamColor)
	}
	w.Uint16(m.HostOID)
	w.Uint8(uint8(len(m.Skills)))
	for _, sk := range m.Skills {
		w.Uint16(sk.OID)
		w.Uint8(sk.ActiveSet)
		w.Uint32(sk.Slot1)
		w.Uint32(sk.Slot2)
		w.Uint32(sk.BonusSkill)
	}
	return w.Err()
}

type RaceTimer struct {
	ClientClock uint64
}

func (RaceTimer) ID() CommandID { return CmdRaceTimer }

func (m *RaceTimer) Decode(r *Reader) error {
	m.ClientClock = r.Uint64()
	return r.Err()
}

type RaceTimerOK struct {
	ClientClock uint64
	ServerClock uint64
}

func (RaceTimerOK) ID() CommandID { return CmdRaceTimerOK }

func (m RaceTimerOK) Encode(w *Writer) error {
	w.Uint64(m.ClientClock)
	w.Uint64(m.ServerClock)
	return w.Err()
}

type RaceLoadingComplete struct{}

func (RaceLoadingComplete) ID() CommandID          { return CmdRaceLoadingComplete }
func (m *RaceLoadingComplete) Decode(r *Reader) error { return r.Err() }

type RaceLoadingCompleteNotify struct {
	OID uint16
}

func (RaceLoadingCompleteNotify) ID() CommandID { return CmdRaceLoadingCompleteNotify }

func (m RaceLoadingCompleteNotify) Encode(w *Writer) error {
	w.Uint16(m.OID)
	return w.Err()
}

// RaceCountdown announces the shared race start timestamp in 100ns units.
type RaceCountdown struct {
	RaceStartTimestamp uint64
}

func (RaceCountdown) ID() CommandID { return CmdRaceCountdown }

func (m RaceCountdown) Encode(w *Writer) error {
	w.Uint64(m.RaceStartTimestamp)
	return w.Err()
}

type RaceUserRaceFinal struct {
	CourseTime uint32
}

func (RaceUserRaceFinal) ID() CommandID { return CmdRaceUserRaceFinal }

func (m *RaceUserRaceFinal) Decode(r *Reader) error {
	m.CourseTime = r.Uint32()
	return r.Err()
}

type RaceUserRaceFinalNotify struct {
	OID        uint16
	CourseTime uint32
}

func (RaceUserRaceFinalNotify) ID() CommandID { return CmdRaceUserRaceFinalNotify }

func (m RaceUserRaceFinalNotify) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint32(m.CourseTime)
	return w.Err()
}

// RaceFinalNotify forces clients to wrap up when the course time limit
// expires.
type RaceFinalNotify struct{}

func (RaceFinalNotify) ID() CommandID        { return CmdRaceFinalNotify }
func (m RaceFinalNotify) Encode(w *Writer) error { return w.Err() }

type RaceResult struct{}

func (RaceResult) ID() CommandID          { return CmdRaceResult }
func (m *RaceResult) Decode(r *Reader) error { return r.Err() }

type RaceResultOK struct {
	Member1        uint32
	Member2        uint32
	Member3        uint32
	Member4        uint32
	Member5        uint32
	CurrentCarrots int32
}

func (RaceResultOK) ID() CommandID { return CmdRaceResultOK }

func (m RaceResultOK) Encode(w *Writer) error {
	w.Uint32(m.Member1)
	w.Uint32(m.Member2)
	w.Uint32(m.Member3)
	w.Uint32(m.Member4)
	w.Uint32(m.Member5)
	w.Int32(m.CurrentCarrots)
	return w.Err()
}

// Score bitset flags.
const ScoreConnected uint8 = 1

type ScoreInfo struct {
	Bitset     uint8
	CourseTime uint32
	UID        uint32
	Name       string
	Level      uint16
	MountName  string
}

type RaceResultNotify struct {
	Scores []ScoreInfo
}

func (RaceResultNotify) ID() CommandID { return CmdRaceResultNotify }

func (m RaceResultNotify) Encode(w *Writer) error {
	w.Uint8(uint8(len(m.Scores)))
	for _, s := range m.Scores {
		w.Uint8(s.Bitset)
		w.Uint32(s.CourseTime)
		w.Uint32(s.UID)
		w.String(s.Name)
		w.Uint16(s.Level)
		w.String(s.MountName)
	}
	return w.Err()
}

type RaceP2PResult struct {
	Unk0 uint32
}

func (RaceP2PResult) ID() CommandID { return CmdRaceP2PResult }

func (m *RaceP2PResult) Decode(r *Reader) error {
	m.Unk0 = r.Uint32()
	return r.Err()
}

type RaceP2PResultOK struct {
	OIDs []uint16
}

func (RaceP2PResultOK) ID() CommandID { return CmdRaceP2PResultOK }

func (m RaceP2PResultOK) Encode(w *Writer) error {
	w.Uint8(uint8(len(m.OIDs)))
	for _, oid := range m.OIDs {
		w.Uint16(oid)
	}
	return w.Err()
}

type RaceHurdleClearResult struct {
	OID    uint16
	Result HurdleResult
}

func (RaceHurdleClearResult) ID() CommandID { return CmdRaceHurdleClearResult }

func (m *RaceHurdleClearResult) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.Result = HurdleResult(r.Uint8())
	return r.Err()
}

type RaceHurdleClearResultOK struct {
	OID       uint16
	Result    HurdleResult
	JumpCombo uint16
}

func (RaceHurdleClearResultOK) ID() CommandID { return CmdRaceHurdleClearResultOK }

func (m RaceHurdleClearResultOK) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint8(uint8(m.Result))
	w.Uint16(m.JumpCombo)
	return w.Err()
}

type RaceStarPointGet struct {
	OID          uint16
	GainedPoints uint32
}

func (RaceStarPointGet) ID() CommandID { return CmdRaceStarPointGet }

func (m *RaceStarPointGet) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.GainedPoints = r.Uint32()
	return r.Err()
}

type RaceStarPointGetOK struct {
	OID           uint16
	StarPoints    uint32
	GiveMagicItem uint8
}

func (RaceStarPointGetOK) ID() CommandID { return CmdRaceStarPointGetOK }

func (m RaceStarPointGetOK) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint32(m.StarPoints)
	w.Uint8(m.GiveMagicItem)
	return w.Err()
}

type RaceRequestSpur struct {
	OID            uint16
	ActiveBoosters uint8
}

func (RaceRequestSpur) ID() CommandID { return CmdRaceRequestSpur }

func (m *RaceRequestSpur) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.ActiveBoosters = r.Uint8()
	return r.Err()
}

type RaceRequestSpurOK struct {
	OID            uint16
	ActiveBoosters uint8
	StarPoints     uint32
	ComboBreak     uint8
}

func (RaceRequestSpurOK) ID() CommandID { return CmdRaceRequestSpurOK }

func (m RaceRequestSpurOK) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint8(m.ActiveBoosters)
	w.Uint32(m.StarPoints)
	w.Uint8(m.ComboBreak)
	return w.Err()
}

type RaceStartingRate struct {
	OID         uint16
	Unk1        uint32
	BoostGained uint32
}

func (RaceStartingRate) ID() CommandID { return CmdRaceStartingRate }

func (m *RaceStartingRate) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.Unk1 = r.Uint32()
	m.BoostGained = r.Uint32()
	return r.Err()
}

type RaceUserPos struct {
	OID      uint16
	Position Vec3
}

func (RaceUserPos) ID() CommandID { return CmdRaceUserPos }

func (m *RaceUserPos) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.Position.Decode(r)
	return r.Err()
}

type RaceItemSpawn struct {
	ItemOID     uint16
	ItemType    uint32
	Position    Vec3
	Orientation [4]float32
	RemoveDelay int32
}

func (RaceItemSpawn) ID() CommandID { return CmdRaceItemSpawn }

func (m RaceItemSpawn) Encode(w *Writer) error {
	w.Uint16(m.ItemOID)
	w.Uint32(m.ItemType)
	m.Position.Encode(w)
	for _, v := range m.Orientation {
		w.Float32(v)
	}
	w.Int32(m.RemoveDelay)
	return w.Err()
}

type RaceItemGet struct {
	CharacterOID uint16
	ItemOID      uint16
	ItemType     uint32
}

func (RaceItemGet) ID() CommandID { return CmdRaceItemGet }

func (m RaceItemGet) Encode(w *Writer) error {
	w.Uint16(m.CharacterOID)
	w.Uint16(m.ItemOID)
	w.Uint32(m.ItemType)
	return w.Err()
}

type RaceUserRaceItemGet struct {
	OID     uint16
	ItemOID uint16
}

func (RaceUserRaceItemGet) ID() CommandID { return CmdRaceUserRaceItemGet }

func (m *RaceUserRaceItemGet) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.ItemOID = r.Uint16()
	return r.Err()
}

type RaceRequestMagicItem struct {
	CharacterOID uint16
}

func (RaceRequestMagicItem) ID() CommandID { return CmdRaceRequestMagicItem }

func (m *RaceRequestMagicItem) Decode(r *Reader) error {
	m.CharacterOID = r.Uint16()
	return r.Err()
}

type RaceRequestMagicItemOK struct {
	OID         uint16
	MagicItemID uint32
	Unk2        uint32
}

func (RaceRequestMagicItemOK) ID() CommandID { return CmdRaceRequestMagicItemOK }

func (m RaceRequestMagicItemOK) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint32(m.MagicItemID)
	w.Uint32(m.Unk2)
	return w.Err()
}

type RaceRequestMagicItemNotify struct {
	MagicItemID uint32
	OID         uint16
}

func (RaceRequestMagicItemNotify) ID() CommandID { return CmdRaceRequestMagicItemNotify }

func (m RaceRequestMagicItemNotify) Encode(w *Writer) error {
	w.Uint32(m.MagicItemID)
	w.Uint16(m.OID)
	return w.Err()
}

type RaceUseMagicItem struct {
	OID         uint16
	MagicItemID uint32
	HasTarget   uint8
	TargetOID   uint16
	Optional3   float32
	Optional4   float32
}

func (RaceUseMagicItem) ID() CommandID { return CmdRaceUseMagicItem }

func (m *RaceUseMagicItem) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.MagicItemID = r.Uint32()
	m.HasTarget = r.Uint8()
	if m.HasTarget != 0 {
		m.TargetOID = r.Uint16()
		m.Optional3 = r.Float32()
		m.Optional4 = r.Float32()
	}
	return r.Err()
}

type RaceUseMagicItemOK struct {
	OID         uint16
	MagicItemID uint32
	HasTarget   uint8
	TargetOID   uint16
	Optional3   float32
	Optional4   float32
}

func (RaceUseMagicItemOK) ID() CommandID { return CmdRaceUseMagicItemOK }

func (m RaceUseMagicItemOK) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint32(m.MagicItemID)
	w.Uint8(m.HasTarget)
	if m.HasTarget != 0 {
		w.Uint16(m.TargetOID)
		w.Float32(m.Optional3)
		w.Float32(m.Optional4)
	}
	return w.Err()
}

type RaceUseMagicItemNotify struct {
	OID         uint16
	MagicItemID uint32
	HasTarget   uint8
	TargetOID   uint16
	Optional3   float32
	Optional4   float32
}

func (RaceUseMagicItemNotify) ID() CommandID { return CmdRaceUseMagicItemNotify }

func (m RaceUseMagicItemNotify) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint32(m.MagicItemID)
	w.Uint8(m.HasTarget)
	if m.HasTarget != 0 {
		w.Uint16(m.TargetOID)
		w.Float32(m.Optional3)
		w.Float32(m.Optional4)
	}
	return w.Err()
}

type RaceStartMagicTarget struct {
	OID uint16
}

func (RaceStartMagicTarget) ID() CommandID { return CmdRaceStartMagicTarget }

func (m *RaceStartMagicTarget) Decode(r *Reader) error {
	m.OID = r.Uint16()
	return r.Err()
}

// RaceChangeMagicTargetNotify is serverbound from the attacker and is
// forwarded to the targeted racer's client unchanged.
type RaceChangeMagicTargetNotify struct {
	OID       uint16
	TargetOID uint16
}

func (RaceChangeMagicTargetNotify) ID() CommandID { return CmdRaceChangeMagicTargetNotify }

func (m *RaceChangeMagicTargetNotify) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.TargetOID = r.Uint16()
	return r.Err()
}

func (m RaceChangeMagicTargetNotify) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint16(m.TargetOID)
	return w.Err()
}

type RaceChangeMagicTargetOK struct {
	OID       uint16
	TargetOID uint16
}

func (RaceChangeMagicTargetOK) ID() CommandID { return CmdRaceChangeMagicTargetOK }

func (m *RaceChangeMagicTargetOK) Decode(r *Reader) error {
	m.OID = r.Uint16()
	m.TargetOID = r.Uint16()
	return r.Err()
}

type RaceCancelMagicTarget struct {
	OID uint16
}

func (RaceCancelMagicTarget) ID() CommandID { return CmdRaceCancelMagicTarget }

func (m *RaceCancelMagicTarget) Decode(r *Reader) error {
	m.OID = r.Uint16()
	return r.Err()
}

type RaceRemoveMagicTarget struct {
	OID uint16
}

func (RaceRemoveMagicTarget) ID() CommandID { return CmdRaceRemoveMagicTarget }

func (m RaceRemoveMagicTarget) Encode(w *Writer) error {
	w.Uint16(m.OID)
	return w.Err()
}

type RaceChangeMasterNotify struct {
	CharacterUID uint32
}

func (RaceChangeMasterNotify) ID() CommandID { return CmdRaceChangeMasterNotify }

func (m RaceChangeMasterNotify) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	return w.Err()
}

type RaceChat struct {
	Message string
}

func (RaceChat) ID() CommandID { return CmdRaceChat }

func (m *RaceChat) Decode(r *Reader) error {
	m.Message = r.String()
	return r.Err()
}

type RaceChatNotify struct {
	Name    string
	Message string
}

func (RaceChatNotify) ID() CommandID { return CmdRaceChatNotify }

func (m RaceChatNotify) Encode(w *Writer) error {
	w.String(m.Name)
	w.String(m.Message)
	return w.Err()
}

// RaceRelay carries an opaque client blob fanned out to the other room
// clients.
type RaceRelay struct {
	Data []byte
}

func (RaceRelay) ID() CommandID { return CmdRaceRelay }

func (m *RaceRelay) Decode(r *Reader) error {
	m.Data = r.Bytes(r.Remaining())
	return r.Err()
}

type RaceRelayNotify struct {
	OID  uint16
	Data []byte
}

func (RaceRelayNotify) ID() CommandID { return CmdRaceRelayNotify }

func (m RaceRelayNotify) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Raw(m.Data)
	return w.Err()
}

type RaceRelayCommand struct {
	CommandID uint32
	Data      []byte
}

func (RaceRelayCommand) ID() CommandID { return CmdRaceRelayCommand }

func (m *RaceRelayCommand) Decode(r *Reader) error {
	m.CommandID = r.Uint32()
	m.Data = r.Bytes(r.Remaining())
	return r.Err()
}

type RaceRelayCommandNotify struct {
	OID       uint16
	CommandID uint32
	Data      []byte
}

func (RaceRelayCommandNotify) ID() CommandID { return CmdRaceRelayCommandNotify }

func (m RaceRelayCommandNotify) Encode(w *Writer) error {
	w.Uint16(m.OID)
	w.Uint32(m.CommandID)
	w.Raw(m.Data)
	return w.Err()
}

type RaceAwardStart struct {
	Unk0 uint32
}

func (RaceAwardStart) ID() CommandID { return CmdRaceAwardStart }

func (m *RaceAwardStart) Decode(r *Reader) error {
	m.Unk0 = r.Uint32()
	return r.Err()
}

type RaceAwardStartNotify struct {
	Unk0 uint32
}

func (RaceAwardStartNotify) ID() CommandID { return CmdRaceAwardStartNotify }

func (m RaceAwardStartNotify) Encode(w *Writer) error {
	w.Uint32(m.Unk0)
	return w.Err()
}

type RaceAwardEnd struct{}

func (RaceAwardEnd) ID() CommandID          { return CmdRaceAwardEnd }
func (m *RaceAwardEnd) Decode(r *Reader) error { return r.Err() }

type RaceChangeSkillCardPreset struct {
	GameMode GameMode
	SetID    uint8
}

func (RaceChangeSkillCardPreset) ID() CommandID { return CmdRaceChangeSkillCardPreset }

func (m *RaceChangeSkillCardPreset) Decode(r *Reader) error {
	m.GameMode = GameMode(r.Uint8())
	m.SetID = r.Uint8()
	return r.Err()
}

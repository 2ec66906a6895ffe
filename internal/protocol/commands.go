package protocol

// CommandID identifies a frame on the wire. Serverbound and clientbound
// ids share one space; each endpoint dispatches only the ids registered
// with it.
type CommandID uint16

const CmdNone CommandID = 0

// Lobby endpoint commands.
const (
	CmdLobbyLogin CommandID = 0x0007 + iota
	CmdLobbyLoginOK
	CmdLobbyLoginCancel
	CmdLobbyShowInventory
	CmdLobbyShowInventoryOK
	CmdLobbyShowInventoryCancel
	CmdLobbyCreateNicknameNotify
	CmdLobbyCreateNickname
	CmdLobbyCreateNicknameCancel
	CmdLobbyRequestLeagueInfo
	CmdLobbyRequestLeagueInfoOK
	CmdLobbyRequestLeagueInfoCancel
	CmdLobbyAchievementCompleteList
	CmdLobbyAchievementCompleteListOK
	CmdLobbyEnterChannel
	CmdLobbyEnterChannelOK
	CmdLobbyEnterChannelCancel
	CmdLobbyLeaveChannel
	CmdLobbyLeaveChannelOK
	CmdLobbyRoomList
	CmdLobbyRoomListOK
	CmdLobbyMakeRoom
	CmdLobbyMakeRoomOK
	CmdLobbyMakeRoomCancel
	CmdLobbyEnterRoom
	CmdLobbyEnterRoomOK
	CmdLobbyEnterRoomCancel
	CmdLobbyRequestQuestList
	CmdLobbyRequestQuestListOK
	CmdLobbyRequestDailyQuestList
	CmdLobbyRequestDailyQuestListOK
	CmdLobbyEnterRanch
	CmdLobbyEnterRanchOK
	CmdLobbyEnterRanchCancel
	CmdLobbyEnterRanchRandomly
	CmdLobbyGetMessengerInfo
	CmdLobbyGetMessengerInfoOK
	CmdLobbyCheckWaitingSeqno
	CmdLobbyCheckWaitingSeqnoOK
	CmdLobbyRequestSpecialEventList
	CmdLobbyRequestSpecialEventListOK
	CmdLobbyHeartbeat
	CmdLobbyGoodsShopList
	CmdLobbyGoodsShopListOK
	CmdLobbyGoodsShopListData
	CmdLobbyInquiryTreecash
	CmdLobbyInquiryTreecashOK
	CmdLobbyClientNotify
	CmdLobbyRequestPersonalInfo
	CmdLobbyPersonalInfo
	CmdLobbySetIntroduction
	CmdLobbyUpdateSystemContent
	CmdLobbySystemContentNotify
	CmdLobbyQueryServerTime
	CmdLobbyQueryServerTimeOK
	CmdLobbyUpdateUserSettings
	CmdLobbyChangeRanchOption
	CmdLobbyChangeRanchOptionOK
	CmdLobbyRequestMountInfo
	CmdLobbyRequestMountInfoOK
	CmdLobbySkillCardPresetList
	CmdLobbyGuildInvitation
	CmdLobbyGuildInviteReply
	CmdLobbyMessageNotify
)

// Ranch endpoint commands.
const (
	CmdRanchEnterRanch CommandID = 0x012C + iota
	CmdRanchEnterRanchOK
	CmdRanchEnterRanchCancel
	CmdRanchEnterRanchNotify
	CmdRanchLeaveRanch
	CmdRanchLeaveRanchOK
	CmdRanchLeaveRanchNotify
	CmdRanchChat
	CmdRanchChatNotify
	CmdRanchHeartbeat
)

// Race endpoint commands.
const (
	CmdRaceEnterRoom CommandID = 0x01F4 + iota
	CmdRaceEnterRoomOK
	CmdRaceEnterRoomCancel
	CmdRaceEnterRoomNotify
	CmdRaceChangeRoomOptions
	CmdRaceChangeRoomOptionsNotify
	CmdRaceChangeTeam
	CmdRaceChangeTeamOK
	CmdRaceChangeTeamNotify
	CmdRaceLeaveRoom
	CmdRaceLeaveRoomOK
	CmdRaceLeaveRoomNotify
	CmdRaceReadyRace
	CmdRaceReadyRaceNotify
	CmdRaceStartRace
	CmdRaceRoomCountdown
	CmdRaceStartRaceNotify
	CmdRaceTimer
	CmdRaceTimerOK
	CmdRaceLoadingComplete
	CmdRaceLoadingCompleteNotify
	CmdRaceCountdown
	CmdRaceUserRaceFinal
	CmdRaceUserRaceFinalNotify
	CmdRaceFinalNotify
	CmdRaceResult
	CmdRaceResultOK
	CmdRaceResultNotify
	CmdRaceP2PResult
	CmdRaceP2PResultOK
	CmdRaceHurdleClearResult
	CmdRaceHurdleClearResultOK
	CmdRaceStarPointGet
	CmdRaceStarPointGetOK
	CmdRaceRequestSpur
	CmdRaceRequestSpurOK
	CmdRaceStartingRate
	CmdRaceUserPos
	CmdRaceItemSpawn
	CmdRaceItemGet
	CmdRaceUserRaceItemGet
	CmdRaceRequestMagicItem
	CmdRaceRequestMagicItemOK
	CmdRaceRequestMagicItemNotify
	CmdRaceUseMagicItem
	CmdRaceUseMagicItemOK
	CmdRaceUseMagicItemNotify
	CmdRaceStartMagicTarget
	CmdRaceChangeMagicTargetNotify
	CmdRaceChangeMagicTargetOK
	CmdRaceCancelMagicTarget
	CmdRaceRemoveMagicTarget
	CmdRaceChangeMasterNotify
	CmdRaceChat
	CmdRaceChatNotify
	CmdRaceRelay
	CmdRaceRelayNotify
	CmdRaceRelayCommand
	CmdRaceRelayCommandNotify
	CmdRaceAwardStart
	CmdRaceAwardStartNotify
	CmdRaceAwardEnd
	CmdRaceChangeSkillCardPreset
)

// Serverbound messages declare their id and decode themselves from a frame
// body; clientbound messages encode themselves into one.
type Serverbound interface {
	ID() CommandID
	Decode(r *Reader) error
}

type Clientbound interface {
	ID() CommandID
	Encode(w *Writer) error
}

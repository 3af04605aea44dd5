package nakama

const (
	// RpcCreateRoom is the Nakama RPC id clients call to open a new room.
	RpcCreateRoom = "create_room"
	// RpcFindRoom is the Nakama RPC id clients call to resolve a room code to a match id.
	RpcFindRoom = "find_room"

	// MatchNameAvalon is the authoritative match handler name registered with Nakama.
	MatchNameAvalon = "avalon_match"

	// MatchLabelKey_Code is the label key carrying the room code for MatchList queries.
	MatchLabelKey_Code = "code"
	// MatchLabelKey_OpenSeats is the label key carrying the open seat count.
	MatchLabelKey_OpenSeats = "open"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame       int64 = 1
	OpNominate        int64 = 2
	OpConfirmParty    int64 = 3
	OpGlobalVote      int64 = 4
	OpQuestVote       int64 = 5
	OpAssassinate     int64 = 6
	OpToggleExtraRole int64 = 7
	OpRename          int64 = 8
	OpStartNewVote    int64 = 9

	// Server -> Client events
	OpEvtRegistered    int64 = 101
	OpEvtPlayers       int64 = 102
	OpEvtQuests        int64 = 103
	OpEvtRoomUpdated   int64 = 104
	OpEvtRoleAssigned  int64 = 105 // send privately
	OpEvtPlayerVoted   int64 = 106
	OpEvtPlayerKilled  int64 = 107
	OpEvtPartyMismatch int64 = 108
	OpEvtError         int64 = 199
)

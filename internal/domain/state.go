package domain

// Phase represents the lifecycle stage of a room.
type Phase string

const (
	// PhaseLobby is the pre-game state where players can join and the host tweaks roles.
	PhaseLobby Phase = "lobby"
	// PhaseNomination is the state where the leader picks the quest party.
	PhaseNomination Phase = "nomination"
	// PhaseGlobalVote is the state where every player votes on the nominated party.
	PhaseGlobalVote Phase = "globalVote"
	// PhaseQuestVote is the state where the approved party votes on the quest outcome.
	PhaseQuestVote Phase = "questVote"
	// PhaseAssassination is the end-game state where the Assassin picks a target.
	PhaseAssassination Phase = "assassination"
	// PhaseGameOver is the state after a game concludes.
	PhaseGameOver Phase = "gameOver"
)

// Vote is a single yes/no ballot. The zero value means the player has not voted.
type Vote string

const (
	VoteUnset Vote = ""
	VoteYes   Vote = "yes"
	VoteNo    Vote = "no"
)

// QuestResult is the recorded outcome of a quest. Write-once per quest:
// a non-pending value is never overwritten within a game.
type QuestResult string

const (
	QuestPending QuestResult = ""
	QuestSuccess QuestResult = "success"
	QuestFail    QuestResult = "fail"
)

// Room holds authoritative state for one game instance, keyed by its code.
type Room struct {
	Code            string
	HostSessionID   string
	LeaderSessionID string

	Phase          Phase
	GameInProgress bool

	CurrentQuest    int // 1..5 while a game is in progress
	MissedTeamVotes int // 1..5; 5 failed nominations ends the game for evil

	RevealVotes bool
	RevealRoles bool

	ExtraRoles  []RoleKey
	GameMessage string

	// TakenAvatars tracks which catalog avatars are already assigned in this room.
	TakenAvatars map[string]bool
}

// HasExtraRole reports whether the host enabled the given optional role.
func (r *Room) HasExtraRole(key RoleKey) bool {
	for _, k := range r.ExtraRoles {
		if k == key {
			return true
		}
	}
	return false
}

// Player holds state for a seated participant, keyed by live session id.
// Token is the stable identity that survives reconnects.
type Player struct {
	SessionID string
	Token     string
	RoomCode  string
	Name      string
	Avatar    string

	Order     int // dense 0..N-1 seat index used for leader rotation
	IsHost    bool
	IsLeader  bool
	Connected bool
	Nominated bool

	Role       RoleKey // assigned once per game start; empty in the lobby
	SecretInfo string

	GlobalVote Vote
	QuestVote  Vote
}

// Side derives the player's allegiance from the assigned role.
// It is never stored independently.
func (p *Player) Side() Side {
	if role, ok := Roles[p.Role]; ok {
		return role.Side
	}
	return ""
}

// Quest is one of the five scored missions of a room.
type Quest struct {
	RoomCode  string
	Number    int // 1..5
	PartySize int // fixed at game start from the quest table

	// TwoFailsRequired marks quest 4 in 7+ player games: it fails only
	// on two or more "no" ballots instead of a simple majority.
	TwoFailsRequired bool

	Result QuestResult
	Active bool
}

package app

import "avalon/internal/domain"

// PlayerSnapshot is the outward view of a seated player. Role, side and
// secret information never leave through a broadcast unless the room has
// entered its end-of-game reveal; ballots show only while votes are
// revealed. The private channel for secrets is the role_assigned event.
type PlayerSnapshot struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Order     int    `json:"order"`
	IsHost    bool   `json:"isHost"`
	IsLeader  bool   `json:"isCurrentLeader"`
	Connected bool   `json:"connected"`
	Nominated bool   `json:"nominated"`

	GlobalVote domain.Vote `json:"globalVote,omitempty"`

	RoleKey  domain.RoleKey `json:"roleKey,omitempty"`
	RoleName string         `json:"roleName,omitempty"`
	Side     domain.Side    `json:"side,omitempty"`
}

// QuestSnapshot is the outward view of one quest.
type QuestSnapshot struct {
	Number           int                `json:"questNumber"`
	PartySize        int                `json:"questPartySize"`
	TwoFailsRequired bool               `json:"twoFailsRequired"`
	Result           domain.QuestResult `json:"questResult"`
	Active           bool               `json:"active"`
}

// RoomSnapshot is the outward view of the whole room. The four
// in-progress booleans clients render are derived from the phase enum;
// the enum itself stays authoritative.
type RoomSnapshot struct {
	Code            string `json:"roomCode"`
	HostSessionID   string `json:"hostSessionId"`
	LeaderSessionID string `json:"currentLeaderId"`

	GameInProgress          bool `json:"gameInProgress"`
	NominationInProgress    bool `json:"nominationInProgress"`
	GlobalVoteInProgress    bool `json:"globalVoteInProgress"`
	QuestVoteInProgress     bool `json:"questVoteInProgress"`
	AssassinationInProgress bool `json:"assassinationInProgress"`

	CurrentQuest    int  `json:"currentQuest"`
	MissedTeamVotes int  `json:"missedTeamVotes"`
	RevealVotes     bool `json:"revealVotes"`
	RevealRoles     bool `json:"revealRoles"`

	ExtraRoles  []domain.RoleKey `json:"extraRoles"`
	GameMessage string           `json:"gameMessage"`

	Players []PlayerSnapshot `json:"players"`
	Quests  []QuestSnapshot  `json:"quests"`
}

func snapshotPlayer(p *domain.Player, room *domain.Room) PlayerSnapshot {
	snap := PlayerSnapshot{
		SessionID: p.SessionID,
		Name:      p.Name,
		Avatar:    p.Avatar,
		Order:     p.Order,
		IsHost:    p.IsHost,
		IsLeader:  p.IsLeader,
		Connected: p.Connected,
		Nominated: p.Nominated,
	}
	if room.RevealVotes {
		snap.GlobalVote = p.GlobalVote
	}
	if room.RevealRoles {
		snap.RoleKey = p.Role
		snap.Side = p.Side()
		if role, ok := domain.Roles[p.Role]; ok {
			snap.RoleName = role.Name
		}
	}
	return snap
}

func snapshotPlayers(players []*domain.Player, room *domain.Room) []PlayerSnapshot {
	out := make([]PlayerSnapshot, len(players))
	for i, p := range players {
		out[i] = snapshotPlayer(p, room)
	}
	return out
}

func snapshotQuests(quests []*domain.Quest) []QuestSnapshot {
	out := make([]QuestSnapshot, len(quests))
	for i, q := range quests {
		out[i] = QuestSnapshot{
			Number:           q.Number,
			PartySize:        q.PartySize,
			TwoFailsRequired: q.TwoFailsRequired,
			Result:           q.Result,
			Active:           q.Active,
		}
	}
	return out
}

func snapshotRoom(room *domain.Room, players []*domain.Player, quests []*domain.Quest) RoomSnapshot {
	return RoomSnapshot{
		Code:            room.Code,
		HostSessionID:   room.HostSessionID,
		LeaderSessionID: room.LeaderSessionID,

		GameInProgress:          room.GameInProgress,
		NominationInProgress:    room.Phase == domain.PhaseNomination,
		GlobalVoteInProgress:    room.Phase == domain.PhaseGlobalVote,
		QuestVoteInProgress:     room.Phase == domain.PhaseQuestVote,
		AssassinationInProgress: room.Phase == domain.PhaseAssassination,

		CurrentQuest:    room.CurrentQuest,
		MissedTeamVotes: room.MissedTeamVotes,
		RevealVotes:     room.RevealVotes,
		RevealRoles:     room.RevealRoles,

		ExtraRoles:  room.ExtraRoles,
		GameMessage: room.GameMessage,

		Players: snapshotPlayers(players, room),
		Quests:  snapshotQuests(quests),
	}
}

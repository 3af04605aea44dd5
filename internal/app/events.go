package app

import "avalon/internal/domain"

// EventKind identifies emitted room events for transport dispatch.
type EventKind string

const (
	// EventRegistered carries the new player's persistent identity token.
	EventRegistered EventKind = "registered"
	// EventPlayers carries the ordered roster with secrets stripped.
	EventPlayers EventKind = "players"
	// EventQuests carries the ordered quest list.
	EventQuests EventKind = "quests"
	// EventRoomUpdated carries the full room snapshot with secrets stripped.
	EventRoomUpdated EventKind = "room_updated"
	// EventRoleAssigned carries one player's private role briefing.
	EventRoleAssigned EventKind = "role_assigned"
	// EventPlayerVoted announces that a session cast a ballot, not its value.
	EventPlayerVoted EventKind = "player_voted"
	// EventPlayerKilled announces the assassination target (nil clears it).
	EventPlayerKilled EventKind = "player_killed"
	// EventPartyUndersized tells the room the confirmed party does not
	// match the required quest party size.
	EventPartyUndersized EventKind = "party_undersized"
)

// Event is a room event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // session ids; empty means room broadcast
}

type RegisteredPayload struct {
	Token string `json:"token"`
}

type PlayersPayload struct {
	Players []PlayerSnapshot `json:"players"`
}

type QuestsPayload struct {
	Quests []QuestSnapshot `json:"quests"`
}

type RoleAssignedPayload struct {
	RoleName   string         `json:"roleName"`
	RoleKey    domain.RoleKey `json:"roleKey"`
	Side       domain.Side    `json:"side"`
	SecretInfo string         `json:"secretInfo"`
	Ability    string         `json:"description"`
}

type PlayerVotedPayload struct {
	SessionID string `json:"sessionId"`
}

type PlayerKilledPayload struct {
	TargetSessionID *string `json:"targetSessionId"`
}

func broadcast(kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}

func toSession(sessionID string, kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload, Recipients: []string{sessionID}}
}

package app

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"avalon/internal/domain"
	"avalon/internal/ports"
)

// Service runs the room session state machine. It is safe for use from
// concurrently running rooms as long as events for one room code are
// handled by a single caller at a time; the Nakama match loop provides
// that serialization.
type Service struct {
	store   ports.RoomStore
	rng     *rand.Rand
	avatars []string
}

// NewService constructs a Service with the provided rng or a time-seeded default.
func NewService(store ports.RoomStore, rng *rand.Rand, avatars []string) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{store: store, rng: rng, avatars: avatars}
}

// ErrRoomFull is returned when a join would exceed the seat limit.
var ErrRoomFull = errors.New("room is full")

// CreateRoom registers a fresh lobby for the given code. Creating an
// existing code is a no-op, so two clients racing to create the same
// room both end up joining it.
func (s *Service) CreateRoom(ctx context.Context, roomCode, hostSessionID string) error {
	room := &domain.Room{
		Code:            roomCode,
		HostSessionID:   hostSessionID,
		Phase:           domain.PhaseLobby,
		CurrentQuest:    1,
		MissedTeamVotes: 1,
		ExtraRoles:      []domain.RoleKey{},
		TakenAvatars:    map[string]bool{},
	}
	return s.store.CreateRoom(ctx, room)
}

// JoinRoom seats a new player, assigns an avatar and a persistent
// identity token, and announces the roster.
func (s *Service) JoinRoom(ctx context.Context, roomCode, sessionID, nickname string, isHost bool) ([]Event, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	players, err := s.store.Players(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if len(players) >= domain.MaxPlayers {
		return nil, ErrRoomFull
	}

	player := &domain.Player{
		SessionID: sessionID,
		Token:     uuid.NewString(),
		RoomCode:  roomCode,
		Name:      nickname,
		Avatar:    s.pickAvatar(room),
		Order:     len(players),
		IsHost:    isHost,
		Connected: true,
	}
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}
	if isHost {
		room.HostSessionID = sessionID
	}
	if err := s.store.SaveRoom(ctx, room); err != nil { // persists the avatar claim
		return nil, err
	}

	players = append(players, player)
	return []Event{
		toSession(sessionID, EventRegistered, RegisteredPayload{Token: player.Token}),
		broadcast(EventPlayers, PlayersPayload{Players: snapshotPlayers(players, room)}),
	}, nil
}

// Reconnect restores a seat from a persistent token: the player keeps
// order, role and votes, only the live session id changes. The private
// briefing is re-sent to the new session.
func (s *Service) Reconnect(ctx context.Context, roomCode, token, sessionID string) ([]Event, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	player, err := s.store.PlayerByToken(ctx, roomCode, token)
	if err != nil {
		return nil, err
	}

	oldSessionID := player.SessionID
	player.SessionID = sessionID
	player.Connected = true
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	dirty := false
	if player.IsLeader {
		room.LeaderSessionID = sessionID
		dirty = true
	}
	if room.HostSessionID == oldSessionID {
		room.HostSessionID = sessionID
		dirty = true
	}
	if dirty {
		if err := s.store.SaveRoom(ctx, room); err != nil {
			return nil, err
		}
	}

	events, err := s.roomUpdate(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if player.Role != "" {
		role := domain.Roles[player.Role]
		events = append(events, toSession(sessionID, EventRoleAssigned, RoleAssignedPayload{
			RoleName:   role.Name,
			RoleKey:    role.Key,
			Side:       role.Side,
			SecretInfo: player.SecretInfo,
			Ability:    role.Ability,
		}))
	}
	return events, nil
}

// StartGame deals a fresh game: new roles, new briefings, new quests,
// new random leader. Valid from the lobby and as a rematch after game
// over; host only. Nothing carries over from a previous game.
func (s *Service) StartGame(ctx context.Context, roomCode, actorSessionID string) ([]Event, error) {
	room, players, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseLobby && room.Phase != domain.PhaseGameOver {
		return nil, nil
	}
	if room.HostSessionID != actorSessionID {
		return nil, nil
	}
	if len(players) < domain.MinPlayers || len(players) > domain.MaxPlayers {
		return nil, domain.ErrInvalidPlayerCount
	}

	for _, p := range players {
		p.GlobalVote = domain.VoteUnset
		p.QuestVote = domain.VoteUnset
		p.Nominated = false
	}
	if _, err := domain.AssignRoles(players, room.ExtraRoles, s.rng); err != nil {
		return nil, err
	}

	quests, err := domain.QuestsFor(roomCode, len(players))
	if err != nil {
		return nil, err
	}

	// Persist the full assignment before any vote can be accepted.
	if err := s.store.SavePlayers(ctx, players); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceQuests(ctx, roomCode, quests); err != nil {
		return nil, err
	}

	room.Phase = domain.PhaseNomination
	room.GameInProgress = true
	room.RevealVotes = false
	room.RevealRoles = false
	room.MissedTeamVotes = 1
	room.CurrentQuest = 1
	room.LeaderSessionID = leaderOf(players)
	room.GameMessage = MsgNominate
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	events := []Event{
		broadcast(EventRoomUpdated, snapshotRoom(room, players, quests)),
		broadcast(EventQuests, QuestsPayload{Quests: snapshotQuests(quests)}),
		broadcast(EventPlayerKilled, PlayerKilledPayload{}),
	}
	for _, p := range players {
		role := domain.Roles[p.Role]
		events = append(events, toSession(p.SessionID, EventRoleAssigned, RoleAssignedPayload{
			RoleName:   role.Name,
			RoleKey:    role.Key,
			Side:       role.Side,
			SecretInfo: p.SecretInfo,
			Ability:    role.Ability,
		}))
	}
	return events, nil
}

// Nominate toggles the target in and out of the tentative quest party.
// The party can never grow past the active quest's size; un-nomination
// is always allowed.
func (s *Service) Nominate(ctx context.Context, roomCode, targetSessionID string) ([]Event, error) {
	room, players, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseNomination {
		return nil, nil
	}

	target, err := s.store.PlayerBySession(ctx, roomCode, targetSessionID)
	if err != nil {
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if target.Nominated {
		target.Nominated = false
	} else {
		quest, err := s.store.ActiveQuest(ctx, roomCode)
		if err != nil {
			return nil, err
		}
		if countNominated(players) >= quest.PartySize {
			return nil, nil
		}
		target.Nominated = true
	}
	if err := s.store.SavePlayer(ctx, target); err != nil {
		return nil, err
	}

	players, err = s.store.Players(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return []Event{broadcast(EventPlayers, PlayersPayload{Players: snapshotPlayers(players, room)})}, nil
}

// ConfirmParty moves the room into the team vote when the leader has
// nominated exactly the required party. Mismatches notify the room and
// leave the nomination untouched.
func (s *Service) ConfirmParty(ctx context.Context, roomCode, actorSessionID string) ([]Event, error) {
	room, players, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseNomination {
		return nil, nil
	}
	if room.LeaderSessionID != actorSessionID {
		return nil, nil
	}

	quest, err := s.store.ActiveQuest(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if countNominated(players) != quest.PartySize {
		return []Event{broadcast(EventPartyUndersized, nil)}, nil
	}

	clearVotes(players)
	if err := s.store.SavePlayers(ctx, players); err != nil {
		return nil, err
	}

	room.Phase = domain.PhaseGlobalVote
	room.RevealVotes = false
	room.GameMessage = MsgGlobalVote
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return s.roomUpdate(ctx, roomCode)
}

// CastGlobalVote records one team-vote ballot and resolves the vote the
// moment the last ballot lands. A player may change their ballot until
// resolution fires.
func (s *Service) CastGlobalVote(ctx context.Context, roomCode, sessionID string, vote domain.Vote) ([]Event, error) {
	room, _, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseGlobalVote {
		return nil, nil
	}

	player, err := s.store.PlayerBySession(ctx, roomCode, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	player.GlobalVote = vote
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	events := []Event{broadcast(EventPlayerVoted, PlayerVotedPayload{SessionID: sessionID})}

	players, err := s.store.Players(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	outcome := domain.ResolveGlobalVote(players)
	if outcome.Resolved {
		if err := s.applyGlobalVoteOutcome(ctx, room, players, outcome.Approved); err != nil {
			return nil, err
		}
	}

	update, err := s.roomUpdate(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return append(events, update...), nil
}

func (s *Service) applyGlobalVoteOutcome(ctx context.Context, room *domain.Room, players []*domain.Player, approved bool) error {
	room.RevealVotes = true
	if approved {
		room.Phase = domain.PhaseQuestVote
		room.MissedTeamVotes = 1
		room.GameMessage = MsgQuestVote
		return s.store.SaveRoom(ctx, room)
	}

	room.MissedTeamVotes++
	if room.MissedTeamVotes >= 5 {
		// Five failed nominations end the game for evil outright.
		room.Phase = domain.PhaseGameOver
		room.GameInProgress = false
		room.RevealRoles = true
		room.GameMessage = MsgEvilVotesWin
		return s.store.SaveRoom(ctx, room)
	}

	rotateLeader(players, room)
	clearNominations(players)
	if err := s.store.SavePlayers(ctx, players); err != nil {
		return err
	}
	room.Phase = domain.PhaseNomination
	room.GameMessage = MsgNominate
	return s.store.SaveRoom(ctx, room)
}

// CastQuestVote records one quest ballot from a party member and
// resolves the quest once the whole party voted. Ballots from outside
// the party are dropped.
func (s *Service) CastQuestVote(ctx context.Context, roomCode, sessionID string, vote domain.Vote) ([]Event, error) {
	room, _, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseQuestVote {
		return nil, nil
	}

	player, err := s.store.PlayerBySession(ctx, roomCode, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !player.Nominated {
		return nil, nil
	}
	player.QuestVote = vote
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	events := []Event{broadcast(EventPlayerVoted, PlayerVotedPayload{SessionID: sessionID})}

	players, err := s.store.Players(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	quest, err := s.store.ActiveQuest(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	outcome := domain.ResolveQuestVote(players, quest.TwoFailsRequired)
	if outcome.Resolved {
		questEvents, err := s.applyQuestVoteOutcome(ctx, room, players, quest, outcome.Result)
		if err != nil {
			return nil, err
		}
		events = append(events, questEvents...)
	}

	update, err := s.roomUpdate(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return append(events, update...), nil
}

func (s *Service) applyQuestVoteOutcome(ctx context.Context, room *domain.Room, players []*domain.Player, quest *domain.Quest, result domain.QuestResult) ([]Event, error) {
	if quest.Result == domain.QuestPending { // quest results are write-once
		quest.Result = result
		quest.Active = false
		if err := s.store.SaveQuest(ctx, quest); err != nil {
			return nil, err
		}
	}

	rotateLeader(players, room)
	clearVotes(players)
	clearNominations(players)
	if err := s.store.SavePlayers(ctx, players); err != nil {
		return nil, err
	}
	room.RevealVotes = false

	quests, err := s.store.Quests(ctx, room.Code)
	if err != nil {
		return nil, err
	}
	events := []Event{broadcast(EventQuests, QuestsPayload{Quests: snapshotQuests(quests)})}

	gameOutcome := domain.EvaluateQuests(quests)
	switch {
	case gameOutcome.Ended && gameOutcome.RouteToAssassination:
		room.Phase = domain.PhaseAssassination
		room.GameMessage = MsgAssassination
	case gameOutcome.Ended:
		room.Phase = domain.PhaseGameOver
		room.GameInProgress = false
		room.RevealRoles = true
		room.GameMessage = MsgEvilQuestsWin
	default:
		room.CurrentQuest = quest.Number + 1
		if err := s.activateQuest(ctx, quests, room.CurrentQuest); err != nil {
			return nil, err
		}
		room.Phase = domain.PhaseNomination
		room.GameMessage = MsgNominate
	}
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Service) activateQuest(ctx context.Context, quests []*domain.Quest, number int) error {
	for _, q := range quests {
		if q.Number == number && q.Result == domain.QuestPending {
			q.Active = true
			return s.store.SaveQuest(ctx, q)
		}
	}
	return nil
}

// Assassinate ends the game from the assassination phase. Only the
// Assassin's session may act; good keeps the win unless the target
// holds Merlin. Roles are revealed either way.
func (s *Service) Assassinate(ctx context.Context, roomCode, actorSessionID, targetSessionID string) ([]Event, error) {
	room, players, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseAssassination {
		return nil, nil
	}

	actor, err := s.store.PlayerBySession(ctx, roomCode, actorSessionID)
	if err != nil {
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if actor.Role != domain.RoleAssassin {
		return nil, nil
	}

	merlinKilled := false
	for _, p := range players {
		if p.SessionID == targetSessionID && p.Role == domain.RoleMerlin {
			merlinKilled = true
		}
	}

	room.Phase = domain.PhaseGameOver
	room.GameInProgress = false
	room.RevealVotes = false
	room.RevealRoles = true
	if merlinKilled {
		room.GameMessage = MsgMerlinKilled
	} else {
		room.GameMessage = MsgAssassinMissed
	}
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	events := []Event{broadcast(EventPlayerKilled, PlayerKilledPayload{TargetSessionID: &targetSessionID})}
	update, err := s.roomUpdate(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return append(events, update...), nil
}

// ToggleExtraRole flips an optional role on the lobby setup. Host only.
func (s *Service) ToggleExtraRole(ctx context.Context, roomCode, actorSessionID string, roleKey domain.RoleKey) ([]Event, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Phase != domain.PhaseLobby && room.Phase != domain.PhaseGameOver {
		return nil, nil
	}
	if room.HostSessionID != actorSessionID || !domain.IsExtraRole(roleKey) {
		return nil, nil
	}

	if room.HasExtraRole(roleKey) {
		kept := room.ExtraRoles[:0]
		for _, k := range room.ExtraRoles {
			if k != roleKey {
				kept = append(kept, k)
			}
		}
		room.ExtraRoles = kept
	} else {
		room.ExtraRoles = append(room.ExtraRoles, roleKey)
	}
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return s.roomUpdate(ctx, roomCode)
}

// RenamePlayer updates a nickname without touching game state.
func (s *Service) RenamePlayer(ctx context.Context, roomCode, sessionID, newName string) ([]Event, error) {
	player, err := s.store.PlayerBySession(ctx, roomCode, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	player.Name = newName
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return s.roomUpdate(ctx, roomCode)
}

// StartNewVote clears all ballots of the current cycle so a stalled vote
// can be rerun. Phase and nominations stay as they are.
func (s *Service) StartNewVote(ctx context.Context, roomCode string) ([]Event, error) {
	_, players, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	clearVotes(players)
	if err := s.store.SavePlayers(ctx, players); err != nil {
		return nil, err
	}
	return s.roomUpdate(ctx, roomCode)
}

// Disconnect marks the player offline. Seats are never freed mid-game,
// so turn order and the role assignment stay stable.
func (s *Service) Disconnect(ctx context.Context, roomCode, sessionID string) ([]Event, error) {
	player, err := s.store.PlayerBySession(ctx, roomCode, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrPlayerNotFound) || errors.Is(err, ports.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}
	player.Connected = false
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return s.roomUpdate(ctx, roomCode)
}

// RemoveRoomIfEmpty deletes the room once nobody is connected and
// reports whether it did.
func (s *Service) RemoveRoomIfEmpty(ctx context.Context, roomCode string) (bool, error) {
	players, err := s.store.Players(ctx, roomCode)
	if err != nil {
		if errors.Is(err, ports.ErrRoomNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, p := range players {
		if p.Connected {
			return false, nil
		}
	}
	if err := s.store.DeleteRoom(ctx, roomCode); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot returns the current secrets-stripped room view, used when a
// presence needs the full state outside of a transition.
func (s *Service) Snapshot(ctx context.Context, roomCode string) (*RoomSnapshot, error) {
	room, players, err := s.load(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	quests, err := s.store.Quests(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	snap := snapshotRoom(room, players, quests)
	return &snap, nil
}

/* ---- helpers ---- */

func (s *Service) load(ctx context.Context, roomCode string) (*domain.Room, []*domain.Player, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	players, err := s.store.Players(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	return room, players, nil
}

func (s *Service) roomUpdate(ctx context.Context, roomCode string) ([]Event, error) {
	snap, err := s.Snapshot(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return []Event{broadcast(EventRoomUpdated, *snap)}, nil
}

func (s *Service) pickAvatar(room *domain.Room) string {
	if room.TakenAvatars == nil {
		room.TakenAvatars = map[string]bool{}
	}
	var free []string
	for _, a := range s.avatars {
		if !room.TakenAvatars[a] {
			free = append(free, a)
		}
	}
	var picked string
	if len(free) > 0 {
		picked = free[s.rng.Intn(len(free))]
	} else if len(s.avatars) > 0 {
		picked = s.avatars[s.rng.Intn(len(s.avatars))]
	}
	if picked != "" {
		room.TakenAvatars[picked] = true
	}
	return picked
}

func leaderOf(players []*domain.Player) string {
	for _, p := range players {
		if p.IsLeader {
			return p.SessionID
		}
	}
	return ""
}

func countNominated(players []*domain.Player) int {
	n := 0
	for _, p := range players {
		if p.Nominated {
			n++
		}
	}
	return n
}

func clearVotes(players []*domain.Player) {
	for _, p := range players {
		p.GlobalVote = domain.VoteUnset
		p.QuestVote = domain.VoteUnset
	}
}

func clearNominations(players []*domain.Player) {
	for _, p := range players {
		p.Nominated = false
	}
}

func rotateLeader(players []*domain.Player, room *domain.Room) {
	if len(players) == 0 {
		return
	}
	current := -1
	for _, p := range players {
		if p.IsLeader {
			current = p.Order
			break
		}
	}
	next := domain.NextLeaderOrder(current, len(players))
	for _, p := range players {
		p.IsLeader = p.Order == next
		if p.IsLeader {
			room.LeaderSessionID = p.SessionID
		}
	}
}

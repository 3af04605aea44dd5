package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"avalon/internal/app"
	"avalon/internal/bot"
	"avalon/internal/config"
	"avalon/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchLabel is the JSON label published for MatchList discovery.
type MatchLabel struct {
	Game  string `json:"game"`
	Code  string `json:"code"`
	Open  int    `json:"open"`
	Phase string `json:"phase"`
}

// MatchState holds the per-match runtime state for the Nakama handler.
// Authoritative room state lives behind the app service; this layer only
// tracks live presences and bot bookkeeping.
type MatchState struct {
	RoomCode string                      `json:"room_code"`
	Tick     int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // session id -> presence

	// Join metadata verified in MatchJoinAttempt, consumed in MatchJoin.
	PendingReconnects map[string]string `json:"-"` // session id -> room player id
	PendingNames      map[string]string `json:"-"` // session id -> requested name

	TokenSecret []byte        `json:"-"`
	TokenTTL    time.Duration `json:"-"`

	BotsEnabled          bool                  `json:"bots_enabled"`
	BotMinDelay          int                   `json:"bot_min_delay"`
	BotMaxDelay          int                   `json:"bot_max_delay"`
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`
	BotWaitUntil         int64                 `json:"bot_wait_until"`
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"`
	BotActKey            string                `json:"-"` // last phase key the bots acted in
	Bots                 map[string]*bot.Agent `json:"-"`
}

func (ms *MatchState) humanCount() int {
	return len(ms.Presences)
}

type matchHandler struct {
	app *app.Service
	rng *rand.Rand
}

// NewMatch returns the factory function registered with Nakama. Every
// match shares the one app service so rooms live in a single store.
func NewMatch(service *app.Service) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &matchHandler{
			app: service,
			rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		}, nil
	}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	roomCode, _ := params["room_code"].(string)
	if roomCode == "" {
		roomCode = generateRoomCode(config.RoomCodeLength())
	}

	state := &MatchState{
		RoomCode:          roomCode,
		Tick:              time.Now().Unix(),
		Presences:         make(map[string]runtime.Presence),
		PendingReconnects: make(map[string]string),
		PendingNames:      make(map[string]string),
		TokenSecret:       []byte("avalon-dev-secret"),
		TokenTTL:          time.Duration(config.PlayerTokenTTLHours()) * time.Hour,
		Bots:              make(map[string]*bot.Agent),
	}

	env := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["avalon_token_secret"]; ok && val != "" {
		state.TokenSecret = []byte(val)
	}
	if val, ok := env["avalon_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["avalon_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["avalon_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["avalon_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = 10
	}

	if err := mh.app.CreateRoom(ctx, roomCode, ""); err != nil {
		logger.Error("MatchInit: Failed to create room %s: %v", roomCode, err)
		return nil, 0, ""
	}

	label := &MatchLabel{Game: "avalon", Code: roomCode, Open: domain.MaxPlayers, Phase: string(domain.PhaseLobby)}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	sid := presence.GetSessionId()
	if name := metadata["name"]; name != "" {
		matchState.PendingNames[sid] = name
	}

	// A valid reconnect token reclaims an existing seat, so a full room
	// does not block it.
	if signed := metadata["reconnect_token"]; signed != "" {
		roomCode, playerID, err := parsePlayerToken(matchState.TokenSecret, signed)
		if err != nil || roomCode != matchState.RoomCode {
			return matchState, false, "invalid reconnect token"
		}
		matchState.PendingReconnects[sid] = playerID
		return matchState, true, ""
	}

	snap, err := mh.app.Snapshot(ctx, matchState.RoomCode)
	if err != nil {
		logger.Error("MatchJoinAttempt: Snapshot failed for room %s: %v", matchState.RoomCode, err)
		return matchState, false, "room not available"
	}
	if len(snap.Players) >= domain.MaxPlayers {
		return matchState, false, "room is full"
	}
	if snap.GameInProgress {
		return matchState, false, "game already in progress"
	}
	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		sid := p.GetSessionId()
		matchState.Presences[sid] = p

		name := matchState.PendingNames[sid]
		delete(matchState.PendingNames, sid)
		if name == "" {
			name = p.GetUsername()
		}

		if playerID, reconnecting := matchState.PendingReconnects[sid]; reconnecting {
			delete(matchState.PendingReconnects, sid)
			events, err := mh.app.Reconnect(ctx, matchState.RoomCode, playerID, sid)
			if err != nil {
				logger.Warn("MatchJoin: Reconnect of %s failed: %v", sid, err)
				mh.sendError(matchState, dispatcher, logger, sid, 404, "seat not found")
				continue
			}
			mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
			continue
		}

		snap, err := mh.app.Snapshot(ctx, matchState.RoomCode)
		if err != nil {
			logger.Error("MatchJoin: Snapshot failed: %v", err)
			continue
		}
		isHost := len(snap.Players) == 0
		events, err := mh.app.JoinRoom(ctx, matchState.RoomCode, sid, name, isHost)
		if err != nil {
			logger.Warn("MatchJoin: Join of %s failed: %v", sid, err)
			mh.sendError(matchState, dispatcher, logger, sid, 400, err.Error())
			continue
		}
		mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	}

	mh.updateLabel(ctx, matchState, dispatcher, logger)
	return matchState
}

// MatchLeave marks leavers as disconnected. Seats stay reserved for
// reconnection; the match ends once no human presence remains.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		sid := p.GetSessionId()
		delete(matchState.Presences, sid)
		events, err := mh.app.Disconnect(ctx, matchState.RoomCode, sid)
		if err != nil {
			logger.Warn("MatchLeave: Disconnect of %s failed: %v", sid, err)
			continue
		}
		mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	}

	if matchState.humanCount() == 0 {
		for botSID := range matchState.Bots {
			if _, err := mh.app.Disconnect(ctx, matchState.RoomCode, botSID); err != nil {
				logger.Warn("MatchLeave: Bot disconnect failed: %v", err)
			}
		}
		if removed, err := mh.app.RemoveRoomIfEmpty(ctx, matchState.RoomCode); err != nil {
			logger.Error("MatchLeave: Room cleanup failed: %v", err)
		} else if removed {
			logger.Info("MatchLeave: Room %s removed, terminating match.", matchState.RoomCode)
			return nil
		}
	}

	mh.updateLabel(ctx, matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		sid := msg.GetSessionId()
		var events []app.Event
		var err error

		switch msg.GetOpCode() {
		case OpStartGame:
			events, err = mh.app.StartGame(ctx, matchState.RoomCode, sid)
		case OpNominate:
			var req nominateRequest
			if err = json.Unmarshal(msg.GetData(), &req); err == nil {
				events, err = mh.app.Nominate(ctx, matchState.RoomCode, req.TargetID)
			}
		case OpConfirmParty:
			events, err = mh.app.ConfirmParty(ctx, matchState.RoomCode, sid)
		case OpGlobalVote:
			var req voteRequest
			if err = json.Unmarshal(msg.GetData(), &req); err == nil {
				if vote, ok := parseVote(req.Vote); ok {
					events, err = mh.app.CastGlobalVote(ctx, matchState.RoomCode, sid, vote)
				}
			}
		case OpQuestVote:
			var req voteRequest
			if err = json.Unmarshal(msg.GetData(), &req); err == nil {
				if vote, ok := parseVote(req.Vote); ok {
					events, err = mh.app.CastQuestVote(ctx, matchState.RoomCode, sid, vote)
				}
			}
		case OpAssassinate:
			var req assassinateRequest
			if err = json.Unmarshal(msg.GetData(), &req); err == nil {
				events, err = mh.app.Assassinate(ctx, matchState.RoomCode, sid, req.TargetID)
			}
		case OpToggleExtraRole:
			var req toggleRoleRequest
			if err = json.Unmarshal(msg.GetData(), &req); err == nil {
				events, err = mh.app.ToggleExtraRole(ctx, matchState.RoomCode, sid, domain.RoleKey(req.RoleKey))
			}
		case OpRename:
			var req renameRequest
			if err = json.Unmarshal(msg.GetData(), &req); err == nil && req.Name != "" {
				events, err = mh.app.RenamePlayer(ctx, matchState.RoomCode, sid, req.Name)
			}
		case OpStartNewVote:
			events, err = mh.app.StartNewVote(ctx, matchState.RoomCode)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}

		if err != nil {
			logger.Warn("MatchLoop: Op %d from %s failed: %v", msg.GetOpCode(), sid, err)
			mh.sendError(matchState, dispatcher, logger, sid, 400, err.Error())
			continue
		}
		mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	}

	if len(messages) > 0 {
		mh.updateLabel(ctx, matchState, dispatcher, logger)
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

type nominateRequest struct {
	TargetID string `json:"targetId"`
}

type voteRequest struct {
	Vote string `json:"vote"`
}

type assassinateRequest struct {
	TargetID string `json:"targetId"`
}

type toggleRoleRequest struct {
	RoleKey string `json:"roleKey"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func parseVote(raw string) (domain.Vote, bool) {
	switch domain.Vote(raw) {
	case domain.VoteYes:
		return domain.VoteYes, true
	case domain.VoteNo:
		return domain.VoteNo, true
	default:
		return domain.VoteUnset, false
	}
}

// dispatchEvents converts app events to opcodes and JSON payloads and
// hands them to the Nakama dispatcher.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64
	payload := ev.Payload

	switch ev.Kind {
	case app.EventRegistered:
		opCode = OpEvtRegistered
		// The room-scoped identity leaves the server only inside a
		// signed token.
		p := ev.Payload.(app.RegisteredPayload)
		signed, err := signPlayerToken(state.TokenSecret, state.RoomCode, p.Token, state.TokenTTL)
		if err != nil {
			logger.Error("Failed to sign player token: %v", err)
			return
		}
		payload = app.RegisteredPayload{Token: signed}
	case app.EventPlayers:
		opCode = OpEvtPlayers
	case app.EventQuests:
		opCode = OpEvtQuests
	case app.EventRoomUpdated:
		opCode = OpEvtRoomUpdated
	case app.EventRoleAssigned:
		opCode = OpEvtRoleAssigned
		// Briefings for bot seats feed the agent instead of the wire.
		if p, ok := ev.Payload.(app.RoleAssignedPayload); ok {
			for _, sid := range ev.Recipients {
				if agent, exists := state.Bots[sid]; exists {
					agent.Learn(p.RoleKey, p.Side, p.SecretInfo)
				}
			}
		}
	case app.EventPlayerVoted:
		opCode = OpEvtPlayerVoted
	case app.EventPlayerKilled:
		opCode = OpEvtPlayerKilled
	case app.EventPartyUndersized:
		opCode = OpEvtPartyMismatch
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, sid := range ev.Recipients {
			if p, ok := state.Presences[sid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Targeted events whose recipients are all offline or bots must
		// not fall back to a room broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// sendError sends an error payload to one session.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, sessionID string, code int, message string) {
	payload := map[string]interface{}{"code": code, "message": message}
	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal error payload: %v", err)
		return
	}

	presence, ok := state.Presences[sessionID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", sessionID)
		return
	}
	dispatcher.BroadcastMessage(OpEvtError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	snap, err := mh.app.Snapshot(ctx, state.RoomCode)
	if err != nil {
		return
	}

	label := &MatchLabel{
		Game:  "avalon",
		Code:  state.RoomCode,
		Open:  domain.MaxPlayers - len(snap.Players),
		Phase: string(phaseOf(snap)),
	}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func phaseOf(snap *app.RoomSnapshot) domain.Phase {
	switch {
	case snap.NominationInProgress:
		return domain.PhaseNomination
	case snap.GlobalVoteInProgress:
		return domain.PhaseGlobalVote
	case snap.QuestVoteInProgress:
		return domain.PhaseQuestVote
	case snap.AssassinationInProgress:
		return domain.PhaseAssassination
	case snap.RevealRoles:
		return domain.PhaseGameOver
	default:
		return domain.PhaseLobby
	}
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	snap, err := mh.app.Snapshot(ctx, state.RoomCode)
	if err != nil {
		return
	}
	phase := phaseOf(snap)

	// Auto-fill a lonely lobby up to a playable table after a delay.
	if phase == domain.PhaseLobby || phase == domain.PhaseGameOver {
		if state.humanCount() == 1 && len(snap.Players) < domain.MinPlayers {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
			}
			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				for i := len(snap.Players); i < domain.MinPlayers; i++ {
					identity := bot.IdentityFor(i)
					events, err := mh.app.JoinRoom(ctx, state.RoomCode, identity.SessionID, identity.Name, false)
					if err != nil {
						logger.Error("processBots: Failed to seat bot %s: %v", identity.SessionID, err)
						continue
					}
					state.Bots[identity.SessionID] = bot.NewAgent(identity.SessionID, mh.rng)
					logger.Info("processBots: Added bot %s (%s)", identity.Name, identity.SessionID)
					mh.dispatchEvents(ctx, state, dispatcher, logger, events)
				}
				mh.updateLabel(ctx, state, dispatcher, logger)
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	if len(state.Bots) == 0 {
		return
	}

	// One bot action burst per distinct game situation.
	actKey := fmt.Sprintf("%s|%d|%d", phase, snap.CurrentQuest, snap.MissedTeamVotes)
	if state.BotActKey == actKey {
		return
	}
	if state.BotWaitUntil == 0 {
		delay := mh.rng.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0
	state.BotActKey = actKey

	switch phase {
	case domain.PhaseNomination:
		agent, exists := state.Bots[snap.LeaderSessionID]
		if !exists {
			return
		}
		quest := activeQuestOf(snap)
		if quest == nil {
			return
		}
		candidates := make([]string, 0, len(snap.Players))
		for _, p := range snap.Players {
			candidates = append(candidates, p.SessionID)
		}
		for _, sid := range agent.PickParty(candidates, quest.PartySize) {
			events, err := mh.app.Nominate(ctx, state.RoomCode, sid)
			if err != nil {
				logger.Warn("processBots: Bot nomination failed: %v", err)
				return
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, events)
		}
		events, err := mh.app.ConfirmParty(ctx, state.RoomCode, agent.SessionID())
		if err != nil {
			logger.Warn("processBots: Bot party confirm failed: %v", err)
			return
		}
		mh.dispatchEvents(ctx, state, dispatcher, logger, events)

	case domain.PhaseGlobalVote:
		for _, agent := range state.Bots {
			events, err := mh.app.CastGlobalVote(ctx, state.RoomCode, agent.SessionID(), agent.DecideGlobalVote(snap.MissedTeamVotes))
			if err != nil {
				logger.Warn("processBots: Bot team vote failed: %v", err)
				continue
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, events)
		}

	case domain.PhaseQuestVote:
		for _, p := range snap.Players {
			agent, exists := state.Bots[p.SessionID]
			if !exists || !p.Nominated {
				continue
			}
			events, err := mh.app.CastQuestVote(ctx, state.RoomCode, agent.SessionID(), agent.DecideQuestVote())
			if err != nil {
				logger.Warn("processBots: Bot quest vote failed: %v", err)
				continue
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, events)
		}

	case domain.PhaseAssassination:
		names := make(map[string]string, len(snap.Players))
		for _, p := range snap.Players {
			names[p.SessionID] = p.Name
		}
		for _, agent := range state.Bots {
			target := agent.PickAssassinationTarget(names)
			if target == "" {
				continue
			}
			events, err := mh.app.Assassinate(ctx, state.RoomCode, agent.SessionID(), target)
			if err != nil {
				logger.Warn("processBots: Bot assassination failed: %v", err)
				continue
			}
			// Only the assassin's attempt produces events; the rest are
			// silent no-ops.
			if len(events) > 0 {
				mh.dispatchEvents(ctx, state, dispatcher, logger, events)
				break
			}
		}
	}

	mh.updateLabel(ctx, state, dispatcher, logger)
}

func activeQuestOf(snap *app.RoomSnapshot) *app.QuestSnapshot {
	for i := range snap.Quests {
		if snap.Quests[i].Active {
			return &snap.Quests[i]
		}
	}
	return nil
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

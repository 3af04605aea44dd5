package nakama

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"avalon/internal/app"
	"avalon/internal/bot"
	"avalon/internal/domain"
	"avalon/internal/store"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type broadcastRecord struct {
	opCode     int64
	data       []byte
	recipients int
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcasts   []broadcastRecord
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcasts = append(md.broadcasts, broadcastRecord{
		opCode:     opCode,
		data:       append([]byte(nil), data...),
		recipients: len(presences),
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) countOp(opCode int64) int {
	n := 0
	for _, b := range md.broadcasts {
		if b.opCode == opCode {
			n++
		}
	}
	return n
}

func (md *mockDispatcher) lastOp(opCode int64) (broadcastRecord, bool) {
	for i := len(md.broadcasts) - 1; i >= 0; i-- {
		if md.broadcasts[i].opCode == opCode {
			return md.broadcasts[i], true
		}
	}
	return broadcastRecord{}, false
}

// mockPresence implements runtime.Presence for a test session.
type mockPresence struct {
	userID    string
	sessionID string
	username  string
}

func (mp mockPresence) GetUserId() string                 { return mp.userID }
func (mp mockPresence) GetSessionId() string              { return mp.sessionID }
func (mp mockPresence) GetNodeId() string                 { return "node-1" }
func (mp mockPresence) GetHidden() bool                   { return false }
func (mp mockPresence) GetPersistence() bool              { return true }
func (mp mockPresence) GetUsername() string               { return mp.username }
func (mp mockPresence) GetStatus() string                 { return "" }
func (mp mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

// mockMatchData is a client message from a test session.
type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (md mockMatchData) GetOpCode() int64      { return md.opCode }
func (md mockMatchData) GetData() []byte       { return md.data }
func (md mockMatchData) GetReliable() bool     { return true }
func (md mockMatchData) GetReceiveTime() int64 { return 0 }

func presenceFor(i int) mockPresence {
	name := string(rune('a' + i))
	return mockPresence{
		userID:    "user-" + name,
		sessionID: "session-" + name,
		username:  "player-" + name,
	}
}

func newTestHandler(t *testing.T, code string) (*matchHandler, *MatchState) {
	t.Helper()
	service := app.NewService(store.NewMemory(), rand.New(rand.NewSource(1)), []string{
		"wizard", "knight", "archer", "rogue", "bard",
		"cleric", "druid", "paladin", "monk", "ranger",
	})
	if err := service.CreateRoom(context.Background(), code, ""); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	mh := &matchHandler{app: service, rng: rand.New(rand.NewSource(2))}
	state := &MatchState{
		RoomCode:          code,
		Presences:         make(map[string]runtime.Presence),
		PendingReconnects: make(map[string]string),
		PendingNames:      make(map[string]string),
		TokenSecret:       []byte("test-secret"),
		TokenTTL:          time.Hour,
		Bots:              make(map[string]*bot.Agent),
	}
	return mh, state
}

func joinPlayers(t *testing.T, mh *matchHandler, state *MatchState, dispatcher *mockDispatcher, n int) []mockPresence {
	t.Helper()
	presences := make([]mockPresence, n)
	for i := range presences {
		presences[i] = presenceFor(i)
	}
	runtimePresences := make([]runtime.Presence, n)
	for i, p := range presences {
		runtimePresences[i] = p
	}
	if out := mh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, runtimePresences); out == nil {
		t.Fatal("MatchJoin terminated the match")
	}
	return presences
}

func TestMatchLabelMarshal(t *testing.T) {
	label := &MatchLabel{Game: "avalon", Code: "KWTZ", Open: 5, Phase: "lobby"}
	b, err := json.Marshal(label)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"game":"avalon","code":"KWTZ","open":5,"phase":"lobby"}`
	if string(b) != want {
		t.Errorf("label = %s, want %s", b, want)
	}
}

func TestParseVote(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Vote
		ok   bool
	}{
		{"yes", domain.VoteYes, true},
		{"no", domain.VoteNo, true},
		{"", domain.VoteUnset, false},
		{"maybe", domain.VoteUnset, false},
	}
	for _, test := range tests {
		got, ok := parseVote(test.raw)
		if got != test.want || ok != test.ok {
			t.Errorf("parseVote(%q) = (%v, %t), want (%v, %t)", test.raw, got, ok, test.want, test.ok)
		}
	}
}

func TestGenerateRoomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := generateRoomCode(4)
		if len(code) != 4 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if r == 'I' || r == 'O' {
				t.Fatalf("code %q contains an ambiguous letter", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("room codes do not vary")
	}
}

func TestMatchJoinSeatsFirstPlayerAsHost(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}

	joinPlayers(t, mh, state, dispatcher, 1)

	snap, err := mh.app.Snapshot(context.Background(), "KWTZ")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Players) != 1 || !snap.Players[0].IsHost {
		t.Fatalf("first joiner is not seated as host: %+v", snap.Players)
	}
	if snap.HostSessionID != "session-a" {
		t.Errorf("host binding = %q, want session-a", snap.HostSessionID)
	}

	reg, ok := dispatcher.lastOp(OpEvtRegistered)
	if !ok {
		t.Fatal("no registered event broadcast")
	}
	if reg.recipients != 1 {
		t.Errorf("registered event reached %d presences, want 1", reg.recipients)
	}
	var payload app.RegisteredPayload
	if err := json.Unmarshal(reg.data, &payload); err != nil {
		t.Fatalf("registered payload: %v", err)
	}
	roomCode, playerID, err := parsePlayerToken(state.TokenSecret, payload.Token)
	if err != nil {
		t.Fatalf("registered token does not verify: %v", err)
	}
	if roomCode != "KWTZ" || playerID == "" {
		t.Errorf("token carries (%q, %q)", roomCode, playerID)
	}

	if dispatcher.countOp(OpEvtPlayers) == 0 {
		t.Error("no roster broadcast after join")
	}
	if dispatcher.labelUpdates == 0 {
		t.Error("label not updated after join")
	}
}

func TestMatchLoopStartGameDealsPrivateRoles(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}
	presences := joinPlayers(t, mh, state, dispatcher, 5)

	msg := mockMatchData{mockPresence: presences[0], opCode: OpStartGame}
	out := mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{msg})
	if out == nil {
		t.Fatal("MatchLoop terminated the match")
	}

	snap, err := mh.app.Snapshot(context.Background(), "KWTZ")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.GameInProgress || !snap.NominationInProgress {
		t.Fatalf("game did not start: %+v", snap)
	}

	if got := dispatcher.countOp(OpEvtRoleAssigned); got != 5 {
		t.Fatalf("got %d role events, want 5", got)
	}
	for _, b := range dispatcher.broadcasts {
		if b.opCode == OpEvtRoleAssigned && b.recipients != 1 {
			t.Errorf("role event reached %d presences, want 1", b.recipients)
		}
	}

	var label MatchLabel
	if err := json.Unmarshal([]byte(dispatcher.lastLabel), &label); err != nil {
		t.Fatalf("label: %v", err)
	}
	if label.Phase != string(domain.PhaseNomination) {
		t.Errorf("label phase = %q, want nomination", label.Phase)
	}
}

func TestMatchLoopIgnoresNonHostStart(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}
	presences := joinPlayers(t, mh, state, dispatcher, 5)

	msg := mockMatchData{mockPresence: presences[3], opCode: OpStartGame}
	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{msg})

	snap, _ := mh.app.Snapshot(context.Background(), "KWTZ")
	if snap.GameInProgress {
		t.Error("non-host started the game")
	}
}

func TestBroadcastEventDropsOfflineTargets(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}

	ev := app.Event{
		Kind:       app.EventRoleAssigned,
		Payload:    app.RoleAssignedPayload{RoleKey: domain.RoleServant},
		Recipients: []string{"ghost-session"},
	}
	mh.broadcastEvent(context.Background(), state, dispatcher, noopLogger{}, ev)

	if len(dispatcher.broadcasts) != 0 {
		t.Fatal("targeted event with no connected recipient must not be broadcast")
	}
}

func TestBroadcastEventFeedsBotBriefings(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}
	agent := bot.NewAgent("bot:0", rand.New(rand.NewSource(3)))
	state.Bots["bot:0"] = agent

	ev := app.Event{
		Kind: app.EventRoleAssigned,
		Payload: app.RoleAssignedPayload{
			RoleKey:    domain.RoleMinion,
			Side:       domain.SideEvil,
			SecretInfo: "Evil players are: Vex",
		},
		Recipients: []string{"bot:0"},
	}
	mh.broadcastEvent(context.Background(), state, dispatcher, noopLogger{}, ev)

	if len(dispatcher.broadcasts) != 0 {
		t.Error("bot briefing leaked to the wire")
	}
	if agent.DecideQuestVote() != domain.VoteNo {
		t.Error("agent did not learn its side from the briefing")
	}
}

func TestMatchLeaveTerminatesEmptyMatch(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}
	presences := joinPlayers(t, mh, state, dispatcher, 2)

	out := mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.Presence{presences[0]})
	if out == nil {
		t.Fatal("match terminated while a player is still connected")
	}

	out = mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state, []runtime.Presence{presences[1]})
	if out != nil {
		t.Fatal("match kept running with no one connected")
	}
	if _, err := mh.app.Snapshot(context.Background(), "KWTZ"); err == nil {
		t.Error("room survived match termination")
	}
}

func TestMatchJoinReconnectRestoresSeat(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}
	presences := joinPlayers(t, mh, state, dispatcher, 5)

	msg := mockMatchData{mockPresence: presences[0], opCode: OpStartGame}
	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{msg})

	// Grab the signed token dealt to the last joiner.
	var signed string
	for _, b := range dispatcher.broadcasts {
		if b.opCode == OpEvtRegistered {
			var payload app.RegisteredPayload
			if err := json.Unmarshal(b.data, &payload); err != nil {
				t.Fatalf("registered payload: %v", err)
			}
			signed = payload.Token
		}
	}
	if signed == "" {
		t.Fatal("no registered token captured")
	}

	leaver := presences[4]
	mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.Presence{leaver})

	fresh := mockPresence{userID: leaver.userID, sessionID: "session-fresh", username: leaver.username}
	_, allowed, _ := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state, fresh, map[string]string{
		"reconnect_token": signed,
	})
	if !allowed {
		t.Fatal("reconnect attempt rejected")
	}
	dispatcher.broadcasts = nil
	mh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 5, state, []runtime.Presence{fresh})

	if got := dispatcher.countOp(OpEvtRoleAssigned); got != 1 {
		t.Errorf("reconnect re-sent %d role events, want 1", got)
	}
	snap, _ := mh.app.Snapshot(context.Background(), "KWTZ")
	found := false
	for _, p := range snap.Players {
		if p.SessionID == "session-fresh" {
			found = true
			if !p.Connected {
				t.Error("reconnected seat still marked offline")
			}
		}
	}
	if !found {
		t.Error("reconnected session holds no seat")
	}
}

func TestMatchJoinAttemptRejectsMidGameStrangers(t *testing.T) {
	mh, state := newTestHandler(t, "KWTZ")
	dispatcher := &mockDispatcher{}
	presences := joinPlayers(t, mh, state, dispatcher, 5)

	msg := mockMatchData{mockPresence: presences[0], opCode: OpStartGame}
	mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{msg})

	stranger := mockPresence{userID: "user-z", sessionID: "session-z", username: "zed"}
	_, allowed, reason := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state, stranger, nil)
	if allowed {
		t.Fatal("stranger joined a game in progress")
	}
	if reason == "" {
		t.Error("rejection carries no reason")
	}
}

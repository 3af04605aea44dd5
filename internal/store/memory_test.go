package store

import (
	"context"
	"testing"

	"avalon/internal/domain"
	"avalon/internal/ports"
)

func TestRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetRoom(ctx, "ABCD"); err != ports.ErrRoomNotFound {
		t.Fatalf("GetRoom on empty store error = %v, want ErrRoomNotFound", err)
	}

	room := &domain.Room{Code: "ABCD", Phase: domain.PhaseLobby, HostSessionID: "s1"}
	if err := m.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}

	// findOrCreate: a second create keeps the original.
	if err := m.CreateRoom(ctx, &domain.Room{Code: "ABCD", HostSessionID: "other"}); err != nil {
		t.Fatalf("CreateRoom (existing) error: %v", err)
	}
	got, err := m.GetRoom(ctx, "ABCD")
	if err != nil {
		t.Fatalf("GetRoom error: %v", err)
	}
	if got.HostSessionID != "s1" {
		t.Errorf("host = %q, want original s1", got.HostSessionID)
	}

	if err := m.DeleteRoom(ctx, "ABCD"); err != nil {
		t.Fatalf("DeleteRoom error: %v", err)
	}
	if _, err := m.GetRoom(ctx, "ABCD"); err != ports.ErrRoomNotFound {
		t.Fatalf("GetRoom after delete error = %v, want ErrRoomNotFound", err)
	}
}

func TestReturnedValuesDoNotAliasStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateRoom(ctx, &domain.Room{Code: "ABCD", GameMessage: "hello"}); err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}

	first, _ := m.GetRoom(ctx, "ABCD")
	first.GameMessage = "mutated"

	second, _ := m.GetRoom(ctx, "ABCD")
	if second.GameMessage != "hello" {
		t.Errorf("store state mutated through a returned value: %q", second.GameMessage)
	}
}

func TestPlayersOrderedBySeat(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateRoom(ctx, &domain.Room{Code: "ABCD"}); err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}

	for _, p := range []*domain.Player{
		{RoomCode: "ABCD", SessionID: "s3", Token: "t3", Order: 2},
		{RoomCode: "ABCD", SessionID: "s1", Token: "t1", Order: 0},
		{RoomCode: "ABCD", SessionID: "s2", Token: "t2", Order: 1},
	} {
		if err := m.CreatePlayer(ctx, p); err != nil {
			t.Fatalf("CreatePlayer error: %v", err)
		}
	}

	players, err := m.Players(ctx, "ABCD")
	if err != nil {
		t.Fatalf("Players error: %v", err)
	}
	for i, p := range players {
		if p.Order != i {
			t.Errorf("players[%d].Order = %d, want %d", i, p.Order, i)
		}
	}
}

func TestReconnectRekeysPlayer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateRoom(ctx, &domain.Room{Code: "ABCD"}); err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	if err := m.CreatePlayer(ctx, &domain.Player{RoomCode: "ABCD", SessionID: "old", Token: "tok"}); err != nil {
		t.Fatalf("CreatePlayer error: %v", err)
	}

	player, err := m.PlayerByToken(ctx, "ABCD", "tok")
	if err != nil {
		t.Fatalf("PlayerByToken error: %v", err)
	}
	player.SessionID = "new"
	player.Connected = true
	if err := m.SavePlayer(ctx, player); err != nil {
		t.Fatalf("SavePlayer error: %v", err)
	}

	if _, err := m.PlayerBySession(ctx, "ABCD", "old"); err != ports.ErrPlayerNotFound {
		t.Errorf("stale session lookup error = %v, want ErrPlayerNotFound", err)
	}
	got, err := m.PlayerBySession(ctx, "ABCD", "new")
	if err != nil {
		t.Fatalf("PlayerBySession error: %v", err)
	}
	if !got.Connected {
		t.Error("reconnected player should be connected")
	}

	players, _ := m.Players(ctx, "ABCD")
	if len(players) != 1 {
		t.Errorf("players = %d, want 1 after rekey", len(players))
	}
}

func TestQuestStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateRoom(ctx, &domain.Room{Code: "ABCD"}); err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}

	quests, err := domain.QuestsFor("ABCD", 5)
	if err != nil {
		t.Fatalf("QuestsFor error: %v", err)
	}
	if err := m.ReplaceQuests(ctx, "ABCD", quests); err != nil {
		t.Fatalf("ReplaceQuests error: %v", err)
	}

	active, err := m.ActiveQuest(ctx, "ABCD")
	if err != nil {
		t.Fatalf("ActiveQuest error: %v", err)
	}
	if active.Number != 1 {
		t.Errorf("active quest = %d, want 1", active.Number)
	}

	active.Result = domain.QuestFail
	active.Active = false
	if err := m.SaveQuest(ctx, active); err != nil {
		t.Fatalf("SaveQuest error: %v", err)
	}

	stored, _ := m.Quests(ctx, "ABCD")
	if stored[0].Result != domain.QuestFail {
		t.Errorf("quest 1 result = %q, want fail", stored[0].Result)
	}
}

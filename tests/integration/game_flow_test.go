package integration

import (
	"encoding/json"
	"testing"
	"time"
)

// Opcodes mirrored from the server module.
const (
	OpStartGame  int64 = 1
	OpNominate   int64 = 2
	OpConfirm    int64 = 3
	OpGlobalVote int64 = 4

	OpEvtRegistered   int64 = 101
	OpEvtPlayers      int64 = 102
	OpEvtRoomUpdated  int64 = 104
	OpEvtRoleAssigned int64 = 105
)

type registeredEvent struct {
	Token string `json:"token"`
}

type roleAssignedEvent struct {
	RoleName string `json:"roleName"`
	RoleKey  string `json:"roleKey"`
	Side     string `json:"side"`
}

type roomUpdatedEvent struct {
	RoomCode             string `json:"roomCode"`
	GameInProgress       bool   `json:"gameInProgress"`
	NominationInProgress bool   `json:"nominationInProgress"`
	Players              []struct {
		SessionID string `json:"sessionId"`
		Name      string `json:"name"`
		RoleKey   string `json:"roleKey"`
	} `json:"players"`
}

func TestFullGameStart(t *testing.T) {
	// 1. Create 5 clients, the minimum table.
	clients := make([]*TestClient, 5)
	names := []string{"arthur", "guin", "lance", "gala", "percy"}
	for i := range clients {
		clients[i] = NewTestClient(t)
		defer clients[i].Close()
	}
	t.Log("Created 5 clients")

	// 2. Client 0 opens a room and the rest join by its code.
	matchID, roomCode := clients[0].CreateRoom(t, names[0])
	t.Logf("Client 0 created room %s (match %s)", roomCode, matchID)

	for i := 1; i < len(clients); i++ {
		clients[i].JoinRoom(t, roomCode, names[i])
		t.Logf("Client %d joined room %s", i, roomCode)
	}

	// Every joiner gets a reconnect token.
	for i, c := range clients {
		data := c.WaitForMatchState(t, OpEvtRegistered, 5*time.Second)
		var event registeredEvent
		if err := json.Unmarshal(data.Data, &event); err != nil {
			t.Fatalf("Client %d registered payload: %v", i, err)
		}
		if event.Token == "" {
			t.Errorf("Client %d got no reconnect token", i)
		}
	}

	// Wait a bit for presences to sync
	time.Sleep(1 * time.Second)

	// 3. The host starts the game.
	t.Log("Client 0 sending StartGame...")
	clients[0].SendOp(t, matchID, OpStartGame, nil)

	// 4. Every client gets a private briefing; the broadcast snapshot
	// shows the nomination phase with no roles attached.
	for i, c := range clients {
		data := c.WaitForMatchState(t, OpEvtRoleAssigned, 5*time.Second)
		var event roleAssignedEvent
		if err := json.Unmarshal(data.Data, &event); err != nil {
			t.Fatalf("Client %d role payload: %v", i, err)
		}
		if event.RoleKey == "" || event.Side == "" {
			t.Errorf("Client %d briefing incomplete: %+v", i, event)
		}
		t.Logf("Client %d plays %s", i, event.RoleName)
	}

	for i, c := range clients {
		data := c.WaitForMatchState(t, OpEvtRoomUpdated, 5*time.Second)
		var event roomUpdatedEvent
		if err := json.Unmarshal(data.Data, &event); err != nil {
			t.Fatalf("Client %d room payload: %v", i, err)
		}
		if !event.GameInProgress || !event.NominationInProgress {
			t.Errorf("Client %d sees the game not started: %+v", i, event)
		}
		for _, p := range event.Players {
			if p.RoleKey != "" {
				t.Errorf("Client %d sees %s's role in a broadcast", i, p.Name)
			}
		}
	}

	t.Log("TestPassed: Game started with 5 players and private briefings.")
}

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	Socket  *nakama.Socket
	UserID  string
}

type roomResponse struct {
	MatchID  string `json:"match_id"`
	RoomCode string `json:"room_code"`
}

func NewTestClient(t *testing.T) *TestClient {
	client := nakama.NewClient(ServerKey, Host, Port, false)

	// Create unique ID
	deviceID := fmt.Sprintf("test_device_%d", time.Now().UnixNano())

	// Authenticate
	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	// Create Socket
	socket := client.NewSocket()
	if err := socket.Connect(context.Background(), session, true); err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}

	return &TestClient{
		Client:  client,
		Session: session,
		Socket:  socket,
		UserID:  session.UserId,
	}
}

func (tc *TestClient) Close() {
	if tc.Socket != nil {
		tc.Socket.Close()
	}
}

// CreateRoom calls the 'create_room' RPC and joins the returned match.
func (tc *TestClient) CreateRoom(t *testing.T, name string) (matchID, roomCode string) {
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, "create_room", "{}")
	if err != nil {
		t.Fatalf("RPC create_room failed: %v", err)
	}

	var resp roomResponse
	if err := json.Unmarshal([]byte(rpc.Payload), &resp); err != nil {
		t.Fatalf("create_room payload: %v", err)
	}
	if resp.MatchID == "" || resp.RoomCode == "" {
		t.Fatalf("create_room returned incomplete response: %s", rpc.Payload)
	}

	tc.joinMatch(t, resp.MatchID, name)
	return resp.MatchID, resp.RoomCode
}

// JoinRoom resolves a room code via the 'find_room' RPC and joins the match.
func (tc *TestClient) JoinRoom(t *testing.T, roomCode, name string) string {
	payload, _ := json.Marshal(map[string]string{"room_code": roomCode})
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, "find_room", string(payload))
	if err != nil {
		t.Fatalf("RPC find_room failed: %v", err)
	}

	var resp roomResponse
	if err := json.Unmarshal([]byte(rpc.Payload), &resp); err != nil {
		t.Fatalf("find_room payload: %v", err)
	}

	tc.joinMatch(t, resp.MatchID, name)
	return resp.MatchID
}

func (tc *TestClient) joinMatch(t *testing.T, matchID, name string) {
	metadata := map[string]string{"name": name}
	if _, err := tc.Socket.JoinMatch(context.Background(), nil, matchID, metadata); err != nil {
		t.Fatalf("Failed to join match %s: %v", matchID, err)
	}
}

// SendOp sends one client message with a JSON payload.
func (tc *TestClient) SendOp(t *testing.T, matchID string, opCode int64, payload interface{}) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal op %d payload: %v", opCode, err)
		}
	}
	if _, err := tc.Socket.SendMatchState(context.Background(), matchID, opCode, data, nil); err != nil {
		t.Fatalf("Failed to send op %d: %v", opCode, err)
	}
}

// WaitForMatchState waits for a specific opcode from the socket.
func (tc *TestClient) WaitForMatchState(t *testing.T, opCode int64, timeout time.Duration) *rtapi.MatchData {
	ch := make(chan *rtapi.MatchData)

	originalHandler := tc.Socket.OnMatchData
	tc.Socket.OnMatchData = func(data *rtapi.MatchData) {
		if data.OpCode == opCode {
			ch <- data
		}
		if originalHandler != nil {
			originalHandler(data)
		}
	}

	select {
	case data := <-ch:
		return data
	case <-time.After(timeout):
		t.Fatalf("Timeout waiting for OpCode %d", opCode)
		return nil
	}
}

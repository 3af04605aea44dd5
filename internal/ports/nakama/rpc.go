package nakama

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"

	"avalon/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// RoomResponse is the payload returned from the room RPCs.
type RoomResponse struct {
	MatchID  string `json:"match_id"`
	RoomCode string `json:"room_code"`
	IsNew    bool   `json:"is_new"`
}

type findRoomRequest struct {
	RoomCode string `json:"room_code"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcFindRoom, rpcFindRoom)
}

// Room codes avoid I and O to keep them readable over voice.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

func generateRoomCode(length int) string {
	buf := make([]byte, length)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(buf)
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var code string
	for attempt := 0; attempt < 5; attempt++ {
		candidate := generateRoomCode(config.RoomCodeLength())
		query := fmt.Sprintf("+label.%s:%s", MatchLabelKey_Code, candidate)
		matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
		if err != nil {
			logger.Error("rpcCreateRoom: MatchList error: %v", err)
			return "", err
		}
		if len(matches) == 0 {
			code = candidate
			break
		}
	}
	if code == "" {
		return "", runtime.NewError("could not allocate a room code", 8)
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameAvalon, map[string]interface{}{"room_code": code})
	if err != nil {
		logger.Error("rpcCreateRoom: MatchCreate error: %v", err)
		return "", err
	}

	resp := RoomResponse{MatchID: matchID, RoomCode: code, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcFindRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req findRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.RoomCode == "" {
		return "", runtime.NewError("room_code is required", 3)
	}

	query := fmt.Sprintf("+label.%s:%s", MatchLabelKey_Code, req.RoomCode)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		logger.Error("rpcFindRoom: MatchList error: %v", err)
		return "", err
	}
	if len(matches) == 0 {
		return "", runtime.NewError("room not found", 5)
	}

	resp := RoomResponse{MatchID: matches[0].MatchId, RoomCode: req.RoomCode}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

package nakama

import (
	"context"
	"database/sql"

	"avalon/internal/app"
	"avalon/internal/config"
	"avalon/internal/store"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks and match handlers for the Nakama runtime.
// All matches share one in-memory store so a room outlives any single
// connection within its match.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("InitModule: Could not load game config: %v", err)
	}

	service := app.NewService(store.NewMemory(), nil, config.Avatars())

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameAvalon, NewMatch(service)); err != nil {
		return err
	}

	logger.Info("Avalon Go module loaded.")
	return nil
}

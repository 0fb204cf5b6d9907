// internal/database/result.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openroyale/royaled/internal/models"
)

// InsertMatchResultTx persists one finished-round record inside an existing
// transaction. Used by the historian's batch flush.
func InsertMatchResultTx(ctx context.Context, tx pgx.Tx, r models.MatchResult) error {
	q := `
		INSERT INTO match_results (
			match_id, world, mode, private, winner_name, winner_username, player_count, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, q,
		r.MatchID, r.World, r.Mode, r.Private, r.WinnerName, r.WinnerUser, r.PlayerCount, r.FinishedAt,
	)
	return err
}

package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/vinhpn/boardroom/internal/cache"
)

// InsertMatchRecords persists a batch of finished matches in one
// transaction. The same room code reappears across rematches, so rows are
// keyed by (game, room_id, finished_at).
func InsertMatchRecords(ctx context.Context, records []cache.MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO matches (game, room_id, status, winner, move_count, moves, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (game, room_id, finished_at) DO NOTHING
		`
		for _, rec := range records {
			if _, err := tx.Exec(ctx, q,
				rec.Game,
				rec.RoomID,
				rec.Status,
				rec.Winner,
				rec.MoveCount,
				rec.Moves,
				rec.FinishedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Insert(ctx context.Context, ns []domain.Notification) (int, error) {
	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(`
			INSERT INTO notifications (id, source_event_id, user_id, order_id, kind, title, body, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (source_event_id, kind, user_id) DO NOTHING`,
			n.ID, n.SourceEventID, n.UserID, n.OrderID, n.Kind, n.Title, n.Body, n.CreatedAt)
	}
	br := r.pool.SendBatch(ctx, batch)

	inserted := 0
	for range ns {
		ct, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		inserted += int(ct.RowsAffected())
	}
	return inserted, br.Close()
}

func (r *Repository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, source_event_id, user_id, order_id, kind, title, body, read_at, created_at
		FROM notifications
		WHERE user_id=$1 AND (NOT $2 OR read_at IS NULL)
		ORDER BY created_at DESC, id
		LIMIT $3`, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
		var n domain.Notification
		err := row.Scan(&n.ID, &n.SourceEventID, &n.UserID, &n.OrderID, &n.Kind, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt)
		return n, err
	})
}

func (r *Repository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	ct, err := r.pool.Exec(ctx, `UPDATE notifications SET read_at=COALESCE(read_at, $3) WHERE id=$1 AND user_id=$2`, id, userID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("notification %s not found", id)
	}
	return nil
}

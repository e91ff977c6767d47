package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	orderpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/database"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const columns = `id, order_id, amount, method, status, transaction_id, gateway_response, created_at, updated_at`

func scan(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var raw []byte
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.TransactionID, &raw, &p.CreatedAt, &p.UpdatedAt)
	p.GatewayResponse = raw
	return p, err
}

// jsonb returns nil for an empty response so the column stays NULL.
func jsonb(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *Repository) Create(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (`+columns+`) VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9)`,
		p.ID, p.OrderID, p.Amount, p.Method, p.Status, p.TransactionID, jsonb(p.GatewayResponse), p.CreatedAt, p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("transaction already recorded for another payment")
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Payment, error) {
	p, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM payments WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, apperr.NotFound("payment %s not found", id)
	}
	return p, err
}

func (r *Repository) FindByTransaction(ctx context.Context, transactionID string) (domain.Payment, error) {
	p, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM payments WHERE transaction_id=$1`, transactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, apperr.NotFound("payment for transaction %s not found", transactionID)
	}
	return p, err
}

func (r *Repository) ListForOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM payments WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Payment, error) {
		return scan(row)
	})
}

func (r *Repository) Transition(ctx context.Context, paymentID string, fn application.TransitionFunc) (domain.Payment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Payment{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	pay, err := scan(tx.QueryRow(ctx, `SELECT `+columns+` FROM payments WHERE id=$1 FOR UPDATE`, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, apperr.NotFound("payment %s not found", paymentID)
	}
	if err != nil {
		return domain.Payment{}, err
	}
	o, err := orderpg.GetForUpdate(ctx, tx, pay.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}

	t, err := fn(pay, o)
	if err != nil {
		return domain.Payment{}, err
	}
	if t == nil {
		return pay, tx.Commit(ctx)
	}

	p := t.Payment
	if _, err := tx.Exec(ctx, `UPDATE payments SET status=$2, gateway_response=COALESCE($3::jsonb, gateway_response), updated_at=$4 WHERE id=$1`,
		p.ID, p.Status, jsonb(p.GatewayResponse), p.UpdatedAt); err != nil {
		return domain.Payment{}, err
	}
	if t.Mutation != nil {
		if err := orderpg.ApplyTx(ctx, r.log, tx, *t.Mutation); err != nil {
			return domain.Payment{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log,
		pool: pool,
	}
}

const columns = `id, restaurant_id, menu_item_id, variant_id, quantity, reorder_threshold, status, updated_at`

func scan(row pgx.Row) (domain.Record, error) {
	var r domain.Record
	err := row.Scan(&r.ID, &r.RestaurantID, &r.MenuItemID, &r.VariantID, &r.Quantity, &r.ReorderThreshold, &r.Status, &r.UpdatedAt)
	return r, err
}

func (r *Repository) Get(ctx context.Context, menuItemID string, variantID *string) (*domain.Record, error) {
	rec, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM inventory WHERE menu_item_id=$1 AND variant_key=COALESCE($2::text, '')`, menuItemID, variantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Record, error) {
	rec, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM inventory WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, apperr.NotFound("inventory %s not found", id)
	}
	return rec, err
}

// Upsert keys on (menu_item_id, variant_key); an existing row keeps its id.
func (r *Repository) Upsert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Record{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	out, err := scan(tx.QueryRow(ctx, `
		INSERT INTO inventory (id, restaurant_id, menu_item_id, variant_id, quantity, reorder_threshold, status, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		ON CONFLICT (menu_item_id, variant_key) DO UPDATE
		SET quantity=EXCLUDED.quantity, reorder_threshold=EXCLUDED.reorder_threshold, status=EXCLUDED.status, updated_at=now()
		RETURNING `+columns,
		rec.ID, rec.RestaurantID, rec.MenuItemID, rec.VariantID, rec.Quantity, rec.ReorderThreshold, rec.Status))
	if err != nil {
		return domain.Record{}, err
	}
	if err := syncMenuItemStatus(ctx, tx, out); err != nil {
		return domain.Record{}, err
	}
	return out, tx.Commit(ctx)
}

func (r *Repository) Adjust(ctx context.Context, adj domain.Adjustment, actorID string) (*domain.Record, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rec, err := AdjustTx(ctx, tx, adj, actorID)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec, tx.Commit(ctx)
}

// AdjustTx applies adj on tx under a row lock so concurrent adjustments of
// the same row serialise. It returns nil, nil when no ledger row exists.
func AdjustTx(ctx context.Context, tx pgx.Tx, adj domain.Adjustment, actorID string) (*domain.Record, error) {
	rec, err := scan(tx.QueryRow(ctx, `SELECT `+columns+` FROM inventory WHERE menu_item_id=$1 AND variant_key=COALESCE($2::text, '') FOR UPDATE`,
		adj.MenuItemID, adj.VariantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Apply(adj.QuantityChange)
	rec.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE inventory SET quantity=$2, status=$3, updated_at=$4 WHERE id=$1`,
		rec.ID, rec.Quantity, rec.Status, rec.UpdatedAt); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_adjustments (inventory_id, delta, resulting_quantity, reason, notes, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.ID, adj.QuantityChange, rec.Quantity, adj.Reason, adj.Notes, actorID); err != nil {
		return nil, err
	}
	if err := syncMenuItemStatus(ctx, tx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// syncMenuItemStatus refreshes the display cache on the menu item for
// item-level rows. Discontinued items stay discontinued.
func syncMenuItemStatus(ctx context.Context, tx pgx.Tx, rec domain.Record) error {
	if rec.VariantID != nil {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE menu_items SET stock_status=$2, updated_at=now() WHERE id=$1 AND stock_status <> $3`,
		rec.MenuItemID, rec.Status, catalog.Discontinued)
	return err
}

func (r *Repository) ListLowStock(ctx context.Context, restaurantID string) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM inventory WHERE restaurant_id=$1 AND status <> $2 ORDER BY quantity, menu_item_id`,
		restaurantID, catalog.InStock)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Record, error) {
		return scan(row)
	})
}

func (r *Repository) History(ctx context.Context, inventoryID string, limit int) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, inventory_id, delta, resulting_quantity, reason, notes, actor_id, created_at
		FROM inventory_adjustments WHERE inventory_id=$1 ORDER BY id DESC LIMIT $2`, inventoryID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Entry, error) {
		var e domain.Entry
		err := row.Scan(&e.ID, &e.InventoryID, &e.Delta, &e.ResultingQuantity, &e.Reason, &e.Notes, &e.ActorID, &e.CreatedAt)
		return e, err
	})
}

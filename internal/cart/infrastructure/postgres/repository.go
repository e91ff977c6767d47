package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/cart/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	var c domain.Cart
	err := r.pool.QueryRow(ctx, `
		INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at`, uuid.NewString(), userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Cart{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ci.id, ci.menu_item_id, ci.variant_id, m.restaurant_id,
			m.title || COALESCE(' (' || v.name || ')', ''),
			COALESCE(v.final_price, m.final_price), ci.quantity
		FROM cart_items ci
		JOIN menu_items m ON m.id = ci.menu_item_id
		LEFT JOIN menu_item_variants v ON v.id = ci.variant_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`, c.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Item, error) {
		var it domain.Item
		err := row.Scan(&it.ID, &it.MenuItemID, &it.VariantID, &it.RestaurantID, &it.Title, &it.UnitPrice, &it.Quantity)
		return it, err
	})
	return c, err
}

// AddItem is one statement so concurrent adds of the same line cannot
// create duplicates or lose an increment.
func (r *Repository) AddItem(ctx context.Context, cartID string, it domain.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, menu_item_id, variant_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, menu_item_id, variant_key)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		it.ID, cartID, it.MenuItemID, it.VariantID, it.Quantity)
	if err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *Repository) SetQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND id=$2`, cartID, itemID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item %s not found", itemID)
	}
	return r.touch(ctx, cartID)
}

func (r *Repository) RemoveItems(ctx context.Context, cartID string, itemIDs ...string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND id = ANY($2)`, cartID, itemIDs); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *Repository) Clear(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *Repository) touch(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID)
	return err
}

package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const restaurantColumns = `id, owner_id, tenant_id, name, is_active, created_at, updated_at`

func scanRestaurant(row pgx.Row) (domain.Restaurant, error) {
	var r domain.Restaurant
	err := row.Scan(&r.ID, &r.OwnerID, &r.TenantID, &r.Name, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *Repository) CreateRestaurant(ctx context.Context, rest domain.Restaurant) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO restaurants (`+restaurantColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rest.ID, rest.OwnerID, rest.TenantID, rest.Name, rest.IsActive, rest.CreatedAt, rest.UpdatedAt)
	return err
}

func (r *Repository) UpdateRestaurant(ctx context.Context, rest domain.Restaurant) error {
	ct, err := r.pool.Exec(ctx, `UPDATE restaurants SET name=$2, is_active=$3, updated_at=$4 WHERE id=$1`,
		rest.ID, rest.Name, rest.IsActive, rest.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("restaurant %s not found", rest.ID)
	}
	return nil
}

func (r *Repository) GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error) {
	rest, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Restaurant{}, apperr.NotFound("restaurant %s not found", id)
	}
	return rest, err
}

func (r *Repository) ListRestaurants(ctx context.Context, activeOnly bool) ([]domain.Restaurant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE is_active OR NOT $1 ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Restaurant, error) {
		return scanRestaurant(row)
	})
}

func (r *Repository) AddStaff(ctx context.Context, restaurantID, userID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO restaurant_staff (restaurant_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, restaurantID, userID)
	return err
}

func (r *Repository) RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM restaurants WHERE owner_id = $1
		UNION
		SELECT restaurant_id FROM restaurant_staff WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (id, restaurant_id, name, sort_order) VALUES ($1,$2,$3,$4)`,
		c.ID, c.RestaurantID, c.Name, c.SortOrder)
	return err
}

func (r *Repository) ListCategories(ctx context.Context, restaurantID string) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, restaurant_id, name, sort_order FROM categories WHERE restaurant_id=$1 ORDER BY sort_order, name`, restaurantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.SortOrder)
		return c, err
	})
}

const menuItemColumns = `id, restaurant_id, category_id, title, final_price, mrp, stock_status, min_order_quantity, max_order_quantity, is_active, created_at, updated_at`

func scanMenuItem(row pgx.Row) (domain.MenuItem, error) {
	var m domain.MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.CategoryID, &m.Title, &m.FinalPrice, &m.MRP, &m.StockStatus,
		&m.MinOrderQuantity, &m.MaxOrderQuantity, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *Repository) CreateMenuItem(ctx context.Context, m domain.MenuItem) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO menu_items (`+menuItemColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		m.ID, m.RestaurantID, m.CategoryID, m.Title, m.FinalPrice, m.MRP, m.StockStatus,
		m.MinOrderQuantity, m.MaxOrderQuantity, m.IsActive, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *Repository) UpdateMenuItem(ctx context.Context, m domain.MenuItem) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE menu_items
		SET category_id=$2, title=$3, final_price=$4, mrp=$5, stock_status=$6,
		    min_order_quantity=$7, max_order_quantity=$8, is_active=$9, updated_at=$10
		WHERE id=$1`,
		m.ID, m.CategoryID, m.Title, m.FinalPrice, m.MRP, m.StockStatus,
		m.MinOrderQuantity, m.MaxOrderQuantity, m.IsActive, m.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("menu item %s not found", m.ID)
	}
	return nil
}

func (r *Repository) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	m, err := scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MenuItem{}, apperr.NotFound("menu item %s not found", id)
	}
	return m, err
}

func (r *Repository) ListMenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE restaurant_id=$1 ORDER BY title`, restaurantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MenuItem, error) {
		return scanMenuItem(row)
	})
}

func (r *Repository) CreateVariant(ctx context.Context, v domain.Variant) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO menu_item_variants (id, menu_item_id, name, final_price, is_active) VALUES ($1,$2,$3,$4,$5)`,
		v.ID, v.MenuItemID, v.Name, v.FinalPrice, v.IsActive)
	return err
}

func (r *Repository) GetVariant(ctx context.Context, id string) (domain.Variant, error) {
	var v domain.Variant
	err := r.pool.QueryRow(ctx, `SELECT id, menu_item_id, name, final_price, is_active FROM menu_item_variants WHERE id=$1`, id).
		Scan(&v.ID, &v.MenuItemID, &v.Name, &v.FinalPrice, &v.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Variant{}, apperr.NotFound("variant %s not found", id)
	}
	return v, err
}

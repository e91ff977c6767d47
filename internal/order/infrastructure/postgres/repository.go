package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	inventory "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	invpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/infrastructure/postgres"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/database"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/outbox"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/tracing"
)

const AggregateType = "order"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Apply(ctx context.Context, m domain.Mutation) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := ApplyTx(ctx, r.log, tx, m); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ApplyTx writes m on tx: the order row, delivery, cancellation, stock
// moves, audit entries and outbox events. Callers own commit and rollback.
func ApplyTx(ctx context.Context, log *slog.Logger, tx pgx.Tx, m domain.Mutation) error {
	if o := m.Order; o != nil {
		var err error
		if m.Insert {
			err = insertOrder(ctx, tx, *o)
		} else {
			err = updateOrder(ctx, tx, *o, m.ExpectStatus)
		}
		if err != nil {
			return err
		}
	}
	if d := m.Delivery; d != nil {
		if err := writeDelivery(ctx, tx, *d, m.InsertDelivery); err != nil {
			return err
		}
	}
	if c := m.Cancellation; c != nil {
		if err := writeCancellation(ctx, tx, *c, m.InsertCancellation); err != nil {
			return err
		}
	}
	for _, adj := range inventory.LockOrder(m.Stock) {
		rec, err := invpg.AdjustTx(ctx, tx, adj, m.ActorID)
		if err != nil {
			return fmt.Errorf("adjust stock for %s: %w", adj.MenuItemID, err)
		}
		if rec == nil {
			log.DebugContext(ctx, "no inventory row, stock not tracked", "menu_item_id", adj.MenuItemID)
		}
	}
	for _, a := range m.Audit {
		if _, err := tx.Exec(ctx, `INSERT INTO order_audit (order_id, operation, changed_by, changes, created_at) VALUES ($1,$2,$3,$4,$5)`,
			a.OrderID, a.Operation, a.ChangedBy, a.Changes, a.CreatedAt); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
	}
	if len(m.Events) > 0 {
		msgs := make([]outbox.Message, 0, len(m.Events))
		for _, e := range m.Events {
			msgs = append(msgs, outbox.Message{
				AggregateType: AggregateType,
				AggregateID:   e.Payload.OrderID,
				Type:          e.Type,
				Payload:       e.Payload,
				Headers:       map[string]string{"correlation_id": e.Payload.CorrelationID},
			})
		}
		if err := outbox.Insert(ctx, tx, tracing.Traceparent(ctx), msgs...); err != nil {
			return err
		}
	}
	return nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o domain.Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, restaurant_id, tenant_id, status, payment_status, order_type,
			subtotal, tax, delivery_fee, discount, total, delivery_address, notes, priority,
			estimated_ready_at, cancel_reason, correlation_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		o.ID, o.UserID, o.RestaurantID, o.TenantID, o.Status, o.PaymentStatus, o.OrderType,
		o.Subtotal, o.Tax, o.DeliveryFee, o.Discount, o.Total, o.DeliveryAddress, o.Notes, o.Priority,
		o.EstimatedReadyAt, o.CancelReason, o.CorrelationID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, menu_item_id, variant_id, title, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, it.MenuItemID, it.VariantID, it.Title, it.Quantity, it.UnitPrice)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func updateOrder(ctx context.Context, tx pgx.Tx, o domain.Order, expect domain.Status) error {
	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, notes=$4, priority=$5,
			estimated_ready_at=$6, cancel_reason=$7, updated_at=$8
		WHERE id=$1 AND status=$9`,
		o.ID, o.Status, o.PaymentStatus, o.Notes, o.Priority, o.EstimatedReadyAt, o.CancelReason, o.UpdatedAt, expect)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.Conflict("order %s changed concurrently, retry", o.ID)
	}
	return nil
}

func writeDelivery(ctx context.Context, tx pgx.Tx, d domain.Delivery, insert bool) error {
	var err error
	if insert {
		_, err = tx.Exec(ctx, `INSERT INTO deliveries (order_id, driver_id, status, address, updated_at) VALUES ($1,$2,$3,$4,$5)`,
			d.OrderID, d.DriverID, d.Status, d.Address, d.UpdatedAt)
	} else {
		_, err = tx.Exec(ctx, `UPDATE deliveries SET status=$2, updated_at=$3 WHERE order_id=$1`, d.OrderID, d.Status, d.UpdatedAt)
	}
	if err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}
	return nil
}

func writeCancellation(ctx context.Context, tx pgx.Tx, c domain.Cancellation, insert bool) error {
	if insert {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_cancellations (id, order_id, requester_id, reason, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, c.OrderID, c.RequesterID, c.Reason, c.Status, c.CreatedAt, c.UpdatedAt)
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("order %s already has an open cancellation request", c.OrderID)
		}
		if err != nil {
			return fmt.Errorf("insert cancellation: %w", err)
		}
		return nil
	}
	ct, err := tx.Exec(ctx, `UPDATE order_cancellations SET status=$2, approver_id=$3, updated_at=$4 WHERE id=$1 AND status=$5`,
		c.ID, c.Status, c.ApproverID, c.UpdatedAt, domain.CancellationRequested)
	if err != nil {
		return fmt.Errorf("update cancellation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.Conflict("cancellation %s was already decided", c.ID)
	}
	return nil
}

const orderColumns = `id, user_id, restaurant_id, tenant_id, status, payment_status, order_type,
	subtotal, tax, delivery_fee, discount, total, delivery_address, notes, priority,
	estimated_ready_at, cancel_reason, correlation_id, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.RestaurantID, &o.TenantID, &o.Status, &o.PaymentStatus, &o.OrderType,
		&o.Subtotal, &o.Tax, &o.DeliveryFee, &o.Discount, &o.Total, &o.DeliveryAddress, &o.Notes, &o.Priority,
		&o.EstimatedReadyAt, &o.CancelReason, &o.CorrelationID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperr.NotFound("order %s not found", id)
	}
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.items(ctx, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

// GetForUpdate reads an order on tx under a row lock.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (domain.Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperr.NotFound("order %s not found", id)
	}
	return o, err
}

func (r *Repository) List(ctx context.Context, f domain.ListFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	switch {
	case f.Unrestricted:
	case f.UserID != "":
		where = append(where, "user_id = "+arg(f.UserID))
	default:
		where = append(where, "restaurant_id = ANY("+arg(f.RestaurantIDs)+")")
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}

	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil || len(orders) == 0 {
		return orders, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) items(ctx context.Context, orderIDs []string) (map[string][]domain.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, menu_item_id, variant_id, title, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Item, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it domain.Item
		if err := rows.Scan(&orderID, &it.MenuItemID, &it.VariantID, &it.Title, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *Repository) GetDelivery(ctx context.Context, orderID string) (*domain.Delivery, error) {
	var d domain.Delivery
	err := r.pool.QueryRow(ctx, `SELECT order_id, driver_id, status, address, updated_at FROM deliveries WHERE order_id=$1`, orderID).
		Scan(&d.OrderID, &d.DriverID, &d.Status, &d.Address, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, operation, changed_by, changes, created_at
		FROM order_audit WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditEntry, error) {
		var a domain.AuditEntry
		err := row.Scan(&a.ID, &a.OrderID, &a.Operation, &a.ChangedBy, &a.Changes, &a.CreatedAt)
		return a, err
	})
}

const cancellationColumns = `id, order_id, requester_id, approver_id, reason, status, created_at, updated_at`

func scanCancellation(row pgx.Row) (domain.Cancellation, error) {
	var c domain.Cancellation
	err := row.Scan(&c.ID, &c.OrderID, &c.RequesterID, &c.ApproverID, &c.Reason, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) GetCancellation(ctx context.Context, id string) (domain.Cancellation, error) {
	c, err := scanCancellation(r.pool.QueryRow(ctx, `SELECT `+cancellationColumns+` FROM order_cancellations WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cancellation{}, apperr.NotFound("cancellation %s not found", id)
	}
	return c, err
}

func (r *Repository) ListCancellations(ctx context.Context, orderID string) ([]domain.Cancellation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cancellationColumns+` FROM order_cancellations WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Cancellation, error) {
		return scanCancellation(row)
	})
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	inventory "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Service struct {
	log       *slog.Logger
	repo      Repository
	catalog   Catalog
	inventory Inventory
	pricing   domain.Pricing
	now       func() time.Time
}

func NewService(log *slog.Logger, repo Repository, catalog Catalog, inventory Inventory, pricing domain.Pricing) *Service {
	return &Service{
		log:       log.With("component", "order"),
		repo:      repo,
		catalog:   catalog,
		inventory: inventory,
		pricing:   pricing,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ItemInput struct {
	MenuItemID string  `json:"menuItemId"`
	VariantID  *string `json:"variantId,omitempty"`
	Quantity   int     `json:"quantity"`
}

type CreateInput struct {
	RestaurantID    string           `json:"restaurantId"`
	OrderType       domain.OrderType `json:"orderType"`
	DeliveryAddress string           `json:"deliveryAddress"`
	Notes           string           `json:"notes"`
	Items           []ItemInput      `json:"items"`
}

func (s *Service) CreateOrder(ctx context.Context, p auth.Principal, in CreateInput) (domain.Order, error) {
	if !in.OrderType.Valid() {
		return domain.Order{}, apperr.Validation("unknown orderType %q", in.OrderType)
	}
	if len(in.Items) == 0 {
		return domain.Order{}, apperr.Validation("an order needs at least one item")
	}
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	if in.OrderType == domain.TypeDelivery && in.DeliveryAddress == "" {
		return domain.Order{}, apperr.Validation("deliveryAddress is required for delivery orders")
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, in.RestaurantID)
	if err != nil {
		return domain.Order{}, err
	}
	if !restaurant.IsActive {
		return domain.Order{}, apperr.Validation("restaurant %s is not active", restaurant.ID)
	}

	orderID := uuid.NewString()
	items := make([]domain.Item, 0, len(in.Items))
	stock := make([]inventory.Adjustment, 0, len(in.Items))
	for _, line := range in.Items {
		item, err := s.priceLine(ctx, restaurant, line)
		if err != nil {
			return domain.Order{}, err
		}
		s.checkStock(ctx, restaurant.ID, line)
		items = append(items, item)
		stock = append(stock, inventory.Adjustment{
			MenuItemID:     line.MenuItemID,
			VariantID:      line.VariantID,
			QuantityChange: -line.Quantity,
			Reason:         inventory.ReasonOrder,
			Notes:          "order " + orderID,
		})
	}

	now := s.now()
	tenant := p.TenantID
	if tenant == "" {
		tenant = restaurant.Tenant()
	}
	o := domain.Order{
		ID:              orderID,
		UserID:          p.UserID,
		RestaurantID:    restaurant.ID,
		TenantID:        tenant,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		OrderType:       in.OrderType,
		Totals:          s.pricing.Totals(items, in.OrderType),
		DeliveryAddress: in.DeliveryAddress,
		Notes:           strings.TrimSpace(in.Notes),
		Priority:        domain.PriorityNormal,
		CorrelationID:   uuid.NewString(),
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	m := domain.Mutation{
		Order:   &o,
		Insert:  true,
		Stock:   stock,
		ActorID: p.UserID,
		Audit: []domain.AuditEntry{{
			OrderID:   o.ID,
			Operation: domain.OpCreate,
			ChangedBy: p.UserID,
			Changes: map[string]any{
				"status":    o.Status,
				"orderType": o.OrderType,
				"total":     o.Total.StringFixed(2),
			},
			CreatedAt: now,
		}},
	}
	if o.OrderType == domain.TypeDelivery {
		m.Delivery = &domain.Delivery{
			OrderID:   o.ID,
			Status:    domain.DeliveryPending,
			Address:   o.DeliveryAddress,
			UpdatedAt: now,
		}
		m.InsertDelivery = true
	}
	owner := domain.PayloadFor(o)
	owner.OwnerID = restaurant.OwnerID
	m.Events = []domain.Event{
		{Type: domain.EventOrderCreated, Payload: domain.PayloadFor(o)},
		{Type: domain.EventNewOrderForOwner, Payload: owner},
	}

	if err := s.repo.Apply(ctx, m); err != nil {
		return domain.Order{}, err
	}
	s.log.InfoContext(ctx, "order created",
		"order_id", o.ID, "restaurant_id", o.RestaurantID, "user_id", o.UserID,
		"total", o.Total.StringFixed(2), "correlation_id", o.CorrelationID)
	return o, nil
}

// priceLine validates one requested line and prices it from the catalog.
func (s *Service) priceLine(ctx context.Context, restaurant catalog.Restaurant, line ItemInput) (domain.Item, error) {
	item, err := s.catalog.GetMenuItem(ctx, line.MenuItemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item.RestaurantID != restaurant.ID {
		return domain.Item{}, apperr.Validation("menu item %s is not served by restaurant %s", item.ID, restaurant.ID)
	}
	if err := item.CheckOrderable(); err != nil {
		return domain.Item{}, err
	}
	if err := item.CheckQuantity(line.Quantity); err != nil {
		return domain.Item{}, err
	}

	title := item.Title
	var variant *catalog.Variant
	if line.VariantID != nil {
		v, err := s.catalog.GetVariant(ctx, *line.VariantID)
		if err != nil {
			return domain.Item{}, err
		}
		if v.MenuItemID != item.ID {
			return domain.Item{}, apperr.Validation("variant %s does not belong to menu item %s", v.ID, item.ID)
		}
		if !v.IsActive {
			return domain.Item{}, apperr.Validation("variant %q of %q is not active", v.Name, item.Title)
		}
		variant = &v
		title = fmt.Sprintf("%s (%s)", item.Title, v.Name)
	}
	return domain.Item{
		MenuItemID: item.ID,
		VariantID:  line.VariantID,
		Title:      title,
		Quantity:   line.Quantity,
		UnitPrice:  item.PriceFor(variant).Round(2),
	}, nil
}

// checkStock only logs: the ledger is advisory at order time.
func (s *Service) checkStock(ctx context.Context, restaurantID string, line ItemInput) {
	rec, err := s.inventory.Get(ctx, line.MenuItemID, line.VariantID, restaurantID)
	if err != nil {
		s.log.WarnContext(ctx, "inventory lookup failed", "menu_item_id", line.MenuItemID, "err", err)
		return
	}
	if rec != nil && rec.Quantity < line.Quantity {
		s.log.WarnContext(ctx, "ordering beyond recorded stock",
			"menu_item_id", line.MenuItemID, "available", rec.Quantity, "requested", line.Quantity)
	}
}

type UpdateInput struct {
	Status           *domain.Status   `json:"status,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	Priority         *domain.Priority `json:"priority,omitempty"`
	EstimatedReadyAt *time.Time       `json:"estimatedReadyAt,omitempty"`
}

func (s *Service) UpdateOrder(ctx context.Context, p auth.Principal, id string, in UpdateInput) (domain.Order, error) {
	o, err := s.managedOrder(ctx, p, id)
	if err != nil {
		return domain.Order{}, err
	}

	after := o
	if in.Status != nil && *in.Status != o.Status {
		if domain.IsTerminal(o.Status) {
			return domain.Order{}, apperr.Conflict("order %s is %s and can no longer change status", o.ID, o.Status)
		}
		if *in.Status == domain.StatusCancelled {
			return domain.Order{}, apperr.Validation("orders are cancelled through a cancellation request")
		}
		if err := domain.OrderMachine.Check(o.Status, *in.Status); err != nil {
			return domain.Order{}, err
		}
		after.Status = *in.Status
	}
	if in.Notes != nil {
		after.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return domain.Order{}, apperr.Validation("unknown priority %q", *in.Priority)
		}
		after.Priority = *in.Priority
	}
	if in.EstimatedReadyAt != nil {
		t := in.EstimatedReadyAt.UTC()
		after.EstimatedReadyAt = &t
	}

	changes := domain.Diff(o, after)
	if changes == nil && in.EstimatedReadyAt == nil {
		return o, nil
	}
	now := s.now()
	after.UpdatedAt = now

	m := domain.Mutation{Order: &after, ExpectStatus: o.Status, ActorID: p.UserID}
	if changes != nil {
		m.Audit = []domain.AuditEntry{{
			OrderID:   o.ID,
			Operation: domain.OpUpdate,
			ChangedBy: p.UserID,
			Changes:   changes,
			CreatedAt: now,
		}}
	}
	if after.Status != o.Status {
		d, err := s.mirrorDelivery(ctx, after, now)
		if err != nil {
			return domain.Order{}, err
		}
		m.Delivery = d
		m.Events = domain.StatusEvents(after, o.Status)
	}

	if err := s.repo.Apply(ctx, m); err != nil {
		return domain.Order{}, err
	}
	s.log.InfoContext(ctx, "order updated", "order_id", o.ID, "from", o.Status, "to", after.Status, "changed_by", p.UserID)
	return after, nil
}

// mirrorDelivery returns the delivery row to write after o changed status,
// or nil when nothing follows.
func (s *Service) mirrorDelivery(ctx context.Context, o domain.Order, now time.Time) (*domain.Delivery, error) {
	next, ok := domain.MirrorDelivery(o.Status)
	if !ok {
		return nil, nil
	}
	d, err := s.repo.GetDelivery(ctx, o.ID)
	if err != nil || d == nil || d.Status == next {
		return nil, err
	}
	if err := domain.DeliveryMachine.Check(d.Status, next); err != nil {
		s.log.WarnContext(ctx, "delivery not mirrored", "order_id", o.ID, "delivery_status", d.Status, "target", next, "err", err)
		return nil, nil
	}
	d.Status = next
	d.UpdatedAt = now
	return d, nil
}

func (s *Service) GetOrder(ctx context.Context, p auth.Principal, id string) (domain.Order, error) {
	return s.visibleOrder(ctx, p, id)
}

type ListInput struct {
	Status domain.Status
	Limit  int
	Offset int
}

func (s *Service) ListOrders(ctx context.Context, p auth.Principal, in ListInput) ([]domain.Order, error) {
	f, err := s.Scope(ctx, p)
	if err != nil {
		return nil, err
	}
	f.Status = in.Status
	f.Limit = in.Limit
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if in.Offset > 0 {
		f.Offset = in.Offset
	}
	return s.repo.List(ctx, f)
}

func (s *Service) ListAudit(ctx context.Context, p auth.Principal, orderID string) ([]domain.AuditEntry, error) {
	if _, err := s.visibleOrder(ctx, p, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListAudit(ctx, orderID)
}

func (s *Service) CreateCancellation(ctx context.Context, p auth.Principal, orderID, reason string) (domain.Cancellation, error) {
	o, err := s.visibleOrder(ctx, p, orderID)
	if err != nil {
		return domain.Cancellation{}, err
	}
	if domain.IsTerminal(o.Status) {
		return domain.Cancellation{}, apperr.Conflict("order %s is %s and cannot be cancelled", o.ID, o.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Cancellation{}, apperr.Validation("a cancellation reason is required")
	}
	if o.PaymentStatus == domain.PaymentPaid {
		s.log.WarnContext(ctx, "cancellation requested for a paid order; refund is manual", "order_id", o.ID)
	}

	now := s.now()
	c := domain.Cancellation{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		RequesterID: p.UserID,
		Reason:      reason,
		Status:      domain.CancellationRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Apply(ctx, domain.Mutation{Cancellation: &c, InsertCancellation: true, ActorID: p.UserID}); err != nil {
		return domain.Cancellation{}, err
	}
	s.log.InfoContext(ctx, "cancellation requested", "order_id", o.ID, "cancellation_id", c.ID)
	return c, nil
}

// UpdateCancellation decides a REQUESTED cancellation. Approval cancels the
// order and returns its stock to the ledger in the same transaction.
func (s *Service) UpdateCancellation(ctx context.Context, p auth.Principal, id string, status domain.CancellationStatus) (domain.Cancellation, error) {
	if status != domain.CancellationApproved && status != domain.CancellationRejected {
		return domain.Cancellation{}, apperr.Validation("status must be APPROVED or REJECTED")
	}
	c, err := s.repo.GetCancellation(ctx, id)
	if err != nil {
		return domain.Cancellation{}, err
	}
	o, err := s.managedOrder(ctx, p, c.OrderID)
	if err != nil {
		return domain.Cancellation{}, err
	}
	if c.Status == status {
		return c, nil
	}
	if err := domain.CancellationMachine.Check(c.Status, status); err != nil {
		return domain.Cancellation{}, err
	}

	now := s.now()
	approver := p.UserID
	c.Status = status
	c.ApproverID = &approver
	c.UpdatedAt = now
	m := domain.Mutation{Cancellation: &c, ActorID: p.UserID}

	if status == domain.CancellationApproved {
		if domain.IsTerminal(o.Status) {
			return domain.Cancellation{}, apperr.Conflict("order %s is already %s", o.ID, o.Status)
		}
		if err := domain.OrderMachine.Check(o.Status, domain.StatusCancelled); err != nil {
			return domain.Cancellation{}, err
		}
		after := o
		after.Status = domain.StatusCancelled
		after.CancelReason = c.Reason
		after.UpdatedAt = now

		m.Order = &after
		m.ExpectStatus = o.Status
		m.Audit = []domain.AuditEntry{{
			OrderID:   o.ID,
			Operation: domain.OpCancelled,
			ChangedBy: p.UserID,
			Changes: map[string]any{
				"status":         domain.FieldChange{From: o.Status, To: after.Status},
				"cancelReason":   c.Reason,
				"cancellationId": c.ID,
			},
			CreatedAt: now,
		}}
		for _, it := range o.Items {
			m.Stock = append(m.Stock, inventory.Adjustment{
				MenuItemID:     it.MenuItemID,
				VariantID:      it.VariantID,
				QuantityChange: it.Quantity,
				Reason:         inventory.ReasonCancellation,
				Notes:          "cancellation " + c.ID,
			})
		}
		if m.Delivery, err = s.mirrorDelivery(ctx, after, now); err != nil {
			return domain.Cancellation{}, err
		}
		m.Events = domain.StatusEvents(after, o.Status)
	}

	if err := s.repo.Apply(ctx, m); err != nil {
		return domain.Cancellation{}, err
	}
	s.log.InfoContext(ctx, "cancellation decided", "order_id", o.ID, "cancellation_id", c.ID, "status", status)
	return c, nil
}

func (s *Service) ListCancellations(ctx context.Context, p auth.Principal, orderID string) ([]domain.Cancellation, error) {
	if _, err := s.visibleOrder(ctx, p, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListCancellations(ctx, orderID)
}

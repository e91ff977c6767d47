package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	inventory "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

type memRepo struct {
	orders        map[string]domain.Order
	deliveries    map[string]domain.Delivery
	cancellations map[string]domain.Cancellation
	audit         []domain.AuditEntry
	events        []domain.Event
	stock         map[string]int
	applyErr      error
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:        map[string]domain.Order{},
		deliveries:    map[string]domain.Delivery{},
		cancellations: map[string]domain.Cancellation{},
		stock:         map[string]int{},
	}
}

func (m *memRepo) Apply(ctx context.Context, mu domain.Mutation) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	if mu.Order != nil {
		if !mu.Insert {
			cur, ok := m.orders[mu.Order.ID]
			if !ok {
				return apperr.NotFound("order %s not found", mu.Order.ID)
			}
			if cur.Status != mu.ExpectStatus {
				return apperr.Conflict("order %s changed concurrently", mu.Order.ID)
			}
		}
		m.orders[mu.Order.ID] = *mu.Order
	}
	if mu.Delivery != nil {
		m.deliveries[mu.Delivery.OrderID] = *mu.Delivery
	}
	if mu.Cancellation != nil {
		m.cancellations[mu.Cancellation.ID] = *mu.Cancellation
	}
	for _, adj := range mu.Stock {
		if q, ok := m.stock[adj.MenuItemID]; ok {
			m.stock[adj.MenuItemID] = inventory.ApplyDelta(q, adj.QuantityChange)
		}
	}
	m.audit = append(m.audit, mu.Audit...)
	m.events = append(m.events, mu.Events...)
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, apperr.NotFound("order %s not found", id)
	}
	return o, nil
}

func (m *memRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if f.Allows(o) && (f.Status == "" || f.Status == o.Status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) GetDelivery(ctx context.Context, orderID string) (*domain.Delivery, error) {
	d, ok := m.deliveries[orderID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memRepo) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, a := range m.audit {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) GetCancellation(ctx context.Context, id string) (domain.Cancellation, error) {
	c, ok := m.cancellations[id]
	if !ok {
		return domain.Cancellation{}, apperr.NotFound("cancellation %s not found", id)
	}
	return c, nil
}

func (m *memRepo) ListCancellations(ctx context.Context, orderID string) ([]domain.Cancellation, error) {
	var out []domain.Cancellation
	for _, c := range m.cancellations {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	restaurants map[string]catalog.Restaurant
	items       map[string]catalog.MenuItem
	variants    map[string]catalog.Variant
	staff       map[string][]string
}

func (f *fakeCatalog) GetRestaurant(ctx context.Context, id string) (catalog.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return catalog.Restaurant{}, apperr.NotFound("restaurant %s not found", id)
	}
	return r, nil
}

func (f *fakeCatalog) GetMenuItem(ctx context.Context, id string) (catalog.MenuItem, error) {
	it, ok := f.items[id]
	if !ok {
		return catalog.MenuItem{}, apperr.NotFound("menu item %s not found", id)
	}
	return it, nil
}

func (f *fakeCatalog) GetVariant(ctx context.Context, id string) (catalog.Variant, error) {
	v, ok := f.variants[id]
	if !ok {
		return catalog.Variant{}, apperr.NotFound("variant %s not found", id)
	}
	return v, nil
}

func (f *fakeCatalog) RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return f.staff[userID], nil
}

type fakeInventory struct {
	err error
}

func (f fakeInventory) Get(ctx context.Context, menuItemID string, variantID *string, restaurantID string) (*inventory.Record, error) {
	return nil, f.err
}

var (
	customer = auth.Principal{UserID: "cust-1", Role: auth.RoleCustomer}
	other    = auth.Principal{UserID: "cust-2", Role: auth.RoleCustomer}
	owner    = auth.Principal{UserID: "owner-1", Role: auth.RoleRestaurantOwner}
	outsider = auth.Principal{UserID: "owner-2", Role: auth.RoleRestaurantOwner}
	admin    = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) (*Service, *memRepo, *fakeCatalog) {
	t.Helper()
	large := money("12.00")
	cat := &fakeCatalog{
		restaurants: map[string]catalog.Restaurant{
			"r-1":    {ID: "r-1", OwnerID: "owner-1", IsActive: true},
			"closed": {ID: "closed", OwnerID: "owner-1"},
		},
		items: map[string]catalog.MenuItem{
			"burger": {ID: "burger", RestaurantID: "r-1", Title: "Burger", FinalPrice: money("10.00"), StockStatus: catalog.InStock, MinOrderQuantity: 1, MaxOrderQuantity: 5, IsActive: true},
			"fries":  {ID: "fries", RestaurantID: "r-1", Title: "Fries", FinalPrice: money("5.00"), StockStatus: catalog.LowStock, MinOrderQuantity: 1, IsActive: true},
			"soup":   {ID: "soup", RestaurantID: "r-1", Title: "Soup", FinalPrice: money("4.00"), StockStatus: catalog.OutOfStock, MinOrderQuantity: 1, IsActive: true},
			"combo":  {ID: "combo", RestaurantID: "r-1", Title: "Combo", FinalPrice: money("8.00"), StockStatus: catalog.InStock, MinOrderQuantity: 2, IsActive: true},
		},
		variants: map[string]catalog.Variant{
			"burger-large": {ID: "burger-large", MenuItemID: "burger", Name: "Large", FinalPrice: &large, IsActive: true},
		},
		staff: map[string][]string{"owner-1": {"r-1"}},
	}
	repo := newMemRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(log, repo, cat, fakeInventory{}, domain.Pricing{TaxRatePercent: money("10"), DeliveryFee: money("5.00")})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, cat
}

func deliveryInput() CreateInput {
	return CreateInput{
		RestaurantID:    "r-1",
		OrderType:       domain.TypeDelivery,
		DeliveryAddress: "1 Main St",
		Items: []ItemInput{
			{MenuItemID: "burger", Quantity: 2},
			{MenuItemID: "fries", Quantity: 1},
		},
	}
}

func types(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestCreateOrderDeliveryTotals(t *testing.T) {
	svc, repo, _ := newFixture(t)
	repo.stock["burger"] = 10

	o, err := svc.CreateOrder(context.Background(), customer, deliveryInput())
	require.NoError(t, err)

	assert.Equal(t, "25.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "2.50", o.Tax.StringFixed(2))
	assert.Equal(t, "5.00", o.DeliveryFee.StringFixed(2))
	assert.Equal(t, "0.00", o.Discount.StringFixed(2))
	assert.Equal(t, "32.50", o.Total.StringFixed(2))
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.NotEmpty(t, o.CorrelationID)
	assert.Equal(t, "r-1", o.TenantID)

	d, ok := repo.deliveries[o.ID]
	require.True(t, ok)
	assert.Equal(t, domain.DeliveryPending, d.Status)

	assert.Equal(t, 8, repo.stock["burger"])
	require.Len(t, repo.audit, 1)
	assert.Equal(t, domain.OpCreate, repo.audit[0].Operation)
	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventNewOrderForOwner}, types(repo.events))
	assert.Equal(t, "owner-1", repo.events[1].Payload.OwnerID)
}

func TestCreateOrderUsesCatalogPrices(t *testing.T) {
	svc, _, _ := newFixture(t)
	variant := "burger-large"
	in := CreateInput{
		RestaurantID: "r-1",
		OrderType:    domain.TypePickup,
		Items:        []ItemInput{{MenuItemID: "burger", VariantID: &variant, Quantity: 1}},
	}
	o, err := svc.CreateOrder(context.Background(), customer, in)
	require.NoError(t, err)
	assert.Equal(t, "12.00", o.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "Burger (Large)", o.Items[0].Title)
	assert.True(t, o.DeliveryFee.IsZero())
	assert.Equal(t, "13.20", o.Total.StringFixed(2))
}

func TestCreateOrderRejections(t *testing.T) {
	cases := map[string]func(*CreateInput){
		"out of stock":      func(in *CreateInput) { in.Items = []ItemInput{{MenuItemID: "soup", Quantity: 1}} },
		"below minimum":     func(in *CreateInput) { in.Items = []ItemInput{{MenuItemID: "combo", Quantity: 1}} },
		"above maximum":     func(in *CreateInput) { in.Items = []ItemInput{{MenuItemID: "burger", Quantity: 6}} },
		"inactive":          func(in *CreateInput) { in.RestaurantID = "closed" },
		"missing address":   func(in *CreateInput) { in.DeliveryAddress = "  " },
		"no items":          func(in *CreateInput) { in.Items = nil },
		"bad order type":    func(in *CreateInput) { in.OrderType = "DRONE" },
		"unknown menu item": func(in *CreateInput) { in.Items = []ItemInput{{MenuItemID: "ghost", Quantity: 1}} },
		"foreign variant": func(in *CreateInput) {
			v := "burger-large"
			in.Items = []ItemInput{{MenuItemID: "fries", VariantID: &v, Quantity: 1}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, repo, _ := newFixture(t)
			in := deliveryInput()
			mutate(&in)
			_, err := svc.CreateOrder(context.Background(), customer, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound), err.Error())
			assert.Empty(t, repo.orders)
			assert.Empty(t, repo.events)
		})
	}
}

func TestCreateOrderIgnoresInventoryLookupFailure(t *testing.T) {
	svc, _, _ := newFixture(t)
	svc.inventory = fakeInventory{err: errors.New("ledger down")}
	_, err := svc.CreateOrder(context.Background(), customer, deliveryInput())
	require.NoError(t, err)
}

func seedOrder(repo *memRepo, status domain.Status, withDelivery domain.DeliveryStatus) domain.Order {
	o := domain.Order{
		ID:            "o-1",
		UserID:        customer.UserID,
		RestaurantID:  "r-1",
		Status:        status,
		PaymentStatus: domain.PaymentPending,
		OrderType:     domain.TypeDelivery,
		Priority:      domain.PriorityNormal,
		Items:         []domain.Item{{MenuItemID: "burger", Quantity: 2, UnitPrice: money("10.00")}},
	}
	repo.orders[o.ID] = o
	if withDelivery != "" {
		repo.deliveries[o.ID] = domain.Delivery{OrderID: o.ID, Status: withDelivery}
	}
	return o
}

func ptr[T any](v T) *T { return &v }

func TestUpdateOrderDeliveredMirrorsDelivery(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusShipped, domain.DeliveryAssigned)

	o, err := svc.UpdateOrder(context.Background(), owner, "o-1", UpdateInput{Status: ptr(domain.StatusDelivered)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, o.Status)
	assert.Equal(t, domain.DeliveryDelivered, repo.deliveries["o-1"].Status)
	assert.Contains(t, types(repo.events), domain.EventFeedbackRequested)
	require.Len(t, repo.audit, 1)
	assert.Equal(t, domain.OpUpdate, repo.audit[0].Operation)
}

func TestUpdateOrderRejectsTerminal(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusCancelled, domain.StatusDelivered} {
		svc, repo, _ := newFixture(t)
		seedOrder(repo, status, "")

		_, err := svc.UpdateOrder(context.Background(), owner, "o-1", UpdateInput{Status: ptr(domain.StatusPreparing)})
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Empty(t, repo.audit)
		assert.Equal(t, status, repo.orders["o-1"].Status)
	}
}

func TestUpdateOrderNotesOnly(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusPending, "")

	o, err := svc.UpdateOrder(context.Background(), owner, "o-1", UpdateInput{Notes: ptr("no onions"), Priority: ptr(domain.PriorityHigh)})
	require.NoError(t, err)
	assert.Equal(t, "no onions", o.Notes)
	require.Len(t, repo.audit, 1)
	assert.Len(t, repo.audit[0].Changes, 2)
	assert.Empty(t, repo.events)
}

func TestUpdateOrderRules(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusPending, "")
	ctx := context.Background()

	_, err := svc.UpdateOrder(ctx, owner, "o-1", UpdateInput{Status: ptr(domain.StatusCancelled)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpdateOrder(ctx, owner, "o-1", UpdateInput{Status: ptr(domain.StatusDelivered)})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.UpdateOrder(ctx, customer, "o-1", UpdateInput{Status: ptr(domain.StatusPreparing)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.UpdateOrder(ctx, outsider, "o-1", UpdateInput{Status: ptr(domain.StatusPreparing)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	o, err := svc.UpdateOrder(ctx, admin, "o-1", UpdateInput{Status: ptr(domain.StatusPreparing)})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.EventStatusChanged, domain.EventConfirmed}, types(repo.events))
	assert.Equal(t, domain.StatusPreparing, o.Status)
}

func TestScope(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	f, err := svc.Scope(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", f.UserID)

	f, err = svc.Scope(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-1"}, f.RestaurantIDs)

	f, err = svc.Scope(ctx, outsider)
	require.NoError(t, err)
	assert.Equal(t, domain.NoAccess, f.UserID)

	f, err = svc.Scope(ctx, auth.Principal{UserID: "x", Role: "DRIVER"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoAccess, f.UserID)

	f, err = svc.Scope(ctx, admin)
	require.NoError(t, err)
	assert.True(t, f.Unrestricted)
}

func TestListOrdersScoped(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusPending, "")
	ctx := context.Background()

	got, err := svc.ListOrders(ctx, customer, ListInput{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.ListOrders(ctx, other, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.ListOrders(ctx, auth.Principal{UserID: "no-access", Role: "GUEST"}, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.GetOrder(ctx, other, "o-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancellationApprove(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusPreparing, domain.DeliveryPending)
	repo.stock["burger"] = 3
	ctx := context.Background()

	c, err := svc.CreateCancellation(ctx, customer, "o-1", "  changed my mind ")
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationRequested, c.Status)
	assert.Equal(t, "changed my mind", c.Reason)
	assert.Equal(t, domain.StatusPreparing, repo.orders["o-1"].Status)

	c, err = svc.UpdateCancellation(ctx, owner, c.ID, domain.CancellationApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationApproved, c.Status)
	require.NotNil(t, c.ApproverID)
	assert.Equal(t, "owner-1", *c.ApproverID)

	o := repo.orders["o-1"]
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Equal(t, "changed my mind", o.CancelReason)
	assert.Equal(t, domain.DeliveryFailed, repo.deliveries["o-1"].Status)
	assert.Equal(t, 5, repo.stock["burger"])
	assert.Equal(t, domain.OpCancelled, repo.audit[len(repo.audit)-1].Operation)
	assert.Equal(t, []string{domain.EventStatusChanged, domain.EventCancelled}, types(repo.events))

	_, err = svc.UpdateCancellation(ctx, owner, c.ID, domain.CancellationRejected)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCancellationReject(t *testing.T) {
	svc, repo, _ := newFixture(t)
	before := seedOrder(repo, domain.StatusPending, "")
	ctx := context.Background()

	c, err := svc.CreateCancellation(ctx, customer, "o-1", "late")
	require.NoError(t, err)
	c, err = svc.UpdateCancellation(ctx, owner, c.ID, domain.CancellationRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationRejected, c.Status)
	assert.Equal(t, before, repo.orders["o-1"])
	assert.Empty(t, repo.audit)
	assert.Empty(t, repo.events)
}

func TestCreateCancellationRules(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusDelivered, "")
	ctx := context.Background()

	_, err := svc.CreateCancellation(ctx, customer, "o-1", "cold")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	o := repo.orders["o-1"]
	o.Status = domain.StatusPending
	o.PaymentStatus = domain.PaymentPaid
	repo.orders["o-1"] = o

	_, err = svc.CreateCancellation(ctx, customer, "o-1", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateCancellation(ctx, other, "o-1", "not mine")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.CreateCancellation(ctx, customer, "o-1", "paid but unwanted")
	assert.NoError(t, err)
}

func TestListAuditScoped(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedOrder(repo, domain.StatusPending, "")
	ctx := context.Background()

	_, err := svc.UpdateOrder(ctx, owner, "o-1", UpdateInput{Status: ptr(domain.StatusPreparing)})
	require.NoError(t, err)

	entries, err := svc.ListAudit(ctx, customer, "o-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.ListAudit(ctx, other, "o-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

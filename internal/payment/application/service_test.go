package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/idempotency"
)

type memPayments struct {
	payments map[string]domain.Payment
	orders   map[string]order.Order
	audit    []order.AuditEntry
	events   []order.Event
	failNext error
}

func (m *memPayments) Create(ctx context.Context, p domain.Payment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *memPayments) Get(ctx context.Context, id string) (domain.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return domain.Payment{}, apperr.NotFound("payment %s not found", id)
	}
	return p, nil
}

func (m *memPayments) FindByTransaction(ctx context.Context, transactionID string) (domain.Payment, error) {
	for _, p := range m.payments {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return p, nil
		}
	}
	return domain.Payment{}, apperr.NotFound("payment for transaction %s not found", transactionID)
}

func (m *memPayments) ListForOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) Transition(ctx context.Context, paymentID string, fn TransitionFunc) (domain.Payment, error) {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return domain.Payment{}, err
	}
	pay, err := m.Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	t, err := fn(pay, m.orders[pay.OrderID])
	if err != nil || t == nil {
		return pay, err
	}
	m.payments[paymentID] = t.Payment
	if mu := t.Mutation; mu != nil {
		m.orders[mu.Order.ID] = *mu.Order
		m.audit = append(m.audit, mu.Audit...)
		m.events = append(m.events, mu.Events...)
	}
	return t.Payment, nil
}

type scopedOrders struct {
	repo *memPayments
}

func (s scopedOrders) GetOrder(ctx context.Context, p auth.Principal, id string) (order.Order, error) {
	o, ok := s.repo.orders[id]
	if !ok || (!p.Role.IsAdmin() && o.UserID != p.UserID) {
		return order.Order{}, apperr.NotFound("order %s not found", id)
	}
	return o, nil
}

type fakeGateway struct {
	intents []IntentRequest
	events  map[string]domain.GatewayEvent
}

func (g *fakeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	g.intents = append(g.intents, req)
	return Intent{ID: "pi_123", ClientSecret: "pi_123_secret", Raw: json.RawMessage(`{"id":"pi_123"}`)}, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (domain.GatewayEvent, error) {
	ev, ok := g.events[signature]
	if !ok {
		return domain.GatewayEvent{}, errors.New("bad signature")
	}
	return ev, nil
}

var (
	buyer = auth.Principal{UserID: "cust-1", Role: auth.RoleCustomer}
	staff = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
)

func newFixture(t *testing.T, status order.Status) (*Service, *memPayments, *fakeGateway) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &memPayments{
		payments: map[string]domain.Payment{},
		orders: map[string]order.Order{
			"o-1": {
				ID: "o-1", UserID: "cust-1", RestaurantID: "r-1", Status: status,
				PaymentStatus: order.PaymentPending, OrderType: order.TypeDelivery,
				Totals: order.Totals{Total: decimal.RequireFromString("32.50")},
			},
		},
	}
	gw := &fakeGateway{events: map[string]domain.GatewayEvent{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(log, repo, scopedOrders{repo: repo}, gw, idempotency.NewStore(rdb, time.Hour), "usd")
	return svc, repo, gw
}

func cardPayment(t *testing.T, svc *Service) domain.Payment {
	t.Helper()
	pay, err := svc.CreatePayment(context.Background(), buyer, "o-1", CreateInput{Method: domain.MethodCard})
	require.NoError(t, err)
	return pay
}

func eventTypes(events []order.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestCreateCardPayment(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)

	pay := cardPayment(t, svc)
	assert.Equal(t, order.PaymentPending, pay.Status)
	assert.Equal(t, "32.50", pay.Amount.StringFixed(2))
	require.NotNil(t, pay.TransactionID)
	assert.Equal(t, "pi_123", *pay.TransactionID)
	assert.Equal(t, "pi_123_secret", pay.ClientSecret)
	require.Len(t, gw.intents, 1)
	assert.Equal(t, "usd", gw.intents[0].Currency)
	assert.Contains(t, repo.payments, pay.ID)
}

func TestCreatePaymentRules(t *testing.T) {
	svc, repo, _ := newFixture(t, order.StatusDelivered)
	ctx := context.Background()

	_, err := svc.CreatePayment(ctx, buyer, "o-1", CreateInput{Method: "BARTER"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.CreatePayment(ctx, buyer, "o-1", CreateInput{Method: domain.MethodCash})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	o := repo.orders["o-1"]
	o.Status = order.StatusPending
	repo.orders["o-1"] = o
	_, err = svc.CreatePayment(ctx, auth.Principal{UserID: "cust-2", Role: auth.RoleCustomer}, "o-1", CreateInput{Method: domain.MethodCash})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	svc.gateway = nil
	_, err = svc.CreatePayment(ctx, buyer, "o-1", CreateInput{Method: domain.MethodCard})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	cash, err := svc.CreatePayment(ctx, buyer, "o-1", CreateInput{Method: domain.MethodCash})
	require.NoError(t, err)
	assert.Nil(t, cash.TransactionID)
}

func TestPaidForcesPreparingFromAnyStatus(t *testing.T) {
	for _, status := range []order.Status{order.StatusPending, order.StatusShipped, order.StatusDelivered, order.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			svc, repo, _ := newFixture(t, order.StatusPending)
			pay := cardPayment(t, svc)
			o := repo.orders["o-1"]
			o.Status = status
			repo.orders["o-1"] = o

			got, err := svc.UpdatePayment(context.Background(), staff, pay.ID, UpdateInput{Status: order.PaymentPaid})
			require.NoError(t, err)
			assert.Equal(t, order.PaymentPaid, got.Status)

			o = repo.orders["o-1"]
			assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
			assert.Equal(t, order.StatusPreparing, o.Status)
			require.Len(t, repo.audit, 1)
			assert.Equal(t, order.OpPaymentCompleted, repo.audit[0].Operation)
			assert.Contains(t, eventTypes(repo.events), order.EventPaymentStatusChanged)
			assert.Contains(t, eventTypes(repo.events), order.EventStatusChanged)
		})
	}
}

func TestNonPaidStatusOnlyTouchesPaymentStatus(t *testing.T) {
	svc, repo, _ := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)

	_, err := svc.UpdatePayment(context.Background(), staff, pay.ID, UpdateInput{Status: order.PaymentAuthorized})
	require.NoError(t, err)
	o := repo.orders["o-1"]
	assert.Equal(t, order.PaymentAuthorized, o.PaymentStatus)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, []string{order.EventPaymentStatusChanged}, eventTypes(repo.events))
}

func TestUpdatePaymentRejectsInvalidTransition(t *testing.T) {
	svc, repo, _ := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	ctx := context.Background()

	_, err := svc.UpdatePayment(ctx, staff, pay.ID, UpdateInput{Status: order.PaymentRefunded})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.UpdatePayment(ctx, staff, pay.ID, UpdateInput{Status: "LOST"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdatePayment(ctx, buyer, "missing", UpdateInput{Status: order.PaymentPaid})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, repo.audit)
}

func TestWebhookSucceeded(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	gw.events["sig-ok"] = domain.GatewayEvent{ID: "evt_1", Type: domain.EventIntentSucceeded, ObjectID: "pi_123", Raw: json.RawMessage(`{}`)}

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig-ok"))
	assert.Equal(t, order.PaymentPaid, repo.payments[pay.ID].Status)
	assert.Equal(t, order.StatusPreparing, repo.orders["o-1"].Status)
}

func TestWebhookDuplicateEventDropped(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	cardPayment(t, svc)
	gw.events["sig"] = domain.GatewayEvent{ID: "evt_1", Type: domain.EventIntentSucceeded, ObjectID: "pi_123"}
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))
	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))
	assert.Len(t, repo.audit, 1)
}

func TestWebhookFailedAfterPaidIsIgnored(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	gw.events["paid"] = domain.GatewayEvent{ID: "evt_1", Type: domain.EventIntentSucceeded, ObjectID: "pi_123"}
	gw.events["failed"] = domain.GatewayEvent{ID: "evt_2", Type: domain.EventIntentFailed, ObjectID: "pi_123"}
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhook(ctx, nil, "paid"))
	o := repo.orders["o-1"]
	require.NoError(t, svc.HandleWebhook(ctx, nil, "failed"))

	assert.Equal(t, order.PaymentPaid, repo.payments[pay.ID].Status)
	assert.Equal(t, o, repo.orders["o-1"])
}

func TestWebhookSucceededAfterFailedAttempt(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	gw.events["declined"] = domain.GatewayEvent{ID: "evt_1", Type: domain.EventIntentFailed, ObjectID: "pi_123"}
	gw.events["retried"] = domain.GatewayEvent{ID: "evt_2", Type: domain.EventIntentSucceeded, ObjectID: "pi_123"}
	ctx := context.Background()

	require.NoError(t, svc.HandleWebhook(ctx, nil, "declined"))
	require.Equal(t, order.PaymentFailed, repo.payments[pay.ID].Status)
	require.Equal(t, order.PaymentFailed, repo.orders["o-1"].PaymentStatus)

	require.NoError(t, svc.HandleWebhook(ctx, nil, "retried"))
	assert.Equal(t, order.PaymentPaid, repo.payments[pay.ID].Status)
	assert.Equal(t, order.PaymentPaid, repo.orders["o-1"].PaymentStatus)
	assert.Equal(t, order.StatusPreparing, repo.orders["o-1"].Status)
	require.Len(t, repo.audit, 2)
	assert.Equal(t, order.OpPaymentCompleted, repo.audit[1].Operation)
}

func TestUpdatePaymentPaidAfterFailure(t *testing.T) {
	svc, repo, _ := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	ctx := context.Background()

	_, err := svc.UpdatePayment(ctx, staff, pay.ID, UpdateInput{Status: order.PaymentFailed})
	require.NoError(t, err)
	got, err := svc.UpdatePayment(ctx, staff, pay.ID, UpdateInput{Status: order.PaymentPaid})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, got.Status)
	assert.Equal(t, order.StatusPreparing, repo.orders["o-1"].Status)
}

func TestWebhookCheckoutSessionFallsBackToIntent(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	gw.events["sig"] = domain.GatewayEvent{ID: "evt_9", Type: domain.EventCheckoutComplete, ObjectID: "cs_1", PaymentIntentID: "pi_123"}

	require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))
	assert.Equal(t, order.PaymentPaid, repo.payments[pay.ID].Status)
}

func TestWebhookEdgeCases(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	cardPayment(t, svc)
	gw.events["other"] = domain.GatewayEvent{ID: "evt_3", Type: "charge.refunded", ObjectID: "pi_123"}
	gw.events["unknown"] = domain.GatewayEvent{ID: "evt_4", Type: domain.EventIntentSucceeded, ObjectID: "pi_999"}
	ctx := context.Background()

	assert.ErrorIs(t, svc.HandleWebhook(ctx, nil, "forged"), apperr.ErrValidation)
	assert.NoError(t, svc.HandleWebhook(ctx, nil, "other"))
	assert.NoError(t, svc.HandleWebhook(ctx, nil, "unknown"))
	assert.Empty(t, repo.audit)
}

func TestWebhookRetryableAfterFailure(t *testing.T) {
	svc, repo, gw := newFixture(t, order.StatusPending)
	pay := cardPayment(t, svc)
	gw.events["sig"] = domain.GatewayEvent{ID: "evt_5", Type: domain.EventIntentSucceeded, ObjectID: "pi_123"}
	ctx := context.Background()

	repo.failNext = errors.New("db down")
	require.Error(t, svc.HandleWebhook(ctx, nil, "sig"))
	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))
	assert.Equal(t, order.PaymentPaid, repo.payments[pay.ID].Status)
}

package application

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

// Transition is what a status change writes. A nil Mutation leaves the
// order untouched.
type Transition struct {
	Payment  domain.Payment
	Mutation *order.Mutation
}

// TransitionFunc decides a status change from the locked payment and order.
// Returning nil means nothing changes.
type TransitionFunc func(pay domain.Payment, o order.Order) (*Transition, error)

type PaymentRepository interface {
	Create(ctx context.Context, p domain.Payment) error
	Get(ctx context.Context, id string) (domain.Payment, error)
	FindByTransaction(ctx context.Context, transactionID string) (domain.Payment, error)
	ListForOrder(ctx context.Context, orderID string) ([]domain.Payment, error)
	// Transition locks the payment and its order, runs fn and writes the
	// result in the same transaction.
	Transition(ctx context.Context, paymentID string, fn TransitionFunc) (domain.Payment, error)
}

// Orders resolves an order within the caller's visibility.
type Orders interface {
	GetOrder(ctx context.Context, p auth.Principal, id string) (order.Order, error)
}

type IntentRequest struct {
	PaymentID     string
	OrderID       string
	CorrelationID string
	Amount        decimal.Decimal
	Currency      string
}

type Intent struct {
	ID           string
	ClientSecret string
	Raw          json.RawMessage
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (domain.GatewayEvent, error)
}

type Deduper interface {
	Key(namespace, id string) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

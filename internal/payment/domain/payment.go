package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
)

type Method string

const (
	MethodCard Method = "CARD"
	MethodCash Method = "CASH"
)

func (m Method) Valid() bool { return m == MethodCard || m == MethodCash }

type Payment struct {
	ID              string              `json:"id"`
	OrderID         string              `json:"orderId"`
	Amount          decimal.Decimal     `json:"amount"`
	Method          Method              `json:"method"`
	Status          order.PaymentStatus `json:"status"`
	TransactionID   *string             `json:"transactionId,omitempty"`
	GatewayResponse json.RawMessage     `json:"gatewayResponse,omitempty"`
	// ClientSecret is returned once on creation for the browser to confirm
	// the card payment. It is never stored.
	ClientSecret string    `json:"clientSecret,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MinorUnits converts an amount to the gateway's integer representation.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

const (
	EventIntentSucceeded  = "payment_intent.succeeded"
	EventIntentFailed     = "payment_intent.payment_failed"
	EventCheckoutComplete = "checkout.session.completed"
)

// GatewayEvent is a verified webhook notification. ObjectID is the id of the
// event's object; PaymentIntentID is set when that object references an
// intent, as checkout sessions do.
type GatewayEvent struct {
	ID              string
	Type            string
	ObjectID        string
	PaymentIntentID string
	Raw             json.RawMessage
}

// StatusFor maps a gateway event type to the payment status it reports.
func StatusFor(eventType string) (order.PaymentStatus, bool) {
	switch eventType {
	case EventIntentSucceeded, EventCheckoutComplete:
		return order.PaymentPaid, true
	case EventIntentFailed:
		return order.PaymentFailed, true
	}
	return "", false
}

package domain

import (
	"fmt"
	"strings"
	"time"

	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
)

type Notification struct {
	ID            string     `json:"id"`
	SourceEventID int64      `json:"sourceEventId"`
	UserID        string     `json:"userId"`
	OrderID       string     `json:"orderId"`
	Kind          string     `json:"kind"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Compose turns one order event into the notifications it produces. Unknown
// event types produce none.
func Compose(eventType string, p order.EventPayload) []Notification {
	ref := shortID(p.OrderID)
	customer := func(title, body string) []Notification {
		return []Notification{{UserID: p.CustomerID, OrderID: p.OrderID, Kind: eventType, Title: title, Body: body}}
	}

	switch eventType {
	case order.EventOrderCreated:
		return customer("Order received", fmt.Sprintf("We received your order %s totaling %s.", ref, p.Total))
	case order.EventNewOrderForOwner:
		if p.OwnerID == "" {
			return nil
		}
		return []Notification{{
			UserID:  p.OwnerID,
			OrderID: p.OrderID,
			Kind:    eventType,
			Title:   "New order",
			Body:    fmt.Sprintf("New %s order %s totaling %s.", strings.ToLower(strings.ReplaceAll(string(p.OrderType), "_", "-")), ref, p.Total),
		}}
	case order.EventStatusChanged:
		return customer("Order update", fmt.Sprintf("Your order %s is now %s.", ref, strings.ToLower(p.To)))
	case order.EventConfirmed:
		return customer("Order confirmed", fmt.Sprintf("The restaurant confirmed order %s and is preparing it.", ref))
	case order.EventReady:
		switch p.OrderType {
		case order.TypePickup:
			return customer("Ready for pickup", fmt.Sprintf("Your order %s is ready for pickup.", ref))
		case order.TypeDelivery:
			return customer("Out for delivery", fmt.Sprintf("Your order %s is on its way.", ref))
		}
		return customer("Order ready", fmt.Sprintf("Your order %s is ready to be served.", ref))
	case order.EventDelivered:
		return customer("Order delivered", fmt.Sprintf("Your order %s was delivered. Enjoy!", ref))
	case order.EventFeedbackRequested:
		return customer("How was your order?", fmt.Sprintf("Tell us about order %s.", ref))
	case order.EventCancelled:
		body := fmt.Sprintf("Your order %s was cancelled.", ref)
		if p.Reason != "" {
			body = fmt.Sprintf("Your order %s was cancelled: %s.", ref, p.Reason)
		}
		return customer("Order cancelled", body)
	case order.EventPaymentStatusChanged:
		return customer("Payment "+strings.ToLower(p.To), fmt.Sprintf("Payment for order %s is %s.", ref, strings.ToLower(p.To)))
	}
	return nil
}

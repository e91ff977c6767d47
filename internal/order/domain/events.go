package domain

const (
	EventOrderCreated         = "order.created"
	EventNewOrderForOwner     = "order.new_for_owner"
	EventStatusChanged        = "order.status_changed"
	EventConfirmed            = "order.confirmed"
	EventReady                = "order.ready"
	EventDelivered            = "order.delivered"
	EventFeedbackRequested    = "order.feedback_requested"
	EventCancelled            = "order.cancelled"
	EventPaymentStatusChanged = "order.payment_status_changed"
)

type Event struct {
	Type    string
	Payload EventPayload
}

// EventPayload is the JSON body of every order event on the outbox topic.
type EventPayload struct {
	OrderID       string    `json:"orderId"`
	CustomerID    string    `json:"customerId"`
	RestaurantID  string    `json:"restaurantId"`
	OwnerID       string    `json:"ownerId,omitempty"`
	TenantID      string    `json:"tenantId,omitempty"`
	OrderType     OrderType `json:"orderType"`
	Total         string    `json:"total"`
	CorrelationID string    `json:"correlationId"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

func PayloadFor(o Order) EventPayload {
	return EventPayload{
		OrderID:       o.ID,
		CustomerID:    o.UserID,
		RestaurantID:  o.RestaurantID,
		TenantID:      o.TenantID,
		OrderType:     o.OrderType,
		Total:         o.Total.StringFixed(2),
		CorrelationID: o.CorrelationID,
	}
}

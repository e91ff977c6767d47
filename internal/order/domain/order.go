package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentAuthorized PaymentStatus = "AUTHORIZED"
	PaymentPaid       PaymentStatus = "PAID"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentAuthorized, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type OrderType string

const (
	TypeDelivery OrderType = "DELIVERY"
	TypePickup   OrderType = "PICKUP"
	TypeDineIn   OrderType = "DINE_IN"
)

func (t OrderType) Valid() bool {
	return t == TypeDelivery || t == TypePickup || t == TypeDineIn
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	RestaurantID  string        `json:"restaurantId"`
	TenantID      string        `json:"tenantId"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderType     OrderType     `json:"orderType"`
	Totals
	DeliveryAddress  string     `json:"deliveryAddress,omitempty"`
	Notes            string     `json:"notes"`
	Priority         Priority   `json:"priority"`
	EstimatedReadyAt *time.Time `json:"estimatedReadyAt,omitempty"`
	CancelReason     string     `json:"cancelReason,omitempty"`
	CorrelationID    string     `json:"correlationId"`
	Items            []Item     `json:"items"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Item snapshots the catalog price at order time.
type Item struct {
	MenuItemID string          `json:"menuItemId"`
	VariantID  *string         `json:"variantId,omitempty"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

type Delivery struct {
	OrderID   string         `json:"orderId"`
	DriverID  *string        `json:"driverId,omitempty"`
	Status    DeliveryStatus `json:"status"`
	Address   string         `json:"address"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type CancellationStatus string

const (
	CancellationRequested CancellationStatus = "REQUESTED"
	CancellationApproved  CancellationStatus = "APPROVED"
	CancellationRejected  CancellationStatus = "REJECTED"
)

type Cancellation struct {
	ID          string             `json:"id"`
	OrderID     string             `json:"orderId"`
	RequesterID string             `json:"requesterId"`
	ApproverID  *string            `json:"approverId,omitempty"`
	Reason      string             `json:"reason"`
	Status      CancellationStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NoAccess is the fail-closed filter value for roles with no defined scope.
const NoAccess = "no-access"

type ListFilter struct {
	UserID        string
	RestaurantIDs []string
	Unrestricted  bool
	Status        Status
	Limit         int
	Offset        int
}

// Allows reports whether o falls inside the filter's row scope.
func (f ListFilter) Allows(o Order) bool {
	if f.Unrestricted {
		return true
	}
	if f.UserID != "" {
		return f.UserID == o.UserID
	}
	for _, id := range f.RestaurantIDs {
		if id == o.RestaurantID {
			return true
		}
	}
	return false
}

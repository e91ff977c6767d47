package domain

import "github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/fsm"

// OrderMachine covers status updates and cancellation approval. DELIVERED,
// CANCELLED and REFUNDED have no outgoing edges.
var OrderMachine = fsm.New("order", map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:   {StatusDelivered, StatusCancelled, StatusRefunded},
})

// PaymentMachine lets a FAILED payment recover: the gateway reports a later
// successful attempt on the same intent as PAID.
var PaymentMachine = fsm.New("payment", map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentAuthorized, PaymentPaid, PaymentFailed},
	PaymentAuthorized: {PaymentPaid, PaymentFailed},
	PaymentFailed:     {PaymentPending, PaymentAuthorized, PaymentPaid},
	PaymentPaid:       {PaymentRefunded},
})

var DeliveryMachine = fsm.New("delivery", map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:   {DeliveryAssigned, DeliveryInTransit, DeliveryDelivered, DeliveryFailed},
	DeliveryAssigned:  {DeliveryInTransit, DeliveryDelivered, DeliveryFailed},
	DeliveryInTransit: {DeliveryDelivered, DeliveryFailed},
})

var CancellationMachine = fsm.New("cancellation", map[CancellationStatus][]CancellationStatus{
	CancellationRequested: {CancellationApproved, CancellationRejected},
})

// IsTerminal is the guard for status updates and cancellation requests.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

var deliveryMirror = map[Status]DeliveryStatus{
	StatusPreparing: DeliveryPending,
	StatusShipped:   DeliveryAssigned,
	StatusDelivered: DeliveryDelivered,
	StatusCancelled: DeliveryFailed,
}

// MirrorDelivery returns the delivery status that follows an order status,
// or false when the order status has no delivery counterpart.
func MirrorDelivery(s Status) (DeliveryStatus, bool) {
	d, ok := deliveryMirror[s]
	return d, ok
}

// CapturePayment applies a PAID payment to the order. It moves the order to
// PREPARING from any status, including terminal ones, and returns the
// previous status.
func CapturePayment(o *Order) Status {
	from := o.Status
	o.PaymentStatus = PaymentPaid
	o.Status = StatusPreparing
	return from
}

// StatusEvents lists the events emitted when o has moved from `from` to its
// current status.
func StatusEvents(o Order, from Status) []Event {
	if from == o.Status {
		return nil
	}
	p := PayloadFor(o)
	p.From = string(from)
	p.To = string(o.Status)

	events := []Event{{Type: EventStatusChanged, Payload: p}}
	switch o.Status {
	case StatusPreparing:
		events = append(events, Event{Type: EventConfirmed, Payload: p})
	case StatusShipped:
		events = append(events, Event{Type: EventReady, Payload: p})
	case StatusDelivered:
		events = append(events,
			Event{Type: EventDelivered, Payload: p},
			Event{Type: EventFeedbackRequested, Payload: p},
		)
	case StatusCancelled:
		p.Reason = o.CancelReason
		events = append(events, Event{Type: EventCancelled, Payload: p})
	}
	return events
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

const (
	webhookActor     = "payment-gateway"
	webhookNamespace = "stripe-event"
)

type Service struct {
	log      *slog.Logger
	repo     PaymentRepository
	orders   Orders
	gateway  Gateway
	dedup    Deduper
	currency string
	now      func() time.Time
}

// NewService wires the payment workflow. gateway may be nil, in which case
// only cash payments can be created and webhooks are refused.
func NewService(log *slog.Logger, repo PaymentRepository, orders Orders, gateway Gateway, dedup Deduper, currency string) *Service {
	return &Service{
		log:      log.With("component", "payment"),
		repo:     repo,
		orders:   orders,
		gateway:  gateway,
		dedup:    dedup,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	Method domain.Method `json:"method"`
}

func (s *Service) CreatePayment(ctx context.Context, p auth.Principal, orderID string, in CreateInput) (domain.Payment, error) {
	if !in.Method.Valid() {
		return domain.Payment{}, apperr.Validation("unknown payment method %q", in.Method)
	}
	o, err := s.orders.GetOrder(ctx, p, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if order.IsTerminal(o.Status) {
		return domain.Payment{}, apperr.Conflict("order %s is %s", o.ID, o.Status)
	}
	if o.PaymentStatus == order.PaymentPaid {
		return domain.Payment{}, apperr.Conflict("order %s is already paid", o.ID)
	}

	now := s.now()
	pay := domain.Payment{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		Amount:    o.Total,
		Method:    in.Method,
		Status:    order.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Method == domain.MethodCard {
		if s.gateway == nil {
			return domain.Payment{}, apperr.Validation("card payments are not configured")
		}
		intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
			PaymentID:     pay.ID,
			OrderID:       o.ID,
			CorrelationID: o.CorrelationID,
			Amount:        o.Total,
			Currency:      s.currency,
		})
		if err != nil {
			return domain.Payment{}, fmt.Errorf("create payment intent: %w", err)
		}
		pay.TransactionID = &intent.ID
		pay.GatewayResponse = intent.Raw
		pay.ClientSecret = intent.ClientSecret
	}
	if err := s.repo.Create(ctx, pay); err != nil {
		return domain.Payment{}, err
	}
	s.log.InfoContext(ctx, "payment created", "payment_id", pay.ID, "order_id", o.ID, "method", pay.Method, "amount", pay.Amount.StringFixed(2))
	return pay, nil
}

func (s *Service) ListPayments(ctx context.Context, p auth.Principal, orderID string) ([]domain.Payment, error) {
	if _, err := s.orders.GetOrder(ctx, p, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListForOrder(ctx, orderID)
}

type UpdateInput struct {
	Status          order.PaymentStatus `json:"status"`
	GatewayResponse json.RawMessage     `json:"gatewayResponse,omitempty"`
}

func (s *Service) UpdatePayment(ctx context.Context, p auth.Principal, id string, in UpdateInput) (domain.Payment, error) {
	if !in.Status.Valid() {
		return domain.Payment{}, apperr.Validation("unknown payment status %q", in.Status)
	}
	pay, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if _, err := s.orders.GetOrder(ctx, p, pay.OrderID); err != nil {
		return domain.Payment{}, err
	}
	return s.applyStatus(ctx, pay.ID, in.Status, in.GatewayResponse, p.UserID)
}

// HandleWebhook verifies and applies one gateway event. Replays of an event
// id are dropped, and events that contradict the payment's current status
// are acknowledged without effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return apperr.Validation("payment gateway is not configured")
	}
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.log.WarnContext(ctx, "webhook rejected", "err", err)
		return apperr.Validation("invalid webhook: %v", err)
	}
	log := s.log.With("event_id", ev.ID, "event_type", ev.Type)

	status, ok := domain.StatusFor(ev.Type)
	if !ok {
		log.DebugContext(ctx, "webhook event ignored")
		return nil
	}

	key := s.dedup.Key(webhookNamespace, ev.ID)
	seen, err := s.dedup.Seen(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "webhook dedup unavailable, relying on payment state", "err", err)
	} else if seen {
		log.InfoContext(ctx, "duplicate webhook dropped")
		return nil
	}

	pay, err := s.paymentFor(ctx, ev)
	if errors.Is(err, apperr.ErrNotFound) {
		log.WarnContext(ctx, "webhook for unknown payment", "object_id", ev.ObjectID)
		return nil
	}
	if err == nil {
		_, err = s.applyStatus(ctx, pay.ID, status, ev.Raw, webhookActor)
	}
	if errors.Is(err, apperr.ErrConflict) {
		log.WarnContext(ctx, "conflicting webhook ignored", "payment_id", pay.ID, "err", err)
		return nil
	}
	if err != nil {
		if relErr := s.dedup.Release(ctx, key); relErr != nil {
			log.WarnContext(ctx, "release dedup key failed", "err", relErr)
		}
		return err
	}
	log.InfoContext(ctx, "webhook applied", "payment_id", pay.ID, "status", status)
	return nil
}

func (s *Service) paymentFor(ctx context.Context, ev domain.GatewayEvent) (domain.Payment, error) {
	pay, err := s.repo.FindByTransaction(ctx, ev.ObjectID)
	if errors.Is(err, apperr.ErrNotFound) && ev.PaymentIntentID != "" && ev.PaymentIntentID != ev.ObjectID {
		return s.repo.FindByTransaction(ctx, ev.PaymentIntentID)
	}
	return pay, err
}

// applyStatus is the single path for payment status changes.
func (s *Service) applyStatus(ctx context.Context, paymentID string, status order.PaymentStatus, gatewayResponse json.RawMessage, changedBy string) (domain.Payment, error) {
	return s.repo.Transition(ctx, paymentID, func(pay domain.Payment, o order.Order) (*Transition, error) {
		if pay.Status == status {
			return nil, nil
		}
		if err := order.PaymentMachine.Check(pay.Status, status); err != nil {
			return nil, err
		}
		now := s.now()
		prev := pay.Status
		pay.Status = status
		pay.UpdatedAt = now
		if len(gatewayResponse) > 0 {
			pay.GatewayResponse = gatewayResponse
		}
		t := &Transition{Payment: pay}

		if o.PaymentStatus == order.PaymentPaid && status != order.PaymentPaid && status != order.PaymentRefunded {
			s.log.WarnContext(ctx, "order already paid, payment status not propagated",
				"order_id", o.ID, "payment_id", pay.ID, "status", status)
			return t, nil
		}

		after := o
		after.UpdatedAt = now
		m := &order.Mutation{Order: &after, ExpectStatus: o.Status, ActorID: changedBy}
		changes := map[string]any{
			"paymentId":     pay.ID,
			"paymentStatus": order.FieldChange{From: o.PaymentStatus, To: status},
		}
		op := order.OpPaymentUpdated

		if status == order.PaymentPaid {
			from := order.CapturePayment(&after)
			if order.IsTerminal(from) {
				s.log.WarnContext(ctx, "payment captured on a finished order, moving it back to PREPARING",
					"order_id", o.ID, "from", from)
			}
			op = order.OpPaymentCompleted
			changes["amount"] = pay.Amount.StringFixed(2)
			if from != after.Status {
				changes["status"] = order.FieldChange{From: from, To: after.Status}
			}
			m.Events = order.StatusEvents(after, from)
		} else {
			after.PaymentStatus = status
		}

		payload := order.PayloadFor(after)
		payload.From = string(prev)
		payload.To = string(status)
		m.Events = append(m.Events, order.Event{Type: order.EventPaymentStatusChanged, Payload: payload})
		m.Audit = []order.AuditEntry{{
			OrderID:   o.ID,
			Operation: op,
			ChangedBy: changedBy,
			Changes:   changes,
			CreatedAt: now,
		}}
		t.Mutation = m
		return t, nil
	})
}

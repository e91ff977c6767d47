package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/domain"
)

type Gateway struct {
	log           *slog.Logger
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
}

func NewGateway(log *slog.Logger, secretKey, webhookSecret string) *Gateway {
	return &Gateway{
		log:           log,
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		tolerance:     webhook.DefaultTolerance,
	}
}

func (g *Gateway) CreateIntent(ctx context.Context, req application.IntentRequest) (application.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(domain.MinorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("payment-" + req.PaymentID)
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("payment_id", req.PaymentID)
	params.AddMetadata("correlation_id", req.CorrelationID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return application.Intent{}, err
	}
	g.log.InfoContext(ctx, "payment intent created", "intent_id", pi.ID, "order_id", req.OrderID, "status", pi.Status)

	intent := application.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}
	if pi.LastResponse != nil {
		intent.Raw = pi.LastResponse.RawJSON
	}
	return intent, nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (domain.GatewayEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.GatewayEvent{}, err
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (domain.GatewayEvent, error) {
	out := domain.GatewayEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	out.Raw = ev.Data.Raw

	switch out.Type {
	case domain.EventIntentSucceeded, domain.EventIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return domain.GatewayEvent{}, fmt.Errorf("decode payment intent: %w", err)
		}
		out.ObjectID = pi.ID
		out.PaymentIntentID = pi.ID
	case domain.EventCheckoutComplete:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return domain.GatewayEvent{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.ObjectID = cs.ID
		if cs.PaymentIntent != nil {
			out.PaymentIntentID = cs.PaymentIntent.ID
		}
	}
	return out, nil
}

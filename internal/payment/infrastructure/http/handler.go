package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/httpx"
)

const maxWebhookBody = 64 << 10

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service, tracer: otel.Tracer("payment-http")}
}

// Routes registers the authenticated payment routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders/{id}/payments", h.create)
	r.Get("/orders/{id}/payments", h.list)
	r.With(auth.RequireRole(auth.RoleRestaurantOwner, auth.RoleRestaurantStaff, auth.RoleAdmin, auth.RoleSuperAdmin)).
		Patch("/payments/{id}", h.update)
}

// WebhookRoutes registers the gateway callback, which authenticates by
// signature instead of bearer token.
func (h *Handler) WebhookRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.webhook)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePayment")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	pay, err := h.service.CreatePayment(ctx, p, chi.URLParam(r, "id"), in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pay)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	list, err := h.service.ListPayments(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdatePayment")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.UpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	pay, err := h.service.UpdatePayment(ctx, p, chi.URLParam(r, "id"), in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pay)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "StripeWebhook")
	defer span.End()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httpx.Error(w, r, h.log, apperr.Validation("webhook body too large"))
		return
	}
	if err := h.service.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature")); err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

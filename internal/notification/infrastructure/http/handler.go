package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Post("/notifications/{id}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	list, err := h.service.ListForUser(r.Context(), p, r.URL.Query().Get("unread") == "true")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

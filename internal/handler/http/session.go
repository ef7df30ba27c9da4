package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/ticketpay/internal/service"
	"github.com/tillpoint/ticketpay/pkg/httputil"
	"github.com/tillpoint/ticketpay/pkg/validator"
)

// SessionHandler handles HTTP requests for payment-session endpoints.
type SessionHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewSessionHandler creates a new payment-session HTTP handler.
func NewSessionHandler(svc *service.PaymentService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SelectItemRequest is the JSON request body for selecting one unit of a
// payable group.
type SelectItemRequest struct {
	MenuItemID string          `json:"menu_item_id" validate:"required"`
	Price      decimal.Decimal `json:"price"`
}

// SetCurrencyRequest is the JSON request body for switching the settlement
// currency.
type SetCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

// --- Handlers ---

// OpenSession handles POST /api/v1/tickets/{id}/sessions
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.OpenSession(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: view})
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.GetSession(id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// SelectItem handles POST /api/v1/sessions/{id}/select
func (h *SessionHandler) SelectItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SelectItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.SelectItem(id.String(), req.MenuItemID, req.Price)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// ClearSelection handles POST /api/v1/sessions/{id}/clear
func (h *SessionHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.ClearSelection(id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// SetCurrency handles PUT /api/v1/sessions/{id}/currency
func (h *SessionHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.SetCurrency(r.Context(), id.String(), req.Currency)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// MarkSelectedPaid handles POST /api/v1/sessions/{id}/mark-paid
func (h *SessionHandler) MarkSelectedPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.MarkSelectedPaid(id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// CommitPayment handles POST /api/v1/sessions/{id}/commit
func (h *SessionHandler) CommitPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.CommitPayment(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// CloseSession handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.CloseSession(id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/ticketpay/internal/repository"
	"github.com/tillpoint/ticketpay/internal/service"
	"github.com/tillpoint/ticketpay/pkg/httputil"
	"github.com/tillpoint/ticketpay/pkg/validator"
)

// TicketHandler handles HTTP requests for ticket endpoints.
type TicketHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewTicketHandler creates a new ticket HTTP handler.
func NewTicketHandler(svc *service.PaymentService, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateLineRequest is the JSON request body for one ticket line.
type CreateLineRequest struct {
	MenuItemID   string          `json:"menu_item_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	PortionName  string          `json:"portion_name"`
	PortionCount int             `json:"portion_count" validate:"gte=0"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity" validate:"required,gte=1"`
}

// CreateCalculationRequest is the JSON request body for one ticket calculation.
type CreateCalculationRequest struct {
	Name     string          `json:"name" validate:"required"`
	Type     string          `json:"type" validate:"required,oneof=percentage fixed"`
	Decrease bool            `json:"decrease"`
	Amount   decimal.Decimal `json:"amount"`
}

// CreateTicketRequest is the JSON request body for creating a ticket.
type CreateTicketRequest struct {
	Number       string                     `json:"number" validate:"required"`
	Currency     string                     `json:"currency" validate:"required,len=3"`
	Lines        []CreateLineRequest        `json:"lines" validate:"required,min=1,dive"`
	Calculations []CreateCalculationRequest `json:"calculations" validate:"omitempty,dive"`
}

// --- Handlers ---

// CreateTicket handles POST /api/v1/tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateTicketRequest
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

	lines := make([]service.CreateLineInput, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = service.CreateLineInput{
			MenuItemID:   line.MenuItemID,
			Name:         line.Name,
			PortionName:  line.PortionName,
			PortionCount: line.PortionCount,
			Price:        line.Price,
			Quantity:     line.Quantity,
		}
	}

	calcs := make([]service.CreateCalculationInput, len(req.Calculations))
	for i, calc := range req.Calculations {
		calcs[i] = service.CreateCalculationInput{
			Name:     calc.Name,
			Type:     calc.Type,
			Decrease: calc.Decrease,
			Amount:   calc.Amount,
		}
	}

	input := service.CreateTicketInput{
		Number:       req.Number,
		Currency:     req.Currency,
		Lines:        lines,
		Calculations: calcs,
	}

	ticket, err := h.service.CreateTicket(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: ticket})
}

// ListTickets handles GET /api/v1/tickets
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	filter := repository.TicketFilter{
		Page:    1,
		PerPage: 20,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		filter.Page = page
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		filter.PerPage = perPage
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	tickets, total, err := h.service.ListTickets(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(tickets, total, filter.Page, filter.PerPage))
}

// GetTicket handles GET /api/v1/tickets/{id}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ticket, err := h.service.GetTicket(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ticket})
}

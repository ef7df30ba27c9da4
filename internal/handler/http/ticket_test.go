package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/ticketpay/internal/domain"
	"github.com/tillpoint/ticketpay/internal/event"
	"github.com/tillpoint/ticketpay/internal/rates"
	"github.com/tillpoint/ticketpay/internal/repository"
	"github.com/tillpoint/ticketpay/internal/service"
	apperrors "github.com/tillpoint/ticketpay/pkg/errors"
	"github.com/tillpoint/ticketpay/pkg/health"
	"github.com/tillpoint/ticketpay/pkg/httputil"
	pkgkafka "github.com/tillpoint/ticketpay/pkg/kafka"
)

const testTicketID = "7cb9d6a1-53c4-4d22-9e8f-0a1b2c3d4e5f"

// --- Mock TicketRepository ---

type mockTicketRepository struct {
	mock.Mock
}

func (m *mockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *mockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *mockTicketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Ticket), args.Int(1), args.Error(2)
}

func (m *mockTicketRepository) AppendPaidItems(ctx context.Context, ticketID string, status string, items []domain.PaidItem) error {
	args := m.Called(ctx, ticketID, status, items)
	return args.Error(0)
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPaymentService(repo *mockTicketRepository) *service.PaymentService {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	kafkaCfg.Async = true
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return service.NewPaymentService(repo, producer, rates.Static{}, logger)
}

// setupRouter builds the production router against a mocked repository.
func setupRouter(repo *mockTicketRepository) http.Handler {
	logger := testLogger()
	return NewRouter(testPaymentService(repo), health.NewHandler(), logger, nil)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleTicket() *domain.Ticket {
	ticket := domain.NewTicket(testTicketID, "0042", "USD")
	ticket.AddLine(domain.OrderLine{ID: "line-1", MenuItemID: "toast", Name: "Toast", PortionName: "Piece", PortionCount: 2, Price: dec("5"), Quantity: 2})
	ticket.AddLine(domain.OrderLine{ID: "line-2", MenuItemID: "toast", Name: "Toast", PortionName: "Piece", PortionCount: 1, Price: dec("5"), Quantity: 1})
	ticket.AddLine(domain.OrderLine{ID: "line-3", MenuItemID: "hamburger", Name: "Hamburger", Price: dec("7"), Quantity: 1})
	ticket.AddLine(domain.OrderLine{ID: "line-4", MenuItemID: "hamburger", Name: "Hamburger", Price: dec("6"), Quantity: 1})
	return ticket
}

// decodeResponse reads the response body into the httputil.Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- CreateTicket Tests ---

func TestCreateTicket_Created(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Ticket")).Return(nil)

	body := map[string]any{
		"number":   "0042",
		"currency": "USD",
		"lines": []map[string]any{
			{"menu_item_id": "toast", "name": "Toast", "portion_name": "Piece", "portion_count": 2, "price": "5", "quantity": 2},
		},
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	repo.AssertExpectations(t)
}

func TestCreateTicket_ValidationFailure(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)

	body := map[string]any{
		"number":   "0042",
		"currency": "USDX",
		"lines":    []map[string]any{},
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateTicket_RequiresJSONContentType(t *testing.T) {
	router := setupRouter(new(mockTicketRepository))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// --- GetTicket Tests ---

func TestGetTicket_Found(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)

	repo.On("GetByID", mock.Anything, testTicketID).Return(sampleTicket(), nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets/"+testTicketID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)
}

func TestGetTicket_NotFound(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)

	repo.On("GetByID", mock.Anything, testTicketID).Return(nil, apperrors.NotFound("ticket", testTicketID))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets/"+testTicketID, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTicket_InvalidUUID(t *testing.T) {
	router := setupRouter(new(mockTicketRepository))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- ListTickets Tests ---

func TestListTickets_ReturnsPage(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)

	status := domain.TicketStatusOpen
	repo.On("List", mock.Anything, repository.TicketFilter{Status: &status, Page: 2, PerPage: 10}).
		Return([]domain.Ticket{*sampleTicket()}, 11, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets?status=open&page=2&per_page=10", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestListTickets_RejectsBadPage(t *testing.T) {
	router := setupRouter(new(mockTicketRepository))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets?page=zero", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Health Tests ---

func TestHealthLive(t *testing.T) {
	router := setupRouter(new(mockTicketRepository))

	rec := doJSON(t, router, http.MethodGet, "/health/live", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

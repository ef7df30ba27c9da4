package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/ticketpay/internal/domain"
	"github.com/tillpoint/ticketpay/internal/service"
)

func decodeSessionView(t *testing.T, rec *httptest.ResponseRecorder) service.SessionView {
	t.Helper()
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var view service.SessionView
	require.NoError(t, json.Unmarshal(raw, &view))
	return view
}

func openTestSession(t *testing.T, router http.Handler, repo *mockTicketRepository) service.SessionView {
	t.Helper()
	repo.On("GetByID", mock.Anything, testTicketID).Return(sampleTicket(), nil).Once()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets/"+testTicketID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeSessionView(t, rec)
}

func TestOpenSession_ReturnsGroups(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)

	view := openTestSession(t, router, repo)

	assert.NotEmpty(t, view.SessionID)
	require.Len(t, view.Selectors, 3)
	assert.Equal(t, "Toast.Piece", view.Selectors[0].Description)
	assert.True(t, view.RemainingTotal.Equal(dec("28")))
}

func TestGetSession_UnknownSession(t *testing.T) {
	router := setupRouter(new(mockTicketRepository))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+testTicketID, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectItem_UpdatesSelectedTotal(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/select",
		map[string]any{"menu_item_id": "toast", "price": "5"})

	assert.Equal(t, http.StatusOK, rec.Code)
	updated := decodeSessionView(t, rec)
	assert.True(t, updated.SelectedTotal.Equal(dec("5")))
}

func TestSelectItem_MissingItemID(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/select",
		map[string]any{"price": "5"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearSelection_ResetsTotals(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/select",
		map[string]any{"menu_item_id": "toast", "price": "5"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/clear", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	updated := decodeSessionView(t, rec)
	assert.True(t, updated.SelectedTotal.IsZero())
}

func TestSetCurrency_TicketCurrency(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/sessions/"+view.SessionID+"/currency",
		map[string]any{"currency": "USD"})

	assert.Equal(t, http.StatusOK, rec.Code)
	updated := decodeSessionView(t, rec)
	assert.True(t, updated.ExchangeRate.Equal(dec("1")))
}

func TestSetCurrency_BadCode(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/sessions/"+view.SessionID+"/currency",
		map[string]any{"currency": "EURO"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitPayment_PersistsSelection(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/select",
		map[string]any{"menu_item_id": "toast", "price": "5"})
	require.Equal(t, http.StatusOK, rec.Code)

	repo.On("AppendPaidItems", mock.Anything, testTicketID, domain.TicketStatusPartiallyPaid, mock.Anything).Return(nil)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/commit", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	updated := decodeSessionView(t, rec)
	assert.Equal(t, domain.TicketStatusPartiallyPaid, updated.TicketStatus)
	assert.True(t, updated.RemainingTotal.Equal(dec("23")))
	repo.AssertExpectations(t)
}

func TestCommitPayment_EmptySelection(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+view.SessionID+"/commit", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseSession_RemovesSession(t *testing.T) {
	repo := new(mockTicketRepository)
	router := setupRouter(repo)
	view := openTestSession(t, router, repo)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+view.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+view.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

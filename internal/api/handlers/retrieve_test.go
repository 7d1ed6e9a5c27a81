package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aspire-solutions/councilkb/internal/api"
	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Answer(ctx context.Context, req *service.ToolRequest, routeTenant string) (string, error) {
	args := m.Called(ctx, req, routeTenant)
	return args.String(0), args.Error(1)
}

func decodeToolResponse(t *testing.T, rec *httptest.ResponseRecorder) api.ToolResponse {
	t.Helper()
	var resp api.ToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestQueryHandler(t *testing.T) {
	t.Run("returns the answer with the echoed call id", func(t *testing.T) {
		svc := new(MockRetrievalService)
		svc.On("Answer", mock.Anything, mock.Anything, "").
			Return("tenant=moreton | matches=1 | 1) [waste_bins] red bin weekly", nil)

		h := NewQueryHandler(svc, 0)
		body := `{"toolCallId":"call-9","query":"when are bins collected"}`
		rec := httptest.NewRecorder()
		h.Query(rec, httptest.NewRequest(http.MethodPost, "/api/tools/query", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeToolResponse(t, rec)
		assert.Equal(t, "call-9", resp.ToolCallID)
		assert.Contains(t, resp.Result, "matches=1")
		assert.Empty(t, resp.Error)
		svc.AssertExpectations(t)
	})

	t.Run("service errors stay HTTP 200 with an error field", func(t *testing.T) {
		svc := new(MockRetrievalService)
		svc.On("Answer", mock.Anything, mock.Anything, "").
			Return("", domain.ErrTenantUnresolved)

		h := NewQueryHandler(svc, 0)
		body := `{"toolCallId":"call-9","query":"bins"}`
		rec := httptest.NewRecorder()
		h.Query(rec, httptest.NewRequest(http.MethodPost, "/api/tools/query", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeToolResponse(t, rec)
		assert.Equal(t, "call-9", resp.ToolCallID)
		assert.Empty(t, resp.Result)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("invalid body stays HTTP 200 with an error field", func(t *testing.T) {
		svc := new(MockRetrievalService)
		h := NewQueryHandler(svc, 0)

		rec := httptest.NewRecorder()
		h.Query(rec, httptest.NewRequest(http.MethodPost, "/api/tools/query", strings.NewReader("{not json")))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeToolResponse(t, rec)
		assert.Equal(t, "invalid request body", resp.Error)
		svc.AssertNotCalled(t, "Answer")
	})

	t.Run("route tenant is forwarded to the service", func(t *testing.T) {
		svc := new(MockRetrievalService)
		svc.On("Answer", mock.Anything, mock.Anything, "redland").
			Return("tenant=redland | no_match | no knowledge found for this query", nil)

		h := NewQueryHandler(svc, 0)
		r := chi.NewRouter()
		r.Post("/api/tools/query/{tenant}", h.Query)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/tools/query/redland", strings.NewReader(`{"query":"tip hours"}`))
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("query param tenant works without a route param", func(t *testing.T) {
		svc := new(MockRetrievalService)
		svc.On("Answer", mock.Anything, mock.Anything, "moreton").
			Return("tenant=moreton | no_match | no knowledge found for this query", nil)

		h := NewQueryHandler(svc, 0)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/tools/query?tenant=moreton", strings.NewReader(`{"query":"tip hours"}`))
		h.Query(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}

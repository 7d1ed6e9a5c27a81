package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aspire-solutions/councilkb/internal/api"
	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Submit(ctx context.Context, input service.ContactInput) (*domain.ContactSubmission, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContactSubmission), args.Error(1)
}

func (m *MockContactService) DispatchCouncilRequest(ctx context.Context, request *domain.CouncilRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func TestContactSubmit(t *testing.T) {
	t.Run("stores the submission and returns 201", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("Submit", mock.Anything, service.ContactInput{
			Name:    "Jordan Lee",
			Email:   "jordan@example.com",
			Message: "Streetlight out",
		}).Return(&domain.ContactSubmission{
			ID:        "sub-1",
			Name:      "Jordan Lee",
			Email:     "jordan@example.com",
			Message:   "Streetlight out",
			Status:    "new",
			CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		}, nil)

		h := NewContactHandler(svc)
		body := `{"name":"Jordan Lee","email":"jordan@example.com","message":"Streetlight out"}`
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp api.SuccessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "sub-1", data["id"])
		assert.Equal(t, "new", data["status"])
		assert.Equal(t, "2026-03-01T09:00:00Z", data["timestamp"])
		svc.AssertExpectations(t)
	})

	t.Run("validation failure maps to 400", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid contact submission"))

		h := NewContactHandler(svc)
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"name":""}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json is a 400", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc)

		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{bad")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Submit")
	})
}

func TestCouncilRequest(t *testing.T) {
	envelope := `{
		"message": {
			"toolCalls": [{
				"id": "call-7",
				"function": {
					"name": "send_structured_email",
					"arguments": {
						"subject": "Missed bin collection",
						"request_type": "waste",
						"resident_name": "Jordan Lee",
						"resident_phone": "0400 000 000",
						"address": "1 Oak St",
						"details": "Bin not emptied Monday"
					}
				}
			}]
		}
	}`

	t.Run("dispatches the decoded request", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("DispatchCouncilRequest", mock.Anything, mock.MatchedBy(func(req *domain.CouncilRequest) bool {
			return req.Subject == "Missed bin collection" &&
				req.RequestType == "waste" &&
				req.ResidentName == "Jordan Lee"
		})).Return(nil)

		h := NewContactHandler(svc)
		rec := httptest.NewRecorder()
		h.CouncilRequest(rec, httptest.NewRequest(http.MethodPost, "/api/tools/request", strings.NewReader(envelope)))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeToolResponse(t, rec)
		assert.Equal(t, "call-7", resp.ToolCallID)
		assert.Equal(t, "request sent to council staff", resp.Result)
		svc.AssertExpectations(t)
	})

	t.Run("accepts a bare arguments object", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("DispatchCouncilRequest", mock.Anything, mock.MatchedBy(func(req *domain.CouncilRequest) bool {
			return req.RequestType == "roads" && req.To == "depot@council.example"
		})).Return(nil)

		h := NewContactHandler(svc)
		body := `{"subject":"Pothole","request_type":"roads","resident_name":"A","resident_phone":"1","address":"2 Elm St","details":"deep pothole","to":"depot@council.example"}`
		rec := httptest.NewRecorder()
		h.CouncilRequest(rec, httptest.NewRequest(http.MethodPost, "/api/tools/request", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("double-encoded arguments are decoded", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("DispatchCouncilRequest", mock.Anything, mock.MatchedBy(func(req *domain.CouncilRequest) bool {
			return req.RequestType == "waste"
		})).Return(nil)

		inner, err := json.Marshal(map[string]string{
			"subject": "Missed bin", "request_type": "waste",
			"resident_name": "A", "resident_phone": "1",
			"address": "1 Oak St", "details": "missed",
		})
		require.NoError(t, err)
		encoded, err := json.Marshal(string(inner))
		require.NoError(t, err)
		body := `{"message":{"toolCalls":[{"id":"call-8","function":{"name":"send_structured_email","arguments":` + string(encoded) + `}}]}}`

		h := NewContactHandler(svc)
		rec := httptest.NewRecorder()
		h.CouncilRequest(rec, httptest.NewRequest(http.MethodPost, "/api/tools/request", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("delivery failure surfaces as 502", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("DispatchCouncilRequest", mock.Anything, mock.Anything).
			Return(domain.NewDomainError(domain.ErrCodeUpstream, "failed to deliver council request"))

		h := NewContactHandler(svc)
		rec := httptest.NewRecorder()
		h.CouncilRequest(rec, httptest.NewRequest(http.MethodPost, "/api/tools/request", strings.NewReader(envelope)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("validation failure surfaces as 400", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("DispatchCouncilRequest", mock.Anything, mock.Anything).
			Return(domain.NewDomainError(domain.ErrCodeValidation, "invalid council request: missing subject"))

		h := NewContactHandler(svc)
		rec := httptest.NewRecorder()
		h.CouncilRequest(rec, httptest.NewRequest(http.MethodPost, "/api/tools/request", strings.NewReader(envelope)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

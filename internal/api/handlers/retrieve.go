package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/aspire-solutions/councilkb/internal/api"
	"github.com/aspire-solutions/councilkb/internal/api/middleware"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/aspire-solutions/councilkb/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

type RetrievalService interface {
	Answer(ctx context.Context, req *service.ToolRequest, routeTenant string) (string, error)
}

// QueryHandler serves the knowledge-retrieval tool calls coming from the
// conversational platform. Transport always succeeds: any failure is folded
// into a single-line error string in a 200 response, because the caller does
// not branch on HTTP status.
type QueryHandler struct {
	svc     RetrievalService
	timeout time.Duration
}

func NewQueryHandler(svc RetrievalService, timeout time.Duration) *QueryHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QueryHandler{svc: svc, timeout: timeout}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req service.ToolRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.ToolError(w, "", "invalid request body")
			return
		}
	}

	routeTenant := chi.URLParam(r, "tenant")
	if routeTenant == "" {
		routeTenant = r.URL.Query().Get("tenant")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	answer, err := h.svc.Answer(ctx, &req, routeTenant)
	if err != nil {
		log.Printf("tool_query_error tenant=%q request_id=%s err=%v",
			routeTenant, middleware.GetRequestID(r.Context()), err)
		telemetry.CaptureError(r.Context(), err)
		api.ToolError(w, req.CallID(), err.Error())
		return
	}

	api.ToolResult(w, req.CallID(), answer)
}

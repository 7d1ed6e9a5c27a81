package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aspire-solutions/councilkb/internal/api"
	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/aspire-solutions/councilkb/internal/service"
)

type ContactService interface {
	Submit(ctx context.Context, input service.ContactInput) (*domain.ContactSubmission, error)
	DispatchCouncilRequest(ctx context.Context, request *domain.CouncilRequest) error
}

type ContactHandler struct {
	svc ContactService
}

func NewContactHandler(svc ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type ContactResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CouncilRequestArgs mirrors the arguments object of the send_structured_email
// tool call. Field names follow the tool schema the assistant is configured
// with, so they stay snake_case.
type CouncilRequestArgs struct {
	Subject         string `json:"subject"`
	RequestType     string `json:"request_type"`
	ResidentName    string `json:"resident_name"`
	ResidentPhone   string `json:"resident_phone"`
	ResidentEmail   string `json:"resident_email"`
	Address         string `json:"address"`
	PreferredMethod string `json:"preferred_contact_method"`
	Urgency         string `json:"urgency"`
	Details         string `json:"details"`
	To              string `json:"to"`
	ExtraMetadata   string `json:"extra_metadata"`
}

func submissionToResponse(sub *domain.ContactSubmission) *ContactResponse {
	return &ContactResponse{
		ID:        sub.ID,
		Name:      sub.Name,
		Email:     sub.Email,
		Phone:     sub.Phone,
		Message:   sub.Message,
		Status:    sub.Status,
		Timestamp: sub.CreatedAt.Format(time.RFC3339),
	}
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submission, err := h.svc.Submit(r.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, submissionToResponse(submission))
}

// CouncilRequest handles POST /api/tools/request, the send_structured_email
// tool call. Unlike the query tool this surfaces delivery failure as a 502 so
// the agent can tell the caller their request did not go through.
func (h *ContactHandler) CouncilRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var req service.ToolRequest
	if err := json.Unmarshal(body, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	args, err := councilRequestArgs(&req, body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	request := &domain.CouncilRequest{
		Subject:         args.Subject,
		RequestType:     args.RequestType,
		ResidentName:    args.ResidentName,
		ResidentPhone:   args.ResidentPhone,
		ResidentEmail:   args.ResidentEmail,
		Address:         args.Address,
		PreferredMethod: args.PreferredMethod,
		Urgency:         args.Urgency,
		Details:         args.Details,
		To:              args.To,
		ExtraMetadata:   args.ExtraMetadata,
	}

	if err := h.svc.DispatchCouncilRequest(r.Context(), request); err != nil {
		api.HandleError(w, err)
		return
	}

	api.ToolResult(w, req.CallID(), "request sent to council staff")
}

// councilRequestArgs accepts either the tool-call envelope or a bare
// arguments object as the request body.
func councilRequestArgs(req *service.ToolRequest, body []byte) (*CouncilRequestArgs, error) {
	raw := req.RawArguments()
	if len(raw) == 0 {
		raw = body
	}
	if len(raw) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "missing tool arguments")
	}

	var args CouncilRequestArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		// Some callers double-encode arguments as a JSON string.
		var encoded string
		if inner := json.Unmarshal(raw, &encoded); inner != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "malformed tool arguments")
		}
		if err := json.Unmarshal([]byte(encoded), &args); err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "malformed tool arguments")
		}
	}
	return &args, nil
}

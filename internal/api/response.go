package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToolResponse is the tool-call envelope. The calling conversational platform
// does not branch on HTTP status, so tool routes always return 200 and carry
// either a single-line result or a single-line error.
type ToolResponse struct {
	ToolCallID string `json:"toolCallId,omitempty"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ToolResult writes a tool-call success envelope.
func ToolResult(w http.ResponseWriter, callID, result string) {
	JSON(w, http.StatusOK, ToolResponse{ToolCallID: callID, Result: singleLine(result)})
}

// ToolError writes a tool-call error envelope, still with HTTP 200.
func ToolError(w http.ResponseWriter, callID, message string) {
	JSON(w, http.StatusOK, ToolResponse{ToolCallID: callID, Error: singleLine(message)})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	domainErr, ok := err.(*domain.DomainError)
	if !ok {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case domain.ErrCodeUpstream:
		return http.StatusBadGateway
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	Error(w, status, err.Error())
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

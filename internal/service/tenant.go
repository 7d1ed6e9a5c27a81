package service

import (
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// TenantResolver determines the owning tenant for an incoming tool call.
// Operating on the wrong tenant's knowledge is worse than answering nothing,
// so an unresolvable tenant is a hard error, never a default.
type TenantResolver struct {
	assistants map[string]string
}

// NewTenantResolver creates a resolver over a static assistant-to-tenant map.
func NewTenantResolver(assistants map[string]string) *TenantResolver {
	return &TenantResolver{assistants: assistants}
}

// Resolve walks the signal priority order: explicit tenant field in the body,
// tenant field inside the tool-call arguments, tenant query-string parameter
// on the route, then the assistant lookup table.
func (r *TenantResolver) Resolve(req *ToolRequest, routeTenant string) (string, error) {
	if req != nil {
		if tenant := strings.TrimSpace(req.Tenant); tenant != "" {
			return tenant, nil
		}
		if tenant := strings.TrimSpace(req.argumentString("tenant")); tenant != "" {
			return tenant, nil
		}
	}

	if tenant := strings.TrimSpace(routeTenant); tenant != "" {
		return tenant, nil
	}

	if req != nil {
		if assistantID := req.AssistantID(); assistantID != "" {
			if tenant, ok := r.assistants[assistantID]; ok && tenant != "" {
				return tenant, nil
			}
		}
	}

	return "", domain.ErrTenantUnresolved
}

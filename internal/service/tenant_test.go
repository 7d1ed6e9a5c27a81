package service

import (
	"testing"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantResolver(t *testing.T) {
	resolver := NewTenantResolver(map[string]string{"asst_1": "moreton"})

	t.Run("body tenant field wins", func(t *testing.T) {
		req := toolRequestWithArgs(t, map[string]string{"tenant": "from-args"})
		req.Tenant = "from-body"
		req.Message.Call = &CallInfo{AssistantID: "asst_1"}

		tenant, err := resolver.Resolve(req, "from-route")
		require.NoError(t, err)
		assert.Equal(t, "from-body", tenant)
	})

	t.Run("arguments tenant beats route", func(t *testing.T) {
		req := toolRequestWithArgs(t, map[string]string{"tenant": "from-args"})
		tenant, err := resolver.Resolve(req, "from-route")
		require.NoError(t, err)
		assert.Equal(t, "from-args", tenant)
	})

	t.Run("route tenant beats assistant map", func(t *testing.T) {
		req := &ToolRequest{Message: &ToolMessage{Call: &CallInfo{AssistantID: "asst_1"}}}
		tenant, err := resolver.Resolve(req, "from-route")
		require.NoError(t, err)
		assert.Equal(t, "from-route", tenant)
	})

	t.Run("assistant map is the last resort", func(t *testing.T) {
		req := &ToolRequest{Message: &ToolMessage{Call: &CallInfo{AssistantID: "asst_1"}}}
		tenant, err := resolver.Resolve(req, "")
		require.NoError(t, err)
		assert.Equal(t, "moreton", tenant)
	})

	t.Run("unknown assistant does not resolve", func(t *testing.T) {
		req := &ToolRequest{Message: &ToolMessage{Call: &CallInfo{AssistantID: "asst_unknown"}}}
		_, err := resolver.Resolve(req, "")
		assert.ErrorIs(t, err, domain.ErrTenantUnresolved)
	})

	t.Run("no signal is a hard error", func(t *testing.T) {
		_, err := resolver.Resolve(&ToolRequest{}, "")
		assert.ErrorIs(t, err, domain.ErrTenantUnresolved)

		_, err = resolver.Resolve(nil, "")
		assert.ErrorIs(t, err, domain.ErrTenantUnresolved)
	})

	t.Run("whitespace tenant fields are skipped", func(t *testing.T) {
		req := &ToolRequest{Tenant: "  "}
		tenant, err := resolver.Resolve(req, "route")
		require.NoError(t, err)
		assert.Equal(t, "route", tenant)
	})
}

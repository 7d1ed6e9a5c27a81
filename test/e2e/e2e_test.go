//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const divider = "----------------------------------------"

var knowledgeDoc = strings.Join([]string{
	divider,
	"BIN COLLECTION DAYS",
	divider,
	"Use this table to answer which day bins go out for a suburb.",
	"Division 1 - Caboolture:",
	"Caboolture, Morayfield, Bellmere",
	"Typical day: Thursday",
	"Division 2 - Redcliffe Peninsula:",
	"Redcliffe, Margate, Woody Point",
	"Typical day: Monday",
	"",
	divider,
	"RATES AND PAYMENTS",
	divider,
	"Rates notices issue quarterly. Pay online, by BPAY, or in person at any",
	"customer service centre. Late payments accrue interest at the gazetted rate.",
	"",
	divider,
	"AFTER HOURS EMERGENCIES",
	divider,
	"For fallen trees, burst water mains or road hazards outside business hours",
	"call the 24 hour line on 3205 0555.",
}, "\n")

type toolResponse struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
	Error      string `json:"error"`
}

func queryEnvelope(callID, query, tenant string) map[string]any {
	args := map[string]any{"query": query}
	if tenant != "" {
		args["tenant"] = tenant
	}
	return map[string]any{
		"message": map[string]any{
			"toolCalls": []map[string]any{{
				"id": callID,
				"function": map[string]any{
					"name":      "query_knowledge",
					"arguments": args,
				},
			}},
			"call": map[string]any{"id": "sess-e2e"},
		},
	}
}

func TestE2E_IngestAndQuery(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	result, err := env.Ingestion.Ingest(env.Ctx, "moreton", "kb.txt", knowledgeDoc)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Blocks)
	assert.Greater(t, result.Inserted, 0)

	t.Run("query returns ranked knowledge", func(t *testing.T) {
		resp, body, err := env.Post("/api/tools/query", queryEnvelope("call-1", "when are rates due", "moreton"), true)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tr toolResponse
		require.NoError(t, json.Unmarshal(body, &tr))
		assert.Equal(t, "call-1", tr.ToolCallID)
		assert.Empty(t, tr.Error)
		assert.Contains(t, tr.Result, "tenant=moreton | matches=")
		assert.Contains(t, tr.Result, "[")
	})

	t.Run("derived collection days are retrievable", func(t *testing.T) {
		resp, body, err := env.Post("/api/tools/query", queryEnvelope("call-2", "bin day redcliffe", "moreton"), true)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tr toolResponse
		require.NoError(t, json.Unmarshal(body, &tr))
		assert.Empty(t, tr.Error)
		assert.Contains(t, tr.Result, "tenant=moreton")
	})

	t.Run("re-ingest is idempotent", func(t *testing.T) {
		again, err := env.Ingestion.Ingest(env.Ctx, "moreton", "kb.txt", knowledgeDoc)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Inserted)
		assert.Equal(t, 0, again.Deactivated)
	})

	t.Run("other tenants see nothing", func(t *testing.T) {
		resp, body, err := env.Post("/api/tools/query", queryEnvelope("call-3", "when are rates due", "redland"), true)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tr toolResponse
		require.NoError(t, json.Unmarshal(body, &tr))
		assert.Contains(t, tr.Result, "tenant=redland | no_match |")
	})

	t.Run("assistant id resolves the tenant", func(t *testing.T) {
		envelope := queryEnvelope("call-4", "after hours emergency number", "")
		envelope["message"].(map[string]any)["call"] = map[string]any{
			"id":          "sess-e2e",
			"assistantId": "asst-moreton",
		}

		resp, body, err := env.Post("/api/tools/query", envelope, true)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tr toolResponse
		require.NoError(t, json.Unmarshal(body, &tr))
		assert.Empty(t, tr.Error)
		assert.Contains(t, tr.Result, "tenant=moreton")
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		resp, _, err := env.Post("/api/tools/query", queryEnvelope("call-5", "rates", "moreton"), false)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestE2E_ConversationMemory(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, err := env.Ingestion.Ingest(env.Ctx, "moreton", "kb.txt", knowledgeDoc)
	require.NoError(t, err)

	resp, body, err := env.Post("/api/tools/query", queryEnvelope("call-m1", "when are rates due", "moreton"), true)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tr toolResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	require.Empty(t, tr.Error)

	// The summary write happens off the request path; poll for it.
	deadline := time.Now().Add(10 * time.Second)
	var summary string
	for time.Now().Before(deadline) {
		err := env.Pool.QueryRow(env.Ctx,
			"SELECT summary FROM conversation_summaries WHERE tenant_id = $1 AND session_id = $2",
			"moreton", "sess-e2e",
		).Scan(&summary)
		if err == nil && summary != "" {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	assert.NotEmpty(t, summary)
}

func TestE2E_ContactAndCouncilRequest(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("contact submission is stored and notified", func(t *testing.T) {
		resp, body, err := env.Post("/api/contact", map[string]string{
			"name":    "Jordan Lee",
			"email":   "jordan@example.com",
			"message": "Streetlight out on Oak St",
		}, false)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Contains(t, string(body), `"status":"new"`)

		var count int
		require.NoError(t, env.Pool.QueryRow(env.Ctx,
			"SELECT COUNT(*) FROM contact_submissions WHERE email = $1", "jordan@example.com",
		).Scan(&count))
		assert.Equal(t, 1, count)

		// Notification email goes out in the background.
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if len(env.Brevo.Subjects()) > 0 {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		assert.Contains(t, env.Brevo.Subjects(), "New Contact Form Submission")
	})

	t.Run("council request tool delivers synchronously", func(t *testing.T) {
		envelope := map[string]any{
			"message": map[string]any{
				"toolCalls": []map[string]any{{
					"id": "call-c1",
					"function": map[string]any{
						"name": "send_structured_email",
						"arguments": map[string]string{
							"subject":        "Missed bin collection",
							"request_type":   "waste",
							"resident_name":  "Jordan Lee",
							"resident_phone": "0400 000 000",
							"address":        "1 Oak St, Redcliffe",
							"details":        "Bin not emptied Monday",
						},
					},
				}},
			},
		}

		resp, body, err := env.Post("/api/tools/request", envelope, true)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tr toolResponse
		require.NoError(t, json.Unmarshal(body, &tr))
		assert.Equal(t, "call-c1", tr.ToolCallID)
		assert.Equal(t, "request sent to council staff", tr.Result)
		assert.Contains(t, env.Brevo.Subjects(), "Missed bin collection")
	})
}

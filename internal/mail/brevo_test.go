package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path    string
	APIKey  string
	Payload sendEmailRequest
}

func newBrevoServer(t *testing.T, status int, responseBody string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.APIKey = r.Header.Get("api-key")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured.Payload))

		w.WriteHeader(status)
		w.Write([]byte(responseBody))
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func testConfig(baseURL string) BrevoConfig {
	return BrevoConfig{
		APIKey:         "key-123",
		SenderEmail:    "noreply@aspire.example",
		SenderName:     "Aspire AI",
		RecipientEmail: "staff@council.example",
		BaseURL:        baseURL,
	}
}

func TestSendContactNotification(t *testing.T) {
	submission := &domain.ContactSubmission{
		Name:    "Jordan <script>",
		Email:   "jordan@example.com",
		Phone:   "0400 000 000",
		Message: "Streetlight out",
	}

	t.Run("posts to the smtp endpoint with api key", func(t *testing.T) {
		srv, captured := newBrevoServer(t, http.StatusCreated, `{"messageId":"msg-1"}`)
		client := NewBrevoClient(testConfig(srv.URL))

		err := client.SendContactNotification(context.Background(), submission)
		require.NoError(t, err)

		assert.Equal(t, "/smtp/email", captured.Path)
		assert.Equal(t, "key-123", captured.APIKey)
		assert.Equal(t, "staff@council.example", captured.Payload.To[0].Email)
		assert.Equal(t, "New Contact Form Submission", captured.Payload.Subject)
	})

	t.Run("html-escapes submission fields", func(t *testing.T) {
		srv, captured := newBrevoServer(t, http.StatusCreated, `{"messageId":"msg-1"}`)
		client := NewBrevoClient(testConfig(srv.URL))

		require.NoError(t, client.SendContactNotification(context.Background(), submission))
		assert.Contains(t, captured.Payload.HTMLContent, "Jordan &lt;script&gt;")
		assert.NotContains(t, captured.Payload.HTMLContent, "<script>")
	})

	t.Run("non-2xx status is a delivery error", func(t *testing.T) {
		srv, _ := newBrevoServer(t, http.StatusUnauthorized, `{"message":"bad key"}`)
		client := NewBrevoClient(testConfig(srv.URL))

		err := client.SendContactNotification(context.Background(), submission)
		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Contains(t, deliveryErr.Message, "401")
	})

	t.Run("2xx without messageId is a delivery error", func(t *testing.T) {
		srv, _ := newBrevoServer(t, http.StatusCreated, `{}`)
		client := NewBrevoClient(testConfig(srv.URL))

		err := client.SendContactNotification(context.Background(), submission)
		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Contains(t, deliveryErr.Message, "messageId")
	})

	t.Run("missing api key fails without a request", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.APIKey = ""
		client := NewBrevoClient(cfg)

		err := client.SendContactNotification(context.Background(), submission)
		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
	})
}

func TestSendCouncilRequest(t *testing.T) {
	request := &domain.CouncilRequest{
		Subject:       "Missed bin collection",
		RequestType:   "waste",
		ResidentName:  "Jordan Lee",
		ResidentPhone: "0400 000 000",
		Address:       "1 Oak St, Redcliffe",
		Details:       "Bin not emptied Monday",
	}

	t.Run("uses the request subject and configured recipient", func(t *testing.T) {
		srv, captured := newBrevoServer(t, http.StatusCreated, `{"messageId":"msg-2"}`)
		client := NewBrevoClient(testConfig(srv.URL))

		require.NoError(t, client.SendCouncilRequest(context.Background(), request))
		assert.Equal(t, "Missed bin collection", captured.Payload.Subject)
		assert.Equal(t, "staff@council.example", captured.Payload.To[0].Email)
	})

	t.Run("explicit to overrides the configured recipient", func(t *testing.T) {
		srv, captured := newBrevoServer(t, http.StatusCreated, `{"messageId":"msg-3"}`)
		client := NewBrevoClient(testConfig(srv.URL))

		override := *request
		override.To = "depot@council.example"
		require.NoError(t, client.SendCouncilRequest(context.Background(), &override))
		assert.Equal(t, "depot@council.example", captured.Payload.To[0].Email)
	})

	t.Run("optional fields default in the rendered body", func(t *testing.T) {
		srv, captured := newBrevoServer(t, http.StatusCreated, `{"messageId":"msg-4"}`)
		client := NewBrevoClient(testConfig(srv.URL))

		require.NoError(t, client.SendCouncilRequest(context.Background(), request))
		assert.Contains(t, captured.Payload.HTMLContent, "Urgency:</strong> Normal")
		assert.Contains(t, captured.Payload.HTMLContent, "Email:</strong> N/A")
	})

	t.Run("no recipient anywhere is a delivery error", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.RecipientEmail = ""
		client := NewBrevoClient(cfg)

		err := client.SendCouncilRequest(context.Background(), request)
		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Contains(t, deliveryErr.Message, "recipient")
	})
}

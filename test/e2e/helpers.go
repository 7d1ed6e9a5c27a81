//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aspire-solutions/councilkb/internal/api/handlers"
	"github.com/aspire-solutions/councilkb/internal/jobs"
	"github.com/aspire-solutions/councilkb/internal/mail"
	"github.com/aspire-solutions/councilkb/internal/repository"
	"github.com/aspire-solutions/councilkb/internal/server"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/aspire-solutions/councilkb/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const e2eSecret = "e2e-webhook-secret"

// hashEmbedder deterministically maps text to a 1536-dim unit-ish vector so
// ingest and query embeddings are stable without a live provider. Similar
// texts do not embed near each other, but identical texts do, which is all
// these tests rely on.
type hashEmbedder struct{}

func (hashEmbedder) embed(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, 1536)
	for i := range v {
		word := binary.BigEndian.Uint16([]byte{sum[(2*i)%32], sum[(2*i+1)%32]})
		v[i] = float32(word)/65535.0 - 0.5
	}
	v[int(sum[0])%1536] += 2.0
	return v
}

func (h hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h hashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

// echoSummarizer stands in for the chat-completion summarizer.
type echoSummarizer struct{}

func (echoSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if len(prompt) > 200 {
		prompt = prompt[:200]
	}
	return "summary: " + prompt, nil
}

// brevoStub records transactional sends and always confirms delivery.
type brevoStub struct {
	mu       sync.Mutex
	subjects []string
	server   *httptest.Server
}

func newBrevoStub() *brevoStub {
	stub := &brevoStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Subject string `json:"subject"`
		}
		json.Unmarshal(body, &payload)

		stub.mu.Lock()
		stub.subjects = append(stub.subjects, payload.Subject)
		stub.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId":"e2e-msg"}`))
	}))
	return stub
}

func (s *brevoStub) Subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.subjects))
	copy(out, s.subjects)
	return out
}

// E2EEnv holds the full in-process stack for one test.
type E2EEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Server       *httptest.Server
	Brevo        *brevoStub
	Ingestion    *service.IngestionService
	MemoryWorker *jobs.MemoryWorker
	HTTPClient   *http.Client
}

// SetupE2EEnv wires the real repositories, services and router against a
// pgvector container, swapping only the embedding provider and the email
// provider endpoint for deterministic stand-ins.
func SetupE2EEnv(t *testing.T) *E2EEnv {
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	summaryRepo := repository.NewConversationSummaryRepository(pool)
	contactRepo := repository.NewContactRepository(pool)

	embedder := hashEmbedder{}

	ingestionSvc := service.NewIngestionService(embedder, chunkRepo)

	memoryCfg := service.DefaultMemoryConfig()
	memoryCfg.WritesEnabled = true
	memorySvc := service.NewMemoryService(summaryRepo, echoSummarizer{}, memoryCfg)

	memoryWorker := jobs.NewMemoryWorker(memorySvc, 32, 10*time.Second)
	go memoryWorker.Start(ctx)

	resolver := service.NewTenantResolver(map[string]string{
		"asst-moreton": "moreton",
	})

	retrievalSvc := service.NewRetrievalService(resolver, embedder, chunkRepo, service.DefaultRetrievalConfig()).
		WithMemory(memorySvc).
		WithDispatcher(memoryWorker)

	brevo := newBrevoStub()
	mailer := mail.NewBrevoClient(mail.BrevoConfig{
		APIKey:         "e2e-key",
		SenderEmail:    "noreply@aspire.example",
		RecipientEmail: "staff@council.example",
		BaseURL:        brevo.server.URL,
	})

	contactSvc := service.NewContactService(contactRepo, mailer, nil)

	router := server.NewRouter(server.RouterConfig{
		WebhookSecret:  e2eSecret,
		QueryHandler:   handlers.NewQueryHandler(retrievalSvc, 15*time.Second),
		ContactHandler: handlers.NewContactHandler(contactSvc),
	})
	srv := httptest.NewServer(router)

	return &E2EEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pc,
		Pool:         pool,
		Server:       srv,
		Brevo:        brevo,
		Ingestion:    ingestionSvc,
		MemoryWorker: memoryWorker,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources.
func (e *E2EEnv) Cleanup() {
	if e.MemoryWorker != nil {
		e.MemoryWorker.Stop()
	}
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Brevo != nil {
		e.Brevo.server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Post sends a JSON body; withSecret attaches the webhook secret header.
func (e *E2EEnv) Post(path string, body any, withSecret bool) (*http.Response, []byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withSecret {
		req.Header.Set("X-Vapi-Secret", e2eSecret)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	return resp, raw, err
}

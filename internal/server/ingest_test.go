package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	"github.com/inlethq/inlet/internal/clock"
	"github.com/inlethq/inlet/internal/config"
	ingestdomain "github.com/inlethq/inlet/internal/ingest/domain"
	"github.com/inlethq/inlet/internal/ratelimit"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngest struct {
	fn func(ctx context.Context, input ingestdomain.Input) (*ingestdomain.Result, error)
}

func (s *stubIngest) Ingest(ctx context.Context, input ingestdomain.Input) (*ingestdomain.Result, error) {
	return s.fn(ctx, input)
}

type stubUsage struct {
	snapshot *usagedomain.Snapshot
	err      error
}

func (s *stubUsage) Current(context.Context, snowflake.ID) (*usagedomain.Snapshot, error) {
	return s.snapshot, s.err
}

type stubWebhooks struct {
	logs  []webhookdomain.DeliveryLog
	stats *webhookdomain.Stats
	err   error
}

func (s *stubWebhooks) Deliveries(context.Context, snowflake.ID, snowflake.ID, int) ([]webhookdomain.DeliveryLog, error) {
	return s.logs, s.err
}

func (s *stubWebhooks) Stats(context.Context, snowflake.ID, snowflake.ID) (*webhookdomain.Stats, error) {
	return s.stats, s.err
}

func newTestServer(t *testing.T, ingest ingestdomain.Service, usage usagedomain.Service, webhooks webhookdomain.Service) *Server {
	t.Helper()
	if ingest == nil {
		ingest = &stubIngest{fn: func(context.Context, ingestdomain.Input) (*ingestdomain.Result, error) {
			return &ingestdomain.Result{Decision: admissiondomain.Decision{Allowed: true}, Receipt: &ingestdomain.Receipt{}}, nil
		}}
	}
	if usage == nil {
		usage = &stubUsage{snapshot: &usagedomain.Snapshot{}}
	}
	if webhooks == nil {
		webhooks = &stubWebhooks{}
	}
	return NewServer(ServerParams{
		Gin:        NewEngine(),
		Cfg:        config.Config{},
		Clock:      clock.NewSystemClock(),
		Window:     ratelimit.NewMemoryStore(),
		IngestSvc:  ingest,
		UsageSvc:   usage,
		WebhookSvc: webhooks,
	})
}

func doRequest(s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestIngestAccepted(t *testing.T) {
	var gotInput ingestdomain.Input
	ingest := &stubIngest{fn: func(_ context.Context, input ingestdomain.Input) (*ingestdomain.Result, error) {
		gotInput = input
		return &ingestdomain.Result{
			Decision: admissiondomain.Decision{Allowed: true},
			Receipt: &ingestdomain.Receipt{
				EventID:    "123",
				Event:      "data.received",
				EndpointID: "7",
				ReceivedAt: "2026-03-01T12:00:00Z",
			},
		}, nil
	}}
	s := newTestServer(t, ingest, nil, nil)

	payload := `{"event":"data.received","status":"completed"}`
	rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", payload, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "orders", gotInput.Path)
	assert.Equal(t, "data.received", gotInput.EventName)
	assert.Equal(t, int64(len(payload)), gotInput.SizeBytes)
	assert.NotEmpty(t, gotInput.RequestID)

	var receipt ingestdomain.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "123", receipt.EventID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestIngestUsageLimitContract(t *testing.T) {
	ingest := &stubIngest{fn: func(context.Context, ingestdomain.Input) (*ingestdomain.Result, error) {
		return &ingestdomain.Result{Decision: admissiondomain.Decision{Denial: &admissiondomain.Denial{
			Code:           admissiondomain.CodeUsageLimitExceeded,
			LimitType:      admissiondomain.LimitRequests,
			Message:        "monthly requests limit reached",
			Current:        10_000,
			Limit:          10_000,
			PercentUsed:    100,
			DaysUntilReset: 12,
			RetryAfter:     12 * 24 * time.Hour,
		}}}, nil
	}}
	s := newTestServer(t, ingest, nil, nil)

	rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", `{"a":1}`, nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "requests", rec.Header().Get("X-Usage-Limit-Type"))
	assert.Equal(t, "10000", rec.Header().Get("X-Usage-Limit"))
	assert.Equal(t, "10000", rec.Header().Get("X-Usage-Current"))
	assert.Equal(t, "0", rec.Header().Get("X-Usage-Remaining"))
	assert.Equal(t, "12", rec.Header().Get("X-Usage-Reset-Days"))
	assert.Equal(t, "1036800", rec.Header().Get("Retry-After"))

	var body usageDeniedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, admissiondomain.CodeUsageLimitExceeded, body.Code)
	assert.Equal(t, "requests", body.LimitType)
	assert.Equal(t, int64(10_000), body.CurrentUsage)
	assert.InDelta(t, 100, body.PercentageUsed, 0.001)
	assert.Equal(t, 12, body.DaysUntilReset)
}

func TestIngestRateLimitContract(t *testing.T) {
	ingest := &stubIngest{fn: func(context.Context, ingestdomain.Input) (*ingestdomain.Result, error) {
		return &ingestdomain.Result{Decision: admissiondomain.Decision{Denial: &admissiondomain.Denial{
			Code:       admissiondomain.CodeRateLimitExceeded,
			LimitType:  admissiondomain.LimitHourlyRate,
			Message:    "hourly rate limit exceeded",
			Limit:      600,
			Remaining:  0,
			RetryAfter: 95 * time.Second,
		}}}, nil
	}}
	s := newTestServer(t, ingest, nil, nil)

	rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", `{"a":1}`, nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "95", rec.Header().Get("Retry-After"))

	var body rateDeniedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, admissiondomain.CodeRateLimitExceeded, body.Code)
	assert.Equal(t, 95, body.RetryAfter)
}

func TestIngestUnknownEndpoint(t *testing.T) {
	ingest := &stubIngest{fn: func(context.Context, ingestdomain.Input) (*ingestdomain.Result, error) {
		return nil, ingestdomain.ErrEndpointNotFound
	}}
	s := newTestServer(t, ingest, nil, nil)

	rec := doRequest(s, http.MethodPost, "/v1/ingest/ghost", `{"a":1}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestMalformedBody(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestStoreUnavailable(t *testing.T) {
	ingest := &stubIngest{fn: func(context.Context, ingestdomain.Input) (*ingestdomain.Result, error) {
		return nil, admissiondomain.ErrStoreUnavailable
	}}
	s := newTestServer(t, ingest, nil, nil)

	rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", `{"a":1}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// The per-address gate fires before endpoint resolution, so a denied sender
// never reaches the ingest service.
func TestIngestPerAddressRateLimit(t *testing.T) {
	served := 0
	ingest := &stubIngest{fn: func(context.Context, ingestdomain.Input) (*ingestdomain.Result, error) {
		served++
		return &ingestdomain.Result{Decision: admissiondomain.Decision{Allowed: true}, Receipt: &ingestdomain.Receipt{}}, nil
	}}

	cfg := config.Config{}
	cfg.RateLimit.IPHourlyLimit = 2
	s := NewServer(ServerParams{
		Gin:        NewEngine(),
		Cfg:        cfg,
		Clock:      clock.NewSystemClock(),
		Window:     ratelimit.NewMemoryStore(),
		IngestSvc:  ingest,
		UsageSvc:   &stubUsage{snapshot: &usagedomain.Snapshot{}},
		WebhookSvc: &stubWebhooks{},
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", `{"event":"data.received"}`, nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := doRequest(s, http.MethodPost, "/v1/ingest/orders", `{"event":"data.received"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var resp rateDeniedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, admissiondomain.CodeRateLimitExceeded, resp.Code)

	assert.Equal(t, 2, served)
}

func TestUsageEndpointRequiresTenant(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	rec := doRequest(s, http.MethodGet, "/v1/usage", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsageEndpoint(t *testing.T) {
	usage := &stubUsage{snapshot: &usagedomain.Snapshot{
		TenantID: "99",
		Period:   "2026-03",
		PlanCode: "starter",
	}}
	s := newTestServer(t, nil, usage, nil)

	rec := doRequest(s, http.MethodGet, "/v1/usage", "", map[string]string{HeaderTenant: "99"})

	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot usagedomain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "starter", snapshot.PlanCode)
}

func TestWebhookStatsEndpoint(t *testing.T) {
	webhooks := &stubWebhooks{stats: &webhookdomain.Stats{WebhookID: "42", TotalCalls: 7, SuccessRate: 85.7}}
	s := newTestServer(t, nil, nil, webhooks)

	rec := doRequest(s, http.MethodGet, "/v1/webhooks/42/stats", "", map[string]string{HeaderTenant: "99"})

	require.Equal(t, http.StatusOK, rec.Code)
	var stats webhookdomain.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(7), stats.TotalCalls)
}

func TestWebhookStatsNotFound(t *testing.T) {
	webhooks := &stubWebhooks{err: webhookdomain.ErrNotFound}
	s := newTestServer(t, nil, nil, webhooks)

	rec := doRequest(s, http.MethodGet, "/v1/webhooks/42/stats", "", map[string]string{HeaderTenant: "99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	rec := doRequest(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

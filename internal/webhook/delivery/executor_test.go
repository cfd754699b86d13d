package delivery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/inlethq/inlet/internal/config"
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func endpointSummary() endpointdomain.Summary {
	return endpointdomain.Summary{ID: "7", Name: "orders", URLPath: "orders"}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	cfg := config.Config{}
	cfg.Webhook.AllowPrivateTargets = true
	return NewExecutor(cfg, zap.NewNop())
}

func signedEnvelope(t *testing.T, w *webhookdomain.Webhook) (*webhookdomain.Envelope, []byte) {
	t.Helper()
	env := webhookdomain.BuildEnvelope(w,
		webhookdomain.Event{Name: "data.received", Data: map[string]any{"k": "v"}},
		endpointSummary(), webhookdomain.Metadata{RequestID: "req-1"}, nil,
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if w.Secret != "" {
		require.NoError(t, env.Sign(w.Secret))
	}
	body, err := env.Body()
	require.NoError(t, err)
	return env, body
}

func TestExecutorSuccess(t *testing.T) {
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	w := &webhookdomain.Webhook{
		ID:             snowflake.ID(42),
		TargetURL:      srv.URL,
		Secret:         "topsecret",
		TimeoutSeconds: 5,
	}
	env, body := signedEnvelope(t, w)

	outcome := newTestExecutor(t).Attempt(context.Background(), w, env, body, 3)

	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, `{"ok":true}`, outcome.ResponseBody)
	assert.Empty(t, outcome.ErrorKind)

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "data.received", gotHeaders.Get("X-Inlet-Event"))
	assert.Equal(t, "42", gotHeaders.Get("X-Inlet-Webhook-Id"))
	assert.Equal(t, "3", gotHeaders.Get("X-Inlet-Attempt"))
	assert.Equal(t, "sha256="+env.Signature, gotHeaders.Get("X-Inlet-Signature-256"))
	assert.Equal(t, body, gotBody)
}

func TestExecutorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
		rw.Write([]byte("boom"))
	}))
	defer srv.Close()

	w := &webhookdomain.Webhook{ID: snowflake.ID(1), TargetURL: srv.URL, TimeoutSeconds: 5}
	env, body := signedEnvelope(t, w)

	outcome := newTestExecutor(t).Attempt(context.Background(), w, env, body, 1)

	assert.False(t, outcome.Success)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)
	assert.Equal(t, webhookdomain.ErrorKindHTTP, outcome.ErrorKind)
	assert.Equal(t, "HTTP 500", outcome.ErrorMessage)
	assert.Equal(t, "boom", outcome.ResponseBody)
}

func TestExecutorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	w := &webhookdomain.Webhook{ID: snowflake.ID(1), TargetURL: srv.URL, TimeoutSeconds: 1}
	env, body := signedEnvelope(t, w)

	outcome := newTestExecutor(t).Attempt(context.Background(), w, env, body, 1)

	assert.False(t, outcome.Success)
	assert.Equal(t, webhookdomain.ErrorKindTimeout, outcome.ErrorKind)
	assert.GreaterOrEqual(t, outcome.Duration, time.Second)
}

func TestExecutorConnectionRefused(t *testing.T) {
	w := &webhookdomain.Webhook{ID: snowflake.ID(1), TargetURL: "http://127.0.0.1:1", TimeoutSeconds: 2}
	env, body := signedEnvelope(t, w)

	outcome := newTestExecutor(t).Attempt(context.Background(), w, env, body, 1)

	assert.False(t, outcome.Success)
	assert.Equal(t, webhookdomain.ErrorKindConnection, outcome.ErrorKind)
	assert.NotEmpty(t, outcome.ErrorMessage)
}

func TestExecutorResponseTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Write([]byte(strings.Repeat("a", 5000)))
	}))
	defer srv.Close()

	w := &webhookdomain.Webhook{ID: snowflake.ID(1), TargetURL: srv.URL, TimeoutSeconds: 5}
	env, body := signedEnvelope(t, w)

	outcome := newTestExecutor(t).Attempt(context.Background(), w, env, body, 1)

	assert.True(t, outcome.Success)
	assert.Len(t, outcome.ResponseBody, 2000)
}

func TestExecutorBlocksPrivateTargets(t *testing.T) {
	cfg := config.Config{}
	exec := NewExecutor(cfg, zap.NewNop())

	w := &webhookdomain.Webhook{ID: snowflake.ID(1), TargetURL: "http://127.0.0.1:9/hook", TimeoutSeconds: 2}
	env, body := signedEnvelope(t, w)

	outcome := exec.Attempt(context.Background(), w, env, body, 1)

	assert.False(t, outcome.Success)
	assert.Equal(t, webhookdomain.ErrorKindConnection, outcome.ErrorKind)
	assert.Contains(t, outcome.ErrorMessage, "private address")
}

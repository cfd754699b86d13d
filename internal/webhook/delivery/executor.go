package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inlethq/inlet/internal/config"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"go.uber.org/zap"
)

// Outcome classifies one HTTP delivery attempt. Every failure mode of the
// executor resolves into an Outcome; nothing escapes its boundary.
type Outcome struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
}

// Executor performs a single webhook HTTP attempt with a bounded timeout.
type Executor struct {
	client           *http.Client
	log              *zap.Logger
	maxResponseBytes int
	allowPrivate     bool
}

func NewExecutor(cfg config.Config, log *zap.Logger) *Executor {
	maxBytes := cfg.Webhook.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = 2000
	}
	return &Executor{
		// Per-attempt deadlines come from the request context, derived from
		// each webhook's configured timeout.
		client:           &http.Client{},
		log:              log.Named("webhook.executor"),
		maxResponseBytes: maxBytes,
		allowPrivate:     cfg.Webhook.AllowPrivateTargets,
	}
}

// Attempt posts the envelope body to the webhook target once.
func (e *Executor) Attempt(ctx context.Context, w *webhookdomain.Webhook, env *webhookdomain.Envelope, body []byte, attempt int) Outcome {
	start := time.Now()

	if err := e.checkTarget(ctx, w.TargetURL); err != nil {
		return Outcome{
			ErrorKind:    webhookdomain.ErrorKindConnection,
			ErrorMessage: err.Error(),
			Duration:     time.Since(start),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, w.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.TargetURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{
			ErrorKind:    webhookdomain.ErrorKindExecution,
			ErrorMessage: fmt.Sprintf("build request: %v", err),
			Duration:     time.Since(start),
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Inlet-Event", env.Event)
	req.Header.Set("X-Inlet-Webhook-Id", env.WebhookID)
	req.Header.Set("X-Inlet-Endpoint-Id", env.Endpoint.ID)
	req.Header.Set("X-Inlet-Attempt", strconv.Itoa(attempt))
	req.Header.Set("X-Inlet-Timestamp", env.Metadata.Timestamp)
	if env.Signature != "" {
		req.Header.Set("X-Inlet-Signature-256", "sha256="+env.Signature)
	}

	resp, err := e.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return Outcome{
			ErrorKind:    classifyTransport(err),
			ErrorMessage: err.Error(),
			Duration:     duration,
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, int64(e.maxResponseBytes)))
	duration = time.Since(start)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Outcome{
			Success:      true,
			StatusCode:   resp.StatusCode,
			ResponseBody: string(respBody),
			Duration:     duration,
		}
	}

	return Outcome{
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
		ErrorKind:    webhookdomain.ErrorKindHTTP,
		ErrorMessage: fmt.Sprintf("HTTP %d", resp.StatusCode),
		Duration:     duration,
	}
}

// checkTarget refuses targets that resolve to loopback, link-local or
// private ranges unless explicitly allowed. External tenants configure
// arbitrary URLs, so the default trust model blocks internal addresses.
func (e *Executor) checkTarget(ctx context.Context, target string) error {
	if e.allowPrivate {
		return nil
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return errors.New("target url has no host")
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve target host: %w", err)
	}
	for _, ip := range ips {
		if ip.IP.IsLoopback() || ip.IP.IsPrivate() || ip.IP.IsLinkLocalUnicast() || ip.IP.IsUnspecified() {
			return fmt.Errorf("target host %s resolves to a private address", host)
		}
	}
	return nil
}

func classifyTransport(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return webhookdomain.ErrorKindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return webhookdomain.ErrorKindTimeout
	}
	return webhookdomain.ErrorKindConnection
}

package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	"github.com/inlethq/inlet/internal/clock"
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	"github.com/inlethq/inlet/internal/observability/metrics"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      webhookdomain.Repository
	Admission admissiondomain.Service
	Executor  *Executor
	Metrics   *metrics.Metrics `optional:"true"`
}

// Dispatcher fans an ingested event out to its matching webhooks. Each
// webhook's delivery runs in its own goroutine and owns a strictly
// sequential attempt/wait/retry loop; failures in one delivery never touch
// its siblings.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      webhookdomain.Repository
	admission admissiondomain.Service
	executor  *Executor
	metrics   *metrics.Metrics

	// sleep and jitter are swapped out by tests to avoid real backoff waits.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration

	wg sync.WaitGroup
}

func New(p Params) *Dispatcher {
	return &Dispatcher{
		db:        p.DB,
		log:       p.Log.Named("webhook.dispatcher"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		admission: p.Admission,
		executor:  p.Executor,
		metrics:   p.Metrics,
		sleep:     sleepCtx,
		jitter:    Jitter,
	}
}

// DispatchEvent evaluates every active webhook on the event's endpoint and
// starts one delivery pipeline per match. It returns after the pipelines are
// started, not after they finish.
func (d *Dispatcher) DispatchEvent(ctx context.Context, event webhookdomain.Event, endpoint endpointdomain.Summary, meta webhookdomain.Metadata) error {
	webhooks, err := d.repo.ListActiveByEndpoint(ctx, d.db, event.EndpointID)
	if err != nil {
		return err
	}

	for i := range webhooks {
		w := webhooks[i]

		fire, matched := webhookdomain.EvaluateTrigger(&w, event)
		if !fire {
			continue
		}

		decision, err := d.admission.CanTriggerWebhook(ctx, w.TenantID)
		if err != nil {
			d.log.Warn("webhook admission check failed, skipping delivery",
				zap.Error(err), zap.String("webhook", w.ID.String()))
			continue
		}
		if !decision.Allowed {
			d.log.Info("webhook call quota exhausted, skipping delivery",
				zap.String("webhook", w.ID.String()),
				zap.String("tenant", w.TenantID.String()))
			continue
		}

		env := webhookdomain.BuildEnvelope(&w, event, endpoint, meta, matched, d.clock.Now())
		if w.Secret != "" {
			if err := env.Sign(w.Secret); err != nil {
				d.log.Error("envelope signing failed", zap.Error(err), zap.String("webhook", w.ID.String()))
				continue
			}
		}
		body, err := env.Body()
		if err != nil {
			d.log.Error("envelope serialization failed", zap.Error(err), zap.String("webhook", w.ID.String()))
			continue
		}

		d.wg.Add(1)
		go func(w webhookdomain.Webhook) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("delivery pipeline panic",
						zap.Any("panic", r), zap.String("webhook", w.ID.String()))
				}
			}()
			// Deliveries outlive the ingestion request; the per-attempt
			// timeout is the only abort path.
			d.deliver(context.Background(), &w, event, env, body)
		}(w)
	}

	return nil
}

// Wait blocks until every started pipeline has reached a terminal state.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) deliver(ctx context.Context, w *webhookdomain.Webhook, event webhookdomain.Event, env *webhookdomain.Envelope, body []byte) {
	maxAttempts := w.MaxAttempts()
	state := StatePending
	var outcome Outcome

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state = NextState(state, false, attempt, maxAttempts)

		outcome = d.executor.Attempt(ctx, w, env, body, attempt)
		if d.metrics != nil {
			d.metrics.ObserveDelivery(outcomeLabel(outcome), outcome.Duration)
		}

		// The log write precedes the state transition so the execution log
		// always holds attempts 1..k in order, even on a crash mid-delivery.
		d.writeLog(ctx, w, event, env, body, attempt, maxAttempts, outcome)

		state = NextState(state, outcome.Success, attempt, maxAttempts)
		if state.Terminal() {
			break
		}

		wait := BackoffDelay(w.RetryBackoff, attempt) + d.jitter()
		if err := d.sleep(ctx, wait); err != nil {
			d.log.Warn("backoff wait aborted", zap.Error(err), zap.String("webhook", w.ID.String()))
			state = StateExhausted
			break
		}
	}

	delta := webhookdomain.StatsDelta{
		Success:     state == StateSuccess,
		DurationMs:  outcome.Duration.Milliseconds(),
		CompletedAt: d.clock.Now(),
	}
	if err := d.repo.UpdateStats(ctx, d.db, w.ID, delta); err != nil {
		d.log.Error("stats update failed", zap.Error(err), zap.String("webhook", w.ID.String()))
	}

	if state == StateExhausted {
		d.log.Warn("delivery exhausted",
			zap.String("webhook", w.ID.String()),
			zap.Int("attempts", maxAttempts),
			zap.String("error_kind", outcome.ErrorKind))
	}
}

func (d *Dispatcher) writeLog(ctx context.Context, w *webhookdomain.Webhook, event webhookdomain.Event, env *webhookdomain.Envelope, body []byte, attempt, maxAttempts int, outcome Outcome) {
	entry := &webhookdomain.DeliveryLog{
		ID:           d.genID.Generate(),
		WebhookID:    w.ID,
		TenantID:     w.TenantID,
		EventID:      event.ID,
		Attempt:      attempt,
		MaxAttempts:  maxAttempts,
		RequestBody:  datatypes.JSON(body),
		Signed:       w.Secret != "",
		Signature:    env.Signature,
		Success:      outcome.Success,
		StatusCode:   outcome.StatusCode,
		ResponseBody: outcome.ResponseBody,
		ErrorKind:    outcome.ErrorKind,
		ErrorMessage: outcome.ErrorMessage,
		DurationMs:   outcome.Duration.Milliseconds(),
		CreatedAt:    d.clock.Now(),
	}
	if err := d.repo.InsertLog(ctx, d.db, entry); err != nil {
		d.log.Error("execution log write failed",
			zap.Error(err),
			zap.String("webhook", w.ID.String()),
			zap.Int("attempt", attempt))
	}
}

func outcomeLabel(outcome Outcome) string {
	if outcome.Success {
		return "success"
	}
	if outcome.ErrorKind == "" {
		return webhookdomain.ErrorKindExecution
	}
	return outcome.ErrorKind
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

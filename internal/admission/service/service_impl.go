package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	"github.com/inlethq/inlet/internal/clock"
	"github.com/inlethq/inlet/internal/config"
	"github.com/inlethq/inlet/internal/observability/metrics"
	plandomain "github.com/inlethq/inlet/internal/plan/domain"
	"github.com/inlethq/inlet/internal/ratelimit"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Usage   usagedomain.Repository
	PlanSvc plandomain.Service
	Window  ratelimit.Store
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	usage   usagedomain.Repository
	planSvc plandomain.Service
	window  ratelimit.Store
	metrics *metrics.Metrics
}

func New(p Params) admissiondomain.Service {
	return &Service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("admission.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		usage:   p.Usage,
		planSvc: p.PlanSvc,
		window:  p.Window,
		metrics: p.Metrics,
	}
}

func (s *Service) CheckAndReserve(ctx context.Context, tenantID snowflake.ID, payloadSize int64, rateKey string) (admissiondomain.Decision, error) {
	if tenantID == 0 {
		return admissiondomain.Decision{}, admissiondomain.ErrInvalidTenant
	}

	limits, err := s.planSvc.LimitsFor(ctx, tenantID)
	if err != nil {
		return s.degrade(ctx, tenantID, rateKey, limits, err)
	}

	now := s.clock.Now()
	period := usagedomain.MonthKey(now)

	if err := s.ensurePeriod(ctx, tenantID, period); err != nil {
		return s.degrade(ctx, tenantID, rateKey, limits, err)
	}

	// Monthly request ceiling: the check and the reservation are one
	// conditional update against the usage store.
	applied, err := s.usage.IncrementIfBelow(ctx, s.db, tenantID, period, usagedomain.CounterRequests, 1, limits.MonthlyRequests)
	if err != nil {
		return s.degrade(ctx, tenantID, rateKey, limits, err)
	}
	if !applied {
		return s.deny(ctx, tenantID, period, now, admissiondomain.LimitRequests, limits.MonthlyRequests)
	}

	// Single payload ceiling. Stateless check, but the request reservation
	// above must be released so denied checks mutate nothing.
	if limits.MaxPayloadBytes > 0 && payloadSize > limits.MaxPayloadBytes {
		s.release(ctx, tenantID, period, usagedomain.CounterRequests, 1)
		s.countDecision("denied", admissiondomain.LimitPayloadSize)
		return admissiondomain.Decision{Denial: &admissiondomain.Denial{
			Code:           admissiondomain.CodeUsageLimitExceeded,
			LimitType:      admissiondomain.LimitPayloadSize,
			Message:        fmt.Sprintf("payload of %d bytes exceeds the %d byte plan maximum", payloadSize, limits.MaxPayloadBytes),
			Current:        payloadSize,
			Limit:          limits.MaxPayloadBytes,
			PercentUsed:    percent(payloadSize, limits.MaxPayloadBytes),
			DaysUntilReset: usagedomain.DaysUntilReset(now),
		}}, nil
	}

	// Monthly storage ceiling, reserved with the same atomic primitive.
	applied, err = s.usage.IncrementIfBelow(ctx, s.db, tenantID, period, usagedomain.CounterStoredBytes, payloadSize, limits.MaxStorageBytes)
	if err != nil {
		s.release(ctx, tenantID, period, usagedomain.CounterRequests, 1)
		return s.degrade(ctx, tenantID, rateKey, limits, err)
	}
	if !applied {
		s.release(ctx, tenantID, period, usagedomain.CounterRequests, 1)
		return s.deny(ctx, tenantID, period, now, admissiondomain.LimitStorage, limits.MaxStorageBytes)
	}

	// Ingested byte traffic is tracked but has no ceiling of its own.
	if err := s.usage.Increment(ctx, s.db, tenantID, period, usagedomain.CounterIngestedBytes, payloadSize); err != nil {
		s.log.Warn("ingested byte tracking failed", zap.Error(err), zap.String("tenant", tenantID.String()))
	}

	// Hourly sliding window, evaluated after the monthly checks.
	decision, err := s.checkHourly(ctx, tenantID, rateKey, limits.HourlyRate)
	if err != nil || !decision.Allowed {
		s.release(ctx, tenantID, period, usagedomain.CounterRequests, 1)
		s.release(ctx, tenantID, period, usagedomain.CounterStoredBytes, payloadSize)
		s.release(ctx, tenantID, period, usagedomain.CounterIngestedBytes, payloadSize)
		return decision, err
	}

	s.countDecision("allowed", "")
	return admissiondomain.Decision{Allowed: true}, nil
}

func (s *Service) CanTriggerWebhook(ctx context.Context, tenantID snowflake.ID) (admissiondomain.Decision, error) {
	return s.reserveMonthly(ctx, tenantID, usagedomain.CounterWebhookCalls, admissiondomain.LimitWebhookCalls)
}

func (s *Service) CanExecuteAI(ctx context.Context, tenantID snowflake.ID) (admissiondomain.Decision, error) {
	return s.reserveMonthly(ctx, tenantID, usagedomain.CounterAIExecutions, admissiondomain.LimitAIExecutions)
}

func (s *Service) reserveMonthly(ctx context.Context, tenantID snowflake.ID, counter usagedomain.Counter, limitType admissiondomain.LimitType) (admissiondomain.Decision, error) {
	if tenantID == 0 {
		return admissiondomain.Decision{}, admissiondomain.ErrInvalidTenant
	}

	limits, err := s.planSvc.LimitsFor(ctx, tenantID)
	if err != nil {
		return admissiondomain.Decision{}, s.storeErr(err)
	}

	ceiling := limits.MonthlyWebhooks
	if counter == usagedomain.CounterAIExecutions {
		ceiling = limits.MonthlyAI
	}

	now := s.clock.Now()
	period := usagedomain.MonthKey(now)
	if err := s.ensurePeriod(ctx, tenantID, period); err != nil {
		return admissiondomain.Decision{}, s.storeErr(err)
	}

	applied, err := s.usage.IncrementIfBelow(ctx, s.db, tenantID, period, counter, 1, ceiling)
	if err != nil {
		return admissiondomain.Decision{}, s.storeErr(err)
	}
	if !applied {
		return s.deny(ctx, tenantID, period, now, limitType, ceiling)
	}

	s.countDecision("allowed", limitType)
	return admissiondomain.Decision{Allowed: true}, nil
}

func (s *Service) checkHourly(ctx context.Context, tenantID snowflake.ID, rateKey string, hourlyLimit int) (admissiondomain.Decision, error) {
	if rateKey == "" {
		rateKey = ratelimit.KeyForTenant(tenantID)
	}

	result, err := s.window.Take(ctx, rateKey, hourlyLimit, s.cfg.RateLimit.Window, s.clock.Now())
	if err != nil {
		// The window store is best effort next to the monthly ceilings; an
		// unreachable redis must not take ingestion down with it.
		s.log.Warn("rate-limit window unavailable, allowing", zap.Error(err))
		return admissiondomain.Decision{Allowed: true}, nil
	}
	if result.Allowed {
		return admissiondomain.Decision{Allowed: true}, nil
	}

	if s.metrics != nil {
		s.metrics.IncRateLimitDenied(keyClass(rateKey))
	}
	s.countDecision("denied", admissiondomain.LimitHourlyRate)
	return admissiondomain.Decision{Denial: &admissiondomain.Denial{
		Code:        admissiondomain.CodeRateLimitExceeded,
		LimitType:   admissiondomain.LimitHourlyRate,
		Message:     "hourly rate limit exceeded",
		Current:     int64(result.Limit),
		Limit:       int64(result.Limit),
		PercentUsed: 100,
		RetryAfter:  result.RetryAfter,
		Remaining:   result.Remaining,
	}}, nil
}

// degrade handles usage-store failures: fail closed by default, or fall back
// to the hourly limiter alone when degraded mode is configured. The fallback
// is always logged.
func (s *Service) degrade(ctx context.Context, tenantID snowflake.ID, rateKey string, limits plandomain.Limits, cause error) (admissiondomain.Decision, error) {
	if !s.cfg.Admission.DegradedMode {
		s.log.Error("usage store unavailable, failing closed", zap.Error(cause), zap.String("tenant", tenantID.String()))
		return admissiondomain.Decision{}, admissiondomain.ErrStoreUnavailable
	}

	s.log.Warn("usage store unavailable, degraded mode admits on hourly limiter only",
		zap.Error(cause), zap.String("tenant", tenantID.String()))

	hourly := limits.HourlyRate
	if hourly <= 0 {
		hourly = degradedHourlyLimit
	}
	return s.checkHourly(ctx, tenantID, rateKey, hourly)
}

// degradedHourlyLimit caps tenants whose plan could not be read while the
// usage store is down.
const degradedHourlyLimit = 100

func (s *Service) ensurePeriod(ctx context.Context, tenantID snowflake.ID, period string) error {
	now := s.clock.Now()
	return s.usage.Ensure(ctx, s.db, &usagedomain.UsageRecord{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Period:    period,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Service) deny(ctx context.Context, tenantID snowflake.ID, period string, now time.Time, limitType admissiondomain.LimitType, ceiling int64) (admissiondomain.Decision, error) {
	current := ceiling
	if record, err := s.usage.Find(ctx, s.db, tenantID, period); err == nil && record != nil {
		switch limitType {
		case admissiondomain.LimitRequests:
			current = record.RequestCount
		case admissiondomain.LimitStorage:
			current = record.StoredBytes
		case admissiondomain.LimitWebhookCalls:
			current = record.WebhookCalls
		case admissiondomain.LimitAIExecutions:
			current = record.AIExecutions
		}
	}

	s.countDecision("denied", limitType)
	return admissiondomain.Decision{Denial: &admissiondomain.Denial{
		Code:           admissiondomain.CodeUsageLimitExceeded,
		LimitType:      limitType,
		Message:        fmt.Sprintf("monthly %s limit reached, upgrade the plan or wait for the period reset", limitType),
		Current:        current,
		Limit:          ceiling,
		PercentUsed:    percent(current, ceiling),
		DaysUntilReset: usagedomain.DaysUntilReset(now),
		RetryAfter:     secondsUntilReset(now),
	}}, nil
}

func (s *Service) release(ctx context.Context, tenantID snowflake.ID, period string, counter usagedomain.Counter, delta int64) {
	if delta <= 0 {
		return
	}
	if err := s.usage.Decrement(ctx, s.db, tenantID, period, counter, delta); err != nil {
		s.log.Error("failed to release reserved usage",
			zap.Error(err),
			zap.String("tenant", tenantID.String()),
			zap.String("counter", string(counter)))
	}
}

func (s *Service) countDecision(decision string, limitType admissiondomain.LimitType) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncAdmission(decision, string(limitType))
}

func (s *Service) storeErr(err error) error {
	s.log.Error("usage store unavailable, failing closed", zap.Error(err))
	return admissiondomain.ErrStoreUnavailable
}

func secondsUntilReset(now time.Time) time.Duration {
	return time.Duration(usagedomain.SecondsUntilReset(now)) * time.Second
}

func percent(current, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(current) / float64(limit) * 100
}

func keyClass(key string) string {
	if len(key) >= 3 && key[:3] == "ip:" {
		return "ip"
	}
	return "user"
}

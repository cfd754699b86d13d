package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() webhookdomain.Repository {
	return &repo{}
}

const webhookColumns = `id, tenant_id, endpoint_id, name, target_url, secret, trigger_events, conditions,
	active, timeout_seconds, max_retries, retry_backoff,
	calls_this_period, successful_calls, failed_calls, total_calls,
	last_triggered_at, last_success_at, avg_response_ms, fastest_response_ms, slowest_response_ms,
	created_at, updated_at`

func (r *repo) ListActiveByEndpoint(ctx context.Context, db *gorm.DB, endpointID snowflake.ID) ([]webhookdomain.Webhook, error) {
	var webhooks []webhookdomain.Webhook
	err := db.WithContext(ctx).Raw(
		`SELECT `+webhookColumns+`
		 FROM webhooks WHERE endpoint_id = ? AND active ORDER BY created_at ASC`,
		endpointID,
	).Scan(&webhooks).Error
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*webhookdomain.Webhook, error) {
	var webhook webhookdomain.Webhook
	err := db.WithContext(ctx).Raw(
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`,
		id,
	).Scan(&webhook).Error
	if err != nil {
		return nil, err
	}
	if webhook.ID == 0 {
		return nil, nil
	}
	return &webhook, nil
}

// UpdateStats applies the delta relative to the stored row. Every expression
// reads the pre-update column values, so the online mean
// newAvg = (oldAvg*(n-1) + duration) / n falls out of
// (avg * successful_calls + ?) / (successful_calls + 1) with the old count.
func (r *repo) UpdateStats(ctx context.Context, db *gorm.DB, id snowflake.ID, d webhookdomain.StatsDelta) error {
	completed := d.CompletedAt.UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE webhooks
		 SET calls_this_period = calls_this_period + 1,
		     total_calls = total_calls + 1,
		     successful_calls = successful_calls + CASE WHEN ? THEN 1 ELSE 0 END,
		     failed_calls = failed_calls + CASE WHEN ? THEN 0 ELSE 1 END,
		     last_triggered_at = ?,
		     last_success_at = CASE WHEN ? THEN ? ELSE last_success_at END,
		     avg_response_ms = CASE WHEN ?
		         THEN (avg_response_ms * successful_calls + ?) / (successful_calls + 1)
		         ELSE avg_response_ms END,
		     fastest_response_ms = CASE WHEN ? AND (fastest_response_ms = 0 OR fastest_response_ms > ?)
		         THEN ? ELSE fastest_response_ms END,
		     slowest_response_ms = CASE WHEN ? AND slowest_response_ms < ?
		         THEN ? ELSE slowest_response_ms END,
		     updated_at = ?
		 WHERE id = ?`,
		d.Success,
		d.Success,
		completed,
		d.Success, completed,
		d.Success, float64(d.DurationMs),
		d.Success, d.DurationMs, d.DurationMs,
		d.Success, d.DurationMs, d.DurationMs,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, entry *webhookdomain.DeliveryLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_delivery_logs (id, webhook_id, tenant_id, event_id, attempt, max_attempts,
		                                    request_body, signed, signature, success, status_code,
		                                    response_body, error_kind, error_message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.WebhookID,
		entry.TenantID,
		entry.EventID,
		entry.Attempt,
		entry.MaxAttempts,
		entry.RequestBody,
		entry.Signed,
		entry.Signature,
		entry.Success,
		entry.StatusCode,
		entry.ResponseBody,
		entry.ErrorKind,
		entry.ErrorMessage,
		entry.DurationMs,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListLogs(ctx context.Context, db *gorm.DB, webhookID snowflake.ID, limit int) ([]webhookdomain.DeliveryLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []webhookdomain.DeliveryLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, webhook_id, tenant_id, event_id, attempt, max_attempts, request_body, signed, signature,
		        success, status_code, response_body, error_kind, error_message, duration_ms, created_at
		 FROM webhook_delivery_logs WHERE webhook_id = ?
		 ORDER BY created_at DESC, attempt DESC LIMIT ?`,
		webhookID,
		limit,
	).Scan(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

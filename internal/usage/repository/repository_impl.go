package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

// counterColumns whitelists the incrementable columns. Counter values never
// reach the SQL text without passing through this map.
var counterColumns = map[usagedomain.Counter]string{
	usagedomain.CounterRequests:      "request_count",
	usagedomain.CounterIngestedBytes: "ingested_bytes",
	usagedomain.CounterWebhookCalls:  "webhook_calls",
	usagedomain.CounterAIExecutions:  "ai_executions",
	usagedomain.CounterStoredBytes:   "stored_bytes",
}

func column(counter usagedomain.Counter) (string, error) {
	col, ok := counterColumns[counter]
	if !ok {
		return "", fmt.Errorf("unknown usage counter %q", counter)
	}
	return col, nil
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, record *usagedomain.UsageRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_records (id, tenant_id, period, request_count, ingested_bytes, webhook_calls,
		                            ai_executions, stored_bytes, endpoint_count, api_key_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 0, 0, 0, 0, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, period) DO NOTHING`,
		record.ID,
		record.TenantID,
		record.Period,
		record.EndpointCount,
		record.APIKeyCount,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) IncrementIfBelow(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, counter usagedomain.Counter, delta, ceiling int64) (bool, error) {
	col, err := column(counter)
	if err != nil {
		return false, err
	}

	// Single conditional UPDATE: the ceiling check and the increment commit or
	// refuse together, so concurrent reservations cannot oversubscribe.
	tx := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE usage_records
		 SET %s = %s + ?, updated_at = ?
		 WHERE tenant_id = ? AND period = ? AND %s + ? <= ?`, col, col, col),
		delta,
		time.Now().UTC(),
		tenantID,
		period,
		delta,
		ceiling,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, counter usagedomain.Counter, delta int64) error {
	col, err := column(counter)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE usage_records
		 SET %s = %s + ?, updated_at = ?
		 WHERE tenant_id = ? AND period = ?`, col, col),
		delta,
		time.Now().UTC(),
		tenantID,
		period,
	).Error
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, counter usagedomain.Counter, delta int64) error {
	col, err := column(counter)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE usage_records
		 SET %s = CASE WHEN %s >= ? THEN %s - ? ELSE 0 END, updated_at = ?
		 WHERE tenant_id = ? AND period = ?`, col, col, col),
		delta,
		delta,
		time.Now().UTC(),
		tenantID,
		period,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string) (*usagedomain.UsageRecord, error) {
	var record usagedomain.UsageRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, period, request_count, ingested_bytes, webhook_calls, ai_executions,
		        stored_bytes, endpoint_count, api_key_count, created_at, updated_at
		 FROM usage_records WHERE tenant_id = ? AND period = ?`,
		tenantID,
		period,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

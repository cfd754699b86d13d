package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Ensure inserts the record's tenant/period row if it does not exist yet.
	Ensure(ctx context.Context, db *gorm.DB, record *UsageRecord) error

	// IncrementIfBelow adds delta to counter only while the result stays at or
	// under ceiling. The check and the write are one conditional UPDATE, so two
	// concurrent callers can never both pass a check that combined would
	// exceed the ceiling. Returns false when the increment was refused.
	IncrementIfBelow(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, counter Counter, delta, ceiling int64) (bool, error)

	// Increment adds delta unconditionally (post-hoc counters such as webhook
	// calls actually performed).
	Increment(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, counter Counter, delta int64) error

	// Decrement releases a previously reserved amount, flooring at zero.
	Decrement(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, counter Counter, delta int64) error

	Find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string) (*UsageRecord, error)
}

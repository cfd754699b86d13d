package domain

import "github.com/bwmarrin/snowflake"

// BuiltinPlans returns the seeded tier catalog. IDs are fixed so repeated
// seeding stays idempotent across instances.
func BuiltinPlans() []Plan {
	return []Plan{
		{
			ID:                  snowflake.ID(1),
			Code:                "free",
			Name:                "Free",
			MonthlyRequestLimit: 10_000,
			MonthlyWebhookLimit: 1_000,
			MonthlyAILimit:      100,
			MaxPayloadBytes:     256 << 10,
			MaxStorageBytes:     100 << 20,
			HourlyRateLimit:     600,
			MaxEndpoints:        3,
			MaxAPIKeys:          2,
		},
		{
			ID:                  snowflake.ID(2),
			Code:                "starter",
			Name:                "Starter",
			MonthlyRequestLimit: 250_000,
			MonthlyWebhookLimit: 50_000,
			MonthlyAILimit:      5_000,
			MaxPayloadBytes:     1 << 20,
			MaxStorageBytes:     5 << 30,
			HourlyRateLimit:     6_000,
			MaxEndpoints:        20,
			MaxAPIKeys:          10,
		},
		{
			ID:                  snowflake.ID(3),
			Code:                "growth",
			Name:                "Growth",
			MonthlyRequestLimit: 5_000_000,
			MonthlyWebhookLimit: 1_000_000,
			MonthlyAILimit:      100_000,
			MaxPayloadBytes:     5 << 20,
			MaxStorageBytes:     100 << 30,
			HourlyRateLimit:     60_000,
			MaxEndpoints:        100,
			MaxAPIKeys:          50,
		},
	}
}

// Package migration creates the schema and seeds the plan catalog on
// startup, so a fresh database is usable without manual setup.
package migration

import (
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	ingestdomain "github.com/inlethq/inlet/internal/ingest/domain"
	plandomain "github.com/inlethq/inlet/internal/plan/domain"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"gorm.io/gorm"
)

// Models lists every table the engine owns, in creation order.
func Models() []any {
	return []any{
		&plandomain.Plan{},
		&plandomain.TenantPlan{},
		&usagedomain.UsageRecord{},
		&endpointdomain.Endpoint{},
		&ingestdomain.Event{},
		&webhookdomain.Webhook{},
		&webhookdomain.DeliveryLog{},
	}
}

func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	return SeedPlans(db)
}

// SeedPlans inserts the built-in tiers if they are missing. Existing rows are
// left untouched so operators can tune limits in place.
func SeedPlans(db *gorm.DB) error {
	for _, p := range plandomain.BuiltinPlans() {
		var count int64
		if err := db.Model(&plandomain.Plan{}).Where("code = ?", p.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

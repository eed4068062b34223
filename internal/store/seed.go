package store

import (
	"fmt"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/billing"
	"parking-billing-backend/internal/model"
)

// CatalogFromConfig converts the configured catalog into rows for
// UpsertCatalog. Unbillable plans and fallbacks pointing to unknown plans
// are rejected so that a bad file stops the service at startup.
func CatalogFromConfig(c config.CatalogConfig) ([]model.Facility, []model.TariffPlan, error) {
	tariffs := make([]model.TariffPlan, 0, len(c.Tariffs))
	known := make(map[int64]bool, len(c.Tariffs))
	for _, t := range c.Tariffs {
		plan := model.TariffPlan{
			ID:            t.ID,
			Name:          t.Name,
			BillingMode:   model.BillingMode(t.BillingMode),
			RatePerMinute: t.RatePerMinute,
			RatePerHour:   t.RatePerHour,
			RatePerDay:    t.RatePerDay,
			PeriodDays:    t.PeriodDays,
		}
		if err := billing.ValidatePlan(plan); err != nil {
			return nil, nil, err
		}
		tariffs = append(tariffs, plan)
		known[t.ID] = true
	}

	facilities := make([]model.Facility, 0, len(c.Facilities))
	for _, f := range c.Facilities {
		if f.FallbackTariffID != nil && !known[*f.FallbackTariffID] {
			return nil, nil, fmt.Errorf("facility %d (%s): fallback tariff %d is not configured", f.ID, f.Name, *f.FallbackTariffID)
		}
		facilities = append(facilities, model.Facility{
			ID:               f.ID,
			Name:             f.Name,
			Capacity:         f.Capacity,
			FallbackTariffID: f.FallbackTariffID,
		})
	}
	return facilities, tariffs, nil
}

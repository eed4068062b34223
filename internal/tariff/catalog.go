// Package tariff is the read-only tariff catalog consulted by the engine.
// Plans and vehicles are configured elsewhere; this package only looks
// them up and keeps a short-lived cache of what it has seen.
package tariff

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/billing"
	"parking-billing-backend/internal/model"
)

// Source is the storage the catalog reads from. Missing rows are reported
// as nil without error.
type Source interface {
	TariffPlan(ctx context.Context, id int64) (*model.TariffPlan, error)
	Vehicle(ctx context.Context, plate string) (*model.Vehicle, error)
}

// Catalog resolves tariff plans by id or by vehicle plate.
type Catalog interface {
	Plan(ctx context.Context, id int64) (model.TariffPlan, error)
	Vehicle(ctx context.Context, plate string) (*model.Vehicle, error)
	ForVehicle(ctx context.Context, plate string) (model.TariffPlan, error)
	Flush()
}

// CachedCatalog is a Catalog backed by a Source and an in-memory cache.
type CachedCatalog struct {
	src   Source
	cache *cache.Cache
}

// NewCatalog creates a catalog whose entries expire after ttl.
func NewCatalog(src Source, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		src:   src,
		cache: cache.New(ttl, 2*ttl),
	}
}

func planKey(id int64) string       { return fmt.Sprintf("plan:%d", id) }
func vehicleKey(plate string) string { return "vehicle:" + plate }

// Plan returns the plan with the given id. A missing or unbillable plan is
// a configuration error.
func (c *CachedCatalog) Plan(ctx context.Context, id int64) (model.TariffPlan, error) {
	if cached, found := c.cache.Get(planKey(id)); found {
		return cached.(model.TariffPlan), nil
	}

	plan, err := c.src.TariffPlan(ctx, id)
	if err != nil {
		return model.TariffPlan{}, fmt.Errorf("failed to load tariff plan %d: %w", id, err)
	}
	if plan == nil {
		return model.TariffPlan{}, fmt.Errorf("%w: plan %d does not exist", apperr.ErrTariffNotConfigured, id)
	}
	if err := billing.ValidatePlan(*plan); err != nil {
		return model.TariffPlan{}, err
	}

	c.cache.SetDefault(planKey(id), *plan)
	return *plan, nil
}

// Vehicle returns the registered vehicle, or nil for an unknown plate.
// Unknown plates are not cached so that fresh registrations show up at once.
func (c *CachedCatalog) Vehicle(ctx context.Context, plate string) (*model.Vehicle, error) {
	if cached, found := c.cache.Get(vehicleKey(plate)); found {
		v := cached.(model.Vehicle)
		return &v, nil
	}

	vehicle, err := c.src.Vehicle(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicle %s: %w", plate, err)
	}
	if vehicle == nil {
		return nil, nil
	}
	c.cache.SetDefault(vehicleKey(plate), *vehicle)
	return vehicle, nil
}

// ForVehicle resolves the plan associated with a registered plate.
func (c *CachedCatalog) ForVehicle(ctx context.Context, plate string) (model.TariffPlan, error) {
	vehicle, err := c.Vehicle(ctx, plate)
	if err != nil {
		return model.TariffPlan{}, err
	}
	if vehicle == nil {
		return model.TariffPlan{}, fmt.Errorf("%w: vehicle %s is not registered", apperr.ErrTariffNotConfigured, plate)
	}
	return c.Plan(ctx, vehicle.TariffPlanID)
}

// Flush drops every cached entry.
func (c *CachedCatalog) Flush() {
	c.cache.Flush()
}

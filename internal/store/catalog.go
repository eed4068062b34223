package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
)

func (s *gormStore) Facility(ctx context.Context, id int64) (model.Facility, error) {
	facility, err := read(ctx, s, func(db *gorm.DB) (model.Facility, error) {
		var f model.Facility
		err := db.First(&f, id).Error
		return f, err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Facility{}, fmt.Errorf("%w: facility %d", apperr.ErrFacilityNotConfigured, id)
	}
	return facility, err
}

func (s *gormStore) Facilities(ctx context.Context) ([]model.Facility, error) {
	return read(ctx, s, func(db *gorm.DB) ([]model.Facility, error) {
		var facilities []model.Facility
		err := db.Order("id").Find(&facilities).Error
		return facilities, err
	})
}

// OccupancyCounts returns the number of open sessions per facility.
func (s *gormStore) OccupancyCounts(ctx context.Context) (map[int64]int64, error) {
	type aggRow struct {
		FacilityID int64
		Occupied   int64
	}
	rows, err := read(ctx, s, func(db *gorm.DB) ([]aggRow, error) {
		var rows []aggRow
		err := db.Model(&model.SessionOpen{}).
			Select("facility_id as facility_id, COUNT(*) as occupied").
			Group("facility_id").
			Scan(&rows).Error
		return rows, err
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int64, len(rows))
	for _, r := range rows {
		counts[r.FacilityID] = r.Occupied
	}
	return counts, nil
}

// TariffPlan returns nil without error when the plan does not exist.
func (s *gormStore) TariffPlan(ctx context.Context, id int64) (*model.TariffPlan, error) {
	plan, err := read(ctx, s, func(db *gorm.DB) (*model.TariffPlan, error) {
		var p model.TariffPlan
		if err := db.First(&p, id).Error; err != nil {
			return nil, err
		}
		return &p, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return plan, err
}

func (s *gormStore) TariffPlans(ctx context.Context) ([]model.TariffPlan, error) {
	return read(ctx, s, func(db *gorm.DB) ([]model.TariffPlan, error) {
		var plans []model.TariffPlan
		err := db.Order("id").Find(&plans).Error
		return plans, err
	})
}

// Vehicle returns nil without error for unknown plates.
func (s *gormStore) Vehicle(ctx context.Context, plate string) (*model.Vehicle, error) {
	vehicle, err := read(ctx, s, func(db *gorm.DB) (*model.Vehicle, error) {
		var v model.Vehicle
		if err := db.Where("plate = ?", plate).First(&v).Error; err != nil {
			return nil, err
		}
		return &v, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return vehicle, err
}

// UpsertCatalog writes facility and tariff configuration.
func (s *gormStore) UpsertCatalog(ctx context.Context, facilities []model.Facility, tariffs []model.TariffPlan) error {
	if len(facilities) == 0 && len(tariffs) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(tariffs) > 0 {
			log.Printf("Batch upserting %d tariff plans...", len(tariffs))
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "billing_mode", "rate_per_minute", "rate_per_hour", "rate_per_day", "period_days", "updated_at"}),
			}).Create(&tariffs).Error; err != nil {
				return fmt.Errorf("batch upsert tariff plans failed: %w", err)
			}
		}
		if len(facilities) > 0 {
			log.Printf("Batch upserting %d facilities...", len(facilities))
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "capacity", "fallback_tariff_id", "updated_at"}),
			}).Create(&facilities).Error; err != nil {
				return fmt.Errorf("batch upsert facilities failed: %w", err)
			}
		}
		return nil
	})
	return apperr.Transient(err)
}

// UpsertVehicles writes registry records keyed by plate.
func (s *gormStore) UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}
	log.Printf("Batch upserting %d vehicles...", len(vehicles))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate"}},
			DoUpdates: clause.AssignmentColumns([]string{"tariff_plan_id", "facility_id", "assigned_spot", "owner", "updated_at"}),
		}).CreateInBatches(&vehicles, 200).Error
	})
	return apperr.Transient(err)
}

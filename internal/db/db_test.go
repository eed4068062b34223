package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/model"
)

func TestInit_SQLite(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{
		Driver:            "sqlite",
		DSN:               "file:db_init_test?mode=memory&cache=shared",
		MaxOpenConns:      1,
		EnablePostgresDDL: true, // ignored for sqlite
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	for _, m := range model.All() {
		assert.True(t, gormDB.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, gormDB.Migrator().HasTable("subscription_facility_mapping"))
	assert.True(t, gormDB.Migrator().HasIndex(&model.SessionOpen{}, "idx_open_facility_spot"))

	// Migrating twice is harmless.
	assert.NoError(t, Migrate(gormDB))
}

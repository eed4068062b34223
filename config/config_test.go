package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "host=localhost"
catalog:
  facilities:
    - id: 1
      name: Central
      capacity: 40
      fallback_tariff_id: 2
  tariffs:
    - id: 2
      name: Walk-in
      billing_mode: per_minute
      rate_per_minute: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int64(50), cfg.Billing.RoundingUnit)
	assert.Equal(t, int64(100), cfg.Billing.MinimumCharge)
	assert.Equal(t, 300*time.Second, cfg.Registry.Interval)
	assert.Equal(t, 100, cfg.Registry.PageSize)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.Push.Enabled())

	require.Len(t, cfg.Catalog.Facilities, 1)
	require.NotNil(t, cfg.Catalog.Facilities[0].FallbackTariffID)
	assert.Equal(t, int64(2), *cfg.Catalog.Facilities[0].FallbackTariffID)
	assert.Equal(t, "per_minute", cfg.Catalog.Tariffs[0].BillingMode)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "Unknown driver",
			body: "database:\n  driver: mysql\n",
		},
		{
			name: "Zero capacity",
			body: "catalog:\n  facilities:\n    - id: 1\n      name: Empty\n      capacity: 0\n",
		},
		{
			name: "Negative minimum charge",
			body: "billing:\n  minimum_charge: -1\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

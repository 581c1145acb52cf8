package config

import (
	"os"
	"strings"
	"testing"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromTOML(t *testing.T, body string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(body)))
	return FromViper(v)
}

func TestLoad(t *testing.T) {
	keys := []string{
		"FINCALC_APP_NAME",
		"FINCALC_APP_ENV",
		"FINCALC_DATABASE_HOST",
		"FINCALC_DATABASE_PORT",
		"FINCALC_DATABASE_MAX_OPEN_CONNS",
		"FINCALC_DATABASE_MAX_IDLE_CONNS",
		"FINCALC_REDIS_ENABLED",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fincalc", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "fincalc", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 1, cfg.Scheduler.DepreciationDay)
		assert.Equal(t, "1-1100", cfg.Finance.Accounts.Cash)
		assert.Equal(t, "1-1900", cfg.Finance.Accounts.Suspense)
	})

	t.Run("loads values from environment variables with FINCALC prefix", func(t *testing.T) {
		t.Setenv("FINCALC_APP_NAME", "ledger")
		t.Setenv("FINCALC_DATABASE_HOST", "db.internal")
		t.Setenv("FINCALC_DATABASE_PORT", "5433")
		t.Setenv("FINCALC_REDIS_ENABLED", "true")
		t.Setenv("FINCALC_TELEMETRY_LOGS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "ledger", cfg.App.Name)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "ledger", cfg.Telemetry.ServiceName)
		assert.True(t, cfg.Telemetry.LogsEnabled)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("FINCALC_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("FINCALC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestValidate_Production(t *testing.T) {
	_, err := fromTOML(t, `
[app]
env = "production"
[database]
password = "secret"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode")

	cfg, err := fromTOML(t, `
[app]
env = "production"
[database]
password = "secret"
sslmode = "require"
`)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Env)
}

func TestValidate_DepreciationDay(t *testing.T) {
	_, err := fromTOML(t, `
[scheduler]
depreciation_day = 31
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depreciation_day")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "fincalc", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/fincalc?sslmode=disable", d.DSN())
}

func TestFinanceConfig_Defaults(t *testing.T) {
	cfg, err := fromTOML(t, "")
	require.NoError(t, err)

	schedule, err := cfg.Finance.TaxSchedule()
	require.NoError(t, err)
	assert.Equal(t, finance.DefaultTaxSchedule(), schedule)

	policy, err := cfg.Finance.MatchPolicy()
	require.NoError(t, err)
	assert.True(t, policy.AutoAmountTolerance.Equal(decimal.NewFromInt(1)))
	assert.True(t, policy.ManualTolerancePct.Equal(decimal.RequireFromString("0.1")))

	catalog, err := cfg.Finance.IncentiveCatalog()
	require.NoError(t, err)
	assert.Equal(t, "default", catalog.Resolve("any", "thing").Name)
}

func TestFinanceConfig_Overrides(t *testing.T) {
	cfg, err := fromTOML(t, `
[finance]
npwp_surcharge = "1.25"
auto_match_tolerance = 100
manual_match_tolerance = "0.05"

[finance.ptkp]
"TK/0" = 60000000
"K/0" = 64500000

[[finance.tax_brackets]]
upper_limit = "100000000"
rate = "0.10"

[[finance.tax_brackets]]
rate = "0.20"

[finance.accounts]
cash = "1-1000"

[[finance.incentive_plans."sales:revenue"]]
min_pct = 0
max_pct = 100
rate = "0"

[[finance.incentive_plans."sales:revenue"]]
min_pct = 100
rate = "0.03"
`)
	require.NoError(t, err)

	schedule, err := cfg.Finance.TaxSchedule()
	require.NoError(t, err)
	code, amount := schedule.ExemptionFor(finance.PTKPK0)
	assert.Equal(t, finance.PTKPK0, code)
	assert.True(t, amount.Equal(decimal.NewFromInt(64_500_000)))
	require.Len(t, schedule.Brackets, 2)
	assert.Nil(t, schedule.Brackets[1].UpperLimit)
	assert.True(t, schedule.NPWPSurcharge.Equal(decimal.RequireFromString("1.25")))

	policy, err := cfg.Finance.MatchPolicy()
	require.NoError(t, err)
	assert.True(t, policy.AutoAmountTolerance.Equal(decimal.NewFromInt(100)))

	catalog, err := cfg.Finance.IncentiveCatalog()
	require.NoError(t, err)
	plan := catalog.Resolve("Sales", "Revenue")
	require.Len(t, plan.Tiers, 2)
	assert.True(t, plan.Tiers[1].Rate.Equal(decimal.RequireFromString("0.03")))

	assert.Equal(t, "1-1000", cfg.Finance.Accounts.Cash)
	assert.Equal(t, "1-1300", cfg.Finance.Accounts.Receivable)
}

func TestFinanceConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "gap between incentive tiers",
			body: `
[[finance.incentive_plans.default]]
min_pct = 0
max_pct = 80
rate = 0
[[finance.incentive_plans.default]]
min_pct = 90
rate = "0.1"
`,
			want: "gap",
		},
		{
			name: "bounded last bracket",
			body: `
[[finance.tax_brackets]]
upper_limit = 100
rate = "0.1"
`,
			want: "unbounded",
		},
		{
			name: "not a number",
			body: `
[finance]
manual_match_tolerance = "ten percent"
`,
			want: "manual_match_tolerance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromTOML(t, tt.body)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: "9090"
pricing:
  minimum_margin_pct: "35"
fx:
  USD: "5.25"
providers:
  prodigi:
    enabled: true
    token: from-file
    timeout: 5s
    retry_count: 2
tracking:
  batch_size: 20
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "35", cfg.Pricing.MinimumMarginPct)
	assert.Equal(t, "10", cfg.Pricing.ShippingMarkupPct, "default kept")
	assert.Equal(t, 20, cfg.Tracking.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Quote.TTL)

	p := cfg.Provider("prodigi")
	assert.True(t, p.Enabled)
	assert.Equal(t, "from-file", p.Token)
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.Equal(t, 2, p.RetryCount)

	rate, err := cfg.Rates().Rate("USD")
	require.NoError(t, err)
	assert.Equal(t, "5.25", rate.String())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("POD_SERVER_PORT", "7070")
	t.Setenv("POD_PROVIDERS_PRINTFUL_TOKEN", "env-token")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "env-token", cfg.Provider("printful").Token)
	assert.Equal(t, "from-file", cfg.Provider("prodigi").Token)
}

func TestValidateRejectsBadPricing(t *testing.T) {
	_, err := Load(writeConfig(t, "pricing:\n  minimum_margin_pct: \"-5\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "pricing:\n  reference_currency: USD\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "fx:\n  USD: \"zero\"\n"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "pod", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pod sslmode=disable TimeZone=UTC", d.DSN())
}

func TestCredentialSource(t *testing.T) {
	t.Setenv("POD_PROVIDERS_PRINTFUL_TOKEN", "env-token")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	creds := cfg.CredentialSource()
	prodigi := creds("prodigi")
	assert.Equal(t, "from-file", prodigi.Token)
	assert.Equal(t, 5*time.Second, prodigi.Timeout)
	assert.Equal(t, 2, prodigi.RetryCount)

	assert.Empty(t, creds("printful").Token, "not enabled")
	assert.Empty(t, creds("gelato").Token)
}

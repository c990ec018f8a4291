package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
portal:
  login_url: https://login.example.com
  booking_url: https://portal.example.com/book
  app_domain: portal.example.com
  logged_in_selector: ".account-menu"
origin:
  company: ACME Ltd
  address: 1 Depot Road
  city: London
  postal_code: SW1A 1AA
contact:
  phone: "02079460000"
  notification_email: ops@acme.example
booking:
  location: Front door
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileIsConfigMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://login.example.com", cfg.Portal.LoginURL)
	assert.Equal(t, "portal.example.com", cfg.Portal.AppDomain)
	assert.Equal(t, "ACME Ltd", cfg.Origin.Company)
	assert.Equal(t, "SW1A 1AA", cfg.Origin.PostalCode)
	assert.Equal(t, "Front door", cfg.Booking.Location)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "Europe/London", cfg.Booking.Timezone)
	assert.Equal(t, 9222, cfg.Browser.CDPPort)
	assert.Equal(t, 30, cfg.Browser.NavTimeoutSeconds)
	assert.Equal(t, 45, cfg.Browser.LoginTimeoutSeconds)
	assert.NotEmpty(t, cfg.Browser.StateDir)
	assert.NotEmpty(t, cfg.Browser.ProfileDir)
	assert.Contains(t, cfg.ScreenshotDir(), "screenshots")
	assert.Contains(t, cfg.DescriptorPath(), "session.json")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "portal: [not: a: mapping"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidateNamesMissingFields(t *testing.T) {
	_, err := Load(writeConfig(t, `
portal:
  login_url: https://login.example.com
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "origin.company")
	assert.ErrorContains(t, err, "portal.booking_url")
}

func TestLoadCredentials(t *testing.T) {
	t.Run("reads from environment", func(t *testing.T) {
		t.Setenv("PICKUP_USERNAME", "ops@acme.example")
		t.Setenv("PICKUP_PASSWORD", "hunter2")

		creds, err := LoadCredentials()
		require.NoError(t, err)
		assert.Equal(t, "ops@acme.example", creds.Username)
		assert.Equal(t, "hunter2", creds.Password)
	})

	t.Run("missing variables error", func(t *testing.T) {
		t.Setenv("PICKUP_USERNAME", "")
		t.Setenv("PICKUP_PASSWORD", "")

		_, err := LoadCredentials()
		assert.Error(t, err)
	})
}

// Package config loads the pickup-booker configuration: the YAML file that
// describes the carrier portal and the fixed collection address, plus the
// operator credentials sourced from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing indicates the configuration file does not exist.
// This is fatal: nothing can be booked without portal URLs and an
// origin address, so callers must not retry.
var ErrConfigMissing = errors.New("configuration file not found")

// PortalConfig describes the carrier portal being automated.
type PortalConfig struct {
	// LoginURL is where the two-step login flow starts.
	LoginURL string `yaml:"login_url"`

	// BookingURL is the collection-booking form inside the portal.
	BookingURL string `yaml:"booking_url"`

	// AppDomain is the domain the browser lands on once authenticated.
	// Reaching it is one of the two login success conditions.
	AppDomain string `yaml:"app_domain"`

	// LoggedInSelector is a CSS selector for a UI marker that only
	// renders for an authenticated user. The other success condition.
	LoggedInSelector string `yaml:"logged_in_selector"`
}

// OriginConfig is the fixed collection address. These are environment
// constants, never caller input.
type OriginConfig struct {
	Company    string `yaml:"company"`
	Address    string `yaml:"address"`
	City       string `yaml:"city"`
	PostalCode string `yaml:"postal_code"`
}

// ContactConfig holds the contact details filled into every booking.
type ContactConfig struct {
	Phone             string `yaml:"phone"`
	NotificationEmail string `yaml:"notification_email"`
}

// BookingConfig holds booking-level defaults.
type BookingConfig struct {
	// Location is the collection-location option on the form,
	// e.g. "Front door" or "Reception".
	Location string `yaml:"location"`

	// Timezone drives the smart date/time defaults, e.g. "Europe/London".
	Timezone string `yaml:"timezone"`
}

// BrowserConfig controls the driven Chromium instance.
type BrowserConfig struct {
	Headless bool `yaml:"headless"`

	// CDPPort is the remote debugging port the persistent browser is
	// launched with, and the endpoint later reconnections target.
	CDPPort int `yaml:"cdp_port"`

	// ProfileDir is the persistent browser profile. Empty means
	// ~/.pickup-booker/profile.
	ProfileDir string `yaml:"profile_dir"`

	// StateDir is where the session descriptor and screenshots live.
	// Empty means ~/.pickup-booker.
	StateDir string `yaml:"state_dir"`

	// NavTimeoutSeconds bounds navigations and load-state waits.
	NavTimeoutSeconds int `yaml:"nav_timeout_seconds"`

	// LoginTimeoutSeconds bounds the post-password login race.
	LoginTimeoutSeconds int `yaml:"login_timeout_seconds"`
}

// Config is the full pickup-booker configuration.
type Config struct {
	Portal  PortalConfig  `yaml:"portal"`
	Origin  OriginConfig  `yaml:"origin"`
	Contact ContactConfig `yaml:"contact"`
	Booking BookingConfig `yaml:"booking"`
	Browser BrowserConfig `yaml:"browser"`
}

// Credentials are the operator's portal credentials. They are kept out of
// the YAML file and sourced from the environment instead.
type Credentials struct {
	Username string
	Password string
}

// DefaultPath returns the default configuration file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pickup-booker", "config.yaml"), nil
}

// Load reads and validates the configuration file. An empty path means
// the default location. A missing file yields ErrConfigMissing.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "Europe/London"
	}
	if c.Browser.CDPPort == 0 {
		c.Browser.CDPPort = 9222
	}
	if c.Browser.NavTimeoutSeconds == 0 {
		c.Browser.NavTimeoutSeconds = 30
	}
	if c.Browser.LoginTimeoutSeconds == 0 {
		c.Browser.LoginTimeoutSeconds = 45
	}
	if c.Browser.StateDir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			c.Browser.StateDir = filepath.Join(homeDir, ".pickup-booker")
		}
	}
	if c.Browser.ProfileDir == "" && c.Browser.StateDir != "" {
		c.Browser.ProfileDir = filepath.Join(c.Browser.StateDir, "profile")
	}
}

// Validate checks that every field the form filler treats as a constant
// is actually configured.
func (c *Config) Validate() error {
	var missing []string

	if c.Portal.LoginURL == "" {
		missing = append(missing, "portal.login_url")
	}
	if c.Portal.BookingURL == "" {
		missing = append(missing, "portal.booking_url")
	}
	if c.Portal.AppDomain == "" {
		missing = append(missing, "portal.app_domain")
	}
	if c.Origin.Company == "" {
		missing = append(missing, "origin.company")
	}
	if c.Origin.Address == "" {
		missing = append(missing, "origin.address")
	}
	if c.Origin.City == "" {
		missing = append(missing, "origin.city")
	}
	if c.Origin.PostalCode == "" {
		missing = append(missing, "origin.postal_code")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config is missing required fields: %v", missing)
	}
	return nil
}

// ScreenshotDir returns the directory screenshots are written to.
func (c *Config) ScreenshotDir() string {
	return filepath.Join(c.Browser.StateDir, "screenshots")
}

// DescriptorPath returns the session descriptor file location.
func (c *Config) DescriptorPath() string {
	return filepath.Join(c.Browser.StateDir, "session.json")
}

// LoadCredentials reads the portal credentials from the environment,
// loading a local .env file first if one exists.
func LoadCredentials() (Credentials, error) {
	// Best effort: a missing .env just means the variables are already set.
	_ = godotenv.Load()

	creds := Credentials{
		Username: os.Getenv("PICKUP_USERNAME"),
		Password: os.Getenv("PICKUP_PASSWORD"),
	}

	if creds.Username == "" || creds.Password == "" {
		return creds, errors.New("PICKUP_USERNAME and PICKUP_PASSWORD must be set")
	}

	return creds, nil
}

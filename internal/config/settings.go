package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultAPIURL is the backend base URL used when none is configured.
	DefaultAPIURL = "http://localhost:8000"

	// DefaultWorkdayStart is the first working hour.
	DefaultWorkdayStart = 9

	// DefaultWorkdayEnd is the hour at which the working day ends.
	DefaultWorkdayEnd = 18

	// DefaultMaxResults is the inbox page size.
	DefaultMaxResults = 10
)

// Environment variables that override config.toml.
const (
	EnvAPIURL   = "EDGER_API_URL"
	EnvAPIToken = "EDGER_API_TOKEN"
	EnvTimezone = "EDGER_TIMEZONE"
)

// Settings are the user-editable options stored in config.toml.
type Settings struct {
	APIURL       string `toml:"api_url"`
	APIToken     string `toml:"api_token"`
	Timezone     string `toml:"timezone"`
	WorkdayStart int    `toml:"workday_start"`
	WorkdayEnd   int    `toml:"workday_end"`
	MaxResults   int    `toml:"max_results"`
}

// DefaultSettings returns the settings used when config.toml is absent.
func DefaultSettings() Settings {
	return Settings{
		APIURL:       DefaultAPIURL,
		WorkdayStart: DefaultWorkdayStart,
		WorkdayEnd:   DefaultWorkdayEnd,
		MaxResults:   DefaultMaxResults,
	}
}

// LoadSettings reads config.toml at path and applies environment overrides.
// A missing file is not an error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	case !os.IsNotExist(err):
		return Settings{}, fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		s.APIURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		s.APIToken = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		s.Timezone = v
	}

	s.APIURL = strings.TrimRight(s.APIURL, "/")
	if s.APIURL == "" {
		s.APIURL = DefaultAPIURL
	}
	if s.MaxResults <= 0 {
		s.MaxResults = DefaultMaxResults
	}
	if s.WorkdayStart < 0 || s.WorkdayStart > 23 || s.WorkdayEnd <= s.WorkdayStart || s.WorkdayEnd > 24 {
		return Settings{}, fmt.Errorf("invalid working hours: %d-%d", s.WorkdayStart, s.WorkdayEnd)
	}
	return s, nil
}

// Location returns the configured time zone, or time.Local when unset.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// LoadEnv loads dotenv files into the process environment.
// Variables that are already set are never overwritten; missing files are skipped.
func LoadEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

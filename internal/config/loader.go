package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the mentor
// scheduling service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	SlotGranularity time.Duration
	SlotCacheTTL    time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every field has a default; values that are present but unparseable are
// collected and reported together so an operator can fix them in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:mentorscheduler.db?_foreign_keys=on",
		SlotGranularity: 30 * time.Minute,
		SlotCacheTTL:    30 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("MENTOR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "MENTOR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("MENTOR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if granularityValue := strings.TrimSpace(os.Getenv("MENTOR_SLOT_GRANULARITY")); granularityValue != "" {
		granularity, err := time.ParseDuration(granularityValue)
		if err != nil || granularity <= 0 {
			invalid = append(invalid, "MENTOR_SLOT_GRANULARITY")
		} else {
			cfg.SlotGranularity = granularity
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("MENTOR_SLOT_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MENTOR_SLOT_CACHE_TTL")
		} else {
			cfg.SlotCacheTTL = ttl
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

package engine

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSessionConfig is used whenever no usable configuration is supplied.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Map:           AnyMap,
		MaxDifficulty: DefaultMaxDifficulty,
	}
}

// ParseSessionConfig derives a session configuration from query parameters:
// map, max_difficulty, noPan, noZoom, timeLimit and devMode. Unknown or
// malformed values fall back to their defaults.
func ParseSessionConfig(params url.Values) SessionConfig {
	cfg := DefaultSessionConfig()

	if m := params.Get("map"); m != "" {
		cfg.Map = m
	}
	if d := params.Get("max_difficulty"); d != "" {
		cfg.MaxDifficulty = d
	}
	cfg.Modifiers.NoPan = params.Get("noPan") == "true"
	cfg.Modifiers.NoZoom = params.Get("noZoom") == "true"
	cfg.TimeLimit = parseTimeLimit(params.Get("timeLimit"))
	cfg.DevMode = params.Get("devMode") == "true"

	return cfg
}

// Query encodes the configuration back into query parameters, omitting
// modifiers that are off.
func (c SessionConfig) Query() url.Values {
	params := url.Values{}
	params.Set("map", c.Map)
	params.Set("max_difficulty", c.MaxDifficulty)
	if c.Modifiers.NoPan {
		params.Set("noPan", "true")
	}
	if c.Modifiers.NoZoom {
		params.Set("noZoom", "true")
	}
	if c.TimeLimit > 0 {
		params.Set("timeLimit", strconv.Itoa(c.TimeLimit))
	}
	if c.DevMode {
		params.Set("devMode", "true")
	}
	return params
}

// DecodeSessionConfig parses a stored JSON configuration. Malformed input
// returns the default configuration along with the parse error so callers can
// log it without failing.
func DecodeSessionConfig(data []byte) (SessionConfig, error) {
	cfg := DefaultSessionConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultSessionConfig(), fmt.Errorf("decode session config: %w", err)
	}
	return cfg.Normalize(), nil
}

// Normalize fills empty fields with defaults and drops non-positive limits.
func (c SessionConfig) Normalize() SessionConfig {
	c.Map = strings.TrimSpace(c.Map)
	if c.Map == "" {
		c.Map = AnyMap
	}
	if c.MaxDifficulty == "" {
		c.MaxDifficulty = DefaultMaxDifficulty
	}
	if c.TimeLimit < 0 {
		c.TimeLimit = 0
	}
	return c
}

// ValidateSessionConfig checks that the configured map can actually be played
// against catalog.
func ValidateSessionConfig(cfg SessionConfig, catalog *Catalog) error {
	if cfg.Map == AnyMap {
		if len(catalog.PlayableMaps()) == 0 {
			return fmt.Errorf("config validation: %w", ErrNoLocations)
		}
		return nil
	}
	if catalog.CountLocations(cfg.Map) == 0 {
		return fmt.Errorf("config validation: map %q: %w", cfg.Map, ErrNoLocations)
	}
	if _, ok := catalog.Map(cfg.Map); !ok {
		logger().Warn().Str("map", cfg.Map).Msg("map has no descriptor, guesses will score zero")
	}
	return nil
}

func parseTimeLimit(raw string) int {
	if raw == "" {
		return 0
	}
	// Accept a leading integer the way a lenient query parser would ("30s" -> 30).
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

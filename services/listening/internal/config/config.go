package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	platform "github.com/example/audio-platform/internal/platform/config"
)

// Config is the listening service configuration.
type Config struct {
	App       platform.AppConfig
	JWTSecret string

	CacheTTLSec   int
	RefreshHour   int
	RefreshMinute int
}

// Load reads the service configuration from the environment.
// JWT_SECRET is required; LISTENING_REFRESH_AT accepts "HH:MM".
func Load() (Config, error) {
	app, err := platform.Load()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		App:           app,
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CacheTTLSec:   envInt("LISTENING_CACHE_TTL_SEC", 60),
		RefreshHour:   1,
		RefreshMinute: 31,
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	if at := strings.TrimSpace(os.Getenv("LISTENING_REFRESH_AT")); at != "" {
		h, m, err := parseClock(at)
		if err != nil {
			return Config{}, err
		}
		cfg.RefreshHour, cfg.RefreshMinute = h, m
	}
	return cfg, nil
}

func parseClock(v string) (int, int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("LISTENING_REFRESH_AT must be HH:MM, got %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("LISTENING_REFRESH_AT must be HH:MM, got %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("LISTENING_REFRESH_AT must be HH:MM, got %q", v)
	}
	return h, m, nil
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

package web

import (
	"time"

	"llm-stock-prediction/internal/common/config"
)

type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	CookieName   string
	CookieSecure bool

	// MaxRequestBytes caps multipart bodies before the upload service
	// applies its per-kind limits.
	MaxRequestBytes int64
}

func DefaultConfig() *Config {
	return &Config{
		Address:         ":8000",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    150 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		CookieName:      "sessionid",
		MaxRequestBytes: 6 << 20,
	}
}

// ConfigFrom maps the application config onto the server settings.
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Server.Address != "" {
		c.Address = cfg.Server.Address
	}
	if cfg.Server.ReadTimeout > 0 {
		c.ReadTimeout = config.GetDuration(cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout > 0 {
		c.WriteTimeout = config.GetDuration(cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout > 0 {
		c.ShutdownTimeout = config.GetDuration(cfg.Server.ShutdownTimeout)
	}
	if cfg.Session.CookieName != "" {
		c.CookieName = cfg.Session.CookieName
	}
	c.CookieSecure = cfg.Session.Secure

	largest := cfg.Uploads.MaxCSVBytes
	if cfg.Uploads.MaxInstructionsBytes > largest {
		largest = cfg.Uploads.MaxInstructionsBytes
	}
	if largest > 0 {
		c.MaxRequestBytes = largest + 1<<20
	}
	return c
}

package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

func DefaultConfig() *Config {
	return &Config{
		SessionTTL: 14 * 24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

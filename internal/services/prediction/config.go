package prediction

import (
	"fmt"
	"time"
)

type Config struct {
	// Timeout bounds one whole predict run. Zero leaves it to the LLM client.
	Timeout    time.Duration `mapstructure:"timeout"`
	SaveLatest bool          `mapstructure:"save_latest"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    0,
		SaveLatest: true,
	}
}

func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

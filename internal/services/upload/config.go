package upload

import "fmt"

type Config struct {
	MaxCSVBytes          int64 `mapstructure:"max_csv_bytes"`
	MaxInstructionsBytes int64 `mapstructure:"max_instructions_bytes"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxCSVBytes:          5 << 20,
		MaxInstructionsBytes: 256 << 10,
	}
}

func (c *Config) Validate() error {
	if c.MaxCSVBytes <= 0 {
		return fmt.Errorf("max_csv_bytes must be positive")
	}
	if c.MaxInstructionsBytes <= 0 {
		return fmt.Errorf("max_instructions_bytes must be positive")
	}
	return nil
}

func (c *Config) limit(kind string) int64 {
	if kind == "instructions" {
		return c.MaxInstructionsBytes
	}
	return c.MaxCSVBytes
}

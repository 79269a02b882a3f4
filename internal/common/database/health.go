package database

import (
	"context"
	"fmt"
)

// Pinger is satisfied by PostgresClient and RedisClient.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckAll pings each named dependency and returns the first failure.
func CheckAll(ctx context.Context, deps map[string]Pinger) error {
	for name, p := range deps {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"time"
)

// Pinger is implemented by every client in this package.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckAll pings each named dependency and reports the first failure.
func CheckAll(ctx context.Context, timeout time.Duration, deps map[string]Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for name, dep := range deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

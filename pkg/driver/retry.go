package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"modernc.org/sqlite"

	"github.com/soundprediction/sifter/pkg/types"
)

// RetryConfig holds configuration for retrying writes
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int
	// InitialDelay is the delay before the first retry (default: 50ms)
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries (default: 2 seconds)
	MaxDelay time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff (default: 2.0)
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryDriver retries writes that failed on a transient storage conflict:
// badger transaction conflicts, busy or locked sqlite databases and neo4j
// errors the server flags as retryable. Reads are passed through.
type RetryDriver struct {
	Driver
	config *RetryConfig
	logger *slog.Logger
}

// NewRetryDriver wraps d. A nil config uses DefaultRetryConfig; zero fields
// take their defaults.
func NewRetryDriver(d Driver, config *RetryConfig, logger *slog.Logger) *RetryDriver {
	def := DefaultRetryConfig()
	if config == nil {
		config = def
	}
	cfg := *config
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryDriver{Driver: d, config: &cfg, logger: logger}
}

func (r *RetryDriver) Upsert(ctx context.Context, records ...*types.Record) error {
	return r.do(ctx, "upsert", func() error {
		return r.Driver.Upsert(ctx, records...)
	})
}

func (r *RetryDriver) Delete(ctx context.Context, entity string, id int64) error {
	return r.do(ctx, "delete", func() error {
		return r.Driver.Delete(ctx, entity, id)
	})
}

func (r *RetryDriver) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			r.logger.Debug("retrying storage write", "op", op, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("failed after %d retries: %w", r.config.MaxRetries, lastErr)
}

// calculateDelay returns InitialDelay * BackoffMultiplier^(attempt-1), capped
// at MaxDelay.
func (r *RetryDriver) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}

// Primary sqlite result codes; extended codes carry them in the low byte.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// IsRetryable reports whether err is a transient storage conflict.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, badger.ErrConflict) {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
		return false
	}
	return neo4j.IsRetryable(err)
}

package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/sifter/pkg/alert"
	"github.com/soundprediction/sifter/pkg/config"
	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// CircuitBreakerDriver wraps a Driver with circuit breaking on its calls.
// Not-found results and cancelled contexts do not count as failures.
type CircuitBreakerDriver struct {
	Driver
	cb      *gobreaker.CircuitBreaker
	alerter alert.Alerter
	logger  *slog.Logger
}

// NewCircuitBreakerDriver wraps d. A disabled configuration returns d as is.
func NewCircuitBreakerDriver(d Driver, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) Driver {
	if !cfg.Enabled {
		return d
	}
	if logger == nil {
		logger = slog.Default()
	}
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}

	name := fmt.Sprintf("%s-driver", d.Provider())
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many storage failures detected.", name, from, to)
				if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					logger.Error("failed to send alert", "error", err)
				}
			}
		},
	}

	return &CircuitBreakerDriver{
		Driver:  d,
		cb:      gobreaker.NewCircuitBreaker(st),
		alerter: alerter,
		logger:  logger,
	}
}

// State returns the breaker state.
func (c *CircuitBreakerDriver) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreakerDriver) Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.Driver.Execute(ctx, entity, p, page)
	})
	if err != nil {
		return nil, err
	}
	return res.(*types.ResultSet), nil
}

func (c *CircuitBreakerDriver) Instances(ctx context.Context, entity string) ([]types.Option, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.Driver.Instances(ctx, entity)
	})
	if err != nil {
		return nil, err
	}
	return res.([]types.Option), nil
}

func (c *CircuitBreakerDriver) Upsert(ctx context.Context, records ...*types.Record) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.Driver.Upsert(ctx, records...)
	})
	return err
}

func (c *CircuitBreakerDriver) Get(ctx context.Context, entity string, id int64) (*types.Record, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.Driver.Get(ctx, entity, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(*types.Record), nil
}

func (c *CircuitBreakerDriver) Delete(ctx context.Context, entity string, id int64) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.Driver.Delete(ctx, entity, id)
	})
	return err
}

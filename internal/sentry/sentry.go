// Package sentry wraps getsentry/sentry-go to report failures discovered
// while processing a single contract without interrupting the batch
// (spec.md SS4.7.9: a FAILED contract never affects the state of others).
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/config"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	sentrygo "github.com/getsentry/sentry-go"
	"go.uber.org/fx"
)

// Service reports exceptions and panics to Sentry when enabled.
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// Module provides the fx wiring for Service and its lifecycle hooks.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewService),
		fx.Invoke(RegisterHooks),
	)
}

// NewService builds a Service from configuration.
func NewService(cfg *config.Configuration, log *logger.Logger) *Service {
	return &Service{cfg: cfg, logger: log}
}

// RegisterHooks wires Sentry init/flush into the fx lifecycle.
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.cfg.Sentry.Enabled {
				svc.logger.Info("sentry is disabled")
				return nil
			}
			if err := sentrygo.Init(sentrygo.ClientOptions{
				Dsn:              svc.cfg.Sentry.DSN,
				Environment:      svc.cfg.Sentry.Environment,
				TracesSampleRate: svc.cfg.Sentry.SampleRate,
			}); err != nil {
				svc.logger.Errorw("failed to initialize sentry", "error", err)
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.cfg.Sentry.Enabled {
				sentrygo.Flush(2 * time.Second)
			}
			return nil
		},
	})
}

// CaptureException reports err to Sentry when enabled.
func (s *Service) CaptureException(err error) {
	if s == nil || !s.cfg.Sentry.Enabled {
		return
	}
	sentrygo.CaptureException(err)
}

// RecoverAndReport recovers from a panic in fn, reports it to Sentry, and
// returns it as an error instead of letting it propagate. Used by the
// batch driver to isolate a single contract's programming-error panic
// (spec.md SS7: "arithmetic invariants violated ... fail loudly ... abort
// the contract") without aborting the batch.
func (s *Service) RecoverAndReport(contractID string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("panic while processing contract %s: %v", contractID, r)
			s.CaptureException(panicErr)
			err = panicErr
		}
	}()
	return fn()
}

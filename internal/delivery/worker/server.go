// Package worker hosts the background token sweeper.
package worker

import (
	"context"
	"log/slog"
	"time"

	"cms/config"
	"cms/internal/delivery"
	"cms/internal/usecase"

	"go.uber.org/fx"
)

// sweeper periodically removes expired and stale-revoked ledger rows.
// Sweeping is housekeeping: correctness never depends on it, because every
// lookup filters on expiry and revocation.
type sweeper struct {
	uc       usecase.AuthUsecase
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
}

// ServerParams holds dependencies for the sweeper worker.
type ServerParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Logger *slog.Logger
	Auth   usecase.AuthUsecase
}

// NewServer creates the token sweeper worker.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	srv := &sweeper{
		uc:       params.Auth,
		interval: params.Cfg.Auth.SweepInterval,
		logger:   params.Logger,
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// Serve runs the sweep loop until the context is canceled or stop is called.
func (s *sweeper) Serve(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("Starting token sweeper", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.uc.SweepExpiredTokens(ctx); err != nil {
				s.logger.Error("Token sweep failed", slog.Any("error", err))
			}
		}
	}
}

func (s *sweeper) stop(_ context.Context) error {
	s.logger.Info("Shutting down token sweeper")
	if s.cancel != nil {
		s.cancel()
	}

	return nil
}

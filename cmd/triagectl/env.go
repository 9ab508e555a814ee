package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/bootstrap"
	"github.com/spec-kit/bi-triage-agent/internal/config"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
)

// environment opens the configured store on demand for one command.
type environment struct {
	verbose *bool
}

type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	backend  *bootstrap.Backend
	services *bootstrap.Services
}

func (s *session) Close() {
	s.backend.Close()
	_ = s.logger.Sync()
}

func (e *environment) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if e.verbose != nil && *e.verbose {
		// Command output owns stdout.
		cfg.Logger.Format, cfg.Logger.Output = "console", "stderr"
		if logger, err = observability.NewLogger(cfg.Logger, cfg.App); err != nil {
			return nil, err
		}
	}

	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	services, err := bootstrap.NewServices(cfg, backend, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, backend: backend, services: services}, nil
}

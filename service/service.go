package service

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-uat/metrics"
)

// Config selects which servers run. An empty address disables that server.
type Config struct {
	HealthzAddr string
	MetricsAddr string
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	log log.Logger
	wg  sync.WaitGroup
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.New()
	}
	return &Service{
		Healthz: &HealthzServer{log: logger},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     logger,
	}
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	// servers exist once Start returns; Shutdown stops them even if Serve has not run yet
	if s.cfg.HealthzAddr != "" {
		s.Healthz.Prepare(ctx, s.cfg.HealthzAddr)
		s.serve("healthz", s.cfg.HealthzAddr, s.Healthz.Serve)
	}
	if s.cfg.MetricsAddr != "" {
		s.Metrics.Prepare(ctx, s.cfg.MetricsAddr)
		s.serve("metrics", s.cfg.MetricsAddr, s.Metrics.Serve)
	}

	s.log.Info("service started")
}

func (s *Service) serve(name, addr string, serve func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("starting "+name+" server", "addr", addr)
		if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting "+name+" server", "err", err)
			metrics.RecordErrorDetails(name, err)
		}
	}()
}

// Shutdown stops the servers and waits for them to return
func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.wg.Wait()
	s.log.Info("service stopped")
}

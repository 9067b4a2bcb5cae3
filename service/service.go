package service

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/health"
	"github.com/c360/pitwall/hub"
	"github.com/c360/pitwall/metric"
	"github.com/c360/pitwall/mirror"
	"github.com/c360/pitwall/upload"
)

const systemName = "pitwall"

// Status represents the lifecycle of the service.
type Status int32

// Possible service statuses.
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Deps are the service's optional collaborators.
type Deps struct {
	Logger   *slog.Logger
	Registry *metric.MetricsRegistry
	// Tokens supplies upload bearer tokens; defaults to the configured
	// static token.
	Tokens upload.TokenProvider
	// Sink replaces the HTTP sink.
	Sink            upload.Sink
	Version         string
	ShutdownTimeout time.Duration
}

// Service owns every component of one process.
type Service struct {
	cfg             config.Config
	logger          *slog.Logger
	registry        *metric.MetricsRegistry
	health          *health.Monitor
	version         string
	shutdownTimeout time.Duration

	gateway *gateway.Gateway
	hub     *hub.Hub
	server  *hub.Server
	upload  *upload.Pipeline
	mirror  atomic.Pointer[mirror.Publisher]
	ops     *metric.Server

	status    atomic.Int32
	startedAt atomic.Pointer[time.Time]
	ready     chan struct{}
}

// New validates cfg and builds every component. Nothing listens until Run.
func New(cfg config.Config, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registry == nil {
		deps.Registry = metric.NewMetricsRegistry()
	}
	if deps.ShutdownTimeout <= 0 {
		deps.ShutdownTimeout = 10 * time.Second
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	s := &Service{
		cfg:             cfg,
		logger:          deps.Logger,
		registry:        deps.Registry,
		health:          health.NewMonitor(),
		version:         deps.Version,
		shutdownTimeout: deps.ShutdownTimeout,
		ready:           make(chan struct{}),
	}

	var err error
	s.hub, err = hub.New(cfg.Hub, hub.Deps{Logger: deps.Logger, Registry: deps.Registry})
	if err != nil {
		return nil, errors.Wrap(err, "service", "New", "build hub")
	}
	s.server = hub.NewServer(s.hub, cfg.Hub, hub.Deps{Logger: deps.Logger, Registry: deps.Registry})

	publishers := []gateway.Publisher{s.hub, gateway.PublisherFunc(s.mirrorRecord)}
	if cfg.Upload.Enabled {
		sink := deps.Sink
		if sink == nil {
			tokens := deps.Tokens
			if tokens == nil {
				tokens = upload.StaticToken(cfg.Upload.Token)
			}
			sink = upload.NewHTTPSink(cfg.Upload.Endpoints, tokens,
				upload.WithGzip(cfg.Upload.Gzip),
				upload.WithUserAgent("pitwall/"+deps.Version),
				upload.WithHTTPClient(&http.Client{Timeout: cfg.Upload.Timeout.Std()}))
		}
		s.upload, err = upload.New(cfg.Upload, sink, upload.Deps{
			Logger:         deps.Logger,
			Registry:       deps.Registry,
			ShutdownBudget: deps.ShutdownTimeout * 3 / 4,
		})
		if err != nil {
			return nil, errors.Wrap(err, "service", "New", "build upload pipeline")
		}
		publishers = append(publishers, s.upload)
	}

	s.gateway, err = gateway.New(cfg.Sources, cfg.Gateway, gateway.Deps{
		Logger:     deps.Logger,
		Registry:   deps.Registry,
		Health:     s.health,
		Publishers: publishers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "service", "New", "build gateway")
	}

	s.ops = metric.NewServer(cfg.Metrics.Listen, "/metrics", deps.Registry,
		metric.WithLogger(deps.Logger),
		metric.WithHealth(s.health.Report(systemName)),
		metric.WithSnapshot(func() (any, bool) { return s.Snapshot(), true }))
	return s, nil
}

func (s *Service) mirrorRecord(rec *gateway.Record) {
	if m := s.mirror.Load(); m != nil {
		m.Publish(rec)
	}
}

// Status returns the current lifecycle status.
func (s *Service) Status() Status { return Status(s.status.Load()) }

func (s *Service) setStatus(st Status) {
	s.status.Store(int32(st))
	code := metric.StatusStopped
	if st == StatusRunning || st == StatusStarting {
		code = metric.StatusRunning
	}
	s.registry.CoreMetrics().RecordComponentStatus("service", code)
}

// Ready is closed once every component is started.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Hub returns the distribution hub, for in-process subscribers.
func (s *Service) Hub() *hub.Hub { return s.hub }

// Gateway returns the UDP gateway.
func (s *Service) Gateway() *gateway.Gateway { return s.gateway }

// HubAddr returns the WebSocket listen address once running.
func (s *Service) HubAddr() string { return s.server.Addr() }

// OpsAddr returns the ops server address once running.
func (s *Service) OpsAddr() string { return s.ops.Address() }

// Run starts every component and blocks until ctx is done, then shuts down
// in order. It returns an error only when startup fails.
func (s *Service) Run(ctx context.Context) error {
	if !s.status.CompareAndSwap(int32(StatusStopped), int32(StatusStarting)) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "service", "Run", "start")
	}
	s.setStatus(StatusStarting)
	s.registry.CoreMetrics().RecordBuildInfo(s.version)
	s.logger.Info("Starting", "sources", len(s.cfg.Sources), "upload", s.cfg.Upload.Enabled, "mirror", s.cfg.Mirror.URL != "")

	if err := s.ops.Start(); err != nil {
		s.setStatus(StatusStopped)
		return err
	}
	s.health.UpdateHealthy("ops", "serving")

	if s.cfg.Mirror.URL != "" {
		m, err := mirror.Connect(ctx, s.cfg.Mirror, mirror.Deps{Logger: s.logger, Registry: s.registry, Health: s.health})
		if err != nil {
			s.logger.Warn("Mirror unavailable, continuing without it", "url", s.cfg.Mirror.URL, "error", err)
			s.health.UpdateDegraded("mirror", "connect failed: "+health.Sanitize(err.Error()))
		} else {
			s.mirror.Store(m)
		}
	}

	// consumers outlive the gateway so they can drain after it stops
	consumers, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	var wg sync.WaitGroup
	spawn := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(consumers); err != nil {
				s.logger.Error("Component stopped with error", "component", name, "error", err)
				s.health.UpdateUnhealthy(name, health.Sanitize(err.Error()))
			}
		}()
	}
	spawn("hub", s.hub.Run)
	if s.upload != nil {
		spawn("upload", s.upload.Run)
	}
	if m := s.mirror.Load(); m != nil {
		spawn("mirror", m.Run)
	}

	if err := s.server.Start(consumers); err != nil {
		s.abort(stopConsumers, &wg)
		return err
	}
	s.health.UpdateHealthy("hub", "serving")

	if err := s.gateway.Start(consumers); err != nil {
		_ = s.server.Stop(s.shutdownTimeout)
		s.abort(stopConsumers, &wg)
		return err
	}

	now := time.Now()
	s.startedAt.Store(&now)
	s.setStatus(StatusRunning)
	close(s.ready)
	s.logger.Info("Running", "hub", s.server.Addr(), "ops", s.ops.Address())

	<-ctx.Done()
	s.shutdown(stopConsumers, &wg)
	return nil
}

func (s *Service) abort(stopConsumers context.CancelFunc, wg *sync.WaitGroup) {
	stopConsumers()
	wg.Wait()
	_ = s.ops.Stop(s.shutdownTimeout)
	s.setStatus(StatusStopped)
}

func (s *Service) shutdown(stopConsumers context.CancelFunc, wg *sync.WaitGroup) {
	s.setStatus(StatusStopping)
	s.logger.Info("Shutting down", "timeout", s.shutdownTimeout)

	if err := s.gateway.Stop(s.shutdownTimeout); err != nil {
		s.logger.Warn("Gateway stop", "error", err)
	}
	if err := s.server.Stop(s.shutdownTimeout); err != nil {
		s.logger.Warn("Hub server stop", "error", err)
	}
	stopConsumers()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("Components did not stop in time")
	}

	if err := s.ops.Stop(s.shutdownTimeout); err != nil {
		s.logger.Warn("Ops server stop", "error", err)
	}
	s.setStatus(StatusStopped)
	s.logger.Info("Stopped")
}

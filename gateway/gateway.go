package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/health"
	"github.com/c360/pitwall/metric"
)

// Deps are the gateway's collaborators. Every field is optional.
type Deps struct {
	Logger     *slog.Logger
	Registry   *metric.MetricsRegistry
	Health     *health.Monitor
	Publishers []Publisher
}

// SourceStats is a point-in-time view of one source.
type SourceStats struct {
	ID              string           `json:"id"`
	Label           string           `json:"label,omitempty"`
	Addr            string           `json:"addr,omitempty"`
	State           State            `json:"state"`
	PacketsReceived int64            `json:"packets_received"`
	BytesReceived   int64            `json:"bytes_received"`
	DecodeFailures  int64            `json:"decode_failures"`
	FailuresBy      map[string]int64 `json:"failures_by_reason,omitempty"`
	SocketErrors    int64            `json:"socket_errors"`
	Records         int64            `json:"records_published"`
	LastRecordAt    *time.Time       `json:"last_record_at,omitempty"`
	SessionUID      uint64           `json:"session_uid,string,omitempty"`
}

// Gateway owns one receive loop per configured source.
type Gateway struct {
	logger  *slog.Logger
	sources []*source
	byID    map[string]*source

	mu       sync.Mutex
	running  bool
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New builds a gateway for sources. The source configs are copied and never
// modified afterwards.
func New(sources []config.SourceConfig, cfg config.GatewayConfig, deps Deps) (*Gateway, error) {
	if len(sources) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("no sources configured"), "gateway", "New", "source check")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "gateway")
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = config.Duration(100 * time.Millisecond)
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = config.Duration(5 * time.Second)
	}
	if cfg.MaxDatagram <= 0 {
		cfg.MaxDatagram = 65535
	}

	m, err := newMetrics(deps.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "gateway", "New", "metrics registration")
	}

	g := &Gateway{
		logger: deps.Logger,
		byID:   make(map[string]*source, len(sources)),
	}
	for _, sc := range sources {
		if _, dup := g.byID[sc.ID]; dup {
			return nil, errors.WrapInvalid(fmt.Errorf("duplicate source id %q", sc.ID), "gateway", "New", "source check")
		}
		sc.Formats = sc.AcceptedFormats()
		src, err := newSource(sc, cfg, deps, m)
		if err != nil {
			return nil, err
		}
		g.sources = append(g.sources, src)
		g.byID[sc.ID] = src
	}
	return g, nil
}

// Start binds every source and launches its loop. A source that fails to
// bind is marked FAILED and the others proceed; Start returns an error only
// when no source could bind. Loops stop on Stop or when ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return errors.ErrAlreadyStarted
	}

	g.shutdown = make(chan struct{})
	bound := 0
	for _, src := range g.sources {
		src.metrics.state(src.cfg.ID, StateInactive)
		if src.health != nil {
			src.health.UpdateDegraded(src.healthName(), "waiting for telemetry")
		}
		if err := src.bind(); err != nil {
			src.logger.Error("Source bind failed", "addr", src.cfg.Addr(), "error", err)
			src.transition(StateFailed, time.Now(), err.Error())
			continue
		}
		bound++
		src.logger.Info("Listening", "addr", src.conn.LocalAddr().String(), "formats", src.decoder.Formats())

		g.wg.Add(1)
		go func(s *source) {
			defer g.wg.Done()
			s.run(g.shutdown)
		}(src)
	}

	if bound == 0 {
		return errors.WrapFatal(errors.ErrBindFailed, "gateway", "Start", "bind any source")
	}
	g.running = true

	go func(shutdown chan struct{}) {
		select {
		case <-ctx.Done():
			_ = g.Stop(time.Second)
		case <-shutdown:
		}
	}(g.shutdown)
	return nil
}

// Stop closes every socket and waits up to timeout for the loops to exit.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false
	close(g.shutdown)
	for _, src := range g.sources {
		if src.conn != nil {
			_ = src.conn.Close()
		}
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		g.logger.Info("Gateway stopped")
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrStopTimeout, "gateway", "Stop", "graceful shutdown")
	}
}

// Stats returns per-source statistics in configuration order.
func (g *Gateway) Stats() []SourceStats {
	out := make([]SourceStats, 0, len(g.sources))
	for _, src := range g.sources {
		st := src.stats()
		if addr := g.LocalAddr(src.cfg.ID); addr != nil {
			st.Addr = addr.String()
		}
		out = append(out, st)
	}
	return out
}

// Session returns the latest session summary for source id, or nil when the
// source is unknown or has not produced a record.
func (g *Gateway) Session(id string) *SessionSummary {
	src, ok := g.byID[id]
	if !ok {
		return nil
	}
	return src.summary.Load()
}

// State returns the liveness of source id.
func (g *Gateway) State(id string) (State, bool) {
	src, ok := g.byID[id]
	if !ok {
		return StateInactive, false
	}
	return State(src.state.Load()), true
}

// LocalAddr returns the bound address of source id, nil when not bound.
func (g *Gateway) LocalAddr(id string) net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	src, ok := g.byID[id]
	if !ok || src.conn == nil {
		return nil
	}
	return src.conn.LocalAddr()
}

// Package mirror republishes gateway records on NATS subjects of the form
// <prefix>.<source>.<type>. It is best effort: records are queued in a
// drop-oldest buffer and a publish failure only counts.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/health"
	"github.com/c360/pitwall/metric"
	"github.com/c360/pitwall/natsclient"
	"github.com/c360/pitwall/pkg/buffer"
	"github.com/c360/pitwall/pkg/retry"
)

const healthName = "mirror"

// Conn is the publishing side of a NATS connection.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Deps are the mirror's optional collaborators.
type Deps struct {
	Logger   *slog.Logger
	Registry *metric.MetricsRegistry
	Health   *health.Monitor
}

// Stats counts mirror traffic.
type Stats struct {
	Published  int64               `json:"published"`
	Dropped    int64               `json:"dropped"`
	Failed     int64               `json:"failed"`
	Pending    int                 `json:"pending"`
	Queue      buffer.StatsSummary `json:"queue"`
	Connection *natsclient.Status  `json:"connection,omitempty"`
}

// Publisher mirrors records to NATS. It implements gateway.Publisher.
type Publisher struct {
	conn    Conn
	client  *natsclient.Client
	prefix  string
	queue   buffer.Buffer[*gateway.Record]
	logger  *slog.Logger
	metrics *Metrics
	health  *health.Monitor

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// New creates a publisher writing to conn.
func New(conn Conn, cfg config.MirrorConfig, deps Deps) (*Publisher, error) {
	if conn == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil connection"), "mirror", "New", "connection check")
	}
	if cfg.SubjectPrefix == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "mirror", "New", "empty subject prefix")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 4096
	}
	m, err := newMetrics(deps.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "mirror", "New", "metrics registration")
	}

	p := &Publisher{
		conn:    conn,
		prefix:  strings.TrimSuffix(cfg.SubjectPrefix, "."),
		logger:  deps.Logger.With("component", "mirror"),
		metrics: m,
		health:  deps.Health,
	}
	p.queue, err = buffer.NewCircularBuffer[*gateway.Record](capacity,
		buffer.WithOverflowPolicy[*gateway.Record](buffer.DropOldest),
		buffer.WithMetrics[*gateway.Record](deps.Registry, "mirror"),
		buffer.WithDropCallback[*gateway.Record](func(*gateway.Record) {
			p.dropped.Add(1)
			p.metrics.drop()
		}))
	if err != nil {
		return nil, errors.Wrap(err, "mirror", "New", "queue")
	}
	return p, nil
}

// Connect dials cfg.URL and returns a publisher that owns the connection.
func Connect(ctx context.Context, cfg config.MirrorConfig, deps Deps) (*Publisher, error) {
	client, err := natsclient.NewClient(cfg.URL, clientOptions(cfg, deps)...)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	p, err := New(client, cfg, deps)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	p.client = client
	return p, nil
}

func clientOptions(cfg config.MirrorConfig, deps Deps) []natsclient.ClientOption {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := []natsclient.ClientOption{
		natsclient.WithName("pitwall-mirror"),
		natsclient.WithLogger(logger),
		natsclient.WithHealthChangeCallback(func(healthy bool, detail string) {
			if deps.Health == nil {
				return
			}
			if healthy {
				deps.Health.UpdateHealthy(healthName, health.Sanitize(detail))
			} else {
				deps.Health.UpdateDegraded(healthName, health.Sanitize(detail))
			}
		}),
	}
	if cfg.ConnectAttempts > 0 {
		schedule := retry.Startup()
		schedule.MaxAttempts = cfg.ConnectAttempts
		opts = append(opts, natsclient.WithConnectRetry(schedule))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.MaxReconnects))
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.ReconnectWait.Std()))
	}
	if cfg.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(cfg.DrainTimeout.Std()))
	}
	switch {
	case cfg.Token != "":
		opts = append(opts, natsclient.WithToken(cfg.Token))
	case cfg.User != "":
		opts = append(opts, natsclient.WithCredentials(cfg.User, cfg.Password))
	}
	return opts
}

// Subject returns the subject rec is published on.
func (p *Publisher) Subject(rec *gateway.Record) string {
	return p.prefix + "." + rec.SourceID + "." + rec.Type()
}

// Publish queues rec. It never blocks; a full queue evicts the oldest record.
func (p *Publisher) Publish(rec *gateway.Record) {
	if err := p.queue.Write(rec); err != nil {
		p.dropped.Add(1)
		p.metrics.drop()
	}
}

// Run publishes queued records until ctx is done, then flushes what is left
// and closes an owned connection.
func (p *Publisher) Run(ctx context.Context) error {
	if p.health != nil && p.client == nil {
		p.health.UpdateHealthy(healthName, "publishing")
	}
	for {
		select {
		case <-ctx.Done():
			_ = p.queue.Close()
			p.drain()
			if p.client != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := p.client.Close(closeCtx); err != nil {
					p.logger.Warn("Mirror connection did not close cleanly", "error", err)
				}
				cancel()
			}
			return nil
		case <-p.queue.Ready():
			p.drain()
		}
	}
}

func (p *Publisher) drain() {
	for {
		batch := p.queue.ReadBatch(256)
		if len(batch) == 0 {
			return
		}
		for _, rec := range batch {
			p.send(rec)
		}
	}
}

func (p *Publisher) send(rec *gateway.Record) {
	data, err := json.Marshal(rec)
	if err == nil {
		err = p.conn.Publish(p.Subject(rec), data)
	}
	if err != nil {
		if p.failed.Add(1)%1000 == 1 {
			p.logger.Warn("Mirror publish failed", "source", rec.SourceID, "type", rec.Type(), "error", err)
		}
		p.metrics.fail()
		return
	}
	p.published.Add(1)
	p.metrics.publish(rec.SourceID)
}

// Stats returns mirror counters.
func (p *Publisher) Stats() Stats {
	st := Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
		Pending:   p.queue.Size(),
		Queue:     p.queue.Stats().Summary(),
	}
	if p.client != nil {
		cs := p.client.GetStatus()
		st.Connection = &cs
	}
	return st
}

package gateway

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/health"
	"github.com/c360/pitwall/packet"
	"github.com/c360/pitwall/pkg/timestamp"
)

var failureReasons = []packet.Reason{
	packet.ReasonTruncated,
	packet.ReasonUnsupportedFormat,
	packet.ReasonUnknownPacket,
	packet.ReasonMalformed,
}

// source is one receive loop. Fields below the counters are touched only by
// the loop goroutine.
type source struct {
	cfg        config.SourceConfig
	decoder    *packet.Decoder
	logger     *slog.Logger
	metrics    *Metrics
	health     *health.Monitor
	publishers []Publisher

	readTimeout  time.Duration
	staleTimeout time.Duration
	readBuffer   int
	maxDatagram  int

	conn *net.UDPConn

	state          atomic.Int32
	packets        atomic.Int64
	bytes          atomic.Int64
	failures       atomic.Int64
	failuresBy     map[packet.Reason]*atomic.Int64
	socketErrors   atomic.Int64
	records        atomic.Int64
	lastRecordNano atomic.Int64
	summary        atomic.Pointer[SessionSummary]

	session     *SessionContext
	lastRecord  time.Time
	failLimiter *rate.Limiter
}

func newSource(cfg config.SourceConfig, gw config.GatewayConfig, deps Deps, m *Metrics) (*source, error) {
	dec, err := packet.NewDecoder(cfg.Formats...)
	if err != nil {
		return nil, errors.WrapInvalid(err, "gateway", "New", "decoder for source "+cfg.ID)
	}
	s := &source{
		cfg:          cfg,
		decoder:      dec,
		logger:       deps.Logger.With("source", cfg.ID),
		metrics:      m,
		health:       deps.Health,
		publishers:   deps.Publishers,
		readTimeout:  gw.ReadTimeout.Std(),
		staleTimeout: gw.StaleTimeout.Std(),
		readBuffer:   gw.ReadBuffer,
		maxDatagram:  gw.MaxDatagram,
		failuresBy:   make(map[packet.Reason]*atomic.Int64, len(failureReasons)),
		failLimiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, r := range failureReasons {
		s.failuresBy[r] = new(atomic.Int64)
	}
	return s, nil
}

func (s *source) healthName() string { return "source/" + s.cfg.ID }

// bind opens the source socket.
func (s *source) bind() error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", s.cfg.Addr(), err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrBindFailed, s.cfg.Addr(), err)
	}
	if s.readBuffer > 0 {
		if err := conn.SetReadBuffer(s.readBuffer); err != nil {
			// some kernels cap the receive buffer
			s.logger.Warn("Could not set UDP receive buffer", "size", s.readBuffer, "error", err)
		}
	}
	s.conn = conn
	return nil
}

// run reads datagrams until shutdown closes or the socket is closed.
func (s *source) run(shutdown <-chan struct{}) {
	buf := make([]byte, s.maxDatagram)
	for {
		select {
		case <-shutdown:
			return
		default:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		n, _, err := s.conn.ReadFromUDP(buf)
		now := time.Now()
		if err != nil {
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				s.checkStale(now)
				continue
			}
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			s.socketErrors.Add(1)
			s.metrics.socketError(s.cfg.ID)
			s.logger.Debug("UDP read error", "error", err)
			s.checkStale(now)
			continue
		}

		if !s.handle(buf[:n], now) {
			s.checkStale(now)
		}
	}
}

// handle decodes one datagram and publishes the resulting records. It
// reports whether a record was produced.
func (s *source) handle(b []byte, now time.Time) bool {
	s.packets.Add(1)
	s.bytes.Add(int64(len(b)))
	s.metrics.received(s.cfg.ID, len(b))

	p, err := s.decoder.Decode(b)
	if err != nil {
		s.decodeFailed(err)
		return false
	}

	s.lastRecord = now
	s.lastRecordNano.Store(now.UnixNano())
	if State(s.state.Load()) != StateActive {
		s.transition(StateActive, now, "receiving telemetry")
	}

	var started bool
	s.session, started = Track(s.session, p.Header.SessionUID, now)
	lapDone := s.session.Apply(p, now)
	summary := s.session.Summary()
	s.summary.Store(summary)
	if started {
		s.logger.Info("Session started", "session_uid", p.Header.SessionUID, "format", p.Header.PacketFormat)
	}

	rec := s.newRecord(KindPacket, now)
	rec.Packet = p
	s.publish(rec)

	if started || lapDone {
		rec := s.newRecord(KindSession, now)
		rec.Session = summary
		s.publish(rec)
	}
	return true
}

func (s *source) decodeFailed(err error) {
	s.failures.Add(1)
	reason := packet.ReasonMalformed
	var f *packet.DecodeFailure
	if stderrors.As(err, &f) {
		reason = f.Reason
	}
	if c, ok := s.failuresBy[reason]; ok {
		c.Add(1)
	}
	s.metrics.failed(s.cfg.ID, string(reason))
	if s.failLimiter.Allow() {
		s.logger.Debug("Dropped datagram", "reason", reason, "error", err, "failures", s.failures.Load())
	}
}

// checkStale moves an ACTIVE source to STALE once no record has arrived
// within the stale timeout.
func (s *source) checkStale(now time.Time) {
	if State(s.state.Load()) != StateActive {
		return
	}
	if now.Sub(s.lastRecord) < s.staleTimeout {
		return
	}
	s.transition(StateStale, now, fmt.Sprintf("no telemetry for %s", s.staleTimeout))
}

// transition records a state change and publishes it as a status record.
func (s *source) transition(to State, now time.Time, message string) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.logger.Info("Source state changed", "from", from.String(), "to", to.String())
	s.metrics.state(s.cfg.ID, to)

	if s.health != nil {
		switch to {
		case StateActive:
			s.health.UpdateHealthy(s.healthName(), message)
		case StateFailed:
			s.health.UpdateUnhealthy(s.healthName(), health.Sanitize(message))
		default:
			s.health.UpdateDegraded(s.healthName(), message)
		}
	}

	rec := s.newRecord(KindStatus, now)
	rec.Status = &StatusChange{State: to, Previous: from, LastRecordAt: s.lastRecord, Message: message}
	s.publish(rec)
}

func (s *source) newRecord(kind Kind, now time.Time) *Record {
	return &Record{
		Kind:             kind,
		SourceID:         s.cfg.ID,
		Label:            s.cfg.Label,
		Driver:           s.cfg.Driver,
		Device:           s.cfg.Device,
		ReceivedAt:       now,
		TimestampGateway: timestamp.ToUnixMs(now),
	}
}

func (s *source) publish(rec *Record) {
	for _, p := range s.publishers {
		p.Publish(rec)
	}
	s.records.Add(1)
	s.metrics.published(s.cfg.ID, float64(rec.ReceivedAt.Unix()))
}

func (s *source) stats() SourceStats {
	st := SourceStats{
		ID:              s.cfg.ID,
		Label:           s.cfg.Label,
		State:           State(s.state.Load()),
		PacketsReceived: s.packets.Load(),
		BytesReceived:   s.bytes.Load(),
		DecodeFailures:  s.failures.Load(),
		FailuresBy:      make(map[string]int64, len(s.failuresBy)),
		SocketErrors:    s.socketErrors.Load(),
		Records:         s.records.Load(),
	}
	for reason, c := range s.failuresBy {
		if v := c.Load(); v > 0 {
			st.FailuresBy[string(reason)] = v
		}
	}
	if ns := s.lastRecordNano.Load(); ns > 0 {
		t := time.Unix(0, ns)
		st.LastRecordAt = &t
	}
	if sum := s.summary.Load(); sum != nil {
		st.SessionUID = sum.SessionUID
	}
	return st
}

package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/gateway"
	"github.com/c360/pitwall/packet"
	"github.com/c360/pitwall/pkg/retry"
)

// fakeSink records every attempt and fails according to fail.
type fakeSink struct {
	mu      sync.Mutex
	uploads []*Upload
	fail    func(attempt int, u *Upload) error
}

func (s *fakeSink) Send(_ context.Context, u *Upload) error {
	s.mu.Lock()
	s.uploads = append(s.uploads, u)
	n := len(s.uploads)
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return fail(n, u)
	}
	return nil
}

func (s *fakeSink) calls() []*Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Upload(nil), s.uploads...)
}

// stallingSink blocks every send until its context ends.
type stallingSink struct {
	mu    sync.Mutex
	sends int
}

func (s *stallingSink) Send(ctx context.Context, _ *Upload) error {
	s.mu.Lock()
	s.sends++
	s.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (s *stallingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func testUploadConfig() config.UploadConfig {
	cfg := config.Default().Upload
	cfg.MaxAge = config.Duration(time.Hour)
	cfg.InitialBackoff = config.Duration(10 * time.Millisecond)
	cfg.MaxBackoff = config.Duration(40 * time.Millisecond)
	cfg.Timeout = config.Duration(time.Second)
	return cfg
}

func telemetry(source string, frame uint32) *gateway.Record {
	return &gateway.Record{
		Kind:       gateway.KindPacket,
		SourceID:   source,
		ReceivedAt: time.Now(),
		Packet: &packet.Packet{
			Header: packet.Header{PacketFormat: packet.Format2025, PacketID: packet.IDCarTelemetry, FrameIdentifier: frame},
			Type:   packet.IDCarTelemetry.String(),
			Data:   &packet.CarTelemetry{},
		},
	}
}

func runPipeline(t *testing.T, cfg config.UploadConfig, sink Sink) (*Pipeline, context.CancelFunc, <-chan error) {
	t.Helper()
	p, err := New(cfg, sink, Deps{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- p.Run(ctx)
		close(exited)
	}()
	t.Cleanup(func() {
		cancel()
		<-exited
	})
	return p, cancel, done
}

func TestStreamOf(t *testing.T) {
	pkt := func(id packet.ID) *gateway.Record {
		return &gateway.Record{Kind: gateway.KindPacket, Packet: &packet.Packet{Header: packet.Header{PacketID: id}}}
	}
	tests := []struct {
		rec  *gateway.Record
		want string
	}{
		{pkt(packet.IDCarTelemetry), config.StreamTelemetry},
		{pkt(packet.IDMotion), config.StreamTelemetry},
		{pkt(packet.IDCarDamage), config.StreamTelemetry},
		{pkt(packet.IDLapData), config.StreamLaps},
		{pkt(packet.IDSessionHistory), config.StreamLaps},
		{pkt(packet.IDSession), config.StreamSessions},
		{pkt(packet.IDParticipants), config.StreamSessions},
		{pkt(packet.IDEvent), config.StreamEvents},
		{&gateway.Record{Kind: gateway.KindSession}, config.StreamSessions},
		{&gateway.Record{Kind: gateway.KindStatus}, config.StreamEvents},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StreamOf(tt.rec), tt.rec.Type())
	}
}

func TestPipelineFlushesOnCount(t *testing.T) {
	cfg := testUploadConfig()
	cfg.MaxRecords = 3
	sink := &fakeSink{}
	p, _, _ := runPipeline(t, cfg, sink)

	for i := uint32(1); i <= 3; i++ {
		p.Publish(telemetry("RIG_A", i))
	}
	require.Eventually(t, func() bool { return len(sink.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	u := sink.calls()[0]
	assert.Equal(t, config.StreamTelemetry, u.Stream)
	assert.Equal(t, 3, u.Records)
	assert.Equal(t, "application/json", u.ContentType)

	var body struct {
		BatchID string            `json:"batch_id"`
		Stream  string            `json:"stream"`
		Count   int               `json:"count"`
		Records []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(u.Body, &body))
	assert.Equal(t, u.BatchID, body.BatchID)
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Records, 3)

	require.Eventually(t, func() bool { return p.Stats().Streams[config.StreamTelemetry].Succeeded == 1 },
		time.Second, 5*time.Millisecond)
}

func TestPipelineFlushesOnAge(t *testing.T) {
	cfg := testUploadConfig()
	cfg.MaxAge = config.Duration(60 * time.Millisecond)
	sink := &fakeSink{}
	p, _, _ := runPipeline(t, cfg, sink)

	start := time.Now()
	p.Publish(telemetry("RIG_A", 1))
	require.Eventually(t, func() bool { return len(sink.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Len(t, sink.calls(), 1, "an emptied batch is not flushed again")
}

func TestPipelineRetriesWithBackoff(t *testing.T) {
	cfg := testUploadConfig()
	cfg.MaxRecords = 1
	sink := &fakeSink{fail: func(attempt int, _ *Upload) error {
		if attempt <= 2 {
			return errors.WrapTransient(errors.ErrSinkRejected, "test", "Send", "post")
		}
		return nil
	}}
	p, _, _ := runPipeline(t, cfg, sink)

	p.Publish(telemetry("RIG_A", 1))
	require.Eventually(t, func() bool { return p.Stats().Streams[config.StreamTelemetry].Succeeded == 1 },
		2*time.Second, 5*time.Millisecond)

	calls := sink.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, calls[0].BatchID, calls[2].BatchID, "a retry resends the same batch")

	st := p.Stats().Streams[config.StreamTelemetry]
	assert.Equal(t, int64(1), st.Batches)
	assert.Equal(t, int64(2), st.Failed)
	assert.Equal(t, int64(2), st.Retries)
	assert.Zero(t, st.Lost)
}

func TestPipelineDropsAfterMaxAttempts(t *testing.T) {
	cfg := testUploadConfig()
	cfg.MaxRecords = 2
	cfg.MaxAttempts = 3
	sink := &fakeSink{fail: func(int, *Upload) error { return errors.ErrSinkUnavailable }}
	p, _, _ := runPipeline(t, cfg, sink)

	p.Publish(telemetry("RIG_A", 1))
	p.Publish(telemetry("RIG_A", 2))
	require.Eventually(t, func() bool { return p.Stats().Streams[config.StreamTelemetry].Lost == 1 },
		2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, sink.calls(), 3)
	st := p.Stats().Streams[config.StreamTelemetry]
	assert.Equal(t, int64(2), st.LostRecords)
	assert.Equal(t, int64(2), st.Retries)
	assert.Zero(t, p.Stats().RetryQueue)
}

func TestPipelineNonRetryableIsLostImmediately(t *testing.T) {
	cfg := testUploadConfig()
	cfg.MaxRecords = 1
	sink := &fakeSink{fail: func(int, *Upload) error { return retry.NonRetryable(fmt.Errorf("no endpoint")) }}
	p, _, _ := runPipeline(t, cfg, sink)

	p.Publish(telemetry("RIG_A", 1))
	require.Eventually(t, func() bool { return p.Stats().Streams[config.StreamTelemetry].Lost == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Len(t, sink.calls(), 1)
	assert.Zero(t, p.Stats().Streams[config.StreamTelemetry].Retries)
}

func TestPipelineDoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid", errors.WrapInvalid(fmt.Errorf("payload rejected"), "sink", "Send", "post batch")},
		{"fatal", errors.WrapFatal(errors.ErrInvalidConfig, "sink", "Send", "post batch")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testUploadConfig()
			cfg.MaxRecords = 1
			sink := &fakeSink{fail: func(int, *Upload) error { return tt.err }}
			p, _, _ := runPipeline(t, cfg, sink)

			p.Publish(telemetry("RIG_A", 1))
			require.Eventually(t, func() bool { return p.Stats().Streams[config.StreamTelemetry].Lost == 1 },
				2*time.Second, 5*time.Millisecond)
			assert.Len(t, sink.calls(), 1)
			assert.Zero(t, p.Stats().Streams[config.StreamTelemetry].Retries)
		})
	}
}

func TestPipelineShutdownFlushesOnce(t *testing.T) {
	cfg := testUploadConfig()
	sink := &fakeSink{}
	p, cancel, done := runPipeline(t, cfg, sink)

	p.Publish(telemetry("RIG_A", 1))
	p.Publish(telemetry("RIG_A", 2))
	p.Publish(&gateway.Record{Kind: gateway.KindStatus, SourceID: "RIG_A", Status: &gateway.StatusChange{State: gateway.StateStale}})
	require.Eventually(t, func() bool {
		st := p.Stats().Streams
		return st[config.StreamTelemetry].PendingRecords == 2 && st[config.StreamEvents].PendingRecords == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.calls())

	cancel()
	require.NoError(t, <-done)

	calls := sink.calls()
	require.Len(t, calls, 2)
	byStream := map[string]int{}
	for _, u := range calls {
		byStream[u.Stream] = u.Records
	}
	assert.Equal(t, map[string]int{config.StreamTelemetry: 2, config.StreamEvents: 1}, byStream)
}

func TestPipelineShutdownDoesNotRetry(t *testing.T) {
	cfg := testUploadConfig()
	cfg.InitialBackoff = config.Duration(time.Hour)
	cfg.MaxBackoff = config.Duration(time.Hour)
	cfg.MaxRecords = 1
	sink := &fakeSink{fail: func(int, *Upload) error { return errors.ErrSinkUnavailable }}
	p, cancel, done := runPipeline(t, cfg, sink)

	// first attempt fails and parks the batch behind an hour of backoff
	p.Publish(telemetry("RIG_A", 1))
	require.Eventually(t, func() bool { return p.Stats().RetryQueue == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Len(t, sink.calls(), 2, "one normal attempt plus one shutdown attempt")
	st := p.Stats().Streams[config.StreamTelemetry]
	assert.Equal(t, int64(1), st.Lost)
	assert.Zero(t, p.Stats().RetryQueue)
}

func TestPipelineShutdownHonoursBudget(t *testing.T) {
	cfg := testUploadConfig()
	cfg.Timeout = config.Duration(10 * time.Second)
	sink := &stallingSink{}
	p, err := New(cfg, sink, Deps{ShutdownBudget: 150 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Publish(telemetry("RIG_A", 1))
	p.Publish(&gateway.Record{Kind: gateway.KindStatus, SourceID: "RIG_A", Status: &gateway.StatusChange{State: gateway.StateStale}})
	require.Eventually(t, func() bool {
		st := p.Stats().Streams
		return st[config.StreamTelemetry].PendingRecords == 1 && st[config.StreamEvents].PendingRecords == 1
	}, time.Second, 5*time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown ignored its budget")
	}
	assert.Less(t, time.Since(start), time.Second)

	// the first batch uses up the budget, the second is never tried
	assert.Equal(t, 1, sink.count())
	st := p.Stats().Streams
	assert.Equal(t, int64(1), st[config.StreamTelemetry].Lost)
	assert.Equal(t, int64(1), st[config.StreamTelemetry].Failed)
	assert.Equal(t, int64(1), st[config.StreamEvents].Lost)
	assert.Zero(t, st[config.StreamEvents].Failed)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(testUploadConfig(), nil, Deps{})
	assert.True(t, errors.IsInvalid(err))

	cfg := testUploadConfig()
	cfg.Codec = "xml"
	_, err = New(cfg, &fakeSink{}, Deps{})
	assert.True(t, errors.IsInvalid(err))
}

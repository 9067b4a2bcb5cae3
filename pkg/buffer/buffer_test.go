package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/metric"
)

func TestCircularBufferBasicOperations(t *testing.T) {
	buf, err := NewCircularBuffer[string](3)
	require.NoError(t, err)
	defer buf.Close()

	assert.True(t, buf.IsEmpty())
	assert.Equal(t, 3, buf.Capacity())

	require.NoError(t, buf.Write("first"))
	require.NoError(t, buf.Write("second"))
	require.NoError(t, buf.Write("third"))

	assert.True(t, buf.IsFull())
	assert.Equal(t, 3, buf.Size())

	item, ok := buf.Peek()
	require.True(t, ok)
	assert.Equal(t, "first", item)
	assert.Equal(t, 3, buf.Size(), "peek must not remove")

	item, ok = buf.Read()
	require.True(t, ok)
	assert.Equal(t, "first", item)

	assert.Equal(t, []string{"second", "third"}, buf.ReadBatch(10))
	assert.Nil(t, buf.ReadBatch(10))

	_, ok = buf.Read()
	assert.False(t, ok)
}

func TestCircularBufferOverflowPolicies(t *testing.T) {
	tests := []struct {
		name     string
		policy   OverflowPolicy
		expected []int
	}{
		{"drop oldest keeps newest", DropOldest, []int{3, 4, 5}},
		{"drop newest keeps first", DropNewest, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dropped []int
			buf, err := NewCircularBuffer[int](3,
				WithOverflowPolicy[int](tt.policy),
				WithDropCallback[int](func(i int) { dropped = append(dropped, i) }),
			)
			require.NoError(t, err)

			for i := 1; i <= 5; i++ {
				require.NoError(t, buf.Write(i))
				assert.LessOrEqual(t, buf.Size(), 3)
			}

			assert.Equal(t, tt.expected, buf.ReadBatch(10))
			assert.Len(t, dropped, 2)
			assert.Equal(t, int64(2), buf.Stats().Drops())
			assert.Equal(t, int64(2), buf.Stats().Overflows())
		})
	}
}

func TestCircularBufferReadySignal(t *testing.T) {
	buf, err := NewCircularBuffer[int](4)
	require.NoError(t, err)

	select {
	case <-buf.Ready():
		t.Fatal("no signal expected before a write")
	default:
	}

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))

	select {
	case <-buf.Ready():
	case <-time.After(time.Second):
		t.Fatal("expected ready signal")
	}

	// Signals coalesce into one
	select {
	case <-buf.Ready():
		t.Fatal("signals should coalesce")
	default:
	}
	assert.Equal(t, 2, buf.Size())
}

func TestCircularBufferClearAndClose(t *testing.T) {
	var dropped []string
	buf, err := NewCircularBuffer[string](4, WithDropCallback[string](func(s string) {
		dropped = append(dropped, s)
	}))
	require.NoError(t, err)

	require.NoError(t, buf.Write("a"))
	require.NoError(t, buf.Write("b"))
	buf.Clear()

	assert.True(t, buf.IsEmpty())
	assert.Equal(t, []string{"a", "b"}, dropped)

	require.NoError(t, buf.Close())
	err = buf.Write("c")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
}

func TestCircularBufferThreadSafety(t *testing.T) {
	buf, err := NewCircularBuffer[int](64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = buf.Write(base + i)
			}
		}(w * 1000)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				buf.ReadBatch(8)
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-done

	stats := buf.Stats()
	assert.Equal(t, int64(2000), stats.Writes())
	assert.LessOrEqual(t, buf.Size(), 64)
	assert.Equal(t, stats.Writes(), stats.Reads()+stats.Drops()+int64(buf.Size()))
}

func TestCircularBufferMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	buf, err := NewCircularBuffer[int](2, WithMetrics[int](registry, "test_queue"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, buf.Write(i))
	}

	cb := buf.(*circularBuffer[int])
	require.NotNil(t, cb.metrics)
	assert.Equal(t, 5.0, testutil.ToFloat64(cb.metrics.writes))
	assert.Equal(t, 3.0, testutil.ToFloat64(cb.metrics.drops))
	assert.Equal(t, 2.0, testutil.ToFloat64(cb.metrics.size))

	_, err = NewCircularBuffer[int](2, WithMetrics[int](registry, "test_queue"))
	assert.Error(t, err, "duplicate metrics registration must fail")
}

func TestKeyedPerKeyEviction(t *testing.T) {
	type drop struct {
		key  string
		item int
	}
	var (
		mu      sync.Mutex
		dropped []drop
	)
	k := NewKeyed[int](3, func(key string, item int) {
		mu.Lock()
		dropped = append(dropped, drop{key, item})
		mu.Unlock()
	})

	for i := 1; i <= 10; i++ {
		k.Write("flood", i)
	}
	k.Write("quiet", 100)

	assert.Equal(t, 3, k.Depth("flood"))
	assert.Equal(t, 1, k.Depth("quiet"))
	flood := k.Summary("flood")
	assert.Equal(t, int64(10), flood.Writes)
	assert.Equal(t, int64(7), flood.Drops)
	assert.Equal(t, int64(3), flood.CurrentSize)
	assert.InDelta(t, 0.7, flood.DropRate, 1e-9)
	assert.Zero(t, k.Summary("quiet").Drops)
	assert.Len(t, k.Summaries(), 2)
	assert.Equal(t, StatsSummary{}, k.Summary("missing"))
	assert.Equal(t, 4, k.Len())
	assert.Len(t, dropped, 7)
	assert.Equal(t, drop{"flood", 1}, dropped[0])

	select {
	case <-k.Ready():
	default:
		t.Fatal("expected ready signal")
	}

	got := map[string][]int{}
	var order []string
	n := k.Drain(100, func(key string, items []int) {
		order = append(order, key)
		got[key] = items
	})

	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"flood", "quiet"}, order)
	assert.Equal(t, []int{8, 9, 10}, got["flood"])
	assert.Equal(t, []int{100}, got["quiet"])
	assert.Equal(t, 0, k.Len())
	assert.Equal(t, 0, k.Depth("missing"))
	flood = k.Summary("flood")
	assert.Equal(t, int64(3), flood.Reads)
	assert.Zero(t, flood.CurrentSize)
	assert.Equal(t, int64(3), flood.MaxSize)
}

func TestKeyedConcurrentProducers(t *testing.T) {
	k := NewKeyed[int](1000, nil)

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k.Write(key, i)
			}
		}(key)
	}
	wg.Wait()

	k.Drain(1000, func(key string, items []int) {
		require.Len(t, items, 500)
		for i, v := range items {
			assert.Equal(t, i, v, "per-key order must be preserved")
		}
	})
}

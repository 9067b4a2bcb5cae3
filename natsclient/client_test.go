package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/pkg/retry"
)

func TestConnectionStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "closed", StatusClosed.String())
	assert.Equal(t, "unknown", ConnectionStatus(42).String())
}

func TestNewClientRejectsEmptyURL(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewClientRejectsBadRetry(t *testing.T) {
	_, err := NewClient("nats://127.0.0.1:4222", WithConnectRetry(retry.Config{InitialDelay: -1}))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestPublishBeforeConnect(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Publish("pitwall.RIG_A.status", []byte("{}")), ErrNotConnected)
	assert.Equal(t, StatusDisconnected, c.Status())
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StatusClosed, c.Status())
}

func TestConnectFailureRetriesAndReportsHealth(t *testing.T) {
	var edges []bool
	c, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(50*time.Millisecond),
		WithConnectRetry(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}),
		WithHealthChangeCallback(func(healthy bool, _ string) { edges = append(edges, healthy) }),
	)
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.ErrorIs(t, err, errors.ErrConnectionLost)
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, []bool{false}, edges)

	st := c.GetStatus()
	assert.Equal(t, int64(3), st.Failures)
	assert.Equal(t, "disconnected", st.Status)
	assert.Equal(t, "nats://127.0.0.1:1", st.URL)
}

func TestConnectHonoursContext(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(20*time.Millisecond),
		WithConnectRetry(retry.Config{MaxAttempts: 100, InitialDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.Error(t, c.Connect(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOptionsReachConnection(t *testing.T) {
	resolve := func(c *Client) nats.Options {
		o := nats.GetDefaultOptions()
		for _, opt := range c.options() {
			require.NoError(t, opt(&o))
		}
		return o
	}

	c, err := NewClient("nats://127.0.0.1:4222",
		WithName("pitwall-test"),
		WithMaxReconnects(7),
		WithReconnectWait(300*time.Millisecond),
		WithDrainTimeout(time.Second),
		WithToken("secret"),
	)
	require.NoError(t, err)
	o := resolve(c)
	assert.Equal(t, "pitwall-test", o.Name)
	assert.Equal(t, 7, o.MaxReconnect)
	assert.Equal(t, 300*time.Millisecond, o.ReconnectWait)
	assert.Equal(t, time.Second, o.DrainTimeout)
	assert.Equal(t, "secret", o.Token)

	c, err = NewClient("nats://127.0.0.1:4222", WithCredentials("pit", "wall"))
	require.NoError(t, err)
	o = resolve(c)
	assert.Equal(t, "pit", o.User)
	assert.Equal(t, "wall", o.Password)
	assert.Equal(t, -1, o.MaxReconnect)
	assert.Empty(t, o.Token)
}

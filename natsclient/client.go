package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection.
type ConnectionStatus int32

// Possible connection statuses.
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Publish before Connect succeeds.
var ErrNotConnected = stderrors.New("not connected to NATS")

// Status is a point-in-time view of the connection.
type Status struct {
	URL        string        `json:"url"`
	Status     string        `json:"status"`
	Reconnects int64         `json:"reconnects"`
	Failures   int64         `json:"failures"`
	RTT        time.Duration `json:"rtt,omitempty"`
}

// Client owns one NATS connection.
type Client struct {
	url    string
	logger *slog.Logger

	name          string
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	connectRetry  retry.Config
	token         string
	username      string
	password      string

	onHealthChange func(healthy bool, detail string)

	status     atomic.Int32
	reconnects atomic.Int64
	failures   atomic.Int64

	mu        sync.RWMutex
	conn      *nats.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for url. Call Connect to dial.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "NewClient", "empty url")
	}
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       2 * time.Second,
		drainTimeout:  5 * time.Second,
		connectRetry:  retry.Startup(),
		closed:        make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "nats", "url", url)
	return c, nil
}

// URL returns the server URL.
func (c *Client) URL() string { return c.url }

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
}

// Connect dials the server, retrying with backoff until it succeeds, the
// schedule is exhausted or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS")

	err := retry.Do(ctx, c.connectRetry, func() error {
		conn, err := nats.Connect(c.url, c.options()...)
		if err != nil {
			c.failures.Add(1)
			c.logger.Debug("NATS connect attempt failed", "error", err)
			return err
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		return nil
	})
	if err != nil {
		c.setStatus(StatusDisconnected)
		c.healthChanged(false, err.Error())
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrConnectionLost, err), "Client", "Connect", "establish connection")
	}

	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS")
	c.healthChanged(true, "connected")
	return nil
}

func (c *Client) options() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}
	if c.name != "" {
		opts = append(opts, nats.Name(c.name))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	return opts
}

// Publish sends data on subject without waiting for the server.
func (c *Client) Publish(subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", subject)
	}
	return nil
}

// GetStatus returns the connection status with round-trip time when
// connected.
func (c *Client) GetStatus() Status {
	st := Status{
		URL:        c.url,
		Status:     c.Status().String(),
		Reconnects: c.reconnects.Load(),
		Failures:   c.failures.Load(),
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil && conn.IsConnected() {
		if rtt, err := conn.RTT(); err == nil {
			st.RTT = rtt
		}
	}
	return st
}

// Close drains the connection and waits for it to close or ctx to end.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		c.setStatus(StatusClosed)
		return nil
	}

	if err := conn.Drain(); err != nil {
		conn.Close()
		c.setStatus(StatusClosed)
		return errors.WrapTransient(err, "Client", "Close", "drain connection")
	}
	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		conn.Close()
		return errors.WrapTransient(ctx.Err(), "Client", "Close", "wait for drain")
	}
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.Status() == StatusClosed {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("Disconnected from NATS", "error", err)
	detail := "disconnected"
	if err != nil {
		detail = err.Error()
	}
	c.healthChanged(false, detail)
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.reconnects.Add(1)
	c.setStatus(StatusConnected)
	c.logger.Info("Reconnected to NATS")
	c.healthChanged(true, "reconnected")
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusClosed)
	c.logger.Debug("NATS connection closed")
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	c.logger.Warn("NATS async error", "error", err)
}

func (c *Client) healthChanged(healthy bool, detail string) {
	if c.onHealthChange != nil {
		c.onHealthChange(healthy, detail)
	}
}

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/pkg/retry"
)

// Upload is one sink write.
type Upload struct {
	BatchID     string
	Stream      string
	ContentType string
	Body        []byte
	Records     int
}

// Sink writes batches. Send returns nil only when the sink committed the
// batch.
type Sink interface {
	Send(ctx context.Context, u *Upload) error
}

// TokenProvider returns a currently valid bearer token on demand.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token, failing when it is empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.ErrTokenUnavailable
	}
	return string(t), nil
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// HTTPSink POSTs batches to one endpoint per stream with a bearer token.
type HTTPSink struct {
	client    *http.Client
	endpoints config.Endpoints
	tokens    TokenProvider
	gzip      bool
	userAgent string
}

// SinkOption configures an HTTPSink.
type SinkOption func(*HTTPSink)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) SinkOption {
	return func(s *HTTPSink) { s.client = c }
}

// WithGzip compresses request bodies.
func WithGzip(enabled bool) SinkOption {
	return func(s *HTTPSink) { s.gzip = enabled }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SinkOption {
	return func(s *HTTPSink) { s.userAgent = ua }
}

// NewHTTPSink creates a sink for endpoints authenticated by tokens.
func NewHTTPSink(endpoints config.Endpoints, tokens TokenProvider, opts ...SinkOption) *HTTPSink {
	s := &HTTPSink{
		client:    &http.Client{Timeout: 30 * time.Second},
		endpoints: endpoints,
		tokens:    tokens,
		userAgent: "pitwall",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send POSTs u. Any non-2xx response is a transient failure; a stream
// without an endpoint is not retryable.
func (s *HTTPSink) Send(ctx context.Context, u *Upload) error {
	url := s.endpoints.For(u.Stream)
	if url == "" {
		return retry.NonRetryable(errors.WrapInvalid(
			fmt.Errorf("no endpoint for stream %q", u.Stream), "HTTPSink", "Send", "endpoint lookup"))
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrTokenUnavailable, err), "HTTPSink", "Send", "token fetch")
	}

	body := u.Body
	if s.gzip {
		if body, err = compress(u.Body); err != nil {
			return errors.Wrap(err, "HTTPSink", "Send", "gzip body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err, "HTTPSink", "Send", "build request"))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", u.ContentType)
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("X-Batch-ID", u.BatchID)
	req.Header.Set("X-Batch-Records", strconv.Itoa(u.Records))
	if s.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrSinkUnavailable, err), "HTTPSink", "Send", "post batch")
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WrapTransient(
			fmt.Errorf("%w: %s: %s", errors.ErrSinkRejected, resp.Status, bytes.TrimSpace(detail)),
			"HTTPSink", "Send", "post batch")
	}
	return nil
}

func compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/pkg/retry"
)

type captured struct {
	header http.Header
	body   []byte
}

func collectorServer(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		fmt.Fprint(w, http.StatusText(status))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), got...)
	}
}

func endpointsFor(url string) config.Endpoints {
	return config.Endpoints{Telemetry: url + "/telemetry", Laps: url + "/laps", Sessions: url + "/sessions", Events: url + "/events"}
}

func TestHTTPSinkHeaders(t *testing.T) {
	srv, got := collectorServer(t, http.StatusAccepted)
	sink := NewHTTPSink(endpointsFor(srv.URL), StaticToken("secret"), WithUserAgent("pitwall-test"))

	err := sink.Send(context.Background(), &Upload{
		BatchID: "b-1", Stream: config.StreamLaps, ContentType: "application/json", Body: []byte(`{"x":1}`), Records: 1,
	})
	require.NoError(t, err)

	reqs := got()
	require.Len(t, reqs, 1)
	h := reqs[0].header
	assert.Equal(t, "Bearer secret", h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "pitwall-test", h.Get("User-Agent"))
	assert.Equal(t, "b-1", h.Get("X-Batch-ID"))
	assert.Equal(t, "1", h.Get("X-Batch-Records"))
	assert.Empty(t, h.Get("Content-Encoding"))
	assert.Equal(t, `{"x":1}`, string(reqs[0].body))
}

func TestHTTPSinkGzip(t *testing.T) {
	srv, got := collectorServer(t, http.StatusOK)
	sink := NewHTTPSink(endpointsFor(srv.URL), StaticToken("secret"), WithGzip(true))

	payload := []byte(`{"records":[1,2,3]}`)
	require.NoError(t, sink.Send(context.Background(), &Upload{BatchID: "b", Stream: config.StreamTelemetry, Body: payload}))

	reqs := got()
	require.Len(t, reqs, 1)
	assert.Equal(t, "gzip", reqs[0].header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(reqs[0].body))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, plain)
}

func TestHTTPSinkRejectedIsTransient(t *testing.T) {
	srv, _ := collectorServer(t, http.StatusServiceUnavailable)
	sink := NewHTTPSink(endpointsFor(srv.URL), StaticToken("secret"))

	err := sink.Send(context.Background(), &Upload{BatchID: "b", Stream: config.StreamEvents})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.True(t, stderrors.Is(err, errors.ErrSinkRejected))
	assert.False(t, retry.IsNonRetryable(err))
}

func TestHTTPSinkTokenFailure(t *testing.T) {
	srv, got := collectorServer(t, http.StatusOK)

	err := NewHTTPSink(endpointsFor(srv.URL), StaticToken("")).
		Send(context.Background(), &Upload{BatchID: "b", Stream: config.StreamEvents})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTokenUnavailable))
	assert.True(t, errors.IsTransient(err))

	calls := 0
	tokens := TokenFunc(func(context.Context) (string, error) {
		calls++
		return fmt.Sprintf("t%d", calls), nil
	})
	sink := NewHTTPSink(endpointsFor(srv.URL), tokens)
	require.NoError(t, sink.Send(context.Background(), &Upload{BatchID: "b", Stream: config.StreamEvents}))
	require.NoError(t, sink.Send(context.Background(), &Upload{BatchID: "b", Stream: config.StreamEvents}))

	reqs := got()
	require.Len(t, reqs, 2, "no request is made without a token")
	assert.Equal(t, "Bearer t1", reqs[0].header.Get("Authorization"))
	assert.Equal(t, "Bearer t2", reqs[1].header.Get("Authorization"), "token is fetched per request")
}

func TestHTTPSinkMissingEndpoint(t *testing.T) {
	sink := NewHTTPSink(config.Endpoints{Telemetry: "http://127.0.0.1:1/t"}, StaticToken("secret"))
	err := sink.Send(context.Background(), &Upload{BatchID: "b", Stream: config.StreamLaps})
	require.Error(t, err)
	assert.True(t, retry.IsNonRetryable(err))
	assert.True(t, errors.IsInvalid(err))
}

func TestCodecBodies(t *testing.T) {
	env := Envelope{BatchID: "b-7", Stream: config.StreamLaps, Count: 2}

	t.Run("json", func(t *testing.T) {
		c, err := NewCodec("json")
		require.NoError(t, err)
		r1, _ := c.Marshal(map[string]int{"lap": 1})
		r2, _ := c.Marshal(map[string]int{"lap": 2})
		body, err := c.Body(env, [][]byte{r1, r2})
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"batch_id":"b-7","stream":"laps","created_at":"0001-01-01T00:00:00Z","count":2,"records":[{"lap":1},{"lap":2}]}`,
			string(body))
	})

	t.Run("json empty", func(t *testing.T) {
		c, _ := NewCodec("")
		body, err := c.Body(env, nil)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"records":[]`)
	})

	t.Run("cbor", func(t *testing.T) {
		c, err := NewCodec("cbor")
		require.NoError(t, err)
		assert.Equal(t, "application/cbor", c.ContentType())
		r1, _ := c.Marshal(map[string]int{"lap": 1})
		r2, _ := c.Marshal(map[string]int{"lap": 2})
		body, err := c.Body(env, [][]byte{r1, r2})
		require.NoError(t, err)

		var out struct {
			BatchID string           `cbor:"batch_id"`
			Count   int              `cbor:"count"`
			Records []map[string]int `cbor:"records"`
		}
		require.NoError(t, cbor.Unmarshal(body, &out))
		assert.Equal(t, "b-7", out.BatchID)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, []map[string]int{{"lap": 1}, {"lap": 2}}, out.Records)
	})

	_, err := NewCodec("xml")
	assert.Error(t, err)
}

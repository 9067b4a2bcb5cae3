package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Envelope is the batch body written to the sink. Records holds rows already
// encoded with the same codec.
type Envelope struct {
	BatchID   string    `json:"batch_id" cbor:"batch_id"`
	Stream    string    `json:"stream" cbor:"stream"`
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
	Count     int       `json:"count" cbor:"count"`
}

// Codec encodes rows and assembles batch bodies.
type Codec interface {
	Name() string
	ContentType() string
	// Marshal encodes one row.
	Marshal(v any) ([]byte, error)
	// Body builds the batch body from pre-encoded rows.
	Body(env Envelope, rows [][]byte) ([]byte, error)
}

// NewCodec returns the codec named "json" or "cbor".
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "cbor":
		return newCBORCodec()
	}
	return nil, fmt.Errorf("unknown upload codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Body(env Envelope, rows [][]byte) ([]byte, error) {
	head, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	size := len(head) + len(`,"records":[]`) + len(rows)
	for _, r := range rows {
		size += len(r)
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write(head[:len(head)-1])
	buf.WriteString(`,"records":[`)
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// cborCodec uses core deterministic encoding; text marshalers encode as
// strings so enum names survive.
type cborCodec struct {
	enc cbor.EncMode
}

func newCBORCodec() (Codec, error) {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	opts.Time = cbor.TimeRFC3339Nano
	enc, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	return cborCodec{enc: enc}, nil
}

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c cborCodec) Body(env Envelope, rows [][]byte) ([]byte, error) {
	raw := make([]cbor.RawMessage, len(rows))
	for i, r := range rows {
		raw[i] = r
	}
	return c.enc.Marshal(struct {
		Envelope
		Records []cbor.RawMessage `cbor:"records"`
	}{env, raw})
}

package config

import (
	"encoding/json"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/packet"
)

// Upload stream names.
const (
	StreamTelemetry = "telemetry"
	StreamLaps      = "laps"
	StreamSessions  = "sessions"
	StreamEvents    = "events"
)

// Streams lists the upload streams in a fixed order.
var Streams = []string{StreamTelemetry, StreamLaps, StreamSessions, StreamEvents}

// Config is the complete pitwall configuration.
type Config struct {
	Sources []SourceConfig `json:"sources"`
	Gateway GatewayConfig  `json:"gateway"`
	Hub     HubConfig      `json:"hub"`
	Upload  UploadConfig   `json:"upload"`
	Mirror  MirrorConfig   `json:"mirror"`
	Metrics MetricsConfig  `json:"metrics"`
	Log     LogConfig      `json:"log"`
}

// SourceConfig describes one simulator rig. It is read-only once the
// gateway starts.
type SourceConfig struct {
	ID      string   `json:"id"`
	Port    int      `json:"port"`
	Bind    string   `json:"bind,omitempty"`
	Formats []uint16 `json:"formats,omitempty"`
	Label   string   `json:"label,omitempty"`
	Driver  string   `json:"driver,omitempty"`
	Device  string   `json:"device,omitempty"`
}

// Addr returns the UDP listen address.
func (s SourceConfig) Addr() string {
	bind := s.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	return net.JoinHostPort(bind, fmt.Sprint(s.Port))
}

// AcceptedFormats returns the configured formats, or every supported one.
func (s SourceConfig) AcceptedFormats() []uint16 {
	if len(s.Formats) == 0 {
		return packet.Formats()
	}
	return slices.Clone(s.Formats)
}

// GatewayConfig tunes the per-source receive loops.
type GatewayConfig struct {
	StaleTimeout Duration `json:"stale_timeout"`
	ReadTimeout  Duration `json:"read_timeout"`
	ReadBuffer   int      `json:"read_buffer"`
	MaxDatagram  int      `json:"max_datagram"`
}

// HubConfig tunes live distribution.
type HubConfig struct {
	Tick              Duration `json:"tick"`
	InputCapacity     int      `json:"input_capacity"`
	SubscriberQueue   int      `json:"subscriber_queue"`
	CoalesceThreshold int      `json:"coalesce_threshold"`
	Listen            string   `json:"listen"`
	Path              string   `json:"path"`
}

// Endpoints maps each upload stream to its sink URL.
type Endpoints struct {
	Telemetry string `json:"telemetry,omitempty"`
	Laps      string `json:"laps,omitempty"`
	Sessions  string `json:"sessions,omitempty"`
	Events    string `json:"events,omitempty"`
}

// For returns the endpoint for stream, "" when unset.
func (e Endpoints) For(stream string) string {
	switch stream {
	case StreamTelemetry:
		return e.Telemetry
	case StreamLaps:
		return e.Laps
	case StreamSessions:
		return e.Sessions
	case StreamEvents:
		return e.Events
	}
	return ""
}

func (e *Endpoints) set(stream, url string) {
	switch stream {
	case StreamTelemetry:
		e.Telemetry = url
	case StreamLaps:
		e.Laps = url
	case StreamSessions:
		e.Sessions = url
	case StreamEvents:
		e.Events = url
	}
}

// UploadConfig tunes the batch upload pipeline.
type UploadConfig struct {
	Enabled        bool      `json:"enabled"`
	Endpoints      Endpoints `json:"endpoints"`
	Token          string    `json:"token,omitempty"`
	MaxBytes       int       `json:"max_bytes"`
	MaxAge         Duration  `json:"max_age"`
	MaxRecords     int       `json:"max_records"`
	MaxAttempts    int       `json:"max_attempts"`
	InitialBackoff Duration  `json:"initial_backoff"`
	MaxBackoff     Duration  `json:"max_backoff"`
	Timeout        Duration  `json:"timeout"`
	Workers        int       `json:"workers"`
	Codec          string    `json:"codec"`
	Gzip           bool      `json:"gzip"`
	InputCapacity  int       `json:"input_capacity"`
}

// MirrorConfig configures the optional NATS mirror. An empty URL disables it.
// Token and User/Password are alternative server credentials.
type MirrorConfig struct {
	URL             string   `json:"url,omitempty"`
	SubjectPrefix   string   `json:"subject_prefix"`
	Capacity        int      `json:"capacity"`
	Token           string   `json:"token,omitempty"`
	User            string   `json:"user,omitempty"`
	Password        string   `json:"password,omitempty"`
	ConnectAttempts int      `json:"connect_attempts"`
	MaxReconnects   int      `json:"max_reconnects"`
	ReconnectWait   Duration `json:"reconnect_wait"`
	DrainTimeout    Duration `json:"drain_timeout"`
}

// MetricsConfig configures the ops HTTP server.
type MetricsConfig struct {
	Listen string `json:"listen"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			StaleTimeout: Duration(5 * time.Second),
			ReadTimeout:  Duration(100 * time.Millisecond),
			ReadBuffer:   2 << 20,
			MaxDatagram:  65535,
		},
		Hub: HubConfig{
			Tick:              Duration(50 * time.Millisecond),
			InputCapacity:     1024,
			SubscriberQueue:   256,
			CoalesceThreshold: 32,
			Listen:            ":8765",
			Path:              "/ws",
		},
		Upload: UploadConfig{
			MaxBytes:       200_000,
			MaxAge:         Duration(350 * time.Millisecond),
			MaxRecords:     500,
			MaxAttempts:    5,
			InitialBackoff: Duration(250 * time.Millisecond),
			MaxBackoff:     Duration(10 * time.Second),
			Timeout:        Duration(5 * time.Second),
			Workers:        2,
			Codec:          "json",
			InputCapacity:  4096,
		},
		Mirror: MirrorConfig{
			SubjectPrefix:   "pitwall",
			Capacity:        4096,
			ConnectAttempts: 3,
			MaxReconnects:   -1,
			ReconnectWait:   Duration(2 * time.Second),
			DrainTimeout:    Duration(5 * time.Second),
		},
		Metrics: MetricsConfig{Listen: ":9090"},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return invalid("at least one source is required")
	}
	ids := make(map[string]struct{}, len(c.Sources))
	ports := make(map[int]string, len(c.Sources))
	for i, s := range c.Sources {
		if strings.TrimSpace(s.ID) == "" {
			return invalid("sources[%d].id is required", i)
		}
		if strings.ContainsAny(s.ID, " .*>") {
			return invalid("sources[%d].id %q must not contain spaces, dots or wildcards", i, s.ID)
		}
		if s.ID == "all" {
			return invalid("sources[%d].id %q is reserved for the all-sources filter", i, s.ID)
		}
		if _, dup := ids[s.ID]; dup {
			return invalid("duplicate source id %q", s.ID)
		}
		ids[s.ID] = struct{}{}
		if s.Port < 1 || s.Port > 65535 {
			return invalid("source %s: port %d out of range 1..65535", s.ID, s.Port)
		}
		if other, dup := ports[s.Port]; dup {
			return invalid("source %s: port %d already used by %s", s.ID, s.Port, other)
		}
		ports[s.Port] = s.ID
		for _, f := range s.Formats {
			if !packet.Supported(f) {
				return invalid("source %s: unsupported format %d", s.ID, f)
			}
		}
	}

	positive := []struct {
		name  string
		value int64
	}{
		{"gateway.stale_timeout", int64(c.Gateway.StaleTimeout)},
		{"gateway.read_timeout", int64(c.Gateway.ReadTimeout)},
		{"gateway.max_datagram", int64(c.Gateway.MaxDatagram)},
		{"hub.tick", int64(c.Hub.Tick)},
		{"hub.input_capacity", int64(c.Hub.InputCapacity)},
		{"hub.subscriber_queue", int64(c.Hub.SubscriberQueue)},
		{"hub.coalesce_threshold", int64(c.Hub.CoalesceThreshold)},
		{"upload.max_bytes", int64(c.Upload.MaxBytes)},
		{"upload.max_age", int64(c.Upload.MaxAge)},
		{"upload.max_records", int64(c.Upload.MaxRecords)},
		{"upload.max_attempts", int64(c.Upload.MaxAttempts)},
		{"upload.initial_backoff", int64(c.Upload.InitialBackoff)},
		{"upload.timeout", int64(c.Upload.Timeout)},
		{"upload.workers", int64(c.Upload.Workers)},
		{"upload.input_capacity", int64(c.Upload.InputCapacity)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return invalid("%s must be positive", p.name)
		}
	}
	if c.Upload.MaxBackoff < c.Upload.InitialBackoff {
		return invalid("upload.max_backoff must be >= upload.initial_backoff")
	}

	switch c.Upload.Codec {
	case "json", "cbor":
	default:
		return invalid("upload.codec %q must be json or cbor", c.Upload.Codec)
	}
	if c.Upload.Enabled {
		for _, s := range Streams {
			if c.Upload.Endpoints.For(s) == "" {
				return invalid("upload.endpoints.%s is required when upload is enabled", s)
			}
		}
	}
	if c.Mirror.URL != "" {
		if err := c.Mirror.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m MirrorConfig) validate() error {
	switch {
	case m.SubjectPrefix == "":
		return invalid("mirror.subject_prefix is required when mirror.url is set")
	case m.ConnectAttempts < 1:
		return invalid("mirror.connect_attempts must be at least 1")
	case m.MaxReconnects < -1:
		return invalid("mirror.max_reconnects must be -1 (unlimited) or more")
	case m.ReconnectWait <= 0 || m.DrainTimeout <= 0:
		return invalid("mirror.reconnect_wait and mirror.drain_timeout must be positive")
	case (m.User == "") != (m.Password == ""):
		return invalid("mirror.user and mirror.password must be set together")
	case m.Token != "" && m.User != "":
		return invalid("mirror.token and mirror.user are mutually exclusive")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf(format, args...), "Config", "Validate", "configuration check")
}

// String returns the configuration as indented JSON with the token masked.
func (c *Config) String() string {
	masked := *c
	for _, secret := range []*string{&masked.Upload.Token, &masked.Mirror.Token, &masked.Mirror.Password} {
		if *secret != "" {
			*secret = "********"
		}
	}
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}

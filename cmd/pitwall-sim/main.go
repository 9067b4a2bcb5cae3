// Command pitwall-sim sends synthetic F1 telemetry for one or more rigs, one
// UDP port per rig, to load-test a running pitwall.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/c360/pitwall/packet"
)

const appName = "pitwall-sim"

type simConfig struct {
	Target   string
	Rigs     int
	BasePort int
	Rate     float64
	Duration time.Duration
	Format   uint16
	Seed     uint64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("service", appName)
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if stderrors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error("Invalid flags", "error", err)
		os.Exit(2)
	}
	if _, err := simulate(ctx, cfg, logger); err != nil {
		logger.Error("Simulation failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (simConfig, error) {
	var cfg simConfig
	var format uint
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Target, "target", "127.0.0.1", "Host running pitwall")
	fs.IntVar(&cfg.Rigs, "rigs", 1, "Number of simulated rigs")
	fs.IntVar(&cfg.BasePort, "base-port", 20777, "UDP port of the first rig; rig N sends to base-port+N")
	fs.Float64Var(&cfg.Rate, "rate", 60, "Simulated frames per second per rig")
	fs.DurationVar(&cfg.Duration, "duration", 5*time.Minute, "How long to run, 0 for until interrupted")
	fs.UintVar(&format, "format", uint(packet.Format2025), "Packet format year")
	fs.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "Random seed")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Format = uint16(format)

	switch {
	case cfg.Rigs < 1:
		return cfg, fmt.Errorf("--rigs must be at least 1")
	case cfg.BasePort < 1 || cfg.BasePort+cfg.Rigs-1 > 65535:
		return cfg, fmt.Errorf("--base-port %d leaves no room for %d rigs", cfg.BasePort, cfg.Rigs)
	case cfg.Rate <= 0:
		return cfg, fmt.Errorf("--rate must be positive")
	case cfg.Duration < 0:
		return cfg, fmt.Errorf("--duration must not be negative")
	case !packet.Supported(cfg.Format):
		return cfg, fmt.Errorf("--format %d is not supported (have %v)", cfg.Format, packet.Formats())
	}
	return cfg, nil
}

// simStats are the totals of one run.
type simStats struct {
	Packets int64
	Bytes   int64
	Errors  int64
	Laps    int64
	Elapsed time.Duration
}

func simulate(ctx context.Context, cfg simConfig, logger *slog.Logger) (simStats, error) {
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	conns := make([]net.Conn, cfg.Rigs)
	for i := range conns {
		addr := net.JoinHostPort(cfg.Target, strconv.Itoa(cfg.BasePort+i))
		conn, err := net.Dial("udp", addr)
		if err != nil {
			for _, c := range conns[:i] {
				_ = c.Close()
			}
			return simStats{}, fmt.Errorf("dial %s: %w", addr, err)
		}
		conns[i] = conn
	}

	logger.Info("Starting simulation", "target", cfg.Target, "rigs", cfg.Rigs,
		"base_port", cfg.BasePort, "rate", cfg.Rate, "duration", cfg.Duration, "format", cfg.Format)

	var packets, bytes, errs, laps atomic.Int64
	start := time.Now()
	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn net.Conn) {
			defer wg.Done()
			defer conn.Close()
			r := newRig(cfg.Format, cfg.Seed+uint64(i))
			limiter := rate.NewLimiter(rate.Limit(cfg.Rate), 1)
			log := logger.With("rig", i, "port", cfg.BasePort+i)
			for limiter.Wait(ctx) == nil {
				if r.step() {
					laps.Add(1)
					log.Info("Lap completed", "lap", r.lap-1, "lap_time_ms", r.lastLapMS)
				}
				for _, p := range r.packets() {
					b, err := packet.Encode(p)
					if err == nil {
						_, err = conn.Write(b)
					}
					if err != nil {
						if errs.Add(1)%1000 == 1 {
							log.Warn("Send failed", "type", p.Header.PacketID.String(), "error", err)
						}
						continue
					}
					packets.Add(1)
					bytes.Add(int64(len(b)))
				}
			}
		}(i, conn)
	}

	progress := time.NewTicker(10 * time.Second)
	defer progress.Stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-progress.C:
			elapsed := time.Since(start)
			logger.Info("Progress", "packets", packets.Load(), "elapsed", elapsed.Truncate(time.Second),
				"pps", fmt.Sprintf("%.1f", float64(packets.Load())/elapsed.Seconds()))
		case <-done:
			st := simStats{Packets: packets.Load(), Bytes: bytes.Load(), Errors: errs.Load(), Laps: laps.Load(), Elapsed: time.Since(start)}
			logger.Info("Simulation completed", "packets", st.Packets, "bytes", st.Bytes, "errors", st.Errors,
				"laps", st.Laps, "elapsed", st.Elapsed.Truncate(time.Millisecond),
				"pps", fmt.Sprintf("%.1f", float64(st.Packets)/st.Elapsed.Seconds()))
			return st, nil
		}
	}
}

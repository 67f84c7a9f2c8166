// Command mgxrec-bench load-tests the live action stream of pkg/server.
//
// It stores one synthetic recording in an in-process server, then runs
// concurrent WebSocket clients that stream it from /recs/{id}/ws over and
// over, and reports stream latency, decode throughput and GC cost.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/mgxrec/pkg/server"
	"github.com/vango-dev/mgxrec/pkg/upload"
)

const (
	gib = int64(1024 * 1024 * 1024)
)

type profile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	Actions       int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:     "fast",
		Clients:  20,
		Duration: 10 * time.Second,
		Actions:  2_000,
	},
	"standard": {
		Name:     "standard",
		Clients:  100,
		Duration: 30 * time.Second,
		Actions:  10_000,
	},
	"stress": {
		Name:          "stress",
		Clients:       300,
		Duration:      60 * time.Second,
		Actions:       50_000,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	profile
	JSONOutput    string
	StreamTimeout time.Duration
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	debug.SetGCPercent(100)

	report, err := run(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

// run starts the server, uploads the workload and drives the clients
// until cfg.Duration has passed.
func run(ctx context.Context, cfg benchConfig) (benchReport, error) {
	dir, err := os.MkdirTemp("", "mgxrec-bench-")
	if err != nil {
		return benchReport{}, err
	}
	defer os.RemoveAll(dir)

	store, err := upload.NewDiskStore(dir, 0)
	if err != nil {
		return benchReport{}, err
	}
	data, err := buildWorkload(cfg.Actions)
	if err != nil {
		return benchReport{}, fmt.Errorf("build workload: %w", err)
	}
	id, err := store.Save(ctx, "bench.mgx", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		return benchReport{}, fmt.Errorf("store workload: %w", err)
	}

	sc := server.DefaultServerConfig()
	sc.CheckOrigin = func(r *http.Request) bool { return true }
	srv := server.New(store, sc, server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return benchReport{}, fmt.Errorf("listen: %w", err)
	}
	serveCtx, stopServer := context.WithCancel(ctx)
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(serveCtx, ln) }()
	defer func() {
		stopServer()
		<-serveDone
	}()

	wsURL := "ws://" + ln.Addr().String() + "/recs/" + id + "/ws"

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	// Latencies are gathered by one goroutine; the slice is only read after it exits.
	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var latencies []time.Duration
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for d := range samplesCh {
			latencies = append(latencies, d)
		}
	}()

	var counters benchCounters
	var errCounts benchErrors
	var ops opcodeCounts

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		go func() {
			defer wg.Done()
			if err := runClient(runCtx, wsURL, cfg, &counters, &errCounts, &ops, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collected

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	slices.Sort(latencies)

	return buildReport(cfg, int64(len(data)), elapsed, latencies, &counters, &errCounts, &ops,
		before, after, beforeMetrics, afterMetrics, srv.Stats()), nil
}

func sampleBuffer(clients int) int {
	return max(clients*4, 1024)
}

func parseConfig(fs *flag.FlagSet, args []string) (benchConfig, error) {
	var (
		name     = fs.String("profile", "standard", "profile: fast|standard|stress")
		clients  = fs.Int("clients", 0, "concurrent websocket clients (overrides the profile)")
		duration = fs.Duration("duration", 0, "benchmark duration, e.g. 30s")
		actions  = fs.Int("actions", 0, "actions in the streamed recording")
		maxProcs = fs.Int("max-procs", 0, "GOMAXPROCS cap (0 to leave unchanged)")
		memLimit = fs.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
		jsonOut  = fs.String("json", "-", "JSON output path ('-' for stdout)")
	)
	if err := fs.Parse(args); err != nil {
		return benchConfig{}, err
	}

	base, ok := profiles[strings.ToLower(strings.TrimSpace(*name))]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", *name)
	}
	cfg := benchConfig{profile: base, JSONOutput: strings.TrimSpace(*jsonOut)}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	// Only flags given on the command line override the profile.
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "clients":
			cfg.Clients = *clients
		case "duration":
			cfg.Duration = *duration
		case "actions":
			cfg.Actions = *actions
		case "max-procs":
			cfg.MaxProcs = *maxProcs
		case "mem-limit":
			if cfg.MemLimitBytes, err = parseBytes(*memLimit); err != nil {
				err = fmt.Errorf("invalid -mem-limit: %w", err)
			}
		}
	})
	if err != nil {
		return benchConfig{}, err
	}

	switch {
	case cfg.Clients <= 0:
		return benchConfig{}, errors.New("-clients must be > 0")
	case cfg.Duration <= 0:
		return benchConfig{}, errors.New("-duration must be > 0")
	case cfg.Actions <= 0:
		return benchConfig{}, errors.New("-actions must be > 0")
	case cfg.MaxProcs < 0:
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}

	cfg.StreamTimeout = streamTimeout(cfg.Actions)
	return cfg, nil
}

// streamTimeout bounds one full stream: 2s plus 1ms per 10 actions.
func streamTimeout(actions int) time.Duration {
	return 2*time.Second + time.Duration(actions/10)*time.Millisecond
}

var sizeSuffixes = []struct {
	suffix string
	mult   float64
}{
	{"kib", 1 << 10}, {"mib", 1 << 20}, {"gib", 1 << 30},
	{"kb", 1e3}, {"mb", 1e6}, {"gb", 1e9},
	{"b", 1},
}

// parseBytes parses sizes like "512", "1.5kb" or "2GiB".
func parseBytes(input string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	mult := 1.0
	for _, u := range sizeSuffixes {
		if rest, ok := strings.CutSuffix(s, u.suffix); ok {
			s, mult = strings.TrimSpace(rest), u.mult
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}
	return int64(v*mult + 0.5), nil
}

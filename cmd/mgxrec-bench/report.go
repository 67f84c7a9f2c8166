package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"runtime/metrics"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vango-dev/mgxrec/pkg/server"
)

// runtimeSample holds the cumulative runtime/metrics values the report diffs.
type runtimeSample struct {
	cpuTotal, cpuGC float64
	allocBytes      uint64
	allocObjects    uint64
}

var runtimeMetricNames = [...]string{
	"/cpu/classes/total:cpu-seconds",
	"/cpu/classes/gc/total:cpu-seconds",
	"/gc/heap/allocs:bytes",
	"/gc/heap/allocs:objects",
}

func readRuntimeMetrics() runtimeSample {
	samples := make([]metrics.Sample, len(runtimeMetricNames))
	for i, name := range runtimeMetricNames {
		samples[i].Name = name
	}
	metrics.Read(samples)

	var out runtimeSample
	targets := []any{&out.cpuTotal, &out.cpuGC, &out.allocBytes, &out.allocObjects}
	for i, sample := range samples {
		switch dst := targets[i].(type) {
		case *float64:
			if sample.Value.Kind() == metrics.KindFloat64 {
				*dst = sample.Value.Float64()
			}
		case *uint64:
			if sample.Value.Kind() == metrics.KindUint64 {
				*dst = sample.Value.Uint64()
			}
		}
	}
	return out
}

// gcCPUFraction is the share of CPU time spent in the GC between two samples.
func gcCPUFraction(after, before runtimeSample) float64 {
	total, gc := after.cpuTotal-before.cpuTotal, after.cpuGC-before.cpuGC
	if total <= 0 || gc < 0 {
		return 0
	}
	return gc / total
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(n) * p))
	return sorted[min(max(rank, 1), n)-1]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	if cycles := after.NumGC - before.NumGC; cycles > 0 {
		return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(cycles))
	}
	return 0
}

func ms(d time.Duration) float64 {
	return d.Seconds() * 1000
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"stream_latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Stream     streamInfo     `json:"stream"`
	Server     serverInfo     `json:"server"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile         string `json:"profile"`
	Clients         int    `json:"clients"`
	DurationMS      int64  `json:"duration_ms"`
	Actions         int    `json:"actions_per_stream"`
	RecordingBytes  int64  `json:"recording_bytes"`
	MaxProcs        int    `json:"max_procs"`
	MemLimitBytes   int64  `json:"mem_limit_bytes"`
	StreamTimeoutMS int64  `json:"stream_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	StreamsTotal  uint64  `json:"streams_total"`
	StreamsPerSec float64 `json:"streams_per_sec"`
	ActionsTotal  uint64  `json:"actions_total"`
	ActionsPerSec float64 `json:"actions_per_sec"`
	DecodedMBps   float64 `json:"decoded_mb_per_sec"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type streamInfo struct {
	MessagesTotal     uint64            `json:"messages_total"`
	MessageBytesTotal uint64            `json:"message_bytes_total"`
	AvgMessageBytes   float64           `json:"avg_message_bytes"`
	Commands          map[string]uint64 `json:"commands"`
}

type serverInfo struct {
	PeakStreams   int64 `json:"peak_streams"`
	FailedStreams int64 `json:"failed_streams"`
	BytesDecoded  int64 `json:"bytes_decoded"`
}

type errorInfo struct {
	TotalErrors           uint64 `json:"total_errors"`
	HandshakeFailures     uint64 `json:"handshake_failures"`
	MessageDecodeFailures uint64 `json:"message_decode_failures"`
	ServerErrors          uint64 `json:"server_errors"`
	ShortStreams          uint64 `json:"short_streams"`
	Timeouts              uint64 `json:"timeouts"`
}

func buildReport(
	cfg benchConfig,
	recordingBytes int64,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errors *benchErrors,
	ops *opcodeCounts,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeSample,
	afterMetrics runtimeSample,
	srv *server.ServerMetrics,
) benchReport {
	streams := counters.streamsComplete.Load()
	actions := counters.actions.Load()
	messages := counters.messages.Load()
	messageBytes := counters.messageBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())

	var latency latencyInfo
	if n := len(latencies); n > 0 {
		latency.Min, latency.Max = ms(latencies[0]), ms(latencies[n-1])
		latency.P50 = ms(percentile(latencies, 0.50))
		latency.P95 = ms(percentile(latencies, 0.95))
		latency.P99 = ms(percentile(latencies, 0.99))
	}

	avgMessageBytes := 0.0
	if messages > 0 {
		avgMessageBytes = float64(messageBytes) / float64(messages)
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:         cfg.Name,
			Clients:         cfg.Clients,
			DurationMS:      cfg.Duration.Milliseconds(),
			Actions:         cfg.Actions,
			RecordingBytes:  recordingBytes,
			MaxProcs:        cfg.MaxProcs,
			MemLimitBytes:   cfg.MemLimitBytes,
			StreamTimeoutMS: cfg.StreamTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			StreamsTotal:  streams,
			StreamsPerSec: float64(streams) / elapsedSeconds,
			ActionsTotal:  actions,
			ActionsPerSec: float64(actions) / elapsedSeconds,
			DecodedMBps:   float64(srv.BytesDecoded) / (1024 * 1024) / elapsedSeconds,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: gcCPUFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.allocObjects - beforeMetrics.allocObjects,
		},
		Stream: streamInfo{
			MessagesTotal:     messages,
			MessageBytesTotal: messageBytes,
			AvgMessageBytes:   avgMessageBytes,
			Commands:          ops.snapshot(),
		},
		Server: serverInfo{
			PeakStreams:   srv.PeakStreams,
			FailedStreams: srv.FailedStreams,
			BytesDecoded:  srv.BytesDecoded,
		},
		Errors: errorInfo{
			TotalErrors:           errors.totalErrors.Load(),
			HandshakeFailures:     errors.handshakeFailures.Load(),
			MessageDecodeFailures: errors.messageDecodeFailure.Load(),
			ServerErrors:          errors.serverErrors.Load(),
			ShortStreams:          errors.shortStreams.Load(),
			Timeouts:              errors.timeouts.Load(),
		},
	}
}

// writeSummary prints the human-readable report, one aligned key per line.
func writeSummary(w io.Writer, report benchReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	wl := report.Workload
	row := func(key, format string, args ...any) {
		fmt.Fprintf(tw, "%s\t"+format+"\n", append([]any{key}, args...)...)
	}

	fmt.Fprintf(tw, "mgxrec stream benchmark (%s profile)\n\n", wl.Profile)
	row("clients", "%d", wl.Clients)
	row("duration", "%s", time.Duration(wl.DurationMS)*time.Millisecond)
	row("recording", "%d actions in %d bytes", wl.Actions, wl.RecordingBytes)
	if wl.MaxProcs > 0 {
		row("max procs", "%d", wl.MaxProcs)
	}
	if wl.MemLimitBytes > 0 {
		row("mem limit", "%.2f GiB", float64(wl.MemLimitBytes)/float64(gib))
	}

	tp := report.Throughput
	row("streams", "%d, %.1f/s, %d peak", tp.StreamsTotal, tp.StreamsPerSec, report.Server.PeakStreams)
	row("actions", "%d, %.0f/s", tp.ActionsTotal, tp.ActionsPerSec)
	row("decoded", "%.2f MB/s", tp.DecodedMBps)
	row("errors", "%d", report.Errors.TotalErrors)

	if lat := report.LatencyMS; lat.Max > 0 {
		row("latency", "min %.2f  p50 %.2f  p95 %.2f  p99 %.2f  max %.2f ms",
			lat.Min, lat.P50, lat.P95, lat.P99, lat.Max)
	} else {
		row("latency", "no stream completed")
	}

	gc := report.GC
	row("allocated", "%.2f MB, heap %.2f MB live", gc.AllocMB, gc.HeapLiveMB)
	row("gc cycles", "%d, pause %.2f ms total / %.2f ms avg", gc.NumGC, gc.PauseTotalMS, gc.PauseAvgMS)
	row("gc cpu", "%.2f%%", gc.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("MGXREC_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

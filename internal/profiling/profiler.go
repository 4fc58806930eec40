// Package profiling captures CPU, heap, and execution-trace profiles around
// an indexing run.
package profiling

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/dustin/go-humanize"
)

// Config names the profile files to write. Empty paths are not captured.
type Config struct {
	CPUProfile  string
	HeapProfile string
	Trace       string
}

// Enabled reports whether any profile is requested.
func (c Config) Enabled() bool {
	return c.CPUProfile != "" || c.HeapProfile != "" || c.Trace != ""
}

// Session is an active profiling session. Stop must be called exactly once.
type Session struct {
	cfg       Config
	cpuFile   *os.File
	traceFile *os.File
	logger    *slog.Logger
}

// Start begins CPU profiling and tracing as configured. On error nothing is
// left running.
func Start(cfg Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{cfg: cfg, logger: logger}

	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		s.cpuFile = f
	}

	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			s.stopCPU()
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		s.traceFile = f
	}

	return s, nil
}

// Stop ends CPU profiling and tracing, then writes the heap profile.
func (s *Session) Stop() error {
	s.stopCPU()
	if s.traceFile != nil {
		trace.Stop()
		_ = s.traceFile.Close()
		s.traceFile = nil
	}

	var errs []error
	if s.cfg.HeapProfile != "" {
		errs = append(errs, WriteHeap(s.cfg.HeapProfile))
	}

	m := MemStats()
	s.logger.Info("profile_written",
		slog.String("cpu", s.cfg.CPUProfile),
		slog.String("heap", s.cfg.HeapProfile),
		slog.String("trace", s.cfg.Trace),
		slog.String("heap_in_use", humanize.IBytes(m.HeapInuse)),
		slog.String("total_alloc", humanize.IBytes(m.TotalAlloc)),
		slog.Uint64("gc_cycles", uint64(m.NumGC)))

	return errors.Join(errs...)
}

func (s *Session) stopCPU() {
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = s.cpuFile.Close()
		s.cpuFile = nil
	}
}

// WriteHeap writes a heap profile to path after a GC.
func WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}

// MemStats returns current memory statistics.
func MemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}

package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-glb/common"
)

// StageStats holds the measurements of one completed stage.
type StageStats struct {
	Name    string
	Elapsed time.Duration
	AllocMB float64 // bytes allocated while the stage ran, in MB
	GCCount uint32  // garbage collections that ran during the stage
	HeapMB  float64 // live heap at the end of the stage, in MB
	SysMB   float64 // memory obtained from the OS at the end of the stage, in MB
}

// Profiler times the stages of pack and unpack operations and reports wall time and
// allocation statistics through a structured logger. A nil *Profiler is valid and
// records nothing.
type Profiler struct {
	mu     sync.Mutex
	logger *slog.Logger
	stages []StageStats
}

// NewProfiler creates a new Profiler that logs each completed stage at debug level.
//
// Parameters:
//   - logger: the structured logger receiving stage reports
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger) *Profiler {
	return &Profiler{logger: common.Coalesce(logger, slog.Default())}
}

// Stage starts timing a named stage. The returned function ends the stage, records
// its statistics and logs them.
//
// Parameters:
//   - name: the stage name, e.g. "resolve", "write"
//
// Returns:
//   - func(): ends the stage; safe to call once
func (p *Profiler) Stage(name string) func() {
	if p == nil {
		return func() {}
	}

	var start runtime.MemStats
	runtime.ReadMemStats(&start)
	startTime := time.Now()

	return func() {
		elapsed := time.Since(startTime)

		var end runtime.MemStats
		runtime.ReadMemStats(&end)

		// TotalAlloc only grows, so the delta is what this stage allocated.
		stats := StageStats{
			Name:    name,
			Elapsed: elapsed,
			AllocMB: float64(end.TotalAlloc-start.TotalAlloc) / 1024 / 1024,
			GCCount: end.NumGC - start.NumGC,
			HeapMB:  float64(end.Alloc) / 1024 / 1024,
			SysMB:   float64(end.Sys) / 1024 / 1024,
		}

		p.mu.Lock()
		p.stages = append(p.stages, stats)
		p.mu.Unlock()

		p.logger.Debug("stage complete",
			"stage", stats.Name,
			"elapsed", stats.Elapsed,
			"alloc_mb", stats.AllocMB,
			"gc", stats.GCCount,
			"heap_mb", stats.HeapMB,
		)
	}
}

// Stages returns a copy of every stage recorded so far, in completion order.
//
// Returns:
//   - []StageStats: the recorded stages
func (p *Profiler) Stages() []StageStats {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StageStats(nil), p.stages...)
}

// Report logs a one-line summary of every recorded stage at info level.
func (p *Profiler) Report() {
	if p == nil {
		return
	}

	var total time.Duration
	var alloc float64
	stages := p.Stages()
	for _, s := range stages {
		total += s.Elapsed
		alloc += s.AllocMB
	}
	p.logger.Info("profile", "stages", len(stages), "elapsed", total, "alloc_mb", alloc)
}

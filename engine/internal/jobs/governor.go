package jobs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/banton/medical-patients-sub001/engine/models"
)

// GovernorConfig carries the three resource caps plus admission limits.
type GovernorConfig struct {
	MaxMemoryMB          int
	MaxCPUSeconds        int
	MaxRuntimeSeconds    int
	CheckIntervalSeconds int
	MaxConcurrentJobs    int
}

// GovernorDefaults reads the cap knobs from the environment with the standard
// fallbacks (512 MB / 300 s / 600 s / 2 jobs).
func GovernorDefaults() GovernorConfig {
	return GovernorConfig{
		MaxMemoryMB:          envInt("JOB_MAX_MEMORY_MB", 512),
		MaxCPUSeconds:        envInt("JOB_MAX_CPU_SECONDS", 300),
		MaxRuntimeSeconds:    envInt("JOB_MAX_RUNTIME_SECONDS", 600),
		CheckIntervalSeconds: 5,
		MaxConcurrentJobs:    envInt("MAX_CONCURRENT_JOBS", 2),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

type trackedJob struct {
	startTime    time.Time
	startCPUSecs float64
	cancel       context.CancelFunc
	cancelled    bool
	limitErr     error
}

// Governor enforces memory, CPU-time, and runtime caps on running jobs and
// refuses admission when the host is saturated.
type Governor struct {
	cfg  GovernorConfig
	proc *process.Process

	mu     sync.Mutex
	active map[string]*trackedJob
}

// NewGovernor builds a governor over the current process.
func NewGovernor(cfg GovernorConfig) *Governor {
	if cfg.CheckIntervalSeconds <= 0 {
		cfg.CheckIntervalSeconds = 5
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Governor{cfg: cfg, proc: proc, active: make(map[string]*trackedJob)}
}

func (g *Governor) cpuSeconds() float64 {
	if g.proc == nil {
		return 0
	}
	times, err := g.proc.Times()
	if err != nil {
		return 0
	}
	return times.User + times.System
}

func (g *Governor) memoryMB() float64 {
	if g.proc == nil {
		return 0
	}
	info, err := g.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return float64(info.RSS) / 1024 / 1024
}

// Track registers a job and starts its resource monitor. The returned context
// is cancelled when any cap is breached; call the release func when the job
// ends and check LimitError for a breach.
func (g *Governor) Track(ctx context.Context, jobID string) (context.Context, func()) {
	jobCtx, cancel := context.WithCancel(ctx)
	t := &trackedJob{startTime: time.Now(), startCPUSecs: g.cpuSeconds(), cancel: cancel}
	g.mu.Lock()
	g.active[jobID] = t
	g.mu.Unlock()

	done := make(chan struct{})
	go g.monitor(jobCtx, jobID, done)

	release := func() {
		cancel()
		<-done
		g.mu.Lock()
		delete(g.active, jobID)
		g.mu.Unlock()
	}
	return jobCtx, release
}

func (g *Governor) monitor(ctx context.Context, jobID string, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Duration(g.cfg.CheckIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.check(jobID); err != nil {
				g.mu.Lock()
				if t, ok := g.active[jobID]; ok {
					t.limitErr = err
					t.cancel()
				}
				g.mu.Unlock()
				return
			}
		}
	}
}

func (g *Governor) check(jobID string) error {
	g.mu.Lock()
	t, ok := g.active[jobID]
	cancelled := ok && t.cancelled
	g.mu.Unlock()
	if !ok || cancelled {
		return nil
	}
	runtime := time.Since(t.startTime).Seconds()
	if runtime > float64(g.cfg.MaxRuntimeSeconds) {
		return fmt.Errorf("%w: job %s exceeded maximum runtime of %ds", models.ErrResourceLimitExceeded, jobID, g.cfg.MaxRuntimeSeconds)
	}
	if memMB := g.memoryMB(); memMB > float64(g.cfg.MaxMemoryMB) {
		return fmt.Errorf("%w: job %s exceeded memory limit: %.1fMB > %dMB", models.ErrResourceLimitExceeded, jobID, memMB, g.cfg.MaxMemoryMB)
	}
	if cpuSecs := g.cpuSeconds() - t.startCPUSecs; cpuSecs > float64(g.cfg.MaxCPUSeconds) {
		return fmt.Errorf("%w: job %s exceeded CPU time limit: %.1fs > %ds", models.ErrResourceLimitExceeded, jobID, cpuSecs, g.cfg.MaxCPUSeconds)
	}
	return nil
}

// LimitError reports the cap breach recorded for a job, if any.
func (g *Governor) LimitError(jobID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.active[jobID]; ok {
		return t.limitErr
	}
	return nil
}

// Cancel flags a job; its context is cancelled and the monitor stands down.
func (g *Governor) Cancel(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.active[jobID]; ok {
		t.cancelled = true
		t.cancel()
	}
}

// Cancelled reports whether Cancel was called for the job.
func (g *Governor) Cancelled(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.active[jobID]; ok {
		return t.cancelled
	}
	return false
}

// ActiveCount returns the number of tracked jobs.
func (g *Governor) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// CanStart admits a new job only under the concurrency cap and while the host
// has headroom (memory and CPU both under 90%).
func (g *Governor) CanStart() bool {
	if g.ActiveCount() >= g.cfg.MaxConcurrentJobs {
		return false
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm.UsedPercent > 90 {
		return false
	}
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 && percents[0] > 90 {
		return false
	}
	return true
}

// WaitForResources blocks until CanStart succeeds or the timeout elapses.
func (g *Governor) WaitForResources(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if g.CanStart() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return g.CanStart()
}

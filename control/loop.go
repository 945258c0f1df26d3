package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/swerve/logging"
)

// Tickable is advanced once per loop cycle.
type Tickable interface {
	Tick(ctx context.Context, dt time.Duration) error
}

// TickFunc adapts a function to Tickable.
type TickFunc func(ctx context.Context, dt time.Duration) error

// Tick calls f.
func (f TickFunc) Tick(ctx context.Context, dt time.Duration) error {
	return f(ctx, dt)
}

const (
	maxLoopFrequencyHz = 1000
	cycleHistory       = 500
)

// LoopStats summarizes recent cycle execution times.
type LoopStats struct {
	Ticks    int64         `json:"ticks"`
	Overruns int64         `json:"overruns"`
	Errors   int64         `json:"errors"`
	Mean     time.Duration `json:"mean"`
	P99      time.Duration `json:"p99"`
	Max      time.Duration `json:"max"`
}

// Loop calls a Tickable at a fixed period from a single goroutine. dt passed to the Tickable is the
// measured time since the previous cycle started.
type Loop struct {
	period time.Duration
	target Tickable
	clk    clock.Clock
	logger logging.Logger

	activeBackgroundWorkers sync.WaitGroup
	cancelCtx               context.Context
	cancel                  context.CancelFunc
	running                 atomic.Bool

	ticks    atomic.Int64
	overruns atomic.Int64
	errs     atomic.Int64

	mu      sync.Mutex
	cycles  []float64
	next    int
	lastErr string
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.Clock) LoopOption {
	return func(l *Loop) {
		l.clk = clk
	}
}

// NewLoop returns a stopped loop that will tick target every period.
func NewLoop(logger logging.Logger, period time.Duration, target Tickable, opts ...LoopOption) (*Loop, error) {
	if period <= 0 || period < time.Second/maxLoopFrequencyHz {
		return nil, errors.Errorf("loop period must be at least %v, got %v", time.Second/maxLoopFrequencyHz, period)
	}
	if target == nil {
		return nil, errors.New("loop needs something to tick")
	}
	l := &Loop{
		period: period,
		target: target,
		clk:    clock.New(),
		logger: logger,
		cycles: make([]float64, 0, cycleHistory),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Period returns the configured cycle period.
func (l *Loop) Period() time.Duration {
	return l.period
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Start launches the loop goroutine.
func (l *Loop) Start() error {
	if l.running.Load() {
		return errors.New("control loop already running")
	}
	l.cancelCtx, l.cancel = context.WithCancel(context.Background())
	l.logger.Infow("starting control loop", "period", l.period)

	ticker := l.clk.Ticker(l.period)
	last := l.clk.Now()
	l.running.Store(true)
	l.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-l.cancelCtx.Done():
				return
			case <-ticker.C:
			}
			start := l.clk.Now()
			l.RunCycle(l.cancelCtx, start.Sub(last))
			last = start
		}
	}, l.activeBackgroundWorkers.Done)
	return nil
}

// RunCycle runs one cycle synchronously and records its timing.
func (l *Loop) RunCycle(ctx context.Context, dt time.Duration) {
	start := l.clk.Now()
	err := l.target.Tick(ctx, dt)
	elapsed := l.clk.Since(start)
	l.ticks.Inc()
	l.recordCycle(elapsed)
	l.recordError(err)

	if elapsed > l.period {
		l.overruns.Inc()
		l.logger.Warnw("control cycle overran its period", "elapsed", elapsed, "period", l.period)
	}
}

func (l *Loop) recordCycle(elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms := float64(elapsed) / float64(time.Millisecond)
	if len(l.cycles) < cycleHistory {
		l.cycles = append(l.cycles, ms)
		return
	}
	l.cycles[l.next] = ms
	l.next = (l.next + 1) % cycleHistory
}

// recordError logs a failing cycle once per distinct error, and once more when cycles recover.
func (l *Loop) recordError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		if l.lastErr != "" {
			l.logger.Infow("control cycle recovered", "previous_error", l.lastErr)
			l.lastErr = ""
		}
		return
	}
	l.errs.Inc()
	if msg := err.Error(); msg != l.lastErr {
		l.logger.Errorw("control cycle failed", "error", err)
		l.lastErr = msg
	}
}

// Stats returns timing statistics over recent cycles.
func (l *Loop) Stats() LoopStats {
	out := LoopStats{
		Ticks:    l.ticks.Load(),
		Overruns: l.overruns.Load(),
		Errors:   l.errs.Load(),
	}
	l.mu.Lock()
	data := stats.Float64Data(append([]float64(nil), l.cycles...))
	l.mu.Unlock()
	if len(data) == 0 {
		return out
	}
	toDuration := func(ms float64) time.Duration {
		return time.Duration(ms * float64(time.Millisecond))
	}
	if mean, err := data.Mean(); err == nil {
		out.Mean = toDuration(mean)
	}
	if p99, err := data.Percentile(99); err == nil {
		out.P99 = toDuration(p99)
	}
	if maxMs, err := data.Max(); err == nil {
		out.Max = toDuration(maxMs)
	}
	return out
}

// Stop cancels the loop and waits for the current cycle to finish.
func (l *Loop) Stop() {
	if !l.running.Load() {
		return
	}
	l.cancel()
	l.activeBackgroundWorkers.Wait()
	l.running.Store(false)
	l.logger.Infow("control loop stopped", "ticks", l.ticks.Load(), "overruns", l.overruns.Load())
}

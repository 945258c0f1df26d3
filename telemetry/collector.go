package telemetry

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/swerve/logging"
)

const queueSize = 16

// A Collector captures a record from its status source every interval and hands it to each sink.
// Capturing only loads the published snapshot, so the control loop is never blocked.
type Collector struct {
	session  string
	interval time.Duration
	status   StatusSource
	loop     LoopStatsSource
	sinks    []Sink
	clk      clock.Clock
	logger   logging.Logger

	queue     chan Record
	seq       uint64
	published atomic.Int64
	dropped   atomic.Int64
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.Clock) CollectorOption {
	return func(c *Collector) {
		c.clk = clk
	}
}

// WithLoopStats includes control loop timing in every record.
func WithLoopStats(loop LoopStatsSource) CollectorOption {
	return func(c *Collector) {
		c.loop = loop
	}
}

// NewCollector returns a collector publishing status to sinks every interval.
func NewCollector(
	status StatusSource,
	interval time.Duration,
	sinks []Sink,
	logger logging.Logger,
	opts ...CollectorOption,
) (*Collector, error) {
	if status == nil {
		return nil, errors.New("telemetry collector needs a status source")
	}
	if interval <= 0 {
		return nil, errors.Errorf("telemetry interval must be positive, got %v", interval)
	}
	c := &Collector{
		session:  uuid.New().String(),
		interval: interval,
		status:   status,
		sinks:    lo.Filter(sinks, func(s Sink, _ int) bool { return s != nil }),
		clk:      clock.New(),
		logger:   logger,
		queue:    make(chan Record, queueSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the identifier stamped on every record.
func (c *Collector) Session() string {
	return c.session
}

// Capture builds the next record from the latest snapshot.
func (c *Collector) Capture() Record {
	c.seq++
	rec := Record{
		Session: c.session,
		Seq:     c.seq,
		Time:    c.clk.Now(),
		Status:  c.status.Status(),
	}
	if c.loop != nil {
		stats := c.loop.Stats()
		rec.Loop = &stats
	}
	return rec
}

// Collect captures and publishes until ctx is done.
func (c *Collector) Collect(ctx context.Context) error {
	errs, ctx := errgroup.WithContext(ctx)
	errs.Go(func() error {
		return c.capture(ctx)
	})
	errs.Go(func() error {
		return c.write(ctx)
	})
	err := errs.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Collector) capture(ctx context.Context) error {
	ticker := c.clk.Ticker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		select {
		case c.queue <- c.Capture():
		default:
			if c.dropped.Inc() == 1 {
				c.logger.Warn("telemetry sinks are falling behind, dropping records")
			}
		}
	}
}

func (c *Collector) write(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-c.queue:
			c.Publish(ctx, rec)
		}
	}
}

// Publish hands rec to every sink. A failing sink is logged and does not stop the others.
func (c *Collector) Publish(ctx context.Context, rec Record) {
	for _, s := range c.sinks {
		if err := s.Publish(ctx, rec); err != nil {
			c.logger.Debugw("telemetry sink failed", "sink", sinkName(s), "seq", rec.Seq, "error", err)
		}
	}
	c.published.Inc()
}

// Published returns how many records reached the sinks.
func (c *Collector) Published() int64 {
	return c.published.Load()
}

// Dropped returns how many records were discarded because the sinks fell behind.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close closes every sink.
func (c *Collector) Close() error {
	var errs error
	for _, s := range c.sinks {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}

func sinkName(s Sink) string {
	switch s.(type) {
	case *LogSink:
		return "log"
	case *MQTTSink:
		return "mqtt"
	case *WebsocketHub:
		return "websocket"
	default:
		return "custom"
	}
}

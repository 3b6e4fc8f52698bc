// Package metrics records what the token-swap processor and pool engine do:
// instructions seen, trades executed, fees collected and pool token supply.
//
// Backends log through slog or export to Prometheus. A Collection fans every
// call out to several backends.
package metrics

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Metrics defines the interface for collecting and managing metrics.
type Metrics interface {
	// Initialize prepares the backend before the first instruction.
	Initialize(ctx context.Context) error

	// Flush reports whatever the backend has buffered.
	Flush(ctx context.Context) error

	// Shutdown releases the backend.
	Shutdown(ctx context.Context) error

	// UpdateGauge sets a gauge, such as the pool token supply.
	UpdateGauge(ctx context.Context, name string, value float64) error

	// IncrementCounter adds value to a counter, such as swapped volume.
	IncrementCounter(ctx context.Context, name string, value uint64) error

	// RecordHistogram observes one value, such as an instruction's latency.
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// Metric names recorded by the processor and the pool engine.
const (
	MetricInstructionsReceived    = "instructions_received"
	MetricInstructionsSuccessful  = "instructions_successful"
	MetricInstructionsFailed      = "instructions_failed"
	MetricInstructionsRejected    = "instructions_rejected"
	MetricProcessTimeMilliseconds = "instruction_process_time_milliseconds"
	MetricSwapsExecuted           = "swaps_executed"
	MetricSwapSourceAmount        = "swap_source_amount"
	MetricSwapDestinationAmount   = "swap_destination_amount"
	MetricTradeFeesCollected      = "trade_fees_collected"
	MetricOwnerFeesCollected      = "owner_fees_collected"
	MetricDepositsExecuted        = "deposits_executed"
	MetricWithdrawalsExecuted     = "withdrawals_executed"
	MetricPoolsInitialized        = "pools_initialized"
	MetricPoolTokenSupply         = "pool_token_supply"
)

// InstructionMetric scopes a metric name to an instruction, e.g.
// "swap_instructions_received".
func InstructionMetric(instruction, name string) string {
	return strings.ToLower(instruction) + "_" + name
}

// Collection fans calls out to its backends in order. The first backend
// error stops the fan-out.
type Collection struct {
	mu       sync.RWMutex
	backends []Metrics
}

func NewCollection(backends ...Metrics) *Collection {
	return &Collection{backends: backends}
}

func (c *Collection) Add(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends = append(c.backends, m)
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.backends)
}

func (c *Collection) each(fn func(Metrics) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.backends {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) Initialize(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Initialize(ctx) })
}

func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

func (c *Collection) Shutdown(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Shutdown(ctx) })
}

func (c *Collection) UpdateGauge(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.UpdateGauge(ctx, name, value) })
}

func (c *Collection) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

func (c *Collection) RecordHistogram(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

// RecordInstruction counts one instruction outcome both in total and under
// the instruction's own name.
func (c *Collection) RecordInstruction(ctx context.Context, instruction, name string) error {
	return c.each(func(m Metrics) error {
		if err := m.IncrementCounter(ctx, name, 1); err != nil {
			return err
		}
		return m.IncrementCounter(ctx, InstructionMetric(instruction, name), 1)
	})
}

// Discard drops everything. The pool engine uses it when no backend is set.
type Discard struct{}

func (Discard) Initialize(context.Context) error                       { return nil }
func (Discard) Flush(context.Context) error                            { return nil }
func (Discard) Shutdown(context.Context) error                         { return nil }
func (Discard) UpdateGauge(context.Context, string, float64) error     { return nil }
func (Discard) IncrementCounter(context.Context, string, uint64) error { return nil }
func (Discard) RecordHistogram(context.Context, string, float64) error { return nil }

// Totals is a snapshot of the token-swap activity a LogMetrics has seen.
type Totals struct {
	Instructions      uint64
	Failed            uint64
	Rejected          uint64
	Swaps             uint64
	SourceVolume      uint64
	DestinationVolume uint64
	TradeFees         uint64
	OwnerFees         uint64
	Deposits          uint64
	Withdrawals       uint64
	PoolsInitialized  uint64
	PoolTokenSupply   uint64
	MeanProcessTimeMs float64
}

type observation struct {
	count uint64
	sum   float64
}

// LogMetrics keeps running totals in memory and reports them through slog
// on Flush.
type LogMetrics struct {
	logger *slog.Logger

	mu         sync.RWMutex
	gauges     map[string]float64
	counters   map[string]uint64
	histograms map[string]observation
}

// NewLogMetrics creates a LogMetrics. A nil logger means slog.Default().
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{
		logger:     logger,
		gauges:     make(map[string]float64),
		counters:   make(map[string]uint64),
		histograms: make(map[string]observation),
	}
}

func (l *LogMetrics) Initialize(ctx context.Context) error {
	l.logger.Debug("log metrics ready")
	return nil
}

// Flush logs the token-swap totals, then every counter by name.
func (l *LogMetrics) Flush(ctx context.Context) error {
	t := l.Totals()
	l.logger.Info("token swap totals",
		"instructions", t.Instructions,
		"failed", t.Failed,
		"rejected", t.Rejected,
		"swaps", t.Swaps,
		"source_volume", t.SourceVolume,
		"destination_volume", t.DestinationVolume,
		"trade_fees", t.TradeFees,
		"owner_fees", t.OwnerFees,
		"deposits", t.Deposits,
		"withdrawals", t.Withdrawals,
		"pools", t.PoolsInitialized,
		"pool_token_supply", t.PoolTokenSupply,
		"mean_process_time_ms", t.MeanProcessTimeMs,
	)

	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug("counters", "values", l.counters)
	return nil
}

func (l *LogMetrics) Shutdown(ctx context.Context) error {
	return nil
}

func (l *LogMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gauges[name] = value
	return nil
}

func (l *LogMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counters[name] += value
	return nil
}

func (l *LogMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	o := l.histograms[name]
	o.count++
	o.sum += value
	l.histograms[name] = o
	return nil
}

// Counter returns the running total of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

// Gauge returns the last value of a gauge.
func (l *LogMetrics) Gauge(name string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gauges[name]
}

func (l *LogMetrics) Totals() Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t := Totals{
		Instructions:      l.counters[MetricInstructionsReceived],
		Failed:            l.counters[MetricInstructionsFailed],
		Rejected:          l.counters[MetricInstructionsRejected],
		Swaps:             l.counters[MetricSwapsExecuted],
		SourceVolume:      l.counters[MetricSwapSourceAmount],
		DestinationVolume: l.counters[MetricSwapDestinationAmount],
		TradeFees:         l.counters[MetricTradeFeesCollected],
		OwnerFees:         l.counters[MetricOwnerFeesCollected],
		Deposits:          l.counters[MetricDepositsExecuted],
		Withdrawals:       l.counters[MetricWithdrawalsExecuted],
		PoolsInitialized:  l.counters[MetricPoolsInitialized],
		PoolTokenSupply:   uint64(l.gauges[MetricPoolTokenSupply]),
	}
	if o := l.histograms[MetricProcessTimeMilliseconds]; o.count > 0 {
		t.MeanProcessTimeMs = o.sum / float64(o.count)
	}
	return t
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"sqltune/internal/metrics"
)

// BenchmarkResult holds the statistics of repeated timed executions of one
// statement. MedianMS is the sole comparison metric between candidates.
type BenchmarkResult struct {
	OK         bool      `json:"ok"`
	Runs       int       `json:"runs,omitempty"`
	Warmup     int       `json:"warmup,omitempty"`
	ElapsedMS  []float64 `json:"elapsed_ms,omitempty"`
	MedianMS   float64   `json:"median_ms,omitempty"`
	PlanSample string    `json:"plan_sample,omitempty"`
	Error      string    `json:"error,omitempty"`
}

const (
	defaultRuns     = 3
	defaultWarmup   = 1
	defaultTimeoutS = 60
)

// Benchmark executes the statement warmup+runs times, draining the full
// result set each time, and reports client-measured latencies plus one query
// plan sample. Each execution runs under a context deadline, so a runaway
// statement is interrupted instead of merely flagged afterwards.
func (p *Provider) Benchmark(ctx context.Context, query string, runs, warmup, timeoutS int) BenchmarkResult {
	if runs <= 0 {
		runs = defaultRuns
	}
	if warmup < 0 {
		warmup = defaultWarmup
	}
	if timeoutS <= 0 {
		timeoutS = defaultTimeoutS
	}

	planSample := ""
	if plan := p.Explain(query); plan.OK {
		planSample = plan.Plan
	}

	for i := 0; i < warmup; i++ {
		if _, err := p.timedRun(ctx, query, timeoutS); err != nil {
			return BenchmarkResult{Error: fmt.Sprintf("benchmark failed: %v", err)}
		}
	}

	elapsed := make([]float64, 0, runs)
	for i := 0; i < runs; i++ {
		ms, err := p.timedRun(ctx, query, timeoutS)
		if err != nil {
			return BenchmarkResult{Error: fmt.Sprintf("benchmark failed: %v", err)}
		}
		elapsed = append(elapsed, ms)
	}

	median := metrics.Median(elapsed)
	slog.Debug("benchmark complete", "runs", runs, "warmup", warmup, "median_ms", median)

	return BenchmarkResult{
		OK:         true,
		Runs:       runs,
		Warmup:     warmup,
		ElapsedMS:  elapsed,
		MedianMS:   median,
		PlanSample: planSample,
	}
}

// timedRun executes the statement once and returns the client-measured
// elapsed milliseconds. The full result set is drained so the engine cannot
// defer work past the measurement.
func (p *Provider) timedRun(ctx context.Context, query string, timeoutS int) (float64, error) {
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutS)*time.Second)
	defer cancel()

	start := time.Now()

	rows, err := p.db.QueryContext(runCtx, query)
	if err != nil {
		return 0, timeoutErr(err, timeoutS)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, timeoutErr(err, timeoutS)
	}

	return float64(time.Since(start).Microseconds()) / 1000.0, nil
}

func timeoutErr(err error, timeoutS int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %ds", timeoutS)
	}
	return err
}

// RowCountResult is the result of a row count probe
type RowCountResult struct {
	OK        bool    `json:"ok"`
	Name      string  `json:"name,omitempty"`
	Count     int64   `json:"count,omitempty"`
	ElapsedMS float64 `json:"elapsed_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

var relationNameRegex = regexp.MustCompile(`^[a-zA-Z_]\w*(\.[a-zA-Z_]\w*)?$`)

// RowCount counts the rows of one relation. Potentially expensive; not
// exposed to the model, used by the inspect command.
func (p *Provider) RowCount(ctx context.Context, name string, timeoutS int) RowCountResult {
	if !relationNameRegex.MatchString(name) {
		return RowCountResult{Error: fmt.Sprintf("invalid relation name: %s", name)}
	}
	if timeoutS <= 0 {
		timeoutS = defaultTimeoutS
	}

	target := quoteRelation(name)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutS)*time.Second)
	defer cancel()

	start := time.Now()
	var count int64
	if err := p.db.QueryRowContext(runCtx, "SELECT COUNT(*) FROM "+target).Scan(&count); err != nil {
		return RowCountResult{Name: name, Error: fmt.Sprintf("row_count failed: %v", timeoutErr(err, timeoutS))}
	}

	return RowCountResult{
		OK:        true,
		Name:      name,
		Count:     count,
		ElapsedMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func quoteRelation(name string) string {
	if schema, table, qualified := splitRelation(name); qualified {
		return fmt.Sprintf("%q.%q", schema, table)
	}
	return fmt.Sprintf("%q", name)
}

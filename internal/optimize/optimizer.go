// Package optimize orchestrates optimization rounds: each round asks a fresh
// dialogue for one candidate rewrite, benchmarks it through the trusted path
// and ratchets the best result forward.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sqltune/internal/agent"
	"sqltune/internal/runlog"
	"sqltune/internal/sqltext"
	"sqltune/internal/tools"
)

// Benchmarker is the trusted measurement path, never delegated to the model
type Benchmarker interface {
	Benchmark(ctx context.Context, sql string, runs, warmup, timeoutS int) tools.BenchmarkResult
}

// Dialogue is one tool-calling conversation producing a candidate rewrite
type Dialogue interface {
	AddUser(content string)
	Run(ctx context.Context) (string, []agent.Event, error)
}

// Options bound the optimization run
type Options struct {
	MaxRounds     int
	MinImprovePct float64
	Runs          int
	Warmup        int
	TimeoutS      int
}

// Round records the outcome of one optimization round
type Round struct {
	N            int
	FinalText    string
	CandidateSQL string
	Benchmark    tools.BenchmarkResult
	ImprovePct   float64
	Adopted      bool
	Events       []agent.Event
}

// Result is what an optimization run hands back to the caller. BestSQL
// equals the input when no round improved on the baseline.
type Result struct {
	RunID        string
	BestSQL      string
	BestReport   tools.BenchmarkResult
	BaselineMS   float64
	BestMS       float64
	Improved     bool
	StoppedEarly bool
	Rounds       []Round
}

// Optimizer wires the dialogue factory, the trusted benchmarker and the
// optional run log
type Optimizer struct {
	NewDialogue func() Dialogue
	Bench       Benchmarker
	Log         *runlog.Log
	Opts        Options
}

// Run optimizes initialSQL. The baseline benchmark is the one hard
// prerequisite: if it fails, the whole run fails. Candidate failures and
// missing candidates only end or skip rounds, preserving the best seen.
func (o *Optimizer) Run(ctx context.Context, initialSQL string) (*Result, error) {
	res := &Result{
		RunID:   o.Log.StartRun(initialSQL),
		BestSQL: initialSQL,
	}

	baseline := o.Bench.Benchmark(ctx, initialSQL, o.Opts.Runs, o.Opts.Warmup, o.Opts.TimeoutS)
	if !baseline.OK {
		o.Log.RecordEvent(res.RunID, "baseline_failed", baseline.Error)
		return nil, fmt.Errorf("baseline benchmark failed: %s", baseline.Error)
	}

	res.BestReport = baseline
	res.BaselineMS = baseline.MedianMS
	res.BestMS = baseline.MedianMS
	o.Log.RecordLatency(res.RunID, "baseline", baseline.MedianMS, len(baseline.ElapsedMS))
	slog.Info("baseline benchmark", "median_ms", baseline.MedianMS)

	// Reference for the ratchet comparison: the best median seen so far,
	// never the original baseline once a round improves on it
	refMS := baseline.MedianMS

	for n := 1; n <= o.Opts.MaxRounds; n++ {
		round := Round{N: n}

		d := o.NewDialogue()
		o.seed(d, res.BestSQL)

		finalText, events, err := d.Run(ctx)
		round.FinalText = finalText
		round.Events = events
		if err != nil {
			res.Rounds = append(res.Rounds, round)
			o.Log.RecordEvent(res.RunID, "dialogue_failed", err.Error())
			o.finish(res)
			return res, fmt.Errorf("round %d: %w", n, err)
		}
		for _, ev := range events {
			if ev.Kind == agent.EventToolCall {
				o.Log.RecordEvent(res.RunID, string(ev.Kind), ev.Name)
			}
		}

		cand := sqltext.ExtractSQL(finalText)
		if cand == "" {
			res.Rounds = append(res.Rounds, round)
			o.Log.RecordEvent(res.RunID, "no_candidate", "model output contained no SQL")
			slog.Info("no candidate SQL in model output, stopping", "round", n)
			break
		}
		round.CandidateSQL = cand

		bench := o.Bench.Benchmark(ctx, cand, o.Opts.Runs, o.Opts.Warmup, o.Opts.TimeoutS)
		round.Benchmark = bench
		if !bench.OK {
			// Keep the best; the model may try a different approach next round
			res.Rounds = append(res.Rounds, round)
			o.Log.RecordRound(res.RunID, n, cand, 0, 0, false)
			slog.Warn("candidate benchmark failed", "round", n, "error", bench.Error)
			continue
		}
		o.Log.RecordLatency(res.RunID, fmt.Sprintf("round_%d", n), bench.MedianMS, len(bench.ElapsedMS))

		round.ImprovePct = (refMS - bench.MedianMS) / refMS * 100.0
		slog.Info("candidate benchmark",
			"round", n, "median_ms", bench.MedianMS, "improve_pct", round.ImprovePct)

		// Strict improvement only; a tie does not move the ratchet
		if bench.MedianMS < refMS {
			round.Adopted = true
			res.BestSQL = cand
			res.BestReport = bench
			res.BestMS = bench.MedianMS
			res.Improved = true
			refMS = bench.MedianMS
		}

		o.Log.RecordRound(res.RunID, n, cand, bench.MedianMS, round.ImprovePct, round.Adopted)
		res.Rounds = append(res.Rounds, round)

		if round.ImprovePct >= o.Opts.MinImprovePct {
			res.StoppedEarly = true
			slog.Info("improvement threshold reached, stopping",
				"improve_pct", round.ImprovePct, "threshold_pct", o.Opts.MinImprovePct)
			break
		}
	}

	o.finish(res)
	return res, nil
}

func (o *Optimizer) finish(res *Result) {
	o.Log.FinishRun(res.RunID, res.BestSQL, res.BaselineMS, res.BestMS)
}

// seed prepares a fresh dialogue with the optimization task for the current
// best SQL
func (o *Optimizer) seed(d Dialogue, sql string) {
	var task strings.Builder
	task.WriteString("Task: optimize the following SQL for SQLite.\n\n")
	fmt.Fprintf(&task, "Benchmark settings: runs=%d, warmup=%d, timeout_s=%d\n",
		o.Opts.Runs, o.Opts.Warmup, o.Opts.TimeoutS)
	if refs := sqltext.TableRefs(sql); len(refs) > 0 {
		fmt.Fprintf(&task, "Referenced relations: %s\n", strings.Join(refs, ", "))
	}
	task.WriteString("\nSQL:\n```sql\n")
	task.WriteString(sql)
	task.WriteString("\n```")
	d.AddUser(task.String())

	d.AddUser("Before rewriting, verify referenced relations and gather schema using tools. " +
		"Then benchmark the baseline. After rewriting, benchmark again.")
}

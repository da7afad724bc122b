package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sqltune/internal/agent"
	"sqltune/internal/llm"
	"sqltune/internal/optimize"
	"sqltune/internal/runlog"
	"sqltune/internal/tools"
)

func optimizeCmd() *cobra.Command {
	var (
		dbPath    string
		query     string
		queryFile string

		model        string
		baseURL      string
		runs         int
		warmup       int
		timeoutS     int
		maxRounds    int
		minImprove   float64
		maxToolSteps int
		runLog       string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize a SQL query against a SQLite database",
		Long: `Optimize runs up to max-rounds dialogues with the model. Each round the
model may call read-only tools to inspect the database, then proposes one
rewrite; the rewrite is benchmarked locally and adopted only if its median
latency beats the best seen so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags beat the config file, which beat the defaults
			set := cmd.Flags().Changed
			if set("model") {
				cfg.Model = model
			}
			if set("base-url") {
				cfg.BaseURL = baseURL
			}
			if set("runs") {
				cfg.Runs = runs
			}
			if set("warmup") {
				cfg.Warmup = warmup
			}
			if set("timeout") {
				cfg.TimeoutS = timeoutS
			}
			if set("max-rounds") {
				cfg.MaxRounds = maxRounds
			}
			if set("min-improve") {
				cfg.MinImprovePct = minImprove
			}
			if set("max-tool-steps") {
				cfg.MaxToolSteps = maxToolSteps
			}
			if set("runlog") {
				cfg.RunLog = runLog
			}

			sql, err := readQuery(query, queryFile)
			if err != nil {
				return err
			}

			provider, err := tools.Open(dbPath)
			if err != nil {
				return err
			}
			defer provider.Close()

			var log *runlog.Log
			if cfg.RunLog != "" {
				log, err = runlog.Open(cfg.RunLog)
				if err != nil {
					return err
				}
				defer log.Close()
			}

			gateway := llm.New(llm.Config{
				BaseURL:   cfg.BaseURL,
				APIKey:    cfg.APIKey,
				Model:     cfg.Model,
				MaxTokens: cfg.MaxTokens,
			})

			opt := &optimize.Optimizer{
				NewDialogue: func() optimize.Dialogue {
					return agent.New(gateway, provider, agent.SystemPrompt, cfg.MaxToolSteps)
				},
				Bench: provider,
				Log:   log,
				Opts: optimize.Options{
					MaxRounds:     cfg.MaxRounds,
					MinImprovePct: cfg.MinImprovePct,
					Runs:          cfg.Runs,
					Warmup:        cfg.Warmup,
					TimeoutS:      cfg.TimeoutS,
				},
			}

			res, err := opt.Run(cmd.Context(), sql)
			if err != nil {
				return err
			}

			fmt.Println(renderResult(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (required)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "SQL to optimize (default stdin)")
	cmd.Flags().StringVar(&queryFile, "query-file", "", "file containing the SQL to optimize")
	cmd.MarkFlagRequired("db")

	cmd.Flags().StringVar(&model, "model", "", "model name")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible endpoint URL")
	cmd.Flags().IntVar(&runs, "runs", 0, "measured benchmark runs per candidate")
	cmd.Flags().IntVar(&warmup, "warmup", 0, "warmup runs before measuring")
	cmd.Flags().IntVar(&timeoutS, "timeout", 0, "per-execution timeout in seconds")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "maximum optimization rounds")
	cmd.Flags().Float64Var(&minImprove, "min-improve", 0, "improvement percentage that stops the run early")
	cmd.Flags().IntVar(&maxToolSteps, "max-tool-steps", 0, "tool-loop step budget per round")
	cmd.Flags().StringVar(&runLog, "runlog", "", "SQLite file for run telemetry")

	return cmd
}

// readQuery resolves the SQL from --query, --query-file or stdin
func readQuery(query, queryFile string) (string, error) {
	switch {
	case query != "" && queryFile != "":
		return "", fmt.Errorf("--query and --query-file are mutually exclusive")
	case query != "":
		return strings.TrimSpace(query), nil
	case queryFile != "":
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	sql := strings.TrimSpace(string(data))
	if sql == "" {
		return "", fmt.Errorf("no query given: use --query, --query-file or stdin")
	}
	return sql, nil
}

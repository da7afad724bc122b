package tools

import (
	openai "github.com/sashabaranov/go-openai"
)

// Tool names the model may call. Dispatch is a closed set; anything else
// resolves to an unknown-tool result.
const (
	ToolListTables       = "list_tables"
	ToolTableExists      = "table_exists"
	ToolDescribeRelation = "describe_relation"
	ToolExplain          = "explain"
	ToolBenchmark        = "benchmark"
)

// Specs returns the declared tool schemas, presented to the model gateway
// verbatim alongside the transcript.
func Specs() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolListTables,
				Description: "List tables/views in the database catalog (excluding system tables).",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
					"required":   []string{},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolTableExists,
				Description: "Check whether a relation exists in the database catalog.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required": []string{"name"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolDescribeRelation,
				Description: "Get column names and types for a table/view from the catalog.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"sample_cols": map[string]any{"type": "integer", "default": defaultSampleCols},
					},
					"required": []string{"name"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolExplain,
				Description: "Run EXPLAIN QUERY PLAN on a SQL statement and return the plan text.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sql": map[string]any{"type": "string"},
					},
					"required": []string{"sql"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolBenchmark,
				Description: "Benchmark a SQL query by timed execution. IMPORTANT: `sql` must be raw SQL only (no markdown, no backticks, no headings).",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sql":       map[string]any{"type": "string"},
						"runs":      map[string]any{"type": "integer", "default": defaultRuns},
						"warmup":    map[string]any{"type": "integer", "default": defaultWarmup},
						"timeout_s": map[string]any{"type": "integer", "default": defaultTimeoutS},
					},
					"required": []string{"sql"},
				},
			},
		},
	}
}

// Specs implements the dispatcher contract on the provider
func (p *Provider) Specs() []openai.Tool {
	return Specs()
}

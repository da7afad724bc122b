package tools

import (
	"context"
	"fmt"
)

// UnknownToolResult is returned for tool names outside the declared set.
// It is fed back to the model as data so an unrecognized call never aborts
// the dialogue.
type UnknownToolResult struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error"`
	Name  string         `json:"name"`
	Args  map[string]any `json:"args"`
}

// Dispatch routes a tool invocation by name. Arguments arrive as the lenient
// decoding of whatever the model emitted; missing or mistyped values fall
// back to defaults.
func (p *Provider) Dispatch(ctx context.Context, name string, args map[string]any) any {
	switch name {
	case ToolListTables:
		return p.ListTables()
	case ToolTableExists:
		return p.TableExists(argString(args, "name"))
	case ToolDescribeRelation:
		return p.DescribeRelation(argString(args, "name"), argInt(args, "sample_cols", defaultSampleCols))
	case ToolExplain:
		return p.Explain(argString(args, "sql"))
	case ToolBenchmark:
		return p.Benchmark(ctx,
			argString(args, "sql"),
			argInt(args, "runs", defaultRuns),
			argInt(args, "warmup", defaultWarmup),
			argInt(args, "timeout_s", defaultTimeoutS),
		)
	default:
		return UnknownToolResult{
			Error: fmt.Sprintf("Unknown tool: %s", name),
			Name:  name,
			Args:  args,
		}
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argInt reads an integer argument; JSON numbers decode as float64
func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// Package agent runs the turn-by-turn dialogue between the model and the
// tool dispatcher. The transcript is the single source of truth for
// conversation state; response messages are appended verbatim so the backend
// can correlate prior tool calls with their results on later turns.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Gateway sends a transcript plus tool schemas to the model backend
type Gateway interface {
	Send(ctx context.Context, transcript []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// ToolDispatcher executes tool invocations by name
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) any
	Specs() []openai.Tool
}

// EventKind tags entries of the dialogue event log
type EventKind string

const (
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
)

// Event is one observable step of the dialogue, recorded for the caller
type Event struct {
	Kind   EventKind
	Name   string
	Args   map[string]any
	Result any
}

// StoppedMaxSteps is returned as the final text when the step budget runs
// out without a terminal text-only turn. Non-empty so callers can tell
// exhaustion apart from a model that returned nothing.
const StoppedMaxSteps = "Stopped: reached max tool steps."

const defaultMaxSteps = 35

// Agent owns one dialogue transcript
type Agent struct {
	gateway    Gateway
	tools      ToolDispatcher
	maxSteps   int
	transcript []openai.ChatCompletionMessage
}

// New creates an agent seeded with the system prompt. maxSteps <= 0 selects
// the default budget.
func New(gateway Gateway, tools ToolDispatcher, systemPrompt string, maxSteps int) *Agent {
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Agent{
		gateway:  gateway,
		tools:    tools,
		maxSteps: maxSteps,
		transcript: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
	}
}

// AddUser appends a user message to the transcript
func (a *Agent) AddUser(content string) {
	a.transcript = append(a.transcript, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
}

// Transcript returns a copy of the current transcript
func (a *Agent) Transcript() []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// Run executes the model/tool loop until the model returns a text-only turn
// or the step budget is exhausted. Every tool call in a turn is dispatched,
// in order, and answered with exactly one tool message carrying the same
// call ID before the next gateway call. Gateway faults are hard failures;
// tool faults are data.
func (a *Agent) Run(ctx context.Context) (string, []Event, error) {
	var events []Event

	for step := 0; step < a.maxSteps; step++ {
		msg, err := a.gateway.Send(ctx, a.transcript, a.tools.Specs())
		if err != nil {
			return "", events, fmt.Errorf("model gateway: %w", err)
		}

		// Verbatim append, never rebuilt from a text projection
		a.transcript = append(a.transcript, msg)

		if len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				args := decodeArgs(tc.Function.Name, tc.Function.Arguments)

				events = append(events, Event{Kind: EventToolCall, Name: tc.Function.Name, Args: args})
				result := a.tools.Dispatch(ctx, tc.Function.Name, args)
				events = append(events, Event{Kind: EventToolResult, Name: tc.Function.Name, Result: result})

				a.transcript = append(a.transcript, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    encodeResult(result),
					ToolCallID: tc.ID,
				})
			}
			// Text alongside tool calls is not terminal
			continue
		}

		return finalText(msg), events, nil
	}

	return StoppedMaxSteps, events, nil
}

// decodeArgs parses tool arguments leniently: malformed JSON yields an empty
// argument map rather than aborting the turn. Decode failures are logged so
// they can be told apart from a deliberate empty-argument call.
func decodeArgs(name, raw string) map[string]any {
	args := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		slog.Warn("malformed tool arguments, treating as empty", "tool", name, "error", err)
		return map[string]any{}
	}
	return args
}

func encodeResult(result any) string {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":"unencodable tool result: %v"}`, err)
	}
	return string(payload)
}

// finalText concatenates the non-empty text fragments of a terminal turn
func finalText(msg openai.ChatCompletionMessage) string {
	var parts []string
	if strings.TrimSpace(msg.Content) != "" {
		parts = append(parts, strings.TrimSpace(msg.Content))
	}
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && strings.TrimSpace(part.Text) != "" {
			parts = append(parts, strings.TrimSpace(part.Text))
		}
	}
	return strings.Join(parts, "\n")
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// scriptedGateway returns canned responses in order and records the
// transcript it was handed on every call
type scriptedGateway struct {
	responses   []openai.ChatCompletionMessage
	transcripts [][]openai.ChatCompletionMessage
	err         error
}

func (g *scriptedGateway) Send(_ context.Context, transcript []openai.ChatCompletionMessage, _ []openai.Tool) (openai.ChatCompletionMessage, error) {
	snapshot := make([]openai.ChatCompletionMessage, len(transcript))
	copy(snapshot, transcript)
	g.transcripts = append(g.transcripts, snapshot)

	if g.err != nil {
		return openai.ChatCompletionMessage{}, g.err
	}

	call := len(g.transcripts) - 1
	if call >= len(g.responses) {
		// Keep emitting the last scripted response
		call = len(g.responses) - 1
	}
	return g.responses[call], nil
}

// recordingDispatcher returns ok-shaped canned results and records calls
type recordingDispatcher struct {
	calls []struct {
		name string
		args map[string]any
	}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, name string, args map[string]any) any {
	d.calls = append(d.calls, struct {
		name string
		args map[string]any
	}{name, args})

	if name == "explode" {
		return map[string]any{"ok": false, "error": fmt.Sprintf("Unknown tool: %s", name)}
	}
	return map[string]any{"ok": true, "tool": name}
}

func (d *recordingDispatcher) Specs() []openai.Tool { return nil }

func toolCallMsg(calls ...openai.ToolCall) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls}
}

func textMsg(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}
}

func call(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestRunTextOnlyTurnIsTerminal(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionMessage{textMsg("  all done  ")}}
	a := New(gw, &recordingDispatcher{}, "system", 10)
	a.AddUser("task")

	final, events, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != "all done" {
		t.Errorf("final = %q, want %q", final, "all done")
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}

	// system + user + verbatim assistant message
	tr := a.Transcript()
	if len(tr) != 3 {
		t.Fatalf("transcript has %d messages, want 3", len(tr))
	}
	if tr[0].Role != openai.ChatMessageRoleSystem || tr[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("unexpected transcript roles: %v %v", tr[0].Role, tr[2].Role)
	}
}

func TestRunToolCallsArePairedBeforeNextTurn(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionMessage{
		toolCallMsg(
			call("call_1", "table_exists", `{"name":"orders"}`),
			call("call_2", "explain", `{"sql":"SELECT 1"}`),
		),
		textMsg("done"),
	}}
	disp := &recordingDispatcher{}
	a := New(gw, disp, "system", 10)
	a.AddUser("task")

	final, events, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != "done" {
		t.Errorf("final = %q", final)
	}

	// call/result event pairs, in dispatch order
	wantEvents := []struct {
		kind EventKind
		name string
	}{
		{EventToolCall, "table_exists"},
		{EventToolResult, "table_exists"},
		{EventToolCall, "explain"},
		{EventToolResult, "explain"},
	}
	if len(events) != len(wantEvents) {
		t.Fatalf("got %d events, want %d", len(events), len(wantEvents))
	}
	for i, want := range wantEvents {
		if events[i].Kind != want.kind || events[i].Name != want.name {
			t.Errorf("event %d = %s/%s, want %s/%s", i, events[i].Kind, events[i].Name, want.kind, want.name)
		}
	}

	// Second gateway call must see: system, user, assistant(tool calls),
	// then exactly one tool message per call ID, in order
	if len(gw.transcripts) != 2 {
		t.Fatalf("gateway called %d times, want 2", len(gw.transcripts))
	}
	second := gw.transcripts[1]
	if len(second) != 5 {
		t.Fatalf("second transcript has %d messages, want 5", len(second))
	}
	if second[3].Role != openai.ChatMessageRoleTool || second[3].ToolCallID != "call_1" {
		t.Errorf("message 3 = %s/%s, want tool/call_1", second[3].Role, second[3].ToolCallID)
	}
	if second[4].Role != openai.ChatMessageRoleTool || second[4].ToolCallID != "call_2" {
		t.Errorf("message 4 = %s/%s, want tool/call_2", second[4].Role, second[4].ToolCallID)
	}
	if !strings.Contains(second[3].Content, `"ok":true`) {
		t.Errorf("tool result payload not serialized: %q", second[3].Content)
	}
}

func TestRunTextAlongsideToolCallsIsNotTerminal(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionMessage{
		{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   "let me check that table",
			ToolCalls: []openai.ToolCall{call("call_1", "list_tables", "{}")},
		},
		textMsg("final answer"),
	}}
	a := New(gw, &recordingDispatcher{}, "system", 10)
	a.AddUser("task")

	final, _, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != "final answer" {
		t.Errorf("final = %q, want the second turn's text", final)
	}
	if len(gw.transcripts) != 2 {
		t.Errorf("gateway called %d times, want 2", len(gw.transcripts))
	}
}

func TestRunFailedToolResultDoesNotAbort(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionMessage{
		toolCallMsg(call("call_1", "explode", "{}")),
		textMsg("recovered"),
	}}
	a := New(gw, &recordingDispatcher{}, "system", 10)
	a.AddUser("task")

	final, events, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != "recovered" {
		t.Errorf("final = %q", final)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	// The failure travels back to the model as data
	second := gw.transcripts[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, `"ok":false`) || !strings.Contains(last.Content, "explode") {
		t.Errorf("failed tool result not surfaced as data: %q", last.Content)
	}
}

func TestRunBudgetExhaustionReturnsSentinel(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionMessage{
		toolCallMsg(call("call_1", "list_tables", "{}")),
	}}
	a := New(gw, &recordingDispatcher{}, "system", 4)
	a.AddUser("task")

	final, events, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != StoppedMaxSteps {
		t.Errorf("final = %q, want sentinel", final)
	}
	if final == "" {
		t.Error("sentinel must not be empty")
	}
	if len(gw.transcripts) != 4 {
		t.Errorf("gateway called %d times, want exactly the step budget", len(gw.transcripts))
	}
	if len(events) != 8 {
		t.Errorf("got %d events, want 8", len(events))
	}
}

func TestRunLenientArgumentDecoding(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionMessage{
		toolCallMsg(
			call("call_1", "table_exists", `{not json`),
			call("call_2", "list_tables", ""),
		),
		textMsg("done"),
	}}
	disp := &recordingDispatcher{}
	a := New(gw, disp, "system", 10)
	a.AddUser("task")

	if _, _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(disp.calls) != 2 {
		t.Fatalf("dispatched %d calls, want 2", len(disp.calls))
	}
	for i, c := range disp.calls {
		if c.args == nil || len(c.args) != 0 {
			t.Errorf("call %d args = %v, want empty map", i, c.args)
		}
	}
}

func TestRunGatewayFaultPropagates(t *testing.T) {
	gw := &scriptedGateway{err: errors.New("backend unreachable")}
	a := New(gw, &recordingDispatcher{}, "system", 10)
	a.AddUser("task")

	_, _, err := a.Run(context.Background())
	if err == nil {
		t.Fatal("expected a hard failure")
	}
	if !strings.Contains(err.Error(), "backend unreachable") {
		t.Errorf("error lost its cause: %v", err)
	}
}

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
)

// scriptedChatClient plays back queued responses and records every request.
type scriptedChatClient struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionResponse
	err       error
	block     chan struct{}
	requests  []openai.ChatCompletionRequest
}

func (c *scriptedChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	if len(c.responses) == 0 {
		return textResponse("ok"), nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedChatClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *scriptedChatClient) request(i int) openai.ChatCompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[i]
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func toolResponse(name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       "call_1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: name, Arguments: args},
				}},
			}},
		},
	}
}

func newTestEngine(t *testing.T, client chatClient, callLogs calls.Store) *Engine {
	t.Helper()
	d, _, _ := newTestDispatcher(t)
	return NewEngine(client, d, callLogs, "gpt-4o-mini", nil, nil).WithNow(fixedClock)
}

func TestEngine_PlainReply(t *testing.T) {
	client := &scriptedChatClient{responses: []openai.ChatCompletionResponse{
		textResponse("Hello James! What service do you need?"),
	}}
	engine := newTestEngine(t, client, nil)

	result := engine.ProcessTurn(context.Background(), TurnRequest{
		CallID:      "CA100",
		CallerPhone: testCallerPhone,
		Utterance:   "Hi, my name is James",
	})

	if result.Reply != "Hello James! What service do you need?" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if result.EndCall {
		t.Fatal("expected call to continue")
	}

	transcript := engine.Transcript("CA100")
	if !strings.Contains(transcript, "Caller: Hi, my name is James") {
		t.Fatalf("caller turn missing from transcript: %q", transcript)
	}
	if !strings.Contains(transcript, "Sarah: Hello James!") {
		t.Fatalf("agent turn missing from transcript: %q", transcript)
	}

	// First request carries system prompt, tool schema, and the utterance.
	req := client.request(0)
	if len(req.Tools) != len(chatTools) {
		t.Fatalf("expected tool schema on first call, got %d tools", len(req.Tools))
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected system message first, got %s", req.Messages[0].Role)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != openai.ChatMessageRoleUser || last.Content != "Hi, my name is James" {
		t.Fatalf("utterance not last message: %+v", last)
	}
}

func TestEngine_EmptyUtterance(t *testing.T) {
	client := &scriptedChatClient{}
	engine := newTestEngine(t, client, nil)

	result := engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA101", Utterance: "   "})

	if result.Reply != ReplyRepeat {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if result.EndCall {
		t.Fatal("empty utterance must not end the call")
	}
	if client.requestCount() != 0 {
		t.Fatalf("model called %d times for empty utterance", client.requestCount())
	}
	if engine.Transcript("CA101") != "" {
		t.Fatalf("empty utterance mutated history: %q", engine.Transcript("CA101"))
	}
}

func TestEngine_ToolLoop(t *testing.T) {
	client := &scriptedChatClient{responses: []openai.ChatCompletionResponse{
		toolResponse(toolCheckAvailability, `{"date":"`+openDate+`"}`),
		textResponse("We have 8am in the morning free, does that work?"),
	}}
	engine := newTestEngine(t, client, nil)

	result := engine.ProcessTurn(context.Background(), TurnRequest{
		CallID:      "CA102",
		CallerPhone: testCallerPhone,
		Utterance:   "What times are open on Monday?",
	})

	if result.Reply != "We have 8am in the morning free, does that work?" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if client.requestCount() != 2 {
		t.Fatalf("expected two model calls, got %d", client.requestCount())
	}

	// The second request must include the assistant tool call and the tool
	// result keyed by the call ID.
	second := client.request(1)
	if len(second.Tools) != 0 {
		t.Fatalf("second call should not re-send the tool schema")
	}
	var toolMsg *openai.ChatCompletionMessage
	for i := range second.Messages {
		if second.Messages[i].Role == openai.ChatMessageRoleTool {
			toolMsg = &second.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatal("tool result missing from second request")
	}
	if toolMsg.ToolCallID != "call_1" {
		t.Fatalf("tool result has wrong call id: %q", toolMsg.ToolCallID)
	}
	if !strings.Contains(toolMsg.Content, "Available times on "+openDate) {
		t.Fatalf("unexpected tool result: %q", toolMsg.Content)
	}
}

func TestEngine_ModelError(t *testing.T) {
	client := &scriptedChatClient{err: errors.New("rate limited")}
	engine := newTestEngine(t, client, nil)

	result := engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA103", Utterance: "hello"})

	if result.Reply != ReplyFailure {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if engine.Transcript("CA103") != "" {
		t.Fatalf("failed turn mutated history: %q", engine.Transcript("CA103"))
	}
}

func TestEngine_Timeout_DiscardsLateResult(t *testing.T) {
	block := make(chan struct{})
	client := &scriptedChatClient{
		block:     block,
		responses: []openai.ChatCompletionResponse{textResponse("late answer")},
	}
	engine := newTestEngine(t, client, nil).WithTurnTimeout(30 * time.Millisecond)

	result := engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA104", Utterance: "hello"})

	if result.Reply != ReplyTimeout {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}

	// Let the in-flight work finish; its result must be dropped, not
	// appended to history or retried.
	close(block)
	time.Sleep(20 * time.Millisecond)
	if engine.Transcript("CA104") != "" {
		t.Fatalf("late result mutated history: %q", engine.Transcript("CA104"))
	}
	if client.requestCount() != 1 {
		t.Fatalf("timed-out call was retried: %d requests", client.requestCount())
	}
}

func TestEngine_ClosingPhraseEndsCallAndPurges(t *testing.T) {
	client := &scriptedChatClient{responses: []openai.ChatCompletionResponse{
		textResponse("Thank you for calling, have a lovely day!"),
	}}
	engine := newTestEngine(t, client, nil).WithPurgeDelay(20 * time.Millisecond)

	result := engine.ProcessTurn(context.Background(), TurnRequest{
		CallID:    "CA105",
		Utterance: "No thanks, goodbye",
	})

	if !result.EndCall {
		t.Fatal("closing phrase should end the call")
	}
	if engine.Transcript("CA105") == "" {
		t.Fatal("history should survive until the purge delay elapses")
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for engine.Transcript("CA105") != "" {
		if time.Now().After(deadline) {
			t.Fatal("history was not purged after the delay")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEngine_AccumulatesHistoryAcrossTurns(t *testing.T) {
	client := &scriptedChatClient{responses: []openai.ChatCompletionResponse{
		textResponse("Hi James!"),
		textResponse("A cleaning, lovely."),
	}}
	engine := newTestEngine(t, client, nil)

	engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA106", Utterance: "I'm James"})
	engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA106", Utterance: "I need a cleaning"})

	// Second request replays both turns of history before the new utterance.
	second := client.request(1)
	var contents []string
	for _, m := range second.Messages {
		contents = append(contents, m.Role+"|"+m.Content)
	}
	joined := strings.Join(contents, "\n")
	for _, want := range []string{"user|I'm James", "assistant|Hi James!", "user|I need a cleaning"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("second request missing %q:\n%s", want, joined)
		}
	}
}

func TestEngine_SyncsTranscriptToCallLog(t *testing.T) {
	store := calls.NewInMemoryStore()
	if err := store.Begin(context.Background(), "CA107", testCallerPhone, calls.DirectionInbound, calls.StatusInProgress); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}

	client := &scriptedChatClient{responses: []openai.ChatCompletionResponse{textResponse("Hello!")}}
	engine := newTestEngine(t, client, store)

	engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA107", Utterance: "hi there"})

	logs, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 call log, got %d", len(logs))
	}
	if !strings.Contains(logs[0].Transcript, "Caller: hi there") || !strings.Contains(logs[0].Transcript, "Sarah: Hello!") {
		t.Fatalf("transcript not synced: %q", logs[0].Transcript)
	}
}

func TestEngine_TranscriptSyncFailureDoesNotFailTurn(t *testing.T) {
	// No Begin: UpdateTranscript will report a missing row.
	store := calls.NewInMemoryStore()

	client := &scriptedChatClient{responses: []openai.ChatCompletionResponse{textResponse("Hello!")}}
	engine := newTestEngine(t, client, store)

	result := engine.ProcessTurn(context.Background(), TurnRequest{CallID: "CA108", Utterance: "hi"})
	if result.Reply != "Hello!" {
		t.Fatalf("turn failed on transcript sync: %q", result.Reply)
	}
}

func TestWantsToEndCall(t *testing.T) {
	cases := []struct {
		utterance string
		want      bool
	}{
		{"No thanks, goodbye", true},
		{"That's all for today", true},
		{"BYE", true},
		{"I want to book a cleaning", false},
		{"what about bayside", false},
	}
	for _, tc := range cases {
		if got := wantsToEndCall(tc.utterance); got != tc.want {
			t.Fatalf("wantsToEndCall(%q) = %v, want %v", tc.utterance, got, tc.want)
		}
	}
}

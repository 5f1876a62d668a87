package conversation

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/internal/observability/metrics"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

var conversationTracer = otel.Tracer("clinic.internal.conversation")

const (
	defaultTurnTimeout = 12 * time.Second
	defaultPurgeDelay  = time.Minute
)

// Fixed utterances spoken when a turn cannot produce a model reply. Every
// failure path must still return speakable text; a caller never hears
// silence or an error code.
const (
	ReplyRepeat       = "I'm sorry, I didn't catch that. Could you please repeat?"
	ReplyTimeout      = "I'm sorry, I'm having a brief connection issue. What service are you interested in?"
	ReplyFailure      = "I'm sorry, I'm having trouble processing your request. Could you please repeat that?"
	replyNoContent    = "I'm sorry, I didn't catch that. How can I help you?"
	replyAnythingElse = "Is there anything else I can help you with?"
)

// endCallPhrases close the call when the caller's utterance contains one.
var endCallPhrases = []string{
	"goodbye", "bye", "thank you bye", "thanks bye",
	"that's all", "that is all", "nothing else", "no thanks",
	"have a good day", "end call",
}

func wantsToEndCall(utterance string) bool {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	for _, phrase := range endCallPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Engine runs one conversation turn at a time per call: it feeds the caller's
// utterance and accumulated history to the model, executes any tool calls the
// model requests, and returns the text to speak back.
type Engine struct {
	client      chatClient
	model       string
	dispatcher  *Dispatcher
	callLogs    calls.Store
	history     *historyStore
	logger      *logging.Logger
	metrics     *metrics.VoiceMetrics
	turnTimeout time.Duration
	now         func() time.Time
}

// NewEngine constructs a conversation engine.
func NewEngine(client chatClient, dispatcher *Dispatcher, callLogs calls.Store, model string, logger *logging.Logger, voiceMetrics *metrics.VoiceMetrics) *Engine {
	if client == nil {
		panic("conversation: chat client required")
	}
	if dispatcher == nil {
		panic("conversation: dispatcher required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		client:      client,
		model:       model,
		dispatcher:  dispatcher,
		callLogs:    callLogs,
		history:     newHistoryStore(defaultPurgeDelay),
		logger:      logger,
		metrics:     voiceMetrics,
		turnTimeout: defaultTurnTimeout,
		now:         time.Now,
	}
}

// WithTurnTimeout overrides the ceiling on model work per turn.
func (e *Engine) WithTurnTimeout(d time.Duration) *Engine {
	if d > 0 {
		e.turnTimeout = d
	}
	return e
}

// WithPurgeDelay overrides how long a closed call's history lingers.
func (e *Engine) WithPurgeDelay(d time.Duration) *Engine {
	e.history = newHistoryStore(d)
	return e
}

// WithNow overrides the clock used for the system prompt. Tests only.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// ProcessTurn handles one caller utterance and returns what to speak back.
// Turns for the same call are serialized; the session mutex is held across
// the model round-trips so history updates never interleave.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) TurnResult {
	ctx, span := conversationTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.call_id", req.CallID))

	start := e.now()

	utterance := strings.TrimSpace(req.Utterance)
	if utterance == "" {
		e.metrics.ObserveTurn("empty", time.Since(start).Seconds())
		return TurnResult{Reply: ReplyRepeat}
	}

	sess := e.history.checkout(req.CallID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	prior := sess.snapshot()

	type outcome struct {
		reply string
		err   error
	}
	done := make(chan outcome, 1)

	// The worker gets a context detached from the request so a slow model
	// call or an in-flight booking runs to completion even after the turn
	// gives up on it. The buffered channel lets a late result be dropped
	// without leaking the goroutine; it is never retried.
	workCtx := context.WithoutCancel(ctx)
	go func() {
		reply, err := e.respond(workCtx, prior, utterance, req.CallerPhone)
		done <- outcome{reply: reply, err: err}
	}()

	timer := time.NewTimer(e.turnTimeout)
	defer timer.Stop()

	var reply string
	select {
	case out := <-done:
		if out.err != nil {
			span.RecordError(out.err)
			e.logger.Error("turn failed", "call_id", req.CallID, "error", out.err)
			e.metrics.ObserveTurn("error", time.Since(start).Seconds())
			return TurnResult{Reply: ReplyFailure}
		}
		reply = out.reply
	case <-timer.C:
		e.logger.Warn("turn timed out", "call_id", req.CallID, "timeout", e.turnTimeout)
		e.metrics.ObserveTurn("timeout", time.Since(start).Seconds())
		return TurnResult{Reply: ReplyTimeout}
	}

	sess.append(RoleUser, utterance)
	sess.append(RoleAssistant, reply)
	if sess.state == StateAwaitingFirstInput {
		sess.state = StateInConversation
	}

	end := wantsToEndCall(utterance)
	if end {
		sess.state = StateClosed
		e.history.schedulePurge(req.CallID)
	}

	e.syncTranscript(ctx, req.CallID, sess.snapshot())

	outcomeLabel := "ok"
	if end {
		outcomeLabel = "ok_end"
	}
	e.metrics.ObserveTurn(outcomeLabel, time.Since(start).Seconds())
	return TurnResult{Reply: reply, EndCall: end}
}

// Transcript renders the current transcript for a call, or "" if the call's
// history is gone.
func (e *Engine) Transcript(callID string) string {
	sess, ok := e.history.peek(callID)
	if !ok {
		return ""
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return FormatTranscript(sess.turns)
}

// EndSession schedules the call's history for purge without waiting for a
// closing phrase. Used when Twilio reports the call hung up.
func (e *Engine) EndSession(callID string) {
	sess, ok := e.history.peek(callID)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.state = StateClosed
	sess.mu.Unlock()
	e.history.schedulePurge(callID)
}

// respond runs the model round-trips for one turn: an initial completion
// with the tool schema, then, if tools were called, a second completion to
// phrase the results.
func (e *Engine) respond(ctx context.Context, prior []Turn, utterance, callerPhone string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(prior)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(callerPhone, e.now()),
	})
	for _, t := range prior {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: utterance})

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Messages:    msgs,
		Tools:       chatTools,
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return replyNoContent, nil
	}

	assistant := resp.Choices[0].Message
	if len(assistant.ToolCalls) == 0 {
		if strings.TrimSpace(assistant.Content) == "" {
			return replyNoContent, nil
		}
		return assistant.Content, nil
	}

	msgs = append(msgs, assistant)
	for _, tc := range assistant.ToolCalls {
		result := e.dispatcher.Execute(ctx, tc.Function.Name, tc.Function.Arguments, callerPhone)
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			ToolCallID: tc.ID,
		})
	}

	final, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	if len(final.Choices) == 0 || strings.TrimSpace(final.Choices[0].Message.Content) == "" {
		return replyAnythingElse, nil
	}
	return final.Choices[0].Message.Content, nil
}

// syncTranscript pushes the running transcript onto the call log. Losing a
// transcript update never fails a turn; the call log row may not exist yet
// when the status webhook races the first turn.
func (e *Engine) syncTranscript(ctx context.Context, callID string, turns []Turn) {
	if e.callLogs == nil {
		return
	}
	if err := e.callLogs.UpdateTranscript(ctx, callID, FormatTranscript(turns)); err != nil {
		e.logger.Debug("transcript sync skipped", "call_id", callID, "error", err)
	}
}

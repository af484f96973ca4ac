package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisal-ai/wisal/internal/memory"
	"github.com/wisal-ai/wisal/internal/suggest"
	"github.com/wisal-ai/wisal/pkg/types"
)

// stubReplies is a ReplyGenerator returning a fixed reply or error, capturing
// the prompts it was called with.
type stubReplies struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubReplies) GenerateReply(_ context.Context, systemPrompt, userMessage string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userMessage
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestAgent(replies *stubReplies) *Agent {
	return New(memory.New(10, 10), suggest.NewDefaultEngine(), replies)
}

// TestAgent_ProcessMessage_FirstInteraction verifies the greeting path and
// that the turn is recorded before reply generation.
func TestAgent_ProcessMessage_FirstInteraction(t *testing.T) {
	replies := &stubReplies{reply: "Hello! Happy to help."}
	a := newTestAgent(replies)

	resp := a.ProcessMessage(context.Background(), "t1", "hi, I need help with my civil id")

	assert.Equal(t, "Hello! Happy to help.", resp.Reply)
	assert.Equal(t, types.LanguageEnglish, resp.DetectedLanguage)
	require.Len(t, resp.Suggestions, 1)
	assert.Contains(t, resp.Suggestions[0], "How can I help you today?")

	// Context snapshot reflects the recorded turn.
	require.Len(t, resp.Context.Turns, 1)
	assert.False(t, resp.Context.IsFirstInteraction)
	assert.Contains(t, resp.Context.AllTopicsDiscussed, "civil_id")

	// The very first message is prompted with the new-conversation block.
	assert.Contains(t, replies.lastSystem, "## CONVERSATION CONTEXT")
	assert.Contains(t, replies.lastSystem, "new conversation")
	assert.Equal(t, "hi, I need help with my civil id", replies.lastUser)
}

// TestAgent_ProcessMessage_ReturningConversation verifies context-aware
// suggestions on subsequent turns.
func TestAgent_ProcessMessage_ReturningConversation(t *testing.T) {
	replies := &stubReplies{reply: "Sure."}
	a := newTestAgent(replies)

	a.ProcessMessage(context.Background(), "t1", "hello")
	resp := a.ProcessMessage(context.Background(), "t1", "I want to renew my civil id card")

	assert.LessOrEqual(t, len(resp.Suggestions), 2)
	assert.NotEmpty(t, resp.Suggestions)
	for _, s := range resp.Suggestions {
		assert.NotContains(t, s, "How can I help you today?", "greeting only applies to the first message")
	}
	assert.Contains(t, replies.lastSystem, "**Conversation History:**")
}

// TestAgent_ProcessMessage_ArabicDetection verifies the language switch.
func TestAgent_ProcessMessage_ArabicDetection(t *testing.T) {
	replies := &stubReplies{reply: "أهلاً"}
	a := newTestAgent(replies)

	resp := a.ProcessMessage(context.Background(), "t1", "أبي أجدد البطاقة المدنية")

	assert.Equal(t, types.LanguageArabic, resp.DetectedLanguage)
	require.Len(t, resp.Suggestions, 1)
	assert.Contains(t, resp.Suggestions[0], "كيف أقدر أساعدك")
}

// TestAgent_ProcessMessage_ModelFailureFallsBack verifies the canned reply
// on model failure; the turn is still recorded.
func TestAgent_ProcessMessage_ModelFailureFallsBack(t *testing.T) {
	replies := &stubReplies{err: errors.New("endpoint down")}
	a := newTestAgent(replies)

	resp := a.ProcessMessage(context.Background(), "t1", "help with my appointment")

	assert.Equal(t, fallbackReplyEN, resp.Reply)
	require.Len(t, resp.Context.Turns, 1)
	assert.Equal(t, 1, a.ThreadCount())
}

// TestAgent_ProcessMessage_QueuesPendingSuggestions verifies that returned
// suggestions are also stashed on the context for later delivery.
func TestAgent_ProcessMessage_QueuesPendingSuggestions(t *testing.T) {
	replies := &stubReplies{reply: "ok"}
	mem := memory.New(10, 10)
	a := New(mem, suggest.NewDefaultEngine(), replies)

	resp := a.ProcessMessage(context.Background(), "t1", "hello there")

	ctx := mem.GetContext("t1")
	assert.Equal(t, resp.Suggestions, ctx.PendingSuggestions)
}

// TestAgent_HandleToolResult verifies tool-derived suggestions and their
// recording on the thread.
func TestAgent_HandleToolResult(t *testing.T) {
	replies := &stubReplies{reply: "ok"}
	mem := memory.New(10, 10)
	a := New(mem, suggest.NewDefaultEngine(), replies)

	got := a.HandleToolResult("t1", suggest.ToolAppointmentSlots, "3 slots available", types.LanguageEnglish)

	require.Len(t, got, 1)
	assert.Contains(t, got[0], "book one of these slots")

	ctx := mem.GetContext("t1")
	assert.Equal(t, []string{suggest.ToolAppointmentSlots}, ctx.AllToolsUsed)
	assert.Equal(t, got, ctx.PendingSuggestions)
}

// TestDetectLanguage verifies the codepoint-scan classifier.
func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, types.LanguageEnglish, DetectLanguage("hello world"))
	assert.Equal(t, types.LanguageArabic, DetectLanguage("مرحبا"))
	assert.Equal(t, types.LanguageArabic, DetectLanguage("I need توقيع"))
	assert.Equal(t, types.LanguageEnglish, DetectLanguage(""))
}

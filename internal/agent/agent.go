// Package agent wires the conversation store, suggestion engine and reply
// client into the per-message pipeline: detect language and topics, record
// the turn, generate a reply with the conversation context injected into the
// system prompt, and attach proactive suggestions.
package agent

import (
	"context"
	"log"
	"strings"

	"github.com/wisal-ai/wisal/internal/llm"
	"github.com/wisal-ai/wisal/internal/memory"
	"github.com/wisal-ai/wisal/internal/suggest"
	"github.com/wisal-ai/wisal/pkg/types"
)

// basePrompt is composed with the per-thread conversation context block for
// every reply-generation call.
const basePrompt = `You are a helpful assistant for civil services (Civil ID, digital signatures, appointments).

## GUIDELINES:
- Be concise and accurate.
- Ask for clarification when needed.
- Answer in the user's language.
`

// Fallback replies used when the model endpoint is unavailable. The pipeline
// never fails a turn because of the model.
const (
	fallbackReplyEN = "I'm having trouble generating a full answer right now, but I've noted your request and can still help with Civil ID, digital signature and appointment services."
	fallbackReplyAR = "واجهت مشكلة بصياغة رد كامل حالياً، بس سجلت طلبك وأقدر أساعدك بخدمات البطاقة المدنية والتوقيع الرقمي والمواعيد."
)

// Agent processes inbound user messages for the demo chat server.
type Agent struct {
	memory  *memory.Memory
	engine  *suggest.Engine
	replies llm.ReplyGenerator
}

// Response is the result of processing one user message.
type Response struct {
	Reply            string                     `json:"reply"`             // Assistant reply text
	Suggestions      []string                   `json:"suggestions"`       // Proactive follow-up suggestions, max 2 (or 1 greeting)
	DetectedLanguage string                     `json:"detected_language"` // Language code detected for the message
	Context          *types.ConversationContext `json:"context"`           // Snapshot of the updated conversation context
}

// New creates an agent over the given store, engine and reply generator.
func New(mem *memory.Memory, engine *suggest.Engine, replies llm.ReplyGenerator) *Agent {
	return &Agent{
		memory:  mem,
		engine:  engine,
		replies: replies,
	}
}

// ProcessMessage runs the full per-turn pipeline for one inbound message and
// returns the reply, suggestions and a context snapshot. It never returns an
// error: model failures degrade to a canned reply.
func (a *Agent) ProcessMessage(ctx context.Context, threadID, message string) *Response {
	language := DetectLanguage(message)
	topics := a.engine.DetectTopics(message)

	// The greeting decision and the prompt block need the pre-turn state:
	// recording the turn clears the first-interaction flag, and the digest
	// describes the exchanges before the current message.
	preTurn := a.memory.GetContext(threadID)
	wasFirst := preTurn.IsFirstInteraction

	convo := a.memory.RecordTurn(threadID, memory.TurnInput{
		UserMessage:      message,
		DetectedLanguage: language,
		TopicsDiscussed:  topics,
	})

	systemPrompt := basePrompt + "\n" + preTurn.PromptContext()

	reply, err := a.replies.GenerateReply(ctx, systemPrompt, message)
	if err != nil {
		log.Printf("agent: reply generation failed for thread %s: %v", threadID, err)
		reply = fallbackReply(language)
	}

	var suggestions []string
	if greeting, ok := a.engine.Greeting(wasFirst, language); ok {
		suggestions = []string{greeting}
	} else {
		suggestions = a.engine.ContextAware(convo, message, language)
	}
	for _, s := range suggestions {
		a.memory.AddPendingSuggestion(threadID, s)
	}

	return &Response{
		Reply:            reply,
		Suggestions:      suggestions,
		DetectedLanguage: language,
		Context:          convo,
	}
}

// HandleToolResult records a tool execution on the thread and returns the
// follow-up suggestions derived from its result, queueing them as pending.
func (a *Agent) HandleToolResult(threadID, toolName, toolResult, language string) []string {
	a.memory.RecordTurn(threadID, memory.TurnInput{
		UserMessage:      "",
		DetectedLanguage: language,
		ToolsUsed:        []string{toolName},
		ToolResults:      map[string]string{toolName: toolResult},
	})

	suggestions := a.engine.FromToolResult(toolName, toolResult, language)
	for _, s := range suggestions {
		a.memory.AddPendingSuggestion(threadID, s)
	}
	return suggestions
}

// DetectLanguage classifies a message as Arabic or English by scanning for
// Arabic-block codepoints. This is a fixed two-variant switch, not language
// understanding.
func DetectLanguage(text string) string {
	for _, r := range text {
		if (r >= 0x0600 && r <= 0x06FF) || (r >= 0x0750 && r <= 0x077F) {
			return types.LanguageArabic
		}
	}
	return types.LanguageEnglish
}

// fallbackReply returns the canned degraded-mode reply for the language.
func fallbackReply(language string) string {
	if language == types.LanguageArabic {
		return fallbackReplyAR
	}
	return fallbackReplyEN
}

// Summary renders the current context digest for a thread, used by the
// context inspection endpoint.
func (a *Agent) Summary(threadID string) string {
	convo := a.memory.GetContext(threadID)
	return strings.TrimSpace(convo.Summary())
}

// ThreadCount reports the number of resident conversations.
func (a *Agent) ThreadCount() int {
	return a.memory.ThreadCount()
}

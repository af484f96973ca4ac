// Package types defines the shared data model for the conversation memory
// core: turns, per-thread contexts and suggestion templates.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Supported language codes. The assistant carries exactly two text variants
// for everything user-facing; any code other than LanguageArabic selects the
// English variant.
const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"
)

// ConversationTurn represents a single user exchange with its derived signals.
// Turns are immutable once created and owned exclusively by their
// ConversationContext.
type ConversationTurn struct {
	ID                     string            `json:"id"`                                 // Unique turn identifier
	Timestamp              time.Time         `json:"timestamp"`                          // When the turn was recorded
	UserMessage            string            `json:"user_message"`                       // Raw user message text
	DetectedLanguage       string            `json:"detected_language"`                  // Language code detected for the message
	ToolsUsed              []string          `json:"tools_used,omitempty"`               // Names of tools executed for this turn
	ToolResults            map[string]string `json:"tool_results,omitempty"`             // Tool name -> short result summary
	TopicsDiscussed        []string          `json:"topics_discussed,omitempty"`         // Topic tags detected in this turn
	IntentDetected         string            `json:"intent_detected,omitempty"`          // Primary intent, if detected
	WasClarificationNeeded bool              `json:"was_clarification_needed,omitempty"` // Whether the assistant had to ask for clarification
	UserSentiment          string            `json:"user_sentiment,omitempty"`           // positive, neutral, frustrated
}

// ConversationContext holds the complete retained state for one conversation
// thread. It is injected into the system prompt to enable multi-turn
// awareness, proactive suggestions and personalized responses.
//
// Contexts are owned by memory.Memory and must only be mutated through its
// methods; values handed out by the store are deep snapshots.
type ConversationContext struct {
	ThreadID  string             `json:"thread_id"`  // Conversation thread identifier
	CreatedAt time.Time          `json:"created_at"` // When the context was created
	Turns     []ConversationTurn `json:"turns"`      // Retained turns, oldest first, bounded per thread

	// Aggregated context for quick access
	AllTopicsDiscussed []string          `json:"all_topics_discussed,omitempty"` // Every topic ever discussed, deduplicated, first-seen order
	AllToolsUsed       []string          `json:"all_tools_used,omitempty"`       // Every tool ever used, deduplicated, first-seen order
	PendingSuggestions []string          `json:"pending_suggestions,omitempty"`  // Suggestions awaiting delivery, max 5, oldest dropped first
	UserPreferences    map[string]string `json:"user_preferences,omitempty"`     // Free-form preference mapping

	// Conversation state
	IsFirstInteraction bool      `json:"is_first_interaction"`        // True until the first turn is recorded
	LastInteraction    time.Time `json:"last_interaction,omitempty"`  // Timestamp of the most recent turn
	UnresolvedQuery    string    `json:"unresolved_query,omitempty"`  // A question the assistant has not answered yet
	ConversationGoal   string    `json:"conversation_goal,omitempty"` // e.g. "renew civil id", "get digital signature"

	// User profile hints inferred from the conversation
	InferredUserType  string   `json:"inferred_user_type,omitempty"` // citizen, resident, business
	MentionedServices []string `json:"mentioned_services,omitempty"` // Services discussed, deduplicated, deliberately unbounded
}

// NewConversationContext creates an empty context for the given thread.
func NewConversationContext(threadID string) *ConversationContext {
	return &ConversationContext{
		ThreadID:           threadID,
		CreatedAt:          time.Now(),
		IsFirstInteraction: true,
	}
}

// AddTurn appends a turn and updates the aggregated context: the
// first-interaction flag is cleared, the last-interaction timestamp is
// advanced, and the turn's topics and tools are merged into the deduplicated
// aggregate lists preserving first-seen order.
func (c *ConversationContext) AddTurn(turn ConversationTurn) {
	c.Turns = append(c.Turns, turn)
	c.IsFirstInteraction = false
	c.LastInteraction = turn.Timestamp

	for _, topic := range turn.TopicsDiscussed {
		c.AllTopicsDiscussed = appendUnique(c.AllTopicsDiscussed, topic)
	}
	for _, tool := range turn.ToolsUsed {
		c.AllToolsUsed = appendUnique(c.AllToolsUsed, tool)
	}
}

// RecentTurns returns the most recent n turns, oldest first.
func (c *ConversationContext) RecentTurns(n int) []ConversationTurn {
	if n <= 0 || len(c.Turns) == 0 {
		return nil
	}
	if n >= len(c.Turns) {
		return c.Turns
	}
	return c.Turns[len(c.Turns)-n:]
}

// Summary generates a concise context digest for system prompt injection:
// turn count, the five most recent aggregate topics, mentioned services, the
// goal and unresolved query when set, and up to two pending suggestions.
// For a brand new conversation it returns a fixed message instead.
func (c *ConversationContext) Summary() string {
	if len(c.Turns) == 0 {
		return "This is the start of a new conversation."
	}

	lines := []string{
		fmt.Sprintf("**Conversation History:** %d previous exchanges", len(c.Turns)),
	}

	if len(c.AllTopicsDiscussed) > 0 {
		recent := c.AllTopicsDiscussed
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		lines = append(lines, fmt.Sprintf("**Recent Topics:** %s", strings.Join(recent, ", ")))
	}

	if len(c.MentionedServices) > 0 {
		lines = append(lines, fmt.Sprintf("**Services Discussed:** %s", strings.Join(c.MentionedServices, ", ")))
	}

	if c.ConversationGoal != "" {
		lines = append(lines, fmt.Sprintf("**User's Goal:** %s", c.ConversationGoal))
	}

	if c.UnresolvedQuery != "" {
		lines = append(lines, fmt.Sprintf("**Pending Question:** %s", c.UnresolvedQuery))
	}

	if len(c.PendingSuggestions) > 0 {
		pending := c.PendingSuggestions
		if len(pending) > 2 {
			pending = pending[:2]
		}
		lines = append(lines, fmt.Sprintf("**Consider Suggesting:** %s", strings.Join(pending, ", ")))
	}

	return strings.Join(lines, "\n")
}

// PromptContext formats the context for direct injection into the system
// prompt. First interactions get a fixed "new conversation" block; returning
// conversations get the summary plus guidance lines.
func (c *ConversationContext) PromptContext() string {
	if c.IsFirstInteraction {
		return `## CONVERSATION CONTEXT
This is a **new conversation**. The user is reaching out for the first time in this session.
- Greet them warmly and establish rapport
- Be ready to help with any civil-services inquiry
`
	}

	return fmt.Sprintf(`## CONVERSATION CONTEXT
%s

**Guidelines based on context:**
- Reference previous topics naturally when relevant
- If the user seems to be continuing a previous thread, acknowledge it
- Proactively offer related services based on what they've discussed
- Remember their language preference and communication style
`, c.Summary())
}

// Clone returns a deep copy of the context. The store hands out clones so
// callers can render summaries without racing subsequent mutations.
func (c *ConversationContext) Clone() *ConversationContext {
	clone := *c
	clone.Turns = make([]ConversationTurn, len(c.Turns))
	for i, turn := range c.Turns {
		clone.Turns[i] = turn
		if turn.ToolsUsed != nil {
			clone.Turns[i].ToolsUsed = append([]string(nil), turn.ToolsUsed...)
		}
		if turn.TopicsDiscussed != nil {
			clone.Turns[i].TopicsDiscussed = append([]string(nil), turn.TopicsDiscussed...)
		}
		if turn.ToolResults != nil {
			results := make(map[string]string, len(turn.ToolResults))
			for k, v := range turn.ToolResults {
				results[k] = v
			}
			clone.Turns[i].ToolResults = results
		}
	}
	clone.AllTopicsDiscussed = append([]string(nil), c.AllTopicsDiscussed...)
	clone.AllToolsUsed = append([]string(nil), c.AllToolsUsed...)
	clone.PendingSuggestions = append([]string(nil), c.PendingSuggestions...)
	clone.MentionedServices = append([]string(nil), c.MentionedServices...)
	if c.UserPreferences != nil {
		prefs := make(map[string]string, len(c.UserPreferences))
		for k, v := range c.UserPreferences {
			prefs[k] = v
		}
		clone.UserPreferences = prefs
	}
	return &clone
}

// appendUnique appends value to list only if not already present,
// preserving first-seen order.
func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

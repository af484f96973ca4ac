// Package suggest generates proactive follow-up suggestions from
// conversation context. Topic detection is plain case-insensitive substring
// matching against a static bilingual rule table; ranking is a deterministic
// priority sort. The engine is immutable after construction and safe for
// unsynchronized concurrent use.
package suggest

import (
	"sort"
	"strings"

	"github.com/wisal-ai/wisal/pkg/types"
)

// Tool names the engine knows how to derive follow-ups from.
const (
	ToolSearchKnowledge   = "search_paci_knowledge"
	ToolApplicationStatus = "check_application_status"
	ToolAppointmentSlots  = "get_appointment_slots"
)

// Engine analyzes conversation context and generates proactive suggestions.
// It makes the assistant feel anticipatory by detecting implicit needs from
// conversation topics, suggesting next steps after tool executions, and
// offering related services based on discussion context.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine from the given rule table. The table's
// declaration order fixes detection and tie-break ordering. Rules are
// validated; invalid tables are rejected.
func NewEngine(rules []Rule) (*Engine, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	return &Engine{rules: rules}, nil
}

// NewDefaultEngine creates an engine with the built-in rule table.
func NewDefaultEngine() *Engine {
	engine, err := NewEngine(DefaultRules())
	if err != nil {
		// The built-in table is validated by tests; this is unreachable.
		panic(err)
	}
	return engine
}

// DetectTopics returns the topic tags whose keywords occur as substrings of
// the lower-cased input. Multiple topics may match one input. Tags are
// returned in rule-table order, so the result is deterministic.
func (e *Engine) DetectTopics(text string) []string {
	lower := strings.ToLower(text)

	var detected []string
	for _, rule := range e.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				detected = append(detected, rule.Topic)
				break
			}
		}
	}
	return detected
}

// RankSuggestions collects every suggestion attached to any of the given
// topics, picks the text variant for the language, sorts by priority
// descending (stable, so equal priorities keep rule-table order) and returns
// the first limit texts.
func (e *Engine) RankSuggestions(topics []string, language string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	wanted := make(map[string]bool, len(topics))
	for _, topic := range topics {
		wanted[topic] = true
	}

	type candidate struct {
		priority int
		text     string
	}

	// Collect in rule-table order so the stable sort has a fixed base order.
	var candidates []candidate
	for _, rule := range e.rules {
		if !wanted[rule.Topic] {
			continue
		}
		for _, s := range rule.Suggestions {
			candidates = append(candidates, candidate{priority: s.Priority, text: s.Text(language)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority > candidates[j].priority
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.text
	}
	return texts
}

// FromToolResult generates up to two follow-up suggestions from a tool
// execution result. Known tools dispatch on substring patterns in the result
// text; unknown tool names yield nothing.
func (e *Engine) FromToolResult(toolName, toolResult, language string) []string {
	var suggestions []string
	lower := strings.ToLower(toolResult)

	switch toolName {
	case ToolSearchKnowledge:
		if strings.Contains(lower, "signature") || strings.Contains(toolResult, "توقيع") {
			suggestions = append(suggestions, e.RankSuggestions([]string{"digital_signature"}, language, 1)...)
		}
		if strings.Contains(lower, "civil") || strings.Contains(toolResult, "مدنية") {
			suggestions = append(suggestions, e.RankSuggestions([]string{"civil_id"}, language, 1)...)
		}

	case ToolApplicationStatus:
		if strings.Contains(lower, "pending") || strings.Contains(toolResult, "قيد المعالجة") {
			if language == types.LanguageArabic {
				suggestions = append(suggestions, "تبيني أذكرك لما يتغير حالة طلبك؟ 🔔")
			} else {
				suggestions = append(suggestions, "Would you like me to notify you when your application status changes? 🔔")
			}
		}

	case ToolAppointmentSlots:
		if language == types.LanguageArabic {
			suggestions = append(suggestions, "تبي أحجز لك واحد من هالمواعيد؟ ✅")
		} else {
			suggestions = append(suggestions, "Would you like me to book one of these slots for you? ✅")
		}
	}

	if len(suggestions) > 2 {
		suggestions = suggestions[:2]
	}
	return suggestions
}

// ContextAware generates up to two suggestions from the full conversation
// context: topics detected in the current message are combined with the last
// three aggregate topics, ranked, and extended by one goal-derived
// suggestion when a conversation goal is set. The combined list is
// deduplicated by exact text, preserving first occurrence.
func (e *Engine) ContextAware(ctx *types.ConversationContext, currentMessage, language string) []string {
	topics := e.DetectTopics(currentMessage)

	// Also consider the most recently discussed topics.
	history := ctx.AllTopicsDiscussed
	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	for _, topic := range history {
		topics = appendUniqueTopic(topics, topic)
	}

	suggestions := e.RankSuggestions(topics, language, 2)

	if ctx.ConversationGoal != "" {
		goalTopics := e.DetectTopics(ctx.ConversationGoal)
		suggestions = append(suggestions, e.RankSuggestions(goalTopics, language, 1)...)
	}

	seen := make(map[string]bool, len(suggestions))
	var unique []string
	for _, s := range suggestions {
		if !seen[s] {
			seen[s] = true
			unique = append(unique, s)
		}
	}

	if len(unique) > 2 {
		unique = unique[:2]
	}
	return unique
}

// Greeting returns the fixed welcoming suggestion for the very first message
// of a conversation. The second return value reports whether a greeting
// applies.
func (e *Engine) Greeting(isFirstInteraction bool, language string) (string, bool) {
	if !isFirstInteraction {
		return "", false
	}
	if language == types.LanguageArabic {
		return "كيف أقدر أساعدك اليوم؟ سواء بطاقة مدنية، توقيع رقمي، أو أي خدمة ثانية 😊", true
	}
	return "How can I help you today? Whether it's Civil ID, digital signatures, or any other service 😊", true
}

// appendUniqueTopic appends topic if not already present.
func appendUniqueTopic(topics []string, topic string) []string {
	for _, existing := range topics {
		if existing == topic {
			return topics
		}
	}
	return append(topics, topic)
}

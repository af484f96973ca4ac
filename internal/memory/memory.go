// Package memory provides the bounded per-thread conversation store. It
// keeps one ConversationContext per thread id inside an LRU cache, appends
// turns, truncates turn history per thread, and maintains the aggregated
// derived fields used for prompt assembly and proactive suggestions.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wisal-ai/wisal/internal/cache"
	"github.com/wisal-ai/wisal/pkg/types"
)

// Default capacity limits, chosen to keep a busy deployment comfortably in
// memory while retaining enough history per conversation.
const (
	DefaultMaxThreads        = 500
	DefaultMaxTurnsPerThread = 50
)

// Capacity limit for pending suggestions per thread; older entries are
// dropped first. Mentioned services are deliberately unbounded.
const maxPendingSuggestions = 5

// TurnInput carries the per-turn fields supplied by the caller when
// recording a new exchange. Absent optional fields are treated as empty
// defaults, never as a failure.
type TurnInput struct {
	UserMessage      string            // The user's message text
	DetectedLanguage string            // Language code detected for the message
	ToolsUsed        []string          // Names of tools that were executed
	ToolResults      map[string]string // Tool name -> brief result summary
	TopicsDiscussed  []string          // Topic tags identified in this turn
	IntentDetected   string            // Primary intent of the message, if any
}

// Memory is a thread-safe conversation store with LRU eviction. It manages
// ConversationContext instances across threads, automatically evicting the
// least-recently-used conversation when the thread limit is reached. An
// evicted conversation is silently lost; that is the designed bounded-memory
// trade-off, not an error.
//
// Contexts are mutated only through Memory's methods. Every method that
// returns a context returns a deep snapshot, so callers can read it freely
// while other workers keep recording turns.
type Memory struct {
	// mu serializes every read-modify-write cycle on a context. The cache
	// has its own internal lock, but fetching a context and mutating it must
	// be atomic with respect to other workers, so all operations go through
	// this single coarse lock. Every operation is O(1) and never blocks, so
	// one lock for the whole store is sufficient.
	mu       sync.Mutex
	contexts *cache.LRU[string, *types.ConversationContext]
	maxTurns int
}

// New creates a conversation store holding at most maxThreads conversations
// with at most maxTurnsPerThread retained turns each. Non-positive values
// fall back to the defaults.
func New(maxThreads, maxTurnsPerThread int) *Memory {
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}
	if maxTurnsPerThread <= 0 {
		maxTurnsPerThread = DefaultMaxTurnsPerThread
	}
	return &Memory{
		contexts: cache.New[string, *types.ConversationContext](maxThreads),
		maxTurns: maxTurnsPerThread,
	}
}

// GetContext returns a snapshot of the context for the given thread,
// creating and storing an empty one if the thread is new. Reading an
// existing context refreshes its cache recency.
func (m *Memory) GetContext(threadID string) *types.ConversationContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getOrCreate(threadID).Clone()
}

// RecordTurn records a new conversation turn: it fetches or creates the
// context, appends a turn stamped with the current time, updates the
// aggregates, truncates the turn history to the per-thread cap (oldest turns
// dropped first), and re-stores the context in the cache so its recency is
// refreshed. Returns a snapshot of the updated context.
func (m *Memory) RecordTurn(threadID string, in TurnInput) *types.ConversationContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.getOrCreate(threadID)

	turn := types.ConversationTurn{
		ID:               uuid.NewString(),
		Timestamp:        time.Now(),
		UserMessage:      in.UserMessage,
		DetectedLanguage: in.DetectedLanguage,
		ToolsUsed:        in.ToolsUsed,
		ToolResults:      in.ToolResults,
		TopicsDiscussed:  in.TopicsDiscussed,
		IntentDetected:   in.IntentDetected,
	}

	ctx.AddTurn(turn)

	// Evict old turns if over limit
	if len(ctx.Turns) > m.maxTurns {
		ctx.Turns = append([]types.ConversationTurn(nil), ctx.Turns[len(ctx.Turns)-m.maxTurns:]...)
	}

	// Re-store to mark the thread as most recently used
	m.contexts.Set(threadID, ctx)

	return ctx.Clone()
}

// AddPendingSuggestion queues a proactive suggestion to be offered to the
// user. Duplicate text is ignored; only the last five suggestions are kept.
func (m *Memory) AddPendingSuggestion(threadID, suggestion string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.getOrCreate(threadID)
	for _, existing := range ctx.PendingSuggestions {
		if existing == suggestion {
			return
		}
	}
	ctx.PendingSuggestions = append(ctx.PendingSuggestions, suggestion)
	if len(ctx.PendingSuggestions) > maxPendingSuggestions {
		ctx.PendingSuggestions = append([]string(nil), ctx.PendingSuggestions[len(ctx.PendingSuggestions)-maxPendingSuggestions:]...)
	}
}

// ClearPendingSuggestions empties the pending suggestion list after the
// suggestions have been offered.
func (m *Memory) ClearPendingSuggestions(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.getOrCreate(threadID)
	ctx.PendingSuggestions = nil
}

// SetConversationGoal overwrites the detected user goal for the thread.
func (m *Memory) SetConversationGoal(threadID, goal string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.getOrCreate(threadID)
	ctx.ConversationGoal = goal
}

// SetUnresolvedQuery overwrites the single unresolved-query slot for the
// thread. Pass an empty string to clear it.
func (m *Memory) SetUnresolvedQuery(threadID, query string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.getOrCreate(threadID)
	ctx.UnresolvedQuery = query
}

// AddMentionedService tracks a service that was discussed. Duplicates are
// ignored; the list is deliberately unbounded.
func (m *Memory) AddMentionedService(threadID, service string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := m.getOrCreate(threadID)
	for _, existing := range ctx.MentionedServices {
		if existing == service {
			return
		}
	}
	ctx.MentionedServices = append(ctx.MentionedServices, service)
}

// ThreadCount returns the current number of resident conversation threads.
func (m *Memory) ThreadCount() int {
	return m.contexts.Len()
}

// getOrCreate returns the live context for the thread, creating and storing
// an empty one if absent. Callers must not hand the returned pointer outside
// the package without cloning.
func (m *Memory) getOrCreate(threadID string) *types.ConversationContext {
	if ctx, ok := m.contexts.Get(threadID); ok {
		return ctx
	}
	ctx := types.NewConversationContext(threadID)
	m.contexts.Set(threadID, ctx)
	return ctx
}

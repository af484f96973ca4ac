package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/wisal-ai/wisal/internal/agent"
	"github.com/wisal-ai/wisal/internal/config"
	"github.com/wisal-ai/wisal/internal/memory"
	"github.com/wisal-ai/wisal/internal/suggest"
)

// echoReplies is a stub reply generator for server tests.
type echoReplies struct{}

func (echoReplies) GenerateReply(_ context.Context, _, userMessage string) (string, error) {
	return "echo: " + userMessage, nil
}

// startTestServer boots the server on an ephemeral port and returns its base URL.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	if cfg == nil {
		var err error
		cfg, err = config.LoadConfig()
		require.NoError(t, err)
	}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	chatAgent := agent.New(
		memory.New(cfg.Memory.MaxThreads, cfg.Memory.MaxTurnsPerThread),
		suggest.NewDefaultEngine(),
		echoReplies{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, err := Start(ctx, cfg, chatAgent)
	require.NoError(t, err)
	return "http://" + addr
}

// TestServer_Health verifies the unauthenticated health endpoint.
func TestServer_Health(t *testing.T) {
	base := startTestServer(t, nil)

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

// TestServer_Stats verifies thread counting through the API.
func TestServer_Stats(t *testing.T) {
	base := startTestServer(t, nil)

	resp, err := http.Get(base + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body["active_threads"])
}

// TestServer_ContextSummary verifies the context inspection endpoint.
func TestServer_ContextSummary(t *testing.T) {
	base := startTestServer(t, nil)

	resp, err := http.Get(base + "/api/context/some-thread")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "some-thread", body["thread_id"])
	assert.Equal(t, "This is the start of a new conversation.", body["summary"])
}

// TestServer_ProductionAuth verifies bearer-token enforcement outside
// development mode.
func TestServer_ProductionAuth(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Security.SecurityMode = "production"
	cfg.Security.APIToken = "secret-token"

	base := startTestServer(t, cfg)

	// Without a token: rejected.
	resp, err := http.Get(base + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// With the token: allowed.
	req, err := http.NewRequest(http.MethodGet, base+"/api/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays open.
	resp, err = http.Get(base + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestServer_RateLimit verifies that exceeding the burst yields 429.
func TestServer_RateLimit(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Limits.RequestsPerSecond = 1
	cfg.Limits.Burst = 2

	base := startTestServer(t, cfg)

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(base + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected a rate-limited response after the burst")
}

// TestServer_WebSocketChat verifies a full chat round-trip over /ws: two
// messages on the same thread, greeting first, context-aware suggestions
// after.
func TestServer_WebSocketChat(t *testing.T) {
	base := startTestServer(t, nil)
	wsURL := "ws" + base[len("http"):] + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	send := func(threadID, message string) chatResponse {
		require.NoError(t, wsjson.Write(ctx, conn, chatRequest{ThreadID: threadID, Message: message}))
		var resp chatResponse
		require.NoError(t, wsjson.Read(ctx, conn, &resp))
		return resp
	}

	first := send("demo-thread", "hi, I need help with my civil id")
	assert.Equal(t, "demo-thread", first.ThreadID)
	assert.Equal(t, "echo: hi, I need help with my civil id", first.Reply)
	require.Len(t, first.Suggestions, 1)
	assert.Contains(t, first.Suggestions[0], "How can I help you today?")

	second := send("demo-thread", "I want to renew it before it expires")
	assert.NotEmpty(t, second.Suggestions)
	assert.LessOrEqual(t, len(second.Suggestions), 2)
	for _, s := range second.Suggestions {
		assert.NotContains(t, s, "How can I help you today?")
	}
}

// TestServer_WebSocketChat_AssignsThread verifies that an empty thread id is
// assigned by the server and reused in the response.
func TestServer_WebSocketChat_AssignsThread(t *testing.T) {
	base := startTestServer(t, nil)
	wsURL := "ws" + base[len("http"):] + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, chatRequest{Message: "hello"}))
	var resp chatResponse
	require.NoError(t, wsjson.Read(ctx, conn, &resp))

	assert.NotEmpty(t, resp.ThreadID)
	assert.Equal(t, fmt.Sprintf("echo: %s", "hello"), resp.Reply)
}

package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/wisal-ai/wisal/internal/agent"
)

// chatRequest is one inbound WebSocket frame from the demo UI.
type chatRequest struct {
	ThreadID string `json:"thread_id"` // Empty for a brand new conversation
	Message  string `json:"message"`   // User message text
}

// chatResponse is the frame sent back for each request.
type chatResponse struct {
	ThreadID         string   `json:"thread_id"`
	Reply            string   `json:"reply"`
	Suggestions      []string `json:"suggestions,omitempty"`
	DetectedLanguage string   `json:"detected_language"`
}

// chatHandler upgrades to WebSocket and serves a request/response chat loop:
// each text frame carries one user message, each reply frame carries the
// assistant response with its proactive suggestions.
type chatHandler struct {
	agent *agent.Agent
}

func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	session := uuid.NewString()
	log.Printf("WebSocket chat session %s connected", session)

	for {
		var req chatRequest
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			// Connection closed by the client or transport error.
			log.Printf("WebSocket chat session %s closed: %v", session, err)
			return
		}

		// An absent thread id starts a fresh conversation scoped to this
		// session.
		if req.ThreadID == "" {
			req.ThreadID = session
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		result := h.agent.ProcessMessage(ctx, req.ThreadID, req.Message)
		cancel()

		resp := chatResponse{
			ThreadID:         req.ThreadID,
			Reply:            result.Reply,
			Suggestions:      result.Suggestions,
			DetectedLanguage: result.DetectedLanguage,
		}

		writeCtx, cancelWrite := context.WithTimeout(r.Context(), 10*time.Second)
		err := wsjson.Write(writeCtx, conn, resp)
		cancelWrite()
		if err != nil {
			log.Printf("ERROR: WebSocket write failed for session %s: %v", session, err)
			return
		}
	}
}

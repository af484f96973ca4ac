// Package server provides HTTP server initialization and lifecycle
// management for the Wisal demo chat service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/wisal-ai/wisal/internal/agent"
	"github.com/wisal-ai/wisal/internal/config"
)

// Start initializes and starts the HTTP server. Returns the actual address
// being listened on (useful for testing with port 0). The server shuts down
// gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, chatAgent *agent.Agent) (string, error) {
	mux := http.NewServeMux()

	limiter := newRateLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"active_threads": chatAgent.ThreadCount(),
		})
	})
	apiMux.HandleFunc("/api/context/{thread_id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"thread_id": r.PathValue("thread_id"),
			"summary":   chatAgent.Summary(r.PathValue("thread_id")),
		})
	})

	// Health endpoint — no auth required, used by monitoring
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	mux.Handle("/api/", requireAuth(apiMux, cfg))

	// WebSocket chat endpoint
	mux.Handle("/ws", &chatHandler{agent: chatAgent})

	// Wrap entire server with rate limiting, then security headers
	handler := rateLimitMiddleware(mux, limiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	return actualAddr, nil
}

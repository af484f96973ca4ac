package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wisal-ai/wisal/internal/agent"
	"github.com/wisal-ai/wisal/internal/config"
	"github.com/wisal-ai/wisal/internal/llm"
	"github.com/wisal-ai/wisal/internal/memory"
	"github.com/wisal-ai/wisal/internal/server"
	"github.com/wisal-ai/wisal/internal/suggest"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to YAML config file (default: config/wisal.yaml)")
	flag.Parse()

	// If no config path specified, use default if it exists
	if *configPath == "" {
		defaultPath := "config/wisal.yaml"
		if _, err := os.Stat(defaultPath); err == nil {
			*configPath = defaultPath
			log.Printf("Using config file: %s", defaultPath)
		}
	}

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Suggestion engine: built-in rule table, or an operator-provided one
	var engine *suggest.Engine
	if cfg.Suggest.RulesPath != "" {
		rules, err := suggest.LoadRules(cfg.Suggest.RulesPath)
		if err != nil {
			log.Fatalf("Failed to load suggestion rules: %v", err)
		}
		engine, err = suggest.NewEngine(rules)
		if err != nil {
			log.Fatalf("Invalid suggestion rules: %v", err)
		}
		log.Printf("Loaded %d suggestion rules from %s", len(rules), cfg.Suggest.RulesPath)
	} else {
		engine = suggest.NewDefaultEngine()
	}

	store := memory.New(cfg.Memory.MaxThreads, cfg.Memory.MaxTurnsPerThread)

	replies := llm.NewClient(llm.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	chatAgent := agent.New(store, engine, replies)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := server.Start(ctx, cfg, chatAgent)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Wisal chat server running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

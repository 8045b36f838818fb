// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Upkeepd is the Upkeep maintenance assistant daemon. It serves the
// conversation turn endpoint, backed by a reasoning model provider
// and the on-disk record store.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/upkeep-works/upkeep/lib/agent"
	"github.com/upkeep-works/upkeep/lib/attachment"
	"github.com/upkeep-works/upkeep/lib/clock"
	"github.com/upkeep-works/upkeep/lib/config"
	"github.com/upkeep-works/upkeep/lib/dupdetect"
	"github.com/upkeep-works/upkeep/lib/knowledge"
	"github.com/upkeep-works/upkeep/lib/llm"
	"github.com/upkeep-works/upkeep/lib/service"
	"github.com/upkeep-works/upkeep/lib/store"
	"github.com/upkeep-works/upkeep/lib/tooldispatch"
	"github.com/upkeep-works/upkeep/lib/version"
	"github.com/upkeep-works/upkeep/lib/workorder"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool

	pflag.StringVar(&configPath, "config", "", "path to config file (default: UPKEEP_CONFIG)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("upkeepd %s\n", version.Info())
		return nil
	}

	logger := service.NewLogger()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger.Info("starting upkeepd",
		"version", version.Info(),
		"environment", cfg.Environment,
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name)

	recordStore, err := store.NewFileStore(cfg.Paths.Data)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}

	attachments, err := attachment.NewStore(cfg.Paths.Attachments)
	if err != nil {
		return fmt.Errorf("opening attachment store: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	orders := workorder.NewService(recordStore, clock.Real(), logger)
	retriever := knowledge.NewRetriever(recordStore)
	detector := dupdetect.NewDetector(orders, provider, cfg.JudgeModel(), logger)
	dispatcher := tooldispatch.NewDispatcher(retriever, detector, orders, recordStore, logger)

	options := agent.Options{
		MaxTokens:     cfg.Model.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
		HistoryWindow: cfg.Agent.HistoryWindow,
	}
	if cfg.Paths.SessionLog != "" {
		sessionLog, err := agent.NewSessionLog(cfg.Paths.SessionLog)
		if err != nil {
			return fmt.Errorf("opening session log: %w", err)
		}
		defer sessionLog.Close()
		options.SessionLog = sessionLog
	}
	if cfg.Paths.Checkpoints != "" {
		checkpoints, err := agent.NewCheckpointStore(cfg.Paths.Checkpoints)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
		options.Checkpoints = checkpoints
	}

	controller := agent.NewController(provider, dispatcher, recordStore, cfg.Model.Name, logger, options)

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.Server.Listen,
		Handler: newRouter(controller, attachments, logger),
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// buildProvider constructs the reasoning model backend named by the
// config. The API key comes from the environment variable the config
// names, never from the config file itself.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	switch cfg.Model.Provider {
	case "anthropic":
		baseURL := cfg.Model.BaseURL
		if baseURL == "" {
			baseURL = defaultAnthropicBaseURL
		}
		return llm.NewAnthropic(http.DefaultClient, baseURL, apiKey), nil
	case "openai":
		return llm.NewOpenAI(http.DefaultClient, cfg.Model.BaseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Model.Provider)
	}
}

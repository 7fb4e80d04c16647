package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sidekick/agent"
	"sidekick/api"
	"sidekick/config"
	"sidekick/logging"
	"sidekick/provider"
	"sidekick/storage"
	"sidekick/tools"
)

const Version = "v0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sidekick: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{
		Dir:           cfg.DataDirectory,
		Debug:         cfg.Debug,
		Console:       true,
		RedactContent: cfg.LogRedactContent,
	})
	if err != nil {
		return err
	}
	log.Info().Str("version", Version).Str("vendor", cfg.DefaultVendor).Msg("starting")

	store, err := storage.OpenInDir(cfg.DataDirectory)
	if err != nil {
		return err
	}
	defer store.Close()

	vendorType, err := provider.ParseProviderType(cfg.DefaultVendor)
	if err != nil {
		return err
	}
	p, err := provider.NewProvider(provider.Config{
		Type:    vendorType,
		BaseURL: cfg.BaseURL(cfg.DefaultVendor),
		APIKey:  cfg.APIKey(cfg.DefaultVendor),
		Timeout: cfg.HTTPTimeout(),
	})
	if err != nil {
		return err
	}

	executor, closeExecutors := buildExecutor(cfg, log)
	defer closeExecutors()

	engine := agent.New(store, p, executor, agent.Config{
		AgentType:     cfg.AgentType,
		Model:         cfg.DefaultModel,
		MaxModelCalls: cfg.MaxModelCalls,
		EnableTools:   cfg.EnableTools,
		Temperature:   cfg.Temperature,
		PromptDir:     cfg.PromptDirectory,
	}, log)

	server := api.NewServer(engine, store, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := server.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// buildExecutor assembles the local tools plus any configured MCP
// servers into one executor. An MCP server that fails to start is
// logged and skipped; local tools always work.
func buildExecutor(cfg *config.Config, log zerolog.Logger) (tools.Executor, func()) {
	local := tools.NewLocalExecutor(cfg.WorkspaceRoot)

	var mcpExecutors []*tools.MCPExecutor
	executors := []tools.Executor{local}

	for _, srv := range cfg.MCPServers {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		mcp, err := tools.NewMCPExecutor(ctx, srv.Name, srv.Command, srv.Env, srv.Args)
		cancel()
		if err != nil {
			log.Warn().Str("server", srv.Name).Err(err).Msg("mcp server skipped")
			continue
		}
		log.Info().Str("server", srv.Name).Int("tools", len(mcp.Defs())).Msg("mcp server ready")
		mcpExecutors = append(mcpExecutors, mcp)
		executors = append(executors, mcp)
	}

	closeAll := func() {
		for _, mcp := range mcpExecutors {
			if err := mcp.Close(); err != nil {
				log.Warn().Err(err).Msg("mcp server close failed")
			}
		}
	}

	if len(executors) == 1 {
		return local, closeAll
	}
	return tools.Combine(executors...), closeAll
}

// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package app assembles a dealdraft session from configuration: the model
// gateway, retrieval index, agent bus, the three role agents and the
// orchestrator that drives them. The CLI is a thin shell over App.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/agent"
	"github.com/teradata-labs/dealdraft/pkg/communication"
	"github.com/teradata-labs/dealdraft/pkg/config"
	"github.com/teradata-labs/dealdraft/pkg/export"
	"github.com/teradata-labs/dealdraft/pkg/ingest"
	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/llm/factory"
	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/observability/storage"
	"github.com/teradata-labs/dealdraft/pkg/orchestration"
	"github.com/teradata-labs/dealdraft/pkg/retrieval"
	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// Options customizes New beyond what the config file expresses.
type Options struct {
	// Provider replaces the configured backend.
	Provider types.LLMProvider

	OnProgress orchestration.ProgressCallback
	OnChunk    func(string)
	Tracer     observability.Tracer
}

// App is one running session.
type App struct {
	Config       *config.Config
	Gateway      *llm.Gateway
	Orchestrator *orchestration.Orchestrator
	Bus          *communication.Bus
	Retriever    retrieval.Retriever

	logger  *zap.Logger
	closers []func() error
}

// New builds a session from cfg. The config must already be validated.
// On error every resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Tracer = observability.OrNoOp(opts.Tracer)

	a = &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	provider := opts.Provider
	if provider == nil {
		provider, err = factory.NewProviderFactory(cfg.FactoryConfig()).CreateProvider(ctx, cfg.LLM.Provider, "")
		if err != nil {
			return nil, fmt.Errorf("create provider: %w", err)
		}
	}

	var usage observability.UsageSink = observability.NewMemoryUsageSink()
	if cfg.Storage.UsagePath != "" {
		sink, err := storage.NewSQLiteUsageSink(ctx, cfg.Storage.UsagePath)
		if err != nil {
			return nil, fmt.Errorf("open usage store: %w", err)
		}
		a.closers = append(a.closers, sink.Close)
		usage = sink
	}

	a.Gateway = llm.NewGateway(llm.GatewayConfig{
		Provider: provider,
		Retry:    cfg.RetryConfig(),
		Timeout:  cfg.Timeout(),
		Usage:    usage,
		Tracer:   opts.Tracer,
		Limiter:  llm.NewRateLimiter(cfg.RateLimiterConfig()),
		Logger:   logger,
	})

	retriever, closeIndex, err := retrieval.New(ctx, retrieval.Config{
		Backend: cfg.Retrieval.Backend,
		Path:    cfg.Retrieval.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("open retrieval index: %w", err)
	}
	a.closers = append(a.closers, closeIndex)
	a.Retriever = retriever
	if err := a.loadCorpora(ctx); err != nil {
		return nil, err
	}

	storeCfg := communication.StoreConfig{Backend: "memory"}
	if cfg.Storage.MessagesPath != "" {
		storeCfg = communication.StoreConfig{Backend: "sqlite", Path: cfg.Storage.MessagesPath}
	}
	store, err := communication.NewMessageStoreFromConfig(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	if store != nil {
		a.closers = append(a.closers, store.Close)
	}
	a.Bus = communication.NewBus(store, opts.Tracer, logger)

	searchLog := retrieval.NewLog()
	registry := shuttle.NewRegistry()
	registry.MustRegister(retrieval.NewSearchTool(retrieval.SearchToolConfig{
		Retriever: retriever,
		Log:       searchLog,
		TopK:      cfg.Retrieval.TopK,
		Tracer:    opts.Tracer,
		Logger:    logger,
	}))
	registry.MustRegister(communication.NewAskAgentTool(a.Bus, agent.Analyst))

	defs, err := config.LoadAgentDefinitions(cfg.Agents.DefinitionsFile)
	if err != nil {
		return nil, fmt.Errorf("load agent definitions: %w", err)
	}
	for _, def := range defs {
		if def.Spec.MaxRounds == 0 {
			def.Spec.MaxRounds = cfg.Agents.MaxRounds
		}
	}

	loop := agent.NewLoop(a.Gateway, agent.WithTracer(opts.Tracer), agent.WithLogger(logger))
	agents, err := agent.BuildRoles(defs, loop, registry, nil, logger)
	if err != nil {
		return nil, err
	}

	a.Orchestrator, err = orchestration.New(orchestration.Config{
		Gateway:      a.Gateway,
		Agents:       agents,
		Bus:          a.Bus,
		Retriever:    retriever,
		RetrievalLog: searchLog,
		OnProgress:   opts.OnProgress,
		OnChunk:      opts.OnChunk,
		Tracer:       opts.Tracer,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("session ready",
		zap.String("session_id", a.Orchestrator.State().ID),
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.String("retrieval", cfg.Retrieval.Backend))
	return a, nil
}

// loadCorpora ingests and indexes every configured corpus directory, in
// corpus name order.
func (a *App) loadCorpora(ctx context.Context) error {
	names := make([]string, 0, len(a.Config.Retrieval.Corpora))
	for name := range a.Config.Retrieval.Corpora {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, corpus := range names {
		dir := a.Config.Retrieval.Corpora[corpus]
		files, err := ingest.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("load corpus %s: %w", corpus, err)
		}
		indexed := 0
		for _, f := range files {
			text, err := ingest.Extract(f)
			if err != nil {
				a.logger.Warn("skipping corpus file",
					zap.String("corpus", corpus),
					zap.String("file", f.Name),
					zap.Error(err))
				continue
			}
			if err := a.Retriever.Index(ctx, corpus, f.Name, text); err != nil {
				return fmt.Errorf("index %s/%s: %w", corpus, f.Name, err)
			}
			indexed++
		}
		a.logger.Info("corpus loaded",
			zap.String("corpus", corpus),
			zap.String("dir", dir),
			zap.Int("files", indexed))
	}
	return nil
}

// Process runs one conversational turn.
func (a *App) Process(ctx context.Context, message string, uploads []ingest.File) (*orchestration.Response, error) {
	return a.Orchestrator.Process(ctx, message, uploads)
}

// Upload reads files from disk for the next turn.
func Upload(paths ...string) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(paths))
	for _, p := range paths {
		f, err := ingest.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// State returns the committed session state.
func (a *App) State() *session.State {
	return a.Orchestrator.State()
}

// Reset clears the session.
func (a *App) Reset() {
	a.Orchestrator.Reset()
}

// Usage totals every model call of the session by caller.
func (a *App) Usage(ctx context.Context) ([]observability.UsageTotals, error) {
	records, err := a.Gateway.Usage().Records(ctx)
	if err != nil {
		return nil, err
	}
	return observability.Totals(records), nil
}

// Export writes the drafted memo to path (.md or .xlsx) and returns the
// written path.
func (a *App) Export(ctx context.Context, path string) (string, error) {
	st := a.State()
	if len(st.Sections) == 0 {
		return "", errors.New("nothing to export: no sections drafted yet")
	}
	title := "Credit memo"
	if len(st.Documents) > 0 {
		base := st.Documents[0].Name
		title = "Credit memo: " + base[:len(base)-len(filepath.Ext(base))]
	}
	return export.WriteFile(ctx, export.FromState(st, title), path)
}

// Close releases stores opened by New, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

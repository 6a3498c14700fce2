package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/analysis"
	"github.com/casebridge/docintel/internal/autofill"
	"github.com/casebridge/docintel/internal/citation"
	"github.com/casebridge/docintel/internal/extract"
	"github.com/casebridge/docintel/internal/fetch"
	"github.com/casebridge/docintel/internal/formdef"
	"github.com/casebridge/docintel/internal/provider"
	"github.com/casebridge/docintel/internal/resilience"
	"github.com/casebridge/docintel/internal/store"
	anthropicpkg "github.com/casebridge/docintel/pkg/anthropic"
	"github.com/casebridge/docintel/pkg/blobstore"
	"github.com/casebridge/docintel/pkg/mistral"
)

// initStore opens the configured case data backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(ctx, cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initRouter builds the provider router over whichever model providers the
// configuration carries keys for. In auto mode a missing key degrades the
// router to the remaining provider rather than failing.
func initRouter() (*provider.Router, error) {
	mode, err := provider.ParseMode(cfg.Router.Mode)
	if err != nil {
		return nil, err
	}

	var anthropicP, mistralP provider.DocumentProvider
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		runner := extract.NewRunner(client, resilience.RetryConfig{})
		anthropicP = provider.NewAnthropicProvider(client, runner, provider.AnthropicOptions{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})
	}
	if cfg.Mistral.Key != "" {
		mistralP = provider.NewMistralProvider(
			mistral.NewClient(cfg.Mistral.Key, cfg.Mistral.Model),
			resilience.RetryConfig{},
		)
	}

	if mode == provider.ModeAuto {
		switch {
		case anthropicP == nil && mistralP == nil:
			return nil, eris.New("no provider configured: set anthropic.key or mistral.key")
		case anthropicP == nil:
			zap.L().Warn("anthropic key not set, routing all calls to mistral")
			mode = provider.ModeMistral
			anthropicP = mistralP
		case mistralP == nil:
			zap.L().Warn("mistral key not set, routing all calls to anthropic")
			mode = provider.ModeAnthropic
			mistralP = anthropicP
		}
	}
	if mode == provider.ModeAnthropic && anthropicP == nil {
		return nil, eris.New("router mode anthropic requires anthropic.key")
	}
	if mode == provider.ModeMistral && mistralP == nil {
		return nil, eris.New("router mode mistral requires mistral.key")
	}
	if anthropicP == nil {
		anthropicP = mistralP
	}
	if mistralP == nil {
		mistralP = anthropicP
	}

	return provider.NewRouter(anthropicP, mistralP, provider.RouterOptions{
		Mode:              mode,
		RequestsPerSecond: cfg.Router.RequestsPerSecond,
		Burst:             cfg.Router.Burst,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Router.FailureThreshold,
			ResetTimeout:     time.Duration(cfg.Router.ResetTimeoutSecs) * time.Second,
		},
	}), nil
}

// initAnalysis wires the analysis service: storage signer, fetcher, router.
func initAnalysis() (*analysis.Service, *provider.Router, error) {
	if err := cfg.Validate("analyze"); err != nil {
		return nil, nil, err
	}

	router, err := initRouter()
	if err != nil {
		return nil, nil, err
	}

	signer := blobstore.NewClient(cfg.Blobstore.BaseURL, cfg.Blobstore.ServiceKey)
	fetcher := fetch.New(fetch.Options{
		Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
	})

	svc := analysis.NewService(signer, fetcher, router, analysis.Options{
		ChunkSize: cfg.Batch.ChunkSize,
	})
	return svc, router, nil
}

// initAutofill builds the autofill engine over the embedded form definitions.
func initAutofill() (*autofill.Engine, error) {
	registry, err := formdef.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load form definitions")
	}

	opts := autofill.Options{
		Matcher: citation.NewMatcher(citation.MatcherConfig{
			MinMatchLen:    cfg.Autofill.MinMatchLen,
			MinLengthRatio: cfg.Autofill.MinLengthRatio,
		}),
	}
	if cfg.Autofill.UseModelMapper && cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		runner := extract.NewRunner(client, resilience.RetryConfig{})
		opts.Mapper = autofill.NewModelMapper(runner, cfg.Autofill.MapperModel)
	}

	return autofill.NewEngine(registry, opts), nil
}

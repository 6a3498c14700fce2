package provider

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/casebridge/docintel/internal/resilience"
)

// Mode selects which provider handles analysis calls.
type Mode string

const (
	// ModeAnthropic pins all calls to the Anthropic provider.
	ModeAnthropic Mode = "anthropic"
	// ModeMistral pins all calls to the Mistral provider.
	ModeMistral Mode = "mistral"
	// ModeAuto calls the primary provider first and retries the same
	// operation on the other provider if the first fails.
	ModeAuto Mode = "auto"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAnthropic, ModeMistral, ModeAuto:
		return Mode(s), nil
	case "":
		return ModeAuto, nil
	}
	return "", eris.Errorf("provider: unknown routing mode %q", s)
}

// RouterOptions configures routing behavior.
type RouterOptions struct {
	Mode Mode
	// RequestsPerSecond caps the call rate per provider. Zero disables
	// limiting.
	RequestsPerSecond float64
	Burst             int
	Breaker           resilience.CircuitBreakerConfig
}

// Router dispatches document operations to providers according to the
// configured mode, with a circuit breaker and rate limiter per provider.
// Router itself satisfies DocumentProvider so callers stay provider-agnostic.
type Router struct {
	primary   DocumentProvider
	secondary DocumentProvider
	mode      Mode
	breakers  *resilience.ServiceBreakers
	limiters  map[string]*rate.Limiter
}

// NewRouter builds a router over the Anthropic and Mistral providers.
// In auto mode the Anthropic provider is primary.
func NewRouter(anthropicP, mistralP DocumentProvider, opts RouterOptions) *Router {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	r := &Router{
		primary:   anthropicP,
		secondary: mistralP,
		mode:      opts.Mode,
		breakers:  resilience.NewServiceBreakers(opts.Breaker),
		limiters:  make(map[string]*rate.Limiter),
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		for _, p := range []DocumentProvider{anthropicP, mistralP} {
			r.limiters[p.Name()] = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		}
	}
	return r
}

// Mode reports the configured routing mode.
func (r *Router) Mode() Mode { return r.mode }

func (r *Router) Name() string { return "router(" + string(r.mode) + ")" }

// BreakerStates exposes per-provider circuit states for health reporting.
func (r *Router) BreakerStates() map[string]resilience.CircuitState {
	return r.breakers.States()
}

func (r *Router) chain() []DocumentProvider {
	switch r.mode {
	case ModeAnthropic:
		return []DocumentProvider{r.primary}
	case ModeMistral:
		return []DocumentProvider{r.secondary}
	default:
		return []DocumentProvider{r.primary, r.secondary}
	}
}

func (r *Router) wait(ctx context.Context, name string) error {
	lim, ok := r.limiters[name]
	if !ok {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		return eris.Wrapf(err, "provider: rate limit wait for %s", name)
	}
	return nil
}

// route tries each provider in the chain in order. A failure on a non-final
// provider logs and falls through; the last provider's error propagates
// unchanged so callers see the real failure, not a routing wrapper.
func route[T any](ctx context.Context, r *Router, op string, fn func(context.Context, DocumentProvider) (T, error)) (T, error) {
	var zero T
	providers := r.chain()

	var lastErr error
	for i, p := range providers {
		if err := r.wait(ctx, p.Name()); err != nil {
			return zero, err
		}

		val, err := resilience.ExecuteVal(ctx, r.breakers.Get(p.Name()), func(ctx context.Context) (T, error) {
			return fn(ctx, p)
		})
		if err == nil {
			if i > 0 {
				zap.L().Info("provider failover succeeded",
					zap.String("operation", op),
					zap.String("provider", p.Name()),
				)
			}
			return val, nil
		}

		lastErr = err
		if i < len(providers)-1 {
			zap.L().Warn("provider call failed, failing over",
				zap.String("operation", op),
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
		}
	}
	return zero, lastErr
}

func (r *Router) Validate(ctx context.Context, doc Document) (*ValidationResult, error) {
	return route(ctx, r, "validate", func(ctx context.Context, p DocumentProvider) (*ValidationResult, error) {
		return p.Validate(ctx, doc)
	})
}

func (r *Router) DetectType(ctx context.Context, doc Document) (*DetectionResult, error) {
	return route(ctx, r, "detect_type", func(ctx context.Context, p DocumentProvider) (*DetectionResult, error) {
		return p.DetectType(ctx, doc)
	})
}

func (r *Router) AnalyzeDocument(ctx context.Context, doc Document, documentType string) (*ExtractionResult, error) {
	return route(ctx, r, "analyze_document", func(ctx context.Context, p DocumentProvider) (*ExtractionResult, error) {
		return p.AnalyzeDocument(ctx, doc, documentType)
	})
}

func (r *Router) ExtractText(ctx context.Context, doc Document) (string, error) {
	return route(ctx, r, "extract_text", func(ctx context.Context, p DocumentProvider) (string, error) {
		return p.ExtractText(ctx, doc)
	})
}

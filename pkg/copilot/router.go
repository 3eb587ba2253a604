package copilot

import (
	"context"
	"sync"
	"time"
)

// RouterConfig configures a HybridRouter instance. Captured by value at
// session start.
type RouterConfig struct {
	Strategy          RoutingStrategy
	ComplexityFloor   Complexity
	LocalProbeTimeout time.Duration
	LocalCallTimeout  time.Duration
	LocalLivenessTTL  time.Duration
}

// DefaultRouterConfig returns the routing defaults: Smart strategy with
// a Moderate complexity floor and short local timeouts.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Strategy:          StrategySmart,
		ComplexityFloor:   ComplexityModerate,
		LocalProbeTimeout: 2 * time.Second,
		LocalCallTimeout:  5 * time.Second,
		LocalLivenessTTL:  10 * time.Second,
	}
}

// LocalProbe checks whether the local backend is currently reachable.
type LocalProbe func(ctx context.Context) bool

// HybridRouter selects a backend provider per request by complexity,
// policy and availability. Stateless between requests apart from the
// cached local-liveness flag.
type HybridRouter struct {
	cfg RouterConfig

	local     StreamingLLMProvider
	openai    StreamingLLMProvider
	anthropic StreamingLLMProvider
	google    StreamingLLMProvider
	probe     LocalProbe

	mu        sync.Mutex
	liveLocal bool
	probedAt  time.Time

	logger Logger
}

// NewHybridRouter builds a router. Any provider may be nil (cloud absent
// because its key is missing, local absent because none is configured).
func NewHybridRouter(cfg RouterConfig, local, openai, anthropic, google StreamingLLMProvider, probe LocalProbe, logger Logger) *HybridRouter {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &HybridRouter{cfg: cfg, local: local, openai: openai, anthropic: anthropic, google: google, probe: probe, logger: logger}
}

// RefreshLiveness re-probes the local backend if the cached flag is
// stale, per LocalLivenessTTL. Safe to call from multiple goroutines.
func (r *HybridRouter) RefreshLiveness(ctx context.Context) bool {
	r.mu.Lock()
	stale := time.Since(r.probedAt) > r.cfg.LocalLivenessTTL
	cached := r.liveLocal
	r.mu.Unlock()

	if !stale || r.local == nil || r.probe == nil {
		return cached
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.LocalProbeTimeout)
	defer cancel()
	live := r.probe(probeCtx)

	r.mu.Lock()
	r.liveLocal = live
	r.probedAt = time.Now()
	r.mu.Unlock()
	return live
}

func (r *HybridRouter) localLiveCached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveLocal
}

// Route picks a provider for text under the router's configured strategy.
// Pure given the cached liveness flag and configured provider set: it
// consults no clock or external state besides those.
func (r *HybridRouter) Route(text string, localLive bool) Provider {
	_, complexity := ScoreComplexity(text)

	switch r.cfg.Strategy {
	case StrategyAlwaysLocal:
		return Provider{Kind: ProviderLocal}

	case StrategyAlwaysCloud:
		return r.bestCloud(smartCloudOrder)

	case StrategyLocalWithFallback:
		if localLive && r.local != nil {
			return Provider{Kind: ProviderLocal}
		}
		return r.bestCloud(smartCloudOrder)

	case StrategySpeedFirst:
		if localLive && r.local != nil {
			return Provider{Kind: ProviderLocal}
		}
		return r.bestCloud(speedCloudOrder)

	case StrategyQualityFirst:
		return r.bestOf(qualityOrder)

	default: // StrategySmart
		if complexity < r.cfg.ComplexityFloor && localLive && r.local != nil {
			return Provider{Kind: ProviderLocal}
		}
		return r.bestCloud(smartCloudOrder)
	}
}

// smartCloudOrder is the Smart/AlwaysCloud/LocalWithFallback preference.
var smartCloudOrder = []ProviderKind{ProviderGoogle, ProviderOpenAI, ProviderAnthropic}

// qualityOrder is QualityFirst's fixed preference.
var qualityOrder = []ProviderKind{ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderLocal}

// speedCloudOrder is SpeedFirst's "fastest cloud" tie-break, ranked by
// typical first-token latency of the hosted backends.
var speedCloudOrder = []ProviderKind{ProviderOpenAI, ProviderGoogle, ProviderAnthropic}

func (r *HybridRouter) providerFor(kind ProviderKind) StreamingLLMProvider {
	switch kind {
	case ProviderLocal:
		return r.local
	case ProviderOpenAI:
		return r.openai
	case ProviderAnthropic:
		return r.anthropic
	case ProviderGoogle:
		return r.google
	default:
		return nil
	}
}

func (r *HybridRouter) bestCloud(order []ProviderKind) Provider {
	for _, kind := range order {
		if kind == ProviderLocal {
			continue
		}
		if r.providerFor(kind) != nil {
			return Provider{Kind: kind}
		}
	}
	return Provider{Kind: ProviderLocal}
}

func (r *HybridRouter) bestOf(order []ProviderKind) Provider {
	for _, kind := range order {
		if kind == ProviderLocal {
			if r.local != nil && r.localLiveCached() {
				return Provider{Kind: ProviderLocal}
			}
			continue
		}
		if r.providerFor(kind) != nil {
			return Provider{Kind: kind}
		}
	}
	return Provider{Kind: ProviderLocal}
}

// InvokeFlash runs a synchronous completion against the chosen provider.
func (r *HybridRouter) InvokeFlash(ctx context.Context, p Provider, messages []Message) (string, error) {
	backend := r.providerFor(p.Kind)
	if backend == nil {
		return "", ErrNoProviderAvailable
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if p.Kind == ProviderLocal {
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.LocalCallTimeout)
		defer cancel()
	}

	out, err := backend.Complete(callCtx, messages)
	if err != nil && p.Kind == ProviderLocal && r.cfg.Strategy == StrategyLocalWithFallback {
		r.logger.Warn("local flash call failed, falling back to cloud", "error", err)
		fallback := r.bestCloud(smartCloudOrder)
		fb := r.providerFor(fallback.Kind)
		if fb == nil {
			return "", err
		}
		return fb.Complete(ctx, messages)
	}
	return out, err
}

// InvokeDeep streams a completion against the chosen provider, delivering
// raw text deltas to onDelta. Header/question parsing happens one layer
// up in the orchestrator, not here. A failed stream is returned as is:
// LocalWithFallback's retry on a cloud backend applies to InvokeFlash
// only, not to Deep streams.
func (r *HybridRouter) InvokeDeep(ctx context.Context, p Provider, messages []Message, onDelta func(string) error) error {
	backend := r.providerFor(p.Kind)
	if backend == nil {
		return ErrNoProviderAvailable
	}
	return backend.CompleteStream(ctx, messages, onDelta)
}

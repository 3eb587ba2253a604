package copilot

import (
	"context"
	"testing"
	"time"
)

type stubLLM struct {
	name         string
	completeText string
	completeErr  error
	streamChunks []string
	streamErr    error
}

func (s *stubLLM) Name() string { return s.name }

func (s *stubLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	return s.completeText, s.completeErr
}

func (s *stubLLM) CompleteStream(ctx context.Context, messages []Message, onDelta func(string) error) error {
	for _, chunk := range s.streamChunks {
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return s.streamErr
}

func newRouter(strategy RoutingStrategy, localLive bool, local, openai, anthropic, google StreamingLLMProvider) *HybridRouter {
	cfg := DefaultRouterConfig()
	cfg.Strategy = strategy
	probe := func(ctx context.Context) bool { return localLive }
	return NewHybridRouter(cfg, local, openai, anthropic, google, probe, nil)
}

func TestRouteIsPureGivenInputs(t *testing.T) {
	local := &stubLLM{name: "local"}
	openai := &stubLLM{name: "openai"}
	r := newRouter(StrategySmart, true, local, openai, nil, nil)

	p1 := r.Route("what is the price", true)
	p2 := r.Route("what is the price", true)

	if p1 != p2 {
		t.Errorf("Route must be a pure function of its inputs; got %v then %v", p1, p2)
	}
}

func TestSmartStrategyPicksLocalWhenSimpleAndLive(t *testing.T) {
	local := &stubLLM{name: "local"}
	google := &stubLLM{name: "google"}
	r := newRouter(StrategySmart, true, local, nil, nil, google)

	p := r.Route("What is the price?", true)
	if p.Kind != ProviderLocal {
		t.Errorf("expected Local for a simple request with local live, got %v", p.Kind)
	}
}

func TestSmartStrategyFallsBackToCloudOrderWhenLocalDown(t *testing.T) {
	openai := &stubLLM{name: "openai"}
	r := newRouter(StrategySmart, false, nil, openai, nil, nil)

	p := r.Route("Explain why your architecture would scale better and justify the budget to our stakeholders.", false)
	if p.Kind != ProviderOpenAI {
		t.Errorf("expected the only available cloud backend when local is down, got %v", p.Kind)
	}
}

func TestSmartCloudOrderPrefersGoogleThenOpenAIThenAnthropic(t *testing.T) {
	openai := &stubLLM{name: "openai"}
	anthropic := &stubLLM{name: "anthropic"}
	google := &stubLLM{name: "google"}
	r := newRouter(StrategySmart, false, nil, openai, anthropic, google)

	p := r.Route("Explain why your architecture would scale better and justify the budget to our stakeholders.", false)
	if p.Kind != ProviderGoogle {
		t.Errorf("expected Google preferred first in the Smart ordering, got %v", p.Kind)
	}
}

func TestQualityFirstPrefersAnthropicOverLocal(t *testing.T) {
	local := &stubLLM{name: "local"}
	anthropic := &stubLLM{name: "anthropic"}
	r := newRouter(StrategyQualityFirst, true, local, nil, anthropic, nil)

	p := r.Route("anything", true)
	if p.Kind != ProviderAnthropic {
		t.Errorf("expected QualityFirst to prefer Anthropic even with local live, got %v", p.Kind)
	}
}

func TestQualityFirstFallsBackToLocalWhenNoCloudConfigured(t *testing.T) {
	local := &stubLLM{name: "local"}
	r := newRouter(StrategyQualityFirst, true, local, nil, nil, nil)

	p := r.Route("anything", true)
	if p.Kind != ProviderLocal {
		t.Errorf("expected QualityFirst to fall back to Local when no cloud is configured, got %v", p.Kind)
	}
}

func TestAlwaysLocalIgnoresComplexityAndLiveness(t *testing.T) {
	r := newRouter(StrategyAlwaysLocal, false, nil, nil, nil, nil)
	p := r.Route("anything at all", false)
	if p.Kind != ProviderLocal {
		t.Errorf("expected AlwaysLocal to always select Local, got %v", p.Kind)
	}
}

func TestLocalWithFallbackFallsBackOnCallError(t *testing.T) {
	local := &stubLLM{name: "local", completeErr: errTestLocalFailed}
	openai := &stubLLM{name: "openai", completeText: "from openai"}
	r := newRouter(StrategyLocalWithFallback, true, local, openai, nil, nil)

	p := r.Route("anything", true)
	if p.Kind != ProviderLocal {
		t.Fatalf("expected LocalWithFallback to try Local first, got %v", p.Kind)
	}

	out, err := r.InvokeFlash(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("expected the fallback call to succeed, got error %v", err)
	}
	if out != "from openai" {
		t.Errorf("expected fallback response from the cloud backend, got %q", out)
	}
}

func TestInvokeDeepStreamsDeltasInOrder(t *testing.T) {
	openai := &stubLLM{name: "openai", streamChunks: []string{"a", "b", "c"}}
	r := newRouter(StrategyAlwaysCloud, false, nil, openai, nil, nil)

	p := r.Route("text", false)
	var got []string
	err := r.InvokeDeep(context.Background(), p, nil, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("expected deltas forwarded in order, got %v", got)
	}
}

func TestRefreshLivenessRespectsTTL(t *testing.T) {
	calls := 0
	cfg := DefaultRouterConfig()
	cfg.LocalLivenessTTL = time.Hour
	local := &stubLLM{name: "local"}
	r := NewHybridRouter(cfg, local, nil, nil, nil, func(ctx context.Context) bool {
		calls++
		return true
	}, nil)

	first := r.RefreshLiveness(context.Background())
	second := r.RefreshLiveness(context.Background())

	if !first || !second {
		t.Fatal("expected liveness true on both calls")
	}
	if calls != 1 {
		t.Errorf("expected the probe to be cached within its TTL, got %d calls", calls)
	}
}

var errTestLocalFailed = &stubError{"local backend unreachable"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }

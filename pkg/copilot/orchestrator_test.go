package copilot

import (
	"context"
	"sync"
	"testing"
	"time"
)

// sequencedLLM blocks on its first Complete call until its context is
// cancelled (simulating an in-flight Flash request that gets preempted),
// then answers every later call with result immediately.
type sequencedLLM struct {
	name   string
	result string

	mu    sync.Mutex
	calls int
}

func (s *sequencedLLM) Name() string { return s.name }

func (s *sequencedLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if n == 1 {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.result, nil
}

func (s *sequencedLLM) CompleteStream(ctx context.Context, messages []Message, onDelta func(string) error) error {
	return onDelta("## Direct Answer\nAll good.\n")
}

func newTestOrchestrator(t *testing.T, local StreamingLLMProvider) (*AnalysisOrchestrator, *EventBus, <-chan PipelineEvent, func()) {
	t.Helper()
	cfg := DefaultRouterConfig()
	cfg.Strategy = StrategyAlwaysLocal
	router := NewHybridRouter(cfg, local, nil, nil, nil, func(context.Context) bool { return true }, nil)
	ctxStore := NewContextStore(20)
	bus := NewEventBus(20)
	o := NewAnalysisOrchestrator("sess-1", router, ctxStore, bus, NewDefaultMode(), nil)
	ch, unsub := bus.Subscribe()
	return o, bus, ch, unsub
}

func waitForEvent(t *testing.T, ch <-chan PipelineEvent, want EventType, timeout time.Duration) PipelineEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %v", want)
		}
	}
}

func TestOnFinalSegmentEmptyTextIsNoop(t *testing.T) {
	o, _, ch, unsub := newTestOrchestrator(t, &stubLLM{name: "local", completeText: `{"summary":"s","bullets":[],"type":"statement","urgency":"can_elaborate"}`})
	defer unsub()

	o.OnFinalSegment(context.Background(), "")

	select {
	case ev := <-ch:
		t.Fatalf("expected no event for an empty final segment, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOnFinalSegmentRunsFlashThenDeep(t *testing.T) {
	local := &stubLLM{
		name:         "local",
		completeText: `{"summary":"they asked about price","bullets":[{"text":"mention the discount","priority":1}],"type":"question","urgency":"answer_now"}`,
		streamChunks: []string{"## Direct Answer\nIt's $49/mo.\n\n## Question to Ask Them\n", "What's your budget?\n"},
	}
	o, _, ch, unsub := newTestOrchestrator(t, local)
	defer unsub()

	o.OnFinalSegment(context.Background(), "How much does it cost?")

	flashEv := waitForEvent(t, ch, EventFlashReady, time.Second)
	if flashEv.Flash == nil || flashEv.Flash.StatementType != StatementQuestion {
		t.Fatalf("unexpected flash event: %+v", flashEv.Flash)
	}

	waitForEvent(t, ch, EventQuestionReady, time.Second)
	waitForEvent(t, ch, EventDeepComplete, time.Second)

	flash, deepContent, streaming, question, lastErr := o.Snapshot()
	if flash == nil {
		t.Fatal("expected a stored flash snapshot")
	}
	if streaming {
		t.Error("expected deepStreaming false once the stream has completed")
	}
	if deepContent == "" {
		t.Error("expected accumulated deep content")
	}
	if question != "What's your budget?" {
		t.Errorf("expected extracted question, got %q", question)
	}
	if lastErr != "" {
		t.Errorf("expected no error, got %q", lastErr)
	}
}

func TestOnFinalSegmentMalformedFlashEmitsError(t *testing.T) {
	local := &stubLLM{name: "local", completeText: "not json at all"}
	o, _, ch, unsub := newTestOrchestrator(t, local)
	defer unsub()

	o.OnFinalSegment(context.Background(), "tell me about pricing")

	ev := waitForEvent(t, ch, EventError, time.Second)
	if ev.Err != ErrFlashMalformed.Error() {
		t.Errorf("expected ErrFlashMalformed, got %q", ev.Err)
	}
}

func TestOnFinalSegmentBulletsCappedAndSortedByPriority(t *testing.T) {
	local := &stubLLM{
		name: "local",
		completeText: `{"summary":"s","bullets":[
			{"text":"f","priority":6},
			{"text":"a","priority":1},
			{"text":"e","priority":5},
			{"text":"b","priority":2},
			{"text":"d","priority":4},
			{"text":"c","priority":3}
		],"type":"statement","urgency":"can_elaborate"}`,
		streamChunks: []string{"## Direct Answer\nok\n"},
	}
	o, _, ch, unsub := newTestOrchestrator(t, local)
	defer unsub()

	o.OnFinalSegment(context.Background(), "give me everything")

	ev := waitForEvent(t, ch, EventFlashReady, time.Second)
	if len(ev.Flash.Bullets) != 5 {
		t.Fatalf("expected bullets capped at 5, got %d", len(ev.Flash.Bullets))
	}
	for i, b := range ev.Flash.Bullets {
		if b.Priority != i+1 {
			t.Errorf("expected bullets sorted ascending by priority, got %+v", ev.Flash.Bullets)
		}
	}
}

func TestNewerFinalSegmentPreemptsStaleFlash(t *testing.T) {
	local := &sequencedLLM{
		name:   "local",
		result: `{"summary":"second wins","bullets":[],"type":"statement","urgency":"can_elaborate"}`,
	}
	o, _, ch, unsub := newTestOrchestrator(t, local)
	defer unsub()

	o.OnFinalSegment(context.Background(), "first question, will be preempted")
	// Give the first call a moment to reach Complete and start blocking.
	time.Sleep(50 * time.Millisecond)
	o.OnFinalSegment(context.Background(), "second question, should win")

	flashEv := waitForEvent(t, ch, EventFlashReady, time.Second)
	if flashEv.Flash.Summary != "second wins" {
		t.Errorf("expected only the newest generation's flash to be published, got %+v", flashEv.Flash)
	}

	select {
	case ev := <-ch:
		if ev.Type == EventFlashReady {
			t.Errorf("expected exactly one Flash event, got a second: %+v", ev)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancelAfterCompletedWorkEmitsNothing(t *testing.T) {
	local := &stubLLM{
		name:         "local",
		completeText: `{"summary":"s","bullets":[],"type":"statement","urgency":"can_elaborate"}`,
	}
	o, _, ch, unsub := newTestOrchestrator(t, local)
	defer unsub()

	o.OnFinalSegment(context.Background(), "something")
	waitForEvent(t, ch, EventFlashReady, time.Second)
	waitForEvent(t, ch, EventDeepComplete, time.Second)

	o.Cancel()

	select {
	case ev := <-ch:
		t.Fatalf("expected no further events after Cancel with no new segment, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

package copilot

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stubAudioSource struct {
	name string
	ch   chan []float32
	err  error

	mu      sync.Mutex
	stopped bool
}

func newStubAudioSource() *stubAudioSource {
	return &stubAudioSource{name: "stub-audio", ch: make(chan []float32, 10)}
}

func (s *stubAudioSource) Start(ctx context.Context) (<-chan []float32, error) {
	return s.ch, nil
}

func (s *stubAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.ch)
	}
	return nil
}

func (s *stubAudioSource) Err() error   { return s.err }
func (s *stubAudioSource) Name() string { return s.name }

func (s *stubAudioSource) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type stubSTT struct {
	name  string
	pcmCh chan []byte

	mu        sync.Mutex
	onSegment func(TranscriptSegment) error
}

func newStubSTT() *stubSTT {
	return &stubSTT{name: "stub-stt", pcmCh: make(chan []byte, 10)}
}

func (s *stubSTT) Name() string { return s.name }

func (s *stubSTT) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int) (TranscriptSegment, error) {
	return TranscriptSegment{}, nil
}

func (s *stubSTT) StreamTranscribe(ctx context.Context, sampleRate int, onSegment func(TranscriptSegment) error, onError func(error)) (chan<- []byte, error) {
	s.mu.Lock()
	s.onSegment = onSegment
	s.mu.Unlock()
	return s.pcmCh, nil
}

func (s *stubSTT) deliver(seg TranscriptSegment) error {
	s.mu.Lock()
	cb := s.onSegment
	s.mu.Unlock()
	if cb == nil {
		return nil
	}
	return cb(seg)
}

func newTestSession(t *testing.T) (*Session, *stubAudioSource, *stubSTT) {
	t.Helper()
	audioSrc := newStubAudioSource()
	stt := newStubSTT()
	cfg := DefaultRouterConfig()
	cfg.Strategy = StrategyAlwaysLocal
	local := &stubLLM{name: "local", completeText: `{"summary":"s","bullets":[],"type":"statement","urgency":"can_elaborate"}`}
	router := NewHybridRouter(cfg, local, nil, nil, nil, func(context.Context) bool { return true }, nil)
	sess := NewSession("sess-test", router, stt, audioSrc, DefaultConfig(), nil)
	return sess, audioSrc, stt
}

func TestSessionStartTransitionsIdleToRunningAndEmitsStarted(t *testing.T) {
	sess, _, _ := newTestSession(t)
	ch, unsub := sess.Subscribe()
	defer unsub()

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sess.Stop()

	if !sess.State().IsRunning {
		t.Error("expected IsRunning true after Start")
	}

	select {
	case ev := <-ch:
		if ev.Type != EventStarted {
			t.Errorf("expected EventStarted, got %v", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for EventStarted")
	}
}

func TestSessionStartFailsWithoutAudioSource(t *testing.T) {
	stt := newStubSTT()
	cfg := DefaultRouterConfig()
	local := &stubLLM{name: "local"}
	router := NewHybridRouter(cfg, local, nil, nil, nil, func(context.Context) bool { return true }, nil)
	sess := NewSession("sess-no-audio", router, stt, nil, DefaultConfig(), nil)

	err := sess.Start(context.Background())
	if err != ErrNoAudioSource {
		t.Errorf("expected ErrNoAudioSource, got %v", err)
	}
	if sess.State().IsRunning {
		t.Error("expected session to remain idle")
	}
}

func TestSessionStartFailsWithoutSTT(t *testing.T) {
	audioSrc := newStubAudioSource()
	cfg := DefaultRouterConfig()
	local := &stubLLM{name: "local"}
	router := NewHybridRouter(cfg, local, nil, nil, nil, func(context.Context) bool { return true }, nil)
	sess := NewSession("sess-no-stt", router, nil, audioSrc, DefaultConfig(), nil)

	err := sess.Start(context.Background())
	if err != ErrNoSTTKey {
		t.Errorf("expected ErrNoSTTKey, got %v", err)
	}
}

func TestSessionDoubleStartReturnsAlreadyRunning(t *testing.T) {
	sess, _, _ := newTestSession(t)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer sess.Stop()

	if err := sess.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("expected ErrAlreadyRunning on second Start, got %v", err)
	}
}

func TestSessionFinalSegmentPublishesTranscriptAndTriggersFlash(t *testing.T) {
	sess, _, stt := newTestSession(t)
	ch, unsub := sess.Subscribe()
	defer unsub()

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sess.Stop()

	waitForEvent(t, ch, EventStarted, time.Second)

	if err := stt.deliver(TranscriptSegment{Text: "how much does it cost", IsFinal: true}); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	transcriptEv := waitForEvent(t, ch, EventTranscript, time.Second)
	if transcriptEv.Text != "how much does it cost" {
		t.Errorf("unexpected transcript text %q", transcriptEv.Text)
	}

	waitForEvent(t, ch, EventFlashReady, time.Second)

	if sess.State().Transcript == "" {
		t.Error("expected the transcript buffer to reflect the delivered segment")
	}
}

func TestSessionStopDrainsAndReturnsToIdle(t *testing.T) {
	sess, audioSrc, _ := newTestSession(t)
	ch, unsub := sess.Subscribe()
	defer unsub()

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForEvent(t, ch, EventStarted, time.Second)

	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	waitForEvent(t, ch, EventStopped, time.Second)

	if sess.State().IsRunning {
		t.Error("expected IsRunning false after Stop")
	}
	if !audioSrc.wasStopped() {
		t.Error("expected the audio source to be stopped")
	}
}

func TestSessionStopWhenNotRunningIsNoop(t *testing.T) {
	sess, _, _ := newTestSession(t)
	if err := sess.Stop(); err != nil {
		t.Errorf("expected Stop on an idle session to be a no-op, got %v", err)
	}
}

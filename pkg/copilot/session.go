package copilot

import (
	"context"
	"sync"
	"time"

	"github.com/lokutor-ai/voice-copilot/pkg/audio"
)

// Session owns one live conversation's lifecycle: the Idle→Starting→
// Running→Stopping→Idle state machine, the event bus, and every
// long-lived task spawned for it. At most one session runs per
// controller at a time.
type Session struct {
	id     string
	logger Logger

	mu        sync.Mutex
	state     RunState
	config    Config
	startedAt time.Time

	audioSrc   AudioSource
	pendingSrc AudioSource
	stt        StreamingSTTProvider
	router     *HybridRouter
	vad        *audio.SpeechGate

	transcript   *TranscriptBuffer
	context      *ContextStore
	orchestrator *AnalysisOrchestrator
	bus          *EventBus
	echoGuard    *audio.EchoGuard

	runCancel context.CancelFunc
	drained   chan struct{}
}

// SetSpeechGate wires an optional voice-activity gate: every frame
// processed while the gate does not report speech is dropped rather than
// forwarded to the STT client, including the onset frames before speech
// is first confirmed. Pass nil (the default) to forward every frame
// unconditionally.
func (s *Session) SetSpeechGate(vad *audio.SpeechGate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vad = vad
}

// SetEchoGuard replaces the session's echo guard. Pass nil to disable
// echo suppression entirely (IsEcho always reports false).
func (s *Session) SetEchoGuard(guard *audio.EchoGuard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echoGuard = guard
}

// RecordPlayback feeds PCM16 the session just played back for local UI
// (e.g. a chime) into the echo guard, so forwardAudio can suppress
// capture frames that correlate with it. A no-op if no guard is set.
func (s *Session) RecordPlayback(pcm []byte) {
	s.mu.Lock()
	guard := s.echoGuard
	s.mu.Unlock()
	if guard != nil {
		guard.RecordPlayed(pcm)
	}
}

// NewSession builds an idle session. audioSrc may be nil at construction
// if one is supplied via SetAudioSource before Start; stt has no setter,
// so a session built with a nil stt fails to Start. Start validates
// their presence.
func NewSession(id string, router *HybridRouter, stt StreamingSTTProvider, audioSrc AudioSource, config Config, logger Logger) *Session {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Session{
		id:         id,
		logger:     logger,
		state:      StateIdle,
		config:     config,
		audioSrc:   audioSrc,
		stt:        stt,
		router:     router,
		transcript: NewTranscriptBuffer(config.MaxTranscriptSegs),
		context:    NewContextStore(config.MaxTurns),
		bus:        NewEventBus(config.EventBufferSize),
		echoGuard:  audio.NewEchoGuard(config.SampleRate),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Subscribe registers a new event consumer.
func (s *Session) Subscribe() (<-chan PipelineEvent, func()) {
	return s.bus.Subscribe()
}

// SetMode updates the mode prompt on the live context store. Takes
// effect immediately, including mid-session.
func (s *Session) SetMode(label string) {
	mode := ResolveMode(label)
	s.mu.Lock()
	s.config.Mode = label
	o := s.orchestrator
	s.mu.Unlock()

	s.context.SetModePrompt(mode.ContextDescription())
	if o != nil {
		o.SetMode(mode)
	}
}

// SetAudioSource enqueues a new audio source; it only takes effect on
// the next Start().
func (s *Session) SetAudioSource(src AudioSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSrc = src
}

// SetPersistenceSink wires the out-of-core persistence collaborator:
// every published event is shipped to it best-effort. Safe to call
// before or after Start().
func (s *Session) SetPersistenceSink(sink PersistenceSink) {
	s.bus.SetPersistenceSink(sink)
}

// SetAnalyticsSink wires the out-of-core analytics collaborator.
// Safe to call before or after Start().
func (s *Session) SetAnalyticsSink(sink AnalyticsSink) {
	s.bus.SetAnalyticsSink(sink)
}

// SetEnricher wires the optional pre-Flash enrichment collaborator,
// e.g. a RAG hint synthesiser. Must be called after Start() has
// created the orchestrator, or it is a no-op; callers that need it from
// the first final segment should call it immediately after Start().
func (s *Session) SetEnricher(e Enricher) {
	s.mu.Lock()
	o := s.orchestrator
	s.mu.Unlock()
	if o != nil {
		o.SetEnricher(e)
	}
}

func (s *Session) setState(r RunState) {
	s.mu.Lock()
	s.state = r
	s.mu.Unlock()
}

func (s *Session) currentState() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start validates configuration and transitions Idle→Starting→Running,
// fanning out the A→B and B→C→E tasks. Returns an error (and stays
// Idle) if configuration is invalid.
func (s *Session) Start(parentCtx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = StateStarting
	if s.pendingSrc != nil {
		s.audioSrc = s.pendingSrc
		s.pendingSrc = nil
	}
	audioSrc := s.audioSrc
	stt := s.stt
	router := s.router
	mode := ResolveMode(s.config.Mode)
	s.mu.Unlock()

	if audioSrc == nil {
		s.setState(StateIdle)
		s.emitError(ErrNoAudioSource)
		return ErrNoAudioSource
	}
	if stt == nil {
		s.setState(StateIdle)
		s.emitError(ErrNoSTTKey)
		return ErrNoSTTKey
	}

	runCtx, cancel := context.WithCancel(parentCtx)
	s.context.SetModePrompt(mode.ContextDescription())
	s.orchestrator = NewAnalysisOrchestrator(s.id, router, s.context, s.bus, mode, s.logger)

	samples, err := audioSrc.Start(runCtx)
	if err != nil {
		cancel()
		s.setState(StateIdle)
		s.emitError(err)
		return err
	}

	sttChan, err := stt.StreamTranscribe(runCtx, s.config.SampleRate, s.onSegment, s.onSTTError)
	if err != nil {
		cancel()
		audioSrc.Stop()
		s.setState(StateIdle)
		s.emitError(err)
		return err
	}

	s.mu.Lock()
	s.runCancel = cancel
	s.drained = make(chan struct{})
	s.startedAt = time.Now()
	s.mu.Unlock()

	go s.forwardAudio(runCtx, samples, sttChan, audioSrc)

	s.setState(StateRunning)
	s.bus.Publish(PipelineEvent{Type: EventStarted, SessionID: s.id})
	return nil
}

// forwardAudio is the A→B task: encode each f32 frame to PCM16 and push
// it to the STT provider, until the context is cancelled or the audio
// source's channel closes (device loss).
func (s *Session) forwardAudio(ctx context.Context, samples <-chan []float32, sttChan chan<- []byte, src AudioSource) {
	defer close(s.drained)

	s.mu.Lock()
	vad := s.vad
	guard := s.echoGuard
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-samples:
			if !ok {
				if err := src.Err(); err != nil {
					s.logger.Error("audio source lost", "sessionID", s.id, "error", err)
					s.bus.Publish(PipelineEvent{Type: EventError, SessionID: s.id, Err: err.Error()})
					go s.Stop()
				}
				return
			}
			pcm := audio.EncodePCM16LE(frame)
			if guard != nil && guard.IsEcho(pcm) {
				continue
			}
			if vad != nil {
				vad.Process(pcm)
				if !vad.IsSpeaking() {
					continue
				}
			}
			select {
			case sttChan <- pcm:
			case <-ctx.Done():
				return
			}
		}
	}
}

// onSegment is the B→C callback: buffer the segment, emit Transcript,
// and on a non-empty final trigger the orchestrator.
func (s *Session) onSegment(seg TranscriptSegment) error {
	if s.currentState() != StateRunning {
		return nil
	}
	s.transcript.Add(seg)
	if seg.Text != "" {
		s.bus.Publish(PipelineEvent{Type: EventTranscript, SessionID: s.id, Text: seg.Text})
	}
	if seg.IsFinal && seg.Text != "" {
		s.orchestrator.OnFinalSegment(context.Background(), seg.Text)
	}
	return nil
}

// onSTTError is the STT error callback: a mid-stream transport failure
// is reported as an Error event. The session stays Running so the user
// can stop/restart manually; there is no retry at this layer.
func (s *Session) onSTTError(err error) {
	if err == nil {
		return
	}
	s.logger.Error("stt stream failed", "sessionID", s.id, "error", err)
	s.bus.Publish(PipelineEvent{Type: EventError, SessionID: s.id, Err: err.Error()})
}

// Stop signals cancellation, lets the A→B task drain, cancels any
// in-flight Flash/Deep, clears the buffer and emits Stopped. Safe to
// call more than once; a second call while already Stopping/Idle is a
// no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	cancel := s.runCancel
	drained := s.drained
	audioSrc := s.audioSrc
	orch := s.orchestrator
	s.mu.Unlock()

	if orch != nil {
		orch.Cancel()
	}
	if cancel != nil {
		cancel()
	}
	if audioSrc != nil {
		audioSrc.Stop()
	}
	if drained != nil {
		<-drained
	}

	s.transcript.Clear()
	if s.echoGuard != nil {
		s.echoGuard.Clear()
	}
	s.setState(StateIdle)
	s.bus.Publish(PipelineEvent{Type: EventStopped, SessionID: s.id})
	return nil
}

// State returns the shared-state snapshot exposed to a GUI/shell.
func (s *Session) State() Snapshot {
	running := s.currentState() == StateRunning
	snap := Snapshot{IsRunning: running, Transcript: s.transcript.CurrentText()}

	if s.orchestrator != nil {
		flash, deepContent, deepStreaming, question, lastErr := s.orchestrator.Snapshot()
		snap.Flash = flash
		snap.DeepContent = deepContent
		snap.DeepStreaming = deepStreaming
		snap.Question = question
		snap.Error = lastErr
	}
	return snap
}

func (s *Session) emitError(err error) {
	s.bus.Publish(PipelineEvent{Type: EventError, SessionID: s.id, Err: err.Error()})
}

// Close releases the event bus. Call after a final Stop() if the
// session will never be restarted.
func (s *Session) Close() {
	s.bus.Close()
}

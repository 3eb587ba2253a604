package copilot

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

var knownStatementTypes = map[StatementType]bool{
	StatementQuestion: true, StatementObjection: true, StatementStatement: true,
	StatementBuyingSignal: true, StatementTechnical: true, StatementSmallTalk: true,
}

var knownUrgencies = map[Urgency]bool{
	UrgencyAnswerNow: true, UrgencyCanElaborate: true, UrgencyJustListening: true,
}

// AnalysisOrchestrator implements the analysis trigger rule: exactly once
// per non-empty final segment, it runs Flash then (on success) Deep,
// cancelling any earlier in-flight pair the moment a newer final arrives.
// It never runs two Flash or two Deep requests concurrently for the same
// session.
type AnalysisOrchestrator struct {
	router   *HybridRouter
	context  *ContextStore
	intents  *IntentAnalyzer
	bus      *EventBus
	logger   Logger
	enricher Enricher

	sessionID string

	mu         sync.Mutex
	generation int
	cancel     context.CancelFunc

	stateMu       sync.RWMutex
	flash         *FlashAnalysis
	deepContent   string
	deepStreaming bool
	question      string
	lastError     string

	mode Mode
}

// NewAnalysisOrchestrator wires a router, context store, event bus and
// intent analyser into one orchestrator for a single session.
func NewAnalysisOrchestrator(sessionID string, router *HybridRouter, ctxStore *ContextStore, bus *EventBus, mode Mode, logger Logger) *AnalysisOrchestrator {
	if logger == nil {
		logger = NoOpLogger{}
	}
	if mode == nil {
		mode = NewDefaultMode()
	}
	return &AnalysisOrchestrator{
		router:    router,
		context:   ctxStore,
		intents:   NewIntentAnalyzer(),
		bus:       bus,
		logger:    logger,
		enricher:  NoopEnricher{},
		sessionID: sessionID,
		mode:      mode,
	}
}

// SetMode swaps the active mode; future Flash/Deep prompts and bullet
// customisation use it. Safe to call mid-session.
func (o *AnalysisOrchestrator) SetMode(m Mode) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	o.mode = m
	o.context.SetModePrompt(m.ContextDescription())
}

// SetEnricher wires the optional pre-Flash enrichment collaborator
// (e.g. a RAG hint synthesiser). Passing nil restores the no-op default.
func (o *AnalysisOrchestrator) SetEnricher(e Enricher) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	if e == nil {
		e = NoopEnricher{}
	}
	o.enricher = e
}

func (o *AnalysisOrchestrator) currentEnricher() Enricher {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.enricher
}

func (o *AnalysisOrchestrator) currentMode() Mode {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.mode
}

func (o *AnalysisOrchestrator) emit(ev PipelineEvent) {
	ev.SessionID = o.sessionID
	o.bus.Publish(ev)
}

// Snapshot returns the orchestrator's contribution to Session.State().
func (o *AnalysisOrchestrator) Snapshot() (flash *FlashAnalysis, deepContent string, deepStreaming bool, question, lastError string) {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.flash, o.deepContent, o.deepStreaming, o.question, o.lastError
}

// OnFinalSegment implements the trigger rule for one accepted final
// transcript segment. It must be called from the single B→C forwarder
// task; callers never need to serialise concurrent calls themselves
// since the orchestrator serialises internally via its generation lock.
func (o *AnalysisOrchestrator) OnFinalSegment(parentCtx context.Context, text string) {
	if text == "" {
		return
	}

	mode := o.currentMode()
	intent := o.intents.Analyze(text)
	o.context.AddTheirTurn(text, string(intent.Category))

	o.mu.Lock()
	o.generation++
	gen := o.generation
	if o.cancel != nil {
		o.cancel()
	}
	reqCtx, cancel := context.WithCancel(parentCtx)
	o.cancel = cancel
	o.mu.Unlock()

	go o.runFlashThenDeep(reqCtx, gen, text, mode)
}

func (o *AnalysisOrchestrator) isStale(gen int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen != o.generation
}

func (o *AnalysisOrchestrator) runFlashThenDeep(ctx context.Context, gen int, transcript string, mode Mode) {
	fullContext := o.context.FullContext()

	if enriched, err := o.currentEnricher().Enrich(ctx, o.context.RecentHistory(10)); err == nil && enriched != "" {
		fullContext += "\n\n" + enriched
	} else if err != nil {
		o.logger.Debug("enricher failed, continuing without enrichment", "error", err, "sessionID", o.sessionID)
	}

	if o.isStale(gen) || ctx.Err() != nil {
		return
	}

	flash, err := o.runFlash(ctx, gen, transcript, fullContext, mode)
	if err != nil || flash == nil {
		return
	}
	if o.isStale(gen) || ctx.Err() != nil {
		return
	}

	bullets := make([]string, 0, len(flash.Bullets))
	for _, b := range flash.Bullets {
		bullets = append(bullets, b.Text)
	}
	history := o.context.RecentHistory(10)

	o.runDeep(ctx, gen, transcript, fullContext, bullets, history, mode)
}

func (o *AnalysisOrchestrator) runFlash(ctx context.Context, gen int, transcript, fullContext string, mode Mode) (*FlashAnalysis, error) {
	messages := buildFlashMessages(transcript, fullContext, mode.PromptAdditions())
	provider := o.router.Route(transcript, o.router.RefreshLiveness(ctx))

	raw, err := o.router.InvokeFlash(ctx, provider, messages)
	if o.isStale(gen) || ctx.Err() != nil {
		return nil, ErrCancelled
	}
	if err != nil {
		o.setError(err.Error())
		o.emit(PipelineEvent{Type: EventError, Err: err.Error()})
		return nil, err
	}

	var flash FlashAnalysis
	if jsonErr := json.Unmarshal([]byte(raw), &flash); jsonErr != nil {
		o.logger.Warn("flash response malformed", "error", jsonErr, "sessionID", o.sessionID)
		o.setError(ErrFlashMalformed.Error())
		o.emit(PipelineEvent{Type: EventError, Err: ErrFlashMalformed.Error()})
		return nil, ErrFlashMalformed
	}

	if !knownStatementTypes[flash.StatementType] {
		flash.StatementType = StatementUnknown
	}
	if !knownUrgencies[flash.Urgency] {
		flash.Urgency = UrgencyUnknown
	}
	flash.Bullets = mode.CustomizeBullets(flash.Bullets)
	sort.SliceStable(flash.Bullets, func(i, j int) bool { return flash.Bullets[i].Priority < flash.Bullets[j].Priority })
	if len(flash.Bullets) > 5 {
		flash.Bullets = flash.Bullets[:5]
	}

	if o.isStale(gen) || ctx.Err() != nil {
		return nil, ErrCancelled
	}

	o.stateMu.Lock()
	o.flash = &flash
	o.lastError = ""
	o.stateMu.Unlock()

	o.emit(PipelineEvent{Type: EventFlashReady, Flash: &flash})
	return &flash, nil
}

func (o *AnalysisOrchestrator) runDeep(ctx context.Context, gen int, transcript, fullContext string, bullets []string, history string, mode Mode) {
	messages := buildDeepMessages(transcript, fullContext, bullets, history, mode.PromptAdditions())
	provider := o.router.Route(transcript, o.router.RefreshLiveness(ctx))

	o.stateMu.Lock()
	o.deepContent = ""
	o.deepStreaming = true
	o.question = ""
	o.stateMu.Unlock()

	parser := &deepStreamParser{}

	err := o.router.InvokeDeep(ctx, provider, messages, func(delta string) error {
		if o.isStale(gen) {
			return ErrCancelled
		}
		parser.Feed(delta, func(chunk DeepChunk) {
			switch chunk.Kind {
			case DeepContent:
				o.stateMu.Lock()
				o.deepContent += chunk.Text
				o.stateMu.Unlock()
				o.emit(PipelineEvent{Type: EventDeepChunk, Text: chunk.Text})
			case DeepQuestion:
				o.stateMu.Lock()
				o.question = chunk.Text
				o.stateMu.Unlock()
				o.emit(PipelineEvent{Type: EventQuestionReady, Text: chunk.Text})
			}
		})
		return ctx.Err()
	})

	// A cancelled Deep stream emits neither DeepComplete nor Error. A
	// stale goroutine also may not touch the snapshot state, which now
	// belongs to the newer generation.
	if o.isStale(gen) {
		return
	}

	o.stateMu.Lock()
	o.deepStreaming = false
	o.stateMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	if err != nil && err != ErrCancelled {
		o.setError(err.Error())
		o.emit(PipelineEvent{Type: EventError, Err: err.Error()})
		return
	}

	parser.Finish(func(chunk DeepChunk) {
		if chunk.Kind == DeepQuestion {
			o.stateMu.Lock()
			o.question = chunk.Text
			o.stateMu.Unlock()
			o.emit(PipelineEvent{Type: EventQuestionReady, Text: chunk.Text})
		}
	})

	o.emit(PipelineEvent{Type: EventDeepComplete})
}

func (o *AnalysisOrchestrator) setError(msg string) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	o.lastError = msg
}

// Cancel stops any in-flight Flash/Deep request without starting a new
// one. Used by the Session Controller on Stop.
func (o *AnalysisOrchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

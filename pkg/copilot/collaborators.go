package copilot

import "context"

// PersistenceSink is the webhook-style attach point for the out-of-core
// persistence layer: the Session Controller calls it best-effort,
// fire-and-forget, after broadcasting every event to the in-process bus.
// The core never opens a database connection itself.
type PersistenceSink interface {
	Send(ctx context.Context, ev PipelineEvent) error
}

// AnalyticsSink receives the same events as PersistenceSink on a
// separate best-effort channel, for post-hoc turn/bullet aggregation.
// It has no effect on pipeline timing.
type AnalyticsSink interface {
	Send(ctx context.Context, ev PipelineEvent) error
}

// Enricher is the optional pre-Flash enrichment hook: given a recent
// transcript window, it may return additional context to append before
// the Flash prompt is built (e.g. a RAG hint synthesiser over stored
// documents). A nil or empty return means "nothing to add".
type Enricher interface {
	Enrich(ctx context.Context, window string) (string, error)
}

// NoopSink discards every event. The default when no PersistenceSink or
// AnalyticsSink is configured.
type NoopSink struct{}

func (NoopSink) Send(context.Context, PipelineEvent) error { return nil }

// LoggingSink logs every event through a Logger instead of shipping it
// anywhere. Used by the demo harness and by tests that want to observe
// the sink path without standing up a real collaborator.
type LoggingSink struct {
	Logger Logger
}

// NewLoggingSink builds a sink that logs through logger (NoOpLogger if nil).
func NewLoggingSink(logger Logger) LoggingSink {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return LoggingSink{Logger: logger}
}

func (s LoggingSink) Send(_ context.Context, ev PipelineEvent) error {
	s.Logger.Info("sink event", "type", ev.Type, "sessionID", ev.SessionID, "text", ev.Text)
	return nil
}

// NoopEnricher always reports nothing to add. The default when no
// Enricher is configured.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(context.Context, string) (string, error) { return "", nil }

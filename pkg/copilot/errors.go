package copilot

import "errors"

// Configuration errors: fatal to Start().
var (
	ErrNoAudioSource  = errors.New("copilot: no audio source configured")
	ErrNoSTTKey       = errors.New("copilot: no STT credentials configured")
	ErrAlreadyRunning = errors.New("copilot: session already running")
	ErrNotRunning     = errors.New("copilot: session not running")
)

// Transport/parse errors: non-fatal, reported as Error events.
var (
	ErrSTTStreamFailed = errors.New("copilot: STT stream failed")
	ErrFlashFailed     = errors.New("copilot: flash backend failed")
	ErrFlashMalformed  = errors.New("copilot: flash backend returned malformed JSON")
	ErrDeepFailed      = errors.New("copilot: deep backend failed")
	ErrEmptyTranscript = errors.New("copilot: empty transcript")
)

// Router errors.
var (
	ErrNoProviderAvailable = errors.New("copilot: no provider available for request")
	ErrNilProvider         = errors.New("copilot: nil provider")
)

// ErrCancelled is never surfaced as an Error event; cancellation is
// silent.
var ErrCancelled = errors.New("copilot: cancelled")

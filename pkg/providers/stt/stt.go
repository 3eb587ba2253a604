// Package stt implements the speech-to-text provider roster: the
// streaming Deepgram and OpenAI Realtime clients, the batch OpenAI,
// Groq and AssemblyAI clients, and the local sliding-window batcher
// that turns any batch backend into a streaming one.
package stt

import "github.com/lokutor-ai/voice-copilot/pkg/copilot"

// STTProvider and StreamingSTTProvider re-export the copilot capability
// interfaces so constructors in this package can be composed without
// callers importing both packages.
type (
	STTProvider          = copilot.STTProvider
	StreamingSTTProvider = copilot.StreamingSTTProvider
)

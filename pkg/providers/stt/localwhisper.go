package stt

import (
	"context"
	"fmt"
	"time"

	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// LocalWhisperSTT is the local offline STT variant: a sliding-window
// batcher in front of any batch STTProvider (normally an HTTP client
// against a local whisper.cpp/faster-whisper server). It buffers PCM16
// frames into ~windowSecs windows with ~overlapSecs of overlap and runs
// one Transcribe call per window, so the underlying batch endpoint never
// sees more than a few seconds of audio at a time.
type LocalWhisperSTT struct {
	backend     STTProvider
	windowSecs  float64
	overlapSecs float64
}

func NewLocalWhisperSTT(backend STTProvider) *LocalWhisperSTT {
	return &LocalWhisperSTT{
		backend:     backend,
		windowSecs:  3.0,
		overlapSecs: 1.0,
	}
}

func (s *LocalWhisperSTT) Name() string {
	return "local-whisper-stt"
}

func (s *LocalWhisperSTT) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int) (copilot.TranscriptSegment, error) {
	return s.backend.Transcribe(ctx, pcm16, sampleRate)
}

// StreamTranscribe accumulates PCM16 frames into overlapping windows and
// transcribes each window as it fills, emitting every result as final
// (the underlying batch call has no notion of interim output).
func (s *LocalWhisperSTT) StreamTranscribe(ctx context.Context, sampleRate int, onSegment func(copilot.TranscriptSegment) error, onError func(error)) (chan<- []byte, error) {
	in := make(chan []byte, 32)

	windowBytes := int(s.windowSecs * float64(sampleRate) * 2)
	overlapBytes := int(s.overlapSecs * float64(sampleRate) * 2)

	go func() {
		var buf []byte
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-in:
				if !ok {
					return
				}
				buf = append(buf, frame...)
				if len(buf) < windowBytes {
					continue
				}

				window := make([]byte, windowBytes)
				copy(window, buf[:windowBytes])

				seg, err := s.backend.Transcribe(ctx, window, sampleRate)
				if err != nil {
					if ctx.Err() == nil && onError != nil {
						onError(fmt.Errorf("%w: %w", copilot.ErrSTTStreamFailed, err))
					}
				} else if seg.Text != "" {
					seg.IsFinal = true
					seg.Timestamp = time.Now()
					if onSegment(seg) != nil {
						return
					}
				}

				if overlapBytes >= windowBytes {
					buf = nil
				} else {
					keep := windowBytes - overlapBytes
					buf = append([]byte{}, buf[keep:]...)
				}
			}
		}
	}()

	return in, nil
}

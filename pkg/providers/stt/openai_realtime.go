package stt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// OpenAIRealtimeSTT drives OpenAI's Realtime API as a transcription-only
// session. The client opens one
// session, sends a session.update fixing the input format to pcm16, then
// streams input_audio_buffer.append events as base64-encoded frames and
// watches for input_audio_transcription.completed events.
type OpenAIRealtimeSTT struct {
	apiKey string
	url    string
	model  string
}

func NewOpenAIRealtimeSTT(apiKey string, model string) *OpenAIRealtimeSTT {
	if model == "" {
		model = "gpt-4o-realtime-preview"
	}
	return &OpenAIRealtimeSTT{
		apiKey: apiKey,
		url:    "wss://api.openai.com/v1/realtime",
		model:  model,
	}
}

func (s *OpenAIRealtimeSTT) Name() string {
	return "openai-realtime-stt"
}

// Transcribe is unsupported: the realtime API is session-oriented, not a
// one-shot call. StreamTranscribe is the only usable entry point.
func (s *OpenAIRealtimeSTT) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int) (copilot.TranscriptSegment, error) {
	return copilot.TranscriptSegment{}, fmt.Errorf("openai-realtime-stt: batch Transcribe not supported, use StreamTranscribe")
}

type realtimeEvent struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Delta      string `json:"delta"`
}

func (s *OpenAIRealtimeSTT) StreamTranscribe(ctx context.Context, sampleRate int, onSegment func(copilot.TranscriptSegment) error, onError func(error)) (chan<- []byte, error) {
	u := s.url + "?model=" + s.model
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": {"Bearer " + s.apiKey},
			"OpenAI-Beta":   {"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai realtime: dial failed: %w", err)
	}

	sessionUpdate := map[string]interface{}{
		"type": "session.update",
		"session": map[string]interface{}{
			"input_audio_format": "pcm16",
			"input_audio_transcription": map[string]interface{}{
				"model": "whisper-1",
			},
		},
	}
	if err := wsjson.Write(ctx, conn, sessionUpdate); err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "session.update failed")
		return nil, fmt.Errorf("openai realtime: session.update failed: %w", err)
	}

	in := make(chan []byte, 32)
	var closeOnce sync.Once
	closeConn := func(reason string) {
		closeOnce.Do(func() { conn.Close(websocket.StatusNormalClosure, reason) })
	}

	go func() {
		defer closeConn("writer done")
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-in:
				if !ok {
					return
				}
				msg := map[string]interface{}{
					"type":  "input_audio_buffer.append",
					"audio": base64.StdEncoding.EncodeToString(frame),
				}
				if err := wsjson.Write(ctx, conn, msg); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer closeConn("reader done")
		for {
			_, payload, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil && onError != nil {
					onError(fmt.Errorf("%w: %w", copilot.ErrSTTStreamFailed, err))
				}
				return
			}
			var event realtimeEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				continue
			}
			switch event.Type {
			case "conversation.item.input_audio_transcription.completed":
				seg := copilot.TranscriptSegment{
					Text:      event.Transcript,
					IsFinal:   true,
					Speaker:   copilot.SpeakerOther,
					Timestamp: time.Now(),
				}
				if err := onSegment(seg); err != nil {
					return
				}
			case "conversation.item.input_audio_transcription.delta":
				seg := copilot.TranscriptSegment{
					Text:      event.Delta,
					IsFinal:   false,
					Speaker:   copilot.SpeakerOther,
					Timestamp: time.Now(),
				}
				if err := onSegment(seg); err != nil {
					return
				}
			}
		}
	}()

	return in, nil
}

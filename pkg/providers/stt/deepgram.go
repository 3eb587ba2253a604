package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// DeepgramSTT is a WebSocket client for Deepgram's streaming listen
// endpoint, emitting interim and final segments. The batch Transcribe
// method hits the equivalent one-shot HTTP endpoint for callers (and
// tests) that don't need the streaming path.
type DeepgramSTT struct {
	apiKey   string
	batchURL string
	wsURL    string
}

func NewDeepgramSTT(apiKey string) *DeepgramSTT {
	return &DeepgramSTT{
		apiKey:   apiKey,
		batchURL: "https://api.deepgram.com/v1/listen",
		wsURL:    "wss://api.deepgram.com/v1/listen",
	}
}

func (s *DeepgramSTT) Name() string {
	return "deepgram-stt"
}

func (s *DeepgramSTT) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int) (copilot.TranscriptSegment, error) {
	u, err := url.Parse(s.batchURL)
	if err != nil {
		return copilot.TranscriptSegment{}, err
	}

	params := u.Query()
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	params.Set("encoding", "linear16")
	params.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	params.Set("channels", "1")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(pcm16))
	if err != nil {
		return copilot.TranscriptSegment{}, err
	}

	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", sampleRate))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return copilot.TranscriptSegment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return copilot.TranscriptSegment{}, fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result deepgramResultsEvent
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return copilot.TranscriptSegment{}, err
	}
	return result.segment(), nil
}

type deepgramResultsEvent struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (e deepgramResultsEvent) segment() copilot.TranscriptSegment {
	alts := e.Channel.Alternatives
	if len(alts) == 0 && len(e.Results.Channels) > 0 {
		alts = e.Results.Channels[0].Alternatives
	}
	if len(alts) == 0 {
		return copilot.TranscriptSegment{IsFinal: e.IsFinal, Timestamp: time.Now()}
	}
	return copilot.TranscriptSegment{
		Text:       alts[0].Transcript,
		Confidence: alts[0].Confidence,
		IsFinal:    e.IsFinal,
		Speaker:    copilot.SpeakerOther,
		Timestamp:  time.Now(),
	}
}

// StreamTranscribe opens the Deepgram streaming WebSocket and returns a
// channel the caller pushes raw PCM16 frames into. Each frame becomes one
// binary WebSocket message; JSON Results events are decoded and handed to
// onSegment as they arrive. The connection closes, and the returned
// channel's consumer goroutine exits, when ctx is cancelled.
func (s *DeepgramSTT) StreamTranscribe(ctx context.Context, sampleRate int, onSegment func(copilot.TranscriptSegment) error, onError func(error)) (chan<- []byte, error) {
	u := url.URL{Scheme: "wss", Host: "api.deepgram.com", Path: "/v1/listen"}
	params := u.Query()
	params.Set("encoding", "linear16")
	params.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	params.Set("channels", "1")
	params.Set("interim_results", "true")
	params.Set("punctuate", "true")
	params.Set("smart_format", "true")
	u.RawQuery = params.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Token " + s.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial failed: %w", err)
	}

	in := make(chan []byte, 32)
	var closeOnce sync.Once
	closeConn := func(reason string) {
		closeOnce.Do(func() {
			conn.Close(websocket.StatusNormalClosure, reason)
		})
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
				if err := conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
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
			var event deepgramResultsEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				continue
			}
			if event.Type != "Results" && event.Type != "" {
				continue
			}
			if err := onSegment(event.segment()); err != nil {
				return
			}
		}
	}()

	return in, nil
}

package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lokutor-ai/voice-copilot/pkg/audio"
	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// OpenAISTT wraps OpenAI's Whisper transcriptions endpoint: a batch
// upload-and-wait call, kept as a fourth batch variant alongside
// AssemblyAI for deployments without a live WebSocket STT key.
type OpenAISTT struct {
	apiKey string
	url    string
	model  string
}

func NewOpenAISTT(apiKey string, model string) *OpenAISTT {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAISTT{
		apiKey: apiKey,
		url:    "https://api.openai.com/v1/audio/transcriptions",
		model:  model,
	}
}

func (s *OpenAISTT) Name() string {
	return "openai-stt"
}

func (s *OpenAISTT) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int) (copilot.TranscriptSegment, error) {
	wavData := audio.NewWavBuffer(pcm16, sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return copilot.TranscriptSegment{}, err
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return copilot.TranscriptSegment{}, err
	}
	if _, err := part.Write(wavData); err != nil {
		return copilot.TranscriptSegment{}, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return copilot.TranscriptSegment{}, err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return copilot.TranscriptSegment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return copilot.TranscriptSegment{}, fmt.Errorf("openai stt error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return copilot.TranscriptSegment{}, err
	}

	return copilot.TranscriptSegment{
		Text:      result.Text,
		IsFinal:   true,
		Speaker:   copilot.SpeakerOther,
		Timestamp: time.Now(),
	}, nil
}

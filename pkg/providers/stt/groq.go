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

// GroqSTT hits Groq's hosted whisper-large-v3-turbo endpoint. An
// additional batch option alongside OpenAISTT for deployments that want
// Groq's inference speed for the parity/testing STT path.
type GroqSTT struct {
	apiKey string
	url    string
	model  string
}

func NewGroqSTT(apiKey string, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/audio/transcriptions",
		model:  model,
	}
}

func (s *GroqSTT) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int) (copilot.TranscriptSegment, error) {
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
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return copilot.TranscriptSegment{}, err
	}

	if err := writer.Close(); err != nil {
		return copilot.TranscriptSegment{}, err
	}

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
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return copilot.TranscriptSegment{}, fmt.Errorf("groq stt error (status %d): %v", resp.StatusCode, errResp)
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

func (s *GroqSTT) Name() string {
	return "groq-stt"
}

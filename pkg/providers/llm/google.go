package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// GoogleLLM speaks the Gemini generateContent API. System and assistant
// roles are mapped onto Gemini's user/model vocabulary.
type GoogleLLM struct {
	apiKey string
	model  string
	base   string
}

func NewGoogleLLM(apiKey string, model string) *GoogleLLM {
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return &GoogleLLM{
		apiKey: apiKey,
		model:  model,
		base:   "https://generativelanguage.googleapis.com/v1beta/models/" + model,
	}
}

type googlePart struct {
	Text string `json:"text"`
}

type googleMessage struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

func toGoogleMessages(messages []copilot.Message) []googleMessage {
	out := make([]googleMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "system" {
			role = "user"
		}
		if role == "assistant" {
			role = "model"
		}
		out = append(out, googleMessage{Role: role, Parts: []googlePart{{Text: m.Content}}})
	}
	return out
}

func (l *GoogleLLM) Complete(ctx context.Context, messages []copilot.Message) (string, error) {
	payload := map[string]interface{}{"contents": toGoogleMessages(messages)}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.base+":generateContent?key="+l.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("google llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []googlePart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from google llm")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// CompleteStream uses Gemini's streamGenerateContent SSE endpoint.
func (l *GoogleLLM) CompleteStream(ctx context.Context, messages []copilot.Message, onDelta func(string) error) error {
	payload := map[string]interface{}{"contents": toGoogleMessages(messages)}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := l.base + ":streamGenerateContent?alt=sse&key=" + l.apiKey
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("google llm error (status %d): %v", resp.StatusCode, errResp)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk struct {
			Candidates []struct {
				Content struct {
					Parts []googlePart `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			continue
		}
		for _, c := range chunk.Candidates {
			for _, p := range c.Content.Parts {
				if p.Text == "" {
					continue
				}
				if err := onDelta(p.Text); err != nil {
					return err
				}
			}
		}
	}
	return scanner.Err()
}

func (l *GoogleLLM) Name() string {
	return "google-llm"
}

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// OllamaLLM is the local inference backend: a plain HTTP client against
// an Ollama-compatible endpoint, speaking its native /api/chat NDJSON
// protocol rather than the OpenAI shim most Ollama installs also expose.
type OllamaLLM struct {
	url   string
	model string
}

func NewOllamaLLM(baseURL string, model string) *OllamaLLM {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaLLM{url: baseURL, model: model}
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (l *OllamaLLM) Complete(ctx context.Context, messages []copilot.Message) (string, error) {
	payload := map[string]interface{}{
		"model":    l.model,
		"messages": messages,
		"stream":   false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url+"/api/chat", bytes.NewReader(body))
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
		return "", fmt.Errorf("ollama llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

// CompleteStream reads the NDJSON stream /api/chat produces by default,
// forwarding each message.content fragment until a line with done:true.
func (l *OllamaLLM) CompleteStream(ctx context.Context, messages []copilot.Message, onDelta func(string) error) error {
	payload := map[string]interface{}{
		"model":    l.model,
		"messages": messages,
		"stream":   true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("ollama llm error (status %d): %v", resp.StatusCode, errResp)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			if err := onDelta(chunk.Message.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}
	return scanner.Err()
}

func (l *OllamaLLM) Name() string {
	return "ollama-llm"
}

// Probe reports whether the local Ollama daemon is reachable. Used as a
// copilot.LocalProbe by the Hybrid Router's liveness check.
func (l *OllamaLLM) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", l.url+"/api/tags", nil)
	if err != nil {
		return false
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Package config loads API keys and runtime settings from the
// environment (and an optional .env file) into the shapes the copilot
// package's constructors expect.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
)

// Keys holds every provider credential the demo harness might need.
// Unset fields are empty strings; callers decide which are required for
// the providers they actually construct.
type Keys struct {
	OpenAI     string
	Anthropic  string
	Google     string
	Groq       string
	Deepgram   string
	AssemblyAI string
	OllamaURL  string
}

// Load reads .env (if present) then the process environment. A missing
// .env file is not an error: system environment variables are a valid
// deployment path on their own.
func Load() Keys {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using system environment variables")
	}

	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}

	return Keys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		Anthropic:  os.Getenv("ANTHROPIC_API_KEY"),
		Google:     os.Getenv("GOOGLE_API_KEY"),
		Groq:       os.Getenv("GROQ_API_KEY"),
		Deepgram:   os.Getenv("DEEPGRAM_API_KEY"),
		AssemblyAI: os.Getenv("ASSEMBLYAI_API_KEY"),
		OllamaURL:  ollamaURL,
	}
}

// SessionConfig builds a copilot.Config from environment overrides
// layered on copilot.DefaultConfig().
func SessionConfig() copilot.Config {
	cfg := copilot.DefaultConfig()

	if mode := os.Getenv("COPILOT_MODE"); mode != "" {
		cfg.Mode = mode
	}

	if strategy := os.Getenv("COPILOT_ROUTING_STRATEGY"); strategy != "" {
		cfg.Strategy = parseStrategy(strategy)
	}

	if timeout := os.Getenv("COPILOT_LOCAL_PROBE_TIMEOUT_MS"); timeout != "" {
		if ms, err := time.ParseDuration(timeout + "ms"); err == nil {
			cfg.LocalProbeTimeout = ms
		}
	}

	return cfg
}

func parseStrategy(s string) copilot.RoutingStrategy {
	switch s {
	case "always_local":
		return copilot.StrategyAlwaysLocal
	case "always_cloud":
		return copilot.StrategyAlwaysCloud
	case "local_with_fallback":
		return copilot.StrategyLocalWithFallback
	case "speed_first":
		return copilot.StrategySpeedFirst
	case "quality_first":
		return copilot.StrategyQualityFirst
	case "smart":
		fallthrough
	default:
		return copilot.StrategySmart
	}
}

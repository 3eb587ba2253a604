// Command copilotd is a terminal demo harness for the live conversation
// pipeline: it wires one audio source, one STT provider and the three
// cloud LLM backends (plus an optional local Ollama backend) into a
// copilot.Session, prints events to the console, and exits on SIGINT.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lokutor-ai/voice-copilot/internal/config"
	"github.com/lokutor-ai/voice-copilot/pkg/audio"
	"github.com/lokutor-ai/voice-copilot/pkg/copilot"
	"github.com/lokutor-ai/voice-copilot/pkg/providers/llm"
	"github.com/lokutor-ai/voice-copilot/pkg/providers/stt"
)

// stdLogger adapts the standard log package to the copilot.Logger
// capability for the demo harness.
type stdLogger struct{}

func (stdLogger) Debug(msg string, kv ...interface{}) { logKV("DEBUG", msg, kv) }
func (stdLogger) Info(msg string, kv ...interface{})  { logKV("INFO", msg, kv) }
func (stdLogger) Warn(msg string, kv ...interface{})  { logKV("WARN", msg, kv) }
func (stdLogger) Error(msg string, kv ...interface{}) { logKV("ERROR", msg, kv) }

func logKV(level, msg string, kv []interface{}) {
	log.Println(append([]interface{}{level, msg}, kv...)...)
}

func main() {
	keys := config.Load()
	logger := stdLogger{}

	sttProviderName := os.Getenv("COPILOT_STT_PROVIDER")
	if sttProviderName == "" {
		sttProviderName = "deepgram"
	}

	var sttClient copilot.StreamingSTTProvider
	switch sttProviderName {
	case "openai-realtime":
		if keys.OpenAI == "" {
			log.Fatal("copilotd: OPENAI_API_KEY must be set for openai-realtime STT")
		}
		sttClient = stt.NewOpenAIRealtimeSTT(keys.OpenAI, "")
	case "local-whisper":
		// Sliding-window batcher in front of whichever batch backend the
		// operator has keys for; prefers Groq's whisper endpoint for speed.
		var backend stt.STTProvider
		switch {
		case keys.Groq != "":
			backend = stt.NewGroqSTT(keys.Groq, "whisper-large-v3-turbo")
		case keys.OpenAI != "":
			backend = stt.NewOpenAISTT(keys.OpenAI, "")
		case keys.AssemblyAI != "":
			backend = stt.NewAssemblyAISTT(keys.AssemblyAI)
		default:
			log.Fatal("copilotd: local-whisper STT needs GROQ_API_KEY, OPENAI_API_KEY or ASSEMBLYAI_API_KEY for its batch backend")
		}
		sttClient = stt.NewLocalWhisperSTT(backend)
	case "deepgram":
		fallthrough
	default:
		if keys.Deepgram == "" {
			log.Fatal("copilotd: DEEPGRAM_API_KEY must be set for deepgram STT")
		}
		sttClient = stt.NewDeepgramSTT(keys.Deepgram)
	}

	ollama := llm.NewOllamaLLM(keys.OllamaURL, "")

	var openai, anthropic, google copilot.StreamingLLMProvider
	if keys.OpenAI != "" {
		openai = llm.NewOpenAILLM(keys.OpenAI, "")
	}
	if keys.Anthropic != "" {
		anthropic = llm.NewAnthropicLLM(keys.Anthropic, "")
	}
	if keys.Google != "" {
		google = llm.NewGoogleLLM(keys.Google, "")
	}

	routerCfg := config.SessionConfig()
	router := copilot.NewHybridRouter(copilot.RouterConfig{
		Strategy:          routerCfg.Strategy,
		ComplexityFloor:   routerCfg.ComplexityFloor,
		LocalProbeTimeout: routerCfg.LocalProbeTimeout,
		LocalCallTimeout:  routerCfg.LocalCallTimeout,
		LocalLivenessTTL:  10 * time.Second,
	}, ollama, openai, anthropic, google, ollama.Probe, logger)

	audioSrc := audio.NewMalgoSource(audio.AudioSourceSelection{Kind: audio.AudioSourceLoopback})

	session := copilot.NewSession("copilotd-session", router, sttClient, audioSrc, routerCfg, logger)

	// Persistence/analytics are out-of-core collaborators; the demo
	// harness only logs in their place.
	if os.Getenv("COPILOT_LOG_EVENTS") != "" {
		sink := copilot.NewLoggingSink(logger)
		session.SetPersistenceSink(sink)
		session.SetAnalyticsSink(sink)
	}

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	go func() {
		for ev := range events {
			printEvent(ev)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Start(ctx); err != nil {
		log.Fatalf("copilotd: failed to start session: %v", err)
	}
	fmt.Println("copilotd running. Press Ctrl+C to stop.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nshutting down...")
	session.Stop()
	session.Close()
}

func printEvent(ev copilot.PipelineEvent) {
	switch ev.Type {
	case copilot.EventStarted:
		fmt.Println("[started]")
	case copilot.EventStopped:
		fmt.Println("[stopped]")
	case copilot.EventTranscript:
		fmt.Printf("\r[transcript] %s\n", ev.Text)
	case copilot.EventFlashReady:
		if ev.Flash == nil {
			return
		}
		fmt.Printf("[flash] %s (%s/%s)\n", ev.Flash.Summary, ev.Flash.StatementType, ev.Flash.Urgency)
		for _, b := range ev.Flash.Bullets {
			fmt.Printf("  %d. %s\n", b.Priority, b.Text)
		}
	case copilot.EventDeepChunk:
		fmt.Print(ev.Text)
	case copilot.EventDeepComplete:
		fmt.Println()
		fmt.Println("[deep complete]")
	case copilot.EventQuestionReady:
		fmt.Printf("[question] %s\n", strings.TrimSpace(ev.Text))
	case copilot.EventError:
		fmt.Printf("[error] %s\n", ev.Err)
	}
}

package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func toneFrame(amplitude int16, samples int) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(amplitude))
	}
	return out
}

func TestSpeechGateRequiresConsecutiveFramesToConfirmStart(t *testing.T) {
	gate := NewSpeechGate(0.1, 50*time.Millisecond)
	gate.SetMinConfirmed(3)
	loud := toneFrame(20000, 160)

	for i := 0; i < 2; i++ {
		ev := gate.Process(loud)
		if gate.IsSpeaking() {
			t.Fatalf("expected not speaking before %d confirmed frames, got speaking after frame %d (event %+v)", 3, i+1, ev)
		}
	}

	ev := gate.Process(loud)
	if !gate.IsSpeaking() {
		t.Fatal("expected speaking true after the confirmation threshold is reached")
	}
	if ev == nil || ev.Type != VADSpeechStart {
		t.Fatalf("expected a VADSpeechStart event on the confirming frame, got %+v", ev)
	}
}

func TestSpeechGateBriefSpikeDoesNotConfirmSpeech(t *testing.T) {
	gate := NewSpeechGate(0.1, 50*time.Millisecond)
	gate.SetMinConfirmed(5)
	loud := toneFrame(20000, 160)
	quiet := toneFrame(0, 160)

	gate.Process(loud)
	gate.Process(loud)
	gate.Process(quiet)

	if gate.IsSpeaking() {
		t.Error("expected a brief spike below the confirmation count to never confirm speech")
	}
}

func TestSpeechGateSilenceLimitEndsSpeech(t *testing.T) {
	gate := NewSpeechGate(0.1, 20*time.Millisecond)
	gate.SetMinConfirmed(1)
	loud := toneFrame(20000, 160)
	quiet := toneFrame(0, 160)

	gate.Process(loud)
	if !gate.IsSpeaking() {
		t.Fatal("expected speech confirmed on the first loud frame with minConfirmed=1")
	}

	gate.Process(quiet) // starts the silence timer
	time.Sleep(30 * time.Millisecond)
	end := gate.Process(quiet) // silence limit has now elapsed

	if end == nil || end.Type != VADSpeechEnd {
		t.Fatalf("expected a VADSpeechEnd event once the silence limit elapses, got %+v", end)
	}
	if gate.IsSpeaking() {
		t.Error("expected speaking false after VADSpeechEnd")
	}
}

func TestSpeechGateBriefGapDoesNotEndSpeech(t *testing.T) {
	gate := NewSpeechGate(0.1, time.Hour)
	gate.SetMinConfirmed(1)
	loud := toneFrame(20000, 160)
	quiet := toneFrame(0, 160)

	gate.Process(loud)
	gate.Process(quiet)
	gate.Process(quiet)

	if !gate.IsSpeaking() {
		t.Error("expected a brief quiet gap well under the silence limit to not end speech")
	}
}

func TestSpeechGateResetClearsState(t *testing.T) {
	gate := NewSpeechGate(0.1, time.Millisecond)
	gate.SetMinConfirmed(1)
	gate.Process(toneFrame(20000, 160))
	if !gate.IsSpeaking() {
		t.Fatal("expected speaking true before Reset")
	}

	gate.Reset()
	if gate.IsSpeaking() {
		t.Error("expected Reset to clear the speaking flag")
	}
}

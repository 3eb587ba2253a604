package audio

import (
	"bytes"
	"testing"
)

func TestNewWavBuffer(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	sampleRate := 16000
	wav := NewWavBuffer(pcm, sampleRate)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}
	if !bytes.Contains(wav, []byte("data")) {
		t.Errorf("expected data chunk")
	}

	expectedLen := 44 + len(pcm)
	if len(wav) != expectedLen {
		t.Errorf("expected length %d, got %d", expectedLen, len(wav))
	}
}

package audio

import (
	"bytes"
	"math"
	"sync"
)

// EchoGuard suppresses capture frames that correlate with audio the
// session itself just played (a UI chime, a TTS-less beep, whatever the
// shell plays back), so the pipeline never transcribes its own output.
// Degrades to a no-op when nothing has been recorded as played.
type EchoGuard struct {
	mu        sync.Mutex
	played    *bytes.Buffer
	maxBuf    int
	threshold float64
	enabled   bool
}

// NewEchoGuard builds a guard with a ~1s played-audio window at the
// given sample rate.
func NewEchoGuard(sampleRate int) *EchoGuard {
	return &EchoGuard{
		played:    new(bytes.Buffer),
		maxBuf:    sampleRate * 2, // 1s of 16-bit mono PCM
		threshold: 0.6,
		enabled:   true,
	}
}

// RecordPlayed appends PCM the session just played back.
func (g *EchoGuard) RecordPlayed(pcm []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.played.Write(pcm)
	if over := g.played.Len() - g.maxBuf; over > 0 {
		g.played.Next(over)
	}
}

// IsEcho reports whether input correlates strongly with recently played
// audio. Returns false immediately if nothing has been played.
func (g *EchoGuard) IsEcho(input []byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.enabled || g.played.Len() == 0 || len(input) == 0 {
		return false
	}
	ref := g.played.Bytes()
	return correlate(input, ref) >= g.threshold
}

// Clear drops the played-audio buffer, e.g. on session restart.
func (g *EchoGuard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.played.Reset()
}

// SetEnabled toggles the guard; disabled guards always report no echo.
func (g *EchoGuard) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

// correlate computes a normalized cross-correlation between the tail of
// ref sized to len(in) and in itself, in PCM16 sample space.
func correlate(in, ref []byte) float64 {
	inSamples := DecodePCM16LE(in)
	refSamples := DecodePCM16LE(ref)
	if len(inSamples) == 0 || len(refSamples) < len(inSamples) {
		return 0
	}
	tail := refSamples[len(refSamples)-len(inSamples):]

	var dot, energyIn, energyRef float64
	for i := range inSamples {
		dot += float64(inSamples[i]) * float64(tail[i])
		energyIn += float64(inSamples[i]) * float64(inSamples[i])
		energyRef += float64(tail[i]) * float64(tail[i])
	}
	if energyIn == 0 || energyRef == 0 {
		return 0
	}
	return dot / math.Sqrt(energyIn*energyRef)
}

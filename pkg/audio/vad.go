package audio

import (
	"math"
	"time"
)

// VADEventKind tags a SpeechGate transition.
type VADEventKind int

const (
	VADSpeechStart VADEventKind = iota
	VADSpeechEnd
	VADSilence
)

// VADEvent reports a transition observed by SpeechGate.Process.
type VADEvent struct {
	Type      VADEventKind
	Timestamp int64
}

// SpeechGate is an RMS-threshold voice activity detector with hysteresis:
// requires minConfirmed consecutive above-threshold frames before
// declaring speech started (filters spikes and echo-onset pops), and a
// silenceLimit of continuous below-threshold audio before declaring it
// ended. Used by a Session, when wired, to avoid forwarding pure silence
// to the STT client.
type SpeechGate struct {
	threshold    float64
	silenceLimit time.Duration
	isSpeaking   bool
	silenceStart time.Time

	consecutiveFrames int
	minConfirmed      int
	lastRMS           float64
}

func NewSpeechGate(threshold float64, silenceLimit time.Duration) *SpeechGate {
	return &SpeechGate{
		threshold:    threshold,
		silenceLimit: silenceLimit,
		minConfirmed: 7, // ~70-100ms of continuous sound at typical frame sizes
	}
}

func (v *SpeechGate) SetMinConfirmed(count int) { v.minConfirmed = count }
func (v *SpeechGate) SetThreshold(t float64)    { v.threshold = t }
func (v *SpeechGate) Threshold() float64        { return v.threshold }
func (v *SpeechGate) LastRMS() float64          { return v.lastRMS }
func (v *SpeechGate) IsSpeaking() bool          { return v.isSpeaking }

// Process consumes one PCM16 frame and reports a transition, if any.
func (v *SpeechGate) Process(pcm16 []byte) *VADEvent {
	rms := rmsOf(pcm16)
	v.lastRMS = rms
	now := time.Now()

	if rms > v.threshold {
		v.consecutiveFrames++
		if !v.isSpeaking {
			if v.consecutiveFrames >= v.minConfirmed {
				v.isSpeaking = true
				return &VADEvent{Type: VADSpeechStart, Timestamp: now.UnixMilli()}
			}
			return nil
		}
		v.silenceStart = time.Time{}
		return nil
	}

	v.consecutiveFrames = 0

	if v.isSpeaking {
		if v.silenceStart.IsZero() {
			v.silenceStart = now
		}
		if now.Sub(v.silenceStart) >= v.silenceLimit {
			v.isSpeaking = false
			v.silenceStart = time.Time{}
			return &VADEvent{Type: VADSpeechEnd, Timestamp: now.UnixMilli()}
		}
	}

	return &VADEvent{Type: VADSilence, Timestamp: now.UnixMilli()}
}

func (v *SpeechGate) Reset() {
	v.isSpeaking = false
	v.silenceStart = time.Time{}
	v.consecutiveFrames = 0
}

func rmsOf(pcm16 []byte) float64 {
	if len(pcm16) == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < len(pcm16)-1; i += 2 {
		sample := int16(pcm16[i]) | (int16(pcm16[i+1]) << 8)
		f := float64(sample) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(pcm16)/2))
}

package copilot

import (
	"strings"
	"sync"
)

// TranscriptBuffer merges interim/final segments into a bounded, coherent
// rolling text view. add(final) clears the interim slot and appends;
// add(interim) replaces the single interim slot. Mutated only by the
// STT-to-buffer forwarder, read by everyone else.
type TranscriptBuffer struct {
	mu      sync.RWMutex
	finals  []TranscriptSegment
	interim *TranscriptSegment
	maxSegs int
}

// NewTranscriptBuffer creates a buffer bounded to maxSegs final segments.
func NewTranscriptBuffer(maxSegs int) *TranscriptBuffer {
	if maxSegs <= 0 {
		maxSegs = 100
	}
	return &TranscriptBuffer{maxSegs: maxSegs}
}

// Add accepts a segment, replacing the interim slot or appending a final.
func (b *TranscriptBuffer) Add(seg TranscriptSegment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !seg.IsFinal {
		b.interim = &seg
		return
	}

	b.interim = nil
	b.finals = append(b.finals, seg)
	if over := len(b.finals) - b.maxSegs; over > 0 {
		b.finals = b.finals[over:]
	}
}

// CurrentText concatenates finals plus the interim tail, if any.
func (b *TranscriptBuffer) CurrentText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.joinLocked(true)
}

// FinalText concatenates finals only.
func (b *TranscriptBuffer) FinalText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.joinLocked(false)
}

func (b *TranscriptBuffer) joinLocked(withInterim bool) string {
	parts := make([]string, 0, len(b.finals)+1)
	for _, f := range b.finals {
		parts = append(parts, f.Text)
	}
	if withInterim && b.interim != nil {
		parts = append(parts, b.interim.Text)
	}
	return strings.Join(parts, " ")
}

// Latest returns the interim segment if present, else the last final.
func (b *TranscriptBuffer) Latest() (TranscriptSegment, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.interim != nil {
		return *b.interim, true
	}
	if len(b.finals) == 0 {
		return TranscriptSegment{}, false
	}
	return b.finals[len(b.finals)-1], true
}

// Tail returns the last n characters of CurrentText.
func (b *TranscriptBuffer) Tail(n int) string {
	text := b.CurrentText()
	if len(text) <= n {
		return text
	}
	return text[len(text)-n:]
}

// Clear drops all finals and the interim slot.
func (b *TranscriptBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finals = nil
	b.interim = nil
}

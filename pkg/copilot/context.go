package copilot

import (
	"strings"
	"sync"
	"time"
)

// ContextStore tracks the ongoing conversation for better analysis: a
// bounded FIFO of turns plus two unbounded append-only lists (key facts,
// objections) and a mode prompt string overwritten on mode change.
// Single-writer (the orchestrator), multi-reader.
type ContextStore struct {
	mu         sync.RWMutex
	turns      []ConversationTurn
	maxTurns   int
	modePrompt string
	keyFacts   []string
	objections []string
}

// NewContextStore creates a store bounded to maxTurns turns.
func NewContextStore(maxTurns int) *ContextStore {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &ContextStore{maxTurns: maxTurns}
}

// SetModePrompt overwrites the mode prompt string.
func (c *ContextStore) SetModePrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modePrompt = prompt
}

// AddTheirTurn records a turn from the other party, with an optional
// intent label.
func (c *ContextStore) AddTheirTurn(text, intent string) {
	c.addTurn(ConversationTurn{Speaker: SpeakerOther, Text: text, Timestamp: time.Now(), Intent: intent})
}

// AddMyTurn records a turn from the user.
func (c *ContextStore) AddMyTurn(text string) {
	c.addTurn(ConversationTurn{Speaker: SpeakerUser, Text: text, Timestamp: time.Now()})
}

func (c *ContextStore) addTurn(turn ConversationTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
	if over := len(c.turns) - c.maxTurns; over > 0 {
		c.turns = c.turns[over:]
	}
}

// RecordObjection appends to the unbounded objections list.
func (c *ContextStore) RecordObjection(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objections = append(c.objections, text)
}

// AddKeyFact appends to the unbounded key-facts list.
func (c *ContextStore) AddKeyFact(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keyFacts = append(c.keyFacts, text)
}

func speakerLabel(s Speaker) string {
	if s == SpeakerOther {
		return "Them"
	}
	return "Me"
}

// HistoryString renders every stored turn as "<Speaker>: <text>" lines.
func (c *ContextStore) HistoryString() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historyLocked(c.turns)
}

// RecentHistory renders only the last n turns, chronologically ordered.
func (c *ContextStore) RecentHistory(n int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n >= len(c.turns) {
		return c.historyLocked(c.turns)
	}
	return c.historyLocked(c.turns[len(c.turns)-n:])
}

func (c *ContextStore) historyLocked(turns []ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, speakerLabel(t.Speaker)+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

// FullContext is the mode prompt plus key facts plus objections, in the
// fixed order models expect.
func (c *ContextStore) FullContext() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	b.WriteString(c.modePrompt)

	if len(c.keyFacts) > 0 {
		b.WriteString("\n\nKey facts established:")
		for _, f := range c.keyFacts {
			b.WriteString("\n- " + f)
		}
	}
	if len(c.objections) > 0 {
		b.WriteString("\n\nObjections raised so far:")
		for _, o := range c.objections {
			b.WriteString("\n- " + o)
		}
	}
	return b.String()
}

// LastTheirTurn returns the most recent turn from the other party, if any.
func (c *ContextStore) LastTheirTurn() (ConversationTurn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Speaker == SpeakerOther {
			return c.turns[i], true
		}
	}
	return ConversationTurn{}, false
}

// Clear drops all turns, facts and objections. The mode prompt survives.
func (c *ContextStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.keyFacts = nil
	c.objections = nil
}

// TurnCount returns the number of stored turns.
func (c *ContextStore) TurnCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

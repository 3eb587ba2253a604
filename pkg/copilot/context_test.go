package copilot

import (
	"strings"
	"testing"
)

func TestContextStoreHistoryFormatting(t *testing.T) {
	c := NewContextStore(20)
	c.AddTheirTurn("how much does it cost", "pricing")
	c.AddMyTurn("our plans start at $99")

	want := "Them: how much does it cost\nMe: our plans start at $99"
	if got := c.HistoryString(); got != want {
		t.Errorf("HistoryString() = %q, want %q", got, want)
	}
}

func TestContextStoreTurnsEvictFIFO(t *testing.T) {
	c := NewContextStore(2)
	c.AddTheirTurn("one", "")
	c.AddTheirTurn("two", "")
	c.AddTheirTurn("three", "")

	if c.TurnCount() != 2 {
		t.Fatalf("expected 2 turns retained, got %d", c.TurnCount())
	}
	history := c.HistoryString()
	if strings.Contains(history, "one") {
		t.Errorf("expected oldest turn evicted, got %q", history)
	}
	if !strings.Contains(history, "two") || !strings.Contains(history, "three") {
		t.Errorf("expected the two newest turns retained, got %q", history)
	}
}

func TestContextStoreKeyFactsAndObjectionsUnbounded(t *testing.T) {
	c := NewContextStore(1)
	for i := 0; i < 50; i++ {
		c.AddKeyFact("fact")
		c.RecordObjection("objection")
	}

	full := c.FullContext()
	if strings.Count(full, "- fact") != 50 {
		t.Errorf("expected 50 key facts retained regardless of turn bound, got context %q", full)
	}
	if strings.Count(full, "- objection") != 50 {
		t.Errorf("expected 50 objections retained regardless of turn bound, got context %q", full)
	}
}

func TestContextStoreFullContextOrder(t *testing.T) {
	c := NewContextStore(20)
	c.SetModePrompt("Sales call")
	c.AddKeyFact("budget is $50k")
	c.RecordObjection("too expensive")

	full := c.FullContext()
	modeIdx := strings.Index(full, "Sales call")
	factsIdx := strings.Index(full, "Key facts established")
	objIdx := strings.Index(full, "Objections raised")

	if modeIdx == -1 || factsIdx == -1 || objIdx == -1 {
		t.Fatalf("expected all three sections present, got %q", full)
	}
	if !(modeIdx < factsIdx && factsIdx < objIdx) {
		t.Errorf("expected mode, then facts, then objections; got %q", full)
	}
}

func TestContextStoreRecentHistory(t *testing.T) {
	c := NewContextStore(20)
	for i := 0; i < 5; i++ {
		c.AddMyTurn("turn")
	}

	recent := c.RecentHistory(2)
	if strings.Count(recent, "Me: turn") != 2 {
		t.Errorf("expected RecentHistory(2) to return exactly 2 lines, got %q", recent)
	}
}

func TestContextStoreClearKeepsModePrompt(t *testing.T) {
	c := NewContextStore(20)
	c.SetModePrompt("Interview mode")
	c.AddMyTurn("hi")
	c.AddKeyFact("fact")

	c.Clear()

	if c.TurnCount() != 0 {
		t.Errorf("expected turns cleared, got %d", c.TurnCount())
	}
	if !strings.Contains(c.FullContext(), "Interview mode") {
		t.Error("expected mode prompt to survive Clear()")
	}
}

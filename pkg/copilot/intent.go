package copilot

import "strings"

// IntentCategory is the coarse label the intent analyser attaches to a
// final segment before it reaches the context store.
type IntentCategory string

const (
	IntentPricing      IntentCategory = "pricing"
	IntentSecurity     IntentCategory = "security"
	IntentTimeline     IntentCategory = "timeline"
	IntentCompetition  IntentCategory = "competition"
	IntentTechnical    IntentCategory = "technical"
	IntentBuyingSignal IntentCategory = "buying_signal"
	IntentObjection    IntentCategory = "objection"
	IntentStalling     IntentCategory = "stalling"
	IntentProcurement  IntentCategory = "procurement"
	IntentSmallTalk    IntentCategory = "small_talk"
	IntentOther        IntentCategory = "other"
)

// IntentResult is the analyser's verdict on a piece of text.
type IntentResult struct {
	Category      IntentCategory
	Confidence    float64
	NeedsResponse bool
}

// categoryPattern pairs one intent category with its keyword set. The
// analyser scans categories in slice order, not map order, so that a
// score tie between two categories always resolves to the earlier one
// in this list; map iteration order would make ties nondeterministic.
type categoryPattern struct {
	category IntentCategory
	keywords []string
}

// IntentAnalyzer is a local, deterministic, keyword-matching classifier.
// It never blocks and never fails.
type IntentAnalyzer struct {
	patterns []categoryPattern
}

// NewIntentAnalyzer builds the analyser with its fixed keyword sets.
func NewIntentAnalyzer() *IntentAnalyzer {
	return &IntentAnalyzer{
		patterns: []categoryPattern{
			{IntentPricing, []string{
				"price", "pricing", "cost", "expensive", "cheap", "budget",
				"how much", "fee", "subscription", "plan",
			}},
			{IntentSecurity, []string{
				"security", "secure", "compliance", "encrypted", "gdpr",
				"soc 2", "privacy", "data protection", "vulnerability",
			}},
			{IntentTimeline, []string{
				"when", "timeline", "deadline", "how long", "schedule",
				"launch date", "go live", "rollout",
			}},
			{IntentCompetition, []string{
				"competitor", "versus", "vs", "alternative", "compare",
				"other vendor", "why you", "better than",
			}},
			{IntentTechnical, []string{
				"architecture", "api", "integration", "sdk", "latency",
				"scale", "infrastructure", "database", "deploy",
			}},
			{IntentBuyingSignal, []string{
				"sign up", "get started", "purchase", "buy", "contract",
				"next steps", "onboarding", "ready to move forward",
			}},
			{IntentObjection, []string{
				"but", "however", "concerned", "worried", "issue with",
				"problem with", "not sure", "hesitant",
			}},
			{IntentStalling, []string{
				"need to think", "get back to you", "not right now",
				"maybe later", "check with my team", "circle back",
			}},
			{IntentProcurement, []string{
				"procurement", "legal review", "purchase order", "invoice",
				"vendor approval", "contract terms", "msa",
			}},
			{IntentSmallTalk, []string{
				"how are you", "nice to meet", "thanks for", "good morning",
				"good afternoon", "weather", "weekend",
			}},
		},
	}
}

// Analyze scores text against every keyword set and returns the
// highest-scoring category. Score is matches/|keywords| for that
// category; confidence is capped at 0.95. A tie keeps whichever
// category was seen first in patterns. NeedsResponse is false only
// for small_talk.
func (a *IntentAnalyzer) Analyze(text string) IntentResult {
	lower := strings.ToLower(text)

	bestCategory := IntentOther
	bestScore := 0.0

	for _, p := range a.patterns {
		matched := 0
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(p.keywords))
		if score > bestScore {
			bestScore = score
			bestCategory = p.category
		}
	}

	confidence := bestScore
	if confidence > 0.95 {
		confidence = 0.95
	}

	return IntentResult{
		Category:      bestCategory,
		Confidence:    confidence,
		NeedsResponse: bestCategory != IntentSmallTalk,
	}
}

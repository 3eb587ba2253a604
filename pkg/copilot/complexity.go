package copilot

import "strings"

// Complexity buckets a request by how much reasoning it likely needs.
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityModerate
	ComplexityComplex
	ComplexityCritical
)

func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityModerate:
		return "moderate"
	case ComplexityComplex:
		return "complex"
	case ComplexityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

var complexKeywords = []string{
	"why", "explain", "compare", "analyze", "analyse", "evaluate", "justify",
	"critique", "strategy", "negotiate", "convince", "objection", "budget",
	"decision", "stakeholder", "executive", "contract", "legal", "compliance",
	"security", "architecture", "scale",
}

var simpleKeywords = []string{
	"what is", "how do", "when", "where", "who", "list", "define",
	"describe", "tell me about", "features",
}

// ScoreComplexity runs a keyword+length+punctuation heuristic over text
// and returns both the raw score and its bucket.
func ScoreComplexity(text string) (int, Complexity) {
	lower := strings.ToLower(text)
	score := 0

	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			score += 2
		}
	}
	for _, kw := range simpleKeywords {
		if strings.Contains(lower, kw) {
			score--
		}
	}

	wordCount := len(strings.Fields(text))
	switch {
	case wordCount > 30:
		score += 2
	case wordCount > 15:
		score++
	}

	if strings.Count(text, "?") > 1 {
		score++
	}

	var bucket Complexity
	switch {
	case score <= 0:
		bucket = ComplexitySimple
	case score <= 3:
		bucket = ComplexityModerate
	case score <= 6:
		bucket = ComplexityComplex
	default:
		bucket = ComplexityCritical
	}
	return score, bucket
}

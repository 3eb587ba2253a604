package copilot

import (
	"sort"
	"strings"
)

// Mode is the small capability surface a conversation mode implements.
// No inheritance; modes are selected by name from a fixed registry.
type Mode interface {
	Name() string
	ContextDescription() string
	PromptAdditions() string
	CustomizeBullets(bullets []Bullet) []Bullet
}

// baseMode implements the parts every concrete mode shares: a name, a
// context description and a no-op bullet customisation. Concrete modes
// embed it and override what differs.
type baseMode struct {
	name    string
	context string
	prompt  string
}

func (m baseMode) Name() string                               { return m.name }
func (m baseMode) ContextDescription() string                 { return m.context }
func (m baseMode) PromptAdditions() string                    { return m.prompt }
func (m baseMode) CustomizeBullets(bullets []Bullet) []Bullet { return bullets }

// SalesMode favours buying-signal and objection-handling bullets.
type SalesMode struct{ baseMode }

// NewSalesMode builds the Sales mode.
func NewSalesMode() SalesMode {
	return SalesMode{baseMode{
		name:    "Sales",
		context: "Sales call for a SaaS product. Goal: move the deal forward.",
		prompt:  "Match the tone to a confident, consultative sales rep.",
	}}
}

// CustomizeBullets ensures a qualifying question is always on offer, so
// the rep never runs out of road to keep control of the call.
func (m SalesMode) CustomizeBullets(bullets []Bullet) []Bullet {
	if len(bullets) == 0 {
		return bullets
	}
	for _, b := range bullets {
		if strings.Contains(b.Text, "?") {
			return bullets
		}
	}
	return append(bullets, Bullet{Text: "What's driving your evaluation right now?", Priority: 4})
}

// InterviewMode favours structured, professional responses.
type InterviewMode struct{ baseMode }

// NewInterviewMode builds the Interview mode.
func NewInterviewMode() InterviewMode {
	return InterviewMode{baseMode{
		name:    "Interview",
		context: "Live job interview. Goal: answer clearly and professionally.",
		prompt:  "Match the tone to a calm, professional candidate.",
	}}
}

// CustomizeBullets moves bullets referencing a concrete example ahead of
// more abstract ones, so the candidate leads with specifics.
func (m InterviewMode) CustomizeBullets(bullets []Bullet) []Bullet {
	if len(bullets) <= 2 {
		return bullets
	}
	sort.SliceStable(bullets, func(i, j int) bool {
		return isConcrete(bullets[i].Text) && !isConcrete(bullets[j].Text)
	})
	return bullets
}

func isConcrete(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "example") || strings.Contains(lower, "when i") || strings.Contains(lower, "at ")
}

// TechnicalMode favours precision over persuasion.
type TechnicalMode struct{ baseMode }

// NewTechnicalMode builds the Technical mode.
func NewTechnicalMode() TechnicalMode {
	return TechnicalMode{baseMode{
		name:    "Technical",
		context: "Technical deep-dive call. Goal: precise, accurate answers.",
		prompt:  "Match the tone to a precise subject-matter expert.",
	}}
}

// CustomizeBullets ensures a trade-off is always mentioned rather than a
// one-sided pitch, if there's more than one bullet to share the point.
func (m TechnicalMode) CustomizeBullets(bullets []Bullet) []Bullet {
	if len(bullets) <= 1 {
		return bullets
	}
	for _, b := range bullets {
		lower := strings.ToLower(b.Text)
		if strings.Contains(lower, "trade") || strings.Contains(lower, "but") ||
			strings.Contains(lower, "however") || strings.Contains(lower, "downside") {
			return bullets
		}
	}
	return append(bullets, Bullet{Text: "Consider the trade-offs...", Priority: 4})
}

// DefaultMode is the neutral fallback when no mode is selected.
type DefaultMode struct{ baseMode }

// NewDefaultMode builds the neutral default mode.
func NewDefaultMode() DefaultMode {
	return DefaultMode{baseMode{
		name:    "default",
		context: "General conversation.",
		prompt:  "",
	}}
}

// Modes is the fixed registry used to resolve a mode label from
// SetMode/Config.Mode.
func Modes() map[string]Mode {
	return map[string]Mode{
		"sales":     NewSalesMode(),
		"interview": NewInterviewMode(),
		"technical": NewTechnicalMode(),
		"default":   NewDefaultMode(),
	}
}

// ResolveMode looks up a mode by case-sensitive label, falling back to
// DefaultMode when unknown.
func ResolveMode(label string) Mode {
	if m, ok := Modes()[label]; ok {
		return m
	}
	return NewDefaultMode()
}

package copilot

import (
	"fmt"
	"strings"
)

const flashSystemPrompt = `You are an instant analysis engine. Respond in under 1 second.

OUTPUT: JSON only, no explanation

{
  "summary": "One sentence: what they're asking/saying",
  "bullets": [
    {"text": "Key thing to mention", "priority": 1},
    {"text": "Another point", "priority": 2},
    {"text": "Supporting detail", "priority": 3}
  ],
  "type": "question|objection|statement|buying_signal|technical|small_talk",
  "urgency": "answer_now|can_elaborate|just_listening"
}

Rules:
- Max 5 bullets
- Priority 1 = say this first (most important)
- Be specific, not generic
- Under 50 tokens total`

// buildFlashMessages builds the Flash request: a fixed system prompt plus
// a {context, transcript}-parameterised user prompt.
func buildFlashMessages(transcript, context, modeAdditions string) []Message {
	sys := flashSystemPrompt
	if modeAdditions != "" {
		sys += "\n\n" + modeAdditions
	}
	user := fmt.Sprintf("CONTEXT: %s\n\nTHEIR STATEMENT: %q", context, transcript)
	return []Message{
		{Role: "system", Content: sys},
		{Role: "user", Content: user},
	}
}

// buildDeepMessages builds the Deep request: {context, history,
// transcript, bullets} concatenated into one user-role prompt that demands the
// fixed "Direct Answer / Key Points / If They Push Back / Question to
// Ask Them" section headers.
func buildDeepMessages(transcript, context string, bullets []string, history, modeAdditions string) []Message {
	var numbered strings.Builder
	for i, b := range bullets {
		if i > 0 {
			numbered.WriteString("\n")
		}
		fmt.Fprintf(&numbered, "%d. %s", i+1, b)
	}

	prompt := fmt.Sprintf(`You are a real-time conversation advisor. The user is currently in a live call and needs a complete, well-structured response.

CONTEXT: %s

CONVERSATION SO FAR:
%s

THEIR LATEST STATEMENT: %q

QUICK BULLETS ALREADY SHOWN:
%s

YOUR TASK:
Provide a comprehensive response the user can speak or reference. The user is ALREADY talking using the bullets above, so your response should expand on those points with specifics.

FORMAT YOUR RESPONSE EXACTLY LIKE THIS:

## Direct Answer
[2-3 sentences that directly address what was asked. Be specific and confident.]

## Key Points
- [Expand on bullet 1 with concrete details, numbers, or examples]
- [Expand on bullet 2 with specifics]
- [Expand on bullet 3 if applicable]

## If They Push Back
[One sentence on how to handle likely objection or follow-up]

## Question to Ask Them
[A strategic question to regain control or qualify further]

RULES:
- Be conversational, not robotic
- Use specific examples when possible
- Keep the total response under 200 words
- The "Question to Ask" should advance the conversation`, context, history, transcript, numbered.String())

	if modeAdditions != "" {
		prompt += "\n\n" + modeAdditions
	}

	return []Message{{Role: "user", Content: prompt}}
}

package facade

import (
	"fmt"
	"strings"
)

// Role of a prior conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message passed to Consult
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const imageAnalysisPrompt = `You are a medical assistant reviewing a photo of a symptom.
Analyze the image and answer in the following structure:

1. Observed symptoms
2. Preliminary assessment (for reference only; this does not replace a diagnosis by a specialist)
3. Recommendations (whether an immediate visit to a clinic is needed, and precautions to take)
4. Relevant medical specialty

Additional information: %s`

const literatureOverviewPrompt = `Here are the titles of recent PubMed papers about "%s":
%s
Write a short overview (3-4 sentences) of what this research covers, for a general audience.
Do not give medical advice.`

// buildConsultPrompt lays out the system prompt, prior turns and the new message
func buildConsultPrompt(systemPrompt string, history []Turn, message string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(systemPrompt))
	b.WriteString("\n\n")
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	return b.String()
}

func buildImagePrompt(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		note = "none"
	}
	return fmt.Sprintf(imageAnalysisPrompt, note)
}

func buildOverviewPrompt(term string, papers []Paper) string {
	var b strings.Builder
	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Title)
	}
	return fmt.Sprintf(literatureOverviewPrompt, term, b.String())
}

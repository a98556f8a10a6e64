// Package prompt renders conversations into the ChatML layout the bundled
// Qwen2 instruct model was tuned on.
package prompt

import "strings"

// Role-delimiting sentinels.
const (
	ImStart = "<|im_start|>"
	ImEnd   = "<|im_end|>"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryTurns is how many prior turns Format keeps.
const DefaultHistoryTurns = 6

// DefaultSystem is the system instruction sent ahead of every conversation.
const DefaultSystem = `You are Sage, a helpful AI assistant. Answer questions clearly and concisely.

Rules:
- Give direct, short answers
- If you don't know, say "I don't know"
- Never make up information
- Stop after answering the question
- Use simple, clear language`

// Turn is one prior message in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Formatter renders prompts. The zero value uses DefaultSystem and keeps
// DefaultHistoryTurns turns.
type Formatter struct {
	System       string
	HistoryTurns int
}

var defaultFormatter Formatter

// Format renders userMessage after the last DefaultHistoryTurns turns of
// history, ending with an open assistant turn.
func Format(userMessage string, history []Turn) string {
	return defaultFormatter.Format(userMessage, history)
}

// FormatWithContext is Format with a retrieved passage placed ahead of the
// question in the user turn.
func FormatWithContext(question, passage string, history []Turn) string {
	return defaultFormatter.FormatWithContext(question, passage, history)
}

func (f Formatter) Format(userMessage string, history []Turn) string {
	system := f.System
	if system == "" {
		system = DefaultSystem
	}
	n := f.HistoryTurns
	if n <= 0 {
		n = DefaultHistoryTurns
	}
	var b strings.Builder
	writeTurn(&b, RoleSystem, system)
	for _, t := range Window(history, n) {
		writeTurn(&b, t.Role, t.Content)
	}
	writeTurn(&b, RoleUser, userMessage)
	b.WriteString(ImStart + RoleAssistant + "\n")
	return b.String()
}

func (f Formatter) FormatWithContext(question, passage string, history []Turn) string {
	if strings.TrimSpace(passage) == "" {
		return f.Format(question, history)
	}
	return f.Format("Context:\n"+passage+"\n\nQuestion: "+question, history)
}

// Window returns the last n turns of history. The result shares storage with
// history.
func Window(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func writeTurn(b *strings.Builder, role, content string) {
	b.WriteString(ImStart)
	b.WriteString(role)
	b.WriteByte('\n')
	b.WriteString(content)
	b.WriteString(ImEnd)
	b.WriteByte('\n')
}

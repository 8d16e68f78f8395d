// AngelaMos | 2026
// window.go

package jarvis

import (
	"unicode/utf8"
)

// EstimateTokens approximates model tokens at four characters each.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

func messageTokens(m ChatMessage) int {
	return EstimateTokens(m.Content) + 4
}

// TrimHistory keeps the system prompt and the newest messages that fit in
// budget. The last message is always kept even when it alone exceeds the
// budget, since it is the turn being answered.
func TrimHistory(system ChatMessage, history []ChatMessage, budget int) []ChatMessage {
	out := []ChatMessage{system}
	if len(history) == 0 {
		return out
	}

	remaining := budget - messageTokens(system)
	last := history[len(history)-1]
	remaining -= messageTokens(last)

	start := len(history) - 1
	for start > 0 {
		cost := messageTokens(history[start-1])
		if cost > remaining {
			break
		}
		remaining -= cost
		start--
	}

	return append(out, history[start:]...)
}

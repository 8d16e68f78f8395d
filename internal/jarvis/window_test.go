// AngelaMos | 2026
// window_test.go

package jarvis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(role string, runes int) ChatMessage {
	return ChatMessage{Role: role, Content: strings.Repeat("a", runes)}
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1, EstimateTokens("日本"))
}

func TestTrimHistory_KeepsNewestWithinBudget(t *testing.T) {
	system := msg(RoleSystem, 16) // 4 + 4
	history := []ChatMessage{
		msg(RoleUser, 40),      // 10 + 4
		msg(RoleAssistant, 40), // 14
		msg(RoleUser, 40),      // 14
		msg(RoleAssistant, 40), // 14
		msg(RoleUser, 8),       // 6
	}

	// 8 system + 6 last leaves 30: two more 14 token messages fit.
	out := TrimHistory(system, history, 44)

	require.Len(t, out, 4)
	assert.Equal(t, RoleSystem, out[0].Role)
	assert.Equal(t, history[2:], out[1:])
}

func TestTrimHistory_AlwaysKeepsLastTurn(t *testing.T) {
	system := msg(RoleSystem, 16)
	history := []ChatMessage{
		msg(RoleUser, 40),
		msg(RoleUser, 4000),
	}

	out := TrimHistory(system, history, 50)

	require.Len(t, out, 2)
	assert.Equal(t, history[1], out[1])
}

func TestTrimHistory_EverythingFits(t *testing.T) {
	system := msg(RoleSystem, 4)
	history := []ChatMessage{msg(RoleUser, 4), msg(RoleAssistant, 4), msg(RoleUser, 4)}

	out := TrimHistory(system, history, 1000)
	assert.Len(t, out, 4)
}

func TestTrimHistory_Empty(t *testing.T) {
	out := TrimHistory(msg(RoleSystem, 4), nil, 10)
	assert.Len(t, out, 1)
}

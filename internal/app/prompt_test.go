package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblePromptIncludesContextAndQuestion(t *testing.T) {
	messages := AssemblePrompt("A MAC address is a 48-bit identifier.", "What is a MAC address?")

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)

	assert.Contains(t, messages[0].Content, "A MAC address is a 48-bit identifier.")
	assert.Contains(t, messages[0].Content, RefusalPhrase)
	assert.Equal(t, "What is a MAC address?", messages[1].Content)
}

func TestAssemblePromptDeterministic(t *testing.T) {
	first := AssemblePrompt("ctx", "q")
	second := AssemblePrompt("ctx", "q")
	assert.Equal(t, first, second)
}

func TestAssemblePromptEmptyContext(t *testing.T) {
	messages := AssemblePrompt("", "What is ARP?")

	require.Len(t, messages, 2)
	// The context slot collapses but the policy and delimiters remain.
	assert.Contains(t, messages[0].Content, "---------------------")
	assert.False(t, strings.Contains(messages[0].Content, "%CONTEXT%"))
	assert.False(t, strings.Contains(messages[0].Content, "%REFUSAL%"))
}

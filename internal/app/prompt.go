package app

import (
	"strings"

	"netqa/internal/ai"
)

// RefusalPhrase is the fixed answer the model is instructed to give when the
// retrieved context does not cover the question.
const RefusalPhrase = "Sorry, the provided context does not contain enough information to answer this question."

const systemPolicy = `You are a professional computer-networking assistant.
Context information is below.
---------------------
%CONTEXT%
---------------------

CRITICAL INSTRUCTION:
1. Answer in the same language the question is asked in.
2. Answer based ONLY on the provided context.
3. If the context does not contain the answer, reply exactly: "%REFUSAL%"
4. Do not make up information.`

// AssemblePrompt is a pure transform from (context block, question) to the
// model instruction. No I/O, no clock, no randomness: identical inputs
// always produce identical output.
func AssemblePrompt(contextBlock, question string) []ai.ChatMessage {
	system := strings.ReplaceAll(systemPolicy, "%CONTEXT%", contextBlock)
	system = strings.ReplaceAll(system, "%REFUSAL%", RefusalPhrase)

	return []ai.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}
}

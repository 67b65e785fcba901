package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken approximates English text for GPT, Claude and Gemini models.
const charsPerToken = 4

// CountTokens provides a rough token count estimate: the larger of the
// word-based and character-based guesses.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	byWords := len(strings.Fields(text)) * 4 / 3
	byChars := utf8.RuneCountInString(text) / charsPerToken
	return max(byWords, byChars, 1)
}

// CharsForTokens converts a token budget into a character budget.
func CharsForTokens(tokens int) int {
	return tokens * charsPerToken
}

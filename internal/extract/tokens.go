package extract

import (
	"unicode/utf8"

	"github.com/use-agent/searchscrape/internal/models"
)

// estimateTokens approximates token count without a tokenizer dependency:
// utf8 rune count / 3, a conservative middle ground between ~4 chars/token
// English and ~1.5 chars/token CJK text.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	if est := n / 3; est >= 1 {
		return est
	}
	return 1
}

func computeTokenInfo(originalHTML, cleanedContent string) models.TokenInfo {
	original := estimateTokens(originalHTML)
	cleaned := estimateTokens(cleanedContent)
	savings := 0.0
	if original > 0 {
		savings = float64(original-cleaned) / float64(original) * 100
	}
	return models.TokenInfo{
		OriginalEstimate: original,
		CleanedEstimate:  cleaned,
		SavingsPercent:   savings,
	}
}

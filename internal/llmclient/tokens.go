package llmclient

// charsPerToken is a calibration constant for English-dominated source
// and prose text. Budgets are enforced against this heuristic rather
// than an exact model-specific token count, which would tie the
// pipeline to a single provider's tokenizer.
const charsPerToken = 4

// EstimateTokens returns a rough token count for s.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	n := len(s) / charsPerToken
	if n == 0 {
		return 1
	}
	return n
}

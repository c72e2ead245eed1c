package ollama

import "unicode/utf8"

const maxPromptSnippet = 6000

func buildAnalysisPrompt(text string) string {
	snippet := truncateRunes(text, maxPromptSnippet)

	return `You are a text analysis service.
Return a strict JSON object with keys:
entities (array of objects with "name" and "type"; type is one of PERSON, LOCATION, ORGANIZATION, EVENT, WORK_OF_ART, CONSUMER_GOOD, DATE, NUMBER, PRICE, OTHER),
sentiment (object with "score" from -1 to 1 and "magnitude" >= 0).
No markdown, no extra keys.

Text:
` + snippet
}

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

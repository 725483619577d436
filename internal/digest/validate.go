package digest

import (
	"regexp"
	"strings"

	"apidoc-digester/internal/domain/model"
)

// phraseMentioned reports whether phrase occurs in text followed by a
// separator character, case-insensitively. Extracted names and paths that
// the source chunk never mentions are hallucinations and get dropped.
func phraseMentioned(text, phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || text == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(phrase) + `[\s.,;:!?\-\)\]\}"']`)
	if err != nil {
		return false
	}
	// trailing space so a phrase at the very end of the chunk still counts
	return re.MatchString(text + " ")
}

func keepMentionedClasses(chunkText string, got []model.ObjectClass) []model.ObjectClass {
	kept := got[:0]
	for _, c := range got {
		if phraseMentioned(chunkText, c.Name) {
			kept = append(kept, c)
		}
	}
	return kept
}

func keepMentionedEndpoints(chunkText string, got []model.Endpoint) []model.Endpoint {
	kept := got[:0]
	for _, e := range got {
		if phraseMentioned(chunkText, e.Path) {
			kept = append(kept, e)
		}
	}
	return kept
}

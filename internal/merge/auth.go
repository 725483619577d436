package merge

import (
	"strings"

	"apidoc-digester/internal/domain/model"
)

// AuthMethods dedupes authentication mechanism candidates. Two candidates
// describe the same mechanism when their types match and one normalized name
// contains the other ("OAuth2" and "OAuth 2.0" collapse). The longer name
// variant is kept and quirks from both sides are folded together.
func AuthMethods(candidates []model.AuthMethod) []model.AuthMethod {
	var merged []model.AuthMethod
	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		c.Type = strings.TrimSpace(c.Type)
		c.Quirks = strings.TrimSpace(c.Quirks)

		idx := -1
		for i, m := range merged {
			if sameAuthMethod(m, c) {
				idx = i
				break
			}
		}
		if idx < 0 {
			merged = append(merged, c)
			continue
		}

		m := merged[idx]
		if len(normAuthName(c.Name)) > len(normAuthName(m.Name)) {
			m.Name = c.Name
		}
		m.Quirks = joinQuirks(m.Quirks, c.Quirks)
		merged[idx] = m
	}
	return merged
}

// RankAuthMethods applies a remote importance ordering to merged auth
// methods. Remote items matching no input are dropped; unmatched originals
// are appended at the end in their original order.
func RankAuthMethods(originals, ranked []model.AuthMethod) []model.AuthMethod {
	return AlignRemote(originals, ranked, func(a model.AuthMethod) string {
		return normAuthName(a.Name) + "|" + strings.ToLower(strings.TrimSpace(a.Type))
	})
}

func sameAuthMethod(a, b model.AuthMethod) bool {
	if !strings.EqualFold(a.Type, b.Type) {
		return false
	}
	an, bn := normAuthName(a.Name), normAuthName(b.Name)
	if an == "" || bn == "" {
		return an == bn
	}
	return strings.Contains(an, bn) || strings.Contains(bn, an)
}

// normAuthName lowercases and strips all whitespace so "OAuth 2.0" and
// "oauth2.0" key the same.
func normAuthName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

func joinQuirks(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b || strings.Contains(a, b):
		return a
	case strings.Contains(b, a):
		return b
	default:
		return a + "; " + b
	}
}

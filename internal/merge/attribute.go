package merge

import (
	"context"
	"strings"

	"apidoc-digester/internal/domain/model"
)

// DisambiguateFunc asks an external capability to pick exactly one candidate
// per attribute name. It receives only the names that have more than one
// candidate.
type DisambiguateFunc func(ctx context.Context, ownerClass string, conflicts map[string][]model.Attribute) (map[string]model.Attribute, error)

// Attributes dedupes attribute candidates for one owner object class.
// Names with a single candidate pass through untouched. Names with several
// candidates are sent to resolve, which picks one candidate whole (fields
// are never merged across candidates). When resolve fails or skips a name,
// the fallback picks the candidate whose description mentions the owner
// class, else the first candidate.
func Attributes(ctx context.Context, ownerClass string, candidates []model.Attribute, resolve DisambiguateFunc) []model.Attribute {
	groups := make(map[string][]model.Attribute, len(candidates))
	var order []string
	for _, c := range candidates {
		k := norm(c.Name)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	conflicts := make(map[string][]model.Attribute)
	for k, g := range groups {
		if len(g) > 1 && !allEqualAttributes(g) {
			conflicts[k] = g
		}
	}

	var resolved map[string]model.Attribute
	if len(conflicts) > 0 && resolve != nil {
		if r, err := resolve(ctx, ownerClass, conflicts); err == nil {
			resolved = r
		}
	}

	out := make([]model.Attribute, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if len(g) == 1 || allEqualAttributes(g) {
			out = append(out, g[0])
			continue
		}
		if pick, ok := resolved[k]; ok && norm(pick.Name) == k {
			out = append(out, pick)
			continue
		}
		out = append(out, fallbackAttribute(ownerClass, g))
	}
	return out
}

// fallbackAttribute prefers the candidate whose description names the owner
// class, else the first one.
func fallbackAttribute(ownerClass string, g []model.Attribute) model.Attribute {
	owner := strings.ToLower(strings.TrimSpace(ownerClass))
	if owner != "" {
		for _, a := range g {
			if strings.Contains(strings.ToLower(a.Description), owner) {
				return a
			}
		}
	}
	return g[0]
}

func allEqualAttributes(g []model.Attribute) bool {
	for _, a := range g[1:] {
		if a != g[0] {
			return false
		}
	}
	return true
}

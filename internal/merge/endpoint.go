package merge

import (
	"sort"
	"strings"

	"apidoc-digester/internal/domain/model"
)

// Canonical method order for the final sort; unknown methods rank last.
var methodRank = map[string]int{
	"GET":     0,
	"HEAD":    1,
	"OPTIONS": 2,
	"POST":    3,
	"PUT":     4,
	"PATCH":   5,
	"DELETE":  6,
}

type endpointKey struct {
	path   string
	method string
}

// Endpoints dedupes endpoint candidates by (path, method), case-insensitive
// on the path, and returns them sorted by path then canonical method order.
// The first-seen path casing is kept; methods are normalized to upper case.
func Endpoints(candidates []model.Endpoint) []model.Endpoint {
	normalized := make([]model.Endpoint, 0, len(candidates))
	for _, c := range candidates {
		c.Path = strings.TrimSpace(c.Path)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		normalized = append(normalized, c)
	}

	merged := Fold(normalized, Policy[model.Endpoint, endpointKey]{
		Key: func(e model.Endpoint) endpointKey {
			return endpointKey{path: strings.ToLower(e.Path), method: e.Method}
		},
		Reconcile: func(acc, next model.Endpoint) model.Endpoint {
			acc.Description = preferLonger(acc.Description, next.Description)
			if acc.RequestContentType == "" {
				acc.RequestContentType = next.RequestContentType
			}
			if acc.ResponseContentType == "" {
				acc.ResponseContentType = next.ResponseContentType
			}
			acc.SuggestedUse = unionStrings(acc.SuggestedUse, next.SuggestedUse)
			return acc
		},
	})

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		ra, rb := rankMethod(a.Method), rankMethod(b.Method)
		if ra != rb {
			return ra < rb
		}
		return a.Method < b.Method
	})
	return merged
}

func rankMethod(m string) int {
	if r, ok := methodRank[m]; ok {
		return r
	}
	return len(methodRank)
}

package merge

import (
	"sort"
	"strings"

	"apidoc-digester/internal/domain/model"
)

type relationKey struct {
	subject          string
	subjectAttribute string
	object           string
}

// Relations dedupes relation candidates by (subject, subjectAttribute,
// object) and returns them sorted on the same triple. A candidate with a
// name fills a nameless merged value; otherwise the longer short description
// wins.
func Relations(candidates []model.Relation) []model.Relation {
	merged := Fold(candidates, Policy[model.Relation, relationKey]{
		Key: func(r model.Relation) relationKey {
			return relationKey{
				subject:          norm(r.Subject),
				subjectAttribute: norm(r.SubjectAttribute),
				object:           norm(r.Object),
			}
		},
		Reconcile: func(acc, next model.Relation) model.Relation {
			if strings.TrimSpace(acc.Name) == "" {
				acc.Name = next.Name
			}
			acc.ShortDescription = preferLonger(acc.ShortDescription, next.ShortDescription)
			if acc.ObjectAttribute == "" {
				acc.ObjectAttribute = next.ObjectAttribute
			}
			return acc
		},
	})

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.SubjectAttribute != b.SubjectAttribute {
			return a.SubjectAttribute < b.SubjectAttribute
		}
		return a.Object < b.Object
	})
	return merged
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

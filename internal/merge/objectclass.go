package merge

import (
	"sort"
	"strings"

	"apidoc-digester/internal/domain/model"
)

// classKey collapses whitespace-only name variants to a single lowercase
// no-space key ("Access Token" == "accesstoken").
func classKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}

// ObjectClasses dedupes object class candidates by normalized name. The
// reconcile keeps the first non-empty superclass, OR-combines the abstract
// and embedded flags, keeps the longer description, and unions the
// provenance list by document id.
func ObjectClasses(candidates []model.ObjectClass) []model.ObjectClass {
	merged := Fold(candidates, Policy[model.ObjectClass, string]{
		Key: func(c model.ObjectClass) string { return classKey(c.Name) },
		Reconcile: func(acc, next model.ObjectClass) model.ObjectClass {
			if acc.Superclass == "" {
				acc.Superclass = next.Superclass
			}
			acc.Abstract = acc.Abstract || next.Abstract
			acc.Embedded = acc.Embedded || next.Embedded
			acc.Description = preferLonger(acc.Description, next.Description)
			acc.RelevantChunks = unionDocRefs(acc.RelevantChunks, next.RelevantChunks)
			return acc
		},
	})
	for i := range merged {
		sort.Slice(merged[i].RelevantChunks, func(a, b int) bool {
			return merged[i].RelevantChunks[a].DocID.String() < merged[i].RelevantChunks[b].DocID.String()
		})
	}
	return merged
}

// FilterClassesByRelevancy keeps classes whose classified relevancy meets
// the threshold. Classes the classifier did not mention are dropped.
func FilterClassesByRelevancy(classes []model.ObjectClass, levels []model.ClassRelevancy, min model.RelevancyLevel) []model.ObjectClass {
	byKey := make(map[string]model.RelevancyLevel, len(levels))
	for _, l := range levels {
		byKey[classKey(l.Name)] = l.Relevancy
	}
	out := make([]model.ObjectClass, 0, len(classes))
	for _, c := range classes {
		if lvl, ok := byKey[classKey(c.Name)]; ok && lvl.Meets(min) {
			out = append(out, c)
		}
	}
	return out
}

// RankObjectClasses applies a remote importance ordering to merged classes,
// keeping the full original item for every matched key and appending
// unmatched originals at the end.
func RankObjectClasses(originals, ranked []model.ObjectClass) []model.ObjectClass {
	return AlignRemote(originals, ranked, func(c model.ObjectClass) string { return classKey(c.Name) })
}

// SortClassesByName is the fallback ordering when remote ranking fails.
func SortClassesByName(classes []model.ObjectClass) []model.ObjectClass {
	out := make([]model.ObjectClass, len(classes))
	copy(out, classes)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func unionDocRefs(acc, next []model.DocRef) []model.DocRef {
	seen := make(map[string]bool, len(acc))
	for _, r := range acc {
		seen[r.DocID.String()] = true
	}
	for _, r := range next {
		if !seen[r.DocID.String()] {
			seen[r.DocID.String()] = true
			acc = append(acc, r)
		}
	}
	return acc
}

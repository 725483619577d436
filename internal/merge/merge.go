// Package merge collapses many per-chunk candidate records into one
// canonical record per logical key. The generic fold is parameterized by an
// entity policy; per-entity files hold the concrete policies.
package merge

import "strings"

// Policy describes how one entity kind dedupes and reconciles.
type Policy[T any, K comparable] struct {
	// Key computes the dedup key for a candidate.
	Key func(T) K
	// Reconcile folds one more candidate into the running merged value.
	// Must be commutative and idempotent per key so the merged map does
	// not depend on candidate order.
	Reconcile func(acc, next T) T
}

// Fold collapses candidates into one value per key, preserving first-seen
// key order. Re-folding already-merged output is a no-op.
func Fold[T any, K comparable](candidates []T, p Policy[T, K]) []T {
	merged := make(map[K]T, len(candidates))
	order := make([]K, 0, len(candidates))
	for _, c := range candidates {
		k := p.Key(c)
		if acc, ok := merged[k]; ok {
			merged[k] = p.Reconcile(acc, c)
		} else {
			merged[k] = c
			order = append(order, k)
		}
	}
	out := make([]T, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

// AlignRemote validates a remote reorder/filter result against the inputs.
// Remote items whose key matches no input are discarded; for matched keys
// the ORIGINAL item is kept in the remote's order, never the remote copy;
// inputs absent from the remote output are appended in their original
// relative order. The result therefore always holds exactly the input set.
func AlignRemote[T any, K comparable](originals, remote []T, key func(T) K) []T {
	byKey := make(map[K]T, len(originals))
	for _, o := range originals {
		k := key(o)
		if _, ok := byKey[k]; !ok {
			byKey[k] = o
		}
	}
	seen := make(map[K]bool, len(originals))
	out := make([]T, 0, len(originals))
	for _, r := range remote {
		k := key(r)
		orig, ok := byKey[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, orig)
	}
	for _, o := range originals {
		k := key(o)
		if !seen[k] {
			seen[k] = true
			out = append(out, o)
		}
	}
	return out
}

// preferLonger keeps whichever trimmed string is longer, biased toward the
// current value on ties.
func preferLonger(cur, cand string) string {
	if len(strings.TrimSpace(cand)) > len(strings.TrimSpace(cur)) {
		return cand
	}
	return cur
}

// unionStrings appends items of next not already present in acc, preserving
// first-seen order.
func unionStrings(acc, next []string) []string {
	seen := make(map[string]bool, len(acc))
	for _, s := range acc {
		seen[s] = true
	}
	for _, s := range next {
		if !seen[s] {
			seen[s] = true
			acc = append(acc, s)
		}
	}
	return acc
}

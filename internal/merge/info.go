package merge

import (
	"sort"
	"strings"

	"apidoc-digester/internal/domain/model"
)

// Info canonicalizes an aggregated metadata record before it is stored:
// fields are trimmed, a leading v/V is stripped from the API version, the
// API type list is deduped case-insensitively keeping first-seen casing, and
// base endpoints are deduped by (uri, type), given exactly one trailing
// slash, and sorted by uri with constant before dynamic on ties.
// Idempotent: re-canonicalizing canonical output is a no-op.
func Info(m model.InfoMetadata) model.InfoMetadata {
	m.Name = strings.TrimSpace(m.Name)
	m.ApplicationVersion = strings.TrimSpace(m.ApplicationVersion)
	m.APIVersion = stripVersionPrefix(strings.TrimSpace(m.APIVersion))

	seen := make(map[string]bool, len(m.APITypes))
	types := make([]string, 0, len(m.APITypes))
	for _, t := range m.APITypes {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if t == "" || seen[k] {
			continue
		}
		seen[k] = true
		types = append(types, t)
	}
	m.APITypes = types

	m.BaseAPIEndpoints = canonicalBaseEndpoints(m.BaseAPIEndpoints)
	return m
}

func canonicalBaseEndpoints(eps []model.BaseAPIEndpoint) []model.BaseAPIEndpoint {
	type epKey struct{ uri, typ string }
	seen := make(map[epKey]bool, len(eps))
	out := make([]model.BaseAPIEndpoint, 0, len(eps))
	for _, e := range eps {
		e.URI = strings.TrimRight(strings.TrimSpace(e.URI), "/") + "/"
		e.Type = strings.ToLower(strings.TrimSpace(e.Type))
		if e.URI == "/" {
			continue
		}
		if e.Type != "dynamic" {
			e.Type = "constant"
		}
		k := epKey{uri: e.URI, typ: e.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return out[i].Type == "constant" && out[j].Type == "dynamic"
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripVersionPrefix turns "v2" / "V2.1" into "2" / "2.1"; bare words like
// "version" stay untouched.
func stripVersionPrefix(v string) string {
	if len(v) >= 2 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}

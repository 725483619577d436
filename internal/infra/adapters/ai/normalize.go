package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/infra/metrics"
)

// Extraction models answer with typed records, fenced markdown, or prose
// around a JSON payload. Everything funnels through this normalization
// boundary immediately after the call, so internal code only ever sees
// decoded candidates or a classified error.

const (
	outcomeOK         = "ok"
	outcomeParseError = "parse_error"
	outcomeCallError  = "call_error"
)

// normalizeList classifies a raw model response into decoded candidates, a
// parse failure, or a call failure. Both failure kinds wrap
// domain.ErrExtractionFailure so orchestration treats them uniformly.
func normalizeList[T any](entity, raw string, callErr error) ([]T, error) {
	if callErr != nil {
		metrics.IncExtractionCall(entity, outcomeCallError)
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailure, callErr)
	}
	payload := extractJSONPayload(raw, '[', ']')
	if payload == "" {
		// Models answer a bare "none found" with prose or an empty string.
		metrics.IncExtractionCall(entity, outcomeOK)
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		metrics.IncExtractionCall(entity, outcomeParseError)
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrExtractionFailure, err)
	}
	metrics.IncExtractionCall(entity, outcomeOK)
	return items, nil
}

// normalizeObject is normalizeList for single-object responses.
func normalizeObject[T any](entity, raw string, callErr error) (*T, error) {
	if callErr != nil {
		metrics.IncExtractionCall(entity, outcomeCallError)
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailure, callErr)
	}
	payload := extractJSONPayload(raw, '{', '}')
	if payload == "" {
		metrics.IncExtractionCall(entity, outcomeParseError)
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrExtractionFailure)
	}
	var item T
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		metrics.IncExtractionCall(entity, outcomeParseError)
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrExtractionFailure, err)
	}
	metrics.IncExtractionCall(entity, outcomeOK)
	return &item, nil
}

// extractJSONPayload strips markdown fences and surrounding prose, returning
// the outermost open..close span or "" when none exists.
func extractJSONPayload(raw string, open, close byte) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

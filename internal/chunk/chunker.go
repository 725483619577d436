// Package chunk splits raw text into overlapping, token-bounded chunks and
// builds narrow token-windowed context snippets around phrase occurrences.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
)

// DefaultEncoding matches the tokenizer the extraction models are billed in.
const DefaultEncoding = "cl100k_base"

// snippetSeparator joins context windows when a phrase occurs more than once.
const snippetSeparator = "\n\n---\n\n"

var (
	encMu    sync.Mutex
	encCache = map[string]*tiktoken.Tiktoken{}
)

func encoding(name string) (*tiktoken.Tiktoken, error) {
	if name == "" {
		name = DefaultEncoding
	}
	encMu.Lock()
	defer encMu.Unlock()
	if enc, ok := encCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("get encoding %q: %w", name, err)
	}
	encCache[name] = enc
	return enc, nil
}

// Split cuts text into token-bounded chunks with a configurable overlap.
// maxTokens must be positive; overlapRatio is clamped into [0, 0.9]. Blank
// text yields an empty slice, not an error. Chunk boundaries are a pure
// function of (text, maxTokens, overlapRatio, encodingName).
func Split(text string, maxTokens int, overlapRatio float64, encodingName string) ([]model.Chunk, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: maxTokens must be > 0", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	// clamp to a sane range to avoid zero/negative steps or full overlap
	if overlapRatio < 0 {
		overlapRatio = 0
	}
	if overlapRatio > 0.9 {
		overlapRatio = 0.9
	}

	enc, err := encoding(encodingName)
	if err != nil {
		return nil, err
	}

	tokens := enc.Encode(text, nil, nil)
	overlap := int(float64(maxTokens) * overlapRatio)
	step := maxTokens - overlap
	if step < 1 {
		step = 1
	}

	var chunks []model.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		piece := tokens[start:end]
		chunks = append(chunks, model.Chunk{
			Text:       enc.Decode(piece),
			TokenCount: len(piece),
		})
	}
	return chunks, nil
}

// NeighboringContext returns a token-windowed snippet around every
// case-insensitive, word-boundary-respecting occurrence of phrase in text,
// joined by a separator. Returns "" when phrase or text is blank or the
// phrase does not occur. Used to build a narrow verification context around
// a previously extracted value.
func NeighboringContext(phrase, text string, tokensBefore, tokensAfter int, encodingName string) (string, error) {
	if strings.TrimSpace(phrase) == "" || strings.TrimSpace(text) == "" {
		return "", nil
	}

	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(phrase))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	var starts []int
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if wordBounded(text, loc[0], loc[1]) {
			starts = append(starts, loc[0])
		}
	}
	if len(starts) == 0 {
		return "", nil
	}

	enc, err := encoding(encodingName)
	if err != nil {
		return "", err
	}
	tokens := enc.Encode(text, nil, nil)

	var snippets []string
	for _, s := range starts {
		// Token offset of the occurrence is the length of the encoded prefix.
		at := len(enc.Encode(text[:s], nil, nil))
		lo := at - tokensBefore
		if lo < 0 {
			lo = 0
		}
		hi := at + tokensAfter
		if hi > len(tokens) {
			hi = len(tokens)
		}
		snippets = append(snippets, enc.Decode(tokens[lo:hi]))
	}
	return strings.Join(snippets, snippetSeparator), nil
}

// wordBounded reports whether text[start:end] is not embedded inside a
// larger alphanumeric run.
func wordBounded(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) && isWordByte(text[start]) {
		return false
	}
	if end < len(text) && isWordByte(text[end-1]) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}

package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
)

// scriptedChat returns canned responses in order, or a fixed error.
type scriptedChat struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedChat) Chat(_ context.Context, _ string, _ []adapter.Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "[]", nil
	}
	r := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return r, nil
}

func newTestExtractor(chat adapter.ChatModel) *Extractor {
	l := zerolog.Nop()
	return NewExtractor(chat, "test-model", &l)
}

func TestExtractorNormalization(t *testing.T) {
	ctx := context.Background()

	t.Run("bare JSON array decodes", func(t *testing.T) {
		e := newTestExtractor(&scriptedChat{responses: []string{
			`[{"path": "/users", "method": "GET", "description": "List users"}]`,
		}})
		got, err := e.ExtractEndpoints(ctx, "chunk", adapter.ExtractionContext{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Path != "/users" {
			t.Errorf("want one endpoint, got %+v", got)
		}
	})

	t.Run("fenced markdown answer decodes", func(t *testing.T) {
		e := newTestExtractor(&scriptedChat{responses: []string{
			"```json\n[{\"name\": \"User\", \"description\": \"an account\"}]\n```",
		}})
		got, err := e.ExtractObjectClasses(ctx, "chunk", adapter.ExtractionContext{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Name != "User" {
			t.Errorf("fenced answer not decoded: %+v", got)
		}
	})

	t.Run("prose with embedded array decodes", func(t *testing.T) {
		e := newTestExtractor(&scriptedChat{responses: []string{
			`Here are the mechanisms: [{"name": "OAuth2", "type": "oauth2"}] as requested.`,
		}})
		got, err := e.ExtractAuthMethods(ctx, "chunk", adapter.ExtractionContext{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Type != "oauth2" {
			t.Errorf("embedded array not decoded: %+v", got)
		}
	})

	t.Run("prose without JSON yields no candidates", func(t *testing.T) {
		e := newTestExtractor(&scriptedChat{responses: []string{"No endpoints found in this text."}})
		got, err := e.ExtractEndpoints(ctx, "chunk", adapter.ExtractionContext{})
		if err != nil || got != nil {
			t.Errorf("want (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("undecodable JSON is an extraction failure", func(t *testing.T) {
		e := newTestExtractor(&scriptedChat{responses: []string{`[{"name": }]`}})
		_, err := e.ExtractObjectClasses(ctx, "chunk", adapter.ExtractionContext{})
		if !errors.Is(err, domain.ErrExtractionFailure) {
			t.Errorf("want ErrExtractionFailure, got %v", err)
		}
	})

	t.Run("call failure is an extraction failure", func(t *testing.T) {
		e := newTestExtractor(&scriptedChat{err: errors.New("rate limited")})
		_, err := e.ExtractAttributes(ctx, "chunk", adapter.ExtractionContext{ObjectClass: "User"})
		if !errors.Is(err, domain.ErrExtractionFailure) {
			t.Errorf("want ErrExtractionFailure, got %v", err)
		}
	})
}

func TestExtractorVerifyEndpoint(t *testing.T) {
	e := newTestExtractor(&scriptedChat{responses: []string{
		`{"path": "/users/{id}", "method": "GET", "description": "Fetch one user"}`,
	}})
	got, err := e.VerifyEndpointParams(context.Background(),
		model.Endpoint{Path: "/users/{id}", Method: "GET"}, "snippet", adapter.ExtractionContext{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "Fetch one user" {
		t.Errorf("verification result not decoded: %+v", got)
	}
}

func TestExtractorAggregateInfo(t *testing.T) {
	e := newTestExtractor(&scriptedChat{responses: []string{
		`{"name": "Acme", "apiVersion": "2", "apiType": ["REST"], "baseApiEndpoint": [{"uri": "https://api.acme.com/", "type": "constant"}]}`,
	}})
	got, err := e.AggregateInfo(context.Background(), "chunk",
		model.InfoMetadata{Name: "Acme"}, adapter.ExtractionContext{})
	if err != nil {
		t.Fatal(err)
	}
	if got.APIVersion != "2" || len(got.BaseAPIEndpoints) != 1 || got.BaseAPIEndpoints[0].Type != "constant" {
		t.Errorf("aggregate not decoded: %+v", got)
	}
}

func TestExtractorResolveAttributeDuplicates(t *testing.T) {
	e := newTestExtractor(&scriptedChat{responses: []string{
		`[{"name": "Status", "type": "enum", "description": "account state"}]`,
	}})
	got, err := e.ResolveAttributeDuplicates(context.Background(), "User", nil)
	if err != nil {
		t.Fatal(err)
	}
	if pick, ok := got["status"]; !ok || pick.Type != "enum" {
		t.Errorf("want normalized-name keyed pick, got %+v", got)
	}
}

func TestMultiChatModelRouting(t *testing.T) {
	openai := &scriptedChat{responses: []string{"openai"}}
	gemini := &scriptedChat{responses: []string{"gemini"}}
	m := NewMultiChatModel("openai", map[string]adapter.ChatModel{
		"openai": openai,
		"gemini": gemini,
	})

	if got, _ := m.Chat(context.Background(), "gemini-2.0-flash", nil); got != "gemini" {
		t.Errorf("gemini model routed wrong: %q", got)
	}
	if got, _ := m.Chat(context.Background(), "gpt-4o-mini", nil); got != "openai" {
		t.Errorf("gpt model routed wrong: %q", got)
	}
	if got, _ := m.Chat(context.Background(), "something-else", nil); got == "" {
		t.Error("default provider not used")
	}
}

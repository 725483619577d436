package chunk

import (
	"errors"
	"strings"
	"testing"

	"apidoc-digester/internal/domain"
)

func TestSplit(t *testing.T) {
	t.Run("empty and whitespace input yields no chunks", func(t *testing.T) {
		for _, in := range []string{"", "   ", "\n\t  \n"} {
			got, err := Split(in, 100, 0.1, "")
			if err != nil {
				t.Fatalf("Split(%q): unexpected error: %v", in, err)
			}
			if len(got) != 0 {
				t.Fatalf("Split(%q): want 0 chunks, got %d", in, len(got))
			}
		}
	})

	t.Run("non-positive maxTokens is rejected", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			_, err := Split("hello world", n, 0.1, "")
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("Split(maxTokens=%d): want ErrInvalidArgument, got %v", n, err)
			}
		}
	})

	t.Run("short text fits in a single chunk", func(t *testing.T) {
		text := "GET /users returns the list of users."
		got, err := Split(text, 1000, 0.1, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("want 1 chunk, got %d", len(got))
		}
		if got[0].Text != text {
			t.Errorf("single chunk must round-trip the input, got %q", got[0].Text)
		}
		if got[0].TokenCount <= 0 || got[0].TokenCount > 1000 {
			t.Errorf("token count out of range: %d", got[0].TokenCount)
		}
	})

	t.Run("every chunk respects the token cap", func(t *testing.T) {
		text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
		got, err := Split(text, 50, 0.2, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(got))
		}
		for i, c := range got {
			if c.TokenCount > 50 {
				t.Errorf("chunk %d exceeds cap: %d tokens", i, c.TokenCount)
			}
			if c.TokenCount <= 0 {
				t.Errorf("chunk %d has no tokens", i)
			}
		}
	})

	t.Run("consecutive chunks share overlapping text", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta epsilon zeta ", 100)
		got, err := Split(text, 40, 0.5, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(got))
		}
		// With 50% overlap the tail of chunk i reappears at the head of i+1.
		tail := got[0].Text[len(got[0].Text)/2:]
		if !strings.Contains(got[1].Text, strings.TrimSpace(tail[:20])) {
			t.Errorf("chunk 1 does not share text with chunk 0 tail")
		}
	})

	t.Run("overlap ratio above 0.9 is clamped, not rejected", func(t *testing.T) {
		text := strings.Repeat("one two three four five ", 50)
		got, err := Split(text, 20, 5.0, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) == 0 {
			t.Fatal("want chunks, got none")
		}
		// step = max(1, 20 - 18) = 2; bounded chunk count proves termination
		if len(got) > 1000 {
			t.Fatalf("suspiciously many chunks: %d", len(got))
		}
	})

	t.Run("same input gives same chunks", func(t *testing.T) {
		text := strings.Repeat("POST /orders creates an order. ", 80)
		a, err := Split(text, 30, 0.25, "")
		if err != nil {
			t.Fatal(err)
		}
		b, err := Split(text, 30, 0.25, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(a) != len(b) {
			t.Fatalf("chunk count differs: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("chunk %d differs between runs", i)
			}
		}
	})
}

func TestNeighboringContext(t *testing.T) {
	t.Run("blank phrase or text yields empty string", func(t *testing.T) {
		for _, tc := range [][2]string{{"", "some text"}, {"phrase", ""}, {"  ", "text"}} {
			got, err := NeighboringContext(tc[0], tc[1], 10, 10, "")
			if err != nil {
				t.Fatal(err)
			}
			if got != "" {
				t.Errorf("NeighboringContext(%q, %q) = %q, want empty", tc[0], tc[1], got)
			}
		}
	})

	t.Run("missing phrase yields empty string", func(t *testing.T) {
		got, err := NeighboringContext("/payments", "GET /users returns users.", 10, 10, "")
		if err != nil {
			t.Fatal(err)
		}
		if got != "" {
			t.Errorf("want empty, got %q", got)
		}
	})

	t.Run("match is case-insensitive and includes surrounding text", func(t *testing.T) {
		text := "Authentication uses bearer tokens. Call GET /Users to list accounts. Responses are JSON."
		got, err := NeighboringContext("get /users", text, 5, 5, "")
		if err != nil {
			t.Fatal(err)
		}
		if got == "" {
			t.Fatal("want a snippet, got empty")
		}
		if !strings.Contains(strings.ToLower(got), "get /users") {
			t.Errorf("snippet does not contain the phrase: %q", got)
		}
	})

	t.Run("embedded occurrences are skipped", func(t *testing.T) {
		got, err := NeighboringContext("user", "The superusers table holds superuser rows.", 5, 5, "")
		if err != nil {
			t.Fatal(err)
		}
		if got != "" {
			t.Errorf("embedded match must not count, got %q", got)
		}
	})

	t.Run("multiple occurrences are joined", func(t *testing.T) {
		text := "First mention of /orders here. " + strings.Repeat("filler words between the two mentions. ", 40) + "Second mention of /orders there."
		got, err := NeighboringContext("/orders", text, 3, 3, "")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, snippetSeparator) {
			t.Errorf("want joined snippets with separator, got %q", got)
		}
	})
}

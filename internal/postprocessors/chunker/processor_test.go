package chunker

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default width", func(t *testing.T) {
		p := New()
		if p.Width() != DefaultWidth {
			t.Errorf("expected width %d, got %d", DefaultWidth, p.Width())
		}
	})

	t.Run("custom width", func(t *testing.T) {
		p := New(WithWidth(80))
		if p.Width() != 80 {
			t.Errorf("expected width 80, got %d", p.Width())
		}
	})

	t.Run("non-positive width ignored", func(t *testing.T) {
		p := New(WithWidth(0), WithWidth(-3))
		if p.Width() != DefaultWidth {
			t.Errorf("expected default width, got %d", p.Width())
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		width int
		text  string
		want  []string
	}{
		{
			name:  "greedy packing",
			width: 10,
			text:  "The quick brown fox jumps",
			want:  []string{"The quick", "brown fox", "jumps"},
		},
		{
			name:  "shorter than width",
			width: 500,
			text:  "hello world",
			want:  []string{"hello world"},
		},
		{
			name:  "empty text",
			width: 10,
			text:  "",
			want:  nil,
		},
		{
			name:  "whitespace only",
			width: 10,
			text:  "   \n\t  ",
			want:  nil,
		},
		{
			name:  "oversized word kept whole",
			width: 5,
			text:  "a supercalifragilistic b",
			want:  []string{"a", "supercalifragilistic", "b"},
		},
		{
			name:  "oversized word only",
			width: 3,
			text:  "abcdefgh",
			want:  []string{"abcdefgh"},
		},
		{
			name:  "leading whitespace kept on first line",
			width: 20,
			text:  "  hello world",
			want:  []string{"  hello world"},
		},
		{
			name:  "internal spaces preserved",
			width: 10,
			text:  "a  b",
			want:  []string{"a  b"},
		},
		{
			name:  "newlines become spaces",
			width: 100,
			text:  "line one\nline two\r\n",
			want:  []string{"line one line two"},
		},
		{
			name:  "tabs expand to tab stops",
			width: 100,
			text:  "a\tb",
			want:  []string{"a       b"},
		},
		{
			name:  "width counted in characters",
			width: 5,
			text:  "héllo wörld",
			want:  []string{"héllo", "wörld"},
		},
		{
			name:  "exact fit",
			width: 11,
			text:  "hello world again",
			want:  []string{"hello world", "again"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := New(WithWidth(tc.width)).Wrap(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
			}
		})
	}
}

func TestWrap_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocabulary := []string{"ocr", "page", "chunk", "retrieval", "a", "embedding", "vector", "pneumonoultramicroscopic"}
	separators := []string{" ", "  ", "\n", "\t", " \n "}

	for trial := 0; trial < 50; trial++ {
		var b strings.Builder
		for i := 0; i < 200; i++ {
			b.WriteString(vocabulary[rng.Intn(len(vocabulary))])
			b.WriteString(separators[rng.Intn(len(separators))])
		}
		text := b.String()
		width := 10 + rng.Intn(60)

		lines := New(WithWidth(width)).Wrap(text)

		if got, want := strings.Fields(strings.Join(lines, " ")), strings.Fields(text); !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d: words not preserved", trial)
		}
		for _, line := range lines {
			if utf8.RuneCountInString(line) > width && len(strings.Fields(line)) != 1 {
				t.Fatalf("trial %d: line %q exceeds width %d", trial, line, width)
			}
			if strings.HasSuffix(line, " ") {
				t.Fatalf("trial %d: line %q has trailing whitespace", trial, line)
			}
		}
	}
}

func TestWrap_Deterministic(t *testing.T) {
	text := strings.Repeat("deterministic output for identical input ", 40)
	p := New(WithWidth(37))

	if !reflect.DeepEqual(p.Wrap(text), p.Wrap(text)) {
		t.Error("expected identical output for identical input")
	}
}

func TestProcessor_Process(t *testing.T) {
	// 240 four-letter words: 1199 characters.
	text := strings.TrimSpace(strings.Repeat("abcd ", 240))
	p := New(WithWidth(500))

	chunks, err := p.Process(context.Background(), &domain.ExtractedText{Document: "intro", Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantNames := []string{"intro_chunk0.txt", "intro_chunk1.txt", "intro_chunk2.txt"}
	wantLens := []int{499, 499, 199}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Document != "intro" {
			t.Errorf("chunk %d has document %q", i, c.Document)
		}
		if c.Name() != wantNames[i] {
			t.Errorf("chunk %d name = %q, want %q", i, c.Name(), wantNames[i])
		}
		if len(c.Text) != wantLens[i] {
			t.Errorf("chunk %d length = %d, want %d", i, len(c.Text), wantLens[i])
		}
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := New()

	chunks, err := p.Process(context.Background(), &domain.ExtractedText{Document: "empty"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_NilText(t *testing.T) {
	_, err := New().Process(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessor_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Process(ctx, &domain.ExtractedText{Document: "x", Text: "words"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

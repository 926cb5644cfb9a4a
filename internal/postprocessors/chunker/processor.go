// Package chunker splits extracted text into word-aligned chunks.
//
// The wrap is greedy: each chunk takes as many whole words as fit in the
// configured width. Words are never split, so a single word longer than the
// width becomes a chunk of its own that exceeds the width.
package chunker

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultWidth is the default maximum number of characters per chunk.
const DefaultWidth = domain.DefaultChunkWidth

// tabSize is the tab stop distance used when expanding tabs.
const tabSize = 8

// Processor wraps document text into chunks of bounded width.
type Processor struct {
	width int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWidth sets the maximum chunk width in characters.
func WithWidth(width int) Option {
	return func(p *Processor) {
		if width > 0 {
			p.width = width
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		width: DefaultWidth,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Width returns the maximum chunk width in characters.
func (p *Processor) Width() int {
	return p.width
}

// Process wraps the extracted text and numbers the resulting chunks from zero.
func (p *Processor) Process(ctx context.Context, text *domain.ExtractedText) ([]domain.Chunk, error) {
	if text == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := p.Wrap(text.Text)
	if len(lines) == 0 {
		// Empty or whitespace-only text produces no chunks
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(lines))
	for i, line := range lines {
		chunks[i] = domain.Chunk{
			Document: text.Document,
			Index:    i,
			Text:     line,
		}
	}
	return chunks, nil
}

// token is a run of either word or space characters.
type token struct {
	text  string
	runes int
	space bool
}

// Wrap splits text into lines of at most Width characters, breaking only at
// whitespace. Tabs are expanded and every whitespace character becomes a
// space. Whitespace is dropped at the end of every line and at the start of
// every line except the first.
func (p *Processor) Wrap(text string) []string {
	tokens := tokenize(normaliseWhitespace(text))

	var lines []string
	i := 0
	for i < len(tokens) {
		if tokens[i].space && len(lines) > 0 {
			i++
			continue
		}

		start, width := i, 0
		for i < len(tokens) && width+tokens[i].runes <= p.width {
			width += tokens[i].runes
			i++
		}
		if i == start {
			// Token wider than the line on its own: keep it whole.
			i++
		}

		end := i
		if tokens[end-1].space {
			end--
		}
		if end > start {
			lines = append(lines, joinTokens(tokens[start:end]))
		}
	}

	return lines
}

// normaliseWhitespace expands tabs to the next tab stop and replaces every
// other whitespace character with a single space.
func normaliseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	column := 0
	for _, r := range text {
		switch {
		case r == '\t':
			pad := tabSize - column%tabSize
			b.WriteString(strings.Repeat(" ", pad))
			column += pad
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
			column = 0
		case unicode.IsSpace(r):
			b.WriteByte(' ')
			column++
		default:
			b.WriteRune(r)
			column++
		}
	}
	return b.String()
}

// tokenize splits text into alternating word and space runs.
func tokenize(text string) []token {
	var tokens []token
	start := 0
	for start < len(text) {
		space := text[start] == ' '
		end := start
		for end < len(text) && (text[end] == ' ') == space {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		tokens = append(tokens, token{
			text:  text[start:end],
			runes: utf8.RuneCountInString(text[start:end]),
			space: space,
		})
		start = end
	}
	return tokens
}

func joinTokens(tokens []token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.text)
	}
	return b.String()
}

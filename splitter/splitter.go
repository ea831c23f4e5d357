// Package splitter splits markdown into documents at header boundaries and
// optionally re-chunks oversized documents by size.
package splitter

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// Header maps a markdown header prefix ("#", "##", ...) to the metadata key
// the header text is stored under.
type Header struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Name   string `json:"name" yaml:"name"`
}

// DefaultHeaders splits on the first three header levels.
var DefaultHeaders = []Header{
	{Prefix: "#", Name: "Header 1"},
	{Prefix: "##", Name: "Header 2"},
	{Prefix: "###", Name: "Header 3"},
}

// Option configures a MarkdownHeader splitter.
type Option func(*MarkdownHeader)

// WithStripHeaders removes header lines from document content. Headers are
// kept by default so a section consisting only of a header still yields a
// document.
func WithStripHeaders(strip bool) Option {
	return func(s *MarkdownHeader) { s.stripHeaders = strip }
}

// MarkdownHeader splits markdown text on header lines. Lines inside fenced
// code blocks are never treated as headers.
type MarkdownHeader struct {
	headers      []Header
	stripHeaders bool
}

// New returns a splitter for headers. An empty list selects DefaultHeaders.
func New(headers []Header, opts ...Option) *MarkdownHeader {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	hs := make([]Header, len(headers))
	copy(hs, headers)
	// Longest prefix first so "##" is not taken for "#".
	sort.SliceStable(hs, func(i, j int) bool { return len(hs[i].Prefix) > len(hs[j].Prefix) })

	s := &MarkdownHeader{headers: hs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split is shorthand for New(headers).Split(text).
func Split(text string, headers ...Header) []schema.Document {
	return New(headers).Split(text)
}

type activeHeader struct {
	level int
	name  string
}

// Split returns one document per header section, in order. Each document's
// metadata holds the text of every enclosing header by name. Sections with
// no non-blank content are dropped.
func (s *MarkdownHeader) Split(text string) []schema.Document {
	var (
		docs    []schema.Document
		current []string
		stack   []activeHeader
		meta    = map[string]any{}
		fence   string
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if content == "" {
			return
		}
		docs = append(docs, schema.Document{PageContent: content, Metadata: copyMeta(meta)})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if fence != "" {
			current = append(current, line)
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if f := fenceMarker(trimmed); f != "" {
			fence = f
			current = append(current, line)
			continue
		}

		h, title, ok := s.match(trimmed)
		if !ok {
			current = append(current, line)
			continue
		}

		flush()
		level := len(h.Prefix)
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			delete(meta, stack[len(stack)-1].name)
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, activeHeader{level: level, name: h.Name})
		meta[h.Name] = title
		if !s.stripHeaders {
			current = append(current, trimmed)
		}
	}
	flush()

	return docs
}

// match reports whether line is one of the configured headers and returns
// the header text.
func (s *MarkdownHeader) match(line string) (Header, string, bool) {
	for _, h := range s.headers {
		if !strings.HasPrefix(line, h.Prefix) {
			continue
		}
		rest := line[len(h.Prefix):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		return h, strings.TrimSpace(rest), true
	}
	return Header{}, "", false
}

// fenceMarker returns the fence that opens a code block on line, or "".
func fenceMarker(line string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(line, f) {
			return f
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// size-based chunking
// ---------------------------------------------------------------------------

// Chunk splits every document longer than size runes with langchaingo's
// recursive character splitter. Pieces keep a copy of their document's
// metadata. A non-positive size returns docs unchanged.
func Chunk(docs []schema.Document, size, overlap int) ([]schema.Document, error) {
	if size <= 0 {
		return docs, nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	rc := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)

	out := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		if utf8.RuneCountInString(doc.PageContent) <= size {
			out = append(out, doc)
			continue
		}
		pieces, err := rc.SplitText(doc.PageContent)
		if err != nil {
			return nil, err
		}
		for _, p := range pieces {
			if strings.TrimSpace(p) == "" {
				continue
			}
			out = append(out, schema.Document{PageContent: p, Metadata: copyMeta(doc.Metadata)})
		}
	}
	return out, nil
}

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

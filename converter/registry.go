package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned when no converter is registered for a
// file extension.
var ErrUnsupportedFormat = errors.New("converter: unsupported format")

// LlamaParseConfig configures the remote converter used for legacy binary
// formats.
type LlamaParseConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// Registry maps lowercase file extensions (without dot) to converters.
type Registry struct {
	converters map[string]Converter
}

// NewRegistry returns a registry with every built-in converter registered.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	for _, c := range []Converter{
		&DOCXConverter{},
		&PPTXConverter{},
		&XLSXConverter{},
		&XLSConverter{},
		&PDFConverter{},
		&HTMLConverter{},
		&TextConverter{},
	} {
		r.Register(c)
	}
	return r
}

// SetLlamaParse registers the LlamaParse converter for the legacy formats
// no native converter handles.
func (r *Registry) SetLlamaParse(cfg LlamaParseConfig) {
	lp := NewLlamaParseConverter(cfg)
	for _, f := range lp.SupportedFormats() {
		if _, ok := r.converters[f]; !ok {
			r.converters[f] = lp
		}
	}
}

// Register adds c for every format it supports, replacing earlier entries.
func (r *Registry) Register(c Converter) {
	for _, f := range c.SupportedFormats() {
		r.converters[strings.ToLower(f)] = c
	}
}

// Get returns the converter for format (an extension with or without the
// leading dot).
func (r *Registry) Get(format string) (Converter, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	c, ok := r.converters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return c, nil
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.converters))
	for f := range r.converters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Convert picks a converter by the extension of path and runs it.
func (r *Registry) Convert(ctx context.Context, path string) (*Result, error) {
	c, err := r.Get(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return c.Convert(ctx, path)
}

package mdloader

import (
	"log/slog"
	"os"

	"github.com/brunobiangulo/mdloader/converter"
	"github.com/brunobiangulo/mdloader/llm"
	"github.com/brunobiangulo/mdloader/metrics"
	"github.com/brunobiangulo/mdloader/splitter"
)

// Option configures a loader.
type Option func(*options)

type options struct {
	splitByPage  bool
	vision       llm.VisionProvider
	prompt       string
	verbose      bool
	logger       *slog.Logger
	metrics      *metrics.Collector
	registry     *converter.Registry
	headers      []splitter.Header
	chunkSize    int
	chunkOverlap int
}

// WithSplitByPage emits one document per slide, sheet or page (further
// split at markdown headers) instead of a single document.
func WithSplitByPage(split bool) Option {
	return func(o *options) { o.splitByPage = split }
}

// WithCaptioner enables vision captions for PPTX pictures.
func WithCaptioner(p llm.VisionProvider) Option {
	return func(o *options) { o.vision = p }
}

// WithPrompt overrides the caption prompt.
func WithPrompt(prompt string) Option {
	return func(o *options) { o.prompt = prompt }
}

// WithVerbose logs at debug level to stderr. Ignored when WithLogger is set.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// WithLogger sets the logger used by the loader.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records load and caption metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithRegistry replaces the default converter registry.
func WithRegistry(r *converter.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithHeaders sets the markdown headers Load splits segments at. The
// default is splitter.DefaultHeaders.
func WithHeaders(headers ...splitter.Header) Option {
	return func(o *options) { o.headers = headers }
}

// WithChunkSize splits documents longer than size runes into pieces of at
// most size runes, overlapping by overlap runes. Zero disables chunking.
func WithChunkSize(size, overlap int) Option {
	return func(o *options) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.headers) == 0 {
		o.headers = splitter.DefaultHeaders
	}
	if o.registry == nil {
		o.registry = converter.NewRegistry()
	}
	if o.logger == nil {
		level := slog.LevelWarn
		if o.verbose {
			level = slog.LevelDebug
		}
		o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return o
}

// Package mdloader loads office and text documents as markdown-first
// langchaingo documents.
//
// A load converts the file to markdown, attaches file and document
// metadata, optionally replaces PPTX picture references with vision
// captions, and returns either the whole document or one document per
// slide, sheet or page split further at markdown headers.
package mdloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/brunobiangulo/mdloader/caption"
	"github.com/brunobiangulo/mdloader/converter"
	"github.com/brunobiangulo/mdloader/metadata"
	"github.com/brunobiangulo/mdloader/metrics"
	"github.com/brunobiangulo/mdloader/splitter"
)

// Loader loads one file as documents.
type Loader interface {
	documentloaders.Loader

	// LoadWithHeaders is Load with a call-time override of the markdown
	// headers segments are split at.
	LoadWithHeaders(ctx context.Context, headers ...splitter.Header) ([]schema.Document, error)
}

var (
	_ Loader = (*BaseLoader)(nil)
	_ Loader = (*DocxLoader)(nil)
	_ Loader = (*PptxLoader)(nil)
	_ Loader = (*XlsxLoader)(nil)
)

// New returns the loader for path's extension: DOCX, PPTX and XLSX/XLS get
// their dedicated loaders, everything else a BaseLoader.
func New(path string, opts ...Option) Loader {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "docx":
		return NewDocxLoader(path, opts...)
	case "pptx":
		return NewPptxLoader(path, opts...)
	case "xlsx", "xlsm", "xls":
		return NewXlsxLoader(path, opts...)
	default:
		return NewBaseLoader(path, opts...)
	}
}

// BaseLoader loads any format the converter registry handles. In split
// mode it emits one document per converter page, or header sections when
// the format has no pages.
type BaseLoader struct{ *loader }

// NewBaseLoader returns a BaseLoader for path.
func NewBaseLoader(path string, opts ...Option) *BaseLoader {
	return &BaseLoader{newLoader(path, kindBase, opts)}
}

// DocxLoader loads Word documents. Converter metadata (core properties,
// page count) is merged into every document.
type DocxLoader struct{ *loader }

// NewDocxLoader returns a DocxLoader for path.
func NewDocxLoader(path string, opts ...Option) *DocxLoader {
	return &DocxLoader{newLoader(path, kindDocx, opts)}
}

// PptxLoader loads presentations with shape statistics and optional
// picture captions. In split mode it emits one document per slide.
type PptxLoader struct{ *loader }

// NewPptxLoader returns a PptxLoader for path.
func NewPptxLoader(path string, opts ...Option) *PptxLoader {
	return &PptxLoader{newLoader(path, kindPptx, opts)}
}

// XlsxLoader loads workbooks. In split mode it emits one document per
// sheet.
type XlsxLoader struct{ *loader }

// NewXlsxLoader returns an XlsxLoader for path.
func NewXlsxLoader(path string, opts ...Option) *XlsxLoader {
	return &XlsxLoader{newLoader(path, kindXlsx, opts)}
}

type kind int

const (
	kindBase kind = iota
	kindDocx
	kindPptx
	kindXlsx
)

func (k kind) String() string {
	switch k {
	case kindDocx:
		return "docx"
	case kindPptx:
		return "pptx"
	case kindXlsx:
		return "xlsx"
	default:
		return "base"
	}
}

// loader implements the load pipeline shared by all loaders:
// stat, convert, extract metadata, inject captions, segment.
type loader struct {
	path      string
	kind      kind
	opts      options
	captioner *caption.Captioner
}

func newLoader(path string, k kind, opts []Option) *loader {
	o := newOptions(opts)
	l := &loader{path: path, kind: k, opts: o}
	if o.vision != nil {
		l.captioner = caption.New(o.vision, caption.WithPrompt(o.prompt))
	}
	return l
}

// Load converts the file and returns its documents.
func (l *loader) Load(ctx context.Context) ([]schema.Document, error) {
	return l.load(ctx, l.opts.headers)
}

// LoadWithHeaders is Load splitting segments at headers instead of the
// configured ones.
func (l *loader) LoadWithHeaders(ctx context.Context, headers ...splitter.Header) ([]schema.Document, error) {
	if len(headers) == 0 {
		headers = l.opts.headers
	}
	return l.load(ctx, headers)
}

// LoadAndSplit loads the documents and splits them with ts.
func (l *loader) LoadAndSplit(ctx context.Context, ts textsplitter.TextSplitter) ([]schema.Document, error) {
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return textsplitter.SplitDocuments(ts, docs)
}

func (l *loader) load(ctx context.Context, headers []splitter.Header) ([]schema.Document, error) {
	start := time.Now()
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(l.path), "."))
	log := l.opts.logger.With("loader", l.kind.String(), "source", l.path)

	log.Info("load: converting", "format", format, "split_by_page", l.opts.splitByPage)
	docs, err := l.run(ctx, log, headers)
	elapsed := time.Since(start)

	if err != nil {
		l.opts.metrics.ObserveLoad(format, metrics.StatusError, elapsed, 0)
		log.Error("load: failed", "error", err, "elapsed_ms", elapsed.Milliseconds())
		return nil, err
	}

	l.opts.metrics.ObserveLoad(format, metrics.StatusOK, elapsed, len(docs))
	log.Info("load: complete", "documents", len(docs), "elapsed_ms", elapsed.Milliseconds())
	return docs, nil
}

func (l *loader) run(ctx context.Context, log *slog.Logger, headers []splitter.Header) ([]schema.Document, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", ErrConversionFailed, ErrFileNotFound, l.path)
		}
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	result, err := l.opts.registry.Convert(ctx, l.path)
	if err != nil {
		if errors.Is(err, converter.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %w: %s", ErrConversionFailed, ErrUnsupportedFormat, l.path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConversionFailed, l.path, err)
	}
	log.Debug("load: converted", "chars", len(result.Text), "pages", len(result.Pages), "images", len(result.Images))

	meta := l.baseMetadata(info, result)
	l.extractMetadata(log, meta)

	text := result.Text
	if l.kind == kindPptx && l.captioner != nil {
		var stats captionStats
		text, stats, err = injectCaptions(ctx, text, result.Images, l.captioner, l.opts.metrics, log)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
		}
		stats.record(meta)
	}

	docs := l.segment(text, result, meta, headers)

	if l.opts.chunkSize > 0 {
		docs, err = splitter.Chunk(docs, l.opts.chunkSize, l.opts.chunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("%w: chunking: %w", ErrConversionFailed, err)
		}
	}
	return docs, nil
}

// baseMetadata returns the file metadata merged with what the converter
// reported.
func (l *loader) baseMetadata(info os.FileInfo, result *converter.Result) map[string]any {
	base := map[string]any{
		metadata.Source:            l.path,
		metadata.FileName:          filepath.Base(l.path),
		metadata.FileSize:          info.Size(),
		metadata.ConversionSuccess: true,
	}
	meta := metadata.Merge(base, result.Metadata)
	if _, ok := meta[metadata.Title]; !ok && result.Title != "" {
		meta[metadata.Title] = result.Title
	}
	return meta
}

// extractMetadata adds the format's extracted metadata to meta. Failure is
// logged and recorded, never returned.
func (l *loader) extractMetadata(log *slog.Logger, meta map[string]any) {
	var extract func(string) (map[string]any, error)
	switch l.kind {
	case kindPptx:
		extract = metadata.Presentation
	case kindXlsx:
		// Legacy XLS is not an OOXML package; its sheet count comes from
		// the converter.
		if !strings.EqualFold(filepath.Ext(l.path), ".xls") {
			extract = metadata.Workbook
		}
	}
	if extract == nil {
		return
	}

	extra, err := extract(l.path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMetadataExtraction, err)
		log.Warn("load: metadata extraction failed", "error", err)
		meta[metadata.ExtractionError] = err.Error()
		return
	}
	for k, v := range extra {
		meta[k] = v
	}
}

package mdloader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/brunobiangulo/mdloader/caption"
	"github.com/brunobiangulo/mdloader/converter"
	"github.com/brunobiangulo/mdloader/metadata"
	"github.com/brunobiangulo/mdloader/metrics"
)

type captionStats struct {
	captioned int
	failed    int
	lastErr   string
}

func (s captionStats) record(meta map[string]any) {
	meta[metadata.CaptionedImageCount] = s.captioned
	if s.failed > 0 {
		meta[metadata.CaptionFailureCount] = s.failed
		meta[metadata.CaptionError] = s.lastErr
	}
}

// injectCaptions captions images in order and replaces each image's own
// markdown reference (link target equal to its placeholder) with
// "![caption]()". References are consumed in document order whether or not
// the image gets a caption, so repeated shape names stay on their slide.
// Captioning failures are logged and counted; only context cancellation is
// returned.
func injectCaptions(ctx context.Context, text string, images []converter.Image, c *caption.Captioner, m *metrics.Collector, log *slog.Logger) (string, captionStats, error) {
	var stats captionStats
	cursor := 0
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return text, stats, err
		}

		token := img.Placeholder
		if token == "" {
			token = converter.PlaceholderName(img.Name)
		}
		refStart, refEnd, found := findImageRef(text, token, cursor)
		if found {
			cursor = refEnd
		}

		info := caption.StreamInfo{MIMEType: img.MIMEType, Name: img.Name}
		desc, err := c.Caption(ctx, bytes.NewReader(img.Data), info)
		switch {
		case errors.Is(err, caption.ErrUnsupportedFormat):
			m.ObserveCaption(metrics.CaptionUnsupported)
			log.Debug("caption: skipping unsupported image", "shape", img.Name, "mime", img.MIMEType)
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return text, stats, ctxErr
			}
			m.ObserveCaption(metrics.CaptionFailed)
			stats.failed++
			stats.lastErr = err.Error()
			log.Warn("caption: failed", "shape", img.Name, "slide", img.PageNumber, "error", err)
			continue
		case desc == "":
			m.ObserveCaption(metrics.CaptionEmpty)
			log.Debug("caption: empty answer", "shape", img.Name)
			continue
		}

		if !found {
			log.Debug("caption: placeholder not found", "shape", img.Name, "placeholder", token)
			continue
		}
		ref := "![" + converter.AltText(desc) + "]()"
		text = text[:refStart] + ref + text[refEnd:]
		cursor = refStart + len(ref)
		m.ObserveCaption(metrics.CaptionOK)
		stats.captioned++
	}
	return text, stats, nil
}

// findImageRef locates the first markdown image at or after from whose link
// target is token. The alt text may contain backslash escapes but no bare
// brackets.
func findImageRef(text, token string, from int) (start, end int, ok bool) {
	suffix := "](" + token + ")"
	for from <= len(text) {
		i := strings.Index(text[from:], suffix)
		if i < 0 {
			return 0, 0, false
		}
		at := from + i
		if open, found := altStart(text[from:at]); found {
			return from + open, at + len(suffix), true
		}
		from = at + 1
	}
	return 0, 0, false
}

// altStart walks back from the end of s to the "![" that opens the alt text
// ending there.
func altStart(s string) (int, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '[':
			if escaped(s, i) {
				continue
			}
			if i > 0 && s[i-1] == '!' {
				return i - 1, true
			}
			return 0, false
		case ']':
			if !escaped(s, i) {
				return 0, false
			}
		}
	}
	return 0, false
}

// escaped reports whether s[i] is preceded by an odd number of backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

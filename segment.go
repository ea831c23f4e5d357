package mdloader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/schema"

	"github.com/brunobiangulo/mdloader/converter"
	"github.com/brunobiangulo/mdloader/metadata"
	"github.com/brunobiangulo/mdloader/splitter"
)

// Content types.
const (
	ContentDocumentFull      = "document_full"
	ContentDocumentPage      = "document_page"
	ContentDocumentSection   = "document_section"
	ContentPresentationFull  = "presentation_full"
	ContentPresentationSlide = "presentation_slide"
	ContentSpreadsheetFull   = "spreadsheet_full"
	ContentSpreadsheetSheet  = "spreadsheet_sheet"
)

// slideMarker matches the marker line the PPTX converter starts every slide
// with.
var slideMarker = regexp.MustCompile(`(?m)^<!-- Slide number: (\d+) -->[ \t]*$`)

const sheetPrefix = "## "

// segment is a slice of the document text with the metadata specific to it.
type segment struct {
	text string
	meta map[string]any
}

func (l *loader) segment(text string, result *converter.Result, meta map[string]any, headers []splitter.Header) []schema.Document {
	if !l.opts.splitByPage {
		doc := schema.Document{PageContent: text, Metadata: metadata.Copy(meta)}
		doc.Metadata[metadata.ContentType] = l.fullContentType()
		return []schema.Document{doc}
	}

	var segs []segment
	switch l.kind {
	case kindPptx:
		segs = slideSegments(text)
	case kindXlsx:
		segs = sheetSegments(text)
	default:
		segs = pageSegments(text, result.Pages)
	}

	hs := splitter.New(headers)
	var docs []schema.Document
	for _, seg := range segs {
		if strings.TrimSpace(seg.text) == "" {
			continue
		}
		segMeta := metadata.Merge(meta, seg.meta)
		for _, part := range hs.Split(seg.text) {
			docs = append(docs, schema.Document{
				PageContent: part.PageContent,
				Metadata:    metadata.Merge(part.Metadata, segMeta),
			})
		}
	}

	if len(docs) == 0 {
		return []schema.Document{{PageContent: "", Metadata: metadata.Copy(meta)}}
	}
	return docs
}

func (l *loader) fullContentType() string {
	switch l.kind {
	case kindPptx:
		return ContentPresentationFull
	case kindXlsx:
		return ContentSpreadsheetFull
	default:
		return ContentDocumentFull
	}
}

// slideSegments splits converter PPTX output at slide markers. Text before
// the first marker belongs to slide 1. Marker lines are not kept.
func slideSegments(text string) []segment {
	locs := slideMarker.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []segment{slideSegment(text, 1)}
	}

	var segs []segment
	if pre := text[:locs[0][0]]; strings.TrimSpace(pre) != "" {
		segs = append(segs, slideSegment(pre, 1))
	}
	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			n = i + 1
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segs = append(segs, slideSegment(text[loc[1]:end], n))
	}
	return segs
}

func slideSegment(text string, n int) segment {
	return segment{
		text: strings.TrimSpace(text),
		meta: map[string]any{
			metadata.PageNumber:  n,
			metadata.ContentType: ContentPresentationSlide,
		},
	}
}

// sheetSegments splits converter spreadsheet output at "## <sheet>" lines.
// The heading becomes sheet_name and the lines below it the content.
func sheetSegments(text string) []segment {
	var (
		segs  []segment
		name  string
		body  []string
		index int
	)
	flush := func() {
		if index == 0 && len(body) == 0 {
			return
		}
		meta := map[string]any{metadata.ContentType: ContentSpreadsheetSheet}
		if index > 0 {
			meta[metadata.SheetName] = name
			meta[metadata.PageNumber] = index
		}
		segs = append(segs, segment{text: strings.TrimSpace(strings.Join(body, "\n")), meta: meta})
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, sheetPrefix) {
			flush()
			index++
			name = strings.TrimSpace(strings.TrimPrefix(line, sheetPrefix))
			continue
		}
		body = append(body, line)
	}
	flush()
	return segs
}

// pageSegments emits one segment per converter page, or the whole text as
// a header-split section when there are no pages.
func pageSegments(text string, pages []string) []segment {
	if len(pages) == 0 {
		return []segment{{
			text: text,
			meta: map[string]any{metadata.ContentType: ContentDocumentSection},
		}}
	}
	segs := make([]segment, 0, len(pages))
	for i, p := range pages {
		segs = append(segs, segment{
			text: p,
			meta: map[string]any{
				metadata.PageNumber:  i + 1,
				metadata.ContentType: ContentDocumentPage,
			},
		})
	}
	return segs
}

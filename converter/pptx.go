package converter

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/brunobiangulo/mdloader/ooxml"
)

// SlideMarker is the comment that opens every slide in PPTX markdown.
const SlideMarker = "<!-- Slide number: %d -->"

// PPTXConverter renders slides in presentation order. Each slide starts with
// a SlideMarker line; pictures are emitted as image references whose link
// target is PlaceholderName(shape name) so captions can be injected later.
type PPTXConverter struct{}

func (c *PPTXConverter) SupportedFormats() []string { return []string{"pptx"} }

func (c *PPTXConverter) Convert(ctx context.Context, path string) (*Result, error) {
	pkg, err := ooxml.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PPTX: %w", err)
	}
	defer pkg.Close()

	slides, err := pkg.Slides()
	if err != nil {
		return nil, fmt.Errorf("reading PPTX slides: %w", err)
	}

	res := &Result{Metadata: map[string]any{"slide_count": len(slides)}}

	var md strings.Builder
	for _, slide := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := &slideRenderer{pkg: pkg, slide: slide}
		r.shapes(slide.Shapes)
		text := strings.TrimSpace(r.b.String())
		if slide.Notes != "" {
			text += "\n\n### Notes:\n" + slide.Notes
		}

		fmt.Fprintf(&md, "\n\n"+SlideMarker+"\n", slide.Number)
		md.WriteString(text)

		// The accumulated text is trimmed after every slide.
		trimmed := strings.TrimSpace(md.String())
		md.Reset()
		md.WriteString(trimmed)

		res.Pages = append(res.Pages, text)
		res.Images = append(res.Images, r.images...)
		if res.Title == "" && r.title != "" {
			res.Title = r.title
		}
	}
	res.Text = strings.TrimSpace(md.String())

	props, err := pkg.CoreProperties()
	if err != nil {
		slog.Debug("pptx: core properties unreadable", "path", path, "error", err)
	} else {
		for k, v := range props.Fields() {
			res.Metadata[k] = v
		}
		if props.Title != "" {
			res.Title = props.Title
		}
	}
	return res, nil
}

type slideRenderer struct {
	pkg    *ooxml.Package
	slide  ooxml.Slide
	b      strings.Builder
	images []Image
	title  string
}

func (r *slideRenderer) shapes(shapes []ooxml.Shape) {
	for _, s := range shapes {
		switch s.Kind {
		case ooxml.ShapePicture:
			r.picture(s)

		case ooxml.ShapeTable:
			if table := markdownTable(s.Rows); table != "" {
				r.b.WriteString("\n" + table + "\n")
			}

		case ooxml.ShapeChart:
			r.b.WriteString("\n\n### Chart")
			if title := r.pkg.ChartTitle(r.slide, s.RelID); title != "" {
				r.b.WriteString(": " + title)
			}
			r.b.WriteString("\n\n")

		case ooxml.ShapeGroup:
			r.shapes(s.Children)

		case ooxml.ShapeAuto, ooxml.ShapeTextBox:
			if len(s.Paragraphs) == 0 {
				continue
			}
			text := s.Text()
			if s.IsTitle() {
				text = strings.TrimLeft(text, " \t\r\n")
				if r.title == "" {
					r.title = strings.TrimSpace(text)
				}
				r.b.WriteString("# " + text + "\n")
			} else {
				r.b.WriteString(text + "\n")
			}
		}
	}
}

func (r *slideRenderer) picture(s ooxml.Shape) {
	placeholder := PlaceholderName(s.Name)
	alt := s.Description
	if alt == "" {
		alt = s.Name
	}
	r.b.WriteString("\n![" + AltText(alt) + "](" + placeholder + ")\n")

	if s.RelID == "" {
		return
	}
	name, data, err := r.pkg.RelatedPart(r.slide.Part, r.slide.Rels, s.RelID)
	if err != nil {
		slog.Debug("pptx: picture part not found", "slide", r.slide.Number, "shape", s.Name, "error", err)
		return
	}
	r.images = append(r.images, newImage(s.Name, placeholder, path.Ext(name), data, r.slide.Number))
}

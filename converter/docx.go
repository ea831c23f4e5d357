package converter

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/brunobiangulo/mdloader/ooxml"
)

const docxMainPart = "word/document.xml"

// DOCXConverter renders word/document.xml as markdown. Explicit page breaks
// split the output into Result.Pages.
type DOCXConverter struct{}

func (c *DOCXConverter) SupportedFormats() []string { return []string{"docx"} }

func (c *DOCXConverter) Convert(ctx context.Context, path string) (*Result, error) {
	pkg, err := ooxml.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer pkg.Close()

	data, err := pkg.ReadPart(docxMainPart)
	if err != nil {
		return nil, fmt.Errorf("reading DOCX: %w", err)
	}
	rels, err := pkg.Relationships(docxMainPart)
	if err != nil {
		return nil, fmt.Errorf("reading DOCX relationships: %w", err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	w := &docxWriter{pkg: pkg, rels: rels, pages: [][]string{nil}}
	for _, blk := range doc.Body.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case blk.Para != nil:
			w.paragraph(blk.Para)
		case blk.Table != nil:
			w.table(blk.Table)
		}
	}

	res := w.result()
	props, err := pkg.CoreProperties()
	if err != nil {
		slog.Debug("docx: core properties unreadable", "path", path, "error", err)
	} else {
		for k, v := range props.Fields() {
			res.Metadata[k] = v
		}
		res.Title = props.Title
	}
	if res.Title == "" {
		res.Title = w.firstHeading
	}
	return res, nil
}

type docxWriter struct {
	pkg          *ooxml.Package
	rels         map[string]ooxml.Relationship
	pages        [][]string // blocks per page
	images       []Image
	firstHeading string
}

func (w *docxWriter) add(block string) {
	if strings.TrimSpace(block) == "" {
		return
	}
	last := len(w.pages) - 1
	w.pages[last] = append(w.pages[last], block)
}

func (w *docxWriter) paragraph(p *docxPara) {
	level := headingStyleLevel(p.Style)
	prefix := ""
	switch {
	case level > 0:
		prefix = strings.Repeat("#", level) + " "
	case p.List:
		prefix = strings.Repeat("  ", p.ListLevel) + "- "
	}

	// The prefix goes on the first non-empty segment: a heading often
	// starts with a page break.
	prefixed := false
	for i, seg := range w.segments(p, level > 0) {
		if i > 0 {
			w.pages = append(w.pages, nil)
		}
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if !prefixed {
			prefixed = true
			if level > 0 && w.firstHeading == "" {
				w.firstHeading = seg
			}
			seg = prefix + seg
		}
		w.add(seg)
	}
}

// segments renders the paragraph inlines, cutting at explicit page breaks.
func (w *docxWriter) segments(p *docxPara, plain bool) []string {
	var segs []string
	var b strings.Builder
	var spans []docxInline

	flush := func() {
		b.WriteString(renderSpans(spans, plain))
		spans = spans[:0]
	}

	for _, in := range p.Inlines {
		switch {
		case in.PageBreak:
			flush()
			segs = append(segs, b.String())
			b.Reset()
		case in.Image != nil:
			flush()
			b.WriteString(w.image(in.Image))
		default:
			if n := len(spans); n > 0 && spans[n-1].Bold == in.Bold && spans[n-1].Italic == in.Italic {
				spans[n-1].Text += in.Text
				continue
			}
			spans = append(spans, in)
		}
	}
	flush()
	return append(segs, b.String())
}

func renderSpans(spans []docxInline, plain bool) string {
	var b strings.Builder
	for _, s := range spans {
		if plain || (!s.Bold && !s.Italic) {
			b.WriteString(s.Text)
			continue
		}
		core := strings.TrimSpace(s.Text)
		if core == "" {
			b.WriteString(s.Text)
			continue
		}
		mark := "*"
		if s.Bold && s.Italic {
			mark = "***"
		} else if s.Bold {
			mark = "**"
		}
		lead := s.Text[:strings.Index(s.Text, core)]
		trail := s.Text[len(lead)+len(core):]
		b.WriteString(lead + mark + core + mark + trail)
	}
	return b.String()
}

func (w *docxWriter) image(ref *docxImageRef) string {
	name, data, err := w.pkg.RelatedPart(docxMainPart, w.rels, ref.RelID)
	if err != nil {
		slog.Debug("docx: image part not found", "rId", ref.RelID, "error", err)
		return ""
	}

	file := path.Base(name)
	w.images = append(w.images, newImage(file, file, path.Ext(file), data, len(w.pages)))

	alt := ref.Descr
	if alt == "" {
		alt = ref.Name
	}
	return "![" + AltText(alt) + "](" + file + ")"
}

func (w *docxWriter) table(t *docxTable) {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			var texts []string
			for i := range cell.Paras {
				if s := strings.TrimSpace(plainText(&cell.Paras[i])); s != "" {
					texts = append(texts, s)
				}
			}
			cells = append(cells, strings.Join(texts, " "))
		}
		rows = append(rows, cells)
	}
	w.add(strings.TrimRight(markdownTable(rows), "\n"))
}

func (w *docxWriter) result() *Result {
	var all []string
	pages := make([]string, 0, len(w.pages))
	for _, blocks := range w.pages {
		all = append(all, blocks...)
		pages = append(pages, strings.Join(blocks, "\n\n"))
	}

	res := &Result{
		Text:     strings.Join(all, "\n\n"),
		Images:   w.images,
		Metadata: make(map[string]any),
	}
	if len(pages) > 1 {
		res.Pages = pages
		res.Metadata["page_count"] = len(pages)
	}
	return res
}

func plainText(p *docxPara) string {
	var b strings.Builder
	for _, in := range p.Inlines {
		b.WriteString(in.Text)
	}
	return b.String()
}

// headingStyleLevel maps a paragraph style ID to a heading level, 0 for
// body text.
func headingStyleLevel(style string) int {
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if lower == "title" {
		return 1
	}
	if !strings.HasPrefix(lower, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(lower, "heading"))
	if err != nil || n < 1 {
		return 1
	}
	if n > 6 {
		n = 6
	}
	return n
}

// DOCX XML structures

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBlock struct {
	Para  *docxPara
	Table *docxTable
}

// docxBody keeps paragraphs and tables in document order, unwrapping
// structured document tags.
type docxBody struct {
	Blocks []docxBlock
}

func (b *docxBody) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				p := &docxPara{}
				if err := d.DecodeElement(p, &el); err != nil {
					return err
				}
				b.Blocks = append(b.Blocks, docxBlock{Para: p})
			case "tbl":
				t := &docxTable{}
				if err := d.DecodeElement(t, &el); err != nil {
					return err
				}
				b.Blocks = append(b.Blocks, docxBlock{Table: t})
			case "sdt", "sdtContent":
				depth++
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}

		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

type docxTable struct {
	Rows []struct {
		Cells []struct {
			Paras []docxPara `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

type docxImageRef struct {
	RelID string
	Name  string
	Descr string
}

type docxInline struct {
	Text      string
	Bold      bool
	Italic    bool
	PageBreak bool
	Image     *docxImageRef
}

type docxPara struct {
	Style     string
	List      bool
	ListLevel int
	Inlines   []docxInline
}

func (p *docxPara) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var (
		stack        []string
		bold, italic bool
		inRun        bool
		docPr        docxImageRef
	)
	in := func(name string) bool {
		for _, s := range stack {
			if s == name {
				return true
			}
		}
		return false
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				var s string
				if err := d.DecodeElement(&s, &el); err != nil {
					return err
				}
				if !in("pPr") {
					p.Inlines = append(p.Inlines, docxInline{Text: s, Bold: bold, Italic: italic})
				}
				continue
			case "r":
				inRun, bold, italic = true, false, false
			case "pStyle":
				if in("pPr") {
					p.Style = attr(el, "val")
				}
			case "numPr":
				if in("pPr") {
					p.List = true
				}
			case "ilvl":
				if in("numPr") {
					p.ListLevel, _ = strconv.Atoi(attr(el, "val"))
				}
			case "b":
				if inRun && in("rPr") {
					bold = toggleOn(el)
				}
			case "i":
				if inRun && in("rPr") {
					italic = toggleOn(el)
				}
			case "tab":
				if inRun {
					p.Inlines = append(p.Inlines, docxInline{Text: "\t", Bold: bold, Italic: italic})
				}
			case "br", "cr":
				if !inRun {
					break
				}
				if attr(el, "type") == "page" {
					p.Inlines = append(p.Inlines, docxInline{PageBreak: true})
				} else {
					p.Inlines = append(p.Inlines, docxInline{Text: "\n", Bold: bold, Italic: italic})
				}
			case "docPr":
				docPr = docxImageRef{Name: attr(el, "name"), Descr: attr(el, "descr")}
			case "blip":
				if id := attr(el, "embed"); id != "" {
					ref := docPr
					ref.RelID = id
					p.Inlines = append(p.Inlines, docxInline{Image: &ref})
				}
			}
			stack = append(stack, el.Name.Local)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil
			}
			if el.Name.Local == "r" {
				inRun = false
			}
			stack = stack[:len(stack)-1]
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// toggleOn reads an OOXML on/off property such as <w:b/> or <w:b w:val="0"/>.
func toggleOn(el xml.StartElement) bool {
	switch attr(el, "val") {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

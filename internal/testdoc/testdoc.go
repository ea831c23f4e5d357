// Package testdoc builds minimal OOXML fixtures (PPTX, DOCX) and images for
// tests across the module.
package testdoc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsC = "http://schemas.openxmlformats.org/drawingml/2006/chart"

	relImage = nsR + "/image"
	relSlide = nsR + "/slide"
	relNotes = nsR + "/notesSlide"
	relChart = nsR + "/chart"
)

// PNG returns an encoded solid-color PNG of the given size.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 100, G: 150, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("creating test PNG: %v", err)
	}
	return buf.Bytes()
}

// Media is an embedded file referenced by relationship ID.
type Media struct {
	RelID string
	File  string // file name under the media directory
	Data  []byte
}

// Slide describes one slide of a Deck.
type Slide struct {
	Shapes   string            // spTree children, see the shape helpers
	Pictures []Media           // targets of picture r:embed IDs
	Charts   map[string]string // chart r:id -> chart title ("" for untitled)
	Notes    string
}

// Deck is a PPTX fixture.
type Deck struct {
	Slides []Slide
	Core   string // docProps/core.xml; see CoreXML
}

// Write saves the deck as deck.pptx in a fresh temp dir and returns its path.
func (d Deck) Write(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")

	files := map[string][]byte{}
	var sldIDs, presRels strings.Builder
	chartN := 0
	for i, s := range d.Slides {
		n := i + 1
		rid := fmt.Sprintf("rId%d", n)
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 255+n, rid)
		fmt.Fprintf(&presRels, `<Relationship Id="%s" Type="%s" Target="slides/slide%d.xml"/>`, rid, relSlide, n)

		files[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = []byte(fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
				`<p:sld xmlns:p="%s" xmlns:a="%s" xmlns:r="%s"><p:cSld><p:spTree>`+
				`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
				`%s</p:spTree></p:cSld></p:sld>`, nsP, nsA, nsR, s.Shapes))

		var rels strings.Builder
		for _, m := range s.Pictures {
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="../media/%s"/>`, m.RelID, relImage, m.File)
			files["ppt/media/"+m.File] = m.Data
		}
		for relID, title := range s.Charts {
			chartN++
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="../charts/chart%d.xml"/>`, relID, relChart, chartN)
			files[fmt.Sprintf("ppt/charts/chart%d.xml", chartN)] = []byte(chartXML(title))
		}
		if s.Notes != "" {
			fmt.Fprintf(&rels, `<Relationship Id="rIdNotes" Type="%s" Target="../notesSlides/notesSlide%d.xml"/>`, relNotes, n)
			files[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = []byte(fmt.Sprintf(
				`<p:notes xmlns:p="%s" xmlns:a="%s"><p:cSld><p:spTree>`+
					`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image"/><p:cNvSpPr/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr></p:sp>`+
					`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>`+
					`<p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`+
					`</p:spTree></p:cSld></p:notes>`, nsP, nsA, html.EscapeString(s.Notes)))
		}
		files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = relsXML(rels.String())
	}

	files["ppt/presentation.xml"] = []byte(fmt.Sprintf(
		`<p:presentation xmlns:p="%s" xmlns:r="%s"><p:sldIdLst>%s</p:sldIdLst></p:presentation>`,
		nsP, nsR, sldIDs.String()))
	files["ppt/_rels/presentation.xml.rels"] = relsXML(presRels.String())
	if d.Core != "" {
		files["docProps/core.xml"] = []byte(d.Core)
	}

	WriteZip(t, path, files)
	return path
}

// Doc is a DOCX fixture.
type Doc struct {
	Body  string // w:body children, see Para and PageBreak
	Media []Media
	Core  string
}

// Write saves the document as doc.docx in a fresh temp dir.
func (d Doc) Write(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")

	files := map[string][]byte{
		"word/document.xml": []byte(fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
				`<w:document xmlns:w="%s" xmlns:r="%s" xmlns:a="%s"`+
				` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`+
				` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
				`<w:body>%s</w:body></w:document>`, nsW, nsR, nsA, d.Body)),
	}
	var rels strings.Builder
	for _, m := range d.Media {
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="media/%s"/>`, m.RelID, relImage, m.File)
		files["word/media/"+m.File] = m.Data
	}
	files["word/_rels/document.xml.rels"] = relsXML(rels.String())
	if d.Core != "" {
		files["docProps/core.xml"] = []byte(d.Core)
	}

	WriteZip(t, path, files)
	return path
}

// WriteZip writes files into a zip archive at path.
func WriteZip(t testing.TB, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	w := zip.NewWriter(f)
	for name, data := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
}

// CoreXML returns a docProps/core.xml part with the given title and creator.
func CoreXML(title, creator string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"`+
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">`+
		`<dc:title>%s</dc:title><dc:creator>%s</dc:creator>`+
		`<dcterms:created>2024-01-02T03:04:05Z</dcterms:created>`+
		`</cp:coreProperties>`, html.EscapeString(title), html.EscapeString(creator))
}

// Title returns a title placeholder shape.
func Title(id int, text string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Title %d"/><p:cNvSpPr/>`+
		`<p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>%s</p:sp>`, id, id, txBody(text))
}

// TextBox returns a text box shape with one paragraph per line.
func TextBox(id int, name string, lines ...string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/>`+
		`<p:nvPr/></p:nvSpPr>%s</p:sp>`, id, html.EscapeString(name), txBody(lines...))
}

// Picture returns a picture shape embedding relID.
func Picture(id int, name, descr, relID string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s" descr="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/></p:blipFill><p:spPr/></p:pic>`, id, html.EscapeString(name), html.EscapeString(descr), relID)
}

// Table returns a graphic frame holding a table.
func Table(id int, rows ...[]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString("<a:tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, `<a:tc>%s</a:tc>`, aTxBody(cell))
		}
		b.WriteString("</a:tr>")
	}
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table %d"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>%s</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`,
		id, id, b.String())
}

// Chart returns a graphic frame referencing the chart part relID.
func Chart(id int, relID string) string {
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Chart %d"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="%s"><c:chart xmlns:c="%s" r:id="%s"/></a:graphicData></a:graphic></p:graphicFrame>`,
		id, id, nsC, nsC, relID)
}

// Group wraps shapes in a group shape.
func Group(id int, name string, shapes ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
		`<p:grpSpPr/>%s</p:grpSp>`, id, html.EscapeString(name), strings.Join(shapes, ""))
}

// Para returns a w:p with an optional paragraph style.
func Para(style, text string) string {
	ppr := ""
	if style != "" {
		ppr = fmt.Sprintf(`<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	}
	return fmt.Sprintf(`<w:p>%s<w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, ppr, html.EscapeString(text))
}

// PageBreak returns a paragraph holding an explicit page break.
func PageBreak() string {
	return `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
}

// InlineImage returns a paragraph with a drawing embedding relID.
func InlineImage(relID, name, descr string) string {
	return fmt.Sprintf(`<w:p><w:r><w:drawing><wp:inline><wp:docPr id="1" name="%s" descr="%s"/>`+
		`<a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="%s"/></pic:blipFill></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`, html.EscapeString(name), html.EscapeString(descr), relID)
}

func txBody(lines ...string) string {
	var b strings.Builder
	b.WriteString("<p:txBody><a:bodyPr/>")
	for _, l := range lines {
		fmt.Fprintf(&b, `<a:p><a:r><a:t>%s</a:t></a:r></a:p>`, html.EscapeString(l))
	}
	b.WriteString("</p:txBody>")
	return b.String()
}

func aTxBody(text string) string {
	return fmt.Sprintf(`<a:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></a:txBody>`, html.EscapeString(text))
}

func chartXML(title string) string {
	t := ""
	if title != "" {
		t = fmt.Sprintf(`<c:title><c:tx><c:rich><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></c:rich></c:tx></c:title>`, html.EscapeString(title))
	}
	return fmt.Sprintf(`<c:chartSpace xmlns:c="%s" xmlns:a="%s"><c:chart>%s<c:plotArea/></c:chart></c:chartSpace>`, nsC, nsA, t)
}

func relsXML(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		body + `</Relationships>`)
}

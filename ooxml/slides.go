package ooxml

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	presentationPart = "ppt/presentation.xml"

	graphicURITable = "http://schemas.openxmlformats.org/drawingml/2006/table"
	graphicURIChart = "http://schemas.openxmlformats.org/drawingml/2006/chart"
)

// ShapeKind classifies a shape of a slide's shape tree.
type ShapeKind int

const (
	ShapeAuto ShapeKind = iota // p:sp that is not a text box (placeholders, autoshapes)
	ShapeTextBox
	ShapePicture
	ShapeTable
	ShapeChart
	ShapeFrame // graphicFrame holding anything else (SmartArt, OLE)
	ShapeGroup
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeAuto:
		return "auto"
	case ShapeTextBox:
		return "textbox"
	case ShapePicture:
		return "picture"
	case ShapeTable:
		return "table"
	case ShapeChart:
		return "chart"
	case ShapeFrame:
		return "frame"
	case ShapeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Paragraph is one a:p of a text body.
type Paragraph struct {
	Text   string
	Level  int
	Bullet bool
}

// Shape is a flattened view of a slide shape.
type Shape struct {
	Kind        ShapeKind
	ID          int
	Name        string
	Description string
	Placeholder string // ph type; empty when the shape is not a placeholder
	Paragraphs  []Paragraph
	Rows        [][]string // table cells, row-major
	RelID       string     // r:embed of a picture, r:id of a chart
	Children    []Shape    // group members
}

// IsTitle reports whether the shape is the slide title placeholder.
func (s Shape) IsTitle() bool {
	return s.Placeholder == "title" || s.Placeholder == "ctrTitle"
}

// Text joins the shape's paragraphs with newlines.
func (s Shape) Text() string {
	lines := make([]string, 0, len(s.Paragraphs))
	for _, p := range s.Paragraphs {
		lines = append(lines, p.Text)
	}
	return strings.Join(lines, "\n")
}

// Slide is one slide in presentation order.
type Slide struct {
	Number int // 1-based position in the presentation
	Part   string
	Shapes []Shape
	Notes  string
	Rels   map[string]Relationship
}

// Walk visits shapes depth-first, descending into groups. Group shapes
// themselves are visited before their children.
func Walk(shapes []Shape, fn func(Shape)) {
	for _, s := range shapes {
		fn(s)
		if len(s.Children) > 0 {
			Walk(s.Children, fn)
		}
	}
}

// Slides parses every slide of a presentation package in presentation order.
func (p *Package) Slides() ([]Slide, error) {
	if !p.Has(presentationPart) {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, presentationPart)
	}

	order, err := p.slideOrder()
	if err != nil {
		return nil, err
	}

	slides := make([]Slide, 0, len(order))
	for i, part := range order {
		data, err := p.ReadPart(part)
		if err != nil {
			return nil, err
		}

		var sld slideXML
		if err := xml.Unmarshal(data, &sld); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", part, err)
		}

		rels, err := p.Relationships(part)
		if err != nil {
			return nil, err
		}

		slides = append(slides, Slide{
			Number: i + 1,
			Part:   part,
			Shapes: sld.CSld.SpTree.Shapes,
			Notes:  p.notesText(part, rels),
			Rels:   rels,
		})
	}
	return slides, nil
}

// RelatedPart resolves relID against rels and returns the target part name
// and content.
func (p *Package) RelatedPart(sourcePart string, rels map[string]Relationship, relID string) (string, []byte, error) {
	rel, ok := rels[relID]
	if !ok {
		return "", nil, fmt.Errorf("%w: relationship %s of %s", ErrPartNotFound, relID, sourcePart)
	}
	if rel.TargetMode == "External" {
		return "", nil, fmt.Errorf("relationship %s of %s is external", relID, sourcePart)
	}
	name := ResolveTarget(sourcePart, rel.Target)
	data, err := p.ReadPart(name)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}

// ChartTitle returns the title text of the chart referenced by relID, or ""
// when the chart has no title or cannot be read.
func (p *Package) ChartTitle(slide Slide, relID string) string {
	_, data, err := p.RelatedPart(slide.Part, slide.Rels, relID)
	if err != nil {
		return ""
	}

	var cs chartSpaceXML
	if err := xml.Unmarshal(data, &cs); err != nil || cs.Chart.Title == nil {
		return ""
	}

	var parts []string
	for _, para := range cs.Chart.Title.Tx.Rich.Paras {
		if t := strings.TrimSpace(para.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (p *Package) slideOrder() ([]string, error) {
	data, err := p.ReadPart(presentationPart)
	if err != nil {
		return nil, err
	}

	var pres presentationXML
	if err := xml.Unmarshal(data, &pres); err != nil {
		return nil, fmt.Errorf("parsing presentation: %w", err)
	}

	rels, err := p.Relationships(presentationPart)
	if err != nil {
		return nil, err
	}

	var order []string
	for _, id := range pres.SlideIDs {
		rel, ok := rels[id.RID]
		if !ok {
			continue
		}
		name := ResolveTarget(presentationPart, rel.Target)
		if p.Has(name) {
			order = append(order, name)
		}
	}
	if len(order) > 0 {
		return order, nil
	}

	// No usable sldIdLst: fall back to the slideN.xml numbering.
	for _, name := range p.PartNames("ppt/slides/slide") {
		if strings.HasSuffix(name, ".xml") && slideFileNumber(name) > 0 {
			order = append(order, name)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return slideFileNumber(order[i]) < slideFileNumber(order[j])
	})
	return order, nil
}

func (p *Package) notesText(slidePart string, rels map[string]Relationship) string {
	for _, rel := range rels {
		if rel.Type != RelTypeNotesSlide {
			continue
		}
		data, err := p.ReadPart(ResolveTarget(slidePart, rel.Target))
		if err != nil {
			return ""
		}
		var notes slideXML
		if err := xml.Unmarshal(data, &notes); err != nil {
			return ""
		}

		var parts []string
		Walk(notes.CSld.SpTree.Shapes, func(s Shape) {
			if s.Placeholder == "body" {
				if t := strings.TrimSpace(s.Text()); t != "" {
					parts = append(parts, t)
				}
			}
		})
		return strings.Join(parts, "\n")
	}
	return ""
}

func slideFileNumber(name string) int {
	name = strings.TrimPrefix(name, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0
	}
	return n
}

// XML structures

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type slideXML struct {
	CSld struct {
		SpTree shapeTree `xml:"spTree"`
	} `xml:"cSld"`
}

type cNvPrXML struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
}

type spXML struct {
	NvSpPr struct {
		CNvPr   cNvPrXML `xml:"cNvPr"`
		CNvSpPr struct {
			TxBox string `xml:"txBox,attr"`
		} `xml:"cNvSpPr"`
		NvPr struct {
			Ph *struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type picXML struct {
	NvPicPr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
}

type graphicFrameXML struct {
	NvGraphicFramePr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
	} `xml:"nvGraphicFramePr"`
	Graphic struct {
		GraphicData struct {
			URI   string  `xml:"uri,attr"`
			Tbl   *tblXML `xml:"tbl"`
			Chart *struct {
				RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
			} `xml:"chart"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type tblXML struct {
	Rows []struct {
		Cells []struct {
			TxBody *txBodyXML `xml:"txBody"`
		} `xml:"tc"`
	} `xml:"tr"`
}

type txBodyXML struct {
	Paras []paragraphXML `xml:"p"`
}

func (b *txBodyXML) paragraphs() []Paragraph {
	if b == nil {
		return nil
	}
	out := make([]Paragraph, 0, len(b.Paras))
	for _, p := range b.Paras {
		out = append(out, p.Paragraph)
	}
	return out
}

type chartSpaceXML struct {
	Chart struct {
		Title *struct {
			Tx struct {
				Rich struct {
					Paras []paragraphXML `xml:"p"`
				} `xml:"rich"`
			} `xml:"tx"`
		} `xml:"title"`
	} `xml:"chart"`
}

// shapeTree decodes p:spTree and p:grpSp keeping the document order of
// sp, pic, graphicFrame and nested grpSp children.
type shapeTree struct {
	ID     int
	Name   string
	Shapes []Shape
}

func (t *shapeTree) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "nvGrpSpPr":
				var nv struct {
					CNvPr cNvPrXML `xml:"cNvPr"`
				}
				if err := d.DecodeElement(&nv, &el); err != nil {
					return err
				}
				t.ID, t.Name = nv.CNvPr.ID, nv.CNvPr.Name

			case "sp":
				var sp spXML
				if err := d.DecodeElement(&sp, &el); err != nil {
					return err
				}
				t.Shapes = append(t.Shapes, sp.shape())

			case "pic":
				var pic picXML
				if err := d.DecodeElement(&pic, &el); err != nil {
					return err
				}
				t.Shapes = append(t.Shapes, Shape{
					Kind:        ShapePicture,
					ID:          pic.NvPicPr.CNvPr.ID,
					Name:        pic.NvPicPr.CNvPr.Name,
					Description: pic.NvPicPr.CNvPr.Descr,
					RelID:       pic.BlipFill.Blip.Embed,
				})

			case "graphicFrame":
				var gf graphicFrameXML
				if err := d.DecodeElement(&gf, &el); err != nil {
					return err
				}
				t.Shapes = append(t.Shapes, gf.shape())

			case "grpSp":
				var grp shapeTree
				if err := d.DecodeElement(&grp, &el); err != nil {
					return err
				}
				t.Shapes = append(t.Shapes, Shape{
					Kind:     ShapeGroup,
					ID:       grp.ID,
					Name:     grp.Name,
					Children: grp.Shapes,
				})

			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}

		case xml.EndElement:
			return nil
		}
	}
}

func (sp spXML) shape() Shape {
	s := Shape{
		Kind:        ShapeAuto,
		ID:          sp.NvSpPr.CNvPr.ID,
		Name:        sp.NvSpPr.CNvPr.Name,
		Description: sp.NvSpPr.CNvPr.Descr,
		Paragraphs:  sp.TxBody.paragraphs(),
	}
	if tb := sp.NvSpPr.CNvSpPr.TxBox; tb == "1" || tb == "true" {
		s.Kind = ShapeTextBox
	}
	if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
		s.Placeholder = ph.Type
		if s.Placeholder == "" {
			s.Placeholder = "obj"
		}
	}
	return s
}

func (gf graphicFrameXML) shape() Shape {
	data := gf.Graphic.GraphicData
	s := Shape{
		Kind:        ShapeFrame,
		ID:          gf.NvGraphicFramePr.CNvPr.ID,
		Name:        gf.NvGraphicFramePr.CNvPr.Name,
		Description: gf.NvGraphicFramePr.CNvPr.Descr,
	}

	switch {
	case data.URI == graphicURITable || data.Tbl != nil:
		s.Kind = ShapeTable
		if data.Tbl != nil {
			for _, row := range data.Tbl.Rows {
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					var texts []string
					for _, p := range cell.TxBody.paragraphs() {
						if t := strings.TrimSpace(p.Text); t != "" {
							texts = append(texts, t)
						}
					}
					cells = append(cells, strings.Join(texts, " "))
				}
				s.Rows = append(s.Rows, cells)
			}
		}
	case data.URI == graphicURIChart || data.Chart != nil:
		s.Kind = ShapeChart
		if data.Chart != nil {
			s.RelID = data.Chart.RID
		}
	}
	return s
}

// paragraphXML decodes a:p in document order: run text, field text and
// line breaks.
type paragraphXML struct {
	Paragraph
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
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
				b.WriteString(s)
				continue
			case "pPr":
				for _, a := range el.Attr {
					if a.Name.Local == "lvl" {
						p.Level, _ = strconv.Atoi(a.Value)
					}
				}
			case "buChar", "buAutoNum":
				p.Bullet = true
			case "br":
				b.WriteString("\n")
			}
			depth++

		case xml.EndElement:
			if depth == 0 {
				p.Text = b.String()
				return nil
			}
			depth--
		}
	}
}

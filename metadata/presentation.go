package metadata

import (
	"fmt"

	"github.com/brunobiangulo/mdloader/ooxml"
)

// Presentation reads slide and shape statistics plus core properties from
// the PPTX at path. Group shapes are descended into; the group itself is
// not counted.
func Presentation(path string) (map[string]any, error) {
	pkg, err := ooxml.Open(path)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	slides, err := pkg.Slides()
	if err != nil {
		return nil, fmt.Errorf("reading slides: %w", err)
	}

	var images, textBoxes, charts, tables int
	for _, slide := range slides {
		ooxml.Walk(slide.Shapes, func(s ooxml.Shape) {
			switch s.Kind {
			case ooxml.ShapePicture:
				images++
			case ooxml.ShapeTextBox:
				textBoxes++
			case ooxml.ShapeChart:
				charts++
			case ooxml.ShapeTable:
				tables++
			}
		})
	}

	meta := map[string]any{
		SlideCount:   len(slides),
		ImageCount:   images,
		TextBoxCount: textBoxes,
		ChartCount:   charts,
		TableCount:   tables,
	}

	core, err := pkg.CoreProperties()
	if err != nil {
		return nil, err
	}
	for k, v := range core.Fields() {
		meta[k] = v
	}
	return meta, nil
}

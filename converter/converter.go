// Package converter turns office, PDF, HTML and text files into markdown.
//
// Every converter emits the same conventions so the loaders can segment its
// output: PPTX slides start with "<!-- Slide number: N -->" markers, XLSX and
// XLS sheets start with "## <sheet>" headings, and page-oriented formats fill
// Result.Pages.
package converter

import (
	"context"
	"strings"
	"unicode"
)

// Result is what a converter produces from a document file.
type Result struct {
	Text     string         // Full markdown
	Title    string         // Document title when known
	Pages    []string       // Per-page markdown; nil when the format has no pages
	Images   []Image        // Embedded pictures in document order
	Metadata map[string]any // Format-specific metadata
}

// Image is an embedded picture referenced from Result.Text.
type Image struct {
	Name        string // Shape name (PPTX) or media file name (DOCX)
	Placeholder string // Link target used in the markdown image reference
	Data        []byte
	MIMEType    string
	PageNumber  int // Slide or page the picture appears on, 1-based
	Width       int // 0 when the codec is not registered
	Height      int
}

func newImage(name, placeholder, ext string, data []byte, page int) Image {
	w, h := imageSize(data)
	return Image{
		Name:        name,
		Placeholder: placeholder,
		Data:        data,
		MIMEType:    mimeFromExt(ext),
		PageNumber:  page,
		Width:       w,
		Height:      h,
	}
}

// Converter can convert a specific document format to markdown.
type Converter interface {
	Convert(ctx context.Context, path string) (*Result, error)
	SupportedFormats() []string
}

// PlaceholderName returns the markdown link target a PPTX picture named
// shapeName is rendered with: the name with every non-word rune removed,
// followed by ".jpg".
func PlaceholderName(shapeName string) string {
	var b strings.Builder
	for _, r := range shapeName {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	b.WriteString(".jpg")
	return b.String()
}

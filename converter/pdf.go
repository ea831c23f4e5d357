package converter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFConverter extracts the plain text of every page. Pages without
// extractable text are kept as empty entries so page numbers stay aligned.
type PDFConverter struct{}

func (c *PDFConverter) SupportedFormats() []string { return []string{"pdf"} }

func (c *PDFConverter) Convert(ctx context.Context, path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("pdf: page text extraction failed", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	var nonEmpty []string
	for _, p := range pages {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	res := &Result{
		Text:     strings.Join(nonEmpty, "\n\n"),
		Pages:    pages,
		Metadata: map[string]any{"page_count": totalPages},
	}

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		if title := strings.TrimSpace(info.Key("Title").Text()); title != "" {
			res.Title = title
			res.Metadata["title"] = title
		}
		if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
			res.Metadata["author"] = author
		}
		if subject := strings.TrimSpace(info.Key("Subject").Text()); subject != "" {
			res.Metadata["subject"] = subject
		}
	}
	return res, nil
}

package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// HTMLConverter converts the <body> of an HTML file to markdown. Scripts and
// styles are dropped; <title> and the description meta tag become metadata.
type HTMLConverter struct{}

func (c *HTMLConverter) SupportedFormats() []string { return []string{"html", "htm"} }

func (c *HTMLConverter) Convert(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading HTML file: %w", err)
	}

	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, fmt.Errorf("decoding HTML: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	res := &Result{Metadata: make(map[string]any)}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		res.Title = title
		res.Metadata["title"] = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
		res.Metadata["description"] = strings.TrimSpace(desc)
	}

	doc.Find("script, style, noscript").Remove()
	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("rendering HTML body: %w", err)
	}

	text, err := md.NewConverter("", true, nil).ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("converting HTML to markdown: %w", err)
	}
	res.Text = strings.TrimSpace(text)
	return res, nil
}

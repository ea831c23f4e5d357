package converter

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextConverter handles plain text and markdown files. Content is decoded to
// UTF-8 and otherwise returned verbatim.
type TextConverter struct{}

func (c *TextConverter) SupportedFormats() []string {
	return []string{"txt", "text", "md", "markdown", "log"}
}

func (c *TextConverter) Convert(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	text, enc, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decoding text file: %w", err)
	}
	return &Result{
		Text:     text,
		Metadata: map[string]any{"encoding": enc},
	}, nil
}

// decodeText sniffs the byte order mark or, failing that, the charset of
// data and converts it to UTF-8 with the BOM removed.
func decodeText(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "utf-8", nil
	}
	enc, name, _ := charset.DetermineEncoding(data, "text/plain")
	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return "", name, err
	}
	return string(out), name, nil
}

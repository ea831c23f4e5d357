// Package caption describes images with a vision LLM.
//
// The image container is sniffed from its bytes rather than trusted from the
// declared MIME type or extension, and only formats vision backends accept
// (PNG, JPEG, GIF, WebP) are ever sent.
package caption

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/brunobiangulo/mdloader/llm"
)

var (
	// ErrUnsupportedFormat is returned when the image bytes are not PNG,
	// JPEG, GIF or WebP. The backend is not called.
	ErrUnsupportedFormat = errors.New("caption: unsupported image format")

	// ErrBackend wraps errors returned by the vision provider.
	ErrBackend = errors.New("caption: backend request failed")
)

// DefaultPrompt is sent when no custom prompt is configured.
const DefaultPrompt = "Write a detailed caption for this image."

// sendable maps image.DecodeConfig format names to the MIME type and
// extension used for the request.
var sendable = map[string]StreamInfo{
	"png":  {MIMEType: "image/png", Extension: ".png"},
	"jpeg": {MIMEType: "image/jpeg", Extension: ".jpg"},
	"gif":  {MIMEType: "image/gif", Extension: ".gif"},
	"webp": {MIMEType: "image/webp", Extension: ".webp"},
}

// StreamInfo describes an image stream. Name is used in errors only.
type StreamInfo struct {
	MIMEType  string
	Extension string
	Name      string
}

// Captioner sends one vision request per image.
type Captioner struct {
	backend   llm.VisionProvider
	prompt    string
	model     string
	maxTokens int
}

// Option configures a Captioner.
type Option func(*Captioner)

// WithPrompt replaces DefaultPrompt. An empty prompt is ignored.
func WithPrompt(prompt string) Option {
	return func(c *Captioner) {
		if strings.TrimSpace(prompt) != "" {
			c.prompt = prompt
		}
	}
}

// WithModel overrides the backend's configured model.
func WithModel(model string) Option {
	return func(c *Captioner) { c.model = model }
}

// WithMaxTokens caps the caption length.
func WithMaxTokens(n int) Option {
	return func(c *Captioner) { c.maxTokens = n }
}

// New returns a Captioner using backend. A nil backend yields a Captioner
// that never captions.
func New(backend llm.VisionProvider, opts ...Option) *Captioner {
	c := &Captioner{backend: backend, prompt: DefaultPrompt}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prompt returns the prompt sent with every image.
func (c *Captioner) Prompt() string { return c.prompt }

// Caption returns a description of the image read from r, or "" when the
// backend has nothing to say. Formats outside PNG, JPEG, GIF and WebP return
// ErrUnsupportedFormat without contacting the backend; backend failures
// wrap ErrBackend.
func (c *Captioner) Caption(ctx context.Context, r io.Reader, info StreamInfo) (string, error) {
	if c == nil || c.backend == nil {
		return "", nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading image %s: %w", info.Name, err)
	}

	sniffed, err := Sniff(data, info)
	if err != nil {
		return "", err
	}

	req := llm.ImageRequest(c.prompt, sniffed.MIMEType, data)
	req.Model = c.model
	req.MaxTokens = c.maxTokens

	resp, err := c.backend.ChatWithImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBackend, info.Name, err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Content), nil
}

// Sniff detects the real container format of data and returns info with
// MIMEType and Extension replaced by the detected values.
func Sniff(data []byte, info StreamInfo) (StreamInfo, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info, fmt.Errorf("%w: %s (declared %s)", ErrUnsupportedFormat, describe(info), info.MIMEType)
	}

	detected, ok := sendable[format]
	if !ok {
		return info, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, describe(info), format)
	}
	info.MIMEType = detected.MIMEType
	info.Extension = detected.Extension
	return info, nil
}

func describe(info StreamInfo) string {
	if info.Name != "" {
		return info.Name
	}
	return "image"
}

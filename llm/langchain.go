package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llava"
)

// LangChain adapts a langchaingo model to VisionProvider. Data URL images
// are sent as binary parts, other URLs as image URL parts.
type LangChain struct {
	model llms.Model
}

// NewLangChain wraps model.
func NewLangChain(model llms.Model) *LangChain {
	return &LangChain{model: model}
}

func (l *LangChain) ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error) {
	msgs := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		mc := llms.MessageContent{Role: messageType(m.Role)}
		for _, part := range m.Content {
			switch part.Type {
			case "text":
				mc.Parts = append(mc.Parts, llms.TextPart(part.Text))
			case "image_url":
				if part.ImageURL == nil {
					continue
				}
				mimeType, data, ok := decodeDataURL(part.ImageURL.URL)
				if ok {
					mc.Parts = append(mc.Parts, llms.BinaryPart(mimeType, data))
				} else {
					mc.Parts = append(mc.Parts, llms.ImageURLPart(part.ImageURL.URL))
				}
			}
		}
		msgs = append(msgs, mc)
	}

	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}

	resp, err := l.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &ChatResponse{
		Content:      choice.Content,
		Model:        req.Model,
		FinishReason: choice.StopReason,
	}, nil
}

// ollamaProvider talks to Ollama through langchaingo's client.
type ollamaProvider struct {
	*LangChain
	cfg Config
}

// NewOllama creates a provider for a local or remote Ollama server.
func NewOllama(cfg Config) (VisionProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}

	model, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("initializing ollama: %w", err)
	}
	return &ollamaProvider{LangChain: NewLangChain(model), cfg: cfg}, nil
}

func messageType(role string) schema.ChatMessageType {
	switch role {
	case "system":
		return schema.ChatMessageTypeSystem
	case "assistant":
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

// decodeDataURL splits a base64 data URL into its MIME type and payload.
func decodeDataURL(url string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, false
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mimeType, data, true
}

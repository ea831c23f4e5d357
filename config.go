package mdloader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/mdloader/converter"
	"github.com/brunobiangulo/mdloader/llm"
	"github.com/brunobiangulo/mdloader/splitter"
)

// Config is the file-based equivalent of the functional options.
type Config struct {
	SplitByPage bool `json:"split_by_page" yaml:"split_by_page"`
	Verbose     bool `json:"verbose" yaml:"verbose"`

	// Image captioning (PPTX). Disabled when Caption.Provider is empty.
	CaptionPrompt string    `json:"caption_prompt" yaml:"caption_prompt"`
	Caption       LLMConfig `json:"caption" yaml:"caption"`

	// Markdown headers segments are split at; empty means H1 to H3.
	Headers []splitter.Header `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Size-based chunking after header splitting; 0 disables it.
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// External conversion of legacy formats (doc, ppt, rtf, ...).
	LlamaParse *converter.LlamaParseConfig `json:"llamaparse,omitempty" yaml:"llamaparse,omitempty"`
}

// LLMConfig configures the vision provider used for captions.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openai, openrouter, groq, xai, gemini, lmstudio, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config that loads whole documents without
// captioning.
func DefaultConfig() Config {
	return Config{}
}

// LoadConfig reads a YAML config file. Missing fields keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges. It does not contact any service.
func (c Config) Validate() error {
	if c.ChunkSize < 0 {
		return fmt.Errorf("%w: chunk_size must be >= 0, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must be >= 0, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.Caption.Provider == "" && strings.TrimSpace(c.CaptionPrompt) != "" {
		return fmt.Errorf("%w: caption_prompt set without a caption provider", ErrInvalidConfig)
	}
	for i, h := range c.Headers {
		if strings.TrimSpace(h.Prefix) == "" || h.Name == "" {
			return fmt.Errorf("%w: headers[%d] needs a prefix and a name", ErrInvalidConfig, i)
		}
	}
	if c.LlamaParse != nil && c.LlamaParse.APIKey == "" {
		return fmt.Errorf("%w: llamaparse.api_key is required", ErrInvalidConfig)
	}
	return nil
}

// Options validates the config and turns it into loader options, creating
// the caption provider and converter registry it describes.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []Option{
		WithSplitByPage(c.SplitByPage),
		WithVerbose(c.Verbose),
	}

	if c.Caption.Provider != "" {
		vision, err := llm.NewProvider(llm.Config{
			Provider: c.Caption.Provider,
			Model:    c.Caption.Model,
			BaseURL:  c.Caption.BaseURL,
			APIKey:   c.Caption.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: creating caption provider: %w", ErrInvalidConfig, err)
		}
		opts = append(opts, WithCaptioner(vision), WithPrompt(c.CaptionPrompt))
	}

	if len(c.Headers) > 0 {
		opts = append(opts, WithHeaders(c.Headers...))
	}

	if c.ChunkSize > 0 {
		opts = append(opts, WithChunkSize(c.ChunkSize, c.ChunkOverlap))
	}

	if c.LlamaParse != nil {
		reg := converter.NewRegistry()
		reg.SetLlamaParse(*c.LlamaParse)
		opts = append(opts, WithRegistry(reg))
	}
	return opts, nil
}

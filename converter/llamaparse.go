package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const defaultLlamaParseURL = "https://api.cloud.llamaindex.ai/api/parsing"

// ErrLlamaParseTimeout is returned when a parsing job does not finish within
// the polling window.
var ErrLlamaParseTimeout = errors.New("converter: LlamaParse job timed out")

// LlamaParseConverter uploads a file to the LlamaParse API and returns the
// markdown it produces. It covers the legacy binary formats that have no
// native converter.
type LlamaParseConverter struct {
	cfg          LlamaParseConfig
	client       *http.Client
	pollInterval time.Duration
	maxPolls     int
}

func NewLlamaParseConverter(cfg LlamaParseConfig) *LlamaParseConverter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultLlamaParseURL
	}
	return &LlamaParseConverter{
		cfg:          cfg,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: 5 * time.Second,
		maxPolls:     60, // ~5 minutes
	}
}

func (c *LlamaParseConverter) SupportedFormats() []string {
	return []string{"doc", "ppt", "rtf", "odt", "odp"}
}

func (c *LlamaParseConverter) Convert(ctx context.Context, path string) (*Result, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("LlamaParse API key not configured")
	}

	jobID, err := c.uploadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("uploading to LlamaParse: %w", err)
	}

	markdown, err := c.pollResult(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting LlamaParse result: %w", err)
	}

	return &Result{
		Text:     markdown,
		Metadata: map[string]any{"llamaparse_job_id": jobID},
	}, nil
}

func (c *LlamaParseConverter) uploadFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("upload response carried no job id")
	}
	return result.ID, nil
}

// pollResult asks for the job's markdown until it is ready. 202 means the
// job is still running; any other non-200 status ends the job.
func (c *LlamaParseConverter) pollResult(ctx context.Context, jobID string) (string, error) {
	url := fmt.Sprintf("%s/job/%s/result/markdown", c.cfg.BaseURL, jobID)

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return "", err
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var result struct {
				Markdown string `json:"markdown"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return string(body), nil // raw text
			}
			return result.Markdown, nil
		case http.StatusAccepted:
			continue
		default:
			return "", fmt.Errorf("LlamaParse error %d: %s", resp.StatusCode, string(body))
		}
	}
	return "", ErrLlamaParseTimeout
}

package converter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLlamaParse(baseURL string, maxPolls int) *LlamaParseConverter {
	c := NewLlamaParseConverter(LlamaParseConfig{APIKey: "test-key", BaseURL: baseURL})
	c.pollInterval = time.Millisecond
	c.maxPolls = maxPolls
	return c
}

func TestLlamaParseUploadAndPoll(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload":
			if _, _, err := r.FormFile("file"); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"id":"job-1"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/job/job-1/result/markdown":
			if polls.Add(1) < 3 {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			fmt.Fprint(w, `{"markdown":"# Legacy\n\nbody"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	path := writeFile(t, "old.doc", "binary-ish")
	res, err := newTestLlamaParse(srv.URL, 10).Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Text != "# Legacy\n\nbody" {
		t.Errorf("Text = %q", res.Text)
	}
	if polls.Load() != 3 {
		t.Errorf("expected 3 polls, got %d", polls.Load())
	}
	if res.Metadata["llamaparse_job_id"] != "job-1" {
		t.Errorf("job id metadata = %v", res.Metadata["llamaparse_job_id"])
	}
}

func TestLlamaParseTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			fmt.Fprint(w, `{"id":"slow"}`)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	path := writeFile(t, "old.ppt", "x")
	_, err := newTestLlamaParse(srv.URL, 2).Convert(context.Background(), path)
	if !errors.Is(err, ErrLlamaParseTimeout) {
		t.Errorf("expected ErrLlamaParseTimeout, got %v", err)
	}
}

func TestLlamaParseJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			fmt.Fprint(w, `{"id":"bad"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	path := writeFile(t, "old.doc", "x")
	_, err := newTestLlamaParse(srv.URL, 5).Convert(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "LlamaParse error 500") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestLlamaParseRequiresAPIKey(t *testing.T) {
	path := writeFile(t, "old.doc", "x")
	_, err := NewLlamaParseConverter(LlamaParseConfig{}).Convert(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestLlamaParseContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			fmt.Fprint(w, `{"id":"job"}`)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewLlamaParseConverter(LlamaParseConfig{APIKey: "k", BaseURL: srv.URL})
	c.pollInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	path := writeFile(t, "old.doc", "x")
	if _, err := c.Convert(ctx, path); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

package mdloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/mdloader/converter"
	"github.com/brunobiangulo/mdloader/internal/testdoc"
	"github.com/brunobiangulo/mdloader/metrics"
	"github.com/brunobiangulo/mdloader/splitter"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// threeSlideDeck has one titled slide per topic.
func threeSlideDeck(t *testing.T) string {
	var slides []testdoc.Slide
	for i, topic := range []string{"Intro", "Body", "Outro"} {
		slides = append(slides, testdoc.Slide{
			Shapes: testdoc.Title(2, topic) + testdoc.TextBox(3, "TextBox 3", fmt.Sprintf("content %d", i+1)),
		})
	}
	return testdoc.Deck{Slides: slides, Core: testdoc.CoreXML("Deck", "Ada")}.Write(t)
}

func createXLSX(t *testing.T, sheets ...string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		f.SetCellValue(name, "A1", "Item")
		f.SetCellValue(name, "B1", "Qty")
		f.SetCellValue(name, "A2", name+"-row")
		f.SetCellValue(name, "B2", i+1)
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.pptx")
	for _, l := range []Loader{
		NewBaseLoader(path, WithLogger(quietLogger())),
		NewDocxLoader(path, WithLogger(quietLogger())),
		NewPptxLoader(path, WithLogger(quietLogger())),
		NewXlsxLoader(path, WithLogger(quietLogger())),
	} {
		docs, err := l.Load(context.Background())
		if docs != nil {
			t.Errorf("%T: expected no documents, got %d", l, len(docs))
		}
		if !errors.Is(err, ErrConversionFailed) || !errors.Is(err, ErrFileNotFound) {
			t.Fatalf("%T: expected conversion failure and file not found, got %v", l, err)
		}
		want := "mdloader: conversion failed: file not found: " + path
		if err.Error() != want {
			t.Errorf("%T: error = %q, want %q", l, err.Error(), want)
		}
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "data.bin", "binary")
	_, err := New(path, WithLogger(quietLogger())).Load(context.Background())
	if !errors.Is(err, ErrConversionFailed) || !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if errors.Is(err, ErrFileNotFound) {
		t.Error("unsupported format must not look like a missing file")
	}
}

func TestLoadConversionFailure(t *testing.T) {
	path := writeFile(t, "broken.docx", "not a zip")
	_, err := New(path, WithLogger(quietLogger())).Load(context.Background())
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if errors.Is(err, ErrFileNotFound) {
		t.Error("conversion failure must not look like a missing file")
	}
}

func TestPptxWholeVersusSplit(t *testing.T) {
	path := threeSlideDeck(t)

	whole, err := NewPptxLoader(path, WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(whole) != 1 {
		t.Fatalf("whole mode: expected 1 document, got %d", len(whole))
	}
	meta := whole[0].Metadata
	if meta["content_type"] != ContentPresentationFull {
		t.Errorf("content_type = %v", meta["content_type"])
	}
	if meta["slide_count"] != 3 || meta["text_box_count"] != 3 || meta["author"] != "Ada" {
		t.Errorf("unexpected presentation metadata: %v", meta)
	}
	if meta["source"] != path || meta["file_name"] != "deck.pptx" || meta["conversion_success"] != true {
		t.Errorf("unexpected base metadata: %v", meta)
	}
	if size, ok := meta["file_size"].(int64); !ok || size <= 0 {
		t.Errorf("file_size = %v", meta["file_size"])
	}

	split, err := NewPptxLoader(path, WithSplitByPage(true), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(split) != 3 {
		t.Fatalf("split mode: expected 3 documents, got %d", len(split))
	}
	for i, doc := range split {
		if doc.Metadata["page_number"] != i+1 {
			t.Errorf("doc %d page_number = %v", i, doc.Metadata["page_number"])
		}
		if doc.Metadata["content_type"] != ContentPresentationSlide {
			t.Errorf("doc %d content_type = %v", i, doc.Metadata["content_type"])
		}
		if strings.Contains(doc.PageContent, "Slide number") {
			t.Errorf("doc %d still holds a slide marker: %q", i, doc.PageContent)
		}
		if !strings.Contains(doc.PageContent, fmt.Sprintf("content %d", i+1)) {
			t.Errorf("doc %d content = %q", i, doc.PageContent)
		}
		if doc.Metadata["source"] != path {
			t.Errorf("doc %d lost source", i)
		}
	}
	if split[0].Metadata["Header 1"] != "Intro" {
		t.Errorf("header metadata = %v", split[0].Metadata)
	}

	split[0].Metadata["author"] = "changed"
	if split[1].Metadata["author"] != "Ada" {
		t.Error("documents must not share metadata maps")
	}
}

func TestXlsxEmitsEverySheet(t *testing.T) {
	path := createXLSX(t, "Summary", "Details", "Archive")

	docs, err := New(path, WithSplitByPage(true), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 sheet documents, got %d", len(docs))
	}
	for i, name := range []string{"Summary", "Details", "Archive"} {
		d := docs[i]
		if d.Metadata["sheet_name"] != name || d.Metadata["page_number"] != i+1 {
			t.Errorf("sheet %d metadata = %v", i, d.Metadata)
		}
		if d.Metadata["content_type"] != ContentSpreadsheetSheet {
			t.Errorf("sheet %d content_type = %v", i, d.Metadata["content_type"])
		}
		if !strings.HasPrefix(d.PageContent, "| Item | Qty |") || !strings.Contains(d.PageContent, name+"-row") {
			t.Errorf("sheet %d content = %q", i, d.PageContent)
		}
		if d.Metadata["sheet_count"] != 3 {
			t.Errorf("sheet_count = %v", d.Metadata["sheet_count"])
		}
	}

	whole, err := New(path, WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(whole) != 1 || whole[0].Metadata["content_type"] != ContentSpreadsheetFull {
		t.Fatalf("whole mode: %d docs, %v", len(whole), whole[0].Metadata)
	}
	if !strings.Contains(whole[0].PageContent, "## Archive") {
		t.Errorf("whole workbook missing last sheet:\n%s", whole[0].PageContent)
	}
}

func TestDocxPages(t *testing.T) {
	body := testdoc.Para("Heading1", "One") +
		testdoc.Para("", "first page") +
		testdoc.PageBreak() +
		testdoc.Para("Heading1", "Two") +
		testdoc.Para("", "second page")
	path := testdoc.Doc{Body: body, Core: testdoc.CoreXML("Manual", "Lin")}.Write(t)

	docs, err := NewDocxLoader(path, WithSplitByPage(true), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 page documents, got %d", len(docs))
	}
	for i, d := range docs {
		if d.Metadata["page_number"] != i+1 || d.Metadata["content_type"] != ContentDocumentPage {
			t.Errorf("page %d metadata = %v", i, d.Metadata)
		}
		if d.Metadata["author"] != "Lin" || d.Metadata["title"] != "Manual" {
			t.Errorf("converter metadata not merged: %v", d.Metadata)
		}
	}
	if docs[1].PageContent != "# Two\n\nsecond page" {
		t.Errorf("page 2 content = %q", docs[1].PageContent)
	}
}

func TestDocxHeaderFallback(t *testing.T) {
	body := testdoc.Para("Heading1", "Alpha") +
		testdoc.Para("", "a text") +
		testdoc.Para("Heading2", "Beta") +
		testdoc.Para("", "b text")
	path := testdoc.Doc{Body: body}.Write(t)

	docs, err := NewDocxLoader(path, WithSplitByPage(true), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(docs))
	}
	if docs[1].Metadata["Header 1"] != "Alpha" || docs[1].Metadata["Header 2"] != "Beta" {
		t.Errorf("section metadata = %v", docs[1].Metadata)
	}
	for _, d := range docs {
		if d.Metadata["content_type"] != ContentDocumentSection {
			t.Errorf("content_type = %v", d.Metadata["content_type"])
		}
		if _, ok := d.Metadata["page_number"]; ok {
			t.Error("sections without pages carry no page_number")
		}
	}
}

func TestLoadWithHeadersOverride(t *testing.T) {
	path := writeFile(t, "notes.md", "# A\none\n## B\ntwo\n## C\nthree")
	l := New(path, WithSplitByPage(true), WithLogger(quietLogger()))

	docs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("default headers: expected 3 docs, got %d", len(docs))
	}

	docs, err = l.LoadWithHeaders(context.Background(), splitter.Header{Prefix: "#", Name: "Top"})
	if err != nil {
		t.Fatalf("LoadWithHeaders: %v", err)
	}
	if len(docs) != 1 || docs[0].Metadata["Top"] != "A" {
		t.Fatalf("override: got %d docs, %v", len(docs), docs[0].Metadata)
	}
}

func TestTextWholeDocumentVerbatim(t *testing.T) {
	content := "line one\n\n  indented\n"
	path := writeFile(t, "plain.txt", content)

	docs, err := New(path, WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 || docs[0].PageContent != content {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	if docs[0].Metadata["content_type"] != ContentDocumentFull || docs[0].Metadata["file_size"] != int64(len(content)) {
		t.Errorf("metadata = %v", docs[0].Metadata)
	}
}

func TestEmptyFileYieldsOneDocument(t *testing.T) {
	path := writeFile(t, "empty.txt", "")

	docs, err := New(path, WithSplitByPage(true), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 || docs[0].PageContent != "" {
		t.Fatalf("expected one empty document, got %+v", docs)
	}
	if docs[0].Metadata["source"] != path {
		t.Errorf("metadata = %v", docs[0].Metadata)
	}
}

func TestMetadataExtractionFailureIsRecorded(t *testing.T) {
	reg := converter.NewRegistry()
	reg.Register(&fixedConverter{formats: []string{"pptx"}, text: "# Slide\nhello"})
	path := writeFile(t, "fake.pptx", "not a package")

	docs, err := NewPptxLoader(path, WithRegistry(reg), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("extraction failure must not fail the load: %v", err)
	}
	msg, ok := docs[0].Metadata["metadata_extraction_error"].(string)
	if !ok || !strings.HasPrefix(msg, ErrMetadataExtraction.Error()) {
		t.Errorf("metadata_extraction_error = %v", docs[0].Metadata["metadata_extraction_error"])
	}
	if docs[0].Metadata["conversion_success"] != true {
		t.Error("base metadata lost")
	}
}

func TestLoadAndSplit(t *testing.T) {
	path := writeFile(t, "long.txt", strings.Repeat("sentence here. ", 40))
	docs, err := New(path, WithLogger(quietLogger())).LoadAndSplit(context.Background(),
		textsplitter.NewRecursiveCharacter(textsplitter.WithChunkSize(100), textsplitter.WithChunkOverlap(0)))
	if err != nil {
		t.Fatalf("LoadAndSplit: %v", err)
	}
	if len(docs) < 2 {
		t.Fatalf("expected several chunks, got %d", len(docs))
	}
	for _, d := range docs {
		if d.Metadata["source"] != path {
			t.Errorf("chunk lost source metadata: %v", d.Metadata)
		}
	}
}

func TestWithChunkSize(t *testing.T) {
	path := writeFile(t, "long.md", "# Big\n"+strings.Repeat("word ", 200))
	docs, err := New(path, WithSplitByPage(true), WithChunkSize(120, 20), WithLogger(quietLogger())).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) < 2 {
		t.Fatalf("expected chunked output, got %d docs", len(docs))
	}
	for _, d := range docs {
		if d.Metadata["Header 1"] != "Big" {
			t.Errorf("chunk lost header metadata: %v", d.Metadata)
		}
	}
}

func TestLoadRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)
	ok := writeFile(t, "a.txt", "hello")
	missing := filepath.Join(t.TempDir(), "missing.txt")

	if _, err := New(ok, WithMetrics(c), WithLogger(quietLogger())).Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	New(missing, WithMetrics(c), WithLogger(quietLogger())).Load(context.Background())

	expected := `
# HELP mdloader_loads_total Total number of document loads, by format and outcome
# TYPE mdloader_loads_total counter
mdloader_loads_total{format="txt",status="error"} 1
mdloader_loads_total{format="txt",status="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "mdloader_loads_total"); err != nil {
		t.Error(err)
	}
}

func TestNewPicksLoader(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.docx", "*mdloader.DocxLoader"},
		{"a.PPTX", "*mdloader.PptxLoader"},
		{"a.xlsx", "*mdloader.XlsxLoader"},
		{"a.xls", "*mdloader.XlsxLoader"},
		{"a.pdf", "*mdloader.BaseLoader"},
		{"a.txt", "*mdloader.BaseLoader"},
	}
	for _, tt := range tests {
		if got := fmt.Sprintf("%T", New(tt.path)); got != tt.want {
			t.Errorf("New(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

// fixedConverter returns canned markdown for any path.
type fixedConverter struct {
	formats []string
	text    string
	images  []converter.Image
}

func (f *fixedConverter) SupportedFormats() []string { return f.formats }

func (f *fixedConverter) Convert(_ context.Context, _ string) (*converter.Result, error) {
	return &converter.Result{Text: f.text, Images: f.images}, nil
}

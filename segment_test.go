package mdloader

import (
	"testing"
)

func TestSlideSegments(t *testing.T) {
	text := "<!-- Slide number: 1 -->\n# One\nalpha\n\n<!-- Slide number: 2 -->\n\n<!-- Slide number: 3 -->\n# Three\ngamma\n\n<!-- Slide number: 4 -->"

	segs := slideSegments(text)
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	wants := []struct {
		n    int
		text string
	}{
		{1, "# One\nalpha"},
		{2, ""},
		{3, "# Three\ngamma"},
		{4, ""},
	}
	for i, w := range wants {
		if segs[i].meta["page_number"] != w.n || segs[i].text != w.text {
			t.Errorf("segment %d = %d %q, want %d %q", i, segs[i].meta["page_number"], segs[i].text, w.n, w.text)
		}
	}
}

func TestSlideSegmentsPreambleAndNoMarkers(t *testing.T) {
	segs := slideSegments("loose text\n\n<!-- Slide number: 2 -->\nsecond")
	if len(segs) != 2 || segs[0].meta["page_number"] != 1 || segs[0].text != "loose text" {
		t.Fatalf("preamble not assigned to slide 1: %+v", segs)
	}
	if segs[1].meta["page_number"] != 2 {
		t.Errorf("second segment = %+v", segs[1])
	}

	segs = slideSegments("just text")
	if len(segs) != 1 || segs[0].meta["page_number"] != 1 {
		t.Errorf("no markers: %+v", segs)
	}
}

func TestSheetSegments(t *testing.T) {
	text := "## Alpha\n| a |\n| --- |\n| 1 |\n\n## Empty\n\n## Gamma\n| g |\n| --- |\n"

	segs := sheetSegments(text)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].meta["sheet_name"] != "Alpha" || segs[0].meta["page_number"] != 1 || segs[0].text != "| a |\n| --- |\n| 1 |" {
		t.Errorf("first sheet = %+v", segs[0])
	}
	if segs[1].meta["sheet_name"] != "Empty" || segs[1].text != "" {
		t.Errorf("empty sheet = %+v", segs[1])
	}
	if segs[2].meta["sheet_name"] != "Gamma" || segs[2].meta["page_number"] != 3 {
		t.Errorf("third sheet = %+v", segs[2])
	}
}

func TestPageSegments(t *testing.T) {
	segs := pageSegments("ignored", []string{"p1", "", "p3"})
	if len(segs) != 3 || segs[2].meta["page_number"] != 3 || segs[2].meta["content_type"] != ContentDocumentPage {
		t.Fatalf("unexpected page segments: %+v", segs)
	}

	segs = pageSegments("# whole", nil)
	if len(segs) != 1 || segs[0].text != "# whole" || segs[0].meta["content_type"] != ContentDocumentSection {
		t.Fatalf("unexpected fallback: %+v", segs)
	}
}

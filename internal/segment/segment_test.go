package segment

import (
	"reflect"
	"testing"

	"example.com/compliance-auditor/internal/model"
)

func TestSegmentSplitsOnBlankLines(t *testing.T) {
	t.Parallel()

	text := "First  paragraph\nwraps here.\n\n \t\nSecond one.\n\n\n\nThird."
	got := Segment(text)
	want := model.Paragraphs{
		{ID: "p1", Text: "First paragraph wraps here."},
		{ID: "p2", Text: "Second one."},
		{ID: "p3", Text: "Third."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegmentIsDeterministic(t *testing.T) {
	t.Parallel()

	text := "a\n\nb\n\nc"
	first := Segment(text)
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(first, Segment(text)) {
			t.Fatal("segmentation must be deterministic")
		}
	}
}

func TestSegmentEmpty(t *testing.T) {
	t.Parallel()

	if got := Segment(" \n\n \n"); len(got) != 0 {
		t.Fatalf("expected no paragraphs, got %v", got)
	}
}

func TestSegmentPageQualifiesIDs(t *testing.T) {
	t.Parallel()

	got := SegmentPage(3, "alpha\n\nbeta")
	if got[0].ID != "pg3-p1" || got[1].ID != "pg3-p2" || got[1].Page != 3 || got[1].Position != 2 {
		t.Fatalf("unexpected paragraphs: %#v", got)
	}
}

func TestAdoptKeepsIDsAndFillsGaps(t *testing.T) {
	t.Parallel()

	in := model.Paragraphs{
		{ID: "intro", Text: "  Hello\n world "},
		{Text: "   "},
		{Text: "second"},
		{ID: "intro", Text: "dup"},
	}
	got := Adopt(in)
	want := model.Paragraphs{
		{ID: "intro", Text: "Hello world"},
		{ID: "p2", Text: "second"},
		{ID: "intro-2", Text: "dup"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if Join(got) != "Hello world\n\nsecond\n\ndup" {
		t.Fatalf("unexpected join: %q", Join(got))
	}
}

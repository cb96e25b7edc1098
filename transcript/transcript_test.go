package transcript

import (
	"testing"
	"time"
)

func TestDraftIsExactConcatenation(t *testing.T) {
	a := NewAccumulator()
	fragments := []string{"မနက်", "ဖြန်", " လာ", "မယ်"}
	for _, f := range fragments {
		a.AppendPartial(f)
	}
	if got := a.Draft(); got != "မနက်ဖြန် လာမယ်" {
		t.Errorf("Draft() = %q", got)
	}
}

func TestCompleteTurnCommitsTrimmedDraft(t *testing.T) {
	a := NewAccumulator()
	a.AppendPartial("  hello ")
	a.AppendPartial("world  ")

	now := time.Now()
	seg := a.CompleteTurn(now)
	if seg == nil {
		t.Fatal("expected a segment")
	}
	if seg.Text != "hello world" {
		t.Errorf("text = %q, want %q", seg.Text, "hello world")
	}
	if !seg.CapturedAt.Equal(now) {
		t.Errorf("capturedAt = %v, want %v", seg.CapturedAt, now)
	}
	if seg.Origin != OriginCapturedAudio {
		t.Errorf("origin = %q", seg.Origin)
	}
	if a.Draft() != "" {
		t.Error("draft should reset after turn completion")
	}
	if a.Len() != 1 {
		t.Errorf("log length = %d, want 1", a.Len())
	}
}

func TestCompleteTurnWithWhitespaceDraft(t *testing.T) {
	a := NewAccumulator()
	a.AppendPartial("   \n\t ")

	if seg := a.CompleteTurn(time.Now()); seg != nil {
		t.Errorf("whitespace draft produced segment %q", seg.Text)
	}
	if a.Len() != 0 {
		t.Errorf("log length = %d, want 0", a.Len())
	}
	if a.Draft() != "" {
		t.Error("draft should reset even when nothing commits")
	}
}

func TestCompleteTurnWithEmptyDraft(t *testing.T) {
	a := NewAccumulator()
	if seg := a.CompleteTurn(time.Now()); seg != nil {
		t.Error("empty draft should produce no segment")
	}
}

func TestSegmentIDsUniqueAndOrdered(t *testing.T) {
	a := NewAccumulator()
	seen := make(map[string]bool)
	for i, text := range []string{"one", "two", "three"} {
		a.AppendPartial(text)
		seg := a.CompleteTurn(time.Now())
		if seg == nil {
			t.Fatalf("turn %d produced no segment", i)
		}
		if seen[seg.ID] {
			t.Errorf("duplicate segment ID %q", seg.ID)
		}
		seen[seg.ID] = true
	}

	segments := a.Segments()
	if len(segments) != 3 {
		t.Fatalf("len = %d, want 3", len(segments))
	}
	want := []string{"one", "two", "three"}
	for i, w := range want {
		if segments[i].Text != w {
			t.Errorf("segments[%d] = %q, want %q", i, segments[i].Text, w)
		}
	}
}

func TestDiscardDraft(t *testing.T) {
	a := NewAccumulator()
	a.AppendPartial("unfinished thought")
	a.DiscardDraft()

	if a.Draft() != "" {
		t.Error("draft should be empty after discard")
	}
	if seg := a.CompleteTurn(time.Now()); seg != nil {
		t.Error("discarded draft must not commit")
	}
	if a.Len() != 0 {
		t.Errorf("log length = %d, want 0", a.Len())
	}
}

func TestClear(t *testing.T) {
	a := NewAccumulator()
	a.AppendPartial("kept")
	a.CompleteTurn(time.Now())
	a.AppendPartial("pending")

	a.Clear()

	if a.Len() != 0 {
		t.Errorf("log length = %d, want 0", a.Len())
	}
	if a.Draft() != "" {
		t.Error("draft should be empty after clear")
	}
}

func TestCopyText(t *testing.T) {
	a := NewAccumulator()
	if a.CopyText() != "" {
		t.Error("empty log should copy as empty string")
	}

	a.AppendPartial("Hello")
	a.CompleteTurn(time.Now())
	a.AppendPartial("World")
	a.CompleteTurn(time.Now())

	if got := a.CopyText(); got != "Hello\nWorld" {
		t.Errorf("CopyText() = %q, want %q", got, "Hello\nWorld")
	}
}

func TestSegmentsReturnsCopy(t *testing.T) {
	a := NewAccumulator()
	a.AppendPartial("original")
	a.CompleteTurn(time.Now())

	segments := a.Segments()
	segments[0].Text = "mutated"

	if a.Segments()[0].Text != "original" {
		t.Error("external mutation leaked into the log")
	}
}

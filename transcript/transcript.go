package transcript

import (
	"strings"
	"time"

	"github.com/sawnaing/saye/etc"
)

// OriginCapturedAudio marks segments produced from live microphone capture.
const OriginCapturedAudio = "captured-audio"

// Segment is one finalized speech turn. Immutable once created.
type Segment struct {
	ID         string
	Text       string
	CapturedAt time.Time
	Origin     string
}

// Accumulator merges incremental transcription fragments into a draft and
// commits completed turns to an ordered log. Not safe for concurrent use;
// the UI loop serializes all calls.
type Accumulator struct {
	segments []Segment
	draft    strings.Builder
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AppendPartial concatenates a fragment onto the draft, verbatim.
func (a *Accumulator) AppendPartial(text string) {
	a.draft.WriteString(text)
}

// Draft returns the in-progress text for the current turn.
func (a *Accumulator) Draft() string {
	return a.draft.String()
}

// CompleteTurn finalizes the current turn. A draft that trims to empty
// produces no segment. The draft is reset either way. Returns the new
// segment, or nil.
func (a *Accumulator) CompleteTurn(now time.Time) *Segment {
	text := strings.TrimSpace(a.draft.String())
	a.draft.Reset()
	if text == "" {
		return nil
	}
	seg := Segment{
		ID:         etc.NewFreshID(),
		Text:       text,
		CapturedAt: now,
		Origin:     OriginCapturedAudio,
	}
	a.segments = append(a.segments, seg)
	return &seg
}

// DiscardDraft throws away any pending draft without committing it.
func (a *Accumulator) DiscardDraft() {
	a.draft.Reset()
}

// Clear empties both the log and the draft.
func (a *Accumulator) Clear() {
	a.segments = nil
	a.draft.Reset()
}

// Segments returns the log in completion order.
func (a *Accumulator) Segments() []Segment {
	out := make([]Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

// Len reports how many segments are in the log.
func (a *Accumulator) Len() int {
	return len(a.segments)
}

// CopyText joins segment texts with newlines, in log order, for the
// clipboard.
func (a *Accumulator) CopyText() string {
	texts := make([]string, len(a.segments))
	for i, s := range a.segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}

package stt

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestSession() *GeminiSession {
	return &GeminiSession{
		logger: log.New(io.Discard),
		events: make(chan Event, 32),
		audio:  make(chan []byte, 2),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func TestDecodePartialTranscription(t *testing.T) {
	s := newTestSession()
	events := s.decode([]byte(`{"serverContent":{"inputTranscription":{"text":"မင်္ဂလာပါ"}}}`))
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Kind != EventPartial {
		t.Errorf("kind = %v, want EventPartial", events[0].Kind)
	}
	if events[0].Text != "မင်္ဂလာပါ" {
		t.Errorf("text = %q", events[0].Text)
	}
}

func TestDecodeTurnComplete(t *testing.T) {
	s := newTestSession()
	events := s.decode([]byte(`{"serverContent":{"turnComplete":true}}`))
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Kind != EventTurnComplete {
		t.Errorf("kind = %v, want EventTurnComplete", events[0].Kind)
	}
}

func TestDecodePartialThenTurnCompleteInOneMessage(t *testing.T) {
	s := newTestSession()
	events := s.decode([]byte(`{"serverContent":{"inputTranscription":{"text":"hello "},"turnComplete":true}}`))
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != EventPartial || events[1].Kind != EventTurnComplete {
		t.Errorf("order = %v, %v; want partial then turn complete", events[0].Kind, events[1].Kind)
	}
}

func TestDecodeSetupCompleteUnblocksWriter(t *testing.T) {
	s := newTestSession()
	events := s.decode([]byte(`{"setupComplete":{}}`))
	if len(events) != 0 {
		t.Fatalf("setupComplete should produce no events, got %d", len(events))
	}
	select {
	case <-s.ready:
	default:
		t.Error("ready channel should be closed after setupComplete")
	}
	// A second setupComplete must not panic on the closed channel.
	s.decode([]byte(`{"setupComplete":{}}`))
}

func TestDecodeErrorMessage(t *testing.T) {
	s := newTestSession()
	events := s.decode([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Kind != EventError {
		t.Errorf("kind = %v, want EventError", events[0].Kind)
	}
	if events[0].Err == nil {
		t.Error("error event should carry an error")
	}
}

func TestDecodeGoAway(t *testing.T) {
	s := newTestSession()
	events := s.decode([]byte(`{"goAway":{"timeLeft":"10s"}}`))
	if len(events) != 1 || events[0].Kind != EventClosed {
		t.Errorf("goAway should map to EventClosed, got %v", events)
	}
}

func TestDecodeGarbage(t *testing.T) {
	s := newTestSession()
	if events := s.decode([]byte("not json")); len(events) != 0 {
		t.Errorf("garbage should decode to no events, got %d", len(events))
	}
}

func TestSendAudioDropsWhenBufferFull(t *testing.T) {
	s := newTestSession()

	for i := 0; i < 4; i++ {
		if err := s.SendAudio([]byte{1, 2}); err != nil {
			t.Fatalf("SendAudio returned error: %v", err)
		}
	}

	// Buffer capacity is 2, so two frames must have been dropped.
	if got := s.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
}

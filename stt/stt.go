package stt

import (
	"context"
)

type EventKind int

const (
	// EventPartial carries a text fragment of the in-progress turn.
	EventPartial EventKind = iota
	// EventTurnComplete marks the server-declared end of a speech turn.
	EventTurnComplete
	// EventError carries a session-fatal error from the service.
	EventError
	// EventClosed marks an orderly end of the session.
	EventClosed
)

type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// LiveSession is one open streaming transcription session.
type LiveSession interface {
	// SendAudio forwards one encoded PCM frame. Fire and forget: frames
	// sent before the session is ready are buffered, and dropped with a
	// count once the buffer is full.
	SendAudio(pcm []byte) error
	// Events yields transcription events until the session ends, then
	// the channel is closed.
	Events() <-chan Event
	// Dropped reports frames discarded by the outbound buffer.
	Dropped() int64
	// Stop tears the session down. Idempotent.
	Stop() error
}

// LiveTranscriptionService opens streaming sessions against a remote
// recognizer.
type LiveTranscriptionService interface {
	Start(ctx context.Context) (LiveSession, error)
}

package app

import (
	"github.com/sawnaing/saye/session"
)

// sessionStartedMsg is sent when the controller reaches Listening.
type sessionStartedMsg struct {
	events <-chan session.Event
}

// sessionStartErrorMsg is sent when start fails (microphone or session).
type sessionStartErrorMsg struct {
	err error
}

// sessionEventMsg wraps one controller event.
type sessionEventMsg struct {
	event session.Event
}

// sessionEndedMsg is sent when the controller's event stream closes.
type sessionEndedMsg struct{}

// sessionStoppedMsg is sent after an explicit stop completes.
type sessionStoppedMsg struct{}

// copiedMsg reports the outcome of a clipboard write.
type copiedMsg struct {
	count int
	err   error
}

// exportedMsg reports the outcome of a document export.
type exportedMsg struct {
	path string
	err  error
}

// segmentSavedMsg reports the outcome of persisting a segment.
type segmentSavedMsg struct {
	err error
}

// noticeExpiredMsg clears a transient notice.
type noticeExpiredMsg struct{}

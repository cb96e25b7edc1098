// Package session owns the microphone and the live transcription session,
// and mediates the Idle → Connecting → Listening lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sawnaing/saye/snd"
	"github.com/sawnaing/saye/stt"
)

type State int

const (
	Idle State = iota
	Connecting
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// ErrNotIdle is returned when Start is called while a session is active.
var ErrNotIdle = errors.New("a session is already active")

// ErrStopped is returned when Stop lands while Start is still acquiring
// resources; the freshly acquired resources are released.
var ErrStopped = errors.New("session stopped before it opened")

type EventKind int

const (
	// Partial carries a transcript fragment for the current turn.
	Partial EventKind = iota
	// TurnComplete marks the end of a speech turn.
	TurnComplete
	// SessionError carries a session-fatal error; the caller should stop.
	SessionError
	// SessionClosed marks the end of the event stream.
	SessionClosed
	// AudioLevel carries the RMS level of the latest capture frame.
	AudioLevel
)

type Event struct {
	Kind  EventKind
	Text  string
	Err   error
	Level float32
}

// CaptureDevice is the microphone abstraction the controller drives.
type CaptureDevice interface {
	Frames() <-chan []float32
	Dropped() int64
	Close() error
}

// Controller holds the one active capture/session pair. State transitions
// happen under the mutex; event delivery is serialized by the consumer's
// single read loop.
type Controller struct {
	service     stt.LiveTranscriptionService
	openCapture func() (CaptureDevice, error)
	logger      *log.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	capture CaptureDevice
	sess    stt.LiveSession
}

func NewController(
	service stt.LiveTranscriptionService,
	openCapture func() (CaptureDevice, error),
	logger *log.Logger,
) *Controller {
	return &Controller{
		service:     service,
		openCapture: openCapture,
		logger:      logger,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dropped sums frames discarded on the capture side and the send side.
func (c *Controller) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if c.capture != nil {
		n += c.capture.Dropped()
	}
	if c.sess != nil {
		n += c.sess.Dropped()
	}
	return n
}

// Start acquires the microphone and opens a live session. Only valid from
// Idle. On success the returned channel yields events until the session
// ends, then closes.
func (c *Controller) Start(ctx context.Context) (<-chan Event, error) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return nil, ErrNotIdle
	}
	c.state = Connecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	capture, err := c.openCapture()
	if err != nil {
		c.abortStart(gen)
		return nil, fmt.Errorf("microphone access failed: %w", err)
	}

	sess, err := c.service.Start(ctx)
	if err != nil {
		if cerr := capture.Close(); cerr != nil {
			c.logger.Error("release capture", "error", cerr)
		}
		c.abortStart(gen)
		return nil, fmt.Errorf("could not open transcription session: %w", err)
	}

	// The lock was not held across the blocking opens. If a Stop landed
	// meanwhile the generation moved on: release what was just acquired
	// and stay Idle.
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		if cerr := capture.Close(); cerr != nil {
			c.logger.Error("release capture", "error", cerr)
		}
		if serr := sess.Stop(); serr != nil {
			c.logger.Error("close session", "error", serr)
		}
		return nil, ErrStopped
	}
	c.capture = capture
	c.sess = sess
	c.state = Listening
	c.mu.Unlock()

	// events has a single owner: it closes only after both the frame
	// pump and the event forwarder have exited.
	events := make(chan Event, 64)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.pumpFrames(capture, sess, events)
	}()
	go func() {
		defer wg.Done()
		c.forwardEvents(sess, events)
	}()
	go func() {
		wg.Wait()
		close(events)
	}()

	c.logger.Info("session", "state", Listening)
	return events, nil
}

// Stop releases every held resource. Each release is attempted regardless
// of earlier failures, and the controller always ends Idle. Safe to call
// from any state, any number of times.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.gen++
	capture := c.capture
	sess := c.sess
	c.capture = nil
	c.sess = nil
	c.state = Idle
	c.mu.Unlock()

	if capture != nil {
		if err := capture.Close(); err != nil {
			c.logger.Error("release capture", "error", err)
		}
	}
	if sess != nil {
		if err := sess.Stop(); err != nil {
			c.logger.Error("close session", "error", err)
		}
	}
	c.logger.Info("session", "state", Idle)
}

// abortStart returns to Idle after a failed acquisition, unless a Stop
// already moved the generation on and landed Idle itself.
func (c *Controller) abortStart(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.state = Idle
	}
	c.mu.Unlock()
}

// finish tears down after the session's event stream ends on its own
// (server close, goAway, fatal read error). A no-op if this session was
// already replaced or stopped.
func (c *Controller) finish(sess stt.LiveSession) {
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	c.gen++
	capture := c.capture
	c.capture = nil
	c.sess = nil
	c.state = Idle
	c.mu.Unlock()

	if capture != nil {
		if err := capture.Close(); err != nil {
			c.logger.Error("release capture", "error", err)
		}
	}
	if err := sess.Stop(); err != nil {
		c.logger.Error("close session", "error", err)
	}
	c.logger.Info("session", "state", Idle)
}

// pumpFrames encodes capture frames and forwards them to the session.
// Sends are fire-and-forget; the session buffers or drops internally.
// Exits when the capture channel closes.
func (c *Controller) pumpFrames(capture CaptureDevice, sess stt.LiveSession, events chan<- Event) {
	for frame := range capture.Frames() {
		select {
		case events <- Event{Kind: AudioLevel, Level: snd.Level(frame)}:
		default:
		}
		if err := sess.SendAudio(snd.EncodePCM16(frame)); err != nil {
			c.logger.Error("send frame", "error", err)
		}
	}
}

// forwardEvents republishes session events. When the stream ends it
// releases the controller's resources so the capture device never
// outlives the session.
func (c *Controller) forwardEvents(sess stt.LiveSession, events chan<- Event) {
	defer c.finish(sess)
	for ev := range sess.Events() {
		switch ev.Kind {
		case stt.EventPartial:
			events <- Event{Kind: Partial, Text: ev.Text}
		case stt.EventTurnComplete:
			events <- Event{Kind: TurnComplete}
		case stt.EventError:
			events <- Event{Kind: SessionError, Err: ev.Err}
		case stt.EventClosed:
			events <- Event{Kind: SessionClosed}
		}
	}
}

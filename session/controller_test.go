package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sawnaing/saye/stt"
)

type fakeCapture struct {
	frames chan []float32
	mu     sync.Mutex
	once   sync.Once
	closed bool
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{frames: make(chan []float32, 4)}
}

func (f *fakeCapture) Frames() <-chan []float32 { return f.frames }
func (f *fakeCapture) Dropped() int64           { return 0 }
func (f *fakeCapture) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.frames)
	})
	return nil
}

func (f *fakeCapture) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSession struct {
	mu      sync.Mutex
	sent    [][]byte
	events  chan stt.Event
	once    sync.Once
	stopped bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan stt.Event, 8)}
}

func (f *fakeSession) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pcm)
	return nil
}

func (f *fakeSession) Events() <-chan stt.Event { return f.events }
func (f *fakeSession) Dropped() int64           { return 0 }
func (f *fakeSession) Stop() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
		close(f.events)
	})
	return nil
}

func (f *fakeSession) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSession) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// endStream simulates the server ending the session without Stop being
// called locally.
func (f *fakeSession) endStream() {
	f.once.Do(func() { close(f.events) })
}

type fakeService struct {
	sess   *fakeSession
	err    error
	starts int
	block  chan struct{}
	queue  []*fakeSession
}

func (f *fakeService) Start(ctx context.Context) (stt.LiveSession, error) {
	f.starts++
	if f.err != nil {
		return nil, f.err
	}
	if f.block != nil {
		<-f.block
	}
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		return next, nil
	}
	return f.sess, nil
}

func newTestController(svc *fakeService, mic *fakeCapture, capErr error) *Controller {
	return NewController(
		svc,
		func() (CaptureDevice, error) {
			if capErr != nil {
				return nil, capErr
			}
			return mic, nil
		},
		log.New(io.Discard),
	)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartFromIdle(t *testing.T) {
	svc := &fakeService{sess: newFakeSession()}
	c := newTestController(svc, newFakeCapture(), nil)

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if events == nil {
		t.Fatal("expected event channel")
	}
	if got := c.State(); got != Listening {
		t.Errorf("state = %v, want Listening", got)
	}
}

func TestStartRejectedWhileActive(t *testing.T) {
	svc := &fakeService{sess: newFakeSession()}
	c := newTestController(svc, newFakeCapture(), nil)

	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if _, err := c.Start(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Errorf("second Start err = %v, want ErrNotIdle", err)
	}
	if svc.starts != 1 {
		t.Errorf("service started %d times, want 1", svc.starts)
	}
}

func TestStartCaptureFailureForcesIdle(t *testing.T) {
	svc := &fakeService{sess: newFakeSession()}
	c := newTestController(svc, nil, errors.New("permission denied"))

	_, err := c.Start(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := c.State(); got != Idle {
		t.Errorf("state = %v, want Idle", got)
	}
	if svc.starts != 0 {
		t.Error("session should not open when the microphone fails")
	}
}

func TestStartSessionFailureReleasesCapture(t *testing.T) {
	mic := newFakeCapture()
	svc := &fakeService{err: errors.New("connect refused")}
	c := newTestController(svc, mic, nil)

	if _, err := c.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !mic.isClosed() {
		t.Error("capture should be released when the session fails to open")
	}
	if got := c.State(); got != Idle {
		t.Errorf("state = %v, want Idle", got)
	}
}

func TestFramesAreEncodedAndForwarded(t *testing.T) {
	sess := newFakeSession()
	mic := newFakeCapture()
	c := newTestController(&fakeService{sess: sess}, mic, nil)

	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	mic.frames <- []float32{0, 1.0, -1.0}
	waitFor(t, "frame delivery", func() bool { return sess.sentCount() == 1 })

	sess.mu.Lock()
	pcm := sess.sent[0]
	sess.mu.Unlock()
	if len(pcm) != 6 {
		t.Errorf("encoded frame = %d bytes, want 6", len(pcm))
	}
}

func TestRemoteEventsAreRepublished(t *testing.T) {
	sess := newFakeSession()
	c := newTestController(&fakeService{sess: sess}, newFakeCapture(), nil)

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	sess.events <- stt.Event{Kind: stt.EventPartial, Text: "hello"}
	sess.events <- stt.Event{Kind: stt.EventTurnComplete}

	var got []Event
	for ev := range events {
		if ev.Kind == AudioLevel {
			continue
		}
		got = append(got, ev)
		if len(got) == 2 {
			break
		}
	}
	if got[0].Kind != Partial || got[0].Text != "hello" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Kind != TurnComplete {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestErrorEventIsRepublished(t *testing.T) {
	sess := newFakeSession()
	c := newTestController(&fakeService{sess: sess}, newFakeCapture(), nil)

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	sess.events <- stt.Event{Kind: stt.EventError, Err: errors.New("service blew up")}

	for ev := range events {
		if ev.Kind == AudioLevel {
			continue
		}
		if ev.Kind != SessionError {
			t.Errorf("kind = %v, want SessionError", ev.Kind)
		}
		if ev.Err == nil {
			t.Error("error event should carry an error")
		}
		break
	}
}

func TestStopReleasesEverything(t *testing.T) {
	sess := newFakeSession()
	mic := newFakeCapture()
	c := newTestController(&fakeService{sess: sess}, mic, nil)

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	c.Stop()
	c.Stop() // idempotent

	if !mic.isClosed() {
		t.Error("capture not released")
	}
	if !sess.isStopped() {
		t.Error("session not stopped")
	}
	if got := c.State(); got != Idle {
		t.Errorf("state = %v, want Idle", got)
	}

	waitFor(t, "event channel close", func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	})
}

func TestServerCloseReleasesEverything(t *testing.T) {
	sess := newFakeSession()
	mic := newFakeCapture()
	svc := &fakeService{sess: sess}
	c := newTestController(svc, mic, nil)

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sess.endStream()

	waitFor(t, "idle after server close", func() bool { return c.State() == Idle })
	if !mic.isClosed() {
		t.Error("capture device still open after server close")
	}
	waitFor(t, "event channel close", func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	})
}

func TestRestartAfterServerClose(t *testing.T) {
	first := newFakeSession()
	second := newFakeSession()
	svc := &fakeService{queue: []*fakeSession{first, second}}
	c := newTestController(svc, newFakeCapture(), nil)

	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	first.endStream()
	waitFor(t, "idle after server close", func() bool { return c.State() == Idle })

	mic2 := newFakeCapture()
	c.openCapture = func() (CaptureDevice, error) { return mic2, nil }
	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart after server close: %v", err)
	}
	defer c.Stop()

	if got := c.State(); got != Listening {
		t.Errorf("state = %v, want Listening", got)
	}
	if svc.starts != 2 {
		t.Errorf("service started %d times, want 2", svc.starts)
	}
}

func TestFramePumpSurvivesServerClose(t *testing.T) {
	sess := newFakeSession()
	mic := &fakeCapture{frames: make(chan []float32, 64)}
	for i := 0; i < 32; i++ {
		mic.frames <- []float32{0.25, -0.25}
	}
	c := newTestController(&fakeService{sess: sess}, mic, nil)

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// End the remote stream while the frame pump still has a backlog.
	// The event channel must not close under the pump.
	sess.endStream()

	for range events {
	}
	if got := c.State(); got != Idle {
		t.Errorf("state = %v, want Idle", got)
	}
}

func TestStopDuringConnectReleasesResources(t *testing.T) {
	sess := newFakeSession()
	mic := newFakeCapture()
	svc := &fakeService{sess: sess, block: make(chan struct{})}
	c := newTestController(svc, mic, nil)

	result := make(chan error, 1)
	go func() {
		_, err := c.Start(context.Background())
		result <- err
	}()

	waitFor(t, "connecting state", func() bool { return c.State() == Connecting })
	c.Stop()
	close(svc.block)

	err := <-result
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Start err = %v, want ErrStopped", err)
	}
	if got := c.State(); got != Idle {
		t.Errorf("state = %v, want Idle", got)
	}
	if !mic.isClosed() {
		t.Error("capture device left open")
	}
	if !sess.isStopped() {
		t.Error("remote session left open")
	}
}

func TestStopFromIdleIsNoop(t *testing.T) {
	c := newTestController(&fakeService{sess: newFakeSession()}, newFakeCapture(), nil)
	c.Stop()
	if got := c.State(); got != Idle {
		t.Errorf("state = %v, want Idle", got)
	}
}

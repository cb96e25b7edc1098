package snd

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

const (
	// SampleRate is the capture rate the recognizer expects.
	SampleRate = 16000
	// FrameSize is samples per capture callback, 100ms of mono audio.
	FrameSize = 1600
)

// Capture owns the microphone stream. Frames arrive on a bounded channel;
// when the consumer falls behind, frames are dropped and counted rather
// than buffered without bound.
type Capture struct {
	stream  *portaudio.Stream
	frames  chan []float32
	dropped atomic.Int64
	logger  *log.Logger
	once    sync.Once
}

// OpenCapture initializes portaudio and starts a mono float32 input stream
// on the default device.
func OpenCapture(logger *log.Logger) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	c := &Capture{
		frames: make(chan []float32, 16),
		logger: logger,
	}

	stream, err := portaudio.OpenDefaultStream(
		1, 0, float64(SampleRate), FrameSize, c.onFrame,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start microphone: %w", err)
	}

	logger.Info("mic", "rate", SampleRate, "frame", FrameSize)
	return c, nil
}

// onFrame runs on the portaudio callback thread. It must not block.
func (c *Capture) onFrame(in []float32) {
	frame := make([]float32, len(in))
	copy(frame, in)
	select {
	case c.frames <- frame:
	default:
		c.dropped.Add(1)
	}
}

// Frames returns the bounded frame channel. It is closed by Close.
func (c *Capture) Frames() <-chan []float32 {
	return c.frames
}

// Dropped reports how many frames were discarded because the consumer
// was behind.
func (c *Capture) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops and releases the stream. Safe to call more than once; each
// release step is attempted even if an earlier one fails.
func (c *Capture) Close() error {
	c.once.Do(func() {
		if err := c.stream.Stop(); err != nil {
			c.logger.Error("stop mic stream", "error", err)
		}
		if err := c.stream.Close(); err != nil {
			c.logger.Error("close mic stream", "error", err)
		}
		if err := portaudio.Terminate(); err != nil {
			c.logger.Error("terminate portaudio", "error", err)
		}
		close(c.frames)
	})
	return nil
}

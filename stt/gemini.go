package stt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	geminiHost = "generativelanguage.googleapis.com"
	geminiPath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	pcmMimeType  = "audio/pcm;rate=16000"
	closeTimeout = 5 * time.Second

	// audioBufferSize bounds frames queued toward the socket. Connection
	// setup and network stalls drop frames past this point.
	audioBufferSize = 100
)

// GeminiClient opens live transcription sessions against the Gemini
// bidirectional streaming API.
type GeminiClient struct {
	apiKey            string
	model             string
	systemInstruction string
	logger            *log.Logger
}

func NewGeminiClient(
	apiKey string,
	model string,
	systemInstruction string,
	logger *log.Logger,
) *GeminiClient {
	return &GeminiClient{
		apiKey:            apiKey,
		model:             model,
		systemInstruction: systemInstruction,
		logger:            logger,
	}
}

func (c *GeminiClient) Start(ctx context.Context) (LiveSession, error) {
	u := url.URL{
		Scheme:   "wss",
		Host:     geminiHost,
		Path:     geminiPath,
		RawQuery: "key=" + url.QueryEscape(c.apiKey),
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial live session: %w", err)
	}

	setup := setupMessage{
		Setup: setupPayload{
			Model: c.model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			SystemInstruction: &content{
				Parts: []part{{Text: c.systemInstruction}},
			},
			InputAudioTranscription: &struct{}{},
		},
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send session setup: %w", err)
	}

	s := &GeminiSession{
		conn:   conn,
		logger: c.logger,
		events: make(chan Event, 32),
		audio:  make(chan []byte, audioBufferSize),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	go s.readLoop()
	go s.writeLoop()

	return s, nil
}

// GeminiSession is one open bidirectional stream. Audio frames pass
// through a bounded buffer so capture cadence never blocks on the
// network; events are decoded off the socket onto a single channel.
type GeminiSession struct {
	conn    *websocket.Conn
	logger  *log.Logger
	events  chan Event
	audio   chan []byte
	ready   chan struct{}
	done    chan struct{}
	dropped atomic.Int64

	readyOnce sync.Once
	stopOnce  sync.Once
}

func (s *GeminiSession) SendAudio(pcm []byte) error {
	select {
	case s.audio <- pcm:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *GeminiSession) Events() <-chan Event {
	return s.events
}

// Dropped reports frames discarded because the outbound buffer was full.
func (s *GeminiSession) Dropped() int64 {
	return s.dropped.Load()
}

func (s *GeminiSession) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		deadline := time.Now().Add(closeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			s.logger.Debug("send close frame", "error", err)
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("close socket", "error", err)
		}
	})
	return nil
}

// writeLoop forwards buffered audio once the server has acknowledged
// setup. Frames arriving before then stay in the buffer.
func (s *GeminiSession) writeLoop() {
	select {
	case <-s.ready:
	case <-s.done:
		return
	}

	for {
		select {
		case <-s.done:
			return
		case pcm := <-s.audio:
			msg := realtimeInputMessage{
				RealtimeInput: realtimeInput{
					Audio: audioBlob{
						Data:     base64.StdEncoding.EncodeToString(pcm),
						MimeType: pcmMimeType,
					},
				},
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Error("write audio frame", "error", err)
				return
			}
		}
	}
}

func (s *GeminiSession) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				s.emit(Event{Kind: EventClosed})
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.emit(Event{Kind: EventClosed})
				} else {
					s.emit(Event{Kind: EventError, Err: fmt.Errorf("session read: %w", err)})
				}
			}
			return
		}

		for _, ev := range s.decode(data) {
			s.emit(ev)
		}
	}
}

func (s *GeminiSession) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// decode maps one server message to zero or more events. setupComplete
// unblocks the writer instead of producing an event.
func (s *GeminiSession) decode(data []byte) []Event {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("undecodable server message", "error", err)
		return nil
	}

	if msg.SetupComplete != nil {
		s.readyOnce.Do(func() { close(s.ready) })
		s.logger.Info("open", "kind", "gemini-live")
		return nil
	}

	if msg.Error != nil {
		return []Event{{
			Kind: EventError,
			Err:  fmt.Errorf("service error %d: %s", msg.Error.Code, msg.Error.Message),
		}}
	}

	if msg.GoAway != nil {
		s.logger.Info("go away", "timeLeft", msg.GoAway.TimeLeft)
		return []Event{{Kind: EventClosed}}
	}

	var events []Event
	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			s.logger.Info("hear", "txt", sc.InputTranscription.Text)
			events = append(events, Event{
				Kind: EventPartial,
				Text: sc.InputTranscription.Text,
			})
		}
		if sc.TurnComplete {
			events = append(events, Event{Kind: EventTurnComplete})
		}
	}
	return events
}

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                   string           `json:"model"`
	GenerationConfig        generationConfig `json:"generationConfig"`
	SystemInstruction       *content         `json:"systemInstruction,omitempty"`
	InputAudioTranscription *struct{}        `json:"inputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio audioBlob `json:"audio"`
}

type audioBlob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete"`
	ServerContent *serverContent `json:"serverContent"`
	GoAway        *goAway        `json:"goAway"`
	Error         *serverError   `json:"error"`
}

type serverContent struct {
	InputTranscription *transcriptionText `json:"inputTranscription"`
	TurnComplete       bool               `json:"turnComplete"`
}

type transcriptionText struct {
	Text string `json:"text"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft"`
}

type serverError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

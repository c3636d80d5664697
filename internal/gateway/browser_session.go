package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/audio"
	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/session"
	"github.com/lexiqai/transcript-gateway/internal/stt"
)

const (
	writeTimeout = 10 * time.Second

	// Sample rate assumed until the page reports its capture rate
	defaultCaptureRate = 48000
)

var errSessionClosed = errors.New("browser session closed")

// BrowserSession holds the state of a single page connection. It renders
// the controller's state to the page and provides the page's clipboard and
// file download as capabilities.
type BrowserSession struct {
	id   string
	conn *websocket.Conn

	controller *session.Controller
	source     stt.Source

	// Capture state
	mu         sync.RWMutex
	capturing  bool
	sampleRate int

	// Audio from the page, processed in order by processIncomingAudio
	audioIn chan []byte

	// Audio held while the recognizer connects
	audioBuffer *audio.RingBuffer

	// Voice Activity Detection
	vadDetector *audio.VADDetector

	// Frames for the page, written by writeLoop
	outgoing chan interface{}

	// Control frames, run in order by processActions
	actions chan ClientMessage

	config        *config.Config
	correlationID string
	metrics       *observability.Metrics
	logger        zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func newBrowserSession(id string, conn *websocket.Conn, source stt.Source, cfg *config.Config, correlationID string, logger zerolog.Logger, metrics *observability.Metrics) *BrowserSession {
	vadDetector := audio.NewVADDetector(&audio.VADConfig{
		EnergyThreshold: cfg.VADEnergyThreshold,
		SilenceFrames:   cfg.VADSilenceFrames,
		FrameSize:       audio.FrameSize(cfg.STTSampleRate),
	})

	return &BrowserSession{
		id:            id,
		conn:          conn,
		source:        source,
		sampleRate:    defaultCaptureRate,
		audioIn:       make(chan []byte, 100),
		audioBuffer:   audio.NewRingBuffer(cfg.AudioBufferSize),
		vadDetector:   vadDetector,
		outgoing:      make(chan interface{}, 64),
		actions:       make(chan ClientMessage, 16),
		config:        cfg,
		correlationID: correlationID,
		metrics:       metrics,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Capturing reports whether audio from the page is being forwarded
func (s *BrowserSession) Capturing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capturing
}

// ID returns the session ID
func (s *BrowserSession) ID() string {
	return s.id
}

// Controller returns the transcript controller of this session
func (s *BrowserSession) Controller() *session.Controller {
	return s.controller
}

// Publish sends the state to the page. Audio is captured exactly while
// the controller is listening.
func (s *BrowserSession) Publish(state session.State) {
	s.mu.Lock()
	s.capturing = state.Listening
	s.mu.Unlock()

	s.send(stateMessage{Type: TypeState, State: state})
}

// Notify sends a notice to the page
func (s *BrowserSession) Notify(notice session.Notice) {
	s.send(noticeMessage{Type: TypeNotice, Notice: notice})
}

// WriteText asks the page to put text on its clipboard
func (s *BrowserSession) WriteText(ctx context.Context, text string) error {
	return s.sendContext(ctx, clipboardMessage{Type: TypeClipboard, Text: text})
}

// Export asks the page to save text as a file
func (s *BrowserSession) Export(ctx context.Context, filename, text string) error {
	return s.sendContext(ctx, downloadMessage{Type: TypeDownload, Filename: filename, Text: text})
}

func (s *BrowserSession) send(msg interface{}) {
	if err := s.sendContext(context.Background(), msg); err != nil {
		s.logger.Debug().Err(err).Msg("Dropping frame for closed session")
	}
}

func (s *BrowserSession) sendContext(ctx context.Context, msg interface{}) error {
	select {
	case s.outgoing <- msg:
		return nil
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeLoop is the only writer on the websocket
func (s *BrowserSession) writeLoop() {
	for {
		select {
		case msg := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Warn().Err(err).Msg("WebSocket write error")
				s.metrics.RecordError("ws_write_error", "gateway")
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// processIncomingMessages reads frames from the page until the connection
// closes
func (s *BrowserSession) processIncomingMessages() {
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleAudioFrame(message)

		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				s.logger.Error().Err(err).Msg("Failed to parse client message")
				s.Notify(session.Notice{Level: session.LevelError, Message: "Malformed message."})
				continue
			}
			select {
			case s.actions <- msg:
			case <-s.done:
				return
			}
		}
	}
}

// handleAudioFrame queues a chunk of captured audio
func (s *BrowserSession) handleAudioFrame(chunk []byte) {
	s.metrics.RecordAudioBytes("received", int64(len(chunk)))

	select {
	case s.audioIn <- chunk:
	default:
		s.logger.Warn().Msg("audioIn channel full, dropping audio chunk")
		s.metrics.RecordAudioBytes("dropped", int64(len(chunk)))
	}
}

// processActions runs control frames against the controller in order
func (s *BrowserSession) processActions(ctx context.Context) {
	for {
		select {
		case msg := <-s.actions:
			s.handleAction(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (s *BrowserSession) handleAction(ctx context.Context, msg ClientMessage) {
	var err error

	switch msg.Action {
	case ActionStart:
		s.mu.Lock()
		if msg.SampleRate > 0 {
			s.sampleRate = msg.SampleRate
		}
		s.mu.Unlock()
		err = s.controller.Start(ctx)
	case ActionStop:
		err = s.controller.Stop(ctx)
	case ActionClear:
		err = s.controller.Clear(ctx)
	case ActionCopy:
		err = s.controller.Copy(ctx)
	case ActionDownload:
		err = s.controller.Download(ctx)
	default:
		s.logger.Warn().Str("action", msg.Action).Msg("Unknown client action")
		s.Notify(session.Notice{Level: session.LevelError, Message: "Unknown action: " + msg.Action})
		return
	}

	if err != nil {
		s.logger.Debug().Err(err).Str("action", msg.Action).Msg("Action did not complete")
	}
}

// processIncomingAudio resamples captured audio, tracks voice activity and
// forwards it to the recognizer
func (s *BrowserSession) processIncomingAudio(ctx context.Context) {
	for {
		select {
		case chunk := <-s.audioIn:
			s.handleAudio(chunk)
		case <-ctx.Done():
			return
		}
	}
}

func (s *BrowserSession) handleAudio(chunk []byte) {
	s.mu.RLock()
	capturing := s.capturing
	rate := s.sampleRate
	s.mu.RUnlock()

	if !capturing || s.source == nil {
		if s.vadDetector.IsSpeaking() {
			s.vadDetector.Reset()
			s.send(activityMessage{Type: TypeActivity, Speaking: false})
		}
		s.audioBuffer.Clear()
		s.metrics.RecordAudioBytes("dropped", int64(len(chunk)))
		return
	}

	pcm, err := audio.ConvertSampleRate(chunk, rate, s.config.STTSampleRate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to convert audio")
		s.metrics.RecordError("audio_convert_error", "gateway")
		return
	}

	if samples, err := audio.DecodePCM16(pcm); err == nil {
		if speaking, changed := s.vadDetector.ProcessSamples(samples); changed {
			s.send(activityMessage{Type: TypeActivity, Speaking: speaking})
		}
	}

	if !s.source.IsActive() {
		if s.audioBuffer.Space() < len(pcm) {
			s.logger.Warn().Int("bytes", len(pcm)).Msg("Audio buffer full while recognizer reconnects, dropping audio")
		}
		if written := s.audioBuffer.Write(pcm); written < len(pcm) {
			s.metrics.RecordAudioBytes("dropped", int64(len(pcm)-written))
		}
		return
	}

	if !s.audioBuffer.IsEmpty() {
		s.forward(s.audioBuffer.Drain())
	}
	s.forward(pcm)
}

func (s *BrowserSession) forward(pcm []byte) {
	if err := s.source.SendAudio(pcm); err != nil {
		if errors.Is(err, stt.ErrNotActive) {
			s.audioBuffer.Write(pcm)
			return
		}
		s.logger.Error().Err(err).Msg("Error sending audio to recognizer")
		s.metrics.RecordError("stt_send_error", "gateway")
		s.metrics.RecordAudioBytes("dropped", int64(len(pcm)))
		return
	}
	s.metrics.RecordAudioBytes("forwarded", int64(len(pcm)))
}

// close ends the session; safe to call more than once
func (s *BrowserSession) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

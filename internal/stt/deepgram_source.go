package stt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/resilience"
	"github.com/lexiqai/transcript-gateway/internal/transcript"
)

var sdkInit sync.Once

// messageCallbackHandler implements the LiveMessageCallback interface
// It embeds the default handler and overrides only the methods we need to customize
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	errorHandler func(*msginterfaces.ErrorResponse) error
}

// Message forwards transcription results to the source
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// Error forwards backend errors to the source
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if m.errorHandler != nil {
		return m.errorHandler(errorResponse)
	}
	return m.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramSource implements Source using Deepgram's live streaming API
type DeepgramSource struct {
	config         *config.Config
	logger         zerolog.Logger
	client         *listenClient.WSCallback
	results        chan transcript.Event
	errors         chan *SourceError
	mu             sync.RWMutex
	isActive       bool
	stopping       bool
	ctx            context.Context
	cancel         context.CancelFunc
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramSource creates a new Deepgram streaming source
func NewDeepgramSource(cfg *config.Config, logger zerolog.Logger) *DeepgramSource {
	sdkInit.Do(listenClient.InitWithDefault)

	ctx, cancel := context.WithCancel(context.Background())

	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	circuitBreaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(to))
		logger.Warn().
			Str("service", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	})

	return &DeepgramSource{
		config:         cfg,
		logger:         logger.With().Str("component", "deepgram").Logger(),
		results:        make(chan transcript.Event, 100),
		errors:         make(chan *SourceError, 10),
		ctx:            ctx,
		cancel:         cancel,
		circuitBreaker: circuitBreaker,
	}
}

// liveOptions returns the Deepgram options for browser PCM capture
func (d *DeepgramSource) liveOptions() *interfaces.LiveTranscriptionOptions {
	return &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     d.config.STTSampleRate,
	}
}

// Start opens a Deepgram streaming session, retrying transient failures
func (d *DeepgramSource) Start(ctx context.Context) error {
	d.mu.Lock()
	d.stopping = false
	d.mu.Unlock()

	retryConfig := &resilience.RetryConfig{
		MaxAttempts:       d.config.RetryMaxAttempts,
		InitialBackoff:    time.Duration(d.config.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}

	err := resilience.Retry(ctx, d.connect, retryConfig, resilience.IsRetryableNetworkError)
	d.circuitBreaker.RecordResult(err == nil)
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		return fmt.Errorf("failed to start Deepgram stream: %w", err)
	}
	return nil
}

// connect dials Deepgram once. The lock is not held while dialing since
// the SDK may invoke callbacks during the handshake.
func (d *DeepgramSource) connect() error {
	d.mu.RLock()
	active := d.isActive
	d.mu.RUnlock()
	if active {
		return nil
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                d.handleDeepgramMessage,
		errorHandler:           d.handleDeepgramError,
	}

	cOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}

	client, err := listenClient.NewWSUsingCallback(d.ctx, d.config.DeepgramAPIKey, cOptions, d.liveOptions(), callback)
	if err != nil {
		return fmt.Errorf("failed to create Deepgram client: %w", err)
	}

	if !client.Connect() {
		return fmt.Errorf("failed to connect to Deepgram: connection refused")
	}

	d.mu.Lock()
	d.client = client
	d.isActive = true
	d.mu.Unlock()

	d.logger.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Int("sample_rate", d.config.STTSampleRate).
		Msg("Deepgram streaming session started")
	return nil
}

// handleDeepgramMessage converts a Deepgram message into a recognition event
func (d *DeepgramSource) handleDeepgramMessage(msg *msginterfaces.MessageResponse) {
	ev, ok := eventFromMessage(msg)
	if !ok {
		return
	}

	select {
	case d.results <- ev:
		if len(ev.Results) > 0 && ev.Results[0].IsFinal {
			d.logger.Debug().Str("text", ev.Results[0].Text).Msg("Deepgram final transcription")
		}
	default:
		d.logger.Warn().Msg("Result channel full, dropping recognition event")
	}
}

// eventFromMessage maps one Deepgram "Results" message onto an Event.
// Each message replaces the previous hypothesis for the current utterance,
// so the event carries exactly one result.
func eventFromMessage(msg *msginterfaces.MessageResponse) (transcript.Event, bool) {
	if msg == nil {
		return transcript.Event{}, false
	}
	if msg.Type != "Results" && msg.Type != "" {
		return transcript.Event{}, false
	}
	if len(msg.Channel.Alternatives) == 0 {
		return transcript.Event{}, false
	}

	return transcript.Event{
		Results: []transcript.Result{{
			IsFinal: msg.IsFinal,
			Text:    msg.Channel.Alternatives[0].Transcript,
		}},
	}, true
}

// handleDeepgramError reports the error and reconnects in the background
func (d *DeepgramSource) handleDeepgramError(errorResponse *msginterfaces.ErrorResponse) error {
	d.logger.Error().
		Str("code", errorResponse.ErrCode).
		Str("message", errorResponse.ErrMsg).
		Msg("Deepgram error")

	d.circuitBreaker.RecordResult(false)
	observability.IncrementCircuitBreakerFailures(d.circuitBreaker.Name())

	state, requests, failures, rate := d.circuitBreaker.GetStats()
	d.logger.Debug().
		Str("breaker", d.circuitBreaker.Name()).
		Str("state", state.String()).
		Int64("requests", requests).
		Int64("failures", failures).
		Float64("failure_rate", rate).
		Msg("Circuit breaker stats")

	d.report(&SourceError{
		Code:    CodeBackend,
		Message: fmt.Sprintf("%s %s", errorResponse.ErrCode, errorResponse.ErrMsg),
	})

	select {
	case <-d.ctx.Done():
		return nil
	default:
	}

	d.mu.Lock()
	d.isActive = false
	stopping := d.stopping
	d.mu.Unlock()

	if !stopping {
		go d.attemptReconnect()
	}
	return nil
}

func (d *DeepgramSource) report(err *SourceError) {
	select {
	case d.errors <- err:
	default:
		d.logger.Warn().Str("code", err.Code).Msg("Error channel full, dropping source error")
	}
}

// SendAudio sends a PCM chunk to Deepgram
func (d *DeepgramSource) SendAudio(audioData []byte) error {
	d.mu.RLock()
	active := d.isActive
	client := d.client
	d.mu.RUnlock()

	if !active || client == nil {
		return ErrNotActive
	}

	err := d.circuitBreaker.Call(func() error {
		if _, err := client.Write(audioData); err != nil {
			return fmt.Errorf("failed to send audio to Deepgram: %w", err)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	observability.IncrementCircuitBreakerFailures("deepgram")
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return err
	}

	d.mu.Lock()
	d.isActive = false
	d.mu.Unlock()
	go d.attemptReconnect()
	return err
}

// attemptReconnect re-opens the stream; when it gives up the stream is
// reported as fatally lost.
func (d *DeepgramSource) attemptReconnect() {
	select {
	case <-d.ctx.Done():
		return
	default:
	}

	d.mu.RLock()
	skip := d.isActive || d.stopping
	d.mu.RUnlock()
	if skip {
		return
	}

	reconnectConfig := &resilience.ReconnectConfig{
		MaxAttempts: d.config.ReconnectMaxAttempts,
		Backoff:     time.Duration(d.config.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}

	err := resilience.Reconnect(d.ctx, d.connect, reconnectConfig, d.logger)
	if err == nil {
		return
	}
	if d.ctx.Err() != nil {
		return
	}

	d.logger.Error().Err(err).Msg("Failed to reconnect Deepgram stream")
	d.report(&SourceError{
		Code:    CodeReconnect,
		Message: "lost connection to speech recognition",
		Fatal:   true,
		Err:     err,
	})
}

// Results returns the recognition event channel
func (d *DeepgramSource) Results() <-chan transcript.Event {
	return d.results
}

// Errors returns the asynchronous error channel
func (d *DeepgramSource) Errors() <-chan *SourceError {
	return d.errors
}

// Stop finishes the Deepgram streaming session
func (d *DeepgramSource) Stop() error {
	d.mu.Lock()
	d.stopping = true
	client := d.client
	wasActive := d.isActive
	d.isActive = false
	d.client = nil
	d.mu.Unlock()

	if !wasActive || client == nil {
		return nil
	}

	client.Finish()
	d.logger.Info().Msg("Deepgram streaming session stopped")
	return nil
}

// Close stops the source and cancels pending reconnection attempts
func (d *DeepgramSource) Close() error {
	d.cancel()
	return d.Stop()
}

// IsActive returns whether the stream is currently open
func (d *DeepgramSource) IsActive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isActive
}

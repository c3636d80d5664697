package stt

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lexiqai/transcript-gateway/internal/transcript"
)

//go:embed mock_script.yaml
var defaultScript []byte

// Script is a recorded sequence of recognition events
type Script struct {
	Loop  bool         `yaml:"loop"`
	Steps []ScriptStep `yaml:"steps"`
}

// ScriptStep emits one event, or one error, after a delay
type ScriptStep struct {
	After   time.Duration `yaml:"after"`
	Final   []string      `yaml:"final"`
	Interim []string      `yaml:"interim"`
	Error   *ScriptError  `yaml:"error"`
}

// ScriptError describes a scripted source error
type ScriptError struct {
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
	Fatal   bool   `yaml:"fatal"`
}

// Event returns the recognition event for this step. Final results come
// before interim ones, as recognizers report settled text first.
func (s ScriptStep) Event() transcript.Event {
	ev := transcript.Event{}
	for _, text := range s.Final {
		ev.Results = append(ev.Results, transcript.Result{IsFinal: true, Text: text})
	}
	for _, text := range s.Interim {
		ev.Results = append(ev.Results, transcript.Result{Text: text})
	}
	return ev
}

// ParseScript decodes a YAML replay script
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse mock script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse mock script: no steps")
	}
	return &script, nil
}

// LoadScript reads a replay script from path, or the built-in script when
// path is empty.
func LoadScript(path string) (*Script, error) {
	if path == "" {
		return ParseScript(defaultScript)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mock script: %w", err)
	}
	return ParseScript(data)
}

// MockSource replays a Script instead of recognizing audio. Audio sent to
// it is counted and discarded.
type MockSource struct {
	script  *Script
	logger  zerolog.Logger
	results chan transcript.Event
	errors  chan *SourceError

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	audioBytes atomic.Int64
}

// NewMockSource creates a source replaying script
func NewMockSource(script *Script, logger zerolog.Logger) *MockSource {
	return &MockSource{
		script:  script,
		logger:  logger.With().Str("component", "mock_stt").Logger(),
		results: make(chan transcript.Event),
		errors:  make(chan *SourceError),
	}
}

// Start begins replaying the script from the first step
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.replay(runCtx, m.done)

	m.logger.Info().Int("steps", len(m.script.Steps)).Bool("loop", m.script.Loop).Msg("Mock recognition started")
	return nil
}

func (m *MockSource) replay(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		for _, step := range m.script.Steps {
			timer := time.NewTimer(step.After)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if step.Error != nil {
				err := &SourceError{Code: step.Error.Code, Message: step.Error.Message, Fatal: step.Error.Fatal}
				if err.Code == "" {
					err.Code = CodeScripted
				}
				select {
				case m.errors <- err:
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case m.results <- step.Event():
			case <-ctx.Done():
				return
			}
		}
		if !m.script.Loop {
			return
		}
	}
}

// SendAudio discards audio while the replay is running
func (m *MockSource) SendAudio(audio []byte) error {
	if !m.IsActive() {
		return ErrNotActive
	}
	m.audioBytes.Add(int64(len(audio)))
	return nil
}

// AudioBytes returns the number of audio bytes received
func (m *MockSource) AudioBytes() int64 {
	return m.audioBytes.Load()
}

// Results returns the recognition event channel
func (m *MockSource) Results() <-chan transcript.Event {
	return m.results
}

// Errors returns the scripted error channel
func (m *MockSource) Errors() <-chan *SourceError {
	return m.errors
}

// IsActive reports whether a replay is running
func (m *MockSource) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Stop ends the replay and waits for it to finish
func (m *MockSource) Stop() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	m.logger.Info().Int64("audio_bytes", m.AudioBytes()).Msg("Mock recognition stopped")
	return nil
}

// Close stops the replay
func (m *MockSource) Close() error {
	return m.Stop()
}

package stt

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/config"
)

// Factory creates one recognition source per transcript session
type Factory func(logger zerolog.Logger) Source

// NewFactory returns a Factory for the configured backend. It returns a
// nil Factory, and no error, when recognition is unavailable.
func NewFactory(cfg *config.Config) (Factory, error) {
	if ok, _ := cfg.RecognitionAvailable(); !ok {
		return nil, nil
	}

	switch cfg.STTProvider {
	case config.ProviderDeepgram:
		return func(logger zerolog.Logger) Source {
			return NewDeepgramSource(cfg, logger)
		}, nil
	case config.ProviderMock:
		script, err := LoadScript(cfg.MockScript)
		if err != nil {
			return nil, err
		}
		return func(logger zerolog.Logger) Source {
			return NewMockSource(script, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STTProvider)
	}
}

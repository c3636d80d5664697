package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Recognition backends understood by STT_PROVIDER
const (
	ProviderDeepgram = "deepgram"
	ProviderMock     = "mock"
	ProviderNone     = "none"
)

// Clipboard modes understood by CLIPBOARD_MODE
const (
	ClipboardBrowser = "browser"
	ClipboardSystem  = "system"
)

// Config holds all configuration for the transcript gateway
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service (e.g. https://xxx.ngrok-free.dev when behind a proxy).
	// Only used when logging the page and stream endpoints.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Speech recognition backend
	STTProvider      string `envconfig:"STT_PROVIDER" default:"deepgram"` // deepgram, mock, none
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`
	STTSampleRate    int    `envconfig:"STT_SAMPLE_RATE" default:"16000"` // Rate audio is resampled to before recognition

	// Replay script for the mock backend (YAML). Empty uses the built-in script.
	MockScript string `envconfig:"MOCK_SCRIPT" default:""`

	// Export configuration
	ClipboardMode      string `envconfig:"CLIPBOARD_MODE" default:"browser"` // browser, system
	TranscriptFilename string `envconfig:"TRANSCRIPT_FILENAME" default:"transcript.txt"`

	// Audio processing configuration
	AudioBufferSize    int     `envconfig:"AUDIO_BUFFER_SIZE" default:"65536"`    // Bytes held while the recognizer (re)connects
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for VAD
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // Frames of silence to mark speech end

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum connect attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Maximum reconnection attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Reconnection backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated and numeric settings.
// A missing Deepgram key is not an error: recognition is reported as
// unavailable instead (see RecognitionAvailable).
func (c *Config) Validate() error {
	c.STTProvider = strings.ToLower(strings.TrimSpace(c.STTProvider))
	switch c.STTProvider {
	case ProviderDeepgram, ProviderMock, ProviderNone:
	default:
		return fmt.Errorf("STT_PROVIDER must be one of deepgram, mock, none (got %q)", c.STTProvider)
	}

	c.ClipboardMode = strings.ToLower(strings.TrimSpace(c.ClipboardMode))
	switch c.ClipboardMode {
	case ClipboardBrowser, ClipboardSystem:
	default:
		return fmt.Errorf("CLIPBOARD_MODE must be browser or system (got %q)", c.ClipboardMode)
	}

	if c.STTSampleRate <= 0 {
		return fmt.Errorf("STT_SAMPLE_RATE must be positive")
	}
	if c.AudioBufferSize < 2 {
		return fmt.Errorf("AUDIO_BUFFER_SIZE must be at least 2")
	}
	if strings.TrimSpace(c.TranscriptFilename) == "" {
		return fmt.Errorf("TRANSCRIPT_FILENAME is required")
	}

	return nil
}

// RecognitionAvailable reports whether a speech recognition backend can be
// started with this configuration, and if not, why.
func (c *Config) RecognitionAvailable() (bool, string) {
	switch c.STTProvider {
	case ProviderNone:
		return false, "speech recognition is disabled"
	case ProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return false, "DEEPGRAM_API_KEY is not set"
		}
	}
	return true, ""
}

package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/transcript-gateway/internal/transcript"
)

// ErrNotActive is returned by SendAudio when no recognition stream is open
var ErrNotActive = errors.New("recognition source is not active")

// Error codes carried by SourceError
const (
	CodeNetwork      = "network"
	CodeBackend      = "backend"
	CodeReconnect    = "reconnect_failed"
	CodeNotAvailable = "not_available"
	CodeScripted     = "scripted"
)

// SourceError is an error reported asynchronously by a recognition source.
// Fatal errors end the recognition stream; others are informational.
type SourceError struct {
	Code    string
	Message string
	Fatal   bool
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Source is a streaming speech recognizer.
//
// Results and Errors return the same channels for the lifetime of the
// source; they are never closed, so consumers select on them together
// with their own cancellation.
type Source interface {
	// Start opens a recognition stream
	Start(ctx context.Context) error

	// SendAudio sends 16-bit little-endian mono PCM at the configured rate
	SendAudio(audio []byte) error

	// Results delivers recognition events, one per backend message
	Results() <-chan transcript.Event

	// Errors delivers asynchronous backend errors
	Errors() <-chan *SourceError

	// IsActive reports whether the stream accepts audio
	IsActive() bool

	// Stop ends the recognition stream; the source may be started again
	Stop() error

	// Close stops the source and releases its resources
	Close() error
}

package session

import (
	"context"
	"errors"
)

// State is what the page renders for one transcript session
type State struct {
	// Listening is true between a successful start and the next stop or
	// fatal recognition error
	Listening bool `json:"listening"`

	// Committed is the finalized transcript, words separated by single spaces
	Committed string `json:"committed"`

	// Interim is the in-progress text of the most recent event
	Interim string `json:"interim"`
}

// Notice levels
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// User-visible notice messages
const (
	MsgCopied          = "Transcript copied to clipboard!"
	MsgNothingToCopy   = "No transcript to copy."
	MsgNothingToExport = "No transcript to download."
	MsgUnavailable     = "speech recognition is not available"
)

// Notice is a short message for the user
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

var (
	// ErrNothingToCopy is returned by Copy when the transcript is empty
	ErrNothingToCopy = errors.New("no transcript to copy")

	// ErrNothingToDownload is returned by Download when the transcript is empty
	ErrNothingToDownload = errors.New("no transcript to download")

	// ErrUnavailable is returned by Start when no recognition source is configured
	ErrUnavailable = errors.New("speech recognition is not available")

	// ErrClosed is returned by operations on a controller whose loop has exited
	ErrClosed = errors.New("session closed")
)

// Presenter renders session state and notices
type Presenter interface {
	Publish(state State)
	Notify(notice Notice)
}

// Clipboard writes text to a clipboard
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Exporter saves text as a named file
type Exporter interface {
	Export(ctx context.Context, filename, text string) error
}

package gateway

import "github.com/lexiqai/transcript-gateway/internal/session"

// Actions sent by the page
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionClear    = "clear"
	ActionCopy     = "copy"
	ActionDownload = "download"
)

// ClientMessage is a control frame from the page. Audio arrives in binary
// frames as 16-bit little-endian mono PCM at SampleRate.
type ClientMessage struct {
	Action     string `json:"action"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// Server frame types
const (
	TypeHello     = "hello"
	TypeState     = "state"
	TypeNotice    = "notice"
	TypeClipboard = "clipboard"
	TypeDownload  = "download"
	TypeActivity  = "activity"
)

type helloMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Available bool   `json:"available"`
}

type stateMessage struct {
	Type string `json:"type"`
	session.State
}

type noticeMessage struct {
	Type string `json:"type"`
	session.Notice
}

type clipboardMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type downloadMessage struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type activityMessage struct {
	Type     string `json:"type"`
	Speaking bool   `json:"speaking"`
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/session"
	"github.com/lexiqai/transcript-gateway/internal/stt"
)

// CorrelationHeader carries a caller supplied correlation ID
const CorrelationHeader = "X-Correlation-ID"

var upgrader = websocket.Upgrader{
	// The page is served by this gateway; proxies in front of it may
	// rewrite the origin, so all origins are accepted
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  16384,
	WriteBufferSize: 4096,
}

// Manager accepts page connections and tracks their sessions
type Manager struct {
	config    *config.Config
	factory   stt.Factory
	clipboard session.Clipboard
	logger    zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*BrowserSession
}

// NewManager creates a session manager. factory may be nil when
// recognition is unavailable. A non-nil clipboard replaces the page
// clipboard for every session.
func NewManager(cfg *config.Config, factory stt.Factory, clipboard session.Clipboard, logger zerolog.Logger) *Manager {
	return &Manager{
		config:    cfg,
		factory:   factory,
		clipboard: clipboard,
		logger:    logger.With().Str("component", "gateway").Logger(),
		sessions:  make(map[string]*BrowserSession),
	}
}

// Lookup returns a connected session by ID
func (m *Manager) Lookup(id string) (*BrowserSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of connected sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) register(s *BrowserSession) {
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
}

func (m *Manager) unregister(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Shutdown disconnects every session
func (m *Manager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*BrowserSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.close()
	}
	m.logger.Info().Int("sessions", len(sessions)).Msg("Disconnected browser sessions")
}

// HandleBrowserWS is the entry point for page websocket connections
func (m *Manager) HandleBrowserWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request
			m.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		id := uuid.New().String()
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = observability.NewCorrelationID()
		}
		logger := observability.WithSession(m.logger, id, correlationID)

		metrics := observability.NewSessionMetrics(id)
		metrics.RecordSessionStart()
		defer metrics.RecordSessionEnd()

		var source stt.Source
		if m.factory != nil {
			source = m.factory(logger)
		}
		_, reason := m.config.RecognitionAvailable()

		s := newBrowserSession(id, conn, source, m.config, correlationID, logger, metrics)

		var clip session.Clipboard = s
		if m.clipboard != nil {
			clip = m.clipboard
		}
		s.controller = session.NewController(session.Options{
			Source:            source,
			UnavailableReason: reason,
			Presenter:         s,
			Clipboard:         clip,
			Exporter:          s,
			Filename:          m.config.TranscriptFilename,
			Logger:            logger,
			Metrics:           metrics,
		})

		m.register(s)
		defer m.unregister(id)

		logger.Info().Bool("available", source != nil).Int("active_sessions", m.Count()).Msg("Browser session connected")

		ctx, cancel := context.WithCancel(context.Background())

		go s.writeLoop()
		s.send(helloMessage{Type: TypeHello, SessionID: id, Available: source != nil})

		go s.controller.Run(ctx)
		go s.processActions(ctx)
		go s.processIncomingAudio(ctx)

		s.processIncomingMessages()

		cancel()
		<-s.controller.Done()
		s.close()

		logger.Info().Msg("Browser session ended")
	}
}

// HandleTranscriptDownload serves the committed transcript of a connected
// session as a text file
func (m *Manager) HandleTranscriptDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := m.snapshot(w, r)
		if !ok {
			return
		}
		if state.Committed == "" {
			http.Error(w, session.MsgNothingToExport, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.config.TranscriptFilename))
		fmt.Fprint(w, state.Committed)
	}
}

// HandleSessionState serves the current state of a connected session
func (m *Manager) HandleSessionState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := m.snapshot(w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	}
}

func (m *Manager) snapshot(w http.ResponseWriter, r *http.Request) (session.State, bool) {
	s, ok := m.Lookup(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return session.State{}, false
	}

	state, err := s.Controller().Snapshot(r.Context())
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return session.State{}, false
	}
	return state, true
}

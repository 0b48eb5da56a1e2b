// Package notify streams offer lifecycle events to the presentation
// layer over websockets. The UI renders the live countdown from the
// deadline carried in the event; it never owns decision logic.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/roadside-dispatch/internal/models"
)

type Event struct {
	Type     string                `json:"type"` // "offer_presented" or "offer_resolved"
	Request  models.ServiceRequest `json:"request"`
	State    models.OfferState     `json:"state,omitempty"`
	Reason   string                `json:"reason,omitempty"`
	Deadline time.Time             `json:"deadline"`
	SentAt   time.Time             `json:"sent_at"`
}

// WSSession is one connected presentation client.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WSHub broadcasts events to every connected client and drops sessions
// whose writes fail.
type WSHub struct {
	mu       sync.RWMutex
	sessions map[*WSSession]struct{}
	logger   *slog.Logger
}

func NewWSHub(logger *slog.Logger) *WSHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHub{sessions: make(map[*WSSession]struct{}), logger: logger}
}

func (h *WSHub) Add(conn *websocket.Conn) *WSSession {
	s := &WSSession{conn: conn}
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *WSHub) Remove(s *WSSession) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	_ = s.conn.Close()
}

func (h *WSHub) broadcast(ev any) {
	h.mu.RLock()
	targets := make([]*WSSession, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()
	for _, s := range targets {
		if err := s.send(ev); err != nil {
			h.logger.Warn("ws_send_error", "error", err)
			h.Remove(s)
		}
	}
}

func (h *WSHub) OfferPresented(req models.ServiceRequest) {
	h.broadcast(Event{
		Type:     "offer_presented",
		Request:  req,
		State:    models.StateOffered,
		Deadline: req.Deadline,
		SentAt:   time.Now(),
	})
}

func (h *WSHub) OfferResolved(req models.ServiceRequest, state models.OfferState, reason string) {
	h.broadcast(Event{
		Type:    "offer_resolved",
		Request: req,
		State:   state,
		Reason:  reason,
		SentAt:  time.Now(),
	})
}

// SuggestionEvent delivers the latest completed suggestion batch.
type SuggestionEvent struct {
	Type    string                     `json:"type"` // "suggestions"
	Query   string                     `json:"query"`
	Results []models.AddressSuggestion `json:"results"`
	SentAt  time.Time                  `json:"sent_at"`
}

// SuggestionsReady pushes a completed suggestion batch; earlier
// superseded queries never reach this point.
func (h *WSHub) SuggestionsReady(query string, results []models.AddressSuggestion) {
	h.broadcast(SuggestionEvent{
		Type:    "suggestions",
		Query:   query,
		Results: results,
		SentAt:  time.Now(),
	})
}

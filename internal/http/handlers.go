package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/roadside-dispatch/internal/dispatch"
	"github.com/example/roadside-dispatch/internal/models"
	"github.com/example/roadside-dispatch/internal/notify"
	"github.com/example/roadside-dispatch/internal/route"
)

// Server is the presentation boundary: decisions originate here and
// offer events flow out over the websocket hub.
type Server struct {
	Dispatcher *dispatch.Dispatcher
	Suggester  *route.Suggester
	Geocoder   *route.Geocoder
	Resolver   *route.Resolver
	Hub        *notify.WSHub

	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(d *dispatch.Dispatcher, s *route.Suggester, g *route.Geocoder, res *route.Resolver, hub *notify.WSHub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		Dispatcher: d,
		Suggester:  s,
		Geocoder:   g,
		Resolver:   res,
		Hub:        hub,
		logger:     logger,
		mux:        mux.NewRouter(),
	}
	srv.registerMiddleware()
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/session/online", s.handleGoOnline).Methods("POST")
	s.mux.HandleFunc("/api/v1/session/offline", s.handleGoOffline).Methods("POST")
	s.mux.HandleFunc("/api/v1/session/summary", s.handleSummary).Methods("GET")
	s.mux.HandleFunc("/api/v1/offer", s.handleCurrentOffer).Methods("GET")
	s.mux.HandleFunc("/api/v1/offer/decide", s.handleDecide).Methods("POST")
	s.mux.HandleFunc("/api/v1/suggest", s.handleSuggestQuery).Methods("POST")
	s.mux.HandleFunc("/api/v1/suggest", s.handleSuggestLatest).Methods("GET")
	s.mux.HandleFunc("/api/v1/geocode", s.handleGeocode).Methods("GET")
	s.mux.HandleFunc("/api/v1/route/preview", s.handleRoutePreview).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleGoOnline(w http.ResponseWriter, r *http.Request) {
	s.Dispatcher.GoOnline()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	summary := s.Dispatcher.GoOffline()
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dispatcher.Summary())
}

func (s *Server) handleCurrentOffer(w http.ResponseWriter, r *http.Request) {
	req, ok := s.Dispatcher.CurrentOffer()
	if !ok {
		http.Error(w, "no active offer", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request":           req,
		"remaining_seconds": s.Dispatcher.Remaining().Seconds(),
	})
}

type decideRequest struct {
	RequestID string `json:"request_id"`
	Decision  string `json:"decision"` // "accept" or "reject"
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var body decideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var decision dispatch.Decision
	switch body.Decision {
	case "accept":
		decision = dispatch.DecisionAccept
	case "reject":
		decision = dispatch.DecisionReject
	default:
		http.Error(w, "decision must be accept or reject", http.StatusBadRequest)
		return
	}

	trip, err := s.Dispatcher.Decide(r.Context(), body.RequestID, decision)
	switch {
	case errors.Is(err, dispatch.ErrNoActiveOffer), errors.Is(err, dispatch.ErrOffline):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, dispatch.ErrRouteUnavailable):
		// Recoverable: this request is gone, the next offer arrives
		// normally.
		writeJSON(w, http.StatusOK, map[string]any{"status": "rejected", "reason": "route unavailable"})
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if trip == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "rejected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "accepted", "trip": trip})
}

type suggestRequest struct {
	Query string `json:"query"`
}

// handleSuggestQuery submits a keystroke query; results for the most
// recent query arrive over the websocket and via the GET endpoint.
func (s *Server) handleSuggestQuery(w http.ResponseWriter, r *http.Request) {
	var body suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Suggester.Query(body.Query)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSuggestLatest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Suggester.Latest())
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	coord, err := s.Geocoder.Geocode(r.Context(), q)
	if errors.Is(err, route.ErrAddressNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, coord)
}

// handleRoutePreview renders the map flow: free-text destination plus
// the driver's current coordinate in, routed path out.
func (s *Server) handleRoutePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := q.Get("q")
	if address == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid lat/lon", http.StatusBadRequest)
		return
	}
	res, err := s.Resolver.ResolveAddress(r.Context(), models.Coord{Lat: lat, Lon: lon}, address)
	switch {
	case errors.Is(err, route.ErrAddressNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	sess := s.Hub.Add(conn)
	// Reader loop only detects disconnects; all traffic is outbound.
	go func() {
		defer s.Hub.Remove(sess)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("response encode error", "error", err)
	}
}

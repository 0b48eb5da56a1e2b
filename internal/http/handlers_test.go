package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/roadside-dispatch/internal/dispatch"
	"github.com/example/roadside-dispatch/internal/fare"
	"github.com/example/roadside-dispatch/internal/ledger"
	"github.com/example/roadside-dispatch/internal/models"
	"github.com/example/roadside-dispatch/internal/notify"
	"github.com/example/roadside-dispatch/internal/pool"
	"github.com/example/roadside-dispatch/internal/route"
)

type stubResolver struct{}

func (stubResolver) ResolveRoute(ctx context.Context, from, to models.Coord) (models.RouteResult, error) {
	return models.RouteResult{Path: []models.Coord{from, to}, DistanceMeters: 8000, DurationSeconds: 600}, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, q string) ([]models.AddressSuggestion, error) {
	return []models.AddressSuggestion{{ID: "1", Title: q}}, nil
}

func newTestServer(t *testing.T) (*Server, *dispatch.Dispatcher) {
	t.Helper()
	led := ledger.New(0, 24)
	d := dispatch.New(dispatch.Config{DecisionWindow: time.Hour}, dispatch.Deps{
		Pool:   pool.DefaultPool(),
		Routes: stubResolver{},
		Fares:  fare.DefaultTable(),
		Ledger: led,
	})
	suggester := route.NewSuggester(stubSearcher{}, 3, 0)
	geocoder := route.NewGeocoder("http://127.0.0.1:1", 50*time.Millisecond)
	hub := notify.NewWSHub(nil)
	resolver := &route.Resolver{Geocoder: geocoder, Routes: route.NewOSRMClient("http://127.0.0.1:1", 50*time.Millisecond)}
	return NewServer(d, suggester, geocoder, resolver, hub, nil), d
}

func TestOfferEndpointWithoutOffer(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/offer", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDecideStaleRequestReturnsConflict(t *testing.T) {
	srv, d := newTestServer(t)
	d.GoOnline()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"request_id":"bogus","decision":"accept"}`)
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/offer/decide", body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDecideBadDecisionValue(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"request_id":"x","decision":"maybe"}`)
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/offer/decide", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAcceptFlowOverHTTP(t *testing.T) {
	srv, d := newTestServer(t)
	d.GoOnline()
	d.Tick(time.Now())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/offer", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var offer struct {
		Request          models.ServiceRequest `json:"request"`
		RemainingSeconds float64               `json:"remaining_seconds"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&offer); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if offer.RemainingSeconds <= 0 {
		t.Fatal("expected a live countdown")
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"request_id":"` + offer.Request.ID + `","decision":"accept"}`)
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/offer/decide", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Status string                `json:"status"`
		Trip   *models.CompletedTrip `json:"trip"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if out.Status != "accepted" || out.Trip == nil || out.Trip.Fare <= 0 {
		t.Fatalf("unexpected decision payload: %+v", out)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv, d := newTestServer(t)
	d.GoOnline()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/session/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var s models.OnlineSession
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if s.TotalTrips != 0 {
		t.Fatalf("fresh session should be empty: %+v", s)
	}
}

func TestRoutePreviewRejectsBadParams(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/route/preview?lat=40.7&lon=-74.0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing address should 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/route/preview?q=main+st&lat=north&lon=-74.0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad coordinate should 400, got %d", rec.Code)
	}
}

func TestSuggestShortQueryNoProviderCall(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"query":"ab"}`)
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/suggest", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	time.Sleep(20 * time.Millisecond)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/suggest", nil))
	var results []models.AddressSuggestion
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode suggestions: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("short query must yield no suggestions, got %v", results)
	}
}

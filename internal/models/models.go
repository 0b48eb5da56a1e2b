package models

import (
	"math"
	"time"

	"github.com/example/roadside-dispatch/internal/fare"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceMeters returns the haversine great-circle distance to o in meters.
func (c Coord) DistanceMeters(o Coord) float64 {
	const R = 6371000.0
	dLat := (o.Lat - c.Lat) * math.Pi / 180
	dLon := (o.Lon - c.Lon) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(c.Lat*math.Pi/180)*math.Cos(o.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// OfferState tracks the one-way lifecycle of an offered ServiceRequest.
type OfferState string

const (
	StateOffered  OfferState = "offered"
	StateAccepted OfferState = "accepted"
	StateRejected OfferState = "rejected"
	StateExpired  OfferState = "expired"
)

// ServiceRequest is a single offer presented to the driver. Immutable
// once created; discarded when the offer resolves.
type ServiceRequest struct {
	ID            string `json:"id"`
	ServiceTypeID string `json:"service_type_id"`
	OriginAddress string `json:"origin_address"`
	Vehicle       string `json:"vehicle"`
	Problem       string `json:"problem"`
	Origin        Coord  `json:"origin"`
	Destination   Coord  `json:"destination"`
	// StraightLineDistanceMeters pre-estimates the price for display
	// before the full route is known.
	StraightLineDistanceMeters float64     `json:"straight_line_distance_meters"`
	EstimatedFare              fare.Amount `json:"estimated_fare"`
	OfferedAt                  time.Time   `json:"offered_at"`
	Deadline                   time.Time   `json:"deadline"`
}

// RouteResult is the routed path between two coordinates.
type RouteResult struct {
	Path            []Coord `json:"path"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// CompletedTrip is created only on acceptance plus a successful route
// and fare computation, then appended to the session ledger.
type CompletedTrip struct {
	Request    ServiceRequest `json:"request"`
	Route      RouteResult    `json:"route"`
	Fare       fare.Amount    `json:"fare"`
	HourBucket int            `json:"hour_bucket"`
	Timestamp  time.Time      `json:"timestamp"`
}

// OnlineSession is a read-only snapshot of the running session
// aggregates kept by the ledger.
type OnlineSession struct {
	StartedAt          time.Time      `json:"started_at"`
	TotalEarnings      fare.Amount    `json:"total_earnings"`
	TotalTrips         int            `json:"total_trips"`
	OnlineSeconds      int64          `json:"online_seconds"`
	EarningsByHour     []fare.Amount  `json:"earnings_by_hour"`
	TripsByServiceType map[string]int `json:"trips_by_service_type"`
}

// AddressSuggestion is one ranked candidate for a partial address
// query. Ephemeral: superseded by the next query.
type AddressSuggestion struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// RequestTemplate is what candidate pools hand to the dispatcher for
// synthesizing offers.
type RequestTemplate struct {
	ServiceTypeID string `json:"service_type_id"`
	OriginAddress string `json:"origin_address"`
	Vehicle       string `json:"vehicle"`
	Problem       string `json:"problem"`
	Origin        Coord  `json:"origin"`
	Destination   Coord  `json:"destination"`
}

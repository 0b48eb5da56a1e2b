// Package dispatch owns the single current-offer slot: it emits offers
// while the driver is online, runs the decision window for each, and
// on acceptance drives the route, fare, and ledger chain.
package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/roadside-dispatch/internal/fare"
	"github.com/example/roadside-dispatch/internal/ledger"
	"github.com/example/roadside-dispatch/internal/models"
	"github.com/example/roadside-dispatch/internal/observability"
	"github.com/example/roadside-dispatch/internal/pool"
	"github.com/example/roadside-dispatch/internal/storage"
	"github.com/example/roadside-dispatch/internal/timer"
)

var (
	// ErrNoActiveOffer means a decision arrived for a request that is
	// no longer the current offer: a stale UI action or a race loss.
	ErrNoActiveOffer = errors.New("no active offer")
	// ErrRouteUnavailable marks an accepted offer whose route could
	// not be resolved; the offer is converted to rejected.
	ErrRouteUnavailable = errors.New("route unavailable")
	// ErrOffline is returned when a decision arrives with no session.
	ErrOffline = errors.New("driver offline")
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// RouteResolver resolves an accepted request's origin/destination pair.
type RouteResolver interface {
	ResolveRoute(ctx context.Context, from, to models.Coord) (models.RouteResult, error)
}

// Notifier receives offer lifecycle events for the presentation layer.
type Notifier interface {
	OfferPresented(req models.ServiceRequest)
	OfferResolved(req models.ServiceRequest, state models.OfferState, reason string)
}

// NopNotifier drops all events.
type NopNotifier struct{}

func (NopNotifier) OfferPresented(models.ServiceRequest)                           {}
func (NopNotifier) OfferResolved(models.ServiceRequest, models.OfferState, string) {}

// Charger places a payment hold for a recorded trip. Optional; capture
// itself is delegated externally.
type Charger interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
}

// SuggestCanceller aborts an in-flight address suggestion query.
type SuggestCanceller interface {
	CancelInflight()
}

type Config struct {
	// DecisionWindow is the time budget per offer before auto-expiry.
	DecisionWindow time.Duration
	// OfferInterval is the minimum gap between emission and the
	// previous offer's resolution.
	OfferInterval time.Duration
	// RouteTimeout bounds the routing call after acceptance. Distinct
	// from the decision window: a slow route fetch does not re-open it.
	RouteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.DecisionWindow <= 0 {
		c.DecisionWindow = 30 * time.Second
	}
	if c.OfferInterval <= 0 {
		c.OfferInterval = 15 * time.Second
	}
	if c.RouteTimeout <= 0 {
		c.RouteTimeout = 10 * time.Second
	}
}

// Dispatcher serializes emission ticks, timer expiries, and explicit
// decisions around the single offered/no-offer state.
type Dispatcher struct {
	cfg     Config
	pool    pool.CandidatePool
	routes  RouteResolver
	fares   *fare.Table
	ledger  *ledger.Ledger
	store   storage.TripStore
	notify  Notifier
	charger Charger
	suggest SuggestCanceller
	logger  *slog.Logger

	mu       sync.Mutex
	online   bool
	current  *models.ServiceRequest
	curTimer *timer.Timer
	inflight bool
	lastEmit time.Time
}

// Deps carries the dispatcher's collaborators; all injection is
// explicit, there is no ambient instance.
type Deps struct {
	Pool    pool.CandidatePool
	Routes  RouteResolver
	Fares   *fare.Table
	Ledger  *ledger.Ledger
	Store   storage.TripStore
	Notify  Notifier
	Charger Charger
	Suggest SuggestCanceller
	Logger  *slog.Logger
}

func New(cfg Config, deps Deps) *Dispatcher {
	cfg.applyDefaults()
	if deps.Notify == nil {
		deps.Notify = NopNotifier{}
	}
	if deps.Store == nil {
		deps.Store = storage.NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Dispatcher{
		cfg:     cfg,
		pool:    deps.Pool,
		routes:  deps.Routes,
		fares:   deps.Fares,
		ledger:  deps.Ledger,
		store:   deps.Store,
		notify:  deps.Notify,
		charger: deps.Charger,
		suggest: deps.Suggest,
		logger:  deps.Logger,
	}
}

// GoOnline starts a fresh session and enables offer emission.
func (d *Dispatcher) GoOnline() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.online {
		return
	}
	d.online = true
	d.lastEmit = time.Time{}
	d.ledger.Reset()
	observability.DriverOnline.Set(1)
	d.logger.Info("session_online")
}

// GoOffline stops emission, expires any outstanding offer, and returns
// the final session summary. An in-flight route resolution for an
// already-accepted request is not cancelled; its trip still records
// when it completes.
func (d *Dispatcher) GoOffline() models.OnlineSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil && d.curTimer.Cancel() {
		req := *d.current
		d.current = nil
		d.curTimer = nil
		observability.OffersExpired.Inc()
		d.notify.OfferResolved(req, models.StateExpired, "session ended")
		d.logger.Info("offer_expired", "request_id", req.ID, "reason", "offline")
	}
	if d.suggest != nil {
		d.suggest.CancelInflight()
	}
	d.online = false
	summary := d.ledger.Summary()
	d.ledger.Reset()
	observability.DriverOnline.Set(0)
	d.logger.Info("session_offline",
		"total_trips", summary.TotalTrips,
		"total_earnings", summary.TotalEarnings.String(),
		"online_seconds", summary.OnlineSeconds)
	return summary
}

// Tick is the external heartbeat: it advances the online clock and,
// when the offer slot is free and the interval has passed, emits the
// next offer.
func (d *Dispatcher) Tick(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online {
		return
	}
	d.ledger.TickOnline(1)
	if d.current != nil || d.inflight {
		return
	}
	if !d.lastEmit.IsZero() && now.Sub(d.lastEmit) < d.cfg.OfferInterval {
		return
	}
	d.emitLocked(now)
}

// emitLocked synthesizes the next offer from the candidate pool and
// arms its decision timer. Caller holds d.mu with the slot free.
func (d *Dispatcher) emitLocked(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	tmpl, err := d.pool.Next(ctx)
	cancel()
	if err != nil {
		d.logger.Warn("candidate_pool_error", "error", err)
		return
	}

	straight := tmpl.Origin.DistanceMeters(tmpl.Destination)
	estimate, _ := d.fares.ComputeFare(tmpl.ServiceTypeID, straight)
	req := models.ServiceRequest{
		ID:                         newID(),
		ServiceTypeID:              tmpl.ServiceTypeID,
		OriginAddress:              tmpl.OriginAddress,
		Vehicle:                    tmpl.Vehicle,
		Problem:                    tmpl.Problem,
		Origin:                     tmpl.Origin,
		Destination:                tmpl.Destination,
		StraightLineDistanceMeters: straight,
		EstimatedFare:              estimate,
		OfferedAt:                  now,
		Deadline:                   now.Add(d.cfg.DecisionWindow),
	}
	d.current = &req
	d.lastEmit = now
	id := req.ID
	d.curTimer = timer.Start(d.cfg.DecisionWindow, func() { d.expire(id) })
	observability.OffersEmitted.Inc()
	d.notify.OfferPresented(req)
	d.logger.Info("offer_emitted", "request_id", req.ID, "service_type", req.ServiceTypeID, "estimate", estimate.String())
}

// expire is the decision-timer callback. If the offer is still
// current, it auto-rejects; otherwise an explicit decision won.
func (d *Dispatcher) expire(requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil || d.current.ID != requestID {
		return
	}
	req := *d.current
	d.current = nil
	d.curTimer = nil
	// Emission resumes on the next tick, no cool-down.
	d.lastEmit = time.Time{}
	observability.OffersExpired.Inc()
	d.notify.OfferResolved(req, models.StateExpired, "decision window elapsed")
	d.logger.Info("offer_expired", "request_id", req.ID)
}

// Decide resolves the current offer. The first caller wins: a decision
// arriving after expiry (or for a stale request ID) gets
// ErrNoActiveOffer. On acceptance the route, fare, and ledger chain
// runs before Decide returns; route failure converts the offer to
// rejected and surfaces ErrRouteUnavailable, which is recoverable.
func (d *Dispatcher) Decide(ctx context.Context, requestID string, decision Decision) (*models.CompletedTrip, error) {
	d.mu.Lock()
	if !d.online && d.current == nil {
		d.mu.Unlock()
		return nil, ErrOffline
	}
	if d.current == nil || d.current.ID != requestID {
		d.mu.Unlock()
		return nil, ErrNoActiveOffer
	}
	if !d.curTimer.Cancel() {
		// Expiry fired first and its callback will clear the slot.
		d.mu.Unlock()
		return nil, ErrNoActiveOffer
	}
	req := *d.current
	d.current = nil
	d.curTimer = nil

	if decision == DecisionReject {
		d.lastEmit = time.Time{}
		d.mu.Unlock()
		observability.OffersRejected.Inc()
		d.notify.OfferResolved(req, models.StateRejected, "declined by driver")
		d.logger.Info("offer_rejected", "request_id", req.ID)
		return nil, nil
	}

	// Acceptance: the routing call is the only work allowed to leave
	// the boundary; the slot stays reserved via inflight so no second
	// offer is emitted meanwhile.
	d.inflight = true
	d.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, d.cfg.RouteTimeout)
	res, err := d.routes.ResolveRoute(rctx, req.Origin, req.Destination)
	cancel()
	if err != nil {
		d.resolveFailed(req, "route unavailable")
		return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}

	amount, err := d.fares.ComputeFare(req.ServiceTypeID, res.DistanceMeters)
	if err != nil {
		d.resolveFailed(req, "fare unavailable")
		return nil, err
	}

	now := time.Now()
	trip := models.CompletedTrip{
		Request:    req,
		Route:      res,
		Fare:       amount,
		HourBucket: d.ledger.Bucket(now),
		Timestamp:  now,
	}

	d.mu.Lock()
	d.inflight = false
	d.lastEmit = time.Time{}
	d.mu.Unlock()

	d.ledger.RecordTrip(trip)
	if err := d.store.SaveTrip(&trip); err != nil {
		d.logger.Warn("trip_store_error", "request_id", req.ID, "error", err)
	}
	if d.charger != nil {
		go d.placeHold(trip)
	}
	observability.OffersAccepted.Inc()
	observability.EarningsCents.Add(float64(amount))
	d.notify.OfferResolved(req, models.StateAccepted, "")
	d.logger.Info("offer_accepted",
		"request_id", req.ID,
		"distance_meters", res.DistanceMeters,
		"fare", amount.String())
	return &trip, nil
}

func (d *Dispatcher) resolveFailed(req models.ServiceRequest, reason string) {
	d.mu.Lock()
	d.inflight = false
	d.lastEmit = time.Time{}
	d.mu.Unlock()
	observability.OffersRejected.Inc()
	d.notify.OfferResolved(req, models.StateRejected, reason)
	d.logger.Warn("offer_accept_failed", "request_id", req.ID, "reason", reason)
}

func (d *Dispatcher) placeHold(trip models.CompletedTrip) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := d.charger.Hold(ctx, int64(trip.Fare), "usd", ""); err != nil {
		d.logger.Warn("payment_hold_error", "request_id", trip.Request.ID, "error", err)
	}
}

// CurrentOffer returns the outstanding offer, if any, for UI
// reconciliation.
func (d *Dispatcher) CurrentOffer() (models.ServiceRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return models.ServiceRequest{}, false
	}
	return *d.current, true
}

// Remaining reports the time left in the current decision window.
func (d *Dispatcher) Remaining() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.curTimer == nil {
		return 0
	}
	return d.curTimer.Remaining()
}

// Online reports whether a session is active.
func (d *Dispatcher) Online() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

// Summary exposes the mid-session ledger snapshot.
func (d *Dispatcher) Summary() models.OnlineSession {
	return d.ledger.Summary()
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

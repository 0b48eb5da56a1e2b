// Package ledger accumulates accepted trips into running session
// totals. It is a pure accumulator: online time is advanced by an
// external heartbeat, never derived from wall-clock deltas.
package ledger

import (
	"sync"
	"time"

	"github.com/example/roadside-dispatch/internal/fare"
	"github.com/example/roadside-dispatch/internal/models"
)

// Ledger owns the aggregates for the current online session.
type Ledger struct {
	mu sync.Mutex

	shiftStartHour int
	shiftEndHour   int

	startedAt      time.Time
	totalEarnings  fare.Amount
	totalTrips     int
	onlineSeconds  int64
	earningsByHour []fare.Amount
	tripsByType    map[string]int
}

// New creates a ledger whose hourly buckets cover [shiftStartHour,
// shiftEndHour). Trips timestamped outside the window clamp to the
// nearest edge bucket.
func New(shiftStartHour, shiftEndHour int) *Ledger {
	if shiftEndHour <= shiftStartHour {
		shiftStartHour, shiftEndHour = 0, 24
	}
	l := &Ledger{shiftStartHour: shiftStartHour, shiftEndHour: shiftEndHour}
	l.reset(time.Now())
	return l
}

func (l *Ledger) reset(now time.Time) {
	l.startedAt = now
	l.totalEarnings = 0
	l.totalTrips = 0
	l.onlineSeconds = 0
	l.earningsByHour = make([]fare.Amount, l.shiftEndHour-l.shiftStartHour)
	l.tripsByType = make(map[string]int)
}

// Bucket maps an hour of day onto a bucket index, clamped to the shift
// window. Out-of-range hours feed only a display summary, so clamping
// beats erroring.
func (l *Ledger) Bucket(ts time.Time) int {
	h := ts.Hour()
	if h < l.shiftStartHour {
		return 0
	}
	if h >= l.shiftEndHour {
		return l.shiftEndHour - l.shiftStartHour - 1
	}
	return h - l.shiftStartHour
}

// RecordTrip folds one completed trip into the session aggregates.
func (l *Ledger) RecordTrip(trip models.CompletedTrip) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalEarnings += trip.Fare
	l.totalTrips++
	l.earningsByHour[l.clampBucket(trip.HourBucket)] += trip.Fare
	l.tripsByType[trip.Request.ServiceTypeID]++
}

func (l *Ledger) clampBucket(b int) int {
	if b < 0 {
		return 0
	}
	if b >= len(l.earningsByHour) {
		return len(l.earningsByHour) - 1
	}
	return b
}

// TickOnline advances the online clock; called by the heartbeat.
func (l *Ledger) TickOnline(seconds int64) {
	l.mu.Lock()
	l.onlineSeconds += seconds
	l.mu.Unlock()
}

// Summary returns a snapshot of the session aggregates.
func (l *Ledger) Summary() models.OnlineSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	hours := make([]fare.Amount, len(l.earningsByHour))
	copy(hours, l.earningsByHour)
	byType := make(map[string]int, len(l.tripsByType))
	for k, v := range l.tripsByType {
		byType[k] = v
	}
	return models.OnlineSession{
		StartedAt:          l.startedAt,
		TotalEarnings:      l.totalEarnings,
		TotalTrips:         l.totalTrips,
		OnlineSeconds:      l.onlineSeconds,
		EarningsByHour:     hours,
		TripsByServiceType: byType,
	}
}

// Reset clears the session; the next session starts fresh.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.reset(time.Now())
	l.mu.Unlock()
}

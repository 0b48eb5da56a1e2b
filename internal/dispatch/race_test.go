package dispatch

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/example/roadside-dispatch/internal/fare"
	"github.com/example/roadside-dispatch/internal/ledger"
	"github.com/example/roadside-dispatch/internal/models"
	"github.com/example/roadside-dispatch/internal/storage"
)

// exactlyOnceNotifier asserts every presented offer resolves exactly
// once, under any interleaving of ticks, decisions, and expirations.
type exactlyOnceNotifier struct {
	mu        sync.Mutex
	presented map[string]int
	resolved  map[string]int
}

func newExactlyOnceNotifier() *exactlyOnceNotifier {
	return &exactlyOnceNotifier{presented: make(map[string]int), resolved: make(map[string]int)}
}

func (n *exactlyOnceNotifier) OfferPresented(req models.ServiceRequest) {
	n.mu.Lock()
	n.presented[req.ID]++
	n.mu.Unlock()
}

func (n *exactlyOnceNotifier) OfferResolved(req models.ServiceRequest, state models.OfferState, reason string) {
	n.mu.Lock()
	n.resolved[req.ID]++
	n.mu.Unlock()
}

func TestRandomizedInterleavings(t *testing.T) {
	notify := newExactlyOnceNotifier()
	led := ledger.New(0, 24)
	store := storage.NewMemoryStore()
	d := New(Config{
		DecisionWindow: 2 * time.Millisecond,
		OfferInterval:  time.Millisecond,
		RouteTimeout:   time.Second,
	}, Deps{
		Pool:   towingPool(),
		Routes: &fakeResolver{},
		Fares:  fare.DefaultTable(),
		Ledger: led,
		Store:  store,
		Notify: notify,
	})
	d.GoOnline()

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Heartbeat timeline.
	wg.Add(1)
	go func() {
		defer wg.Done()
		now := time.Now()
		for {
			select {
			case <-stop:
				return
			default:
			}
			now = now.Add(time.Second)
			d.Tick(now)
			time.Sleep(time.Duration(rand.Intn(2)) * time.Millisecond)
		}
	}()

	// Competing deciders racing each other and the expiry timer.
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				req, ok := d.CurrentOffer()
				if !ok {
					time.Sleep(time.Millisecond)
					continue
				}
				dec := DecisionReject
				if rand.Intn(2) == 0 {
					dec = DecisionAccept
				}
				_, _ = d.Decide(context.Background(), req.ID, dec)
			}
		}()
	}

	time.Sleep(300 * time.Millisecond)
	close(stop)
	wg.Wait()

	// Drain any offer still outstanding so the books balance.
	d.GoOffline()
	time.Sleep(20 * time.Millisecond)

	notify.mu.Lock()
	defer notify.mu.Unlock()
	if len(notify.presented) == 0 {
		t.Fatal("no offers were exercised")
	}
	for id, n := range notify.presented {
		if n != 1 {
			t.Fatalf("offer %s presented %d times", id, n)
		}
		if r := notify.resolved[id]; r != 1 {
			t.Fatalf("offer %s resolved %d times", id, r)
		}
	}
	for id := range notify.resolved {
		if notify.presented[id] != 1 {
			t.Fatalf("offer %s resolved without being presented", id)
		}
	}
	// Every accepted trip hit the durable store exactly once; the
	// ledger was reset by GoOffline, so the store is the witness.
	trips := store.Trips()
	seen := make(map[string]bool, len(trips))
	for _, trip := range trips {
		if seen[trip.Request.ID] {
			t.Fatalf("trip %s recorded twice", trip.Request.ID)
		}
		seen[trip.Request.ID] = true
	}
}

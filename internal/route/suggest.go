package route

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/roadside-dispatch/internal/models"
)

// Searcher is the provider lookup behind the suggester.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.AddressSuggestion, error)
}

// Suggester debounces keystroke-driven address queries. A new query
// cancels the previous in-flight call; only the most recent query's
// results are ever delivered. Queries shorter than MinChars yield an
// empty batch without touching the network.
type Suggester struct {
	searcher Searcher
	minChars int
	debounce time.Duration

	// OnResults, when set, receives each delivered batch. Called
	// without internal locks held.
	OnResults func(query string, results []models.AddressSuggestion)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	latest []models.AddressSuggestion
}

func NewSuggester(searcher Searcher, minChars int, debounce time.Duration) *Suggester {
	if minChars <= 0 {
		minChars = 3
	}
	return &Suggester{searcher: searcher, minChars: minChars, debounce: debounce}
}

// Query submits a new partial query, superseding any in-flight one.
func (s *Suggester) Query(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if len([]rune(query)) < s.minChars {
		s.latest = nil
		s.mu.Unlock()
		s.deliver(query, nil)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, gen, query)
}

func (s *Suggester) run(ctx context.Context, gen uint64, query string) {
	if s.debounce > 0 {
		t := time.NewTimer(s.debounce)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		// A newer query superseded this one; drop the batch.
		s.mu.Unlock()
		return
	}
	s.latest = results
	s.mu.Unlock()
	s.deliver(query, results)
}

func (s *Suggester) deliver(query string, results []models.AddressSuggestion) {
	if s.OnResults != nil {
		s.OnResults(query, results)
	}
}

// Latest returns the most recently completed batch.
func (s *Suggester) Latest() []models.AddressSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AddressSuggestion, len(s.latest))
	copy(out, s.latest)
	return out
}

// CancelInflight aborts any pending lookup; used when the driver goes
// offline.
func (s *Suggester) CancelInflight() {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

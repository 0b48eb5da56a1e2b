package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExpireFiresOnce(t *testing.T) {
	var fired int32
	tm := Start(10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expected exactly one expiry, got %d", n)
	}
	if tm.Cancel() {
		t.Fatal("cancel after expiry should be a no-op")
	}
}

func TestCancelSuppressesExpiry(t *testing.T) {
	var fired int32
	tm := Start(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	if !tm.Cancel() {
		t.Fatal("expected cancel to win")
	}
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Fatalf("expiry fired after cancel: %d", n)
	}
}

func TestCancelIdempotent(t *testing.T) {
	tm := Start(time.Hour, func() {})
	if !tm.Cancel() {
		t.Fatal("first cancel should succeed")
	}
	if tm.Cancel() {
		t.Fatal("second cancel should be a no-op")
	}
}

func TestCancelExpiryRace(t *testing.T) {
	// Under any interleaving, either cancel wins and the callback never
	// runs, or expiry wins exactly once.
	for i := 0; i < 100; i++ {
		var fired int32
		tm := Start(time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			tm.Cancel()
		}()
		wg.Wait()
		time.Sleep(5 * time.Millisecond)
		if n := atomic.LoadInt32(&fired); n > 1 {
			t.Fatalf("iteration %d: expiry fired %d times", i, n)
		}
	}
}

func TestRemainingFloorsAtZero(t *testing.T) {
	tm := Start(5*time.Millisecond, func() {})
	if tm.Remaining() <= 0 {
		t.Fatal("expected positive remaining right after start")
	}
	time.Sleep(20 * time.Millisecond)
	if r := tm.Remaining(); r != 0 {
		t.Fatalf("expected zero remaining after expiry, got %v", r)
	}
}

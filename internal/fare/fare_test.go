package fare

import (
	"errors"
	"testing"
)

func TestComputeFareBelowMinimumChargesBase(t *testing.T) {
	table := DefaultTable()
	// Towing: base 150.00, 8.50/km beyond 5km. 3km is inside the minimum.
	amt, err := table.ComputeFare("1", 3000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amt != 15000 {
		t.Fatalf("expected 15000 cents, got %d", amt)
	}
}

func TestComputeFareBeyondMinimum(t *testing.T) {
	table := DefaultTable()
	// 12km towing: 150 + (12-5)*8.50 = 209.50
	amt, err := table.ComputeFare("1", 12000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amt != 20950 {
		t.Fatalf("expected 20950 cents, got %d", amt)
	}
	if amt.String() != "209.50" {
		t.Fatalf("expected display 209.50, got %s", amt.String())
	}
}

func TestComputeFareDeterministic(t *testing.T) {
	table := DefaultTable()
	a1, err := table.ComputeFare("2", 7345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := table.ComputeFare("2", 7345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1 != a2 {
		t.Fatalf("fare not deterministic: %d vs %d", a1, a2)
	}
}

func TestComputeFareUnknownType(t *testing.T) {
	table := DefaultTable()
	if _, err := table.ComputeFare("99", 1000); !errors.Is(err, ErrUnknownServiceType) {
		t.Fatalf("expected ErrUnknownServiceType, got %v", err)
	}
}

func TestComputeFareExactMinimumBoundary(t *testing.T) {
	table := DefaultTable()
	amt, err := table.ComputeFare("1", 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amt != 15000 {
		t.Fatalf("expected base rate at the boundary, got %d", amt)
	}
}

func TestComputeFareNeverNegative(t *testing.T) {
	table := NewTable([]Rule{{ServiceTypeID: "z", BaseRateCents: 0, PerKmRateCents: 100, MinimumBillableKm: 10}})
	amt, err := table.ComputeFare("z", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amt < 0 {
		t.Fatalf("fare went negative: %d", amt)
	}
}

package fare

import (
	"fmt"
	"math"
)

// Amount is a money value in integer cents. Aggregating trip fares in
// cents keeps session totals exact; rounding to two decimals happens
// only when formatting for display.
type Amount int64

func (a Amount) String() string {
	return fmt.Sprintf("%.2f", float64(a)/100)
}

// Rule prices one service type. Rates are in cents; the minimum
// billable distance is included in the base rate.
type Rule struct {
	ServiceTypeID     string
	Name              string
	BaseRateCents     Amount
	PerKmRateCents    Amount
	MinimumBillableKm float64
}

// ErrUnknownServiceType is returned when a fare lookup references a
// service type the table does not price.
var ErrUnknownServiceType = fmt.Errorf("unknown service type")

// Table maps service type IDs to pricing rules. Loaded once at process
// start and never mutated afterwards.
type Table struct {
	rules map[string]Rule
}

func NewTable(rules []Rule) *Table {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.ServiceTypeID] = r
	}
	return &Table{rules: m}
}

// DefaultTable covers the built-in roadside service types.
func DefaultTable() *Table {
	return NewTable([]Rule{
		{ServiceTypeID: "1", Name: "Towing", BaseRateCents: 15000, PerKmRateCents: 850, MinimumBillableKm: 5},
		{ServiceTypeID: "2", Name: "Flat Tire", BaseRateCents: 8000, PerKmRateCents: 600, MinimumBillableKm: 3},
		{ServiceTypeID: "3", Name: "Battery Jump", BaseRateCents: 6500, PerKmRateCents: 500, MinimumBillableKm: 3},
		{ServiceTypeID: "4", Name: "Fuel Delivery", BaseRateCents: 5000, PerKmRateCents: 450, MinimumBillableKm: 2},
		{ServiceTypeID: "5", Name: "Lockout", BaseRateCents: 7000, PerKmRateCents: 400, MinimumBillableKm: 2},
	})
}

// Rule returns the pricing rule for a service type.
func (t *Table) Rule(serviceTypeID string) (Rule, bool) {
	r, ok := t.rules[serviceTypeID]
	return r, ok
}

// ComputeFare prices a trip of distanceMeters for the given service
// type. Billable distance is the trip length minus the included
// minimum, floored at zero, so short trips pay exactly the base rate.
func (t *Table) ComputeFare(serviceTypeID string, distanceMeters float64) (Amount, error) {
	r, ok := t.rules[serviceTypeID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceTypeID)
	}
	km := distanceMeters / 1000.0
	billable := km - r.MinimumBillableKm
	if billable < 0 {
		billable = 0
	}
	variable := Amount(math.Round(billable * float64(r.PerKmRateCents)))
	return r.BaseRateCents + variable, nil
}

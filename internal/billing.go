package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk and command-line date format.
const DateLayout = "2006-01-02"

// DefaultAlertThreshold is how many days ahead a renewal counts as expiring soon.
const DefaultAlertThreshold = 3

type BillingCycle string

const (
	CycleMonthly      BillingCycle = "Monthly"
	CycleQuarterly    BillingCycle = "Quarterly"
	CycleSemiAnnually BillingCycle = "Semi-Annually"
	CycleAnnually     BillingCycle = "Annually"
	CycleBiennially   BillingCycle = "Biennially"
	CycleTriennially  BillingCycle = "Triennially"
)

// BillingCycles lists the cycles in display order.
var BillingCycles = []BillingCycle{
	CycleMonthly,
	CycleQuarterly,
	CycleSemiAnnually,
	CycleAnnually,
	CycleBiennially,
	CycleTriennially,
}

// cycleDays are fixed day counts, not calendar months.
var cycleDays = map[BillingCycle]int{
	CycleMonthly:      30,
	CycleQuarterly:    90,
	CycleSemiAnnually: 182,
	CycleAnnually:     365,
	CycleBiennially:   730,
	CycleTriennially:  1095,
}

// legacyPeriods maps the lowercase billingPeriod values written by the
// start-date based variant of the tool onto cycles.
var legacyPeriods = map[string]BillingCycle{
	"monthly":    CycleMonthly,
	"quarterly":  CycleQuarterly,
	"semiannual": CycleSemiAnnually,
	"annual":     CycleAnnually,
	"biennial":   CycleBiennially,
	"triennial":  CycleTriennially,
}

// Valid reports whether c is one of the known cycles.
func (c BillingCycle) Valid() bool {
	_, ok := cycleDays[c]
	return ok
}

// ParseBillingCycle accepts a cycle name case-insensitively, as well as the
// legacy billingPeriod spellings.
func ParseBillingCycle(s string) (BillingCycle, error) {
	s = strings.TrimSpace(s)
	for _, c := range BillingCycles {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	if c, ok := legacyPeriods[strings.ToLower(s)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q (expected one of %v)", ErrInvalidCycle, s, BillingCycles)
}

// CycleDays returns the fixed length of a cycle in days.
func CycleDays(c BillingCycle) (int, error) {
	days, ok := cycleDays[c]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCycle, string(c))
	}
	return days, nil
}

// ComputeDueDate returns anchor plus the cycle length in calendar days.
func ComputeDueDate(c BillingCycle, anchor time.Time) (time.Time, error) {
	days, err := CycleDays(c)
	if err != nil {
		return time.Time{}, err
	}
	return truncateToDate(anchor).AddDate(0, 0, days), nil
}

// ValidateDueDate parses a strict YYYY-MM-DD date.
func ValidateDueDate(text string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", ErrInvalidDate, text)
	}
	return t, nil
}

// DaysRemaining counts whole calendar days from today until due.
// Negative means overdue, zero means due today.
func DaysRemaining(due, today time.Time) int {
	// seconds between two UTC midnights, so the division is exact
	secs := truncateToDate(due).Unix() - truncateToDate(today).Unix()
	return int(secs / 86400)
}

// IsExpiringSoon is true for 0 < days remaining <= threshold.
// Renewals due today or already overdue fall outside the band.
func IsExpiringSoon(due, today time.Time, threshold int) bool {
	days := DaysRemaining(due, today)
	return days > 0 && days <= threshold
}

// YearlyCost scales a per-cycle cost to a 365-day year.
func YearlyCost(cost decimal.Decimal, c BillingCycle) (decimal.Decimal, error) {
	days, err := CycleDays(c)
	if err != nil {
		return decimal.Zero, err
	}
	return cost.Mul(decimal.NewFromInt(365)).Div(decimal.NewFromInt(int64(days))), nil
}

// truncateToDate drops the clock part, keeping the calendar date in UTC so
// that day differences are never skewed by DST transitions.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

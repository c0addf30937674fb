package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Alert is a record whose renewal falls inside the alert window.
type Alert struct {
	Name     string
	DueDate  time.Time
	DaysLeft int
}

func (a Alert) String() string {
	unit := "days"
	if a.DaysLeft == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%s: %d %s left (due %s)", a.Name, a.DaysLeft, unit, a.DueDate.Format(DateLayout))
}

// Scan returns an alert for each record expiring within threshold days of
// today, in record order. Records without a usable date are skipped.
func Scan(records []Record, today time.Time, threshold int) []Alert {
	var alerts []Alert
	for _, rec := range records {
		due, ok := rec.DueDate()
		if !ok {
			continue
		}
		if !IsExpiringSoon(due, today, threshold) {
			continue
		}
		alerts = append(alerts, Alert{
			Name:     rec.Name,
			DueDate:  due,
			DaysLeft: DaysRemaining(due, today),
		})
	}
	return alerts
}

// AlertLines renders alerts one per line.
func AlertLines(alerts []Alert) []string {
	lines := make([]string, len(alerts))
	for i, a := range alerts {
		lines[i] = a.String()
	}
	return lines
}

// ExpiryMessage builds the notification text for a non-empty alert list.
func ExpiryMessage(alerts []Alert, now time.Time) string {
	var b strings.Builder
	b.WriteString("VPS renewal reminder\n")
	fmt.Fprintf(&b, "Checked at: %s\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Join(AlertLines(alerts), "\n"))
	return b.String()
}

// CheckExpiring scans records and, when anything is expiring, sends one
// reminder through n. Delivery failures are logged only.
func CheckExpiring(ctx context.Context, records []Record, now time.Time, threshold int, n Notifier, logger *zap.Logger) []Alert {
	alerts := Scan(records, now, threshold)
	if len(alerts) == 0 {
		return nil
	}
	NotifyBestEffort(ctx, n, logger, ExpiryMessage(alerts, now))
	return alerts
}

package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one element of the embedded array, before migration.
type RawRecord map[string]json.RawMessage

// Record is a leased server as held in memory.
type Record struct {
	Name         string
	Cost         decimal.Decimal
	Currency     string
	BillingCycle BillingCycle
	NextDueDate  string
	URL          string

	// Legacy fields. They stay on the record until it becomes canonical.
	ExpireDate       string
	MonthlyExpireDay int
	BillingPeriod    string

	// Extra holds keys this tool does not manage; they are written back unchanged.
	Extra map[string]json.RawMessage

	// dueFromLegacy marks a NextDueDate that was derived from expireDate
	// rather than stored as nextDueDate.
	dueFromLegacy bool

	// raw is set when the stored object could not be decoded at all.
	raw RawRecord
}

// IsCanonical reports whether the record has a known cycle and a stored due date.
func (r Record) IsCanonical() bool {
	return r.raw == nil && r.BillingCycle.Valid() && r.NextDueDate != "" && !r.dueFromLegacy
}

// IsLegacy reports whether the record lacks both billingCycle and nextDueDate as stored.
func (r Record) IsLegacy() bool {
	return r.raw == nil && r.BillingCycle == "" && (r.NextDueDate == "" || r.dueFromLegacy)
}

// IsUnreadable reports whether the record failed to decode and is kept verbatim.
func (r Record) IsUnreadable() bool {
	return r.raw != nil
}

// DueDate resolves the next renewal date, falling back to a legacy expireDate.
// The second result is false when no parseable date is available.
func (r Record) DueDate() (time.Time, bool) {
	if r.raw != nil {
		return time.Time{}, false
	}
	text := r.NextDueDate
	if text == "" {
		text = r.ExpireDate
	}
	if text == "" {
		return time.Time{}, false
	}
	t, err := ValidateDueDate(text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ScheduleText describes the renewal schedule for listings.
func (r Record) ScheduleText() string {
	switch {
	case r.raw != nil:
		return "unreadable"
	case r.IsCanonical():
		return string(r.BillingCycle)
	case r.MonthlyExpireDay > 0 && r.NextDueDate == "":
		return fmt.Sprintf("legacy: day %d monthly", r.MonthlyExpireDay)
	default:
		return "legacy"
	}
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return encodeNoEscape(map[string]json.RawMessage(r.raw))
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		encoded, err := encodeNoEscape(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := encodeNoEscape(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(encoded)
		return nil
	}

	canonical := r.IsCanonical()
	fields := []struct {
		key   string
		value any
		keep  bool
	}{
		{"name", r.Name, true},
		{"cost", json.RawMessage(r.Cost.String()), true},
		{"currency", r.Currency, true},
		{"billingCycle", string(r.BillingCycle), r.BillingCycle != ""},
		{"nextDueDate", r.NextDueDate, r.NextDueDate != "" && !r.dueFromLegacy},
		{"billingPeriod", r.BillingPeriod, !canonical && r.BillingPeriod != ""},
		{"expireDate", r.ExpireDate, !canonical && r.ExpireDate != ""},
		{"monthlyExpireDay", r.MonthlyExpireDay, !canonical && r.MonthlyExpireDay != 0},
		{"url", r.URL, true},
	}
	for _, f := range fields {
		if !f.keep {
			continue
		}
		if err := write(f.key, f.value); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, r.Extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeNoEscape marshals v without HTML escaping, so URLs keep their '&'.
func encodeNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// cloneRecord copies the maps so that edits never alias the original.
func cloneRecord(r Record) Record {
	if r.Extra != nil {
		extra := make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	if r.raw != nil {
		raw := make(RawRecord, len(r.raw))
		for k, v := range r.raw {
			raw[k] = v
		}
		r.raw = raw
	}
	return r
}

// displayName returns a name for an unreadable record where possible.
func (r Record) displayName() string {
	if r.raw == nil {
		return r.Name
	}
	var name string
	if err := json.Unmarshal(r.raw["name"], &name); err == nil && name != "" {
		return name
	}
	return "(unreadable record)"
}

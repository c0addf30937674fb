package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// managedKeys are decoded into Record fields; every other key goes to Extra.
var managedKeys = map[string]bool{
	"name":             true,
	"cost":             true,
	"currency":         true,
	"billingCycle":     true,
	"nextDueDate":      true,
	"url":              true,
	"expireDate":       true,
	"monthlyExpireDay": true,
	"billingPeriod":    true,
}

// Normalize converts a raw record of either schema into a Record.
//
// Canonical records (billingCycle + nextDueDate) are copied through.
// A billingPeriod + expireDate record is migrated to its canonical cycle.
// A bare expireDate becomes the due date with the cycle left unset.
// A monthlyExpireDay record gets no due date; a person has to supply one.
//
// When a field cannot be decoded the returned Record wraps raw verbatim and
// the error says why, so callers can keep it instead of dropping it.
func Normalize(raw RawRecord) (Record, error) {
	r, err := decodeRecord(raw)
	if err != nil {
		return Record{raw: raw}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if r.BillingCycle != "" && r.NextDueDate != "" {
		return r, nil
	}

	if r.BillingCycle == "" && r.NextDueDate == "" && r.BillingPeriod != "" && r.ExpireDate != "" {
		c, ok := legacyPeriods[strings.ToLower(r.BillingPeriod)]
		if _, err := ValidateDueDate(r.ExpireDate); ok && err == nil {
			r.BillingCycle = c
			r.NextDueDate = r.ExpireDate
			return r, nil
		}
	}

	if r.NextDueDate == "" && r.ExpireDate != "" {
		r.NextDueDate = r.ExpireDate
		r.dueFromLegacy = true
	}
	return r, nil
}

// Finalize drops legacy fields once the record has both a cycle and a valid
// due date. It is idempotent and safe to call before every save.
func Finalize(r Record) Record {
	if r.raw != nil {
		return r
	}
	if r.dueFromLegacy && r.BillingCycle.Valid() {
		// a cycle was supplied for a bare expireDate record; an unparseable
		// expireDate stays legacy rather than becoming nextDueDate
		if _, err := ValidateDueDate(r.NextDueDate); err == nil {
			r.dueFromLegacy = false
		}
	}
	if !r.IsCanonical() {
		return r
	}
	r.ExpireDate = ""
	r.MonthlyExpireDay = 0
	r.BillingPeriod = ""
	return r
}

func decodeRecord(raw RawRecord) (Record, error) {
	var r Record
	fields := []struct {
		key string
		dst any
	}{
		{"name", &r.Name},
		{"cost", &r.Cost},
		{"currency", &r.Currency},
		{"nextDueDate", &r.NextDueDate},
		{"url", &r.URL},
		{"expireDate", &r.ExpireDate},
		{"billingPeriod", &r.BillingPeriod},
	}
	for _, f := range fields {
		if err := decodeField(raw, f.key, f.dst); err != nil {
			return Record{}, err
		}
	}

	var cycle string
	if err := decodeField(raw, "billingCycle", &cycle); err != nil {
		return Record{}, err
	}
	// unknown cycle names are kept verbatim; the record is simply not canonical
	r.BillingCycle = BillingCycle(cycle)
	if cycle != "" {
		if c, err := ParseBillingCycle(cycle); err == nil {
			r.BillingCycle = c
		}
	}

	day, err := decodeDay(raw["monthlyExpireDay"])
	if err != nil {
		return Record{}, err
	}
	r.MonthlyExpireDay = day

	if r.Cost.IsNegative() {
		return Record{}, fmt.Errorf("cost %s is negative", r.Cost)
	}

	for k, v := range raw {
		if managedKeys[k] {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = v
	}
	return r, nil
}

func decodeField(raw RawRecord, key string, dst any) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// decodeDay accepts the day of month as a number or a numeric string.
func decodeDay(v json.RawMessage) (int, error) {
	if len(v) == 0 || string(v) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, fmt.Errorf("field %q: not a number", "monthlyExpireDay")
		}
		n = json.Number(strings.TrimSpace(s))
	}
	day, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("field %q: %q is not a whole day", "monthlyExpireDay", n)
		}
		day = int(f)
	}
	if day < 1 || day > 31 {
		return 0, fmt.Errorf("field %q: %d is outside 1-31", "monthlyExpireDay", day)
	}
	return day, nil
}

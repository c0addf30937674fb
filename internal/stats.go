package internal

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CurrencyStat aggregates the records billed in one currency.
type CurrencyStat struct {
	Currency string
	Count    int
	Total    decimal.Decimal
	// InBase is Total converted to the table's base currency; valid when Converted.
	InBase    decimal.Decimal
	Converted bool
	// YearlyInBase is the 365-day run-rate of the canonical records, in the base currency.
	YearlyInBase decimal.Decimal
}

// FleetStats is the per-currency breakdown plus totals in the base currency.
type FleetStats struct {
	Base       string
	Servers    int
	Currencies []CurrencyStat
	// Total sums the converted currencies only; Unconverted lists the rest.
	Total       decimal.Decimal
	YearlyTotal decimal.Decimal
	Unconverted []string
}

// ComputeStats groups readable records by currency and converts totals with table.
func ComputeStats(records []Record, table RateTable) FleetStats {
	byCurrency := make(map[string]*CurrencyStat)
	yearly := make(map[string]decimal.Decimal)
	stats := FleetStats{Base: table.Base}

	for _, rec := range records {
		if rec.IsUnreadable() {
			continue
		}
		stats.Servers++
		s, ok := byCurrency[rec.Currency]
		if !ok {
			s = &CurrencyStat{Currency: rec.Currency}
			byCurrency[rec.Currency] = s
		}
		s.Count++
		s.Total = s.Total.Add(rec.Cost)

		if rec.BillingCycle.Valid() {
			if y, err := YearlyCost(rec.Cost, rec.BillingCycle); err == nil {
				yearly[rec.Currency] = yearly[rec.Currency].Add(y)
			}
		}
	}

	codes := make([]string, 0, len(byCurrency))
	for code := range byCurrency {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		s := byCurrency[code]
		if inBase, err := table.Convert(s.Total, code, table.Base); err == nil {
			s.InBase = inBase
			s.Converted = true
			stats.Total = stats.Total.Add(inBase)
			if y, err := table.Convert(yearly[code], code, table.Base); err == nil {
				s.YearlyInBase = y
				stats.YearlyTotal = stats.YearlyTotal.Add(y)
			}
		} else {
			stats.Unconverted = append(stats.Unconverted, code)
		}
		stats.Currencies = append(stats.Currencies, *s)
	}
	return stats
}

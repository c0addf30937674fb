package internal

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeStats(t *testing.T) {
	doc := `<script>const vpsServices = [
    {"name": "a", "cost": 10, "currency": "USD", "billingCycle": "Monthly", "nextDueDate": "2024-07-01"},
    {"name": "b", "cost": 20, "currency": "USD", "billingCycle": "Annually", "nextDueDate": "2025-01-01"},
    {"name": "c", "cost": 100, "currency": "CNY", "billingCycle": "Quarterly", "nextDueDate": "2024-09-01"},
    {"name": "d", "cost": 5, "currency": "THB", "expireDate": "2024-06-03"},
    {"name": "broken", "cost": "cheap"}
];</script>`
	records, _, err := LoadRecords(doc)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}

	table := RateTable{
		Base: "CNY",
		Rates: map[string]decimal.Decimal{
			"CNY": decimal.NewFromInt(1),
			"USD": decimal.RequireFromString("0.125"),
		},
	}
	s := ComputeStats(records, table)

	if s.Servers != 4 {
		t.Errorf("Servers = %d, want 4", s.Servers)
	}
	if len(s.Currencies) != 3 {
		t.Fatalf("got %d currencies, want 3", len(s.Currencies))
	}

	tests := []struct {
		currency  string
		count     int
		total     string
		inBase    string
		converted bool
	}{
		{"CNY", 1, "100", "100", true},
		{"THB", 1, "5", "0", false},
		{"USD", 2, "30", "240", true},
	}
	for i, tt := range tests {
		got := s.Currencies[i]
		if got.Currency != tt.currency {
			t.Fatalf("currency %d = %s, want %s", i, got.Currency, tt.currency)
		}
		if got.Count != tt.count {
			t.Errorf("%s count = %d, want %d", tt.currency, got.Count, tt.count)
		}
		if !got.Total.Equal(decimal.RequireFromString(tt.total)) {
			t.Errorf("%s total = %s, want %s", tt.currency, got.Total, tt.total)
		}
		if got.Converted != tt.converted {
			t.Errorf("%s converted = %v, want %v", tt.currency, got.Converted, tt.converted)
		}
		if !got.InBase.Equal(decimal.RequireFromString(tt.inBase)) {
			t.Errorf("%s in base = %s, want %s", tt.currency, got.InBase, tt.inBase)
		}
	}

	if !s.Total.Equal(decimal.NewFromInt(340)) {
		t.Errorf("Total = %s, want 340", s.Total)
	}
	if len(s.Unconverted) != 1 || s.Unconverted[0] != "THB" {
		t.Errorf("Unconverted = %v, want [THB]", s.Unconverted)
	}

	// USD: 10*365/30 + 20 = 141.666..., in CNY x8; CNY: 100*365/90
	wantYearly := decimal.RequireFromString("10").Mul(decimal.NewFromInt(365)).Div(decimal.NewFromInt(30)).
		Add(decimal.NewFromInt(20)).Div(decimal.RequireFromString("0.125")).
		Add(decimal.NewFromInt(100).Mul(decimal.NewFromInt(365)).Div(decimal.NewFromInt(90)))
	if !s.YearlyTotal.Round(2).Equal(wantYearly.Round(2)) {
		t.Errorf("YearlyTotal = %s, want %s", s.YearlyTotal.Round(2), wantYearly.Round(2))
	}
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, RateTable{Base: "USD"})
	if s.Servers != 0 || len(s.Currencies) != 0 || !s.Total.IsZero() {
		t.Errorf("expected empty stats, got %+v", s)
	}
	if s.Base != "USD" {
		t.Errorf("Base = %q, want USD", s.Base)
	}
}

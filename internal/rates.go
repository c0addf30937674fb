package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource returns rates relative to base: 1 base = rate units of currency.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

// HTTPRateSource queries JSON endpoints that answer with a "rates" object.
// URLs are tried in order; the first usable answer wins.
type HTTPRateSource struct {
	// URLTemplates contain one %s for the base currency
	URLTemplates []string
	Client       *http.Client
	Logger       *zap.Logger
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (s *HTTPRateSource) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := loggerOrNop(s.Logger)

	var errs []error
	for _, tmpl := range s.URLTemplates {
		url := fmt.Sprintf(tmpl, base)
		rates, err := fetchRatesFrom(ctx, client, url)
		if err != nil {
			logger.Warn("rate source failed", zap.String("url", url), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		return rates, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no rate sources configured", ErrIO)
	}
	return nil, fmt.Errorf("%w: all rate sources failed: %w", ErrIO, errors.Join(errs...))
}

func fetchRatesFrom(ctx context.Context, client *http.Client, url string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var body ratesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("response has no rates")
	}
	return body.Rates, nil
}

// RateTable holds rates for the supported currencies against Base.
type RateTable struct {
	Base      string
	Rates     map[string]decimal.Decimal
	UpdatedAt time.Time
}

// RefreshRates fetches rates for base and keeps the supported currencies.
// The base is always present with rate 1.
func RefreshRates(ctx context.Context, src RateSource, base string, now time.Time) (RateTable, error) {
	fetched, err := src.FetchRates(ctx, base)
	if err != nil {
		return RateTable{}, err
	}
	table := RateTable{
		Base:      base,
		Rates:     map[string]decimal.Decimal{base: decimal.NewFromInt(1)},
		UpdatedAt: now,
	}
	for _, code := range SupportedCurrencies {
		if code == base {
			continue
		}
		if rate, ok := fetched[code]; ok && rate > 0 {
			table.Rates[code] = decimal.NewFromFloat(rate)
		}
	}
	return table, nil
}

// Convert converts amount between two currencies of the table.
func (t RateTable) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := t.Rates[from]
	if !ok || !fromRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("no rate for %s", from)
	}
	toRate, ok := t.Rates[to]
	if !ok || !toRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("no rate for %s", to)
	}
	return amount.Div(fromRate).Mul(toRate), nil
}

// Codes returns the table's currencies in supported-currency order.
func (t RateTable) Codes() []string {
	var codes []string
	for _, c := range SupportedCurrencies {
		if _, ok := t.Rates[c]; ok {
			codes = append(codes, c)
		}
	}
	var others []string
	for c := range t.Rates {
		if !IsSupportedCurrency(c) {
			others = append(others, c)
		}
	}
	sort.Strings(others)
	return append(codes, others...)
}

// RatesSummary is the notification text for a refreshed table.
func RatesSummary(t RateTable) string {
	var b strings.Builder
	b.WriteString("Exchange rates updated\n\n")
	fmt.Fprintf(&b, "Updated at: %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Currencies: %d\n", len(t.Rates))
	fmt.Fprintf(&b, "Major rates (per 1 %s):\n", t.Base)
	for _, c := range MajorCurrencies {
		if rate, ok := t.Rates[c]; ok {
			fmt.Fprintf(&b, "%s: %s\n", c, rate.StringFixed(4))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

const (
	ratesOpenMarker  = "const exchangeRates = {"
	ratesCloseMarker = "};"
	ratesAssignment  = "const exchangeRates = "
	ratesStampPrefix = "// Exchange rates relative to "
)

// WriteRatesArtifact writes the rate table as a script the page can load.
// An existing file keeps everything outside the exchangeRates object.
func WriteRatesArtifact(path string, t RateTable) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: reading rates file: %v", ErrIO, err)
	}
	out := RenderRatesArtifact(string(existing), t)
	if err := atomic.WriteFile(path, strings.NewReader(out)); err != nil {
		return fmt.Errorf("%w: writing rates file: %v", ErrIO, err)
	}
	return nil
}

// RenderRatesArtifact splices t into existing, or renders a fresh script
// when existing holds no exchangeRates object.
func RenderRatesArtifact(existing string, t RateTable) string {
	stamp := fmt.Sprintf("%s%s - updated %s", ratesStampPrefix, t.Base, t.UpdatedAt.Format(time.RFC3339))
	value := ratesObject(t)

	sp, err := locateAssignment(existing, ratesOpenMarker, ratesAssignment, ratesCloseMarker)
	if err != nil {
		return stamp + "\n" + ratesAssignment + value + ";\n"
	}
	out := existing[:sp.start] + ratesAssignment + value + existing[sp.valueEnd:]
	if first, rest, ok := strings.Cut(out, "\n"); ok && strings.HasPrefix(first, ratesStampPrefix) {
		out = stamp + "\n" + rest
	}
	return out
}

func ratesObject(t RateTable) string {
	entries := make([]string, 0, len(t.Rates))
	for _, c := range t.Codes() {
		k, _ := encodeNoEscape(c)
		entries = append(entries, fmt.Sprintf("    %s: %s", k, t.Rates[c].String()))
	}
	if len(entries) == 0 {
		return "{}"
	}
	return "{\n" + strings.Join(entries, ",\n") + "\n}"
}

// LoadRatesArtifact reads a file written by WriteRatesArtifact.
func LoadRatesArtifact(path string) (RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RateTable{}, fmt.Errorf("%w: reading rates file: %v", ErrIO, err)
	}
	return ParseRatesArtifact(string(data))
}

// ParseRatesArtifact extracts the rate table from the script text.
func ParseRatesArtifact(text string) (RateTable, error) {
	sp, err := locateAssignment(text, ratesOpenMarker, ratesAssignment, ratesCloseMarker)
	if err != nil {
		return RateTable{}, err
	}

	var rates map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(text[sp.valueStart:sp.valueEnd]), &rates); err != nil {
		return RateTable{}, fmt.Errorf("%w: decoding rates: %v", ErrParse, err)
	}

	for code, rate := range rates {
		if !rate.IsPositive() {
			delete(rates, code)
		}
	}

	t := RateTable{Rates: rates}
	if line, _, ok := strings.Cut(text, "\n"); ok && strings.HasPrefix(line, ratesStampPrefix) {
		base, stamp, _ := strings.Cut(strings.TrimPrefix(line, ratesStampPrefix), " - updated ")
		t.Base = strings.TrimSpace(base)
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(stamp)); err == nil {
			t.UpdatedAt = ts
		}
	}
	if t.Base == "" {
		// files from older versions carry no header; the base is the currency at 1
		for code, rate := range rates {
			if rate.Equal(decimal.NewFromInt(1)) {
				t.Base = code
				break
			}
		}
	}
	return t, nil
}

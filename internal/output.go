package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// OutputOptions controls how records are displayed
type OutputOptions struct {
	Today     time.Time
	Threshold int
}

// JSONOutput is the root JSON output object for a listing
type JSONOutput struct {
	Records []JSONRecord `json:"records"`
	Summary JSONSummary  `json:"summary"`
}

// JSONSummary contains aggregate counts
type JSONSummary struct {
	Count      int `json:"count"`
	Legacy     int `json:"legacy"`
	Unreadable int `json:"unreadable"`
	Expiring   int `json:"expiring"`
}

// JSONRecord is the JSON output format for a record
type JSONRecord struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Cost         string `json:"cost,omitempty"`
	Currency     string `json:"currency,omitempty"`
	BillingCycle string `json:"billing_cycle,omitempty"`
	NextDueDate  string `json:"next_due_date,omitempty"`
	DaysLeft     *int   `json:"days_left,omitempty"`
	Status       string `json:"status"`
	URL          string `json:"url,omitempty"`
}

// PrintRecordsJSON outputs records in JSON format
func PrintRecordsJSON(w io.Writer, records []Record, opts OutputOptions) error {
	output := JSONOutput{Records: []JSONRecord{}}

	for i, rec := range records {
		jr := JSONRecord{
			Index:  i + 1,
			Name:   rec.displayName(),
			Status: recordStatus(rec),
		}
		if !rec.IsUnreadable() {
			jr.Cost = rec.Cost.String()
			jr.Currency = rec.Currency
			jr.BillingCycle = string(rec.BillingCycle)
			jr.URL = rec.URL
		}
		if due, ok := rec.DueDate(); ok {
			days := DaysRemaining(due, opts.Today)
			jr.NextDueDate = due.Format(DateLayout)
			jr.DaysLeft = &days
			if IsExpiringSoon(due, opts.Today, opts.Threshold) {
				output.Summary.Expiring++
			}
		}
		switch {
		case rec.IsUnreadable():
			output.Summary.Unreadable++
		case !rec.IsCanonical():
			output.Summary.Legacy++
		}
		output.Records = append(output.Records, jr)
	}
	output.Summary.Count = len(records)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(output)
}

func recordStatus(rec Record) string {
	switch {
	case rec.IsUnreadable():
		return "unreadable"
	case rec.IsCanonical():
		return "ok"
	default:
		return "legacy"
	}
}

// PrintRecordsTable outputs records as a formatted table
func PrintRecordsTable(w io.Writer, records []Record, opts OutputOptions) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No servers tracked yet")
		return
	}

	legacy := 0
	for _, rec := range records {
		if !rec.IsCanonical() {
			legacy++
		}
	}
	fmt.Fprintf(w, "Tracking %d servers", len(records))
	if legacy > 0 {
		fmt.Fprintf(w, " (%d need migration)", legacy)
	}
	fmt.Fprint(w, "\n\n")

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Name", "Cost", "Cycle", "Next Due", "Days Left", "URL"})

	for i, rec := range records {
		if rec.IsUnreadable() {
			t.AppendRow(table.Row{i + 1, rec.displayName(), "", text.FgRed.Sprint(rec.ScheduleText()), "", "", ""})
			continue
		}

		cycle := rec.ScheduleText()
		if !rec.IsCanonical() {
			cycle = text.FgYellow.Sprint(cycle)
		}

		dueStr := text.FgHiBlack.Sprint("-")
		daysStr := text.FgHiBlack.Sprint("-")
		if due, ok := rec.DueDate(); ok {
			days := DaysRemaining(due, opts.Today)
			dueStr = due.Format(DateLayout)
			daysStr = fmt.Sprintf("%d", days)
			switch {
			case IsExpiringSoon(due, opts.Today, opts.Threshold):
				daysStr = text.FgRed.Sprint(daysStr)
			case days <= 0:
				daysStr = text.FgHiBlack.Sprint(daysStr)
			default:
				daysStr = text.FgGreen.Sprint(daysStr)
			}
		}

		t.AppendRow(table.Row{i + 1, rec.Name, GetCurrency(rec.Currency).Format(rec.Cost), cycle, dueStr, daysStr, rec.URL})
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

// PrintAlerts outputs the expiring records, or a note that nothing is due
func PrintAlerts(w io.Writer, alerts []Alert, threshold int) {
	if len(alerts) == 0 {
		fmt.Fprintf(w, "No servers due within %d days\n", threshold)
		return
	}
	fmt.Fprintf(w, "%d servers due within %d days:\n", len(alerts), threshold)
	for _, line := range AlertLines(alerts) {
		fmt.Fprintf(w, "  %s\n", text.FgRed.Sprint(line))
	}
}

// JSONStats is the JSON output format for fleet statistics
type JSONStats struct {
	Base        string              `json:"base_currency"`
	Servers     int                 `json:"servers"`
	Total       string              `json:"total"`
	YearlyTotal string              `json:"yearly_total"`
	Currencies  []JSONCurrencyStats `json:"currencies"`
	Unconverted []string            `json:"unconverted,omitempty"`
}

// JSONCurrencyStats is one currency's row in JSONStats
type JSONCurrencyStats struct {
	Currency string `json:"currency"`
	Count    int    `json:"count"`
	Total    string `json:"total"`
	InBase   string `json:"in_base,omitempty"`
}

// PrintStatsJSON outputs statistics in JSON format
func PrintStatsJSON(w io.Writer, s FleetStats) error {
	out := JSONStats{
		Base:        s.Base,
		Servers:     s.Servers,
		Total:       s.Total.StringFixed(2),
		YearlyTotal: s.YearlyTotal.StringFixed(2),
		Currencies:  []JSONCurrencyStats{},
		Unconverted: s.Unconverted,
	}
	for _, c := range s.Currencies {
		jc := JSONCurrencyStats{Currency: c.Currency, Count: c.Count, Total: c.Total.StringFixed(2)}
		if c.Converted {
			jc.InBase = c.InBase.StringFixed(2)
		}
		out.Currencies = append(out.Currencies, jc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// PrintStatsTable outputs per-currency totals with a converted footer
func PrintStatsTable(w io.Writer, s FleetStats) {
	fmt.Fprintf(w, "Servers: %d\n\n", s.Servers)

	base := GetCurrency(s.Base)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Currency", "Servers", "Total", "In " + s.Base, "Yearly (" + s.Base + ")"})

	for _, c := range s.Currencies {
		inBase := text.FgHiBlack.Sprint("-")
		yearly := text.FgHiBlack.Sprint("-")
		if c.Converted {
			inBase = base.Format(c.InBase)
			yearly = base.Format(c.YearlyInBase)
		}
		t.AppendRow(table.Row{c.Currency, c.Count, GetCurrency(c.Currency).Format(c.Total), inBase, yearly})
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", text.Bold.Sprint("Total"), text.Bold.Sprint(base.Format(s.Total)), text.Bold.Sprint(base.Format(s.YearlyTotal))})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()

	if len(s.Unconverted) > 0 {
		fmt.Fprintf(w, "\nNo exchange rate for: %v (excluded from totals)\n", s.Unconverted)
	}
}

// PrintRatesTable outputs a rate table
func PrintRatesTable(w io.Writer, rt RateTable) {
	if !rt.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated: %s\n", rt.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Currency", "Per 1 " + rt.Base})
	for _, code := range rt.Codes() {
		t.AppendRow(table.Row{code, rt.Rates[code].StringFixed(4)})
	}
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
}

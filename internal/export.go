package internal

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Exporter writes the record set in some file format.
type Exporter interface {
	Export(w io.Writer, records []Record) error
}

// ExporterFunc is a function that implements Exporter
type ExporterFunc func(w io.Writer, records []Record) error

func (f ExporterFunc) Export(w io.Writer, records []Record) error {
	return f(w, records)
}

// exporters is the registry of available export formats
var exporters = map[string]Exporter{}

// RegisterExporter registers an exporter with the given name
func RegisterExporter(name string, e Exporter) {
	exporters[name] = e
}

// GetExporter returns the exporter for the given format
func GetExporter(format string) (Exporter, error) {
	e, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format: %s (available: %v)", format, AvailableExporters())
	}
	return e, nil
}

// AvailableExporters returns the registered format names, sorted
func AvailableExporters() []string {
	var names []string
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const exportSheet = "Servers"

var exportHeaders = []string{"Name", "Cost", "Currency", "Billing Cycle", "Next Due Date", "Status", "URL"}

// ExportXLSX writes one row per record to a single-sheet workbook.
func ExportXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cost, _ := rec.Cost.Float64()
		due := rec.NextDueDate
		if due == "" && rec.MonthlyExpireDay > 0 {
			due = fmt.Sprintf("day %d monthly", rec.MonthlyExpireDay)
		}
		row := []any{rec.displayName(), cost, rec.Currency, string(rec.BillingCycle), due, rec.ScheduleText(), rec.URL}
		if rec.IsUnreadable() {
			row = []any{rec.displayName(), nil, nil, nil, nil, rec.ScheduleText(), nil}
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	widths := map[string]float64{"A": 24, "B": 10, "C": 10, "D": 15, "E": 14, "F": 18, "G": 40}
	for col, width := range widths {
		if err := f.SetColWidth(exportSheet, col, col, width); err != nil {
			return fmt.Errorf("sizing column %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// ExportJSON writes the records as they would appear in the host document.
func ExportJSON(w io.Writer, records []Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}
	return nil
}

func init() {
	// Register built-in exporters
	RegisterExporter("xlsx", ExporterFunc(ExportXLSX))
	RegisterExporter("json", ExporterFunc(ExportJSON))
}

package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture(t *testing.T) []Record {
	t.Helper()
	doc := `<script>const vpsServices = [
    {"name": "Tokyo", "cost": 5.5, "currency": "USD", "billingCycle": "Monthly", "nextDueDate": "2024-07-01", "url": "https://a.example.com"},
    {"name": "old", "cost": 2, "currency": "CNY", "monthlyExpireDay": 15, "url": ""},
    {"name": "broken", "cost": "cheap"}
];</script>`
	records, _, err := LoadRecords(doc)
	require.NoError(t, err)
	return records
}

func TestAvailableExporters(t *testing.T) {
	assert.Equal(t, []string{"json", "xlsx"}, AvailableExporters())

	_, err := GetExporter("csv")
	assert.ErrorContains(t, err, "unknown export format")
}

func TestExportXLSX(t *testing.T) {
	exporter, err := GetExporter("xlsx")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.Export(&buf, exportFixture(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, []string{"Tokyo", "5.5", "USD", "Monthly", "2024-07-01", "Monthly", "https://a.example.com"}, rows[1])
	assert.Equal(t, []string{"old", "2", "CNY", "", "day 15 monthly", "legacy: day 15 monthly"}, rows[2])
	assert.Equal(t, "broken", rows[3][0])
	assert.Equal(t, "unreadable", rows[3][5])
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, exportFixture(t)))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "Tokyo", got[0]["name"])
	assert.Equal(t, float64(15), got[1]["monthlyExpireDay"])
	assert.Equal(t, "cheap", got[2]["cost"])
}

package report

import (
	"testing"
	"time"

	"tablify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange("2026-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)

	_, _, err = MonthRange("12/2026")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize("acme", "2026-03", []models.Extraction{
		{Status: models.StatusDone, RowCount: 3, CellCount: 9, DurationMS: 100},
		{Status: models.StatusDone, RowCount: 1, CellCount: 2, DurationMS: 300},
		{Status: models.StatusFailed, RowCount: 7, DurationMS: 200},
	})
	assert.Equal(t, Summary{Client: "acme", Month: "2026-03", Total: 3, Failed: 1, Rows: 4, Cells: 11, AvgMillis: 200}, s)

	assert.Equal(t, Summary{Month: "2026-03"}, Summarize("", "2026-03", nil))
}

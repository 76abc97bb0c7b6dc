// Package report summarizes recorded extractions per client and month.
package report

import (
	"fmt"
	"io"
	"time"

	"tablify/models"

	"gorm.io/gorm"
)

// Summary aggregates the extractions of one client over one month.
type Summary struct {
	Client    string
	Month     string
	Total     int
	Failed    int
	Rows      int
	Cells     int
	AvgMillis int64
}

// MonthRange returns the UTC bounds [start, end) of month given as YYYY-MM.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", month, err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Summarize folds extractions into a Summary. Failed extractions count toward
// Total and Failed only.
func Summarize(client, month string, list []models.Extraction) Summary {
	s := Summary{Client: client, Month: month, Total: len(list)}
	var ms int64
	for _, e := range list {
		ms += e.DurationMS
		if e.Status == models.StatusFailed {
			s.Failed++
			continue
		}
		s.Rows += e.RowCount
		s.Cells += e.CellCount
	}
	if s.Total > 0 {
		s.AvgMillis = ms / int64(s.Total)
	}
	return s
}

// Run prints the month report for client (all clients when empty) and, with
// list, one line per extraction.
func Run(w io.Writer, db *gorm.DB, client, month string, list bool) error {
	start, end, err := MonthRange(month)
	if err != nil {
		return err
	}
	q := db.Model(&models.Extraction{}).Omit("CSV").Where("created_at >= ? AND created_at < ?", start, end)
	if client != "" {
		q = q.Where("client_name = ?", client)
	}
	var rows []models.Extraction
	if err := q.Order("created_at").Find(&rows).Error; err != nil {
		return fmt.Errorf("query extractions: %w", err)
	}

	s := Summarize(client, month, rows)
	name := s.Client
	if name == "" {
		name = "*"
	}
	fmt.Fprintf(w, "Report for client=%s month=%s (UTC):\n", name, s.Month)
	fmt.Fprintf(w, "  extractions=%d failed=%d rows=%d cells=%d avg_ms=%d\n", s.Total, s.Failed, s.Rows, s.Cells, s.AvgMillis)
	if list {
		for _, r := range rows {
			fmt.Fprintf(w, "%s|%s|%s|%s|%d|%d|%s\n", r.ID, r.ClientName, r.FileName, r.Status, r.RowCount, r.CellCount, r.CreatedAt.Format(time.RFC3339))
		}
	}
	return nil
}

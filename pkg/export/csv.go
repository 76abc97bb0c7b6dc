package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes one line per row with no header. Rows keep their own
// length; fields containing a comma, quote or line break are quoted.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if len(row) == 1 && row[0] == "" {
			// encoding/csv writes a blank line here, which readers skip.
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Package export writes the pipeline's output artifacts: the gap record
// table and the aggregate summary, as CSV or JSON. Values round-trip at full
// numeric precision; undefined values stay empty, never zero.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/yieldgap-cli/internal/decompose"
	"github.com/sells-group/yieldgap-cli/internal/model"
)

// RecordsCSV writes gap records as CSV.
func RecordsCSV(w io.Writer, records []*model.GapRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "export: encode gap record")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush records csv")
}

// AggregatesCSV writes group summaries as CSV.
func AggregatesCSV(w io.Writer, aggregates []decompose.GroupSummary) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for i := range aggregates {
		if err := enc.Encode(&aggregates[i]); err != nil {
			return eris.Wrap(err, "export: encode aggregate")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush aggregates csv")
}

// JSON writes any artifact as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "export: encode json")
}

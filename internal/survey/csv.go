package survey

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/yieldgap-cli/internal/model"
)

// csvRow captures the fixed identifier columns; covariates are read from the
// unused columns by header name.
type csvRow struct {
	HouseholdID string `csv:"household_id"`
	PlotID      string `csv:"plot_id"`
	SubplotID   string `csv:"subplot_id"`
	Year        int    `csv:"year"`
}

// ReadObservations decodes a survey CSV into observations. The identifier
// columns are fixed; every other column is routed by the spec: the response
// and continuous covariates are parsed as floats, declared categoricals are
// kept as labels, and undeclared columns are ignored. Unparsable numerics are
// reported as DataError values alongside the successfully decoded rows; the
// batch is not aborted on the first bad cell.
func ReadObservations(r io.Reader, spec *Spec) ([]*model.Observation, []error, error) {
	csvr := csv.NewReader(r)
	csvr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(csvr)
	if err != nil {
		return nil, nil, eris.Wrap(err, "survey: read csv header")
	}
	header := dec.Header()

	continuous := make(map[string]bool, len(spec.Continuous))
	for _, v := range spec.Continuous {
		continuous[v.Name] = true
	}
	categorical := make(map[string]bool, len(spec.Categorical))
	for _, v := range spec.Categorical {
		categorical[v.Name] = true
	}

	var (
		obs      []*model.Observation
		rowErrs  []error
		rowIndex int
	)
	for {
		rowIndex++
		var row csvRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, eris.Wrapf(err, "survey: decode csv row %d", rowIndex)
		}

		o := &model.Observation{
			HouseholdID: row.HouseholdID,
			PlotID:      row.PlotID,
			SubplotID:   row.SubplotID,
			Year:        row.Year,
			Continuous:  make(map[string]float64),
			Categorical: make(map[string]string),
		}

		bad := false
		record := dec.Record()
		for _, i := range dec.Unused() {
			name := header[i]
			raw := strings.TrimSpace(record[i])
			switch {
			case name == spec.Response:
				v, perr := strconv.ParseFloat(raw, 64)
				if perr != nil {
					rowErrs = append(rowErrs, &DataError{Row: rowIndex, Column: name, Reason: "unparsable response: " + raw})
					bad = true
					continue
				}
				o.Ya = v
			case continuous[name]:
				if raw == "" {
					// Missing optional covariates are resolved by Prepare.
					continue
				}
				v, perr := strconv.ParseFloat(raw, 64)
				if perr != nil {
					rowErrs = append(rowErrs, &DataError{Row: rowIndex, Column: name, Reason: "unparsable number: " + raw})
					bad = true
					continue
				}
				o.Continuous[name] = v
			case categorical[name]:
				o.Categorical[name] = raw
			}
		}
		if !bad {
			obs = append(obs, o)
		}
	}

	return obs, rowErrs, nil
}

// ReadObservationsFile is ReadObservations over a file path.
func ReadObservationsFile(path string, spec *Spec) ([]*model.Observation, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "survey: open %s", path)
	}
	defer f.Close()
	return ReadObservations(f, spec)
}

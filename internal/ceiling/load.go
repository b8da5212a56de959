package ceiling

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// Input is the document the external spatial/API collaborator delivers: one
// candidate list per field plus the national-average series per country.
type Input struct {
	Fields   []FieldInput      `json:"fields"`
	National map[string]Series `json:"national"`
}

// LoadInput reads a candidates document from a JSON file.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ceiling: read %s", path)
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, eris.Wrapf(err, "ceiling: parse %s", path)
	}
	seen := make(map[string]bool, len(in.Fields))
	for _, f := range in.Fields {
		if f.FieldID == "" {
			return nil, eris.New("ceiling: candidate entry with empty field_id")
		}
		if seen[f.FieldID] {
			return nil, eris.Errorf("ceiling: duplicate field_id %q", f.FieldID)
		}
		seen[f.FieldID] = true
	}
	return &in, nil
}

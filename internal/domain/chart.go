package domain

import "encoding/json"

// ChartPoint is one entry of a chart payload. Category and Value are the
// minimal required fields; anything else the server sends rides along in
// Extra and is passed through opaquely for rendering and export.
type ChartPoint struct {
	Category string
	Value    float64
	Extra    map[string]any
}

// Row is a single string-keyed record of a tabular result.
type Row map[string]any

// RowSet is an ordered sequence of rows, as returned by SQL execution.
type RowSet []Row

// MarshalJSON flattens the point back into the wire shape
// {"category": ..., "value": ..., <extra fields>}.
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["category"] = p.Category
	m["value"] = p.Value
	return json.Marshal(m)
}

// UnmarshalJSON accepts both {"category", "value"} and the legacy
// {"name", "value"} shape; unknown fields are kept in Extra.
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if v, ok := m["category"].(string); ok {
		p.Category = v
		delete(m, "category")
	} else if v, ok := m["name"].(string); ok {
		p.Category = v
		delete(m, "name")
	}

	if v, ok := m["value"].(float64); ok {
		p.Value = v
		delete(m, "value")
	}

	if len(m) > 0 {
		p.Extra = m
	}
	return nil
}

// ChartRows converts a chart payload to a row set for export.
func ChartRows(points []ChartPoint) RowSet {
	if len(points) == 0 {
		return nil
	}
	rows := make(RowSet, 0, len(points))
	for _, p := range points {
		row := Row{"category": p.Category, "value": p.Value}
		for k, v := range p.Extra {
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows
}

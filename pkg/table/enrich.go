package table

// Enrichment is one AI-computed addition for a row, keyed by step ID.
// Fields mirror the enrichment endpoint contract.
type Enrichment struct {
	ID         string `json:"id"`
	Label      string `json:"label,omitempty"`
	Actor      string `json:"actor,omitempty"`
	Department string `json:"department,omitempty"`
	Tool       string `json:"tool,omitempty"`
}

// Merge applies enrichments to rows, filling only columns that are still
// empty. Rows are matched by ID; enrichments without a matching row are
// ignored. The input slice is not mutated.
func Merge(rows []Row, enrichments []Enrichment) []Row {
	byID := make(map[string]Enrichment, len(enrichments))
	for _, e := range enrichments {
		byID[e.ID] = e
	}

	out := make([]Row, len(rows))
	for i, row := range rows {
		if e, ok := byID[row.ID]; ok {
			if row.Task == "" && e.Label != "" {
				row.Task = e.Label
			}
			if row.Service == "" {
				switch {
				case e.Actor != "":
					row.Service = e.Actor
				case e.Department != "":
					row.Service = e.Department
				}
			}
			// Tool has no table column yet; carried for the API contract only.
		}
		out[i] = row
	}
	return out
}

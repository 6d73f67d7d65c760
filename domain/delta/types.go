package delta

// Mode is the response-mode subset a percentile vector was computed over.
type Mode string

const (
	ModeOverall  Mode = "overall"
	ModeAccurate Mode = "accurate"
	ModeError    Mode = "error"
)

// Modes lists the three fixed response modes in canonical order.
func Modes() []Mode {
	return []Mode{ModeOverall, ModeAccurate, ModeError}
}

// Row is one (participant, condition, mode) RT percentile vector.
// Percentiles[i] corresponds to the i-th rank of the configured percentile
// set; values are non-decreasing in rank for any non-empty sample.
type Row struct {
	Pnum        int       `json:"pnum" db:"pnum"`
	Condition   int       `json:"condition" db:"condition"`
	Mode        Mode      `json:"mode" db:"mode"`
	Percentiles []float64 `json:"percentiles"`
}

// Table is the derived delta-plot summary, one Row per
// (pnum, condition, mode) with a non-empty trial subset.
type Table struct {
	Ranks []float64 `json:"ranks"` // the percentile ranks, e.g. [10 30 50 70 90]
	Rows  []Row     `json:"rows"`
}

// ForParticipant returns the rows belonging to one participant, preserving order.
func (t Table) ForParticipant(pnum int) []Row {
	var rows []Row
	for _, r := range t.Rows {
		if r.Pnum == pnum {
			rows = append(rows, r)
		}
	}
	return rows
}

// Lookup returns the row for an exact (pnum, condition, mode) key.
func (t Table) Lookup(pnum, condition int, mode Mode) (Row, bool) {
	for _, r := range t.Rows {
		if r.Pnum == pnum && r.Condition == condition && r.Mode == mode {
			return r, true
		}
	}
	return Row{}, false
}

package model

import "fmt"

// Trace is a completed posterior sample set keyed by parameter name, with a
// (chain, draw) layout per parameter. Produced once per sampling run and
// read-only afterward.
type Trace struct {
	Chains  int                    `json:"chains"`
	Draws   int                    `json:"draws"`
	Samples map[string][][]float64 `json:"samples"` // name -> [chain][draw]
}

// NewTrace allocates a trace for the given parameter names.
func NewTrace(names []string, chains, draws int) *Trace {
	samples := make(map[string][][]float64, len(names))
	for _, name := range names {
		rows := make([][]float64, chains)
		for ch := range rows {
			rows[ch] = make([]float64, draws)
		}
		samples[name] = rows
	}
	return &Trace{Chains: chains, Draws: draws, Samples: samples}
}

// Flatten returns all draws of one parameter across chains.
func (t *Trace) Flatten(name string) ([]float64, error) {
	chains, ok := t.Samples[name]
	if !ok {
		return nil, fmt.Errorf("trace has no parameter %q", name)
	}
	out := make([]float64, 0, t.Chains*t.Draws)
	for _, draws := range chains {
		out = append(out, draws...)
	}
	return out, nil
}

// Summary holds posterior summary statistics for one parameter.
type Summary struct {
	Name    string  `json:"name" db:"name"`
	Mean    float64 `json:"mean" db:"mean"`
	HDILow  float64 `json:"hdi_low" db:"hdi_low"`
	HDIHigh float64 `json:"hdi_high" db:"hdi_high"`
	RHat    float64 `json:"r_hat" db:"r_hat"`
}

// Posterior is the sampler output: the trace plus per-parameter summaries
// and the acceptance diagnostics of each chain.
type Posterior struct {
	Trace           *Trace    `json:"-"`
	Summaries       []Summary `json:"summaries"`
	AcceptanceRates []float64 `json:"acceptance_rates"` // per chain
}

// SummaryFor returns the summary row for a parameter name.
func (p Posterior) SummaryFor(name string) (Summary, bool) {
	for _, s := range p.Summaries {
		if s.Name == name {
			return s, true
		}
	}
	return Summary{}, false
}

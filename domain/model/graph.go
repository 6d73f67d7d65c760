package model

import (
	"fmt"
	"math"
	"sort"

	"sdtfit/domain/core"
)

// DistKind identifies a prior or likelihood distribution family.
type DistKind string

const (
	DistNormal     DistKind = "normal"
	DistHalfNormal DistKind = "half_normal"
	DistBinomial   DistKind = "binomial"
)

// Prior is a fully specified prior distribution.
type Prior struct {
	Dist  DistKind `json:"dist"`
	Loc   float64  `json:"loc"`
	Scale float64  `json:"scale"`
}

// FixedEffect is a group-level regression coefficient with its prior.
// Real-valued and unconstrained.
type FixedEffect struct {
	Name  string `json:"name"`
	Prior Prior  `json:"prior"`
}

// ScaleParam is a group-level standard deviation with a half-normal prior.
// Non-negative.
type ScaleParam struct {
	Name  string `json:"name"`
	Prior Prior  `json:"prior"`
}

// Design holds the fixed 2x2 factorial design vectors over the four
// conditions, in condition-index order.
type Design struct {
	StimType    [4]float64 `json:"stim_type"`   // [0 1 0 1]
	Difficulty  [4]float64 `json:"difficulty"`  // [0 0 1 1]
	Interaction [4]float64 `json:"interaction"` // elementwise product
}

// NewDesign builds the design vectors for the fixed condition encoding
// condition = stim + 2*difficulty.
func NewDesign() Design {
	d := Design{
		StimType:   [4]float64{0, 1, 0, 1},
		Difficulty: [4]float64{0, 0, 1, 1},
	}
	for c := 0; c < 4; c++ {
		d.Interaction[c] = d.StimType[c] * d.Difficulty[c]
	}
	return d
}

// LatentMatrix is a P x C matrix of partially-pooled individual parameters.
// Element [p,c] has prior Normal(mean[c], scale) where
// mean[c] = intercept + stim*StimType[c] + diff*Difficulty[c] + inter*Interaction[c]
// over the named fixed effects, and scale is the named group stdev.
type LatentMatrix struct {
	Name string `json:"name"`
	Rows int    `json:"rows"` // participants
	Cols int    `json:"cols"` // conditions, always 4
	// Coefficient names in order: intercept, stimulus, difficulty, interaction.
	Coefficients [4]string `json:"coefficients"`
	ScaleName    string    `json:"scale_name"`
}

// ConditionMean evaluates the linear predictor for condition c given
// coefficient values in the same order as Coefficients.
func (m LatentMatrix) ConditionMean(coeffs [4]float64, design Design, c int) float64 {
	return coeffs[0] +
		coeffs[1]*design.StimType[c] +
		coeffs[2]*design.Difficulty[c] +
		coeffs[3]*design.Interaction[c]
}

// Canonical latent matrix names. The rate links below are defined in terms
// of these two matrices.
const (
	LatentDPrime    = "d_prime"
	LatentCriterion = "criterion"
)

// RateKind selects which link deterministic a likelihood term observes.
type RateKind string

const (
	// RateHit is logistic(d' - criterion).
	RateHit RateKind = "hit_rate"
	// RateFalseAlarm is logistic(-criterion).
	RateFalseAlarm RateKind = "false_alarm_rate"
)

// BinomialTerm is one likelihood node: Count ~ Binomial(N, rate[Row,Col]).
type BinomialTerm struct {
	Name  string   `json:"name"`
	Rate  RateKind `json:"rate"`
	Row   int      `json:"row"` // latent matrix row (participant index)
	Col   int      `json:"col"` // condition
	Count int      `json:"count"`
	N     int      `json:"n"`
}

// ParticipantIndex maps external 1-based (possibly non-contiguous)
// participant ids onto 0-based latent matrix rows. Built from the sorted
// unique id set, never by raw arithmetic on the id value.
type ParticipantIndex struct {
	ids  []int
	rows map[int]int
}

// NewParticipantIndex builds the id -> row table from the given ids.
// Fails if the set is empty or contains duplicates.
func NewParticipantIndex(ids []int) (ParticipantIndex, error) {
	if len(ids) == 0 {
		return ParticipantIndex{}, core.NewIndexAlignmentError("no participant ids")
	}
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)
	rows := make(map[int]int, len(sorted))
	for i, id := range sorted {
		if _, dup := rows[id]; dup {
			return ParticipantIndex{}, core.NewIndexAlignmentError(
				fmt.Sprintf("duplicate participant id %d", id))
		}
		rows[id] = i
	}
	return ParticipantIndex{ids: sorted, rows: rows}, nil
}

// Row returns the matrix row for a participant id.
func (ix ParticipantIndex) Row(pnum int) (int, bool) {
	row, ok := ix.rows[pnum]
	return row, ok
}

// IDs returns the sorted participant ids, row order.
func (ix ParticipantIndex) IDs() []int {
	out := make([]int, len(ix.ids))
	copy(out, ix.ids)
	return out
}

// Len returns the number of participants (latent matrix rows).
func (ix ParticipantIndex) Len() int { return len(ix.ids) }

// Graph is the fully specified declarative generative model handed to a
// sampler. No sampling happens here; the graph only names parameters,
// shapes, priors, deterministic transforms and likelihood terms.
type Graph struct {
	FixedEffects []FixedEffect  `json:"fixed_effects"` // 8: 4 for d', 4 for criterion
	Scales       []ScaleParam   `json:"scales"`        // 2: stdev_d_prime, stdev_criterion
	Latents      []LatentMatrix `json:"latents"`       // d_prime, criterion
	Design       Design         `json:"design"`
	Likelihoods  []BinomialTerm `json:"likelihoods"`
	Index        ParticipantIndex
}

// Latent returns the latent matrix with the given name.
func (g *Graph) Latent(name string) (LatentMatrix, bool) {
	for _, m := range g.Latents {
		if m.Name == name {
			return m, true
		}
	}
	return LatentMatrix{}, false
}

// ParameterNames returns the flat trace keys for every free parameter:
// fixed effects and scales by name, latent elements as "name[p,c]".
func (g *Graph) ParameterNames() []string {
	var names []string
	for _, fe := range g.FixedEffects {
		names = append(names, fe.Name)
	}
	for _, s := range g.Scales {
		names = append(names, s.Name)
	}
	for _, m := range g.Latents {
		for p := 0; p < m.Rows; p++ {
			for c := 0; c < m.Cols; c++ {
				names = append(names, LatentElementName(m.Name, p, c))
			}
		}
	}
	return names
}

// LatentElementName is the canonical trace key for one latent matrix element.
func LatentElementName(name string, p, c int) string {
	return fmt.Sprintf("%s[%d,%d]", name, p, c)
}

// Logistic is the inverse-logit link.
func Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// HitRate is the hit-rate link: logistic(d' - criterion).
func HitRate(dPrime, criterion float64) float64 {
	return Logistic(dPrime - criterion)
}

// FalseAlarmRate is the false-alarm link: logistic(-criterion).
func FalseAlarmRate(criterion float64) float64 {
	return Logistic(-criterion)
}

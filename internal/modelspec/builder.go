package modelspec

import (
	"fmt"

	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
	"sdtfit/domain/trial"
)

// Canonical parameter names, matching the trace keys the sampler emits.
const (
	ParamInterceptD   = "intercept_d"
	ParamStimEffD     = "stim_eff_d"
	ParamDiffEffD     = "diff_eff_d"
	ParamInteractionD = "interaction_d"
	ParamInterceptC   = "intercept_c"
	ParamStimEffC     = "stim_eff_c"
	ParamDiffEffC     = "diff_eff_c"
	ParamInteractionC = "interaction_c"
	ParamStdevDPrime  = "stdev_d_prime"
	ParamStdevCrit    = "stdev_criterion"
)

// Builder turns an SDT contingency table into the declarative hierarchical
// model graph described by the generative model:
//
//	fixed effects  ~ Normal(0, 1)                         (8, group level)
//	group stdevs   ~ HalfNormal(1)                        (2)
//	mean[c]        = intercept + stim*s[c] + diff*d[c] + inter*i[c]
//	d'[p,c]        ~ Normal(mean_d'[c], stdev_d_prime)    (P x 4, partial pooling)
//	criterion[p,c] ~ Normal(mean_c[c], stdev_criterion)
//	hits[row]         ~ Binomial(nSignal, logistic(d'[p,c] - criterion[p,c]))
//	false_alarms[row] ~ Binomial(nNoise,  logistic(-criterion[p,c]))
//
// The builder only specifies the graph; no sampling happens here.
type Builder struct{}

// NewBuilder creates a model graph builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build constructs the graph for the given SDT table. Participant ids are
// mapped to latent matrix rows through an explicit id -> index table built
// from the sorted unique id set, so gapped or non-1-based id sets stay
// aligned.
func (b *Builder) Build(table sdt.Table) (*model.Graph, error) {
	if len(table.Cells) == 0 {
		return nil, fmt.Errorf("cannot build model: SDT table has no cells")
	}
	for _, cell := range table.Cells {
		if err := cell.Validate(); err != nil {
			return nil, fmt.Errorf("cannot build model: %w", err)
		}
	}

	index, err := model.NewParticipantIndex(table.Participants())
	if err != nil {
		return nil, err
	}

	normal01 := model.Prior{Dist: model.DistNormal, Loc: 0, Scale: 1}
	halfNormal1 := model.Prior{Dist: model.DistHalfNormal, Scale: 1}

	graph := &model.Graph{
		FixedEffects: []model.FixedEffect{
			{Name: ParamInterceptD, Prior: normal01},
			{Name: ParamStimEffD, Prior: normal01},
			{Name: ParamDiffEffD, Prior: normal01},
			{Name: ParamInteractionD, Prior: normal01},
			{Name: ParamInterceptC, Prior: normal01},
			{Name: ParamStimEffC, Prior: normal01},
			{Name: ParamDiffEffC, Prior: normal01},
			{Name: ParamInteractionC, Prior: normal01},
		},
		Scales: []model.ScaleParam{
			{Name: ParamStdevDPrime, Prior: halfNormal1},
			{Name: ParamStdevCrit, Prior: halfNormal1},
		},
		Latents: []model.LatentMatrix{
			{
				Name: model.LatentDPrime,
				Rows: index.Len(),
				Cols: trial.NumConditions,
				Coefficients: [4]string{
					ParamInterceptD, ParamStimEffD, ParamDiffEffD, ParamInteractionD,
				},
				ScaleName: ParamStdevDPrime,
			},
			{
				Name: model.LatentCriterion,
				Rows: index.Len(),
				Cols: trial.NumConditions,
				Coefficients: [4]string{
					ParamInterceptC, ParamStimEffC, ParamDiffEffC, ParamInteractionC,
				},
				ScaleName: ParamStdevCrit,
			},
		},
		Design: model.NewDesign(),
		Index:  index,
	}

	for _, cell := range table.Cells {
		row, ok := index.Row(cell.Pnum)
		if !ok {
			// Unreachable: the index is built from this table's ids.
			return nil, fmt.Errorf("participant %d missing from index", cell.Pnum)
		}
		graph.Likelihoods = append(graph.Likelihoods,
			model.BinomialTerm{
				Name:  fmt.Sprintf("hits[%d,%d]", row, cell.Condition),
				Rate:  model.RateHit,
				Row:   row,
				Col:   cell.Condition,
				Count: cell.Hits,
				N:     cell.NSignal,
			},
			model.BinomialTerm{
				Name:  fmt.Sprintf("false_alarms[%d,%d]", row, cell.Condition),
				Rate:  model.RateFalseAlarm,
				Row:   row,
				Col:   cell.Condition,
				Count: cell.FalseAlarms,
				N:     cell.NNoise,
			},
		)
	}

	return graph, nil
}

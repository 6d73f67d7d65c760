package mcmc

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"sdtfit/domain/model"
)

// evaluator interprets a declarative model graph as a log-posterior over a
// flat parameter vector. Layout:
//
//	[fixed effects][log-scales][latent matrices row-major, in graph order]
//
// Scales are sampled on the log axis so the walk stays unconstrained; the
// half-normal prior picks up the exp Jacobian.
type evaluator struct {
	graph *model.Graph

	feOffset     int
	scaleOffset  int
	latentOffset []int // per latent matrix
	dim          int

	// coefficient vector indices per latent matrix, order
	// intercept/stim/diff/interaction
	coeffIdx [][4]int
	scaleIdx []int // log-scale index per latent matrix

	dPrimeIdx    int // latent matrix index of d'
	criterionIdx int // latent matrix index of criterion

	names []string
}

func newEvaluator(graph *model.Graph) *evaluator {
	e := &evaluator{graph: graph}

	e.feOffset = 0
	e.scaleOffset = len(graph.FixedEffects)
	offset := e.scaleOffset + len(graph.Scales)
	for _, m := range graph.Latents {
		e.latentOffset = append(e.latentOffset, offset)
		offset += m.Rows * m.Cols
	}
	e.dim = offset

	feIndex := make(map[string]int, len(graph.FixedEffects))
	for i, fe := range graph.FixedEffects {
		feIndex[fe.Name] = e.feOffset + i
	}
	scaleIndex := make(map[string]int, len(graph.Scales))
	for i, s := range graph.Scales {
		scaleIndex[s.Name] = e.scaleOffset + i
	}
	for mi, m := range graph.Latents {
		var ci [4]int
		for k, name := range m.Coefficients {
			ci[k] = feIndex[name]
		}
		e.coeffIdx = append(e.coeffIdx, ci)
		e.scaleIdx = append(e.scaleIdx, scaleIndex[m.ScaleName])
		switch m.Name {
		case model.LatentDPrime:
			e.dPrimeIdx = mi
		case model.LatentCriterion:
			e.criterionIdx = mi
		}
	}

	e.names = graph.ParameterNames()
	return e
}

// latentValue reads element (p,c) of latent matrix mi from the vector.
func (e *evaluator) latentValue(x []float64, mi, p, c int) float64 {
	m := e.graph.Latents[mi]
	return x[e.latentOffset[mi]+p*m.Cols+c]
}

// logPosterior evaluates the joint log density at x. Returns -Inf outside
// the support.
func (e *evaluator) logPosterior(x []float64) float64 {
	lp := 0.0

	for i, fe := range e.graph.FixedEffects {
		prior := distuv.Normal{Mu: fe.Prior.Loc, Sigma: fe.Prior.Scale}
		lp += prior.LogProb(x[e.feOffset+i])
	}

	// Half-normal scales, log-transformed: sigma = exp(theta),
	// log p(theta) = log 2 + Normal(0, s).LogProb(sigma) + theta.
	sigmas := make([]float64, len(e.graph.Scales))
	for i, s := range e.graph.Scales {
		theta := x[e.scaleOffset+i]
		sigma := math.Exp(theta)
		sigmas[i] = sigma
		half := distuv.Normal{Mu: 0, Sigma: s.Prior.Scale}
		lp += math.Ln2 + half.LogProb(sigma) + theta
	}

	for mi, m := range e.graph.Latents {
		var coeffs [4]float64
		for k, idx := range e.coeffIdx[mi] {
			coeffs[k] = x[idx]
		}
		sigma := sigmas[e.scaleIdx[mi]-e.scaleOffset]
		for c := 0; c < m.Cols; c++ {
			mean := m.ConditionMean(coeffs, e.graph.Design, c)
			pooled := distuv.Normal{Mu: mean, Sigma: sigma}
			for p := 0; p < m.Rows; p++ {
				lp += pooled.LogProb(e.latentValue(x, mi, p, c))
			}
		}
	}

	for _, term := range e.graph.Likelihoods {
		rate := e.rate(x, term)
		lik := distuv.Binomial{N: float64(term.N), P: rate}
		lp += lik.LogProb(float64(term.Count))
	}

	if math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp
}

// rate evaluates the link deterministic a likelihood term observes.
func (e *evaluator) rate(x []float64, term model.BinomialTerm) float64 {
	criterion := e.latentValue(x, e.criterionIdx, term.Row, term.Col)
	switch term.Rate {
	case model.RateHit:
		dPrime := e.latentValue(x, e.dPrimeIdx, term.Row, term.Col)
		return model.HitRate(dPrime, criterion)
	default:
		return model.FalseAlarmRate(criterion)
	}
}

// traceValue converts the sampled coordinate i back to the natural
// parameter scale (scales are stored as logs).
func (e *evaluator) traceValue(x []float64, i int) float64 {
	if i >= e.scaleOffset && i < e.scaleOffset+len(e.graph.Scales) {
		return math.Exp(x[i])
	}
	return x[i]
}

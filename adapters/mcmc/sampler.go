package mcmc

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"sdtfit/domain/core"
	"sdtfit/domain/model"
	"sdtfit/ports"
)

// Sampler is a reference posterior sampler: coordinate-wise adaptive
// random-walk Metropolis. Chains are independent and run concurrently;
// all scheduling stays inside this adapter.
type Sampler struct{}

// NewSampler creates the Metropolis sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

const adaptWindow = 25 // sweeps between step-size adjustments during tune

// Sample runs opts.Chains independent chains and assembles the trace,
// per-parameter summaries and split R-hat diagnostics. Fails if any chain
// errors or if the posterior is not finite at the initial point.
func (s *Sampler) Sample(ctx context.Context, graph *model.Graph, opts ports.SamplerOptions) (*model.Posterior, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	eval := newEvaluator(graph)
	trace := model.NewTrace(eval.names, opts.Chains, opts.Draws)
	accepts := make([]float64, opts.Chains)

	g, ctx := errgroup.WithContext(ctx)
	for ch := 0; ch < opts.Chains; ch++ {
		g.Go(func() error {
			acc, err := s.runChain(ctx, eval, trace, ch, opts)
			if err != nil {
				return err
			}
			accepts[ch] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSamplerFailed, err)
	}

	summaries, err := Summarize(trace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSamplerFailed, err)
	}
	return &model.Posterior{
		Trace:           trace,
		Summaries:       summaries,
		AcceptanceRates: accepts,
	}, nil
}

// runChain executes tune + draws sweeps for one chain, writing retained
// draws directly into the chain's trace rows. Returns the post-tune
// acceptance rate.
func (s *Sampler) runChain(ctx context.Context, eval *evaluator, trace *model.Trace, chain int, opts ports.SamplerOptions) (float64, error) {
	seed := uint64(opts.Seed) + uint64(chain)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	x := initialPoint(eval, rng)
	lp := eval.logPosterior(x)
	if math.IsInf(lp, -1) {
		return 0, fmt.Errorf("chain %d: log posterior not finite at initial point", chain)
	}

	steps := make([]float64, eval.dim)
	for i := range steps {
		steps[i] = 0.5
	}
	windowAccepts := make([]int, eval.dim)

	var accepted, proposed int
	total := opts.Tune + opts.Draws
	for sweep := 0; sweep < total; sweep++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		tuning := sweep < opts.Tune
		for i := 0; i < eval.dim; i++ {
			old := x[i]
			x[i] = old + steps[i]*rng.NormFloat64()
			lpNew := eval.logPosterior(x)
			if math.Log(rng.Float64()) < lpNew-lp {
				lp = lpNew
				if tuning {
					windowAccepts[i]++
				} else {
					accepted++
				}
			} else {
				x[i] = old
			}
			if !tuning {
				proposed++
			}
		}

		if tuning && (sweep+1)%adaptWindow == 0 {
			for i := range steps {
				rate := float64(windowAccepts[i]) / adaptWindow
				// Multiplicative adjustment toward the target rate.
				steps[i] *= math.Exp(rate - opts.TargetAccept)
				windowAccepts[i] = 0
			}
		}

		if !tuning {
			draw := sweep - opts.Tune
			for i, name := range eval.names {
				trace.Samples[name][chain][draw] = eval.traceValue(x, i)
			}
		}
	}

	if proposed == 0 {
		return 0, nil
	}
	return float64(accepted) / float64(proposed), nil
}

// initialPoint draws a dispersed starting point: fixed effects and latents
// near zero, log-scales near zero (scale ~ 1).
func initialPoint(eval *evaluator, rng *rand.Rand) []float64 {
	x := make([]float64, eval.dim)
	for i := range x {
		x[i] = 0.1 * rng.NormFloat64()
	}
	return x
}

func validateOptions(opts ports.SamplerOptions) error {
	if opts.Draws <= 0 {
		return fmt.Errorf("%w: draws must be positive", core.ErrSamplerFailed)
	}
	if opts.Tune < 0 {
		return fmt.Errorf("%w: tune must be non-negative", core.ErrSamplerFailed)
	}
	if opts.Chains <= 0 {
		return fmt.Errorf("%w: chains must be positive", core.ErrSamplerFailed)
	}
	if opts.TargetAccept <= 0 || opts.TargetAccept >= 1 {
		return fmt.Errorf("%w: target accept must be in (0,1)", core.ErrSamplerFailed)
	}
	return nil
}

package ports

import (
	"context"

	"sdtfit/domain/model"
)

// SamplerOptions configures one posterior sampling run.
type SamplerOptions struct {
	Draws        int     // retained draws per chain
	Tune         int     // warmup iterations discarded per chain
	Chains       int     // independent chains
	TargetAccept float64 // proposal adaptation target during tune
	Seed         int64   // base seed; chain i uses Seed+i
}

// PosteriorSampler consumes a declarative model graph and produces a
// posterior trace with summaries and convergence diagnostics. This is a
// blocking, fallible call; any internal parallelism across chains is owned
// by the implementation. Callers needing timeouts wrap ctx.
type PosteriorSampler interface {
	Sample(ctx context.Context, graph *model.Graph, opts SamplerOptions) (*model.Posterior, error)
}

package ports

import (
	"context"

	"sdtfit/domain/trial"
)

// TrialSource reads raw trial records from an external tabular source
// (CSV, xlsx). Implementations validate column presence and numeric
// parsing; categorical labels are passed through untouched for the
// normalizer to judge.
type TrialSource interface {
	ReadTrials(ctx context.Context) ([]trial.RawTrial, error)
}

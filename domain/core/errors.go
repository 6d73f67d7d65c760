package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Normalization errors
	ErrUnknownCategory = errors.New("unknown category label")

	// Aggregation errors
	ErrEmptyDistribution = errors.New("empty response-time distribution")
	ErrIncompleteCell    = errors.New("incomplete signal-detection cell")

	// Model construction errors
	ErrIndexAlignment = errors.New("participant index alignment failed")

	// Sampling errors
	ErrSamplerFailed  = errors.New("posterior sampler failed")
	ErrNonConvergence = errors.New("posterior chains did not converge")

	// Input errors
	ErrInvalidTrial = errors.New("invalid trial record")
	ErrNotFound     = errors.New("resource not found")
)

// NewUnknownCategoryError reports a label outside a fixed coding table.
func NewUnknownCategoryError(column, label string) error {
	return fmt.Errorf("%w: column %q has label %q", ErrUnknownCategory, column, label)
}

// NewEmptyDistributionError identifies the exact (pnum, condition, mode)
// subset that had zero trials.
func NewEmptyDistributionError(pnum int, condition int, mode string) error {
	return fmt.Errorf("%w: participant %d condition %d mode %q", ErrEmptyDistribution, pnum, condition, mode)
}

// NewIncompleteCellError identifies a (pnum, condition) pair missing one
// signal side. Cells with this error are dropped, not aborted on.
func NewIncompleteCellError(pnum int, condition int, missingSide string) error {
	return fmt.Errorf("%w: participant %d condition %d missing %s trials", ErrIncompleteCell, pnum, condition, missingSide)
}

// NewIndexAlignmentError reports a participant-id set that cannot be mapped
// uniquely onto latent matrix rows.
func NewIndexAlignmentError(reason string) error {
	return fmt.Errorf("%w: %s", ErrIndexAlignment, reason)
}

// NewInvalidTrialError reports a malformed input record with its row number.
func NewInvalidTrialError(row int, reason string) error {
	return fmt.Errorf("%w: row %d: %s", ErrInvalidTrial, row, reason)
}

// Error checking helpers
func IsUnknownCategory(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}

func IsEmptyDistribution(err error) bool {
	return errors.Is(err, ErrEmptyDistribution)
}

func IsIncompleteCell(err error) bool {
	return errors.Is(err, ErrIncompleteCell)
}

func IsIndexAlignment(err error) bool {
	return errors.Is(err, ErrIndexAlignment)
}

func IsSamplerError(err error) bool {
	return errors.Is(err, ErrSamplerFailed) || errors.Is(err, ErrNonConvergence)
}

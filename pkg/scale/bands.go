// Package scale maps how long a stream has been idle to a resampling
// factor and applies that factor to frames.
package scale

import (
	"errors"

	"github.com/tauraamui/xerror"
)

var ErrInvalidBands = errors.New("invalid scale bands")

const errKind = xerror.Kind("scale")

// Band covers idle runs up to and including UpTo multiples of the idle
// criteria, starting just past the previous band.
type Band struct {
	UpTo   int     `json:"up_to"`
	Factor float64 `json:"factor"`
}

// Bands is the lookup table. Runs longer than the last step use Beyond.
type Bands struct {
	Steps  []Band  `json:"steps"`
	Beyond float64 `json:"beyond"`
}

func DefaultBands() Bands {
	return Bands{
		Steps: []Band{
			{UpTo: 2, Factor: 0.8},
			{UpTo: 4, Factor: 0.6},
			{UpTo: 8, Factor: 0.5},
			{UpTo: 16, Factor: 0.4},
			{UpTo: 32, Factor: 0.2},
		},
		Beyond: 0.1,
	}
}

// FactorFor returns false while idleTime is below idleCriteria.
func (b Bands) FactorFor(idleTime, idleCriteria int) (float64, bool) {
	if idleCriteria < 1 || idleTime < idleCriteria {
		return 0, false
	}
	for _, step := range b.Steps {
		if idleTime <= step.UpTo*idleCriteria {
			return step.Factor, true
		}
	}
	return b.Beyond, true
}

// Validate enforces increasing bounds and non-increasing factors in (0, 1].
func (b Bands) Validate() error {
	lastUpTo, lastFactor := 0, 1.0
	for i, step := range b.Steps {
		if step.UpTo < 1 || step.UpTo <= lastUpTo {
			return xerror.Errorf("%w: step %d bound %d must exceed %d", ErrInvalidBands, i, step.UpTo, lastUpTo).
				AsKind(errKind).WithParam("step", i)
		}
		if err := checkFactor(step.Factor, lastFactor); err != nil {
			return xerror.Errorf("%w: step %d: %v", ErrInvalidBands, i, err).
				AsKind(errKind).WithParam("step", i).WithParam("factor", step.Factor)
		}
		lastUpTo, lastFactor = step.UpTo, step.Factor
	}
	if err := checkFactor(b.Beyond, lastFactor); err != nil {
		return xerror.Errorf("%w: beyond: %v", ErrInvalidBands, err).
			AsKind(errKind).WithParam("step", "beyond").WithParam("factor", b.Beyond)
	}
	return nil
}

func checkFactor(factor, ceiling float64) error {
	if factor <= 0 || factor > 1 {
		return xerror.Errorf("factor %v outside (0, 1]", factor)
	}
	if factor > ceiling {
		return xerror.Errorf("factor %v increases past %v", factor, ceiling)
	}
	return nil
}

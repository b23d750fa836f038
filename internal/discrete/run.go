// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package discrete

import (
	"github.com/mlnoga/dustlos/internal/chain"
	"github.com/mlnoga/dustlos/internal/image"
)

// RecalculateEvery is the drift-correction cadence of spec.md 4.7: every
// this many swap iterations, every rung's line integral is fully
// recomputed from Y rather than trusted to accumulated incremental deltas.
const RecalculateEvery = 1000

// BurnInFrac is the fraction of total swap iterations discarded as burn-in
// once the sigma_dy anneal has completed (spec.md 4.7), and the default
// Settings.BurninFrac.
const BurnInFrac = 0.2

// GibbsStep updates a chain's neighbor-choice vector for one temperature
// rung in place; supplied by the caller since it touches the
// internal/gibbs and internal/bank wiring that this package is agnostic
// to, and may rebuild the rung's PriorImage if the neighbor choice moved
// the conditional mean materially.
type GibbsStep func(t int, s *State)

// Runner drives the full two-level PT update cycle of spec.md 4.7 and 6:
// each swap iteration runs, per temperature rung, Settings.UpdatesPerSwap
// mini-cycles -- each a block of neighbor_steps_per_update Gibbs sweeps
// (refreshing the rung's cached LogPrior once its PriorImage may have
// moved) followed by central_steps_per_update*n_dists central proposals --
// and then a sweep of PT swap attempts over every adjacent rung pair of one
// parity, alternating parity each iteration.
type Runner struct {
	Stack     *image.ImageStack
	Ladder    *Ladder
	Proposers []*Proposer // one per rung, sized to Ladder.Chains
	Gibbs     GibbsStep   // optional; nil disables neighbor coupling updates

	Settings Settings

	// Stores holds one OutputStore per ladder rung; a nil entry skips
	// saving that rung. Index 0 (the cold chain) is normally the only
	// populated entry unless Settings.SaveAllTemperatures is set, per
	// spec.md 6's "if saving all temperatures, one dataset per
	// temperature."
	Stores    []chain.OutputStore
	SaveEvery int
}

// NewRunner builds a Runner with one Proposer per ladder rung, configured
// by settings (spec.md 6's TDiscreteLOSSamplingSettings).
func NewRunner(stack *image.ImageStack, ladder *Ladder, settings Settings) *Runner {
	proposers := make([]*Proposer, len(ladder.Chains))
	for i := range proposers {
		proposers[i] = NewProposer(stack)
	}
	return &Runner{
		Stack: stack, Ladder: ladder, Proposers: proposers, Settings: settings,
		Stores: make([]chain.OutputStore, len(ladder.Chains)),
	}
}

// RunSwaps runs nSwaps iterations of the full two-level update cycle,
// annealing sigma_dy over the first DefaultAnnealFrac fraction,
// recalculating every RecalculateEvery iterations, and saving each
// configured rung's state to its Stores entry every SaveEvery iterations
// once past burn-in.
func (r *Runner) RunSwaps(nSwaps int) {
	burnInSwaps := int(float64(nSwaps) * r.Settings.BurninFrac)

	updatesPerSwap := r.Settings.UpdatesPerSwap
	if updatesPerSwap < 1 {
		updatesPerSwap = 1
	}
	centralMultiple := r.Settings.CentralStepsPerUpdate
	if centralMultiple < 1 {
		centralMultiple = 1
	}
	neighborSteps := r.Settings.NeighborStepsPerUpdate

	for i := 0; i < nSwaps; i++ {
		sigmaDy := SigmaDyAt(i, nSwaps, DefaultAnnealFrac)
		for t, s := range r.Ladder.Chains {
			s.SigmaDy = sigmaDy
			s.ShapePenalty = shapePenalty(s.Y, sigmaDy)
			centralSteps := centralMultiple * len(s.Y)

			for u := 0; u < updatesPerSwap; u++ {
				if r.Gibbs != nil && neighborSteps > 0 {
					for g := 0; g < neighborSteps; g++ {
						r.Gibbs(t, s)
					}
					s.LogPrior = logPriorOf(s.Prior, s.Y)
				}
				for step := 0; step < centralSteps; step++ {
					r.Proposers[t].Step(s)
				}
			}
		}

		r.Ladder.SweepSwaps(i%2 == 1)

		if (i+1)%RecalculateEvery == 0 {
			for _, s := range r.Ladder.Chains {
				s.Recalculate(r.Stack)
			}
		}

		if i >= burnInSwaps && r.SaveEvery > 0 && i%r.SaveEvery == 0 {
			for t, store := range r.Stores {
				if store == nil {
					continue
				}
				s := r.Ladder.Chains[t]
				coords := make([]float64, len(s.Y))
				for d, y := range s.Y {
					coords[d] = float64(y)
				}
				store.Append(chain.Point{
					Coords: coords, LogL: s.LogLike, LogPr: s.LogPrior, Weight: 1,
				})
			}
		}
	}
}

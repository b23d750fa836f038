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

import "math"

// SigmaDyStart and SigmaDyEnd bound the shape_penalty anneal of spec.md
// 4.7: the negative-DeltaE-step penalty starts soft (tolerant of a rough
// initial profile while the chain mixes) and ramps down toward a hard
// monotonicity constraint as sigma_dy shrinks (internal/discrete/state.go's
// shapePenalty divides by sigma_dy, so a smaller value sharply increases
// the cost of any remaining negative step). This is distinct from the
// likelihood softening in softenedLogLike, which uses a fixed scale of 1.
const (
	SigmaDyStart = 1e-5
	SigmaDyEnd   = 1e-10
)

// SigmaDyAt returns the annealed shape_penalty scale at swap iteration i of
// nSwaps total, log-linearly interpolated from SigmaDyStart to SigmaDyEnd
// over the first annealFrac fraction of swaps, then held at SigmaDyEnd.
func SigmaDyAt(i, nSwaps int, annealFrac float64) float64 {
	annealSwaps := int(float64(nSwaps) * annealFrac)
	if annealSwaps <= 0 || i >= annealSwaps {
		return SigmaDyEnd
	}
	logStart, logEnd := math.Log(SigmaDyStart), math.Log(SigmaDyEnd)
	frac := float64(i) / float64(annealSwaps)
	return math.Exp(logStart + frac*(logEnd-logStart))
}

// DefaultAnnealFrac is the 1/20 fraction of total swaps spec.md 4.7
// allocates to the sigma_dy ramp.
const DefaultAnnealFrac = 1.0 / 20.0

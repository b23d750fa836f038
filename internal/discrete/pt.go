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
	"math"

	"github.com/valyala/fastrand"
)

// Ladder is a stack of PT chains across temperatures, ordered from the
// coldest (index 0, Beta=1, the production chain) to the hottest.
type Ladder struct {
	Chains []*State
	rng    fastrand.RNG
}

func NewLadder(chains []*State) *Ladder { return &Ladder{Chains: chains} }

// SwapAdjacent attempts a swap between chains t and t+1 using the
// four-cross acceptance formula (spec.md 4.7): since each temperature
// carries its own PriorImage (tempered neighbor coupling via ShiftWeight),
// a swap must cross-evaluate each chain's Y under the other's Beta *and*
// under the other's prior, not just its own -- hence four prior terms
// (two states x two temperatures) feed the acceptance ratio alongside the
// two (temperature-independent) likelihood values. Each rung's prior
// delta is weighted by that rung's own Beta, and the two rungs' deltas
// are summed (not subtracted), per spec.md 4.7:
//   beta_t0*(lnPr(x1,s0)-lnPr(x0,s0)) + beta_t1*(lnPr(x0,s1)-lnPr(x1,s1))
func (l *Ladder) SwapAdjacent(t int) bool {
	a, b := l.Chains[t], l.Chains[t+1]

	priorAofB := logPriorOf(a.Prior, b.Y)
	priorBofA := logPriorOf(b.Prior, a.Y)

	logAccept := (a.Beta-b.Beta)*(b.LogLike-a.LogLike) +
		a.Beta*(priorAofB-a.LogPrior) + b.Beta*(priorBofA-b.LogPrior)

	if logAccept >= 0 || math.Log(l.uniform01()) < logAccept {
		l.Chains[t], l.Chains[t+1] = b, a
		// Beta/ShiftWeight/Neighbors/Prior are properties of the ladder
		// rung, not the configuration, so they are handed back to the rung
		// each state now occupies, and each state's cached LogPrior is
		// recomputed against its new rung's prior (LogLike does not depend
		// on the rung and carries over unchanged).
		a.Beta, b.Beta = b.Beta, a.Beta
		a.ShiftWeight, b.ShiftWeight = b.ShiftWeight, a.ShiftWeight
		a.Neighbors, b.Neighbors = b.Neighbors, a.Neighbors
		a.Prior, b.Prior = b.Prior, a.Prior
		l.Chains[t].LogPrior = logPriorOf(l.Chains[t].Prior, l.Chains[t].Y)
		l.Chains[t+1].LogPrior = logPriorOf(l.Chains[t+1].Prior, l.Chains[t+1].Y)
		return true
	}
	return false
}

// SweepSwaps attempts one swap for every adjacent rung pair, alternating
// which parity of pairs is attempted each call so that, over many calls,
// every adjacent pair gets equal opportunity.
func (l *Ladder) SweepSwaps(odd bool) int {
	accepted := 0
	start := 0
	if odd {
		start = 1
	}
	for t := start; t+1 < len(l.Chains); t += 2 {
		if l.SwapAdjacent(t) {
			accepted++
		}
	}
	return accepted
}

func (l *Ladder) uniform01() float64 { return float64(l.rng.Uint32()) / float64(1<<32) }

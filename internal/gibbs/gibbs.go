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

// Package gibbs implements the neighbor-coupled Gibbs sampler of spec.md
// 4.6: a tempered categorical draw over a pixel's fixed library of
// pre-computed reddening samples, conditioned on the current choices of
// its neighbors via the bank's Gaussian-process coupling.
package gibbs

import (
	"fmt"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/dustlos/internal/bank"
	"github.com/mlnoga/dustlos/internal/numeric"
)

// Sentinel marks "the pixel currently being sampled" in a choice vector,
// used both as the cache key wildcard and as an Unset/unknown marker that
// Bank.Mean skips when summing neighbor contributions.
const Sentinel = -1

// Sampler draws Gibbs updates for neighbor pixels 1..n_pix-1 of a bank,
// tempered by beta and a distance-shift weight. Pixel 0 is reserved for
// the central pixel and is never drawn here -- its profile is copied in
// by the caller before each sweep (spec.md 4.6).
type Sampler struct {
	Bank        *bank.NeighborPixelBank
	Beta        float64
	ShiftWeight float64
	cache       *meanCache
	rng         fastrand.RNG
}

// New builds a Gibbs sampler over bank. cacheCapacity <= 0 disables the
// LRU memoization (spec.md 4.6 calls caching optional).
func New(b *bank.NeighborPixelBank, beta, shiftWeight float64, cacheCapacity int) *Sampler {
	s := &Sampler{Bank: b, Beta: beta, ShiftWeight: shiftWeight}
	if cacheCapacity > 0 {
		s.cache = newMeanCache(cacheCapacity)
	}
	return s
}

// meansForPixel returns the per-distance conditional mean contribution
// from every pixel other than pix, for the given current choice vector.
// Memoized by the choice vector with pix masked to Sentinel, since the
// result does not depend on pix's own in-flight sample.
func (s *Sampler) meansForPixel(pix int, current []int) []float64 {
	masked := make([]int, len(current))
	copy(masked, current)
	masked[pix] = Sentinel
	key := choiceKey(masked)

	if means, ok := s.cache.get(key); ok {
		return means
	}
	means := make([]float64, s.Bank.NDists)
	for d := 0; d < s.Bank.NDists; d++ {
		means[d] = s.Bank.Mean(pix, d, masked, s.ShiftWeight)
	}
	s.cache.put(key, means)
	return means
}

// Score computes the unnormalized log-weight of candidate sample s at
// pixel p given current (spec.md 4.6):
//
//	score(s) = -1/2 sum_d invVar(p,d)*(delta(p,s,d)-mean(p,d,current,w))^2 - sumLogDy(p,s)
//	logWeight(s) = beta*score(s) - (lnPrior(p,s) + (1-beta)*lnLike(p,s))
func (s *Sampler) Score(pix, sample int, means []float64) float64 {
	b := s.Bank
	quad := 0.0
	for d := 0; d < b.NDists; d++ {
		diff := b.Delta(pix, sample, d) - means[d]
		quad += b.InvVar(pix, d) * diff * diff
	}
	score := -0.5*quad - b.SumLogDy(pix, sample)
	return s.Beta*score - (b.LnPrior(pix, sample) + (1-s.Beta)*b.LnLike(pix, sample))
}

// Step draws a new sample index for pixel pix, conditioned on current
// (the full vector of every pixel's current choice, pix 0 = central).
// Returns the chosen sample index.
func (s *Sampler) Step(pix int, current []int) (int, error) {
	if pix <= 0 || pix >= s.Bank.NPix {
		return 0, fmt.Errorf("gibbs: pix %d out of neighbor range [1,%d)", pix, s.Bank.NPix)
	}
	means := s.meansForPixel(pix, current)

	logWeights := make([]float64, s.Bank.NSamples)
	for sIdx := 0; sIdx < s.Bank.NSamples; sIdx++ {
		logWeights[sIdx] = s.Score(pix, sIdx, means)
	}
	weights := numeric.NormalizeToMaxOne(logWeights)
	total := 0.0
	for _, w := range weights {
		total += w
	}
	draw := float64(s.rng.Uint32()) / float64(1<<32) * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if draw <= cum {
			return i, nil
		}
	}
	return s.Bank.NSamples - 1, nil
}

// Sweep runs one Gibbs sweep over neighbor pixels 1..n_pix-1, updating
// current in place.
func (s *Sampler) Sweep(current []int) error {
	for pix := 1; pix < s.Bank.NPix; pix++ {
		chosen, err := s.Step(pix, current)
		if err != nil {
			return err
		}
		current[pix] = chosen
	}
	return nil
}

// CacheHitRate reports the LRU cache's hit rate, 0 if caching is disabled.
func (s *Sampler) CacheHitRate() float64 { return s.cache.HitRate() }

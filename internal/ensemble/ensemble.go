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

// Package ensemble implements the Goodman-Weare affine-invariant ensemble
// sampler: a population of walkers in R^n advanced by stretch moves
// against a randomly chosen complementary walker, plus an optional
// replacement move drawing from a Gaussian KDE fit to the rest of the
// ensemble. Walkers are advanced one at a time in the calling goroutine.
// The KDE uses a per-coordinate bandwidth from numeric.MeanStdDev and no
// cross-coordinate covariance. The Target interface is spec.md 9's
// re-expression of the sampler's template-polymorphism as a capability set.
package ensemble

import (
	"math"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/dustlos/internal/numeric"
)

// Target is the minimal capability set a posterior must expose to be
// driven by this engine: a dimensionality and a log-density. Samplers
// with move-specific structure (incremental deltas, bounds, custom
// proposals) wrap Target with richer interfaces of their own; the engine
// here never assumes more than LogProb.
type Target interface {
	Dim() int
	LogProb(x []float64) float64
}

// Walker is one ensemble member's current position and cached log-density.
type Walker struct {
	X    []float64
	LogP float64
}

// Ensemble is a population of walkers advanced together so each step's
// complementary walker is drawn from the rest of the population, which is
// what makes the sampler affine-invariant.
type Ensemble struct {
	Target  Target
	Walkers []Walker
	A       float64 // stretch scale, typically 2.0; auto-tuned by callers

	rng fastrand.RNG
}

// New builds an Ensemble from initial positions, evaluating LogProb once
// per walker.
func New(target Target, initial [][]float64, a float64) *Ensemble {
	walkers := make([]Walker, len(initial))
	for i, x := range initial {
		xc := append([]float64(nil), x...)
		walkers[i] = Walker{X: xc, LogP: target.LogProb(xc)}
	}
	return &Ensemble{Target: target, Walkers: walkers, A: a}
}

// drawZ samples the stretch-move scale factor z from g(z) propto 1/sqrt(z)
// on [1/a, a], via inverse-CDF sampling (Goodman & Weare 2010, eq. 9).
func (e *Ensemble) drawZ() float64 {
	u := float64(e.rng.Uint32()) / float64(1<<32)
	root := (e.A-1)*u + 1
	return root * root / e.A
}

func (e *Ensemble) uniform01() float64 {
	return float64(e.rng.Uint32()) / float64(1<<32)
}

// otherWalkerIndex draws a walker index other than k, uniformly.
func (e *Ensemble) otherWalkerIndex(k int) int {
	n := len(e.Walkers)
	for {
		j := int(e.rng.Uint32()) % n
		if j != k {
			return j
		}
	}
}

// StretchStep advances walker k by one stretch move against a randomly
// chosen complementary walker, returning whether the proposal was
// accepted.
func (e *Ensemble) StretchStep(k int) bool {
	n := e.Target.Dim()
	j := e.otherWalkerIndex(k)
	z := e.drawZ()

	xk, xj := e.Walkers[k].X, e.Walkers[j].X
	y := make([]float64, n)
	for i := range y {
		y[i] = xj[i] + z*(xk[i]-xj[i])
	}
	logPY := e.Target.LogProb(y)

	logAccept := float64(n-1)*math.Log(z) + logPY - e.Walkers[k].LogP
	if logAccept >= 0 || math.Log(e.uniform01()) < logAccept {
		e.Walkers[k] = Walker{X: y, LogP: logPY}
		return true
	}
	return false
}

// Sweep advances every walker once via StretchStep, and returns the
// fraction accepted.
func (e *Ensemble) Sweep() float64 {
	accepted := 0
	for k := range e.Walkers {
		if e.StretchStep(k) {
			accepted++
		}
	}
	return float64(accepted) / float64(len(e.Walkers))
}

// kdeBandwidth returns Silverman's rule-of-thumb bandwidth for a 1-D
// marginal of n samples with the given standard deviation.
func kdeBandwidth(stdDev float64, n int) float64 {
	if n < 2 {
		return stdDev
	}
	return 1.06 * stdDev * math.Pow(float64(n), -0.2)
}

// ReplacementStep advances walker k via a Gaussian-kernel-density
// replacement move: propose a fresh point by picking a random other
// walker as a KDE component center and jittering every coordinate by an
// independent Normal(0, h_d^2), h_d from Silverman's rule on that
// coordinate's marginal spread across the rest of the ensemble. Since the
// KDE proposal density is not symmetric between the current position and
// the candidate, the Metropolis-Hastings ratio includes the proposal
// density ratio q(xk)/q(y) alongside the posterior ratio.
func (e *Ensemble) ReplacementStep(k int) bool {
	n := e.Target.Dim()
	rest := make([][]float64, 0, len(e.Walkers)-1)
	for i, w := range e.Walkers {
		if i != k {
			rest = append(rest, w.X)
		}
	}
	h := make([]float64, n)
	for d := 0; d < n; d++ {
		col := make([]float64, len(rest))
		for i, x := range rest {
			col[i] = x[d]
		}
		_, sd := numeric.MeanStdDev(col)
		if sd <= 0 {
			sd = 1e-6
		}
		h[d] = kdeBandwidth(sd, len(col))
	}

	centerIdx := int(e.rng.Uint32()) % len(rest)
	center := rest[centerIdx]
	y := make([]float64, n)
	for d := 0; d < n; d++ {
		y[d] = center[d] + h[d]*e.gaussianDraw()
	}

	logQY := kdeLogDensity(y, rest, h)
	logQX := kdeLogDensity(e.Walkers[k].X, rest, h)
	logPY := e.Target.LogProb(y)

	logAccept := (logPY - e.Walkers[k].LogP) + (logQX - logQY)
	if logAccept >= 0 || math.Log(e.uniform01()) < logAccept {
		e.Walkers[k] = Walker{X: y, LogP: logPY}
		return true
	}
	return false
}

// gaussianDraw returns a standard-normal variate via Box-Muller.
func (e *Ensemble) gaussianDraw() float64 {
	u1 := e.uniform01()
	if u1 <= 0 {
		u1 = 1e-12
	}
	u2 := e.uniform01()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// kdeLogDensity evaluates the log-density at x of the mixture-of-Gaussians
// KDE whose components are centered at each of components, with
// independent per-coordinate bandwidths h.
func kdeLogDensity(x []float64, components [][]float64, h []float64) float64 {
	logTerms := make([]float64, len(components))
	for i, c := range components {
		ll := 0.0
		for d := range x {
			z := (x[d] - c[d]) / h[d]
			ll += -0.5*z*z - math.Log(h[d]*math.Sqrt(2*math.Pi))
		}
		logTerms[i] = ll
	}
	return numeric.LogSumExp(logTerms) - math.Log(float64(len(components)))
}

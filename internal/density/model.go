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

// Package density is the narrow contract to the external Galactic
// line-of-sight density model (spec.md 1): it exposes dA/dmu only. The
// model itself -- dust density as a function of Galactic structure -- is
// out of scope; only the capability PriorImage needs is modeled here.
package density

import "sort"

// Model is the one-method capability a PriorImage builder needs: the
// differential extinction dA/dmu at a given distance modulus.
type Model interface {
	DeltaA(mu float64) float64
}

// Constant is a reference Model returning a fixed dA/dmu everywhere, for
// tests and as a trivial default.
type Constant float64

func (c Constant) DeltaA(mu float64) float64 { return float64(c) }

// Tabulated is a reference Model that linearly interpolates dA/dmu over a
// monotonically increasing mu grid. Out-of-range queries clamp to the
// nearest tabulated endpoint.
type Tabulated struct {
	Mu     []float64
	DeltaAValues []float64
}

func (t *Tabulated) DeltaA(mu float64) float64 {
	n := len(t.Mu)
	if n == 0 {
		return 0
	}
	if mu <= t.Mu[0] {
		return t.DeltaAValues[0]
	}
	if mu >= t.Mu[n-1] {
		return t.DeltaAValues[n-1]
	}
	i := sort.SearchFloat64s(t.Mu, mu)
	if i == 0 {
		return t.DeltaAValues[0]
	}
	lo, hi := i-1, i
	frac := (mu - t.Mu[lo]) / (t.Mu[hi] - t.Mu[lo])
	return t.DeltaAValues[lo] + frac*(t.DeltaAValues[hi]-t.DeltaAValues[lo])
}

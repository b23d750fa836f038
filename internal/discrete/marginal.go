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
	"github.com/mlnoga/dustlos/internal/numeric"
	"github.com/mlnoga/dustlos/internal/prior"
)

// RebuildMarginalWeights implements spec.md 4.9's post-processing pass:
// for every saved cold-chain sample, its log-prior is recomputed against
// the final temperature-0 PriorImage (built from the neighbors' converged
// choices, rather than whatever rung's prior happened to be in effect when
// the sample was saved), then every sample's total log-posterior is
// normalized to linear weights with the largest set to 1 via log-sum-exp.
//
// Reducing every sample against one final prior is only correct while the
// neighbor-pixel bank (internal/bank) is unwired from a real multi-pixel
// run: once samples can be saved across bank updates, each one should be
// rescored against the prior that was live near the time it was drawn,
// not uniformly against the run's last prior.
func RebuildMarginalWeights(store chain.OutputStore, finalColdPrior *prior.Image) {
	points := store.All()
	logTotals := make([]float64, len(points))
	for i, p := range points {
		logPr := 0.0
		for d, c := range p.Coords {
			logPr += finalColdPrior.At(int32(c), d)
		}
		logTotals[i] = p.LogL + logPr
	}
	weights := numeric.NormalizeToMaxOne(logTotals)
	for i, w := range weights {
		store.SetWeight(i, w)
	}
}

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

package continuous

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// InitialGuess maximizes s.LogProb from start via a gradient-free simplex
// search, the same optimize.Local pattern the teacher's star alignment
// step uses to minimize a residual: here the sign is flipped since we
// maximize a log-posterior rather than minimize a registration error.
func InitialGuess(s *Sampler, start []float64) ([]float64, error) {
	neg := func(x []float64) float64 { return -s.LogProb(x) }

	problem := optimize.Problem{Func: neg}
	result, err := optimize.Minimize(problem, start, &optimize.Settings{
		MajorIterations: 500,
	}, &optimize.NelderMead{})
	if err != nil && result == nil {
		return nil, fmt.Errorf("continuous: initial guess optimization failed: %w", err)
	}
	return result.X, nil
}

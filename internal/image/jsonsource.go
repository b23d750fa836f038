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

package image

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// jsonStack is the on-disk shape a JSONFileSource reads: the per-star
// forward model that produces these posterior images is out of scope
// (spec.md 1), so this package only needs a serialization format to load
// them from, mirroring the teacher's JSON-driven operator configuration.
type jsonStack struct {
	NE    int32  `json:"nE"`
	NMu   int32  `json:"nMu"`
	Stars []Star `json:"stars"`
}

// JSONFileSource implements StarImageSource by reading a single JSON file
// containing every star's dense posterior image.
type JSONFileSource struct {
	FileName string
}

// Images reads and parses FileName.
func (src JSONFileSource) Images(ctx context.Context) ([]Star, int32, int32, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}
	b, err := os.ReadFile(src.FileName)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("image: reading %s: %w", src.FileName, err)
	}
	var js jsonStack
	if err := json.Unmarshal(b, &js); err != nil {
		return nil, 0, 0, fmt.Errorf("image: parsing %s: %w", src.FileName, err)
	}
	return js.Stars, js.NE, js.NMu, nil
}

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

// Package image holds the stack of per-star two-dimensional posterior
// images the samplers read. Construction is the caller's responsibility
// (the stellar forward model is an external collaborator, spec.md 1); this
// package only validates and stores the result.
package image

import (
	"context"
	"fmt"
	"math"
)

// Star carries the per-star scalars the line-integral kernels need
// alongside its dense posterior image.
type Star struct {
	Data      []float64 `json:"data"` // dense (nE x nMu) row-major: Data[e*nMu+mu]
	LnZ       float64   `json:"lnZ"`  // log partition function, for p0/Z likelihood softening
	SubpixelS float64   `json:"subpixelS"`
}

// ImageStack is N_stars dense posterior images sharing one RectGrid.
// Immutable once built.
type ImageStack struct {
	NE     int32
	NMu    int32
	Stars  []Star
}

// At returns the posterior density for star k at E-bin e, mu-bin mu.
func (s *ImageStack) At(k int, e, mu int32) float64 {
	return s.Stars[k].Data[int(e)*int(s.NMu)+int(mu)]
}

// NStars returns the number of stars in the stack.
func (s *ImageStack) NStars() int { return len(s.Stars) }

// Validate checks the shape invariants from spec.md's ImageStack data model
// and rejects NaN and +Inf pixel values; negative values and -Inf are
// accepted. Returns a descriptive error rather than
// panicking, since malformed external input is a recoverable fatal
// (spec.md 7: "Invalid input grid or shape mismatch").
func (s *ImageStack) Validate() error {
	if s.NE <= 0 || s.NMu <= 0 {
		return fmt.Errorf("image: non-positive grid shape (nE=%d, nMu=%d)", s.NE, s.NMu)
	}
	want := int(s.NE) * int(s.NMu)
	for k, star := range s.Stars {
		if len(star.Data) != want {
			return fmt.Errorf("image: star %d has %d pixels, want %d (nE=%d x nMu=%d)", k, len(star.Data), want, s.NE, s.NMu)
		}
		for i, v := range star.Data {
			if math.IsNaN(v) || math.IsInf(v, 1) {
				return fmt.Errorf("image: star %d pixel %d is non-finite: %v", k, i, v)
			}
		}
	}
	return nil
}

// StarImageSource is the narrow contract to the external stellar forward
// model / per-star posterior image builder (spec.md 1, out of scope).
type StarImageSource interface {
	Images(ctx context.Context) ([]Star, int32, int32, error)
}

// NewImageStack validates and wraps posterior images from a StarImageSource.
func NewImageStack(ctx context.Context, src StarImageSource) (*ImageStack, error) {
	stars, nE, nMu, err := src.Images(ctx)
	if err != nil {
		return nil, err
	}
	s := &ImageStack{NE: nE, NMu: nMu, Stars: stars}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

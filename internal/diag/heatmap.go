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

// Package diag renders diagnostic PNGs for a sampling run, starting with a
// per-pixel Gelman-Rubin R-hat heatmap. Grounded on the teacher's HSL
// color-mapping helper, generalized from 8-bit pixel stretching to an
// arbitrary-range scalar heatmap via go-colorful's perceptual HCL space.
package diag

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/bmp"
)

// RHatColor maps a Gelman-Rubin statistic to a color on a green
// (converged, rHat<=1.05) - yellow (marginal) - red (rHat>=convergenceCap)
// HCL gradient, the same perceptually-uniform blending the teacher's HSL
// helper uses for stretch previews.
func RHatColor(rHat, convergenceCap float64) color.Color {
	t := (rHat - 1.0) / (convergenceCap - 1.0)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	good := colorful.Hcl(142, 0.6, 0.55)  // green
	bad := colorful.Hcl(20, 0.8, 0.5)     // red
	mid := colorful.Hcl(85, 0.7, 0.6)     // yellow
	if t < 0.5 {
		return mid2(good, mid, t*2)
	}
	return mid2(mid, bad, (t-0.5)*2)
}

func mid2(a, b colorful.Color, t float64) colorful.Color {
	return a.BlendHcl(b, t)
}

// rHatImage rasterizes an nx x ny grid of R-hat values, one pixel per grid
// cell scaled up by pixelSize for visibility.
func rHatImage(rHat [][]float64, convergenceCap float64, pixelSize int) *image.RGBA {
	ny := len(rHat)
	if ny == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	nx := len(rHat[0])
	if pixelSize < 1 {
		pixelSize = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, nx*pixelSize, ny*pixelSize))
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			c := RHatColor(rHat[y][x], convergenceCap)
			r, g, b, a := c.RGBA()
			pixel := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
			for dy := 0; dy < pixelSize; dy++ {
				for dx := 0; dx < pixelSize; dx++ {
					img.Set(x*pixelSize+dx, y*pixelSize+dy, pixel)
				}
			}
		}
	}
	return img
}

// WriteRHatHeatmap renders an nx x ny grid of R-hat values to w as a PNG,
// one pixel per grid cell (scaled up by pixelSize for visibility).
func WriteRHatHeatmap(w io.Writer, rHat [][]float64, convergenceCap float64, pixelSize int) error {
	img := rHatImage(rHat, convergenceCap, pixelSize)
	if img.Bounds().Empty() {
		return nil
	}
	return png.Encode(w, img)
}

// WriteRHatHeatmapBMP renders the same heatmap as WriteRHatHeatmap, but in
// uncompressed BMP form -- useful for quick inspection in tooling that
// balks at PNG's DEFLATE stream, and a vehicle for the codec set
// golang.org/x/image otherwise adds nothing to in this package's scope.
func WriteRHatHeatmapBMP(w io.Writer, rHat [][]float64, convergenceCap float64, pixelSize int) error {
	img := rHatImage(rHat, convergenceCap, pixelSize)
	if img.Bounds().Empty() {
		return nil
	}
	return bmp.Encode(w, img)
}

// MaxFinite returns the largest finite value in rHat, used to auto-scale
// convergenceCap when the caller has no fixed threshold in mind.
func MaxFinite(rHat [][]float64) float64 {
	max := 1.0
	for _, row := range rHat {
		for _, v := range row {
			if !math.IsInf(v, 0) && !math.IsNaN(v) && v > max {
				max = v
			}
		}
	}
	return max
}

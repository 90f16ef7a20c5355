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

package surface

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// paletteHueLow and paletteHueHigh bound the hue sweep used to render a
// scalar surface, blue for the low end of the range and red for the high
// end, following the same Hcl-ramp approach the teacher's pixel operators
// use for false-color rendering.
const paletteHueLow, paletteHueHigh = 240.0, 0.0

// RenderPalette renders a scalar surface (row-major, width x height) as a
// palette-mapped image, mapping [min,max] onto a blue-to-red hue ramp. This
// is the optional "function-surface plot... palette visualisation" output
// named for the normalization engine's A and B surfaces.
func RenderPalette(data []float32, width, height int, min, max float32) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	span := max - min
	if span <= 0 {
		span = 1
	}
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			t := float64((data[row+x] - min) / span)
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			hue := paletteHueLow + t*(paletteHueHigh-paletteHueLow)
			col := colorful.Hcl(hue, 0.8, 0.25+0.65*t).Clamped()
			r, g, b := col.RGB255()
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return img
}

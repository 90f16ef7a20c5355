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

package normalize

import (
	"image/png"
	"io"

	"github.com/mlnoga/starcal/internal/surface"
)

// WritePreview renders channel's A or B field as a palette-mapped PNG, the
// diagnostic surface plot a human reviews when a normalization solve looks
// suspicious.
func (r *Result) WritePreview(w io.Writer, channel int, field string) error {
	f := r.Fields[channel]
	var data []float32
	switch field {
	case "B":
		data = f.B
	default:
		data = f.A
	}
	min, max := data[0], data[0]
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	img := surface.RenderPalette(data, int(f.Width), int(f.Height), min, max)
	return png.Encode(w, img)
}

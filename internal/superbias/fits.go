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

package superbias

import (
	"fmt"

	"github.com/mlnoga/starcal/internal/fits"
)

// ToImage wraps one superbias Output as a fits.Image, tagging it with the
// IMAGETYP and orientation the calibration engine's masters expect.
// naxisn is the source bias frame's dimensions ([width, height] or
// [width, height, channels]), reused unchanged since a superbias output has
// the same shape as its input.
func ToImage(out Output, naxisn []int32) *fits.Image {
	img := fits.NewImageFromNaxisn(naxisn, out.Data)
	img.Header.Strings["IMAGETYP"] = "Master Bias"
	img.AppendCalibrationHistory(fmt.Sprintf("superbias.orientation: %s", out.Orientation))
	return img
}

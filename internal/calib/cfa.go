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

package calib

// bayerTiles gives the channel (0=R,1=G,2=B) occupying each position of the
// 2x2 Bayer tile, for the four standard orderings. A channel plane of a
// true Bayer-mosaiced, demosaiced-into-separate-channels frame carries
// nonzero samples only at its own tile position, zero elsewhere.
var bayerTiles = map[string][2][2]int{
	"RGGB": {{0, 1}, {1, 2}},
	"GRBG": {{1, 0}, {2, 1}},
	"GBRG": {{1, 2}, {0, 1}},
	"BGGR": {{2, 1}, {1, 0}},
}

// zeroTemplate builds, for one Bayer ordering and one channel, the 4x4
// top-left zero mask (true where the channel is expected to be zero) by
// tiling the 2x2 pattern twice in each direction.
func zeroTemplate(tile [2][2]int, channel int) [4][4]bool {
	var tpl [4][4]bool
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tpl[y][x] = tile[y%2][x%2] != channel
		}
	}
	return tpl
}

// DetectCFA reports whether data (three channel planes of width*height
// float32 samples each) is Bayer-mosaiced, i.e. its top-left 4x4 corner of
// every channel exactly matches the zero/nonzero signature of one of the
// four standard Bayer orderings.
func DetectCFA(data []float32, width, height, channels int32) bool {
	if channels != 3 || width < 4 || height < 4 {
		return false
	}
	planeSize := width * height

	for _, tile := range bayerTiles {
		match := true
		for c := 0; c < 3 && match; c++ {
			plane := data[int32(c)*planeSize : int32(c+1)*planeSize]
			tpl := zeroTemplate(tile, c)
			for y := 0; y < 4 && match; y++ {
				row := int32(y) * width
				for x := 0; x < 4; x++ {
					isZero := plane[row+int32(x)] == 0
					if isZero != tpl[y][x] {
						match = false
						break
					}
				}
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Bin2x2 averages each 2x2 tile of a single-channel width x height plane,
// producing a (width/2) x (height/2) plane. Used ahead of dark-scale
// optimization and noise evaluation on CFA frames, per the engine's
// CFA-aware downsampling rule.
func Bin2x2(data []float32, width, height int32) ([]float32, int32, int32) {
	outW, outH := width/2, height/2
	out := make([]float32, outW*outH)
	for y := int32(0); y < outH; y++ {
		for x := int32(0); x < outW; x++ {
			sum := data[(2*y)*width+2*x] + data[(2*y)*width+2*x+1] +
				data[(2*y+1)*width+2*x] + data[(2*y+1)*width+2*x+1]
			out[y*outW+x] = sum / 4
		}
	}
	return out, outW, outH
}

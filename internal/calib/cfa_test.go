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

import "testing"

// makeBayerFrame builds an 8x8 three-channel frame whose top-left 4x4
// corner follows the RGGB tile, non-mosaic positions zero, as DetectCFA
// expects of a demosaiced-into-planes Bayer frame.
func makeBayerFrame() []float32 {
	width, height := int32(8), int32(8)
	planeSize := width * height
	data := make([]float32, 3*planeSize)
	tile := bayerTiles["RGGB"]
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			c := tile[y%2][x%2]
			data[int32(c)*planeSize+y*width+x] = 1
		}
	}
	return data
}

func TestDetectCFA_PositiveMatch(t *testing.T) {
	data := makeBayerFrame()
	if !DetectCFA(data, 8, 8, 3) {
		t.Fatal("expected RGGB-patterned frame to be detected as CFA")
	}
}

func TestDetectCFA_UniformFrameIsNotCFA(t *testing.T) {
	width, height := int32(8), int32(8)
	data := make([]float32, 3*width*height)
	for i := range data {
		data[i] = 1
	}
	if DetectCFA(data, width, height, 3) {
		t.Fatal("uniform frame should not match any Bayer zero-signature")
	}
}

func TestDetectCFA_RequiresThreeChannels(t *testing.T) {
	data := makeBayerFrame()
	if DetectCFA(data, 8, 8, 1) {
		t.Fatal("single-channel frame must never be reported as CFA")
	}
}

func TestBin2x2_AveragesTiles(t *testing.T) {
	width, height := int32(4), int32(4)
	data := []float32{
		1, 3, 5, 7,
		2, 4, 6, 8,
		1, 1, 1, 1,
		3, 3, 3, 3,
	}
	out, ow, oh := Bin2x2(data, width, height)
	if ow != 2 || oh != 2 {
		t.Fatalf("got dims %dx%d, want 2x2", ow, oh)
	}
	want := []float32{2.5, 6.5, 2, 2}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d]=%f, want %f", i, out[i], w)
		}
	}
}

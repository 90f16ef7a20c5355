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

// classifyOutliers marks pixel i as a reference outlier when the target
// deviates from its background by less than backgroundLimit while the
// reference deviates from its own background by more than
// referenceThreshold, and symmetrically for target outliers.
func classifyOutliers(ref, target, refBg, targetBg []float32, backgroundLimit, referenceThreshold, targetThreshold float32) (refOutlier, targetOutlier []bool) {
	n := len(ref)
	refOutlier = make([]bool, n)
	targetOutlier = make([]bool, n)

	for i := 0; i < n; i++ {
		bt := targetBg[i]
		br := refBg[i]
		if bt == 0 || br == 0 {
			continue
		}
		tDev := abs32((target[i] - bt) / bt)
		rDev := abs32((ref[i] - br) / br)

		if tDev < backgroundLimit && rDev > referenceThreshold {
			refOutlier[i] = true
		}
		if rDev < backgroundLimit && tDev > targetThreshold {
			targetOutlier[i] = true
		}
	}
	return refOutlier, targetOutlier
}

// dilate3x3 grows a boolean mask by one pixel in every direction using a
// 3x3 structuring element, edge pixels replicated.
func dilate3x3(mask []bool, width, height int32) []bool {
	out := make([]bool, len(mask))
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			hit := false
			for dy := int32(-1); dy <= 1 && !hit; dy++ {
				yy := clampAxis(y+dy, height)
				for dx := int32(-1); dx <= 1; dx++ {
					xx := clampAxis(x+dx, width)
					if mask[yy*width+xx] {
						hit = true
						break
					}
				}
			}
			out[y*width+x] = hit
		}
	}
	return out
}

func clampAxis(v, limit int32) int32 {
	if v < 0 {
		return 0
	}
	if v >= limit {
		return limit - 1
	}
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

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

import (
	"strconv"
	"strings"

	"github.com/mlnoga/starcal/internal/fits"
)

const dnNormalizer = 65535.0

// pedestalDN resolves the calibration pedestal in DN, per s.PedestalMode.
// Keyword lookups are case-insensitive; an absent or non-numeric keyword
// yields zero without error.
func pedestalDN(s *Settings, h *fits.Header) float32 {
	switch s.PedestalMode {
	case PedestalKeyword:
		return lookupPedestalKeyword(h, "PEDESTAL")
	case PedestalCustomKeyword:
		return lookupPedestalKeyword(h, s.PedestalKeyword)
	default:
		return s.PedestalDN
	}
}

func lookupPedestalKeyword(h *fits.Header, name string) float32 {
	if h == nil {
		return 0
	}
	upper := strings.ToUpper(name)
	for k, v := range h.Floats {
		if strings.ToUpper(k) == upper {
			return float32(v)
		}
	}
	for k, v := range h.Ints {
		if strings.ToUpper(k) == upper {
			return float32(v)
		}
	}
	for k, v := range h.Strings {
		if strings.ToUpper(k) == upper {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 32); err == nil {
				return float32(f)
			}
			return 0
		}
	}
	return 0
}

// pedestalNormalized converts a DN pedestal to the engine's normalized
// [0,1] sample units.
func pedestalNormalized(dn float32) float32 {
	return dn / dnNormalizer
}

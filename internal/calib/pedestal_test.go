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
	"testing"

	"github.com/mlnoga/starcal/internal/fits"
)

func TestPedestalDN_Literal(t *testing.T) {
	s := NewSettingsDefault()
	s.PedestalDN = 100
	h := fits.NewHeader()
	if got := pedestalDN(s, &h); got != 100 {
		t.Errorf("got %f, want 100", got)
	}
}

func TestPedestalDN_KeywordCaseInsensitive(t *testing.T) {
	s := NewSettingsDefault()
	s.PedestalMode = PedestalKeyword
	h := fits.NewHeader()
	h.Floats["pedestal"] = 42
	if got := pedestalDN(s, &h); got != 42 {
		t.Errorf("got %f, want 42", got)
	}
}

func TestPedestalDN_MissingKeywordYieldsZero(t *testing.T) {
	s := NewSettingsDefault()
	s.PedestalMode = PedestalCustomKeyword
	s.PedestalKeyword = "MYPED"
	h := fits.NewHeader()
	if got := pedestalDN(s, &h); got != 0 {
		t.Errorf("got %f, want 0 for absent keyword", got)
	}
}

func TestPedestalNormalized(t *testing.T) {
	if got := pedestalNormalized(65535); got != 1 {
		t.Errorf("got %f, want 1", got)
	}
}

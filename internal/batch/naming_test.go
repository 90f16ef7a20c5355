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

package batch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputName_FirstImageHasNoSuffix(t *testing.T) {
	cfg := NewConfigDefault()
	cfg.OutDir = t.TempDir()
	got := OutputName(cfg, "/data/frame001.fits", 0, 3, "")
	want := filepath.Join(cfg.OutDir, "frame001.fits")
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestOutputName_SubsequentImagesGetNumericSuffix(t *testing.T) {
	cfg := NewConfigDefault()
	cfg.OutDir = t.TempDir()
	got := OutputName(cfg, "/data/frame001.fits", 2, 3, "")
	want := filepath.Join(cfg.OutDir, "frame001_02.fits")
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestOutputName_PrefixPostfixAndExtOverride(t *testing.T) {
	cfg := NewConfigDefault()
	cfg.OutDir = t.TempDir()
	cfg.Prefix = "cal_"
	cfg.Postfix = "_out"
	got := OutputName(cfg, "/data/frame.fit", 0, 1, ".fits")
	want := filepath.Join(cfg.OutDir, "cal_frame_out.fits")
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestOutputName_CollisionGetsUnderscoreSuffix(t *testing.T) {
	cfg := NewConfigDefault()
	cfg.OutDir = t.TempDir()
	existing := filepath.Join(cfg.OutDir, "frame.fits")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	got := OutputName(cfg, "/data/frame.fits", 0, 1, "")
	want := filepath.Join(cfg.OutDir, "frame_1.fits")
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputName resolves the on-disk path for one embedded image of a target,
// per <outDir or inputDir>/<prefix><stem><_NN if multi-image><postfix><ext
// or inputExt>. imageIndex 0 gets no numeric suffix; subsequent indices get
// _01, _02, and so on. If the resolved path already exists, a _<u> (u>=1)
// suffix is appended until the name is unique.
func OutputName(cfg *Config, inputPath string, imageIndex, imageCount int, outExt string) string {
	dir := cfg.OutDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	ext := outExt
	if ext == "" {
		ext = filepath.Ext(inputPath)
	}

	suffix := ""
	if imageCount > 1 && imageIndex > 0 {
		suffix = fmt.Sprintf("_%02d", imageIndex)
	}

	base := cfg.Prefix + stem + suffix + cfg.Postfix + ext
	path := filepath.Join(dir, base)
	return uniquify(path)
}

// uniquify appends _<u> (u>=1, before the extension) until path does not
// already exist on disk.
func uniquify(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for u := 1; ; u++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, u, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

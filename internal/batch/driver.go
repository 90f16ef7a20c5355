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
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/pbnjay/memory"

	internallog "github.com/mlnoga/starcal/internal/log"
)

// PlanWorkers resolves runtime parallelism the way the calibration and
// normalization engines need it: capped by CPU count scaled by
// fileThreadOverload, and by how many frameBytes-sized images physical
// memory can hold at once. Always returns at least 1.
func PlanWorkers(fileThreadOverload float32, frameBytes int64) int32 {
	cpuBound := int32(math.Max(1, math.Round(float64(runtime.GOMAXPROCS(0))*float64(fileThreadOverload))))
	if frameBytes <= 0 {
		return cpuBound
	}
	memBound := int32(int64(memory.TotalMemory()) / frameBytes)
	if memBound < 1 {
		memBound = 1
	}
	if memBound < cpuBound {
		return memBound
	}
	return cpuBound
}

// TargetResult is one target's outcome: its position in the original
// target list and the error it failed with, if any.
type TargetResult struct {
	Index  int
	Target string
	Err    error
}

// WorkFunc processes one target, logging through the supplied per-worker
// buffer rather than directly, so the driver can flush it atomically on
// join.
type WorkFunc func(ctx context.Context, target string, buf *internallog.Buffer) error

// Driver runs an ordered target list across a bounded worker pool.
// ReadThrottle and WriteThrottle are semaphores sized from cfg; neither
// Driver.Run nor batch.Run acquires them, so file reads and writes are
// bounded only by the worker count.
type Driver struct {
	cfg     *Config
	workers int32

	ReadThrottle  chan struct{}
	WriteThrottle chan struct{}
}

// NewDriver builds a Driver sized to workers concurrent targets, with
// ReadThrottle and WriteThrottle capacities taken from cfg (at least 1
// each).
func NewDriver(cfg *Config, workers int32) *Driver {
	if workers < 1 {
		workers = 1
	}
	readLimit := cfg.MaxFileReadThreads
	if readLimit < 1 {
		readLimit = 1
	}
	writeLimit := cfg.MaxFileWriteThreads
	if writeLimit < 1 {
		writeLimit = 1
	}
	return &Driver{
		cfg:           cfg,
		workers:       workers,
		ReadThrottle:  make(chan struct{}, readLimit),
		WriteThrottle: make(chan struct{}, writeLimit),
	}
}

// Run dispatches targets to work across d.workers goroutines, honoring
// cfg's error policy: Continue logs and proceeds, Abort cancels every
// in-flight worker on the first failure, and AskUser (outside headless
// mode) is left for the caller to arbitrate via ctx cancellation before
// calling Run again on the remaining targets.
func (d *Driver) Run(ctx context.Context, targets []string, work WorkFunc) []TargetResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]TargetResult, len(targets))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i, target := range targets {
		select {
		case <-ctx.Done():
			results[i] = TargetResult{Index: i, Target: target, Err: ctx.Err()}
			continue
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			defer func() { <-sem }()

			buf := &internallog.Buffer{}
			err := work(ctx, target, buf)
			buf.Flush()

			results[i] = TargetResult{Index: i, Target: target, Err: err}
			if err != nil && d.cfg.effectivePolicy() == Abort {
				cancel()
			}
		}(i, target)
	}

	wg.Wait()
	return results
}

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
	"errors"
	"testing"

	internallog "github.com/mlnoga/starcal/internal/log"
)

func TestRun_ContinueProcessesEveryTarget(t *testing.T) {
	cfg := NewConfigDefault()
	cfg.ErrorPolicy = Continue
	d := NewDriver(cfg, 4)

	targets := []string{"a", "b", "c"}
	results := d.Run(context.Background(), targets, func(ctx context.Context, target string, buf *internallog.Buffer) error {
		if target == "b" {
			return errors.New("boom")
		}
		return nil
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.Target == "b" && r.Err == nil {
			t.Error("expected target b to report its error")
		}
		if r.Target != "b" && r.Err != nil {
			t.Errorf("target %s should have succeeded, got %v", r.Target, r.Err)
		}
	}
}

func TestRun_AbortCancelsRemainingTargets(t *testing.T) {
	cfg := NewConfigDefault()
	cfg.ErrorPolicy = Abort
	d := NewDriver(cfg, 1) // single worker: strict ordering

	targets := []string{"a", "b", "c"}
	results := d.Run(context.Background(), targets, func(ctx context.Context, target string, buf *internallog.Buffer) error {
		if target == "a" {
			return errors.New("boom")
		}
		return nil
	})

	sawCancellation := false
	for _, r := range results {
		if r.Err != nil && r.Target != "a" {
			sawCancellation = true
		}
	}
	if !sawCancellation {
		t.Fatal("expected at least one later target to observe cancellation after abort")
	}
}

func TestPlanWorkers_AtLeastOne(t *testing.T) {
	if got := PlanWorkers(0, 0); got < 1 {
		t.Errorf("got %d, want >= 1", got)
	}
}

func TestPlanWorkers_MemoryBoundCaps(t *testing.T) {
	// An absurdly large per-frame footprint should collapse the worker
	// count to 1 regardless of CPU count.
	got := PlanWorkers(1.0, 1<<62)
	if got != 1 {
		t.Errorf("got %d, want 1 when memory cannot hold even one frame", got)
	}
}

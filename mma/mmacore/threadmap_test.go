// Copyright 2025 mmaplan Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mmacore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ajroetker/mmaplan/mma"
)

// checkExactCover verifies that every element of the tile is touched by
// exactly one (thread, access, element) triple.
func checkExactCover(t *testing.T, tm ThreadMap) {
	t.Helper()
	seen := make(map[mma.PitchLinearCoord]int, tm.Shape.Count())
	for tid := 0; tid < tm.Threads; tid++ {
		for _, off := range tm.Offsets(tid) {
			for e := 0; e < tm.ElementsPerAccess; e++ {
				c := mma.PitchLinearCoord{Contiguous: off.Contiguous + e, Strided: off.Strided}
				if c.Contiguous >= tm.Shape.Contiguous || c.Strided >= tm.Shape.Strided {
					t.Fatalf("thread %d touches %v outside tile %v", tid, c, tm.Shape)
				}
				seen[c]++
			}
		}
	}
	if len(seen) != tm.Shape.Count() {
		t.Fatalf("covered %d elements, tile has %d", len(seen), tm.Shape.Count())
	}
	for c, n := range seen {
		if n != 1 {
			t.Fatalf("element %v touched %d times", c, n)
		}
	}
}

func TestWarpRakedThreadMapExactCover(t *testing.T) {
	tests := []struct {
		shape       mma.PitchLinearShape
		threads     int
		arrangement mma.PitchLinearShape
		epa         int
	}{
		{mma.PitchLinearShape{Contiguous: 32, Strided: 128}, 128, mma.PitchLinearShape{Contiguous: 2, Strided: 16}, 16},
		{mma.PitchLinearShape{Contiguous: 32, Strided: 128}, 128, mma.PitchLinearShape{Contiguous: 4, Strided: 8}, 8},
		{mma.PitchLinearShape{Contiguous: 128, Strided: 32}, 128, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
		{mma.PitchLinearShape{Contiguous: 256, Strided: 32}, 256, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
		{mma.PitchLinearShape{Contiguous: 64, Strided: 16}, 256, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 4},
		{mma.PitchLinearShape{Contiguous: 16, Strided: 64}, 64, mma.PitchLinearShape{Contiguous: 4, Strided: 8}, 4},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%v_t%d_%v_e%d", tt.shape, tt.threads, tt.arrangement, tt.epa)
		t.Run(name, func(t *testing.T) {
			tm, err := NewWarpRakedThreadMap(tt.shape, tt.threads, tt.arrangement, tt.epa)
			if err != nil {
				t.Fatalf("NewWarpRakedThreadMap: %v", err)
			}
			checkExactCover(t, tm)
		})
	}
}

func TestWarpRakedThreadMapIterations(t *testing.T) {
	// 4 warps over a 32x128 tile of 8-bit elements: 16 per access, 2 lanes
	// along K, 16 along M.
	tm, err := NewWarpRakedThreadMap(mma.PitchLinearShape{Contiguous: 32, Strided: 128}, 128,
		mma.PitchLinearShape{Contiguous: 2, Strided: 16}, 16)
	if err != nil {
		t.Fatal(err)
	}
	if want := (mma.PitchLinearShape{Contiguous: 1, Strided: 4}); tm.WarpArrangement != want {
		t.Errorf("WarpArrangement = %v, want %v", tm.WarpArrangement, want)
	}
	if want := (mma.PitchLinearShape{Contiguous: 1, Strided: 2}); tm.Iterations != want {
		t.Errorf("Iterations = %v, want %v", tm.Iterations, want)
	}
	if want := (mma.PitchLinearShape{Contiguous: 32, Strided: 16}); tm.Delta != want {
		t.Errorf("Delta = %v, want %v", tm.Delta, want)
	}
	if got := tm.InitialOffset(33); got != (mma.PitchLinearCoord{Contiguous: 16, Strided: 32}) {
		t.Errorf("InitialOffset(33) = %v", got)
	}
}

func TestWarpRakedThreadMapRejects(t *testing.T) {
	tests := []struct {
		name        string
		shape       mma.PitchLinearShape
		threads     int
		arrangement mma.PitchLinearShape
		epa         int
	}{
		{"partial warp", mma.PitchLinearShape{Contiguous: 64, Strided: 32}, 48, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
		{"bad arrangement", mma.PitchLinearShape{Contiguous: 64, Strided: 32}, 64, mma.PitchLinearShape{Contiguous: 8, Strided: 8}, 8},
		{"access remainder", mma.PitchLinearShape{Contiguous: 60, Strided: 32}, 64, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
		{"arrangement remainder", mma.PitchLinearShape{Contiguous: 32, Strided: 32}, 64, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
		{"too many warps", mma.PitchLinearShape{Contiguous: 64, Strided: 4}, 1024, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
		{"empty", mma.PitchLinearShape{Contiguous: 0, Strided: 4}, 32, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWarpRakedThreadMap(tt.shape, tt.threads, tt.arrangement, tt.epa)
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *mma.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("error %v is not a *mma.ConfigError", err)
			}
		})
	}
}

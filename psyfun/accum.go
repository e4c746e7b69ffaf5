// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psyfun

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// Accumulator collects proportion-correct observations per tested
// contrast across one threshold-estimation run.  Contrast keys compare
// by exact float64 equality: repeated visits to the identical value
// append to that contrast's history, distinct values (however close)
// get their own entry.  Histories grow monotonically and are never
// pruned within a run.
type Accumulator struct {
	Hist map[float64][]float64 `desc:"ordered proportion-correct observations per contrast"`
}

func NewAccumulator() *Accumulator {
	return &Accumulator{Hist: make(map[float64][]float64)}
}

// Record appends one proportion-correct observation for the given
// contrast key.
func (ac *Accumulator) Record(contrast, propCorrect float64) {
	ac.Hist[contrast] = append(ac.Hist[contrast], propCorrect)
}

// History returns the ordered observations recorded at exactly this
// contrast (nil if never tested).
func (ac *Accumulator) History(contrast float64) []float64 {
	return ac.Hist[contrast]
}

// NVisits returns the number of recorded blocks at given contrast.
func (ac *Accumulator) NVisits(contrast float64) int {
	return len(ac.Hist[contrast])
}

// Contrasts returns all tested contrasts in ascending order.
func (ac *Accumulator) Contrasts() []float64 {
	cs := make([]float64, 0, len(ac.Hist))
	for c := range ac.Hist {
		cs = append(cs, c)
	}
	sort.Float64s(cs)
	return cs
}

// Mean returns the mean proportion correct across all visits at given
// contrast, and false if it was never tested.
func (ac *Accumulator) Mean(contrast float64) (float64, bool) {
	h := ac.Hist[contrast]
	if len(h) == 0 {
		return 0, false
	}
	m, err := stats.Mean(h)
	if err != nil {
		return 0, false
	}
	return m, true
}

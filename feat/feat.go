// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package feat assembles pooled per-trial features into labeled feature
sets for decoding.

Two trial framings are supported.  SingleInterval stacks null-stimulus
rows (label 0) over test-stimulus rows (label 1).  TwoInterval builds
TAFC rows by concatenating the null and test features of each trial:
the first half of the trials become [null|test] rows with label 0, the
second half [test|null] rows with label 1.
*/
package feat

import (
	"fmt"

	"github.com/emer/emergent/v2/erand"
	"gonum.org/v1/gonum/mat"
)

// IntervalTypes select the trial framing used to build labeled rows.
type IntervalTypes int32

const (
	// SingleInterval is a yes/no framing: one stimulus per trial,
	// null vs. test as the two classes.
	SingleInterval IntervalTypes = iota

	// TwoInterval is the TAFC framing: each row holds two stimulus
	// intervals and the class encodes their order.
	TwoInterval

	IntervalTypesN
)

var intervalTypeNames = []string{"SingleInterval", "TwoInterval"}

func (it IntervalTypes) String() string {
	if it < 0 || it >= IntervalTypesN {
		return fmt.Sprintf("IntervalTypes(%d)", it)
	}
	return intervalTypeNames[it]
}

// Set is a labeled feature matrix: one row per assembled trial, with
// Labels holding the matching 0/1 class per row.
type Set struct {
	X      *mat.Dense `desc:"feature rows"`
	Labels []float64  `desc:"class label per row, exactly 0 or 1"`
}

// NRows returns the number of feature rows.
func (fs *Set) NRows() int {
	if fs.X == nil {
		return 0
	}
	r, _ := fs.X.Dims()
	return r
}

// NDims returns the feature dimensionality.
func (fs *Set) NDims() int {
	if fs.X == nil {
		return 0
	}
	_, c := fs.X.Dims()
	return c
}

// Assemble builds a labeled feature set from pooled null-stimulus and
// test-stimulus features (one row per trial each, identical shapes),
// under the given interval framing.
//
// For TwoInterval with a single trial, the one row's class is drawn
// uniformly from {0,1} using rnd (nil uses the global source); seed
// the source for deterministic behavior.  With an odd trial count > 1,
// the trailing unpaired trial is dropped, so the row count is always
// even (half per class).
func Assemble(nullF, testF *mat.Dense, iv IntervalTypes, rnd erand.Rand) (*Set, error) {
	nr, nc := nullF.Dims()
	tr, tc := testF.Dims()
	if nr != tr || nc != tc {
		return nil, fmt.Errorf("feat: null features are %dx%d, test features are %dx%d", nr, nc, tr, tc)
	}
	if nr < 1 {
		return nil, fmt.Errorf("feat: no trials to assemble")
	}
	switch iv {
	case SingleInterval:
		return assembleSingle(nullF, testF, nr, nc), nil
	case TwoInterval:
		return assembleTAFC(nullF, testF, nr, nc, rnd)
	}
	return nil, fmt.Errorf("feat: unknown interval type: %d", iv)
}

func assembleSingle(nullF, testF *mat.Dense, nr, nc int) *Set {
	fs := &Set{X: mat.NewDense(2*nr, nc, nil), Labels: make([]float64, 2*nr)}
	for ti := 0; ti < nr; ti++ {
		fs.X.SetRow(ti, nullF.RawRowView(ti))
		fs.X.SetRow(nr+ti, testF.RawRowView(ti))
		fs.Labels[nr+ti] = 1
	}
	return fs
}

func assembleTAFC(nullF, testF *mat.Dense, nr, nc int, rnd erand.Rand) (*Set, error) {
	if nr == 1 {
		fs := &Set{X: mat.NewDense(1, 2*nc, nil), Labels: make([]float64, 1)}
		cls := 0
		if boolP(0.5, rnd) {
			cls = 1
		}
		setTAFCRow(fs.X, 0, nullF.RawRowView(0), testF.RawRowView(0), cls)
		fs.Labels[0] = float64(cls)
		return fs, nil
	}
	half := nr / 2 // nr >= 2 here, single-trial case handled above
	n := 2 * half
	fs := &Set{X: mat.NewDense(n, 2*nc, nil), Labels: make([]float64, n)}
	for ti := 0; ti < half; ti++ {
		setTAFCRow(fs.X, ti, nullF.RawRowView(ti), testF.RawRowView(ti), 0)
	}
	for ti := half; ti < n; ti++ {
		setTAFCRow(fs.X, ti, nullF.RawRowView(ti), testF.RawRowView(ti), 1)
		fs.Labels[ti] = 1
	}
	return fs, nil
}

// setTAFCRow writes one two-interval row: class 0 is [null|test],
// class 1 is [test|null].
func setTAFCRow(x *mat.Dense, ri int, nullRow, testRow []float64, cls int) {
	nc := len(nullRow)
	a, b := nullRow, testRow
	if cls == 1 {
		a, b = testRow, nullRow
	}
	for j := 0; j < nc; j++ {
		x.Set(ri, j, a[j])
		x.Set(ri, nc+j, b[j])
	}
}

func boolP(p float64, rnd erand.Rand) bool {
	if rnd != nil {
		return erand.BoolP(p, -1, rnd)
	}
	return erand.BoolP(p, -1)
}

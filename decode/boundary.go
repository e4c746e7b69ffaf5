// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"github.com/emer/etable/v2/etensor"
	"github.com/emer/etable/v2/minmax"
	"gonum.org/v1/gonum/mat"
)

// Boundary is a dense decision-score surface over the bounding box of
// a 2D projected feature set, for diagnostic visualization of the
// trained decision rule.
type Boundary struct {
	XRange minmax.F64      `desc:"range of the first projected component spanned by the grid"`
	YRange minmax.F64      `desc:"range of the second projected component spanned by the grid"`
	Scores etensor.Float64 `view:"no-inline" desc:"decision score at each grid point, [y, x]"`
}

func (bd *Boundary) Clone() *Boundary {
	cp := &Boundary{XRange: bd.XRange, YRange: bd.YRange}
	cp.Scores.CopyShapeFrom(&bd.Scores)
	copy(cp.Scores.Values, bd.Scores.Values)
	return cp
}

// rangeEps is the relative widening applied to a zero-width feature
// range so the grid still spans a nonempty box.  Cosmetic only: it
// never affects classification.
const rangeEps = 1e-6

// boundaryGrid evaluates the decision score on an n x n grid over the
// (widened) bounding box of the 2D projected features.
func boundaryGrid(proj *mat.Dense, w []float64, b float64, n int) *Boundary {
	nr, _ := proj.Dims()
	bd := &Boundary{}
	bd.XRange.SetInfinity()
	bd.YRange.SetInfinity()
	for i := 0; i < nr; i++ {
		row := proj.RawRowView(i)
		bd.XRange.FitValInRange(row[0])
		bd.YRange.FitValInRange(row[1])
	}
	widen(&bd.XRange)
	widen(&bd.YRange)
	bd.Scores.SetShape([]int{n, n}, nil, []string{"y", "x"})
	dx := bd.XRange.Range() / float64(n-1)
	dy := bd.YRange.Range() / float64(n-1)
	pt := make([]float64, 2)
	for yi := 0; yi < n; yi++ {
		pt[1] = bd.YRange.Min + float64(yi)*dy
		for xi := 0; xi < n; xi++ {
			pt[0] = bd.XRange.Min + float64(xi)*dx
			bd.Scores.Set([]int{yi, xi}, svmScore(pt, w, b))
		}
	}
	return bd
}

// widen expands a degenerate (zero-width) range by a negligible
// epsilon proportional to its magnitude.
func widen(r *minmax.F64) {
	if r.Range() > 0 {
		return
	}
	eps := rangeEps
	if r.Min != 0 {
		m := r.Min
		if m < 0 {
			m = -m
		}
		eps = m * rangeEps
	}
	r.Min -= eps
	r.Max += eps
}

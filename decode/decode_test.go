// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"math"
	"math/rand"
	"testing"

	"github.com/emer/emergent/v2/erand"
	"github.com/emer/etable/v2/minmax"
	"github.com/emer/psyphy/feat"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// gaussSet builds a balanced two-class feature set with class means 0
// and sep on every dimension, unit noise.
func gaussSet(rng *rand.Rand, nPer, nd int, sep float64) *feat.Set {
	n := 2 * nPer
	x := mat.NewDense(n, nd, nil)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		mu := 0.0
		if i >= nPer {
			mu = sep
			labels[i] = 1
		}
		for j := 0; j < nd; j++ {
			x.Set(i, j, mu+rng.NormFloat64())
		}
	}
	return &feat.Set{X: x, Labels: labels}
}

// poissonTAFCSet builds two-interval rows from Poisson-like counts
// with null rate base and test rate base+delta.
func poissonTAFCSet(rng *rand.Rand, nPer, nd int, base, delta float64) *feat.Set {
	n := 2 * nPer
	x := mat.NewDense(n, 2*nd, nil)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		cls := 0
		if i >= nPer {
			cls = 1
			labels[i] = 1
		}
		for j := 0; j < nd; j++ {
			nv := poissonDraw(rng, base)
			tv := poissonDraw(rng, base+delta)
			if cls == 0 {
				x.Set(i, j, nv)
				x.Set(i, nd+j, tv)
			} else {
				x.Set(i, j, tv)
				x.Set(i, nd+j, nv)
			}
		}
	}
	return &feat.Set{X: x, Labels: labels}
}

func poissonDraw(rng *rand.Rand, lam float64) float64 {
	// Knuth's method; rates here are small enough
	l := math.Exp(-lam)
	thr := 1.0
	for k := 0; ; k++ {
		thr *= rng.Float64()
		if thr < l {
			return float64(k)
		}
	}
}

func TestTemplateStates(t *testing.T) {
	tp := NewTemplate(feat.SingleInterval)
	require.False(t, tp.Trained())

	rng := rand.New(rand.NewSource(1))
	fs := gaussSet(rng, 10, 3, 2)

	_, err := tp.Predict(fs)
	require.ErrorIs(t, err, ErrNotTrained)

	require.NoError(t, tp.Train(fs))
	require.True(t, tp.Trained())
	require.ErrorIs(t, tp.Train(fs), ErrRetrain)

	tp.Reset()
	require.False(t, tp.Trained())
	require.NoError(t, tp.Train(fs))
}

func TestTemplateSeparated(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tp := NewTemplate(feat.TwoInterval)
	train := poissonTAFCSet(rng, 64, 8, 4, 6)
	require.NoError(t, tp.Train(train))

	test := poissonTAFCSet(rng, 64, 8, 4, 6)
	pred, err := tp.Predict(test)
	require.NoError(t, err)
	if pred.PCorrect < 0.9 {
		t.Errorf("well-separated TAFC accuracy %v, want >= 0.9", pred.PCorrect)
	}
}

func TestTemplateChanceOnIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tp := NewTemplate(feat.TwoInterval)
	// zero separation: null and test share the same rate
	train := poissonTAFCSet(rng, 64, 8, 5, 0)
	require.NoError(t, tp.Train(train))
	test := poissonTAFCSet(rng, 128, 8, 5, 0)
	pred, err := tp.Predict(test)
	require.NoError(t, err)
	if pred.PCorrect < 0.35 || pred.PCorrect > 0.65 {
		t.Errorf("identical-stimulus accuracy %v, want near chance", pred.PCorrect)
	}
}

func TestPredictIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	sv := NewSVM()
	sv.Rnd = erand.NewSysRand(4)
	fs := gaussSet(rng, 32, 6, 1.5)
	require.NoError(t, sv.Train(fs))

	p1, err := sv.Predict(fs)
	require.NoError(t, err)
	p2, err := sv.Predict(fs)
	require.NoError(t, err)
	require.Equal(t, p1.Labels, p2.Labels)
	require.Equal(t, p1.PCorrect, p2.PCorrect)
}

func TestSVMInSampleRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	sv := NewSVM()
	sv.Rnd = erand.NewSysRand(5)
	fs := gaussSet(rng, 64, 4, 3)
	require.NoError(t, sv.Train(fs))

	pred, err := sv.Predict(fs)
	require.NoError(t, err)
	// predicting on the exact training set reproduces the recorded
	// in-sample accuracy
	require.InDelta(t, sv.TrainAcc, pred.PCorrect, 1e-12)
	// and cross validation should be in the same neighborhood
	if sv.CVAcc < sv.TrainAcc-0.15 {
		t.Errorf("cross-validated accuracy %v far below in-sample %v", sv.CVAcc, sv.TrainAcc)
	}
}

func TestSVMMonotoneInSeparation(t *testing.T) {
	seps := []float64{0.5, 1.5, 4}
	accs := make([]float64, len(seps))
	for i, sep := range seps {
		rng := rand.New(rand.NewSource(6))
		sv := NewSVM()
		sv.Rnd = erand.NewSysRand(6)
		train := gaussSet(rng, 128, 4, sep)
		require.NoError(t, sv.Train(train))
		test := gaussSet(rng, 128, 4, sep)
		pred, err := sv.Predict(test)
		require.NoError(t, err)
		accs[i] = pred.PCorrect
	}
	for i := 1; i < len(accs); i++ {
		if accs[i] < accs[i-1] {
			t.Errorf("accuracy not monotone in separation: %v", accs)
		}
	}
}

func TestSVMErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sv := NewSVM()
	fs := gaussSet(rng, 16, 4, 2)

	_, err := sv.Predict(fs)
	require.ErrorIs(t, err, ErrNotTrained)

	require.NoError(t, sv.Train(fs))
	require.ErrorIs(t, sv.Train(fs), ErrRetrain)

	bad := gaussSet(rng, 4, 5, 2) // wrong dims
	_, err = sv.Predict(bad)
	var de DimsError
	require.ErrorAs(t, err, &de)
	require.Equal(t, 4, de.Train)
	require.Equal(t, 5, de.Predict)
}

func TestSVMBoundary(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	sv := NewSVM() // NComponents = 2 -> boundary computed
	sv.Rnd = erand.NewSysRand(8)
	fs := gaussSet(rng, 32, 5, 2)
	require.NoError(t, sv.Train(fs))
	require.NotNil(t, sv.Boundary)
	require.Equal(t, sv.BoundaryN, sv.Boundary.Scores.Dim(0))
	require.Equal(t, sv.BoundaryN, sv.Boundary.Scores.Dim(1))
	require.True(t, sv.Boundary.XRange.Range() > 0)

	// resolutions below 2 cannot form a grid and disable the map
	sv = NewSVM()
	sv.Rnd = erand.NewSysRand(8)
	sv.BoundaryN = 1
	require.NoError(t, sv.Train(gaussSet(rng, 32, 5, 2)))
	require.Nil(t, sv.Boundary)
}

func TestCloneIsolation(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	sv := NewSVM()
	sv.Rnd = erand.NewSysRand(9)
	fs := gaussSet(rng, 32, 4, 2)
	require.NoError(t, sv.Train(fs))

	cp := sv.Clone().(*SVM)
	cp.Means[0] += 100
	cp.W[0] += 100
	require.NotEqual(t, sv.Means[0], cp.Means[0])
	require.NotEqual(t, sv.W[0], cp.W[0])

	// clone predicts like the original before mutation
	tp := NewTemplate(feat.SingleInterval)
	require.NoError(t, tp.Train(fs))
	tcp := tp.Clone().(*Template)
	p1, err := tp.Predict(fs)
	require.NoError(t, err)
	p2, err := tcp.Predict(fs)
	require.NoError(t, err)
	require.Equal(t, p1.Labels, p2.Labels)
}

func TestWiden(t *testing.T) {
	r := minmax.F64{Min: 2, Max: 2}
	widen(&r)
	require.True(t, r.Range() > 0)
	require.True(t, r.Range() < 1e-4)

	r = minmax.F64{Min: 0, Max: 0}
	widen(&r)
	require.True(t, r.Range() > 0)

	r = minmax.F64{Min: 1, Max: 3}
	widen(&r)
	require.Equal(t, minmax.F64{Min: 1, Max: 3}, r)
}

func TestSVMOneComponent(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	sv := NewSVM()
	sv.Rnd = erand.NewSysRand(10)
	// single input dim: projection clamps to 1 component, no boundary
	fs := gaussSet(rng, 16, 1, 3)
	require.NoError(t, sv.Train(fs))
	require.Nil(t, sv.Boundary)
	pred, err := sv.Predict(fs)
	require.NoError(t, err)
	require.True(t, pred.PCorrect > 0.8)
}

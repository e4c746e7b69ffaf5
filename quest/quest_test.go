// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/emer/psyphy/psyfun"
	"github.com/stretchr/testify/require"
)

func TestGridValues(t *testing.T) {
	g := Grid{Min: -3, Max: -1, N: 5}
	vs := g.Values()
	require.Equal(t, []float64{-3, -2.5, -2, -1.5, -1}, vs)

	g = Grid{Min: 7, Max: 9, N: 1}
	require.Equal(t, []float64{7}, g.Values())
}

func TestValidate(t *testing.T) {
	pr := &Params{}
	pr.Defaults()
	require.NoError(t, pr.Validate())

	bad := *pr
	bad.NPerBlock = 0
	require.Error(t, bad.Validate())

	bad = *pr
	bad.StimGrid.N = 0
	require.Error(t, bad.Validate())

	bad = *pr
	bad.Policy = Policies(5)
	require.Error(t, bad.Validate())
}

// simulate runs the procedure against a simulated observer with the
// given true psychometric function, returning the final state.
func simulate(t *testing.T, pr *Params, truth psyfun.Weibull, seed int64) *State {
	t.Helper()
	qs, err := New(pr)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	for {
		x, ok := qs.NextStimulus()
		if !ok {
			break
		}
		p := truth.Prop(x)
		nc := 0
		for i := 0; i < pr.NPerBlock; i++ {
			if rng.Float64() < p {
				nc++
			}
		}
		require.NoError(t, qs.Update(x, nc, pr.NPerBlock))
	}
	return qs
}

func TestAdaptiveConverges(t *testing.T) {
	pr := &Params{}
	pr.Defaults()
	pr.MaxTrials = 640

	truth := psyfun.Weibull{Threshold: -2, Slope: 3, Guess: 0.5, Lapse: 0}
	qs := simulate(t, pr, truth, 21)

	require.True(t, qs.Done())
	require.True(t, qs.NTrials() <= pr.MaxTrials)

	thr, slope := qs.PosteriorMean()
	if math.Abs(thr-truth.Threshold) > 0.3 {
		t.Errorf("posterior-mean threshold %v, want near %v", thr, truth.Threshold)
	}
	require.True(t, slope > 0)

	logTh, fit, err := qs.FitML(0.81606)
	require.NoError(t, err)
	require.True(t, logTh >= pr.ThreshGrid.Min && logTh <= pr.ThreshGrid.Max,
		"fitted threshold %v outside estimation domain", logTh)
	if math.Abs(fit.Threshold-truth.Threshold) > 0.3 {
		t.Errorf("ML threshold %v, want near %v", fit.Threshold, truth.Threshold)
	}
}

func TestEntropyDecreases(t *testing.T) {
	pr := &Params{}
	pr.Defaults()
	pr.MaxTrials = 200
	pr.StopEntropy = 0 // never stop early

	qs, err := New(pr)
	require.NoError(t, err)
	h0 := qs.Entropy()
	truth := psyfun.Weibull{Threshold: -2, Slope: 3, Guess: 0.5, Lapse: 0}
	rng := rand.New(rand.NewSource(31))
	for !qs.Done() {
		x, ok := qs.NextStimulus()
		require.True(t, ok)
		p := truth.Prop(x)
		nc := 0
		for i := 0; i < pr.NPerBlock; i++ {
			if rng.Float64() < p {
				nc++
			}
		}
		require.NoError(t, qs.Update(x, nc, pr.NPerBlock))
	}
	if qs.Entropy() >= h0 {
		t.Errorf("posterior entropy did not decrease: %v -> %v", h0, qs.Entropy())
	}
}

func TestFixedStimuliOnePass(t *testing.T) {
	pr := &Params{}
	pr.Defaults()
	pr.Policy = FixedStimuli
	pr.StimGrid = Grid{Min: -3, Max: -1, N: 5}

	truth := psyfun.Weibull{Threshold: -2, Slope: 3, Guess: 0.5, Lapse: 0}
	qs := simulate(t, pr, truth, 41)
	require.True(t, qs.Done())
	require.Equal(t, 5, len(qs.Trials()))
	require.Equal(t, 5*pr.NPerBlock, qs.NTrials())
}

func TestFixedStimuliRevisitFails(t *testing.T) {
	pr := &Params{}
	pr.Defaults()
	pr.Policy = FixedStimuli
	pr.StimGrid = Grid{Min: -3, Max: -1, N: 3}

	qs, err := New(pr)
	require.NoError(t, err)
	x, ok := qs.NextStimulus()
	require.True(t, ok)
	require.NoError(t, qs.Update(x, 5, 10))
	// revisiting the already-tested level must fail loudly
	require.Error(t, qs.Update(x, 5, 10))
}

func TestUpdateErrors(t *testing.T) {
	pr := &Params{}
	pr.Defaults()
	qs, err := New(pr)
	require.NoError(t, err)

	require.Error(t, qs.Update(-99, 5, 10)) // off-grid level
	x, _ := qs.NextStimulus()
	require.Error(t, qs.Update(x, 11, 10)) // more correct than trials
	require.Error(t, qs.Update(x, 0, 0))   // empty block
}

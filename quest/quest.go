// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package quest implements the QUEST+ adaptive psychophysical procedure:
a Bayesian posterior over a fixed grid of psychometric-function
parameters (log10 threshold x slope), updated after each block of
trials, with the next stimulus chosen to minimize the expected entropy
of the posterior.

The procedure also supports a fixed-stimuli (method of constant
stimuli) policy that presents a fixed set of levels once each, sharing
the same posterior and maximum-likelihood machinery.

All stimulus levels are log10 contrast throughout.
*/
package quest

import (
	"fmt"
	"math"

	"github.com/emer/psyphy/psyfun"
)

// Policies select how stimuli are chosen and when to stop.
type Policies int32

const (
	// Adaptive chooses each next level by expected-entropy
	// minimization, stopping when the posterior entropy drops below
	// StopEntropy (once past MinTrials) or MaxTrials is reached.
	Adaptive Policies = iota

	// FixedStimuli presents each grid level exactly once, in order
	// (method of constant stimuli); revisiting a level is a
	// programming error.
	FixedStimuli

	PoliciesN
)

var policyNames = []string{"Adaptive", "FixedStimuli"}

func (pl Policies) String() string {
	if pl < 0 || pl >= PoliciesN {
		return fmt.Sprintf("Policies(%d)", pl)
	}
	return policyNames[pl]
}

// Grid is a uniform grid of candidate values.
type Grid struct {
	Min float64 `desc:"lowest candidate value"`
	Max float64 `desc:"highest candidate value"`
	N   int     `min:"1" desc:"number of candidates"`
}

// Values expands the grid into its candidate values.
func (gr *Grid) Values() []float64 {
	vs := make([]float64, gr.N)
	if gr.N == 1 {
		vs[0] = gr.Min
		return vs
	}
	d := (gr.Max - gr.Min) / float64(gr.N-1)
	for i := range vs {
		vs[i] = gr.Min + float64(i)*d
	}
	return vs
}

// Params configures the procedure.  The candidate grids are fixed at
// construction and never change over a run.
type Params struct {
	ThreshGrid  Grid     `desc:"candidate log10-contrast thresholds"`
	SlopeGrid   Grid     `desc:"candidate psychometric slopes"`
	StimGrid    Grid     `desc:"candidate stimulus levels (log10 contrast)"`
	Guess       float64  `def:"0.5" desc:"guess rate of the assumed psychometric family (0.5 for TAFC)"`
	Lapse       float64  `def:"0" desc:"lapse rate of the assumed psychometric family"`
	Policy      Policies `desc:"stimulus-selection and stopping policy"`
	NPerBlock   int      `min:"1" def:"10" desc:"trials per block: the posterior is updated once per block, not per trial"`
	MinTrials   int      `def:"32" desc:"Adaptive: minimum total trials before the entropy criterion can stop the run"`
	MaxTrials   int      `def:"1280" desc:"Adaptive: total trial budget; FixedStimuli ignores this and stops after one pass over StimGrid"`
	StopEntropy float64  `def:"0.5" desc:"Adaptive: stop once posterior entropy (nats) falls below this, after MinTrials"`
}

func (pr *Params) Defaults() {
	pr.ThreshGrid = Grid{Min: -3.5, Max: -0.5, N: 61}
	pr.SlopeGrid = Grid{Min: 0.5, Max: 8, N: 16}
	pr.StimGrid = Grid{Min: -3.5, Max: -0.5, N: 31}
	pr.Guess = 0.5
	pr.Lapse = 0
	pr.Policy = Adaptive
	pr.NPerBlock = 10
	pr.MinTrials = 32
	pr.MaxTrials = 1280
	pr.StopEntropy = 0.5
}

// Validate fails fast on configurations that cannot run.
func (pr *Params) Validate() error {
	if pr.Policy < 0 || pr.Policy >= PoliciesN {
		return fmt.Errorf("quest: unknown policy: %d", pr.Policy)
	}
	if pr.ThreshGrid.N < 1 || pr.SlopeGrid.N < 1 || pr.StimGrid.N < 1 {
		return fmt.Errorf("quest: all candidate grids need N >= 1: thresh %d, slope %d, stim %d",
			pr.ThreshGrid.N, pr.SlopeGrid.N, pr.StimGrid.N)
	}
	if pr.NPerBlock < 1 {
		return fmt.Errorf("quest: NPerBlock must be >= 1, is %d", pr.NPerBlock)
	}
	if pr.Policy == Adaptive && pr.MaxTrials < 1 {
		return fmt.Errorf("quest: MaxTrials must be >= 1, is %d", pr.MaxTrials)
	}
	return nil
}

// State is the procedure's belief state: a posterior over the
// threshold x slope grid, plus the full record of trial blocks.
type State struct {
	Params Params `desc:"parameters the run was constructed with (read-only)"`

	thrVals  []float64
	slpVals  []float64
	stimVals []float64
	// pTable[si][pi] is P(correct | stim si, params pi), pi indexing
	// threshold-major over the parameter grid.
	pTable  [][]float64
	post    []float64
	nTrials int
	done    bool
	history []psyfun.Trial
	visits  map[float64]int
	fixedIx int
}

// New constructs a procedure in its initial state: uniform posterior,
// precomputed psychometric table over the stimulus grid.
func New(pr *Params) (*State, error) {
	if err := pr.Validate(); err != nil {
		return nil, err
	}
	qs := &State{Params: *pr}
	qs.thrVals = pr.ThreshGrid.Values()
	qs.slpVals = pr.SlopeGrid.Values()
	qs.stimVals = pr.StimGrid.Values()
	np := len(qs.thrVals) * len(qs.slpVals)
	qs.post = make([]float64, np)
	for i := range qs.post {
		qs.post[i] = 1 / float64(np)
	}
	qs.pTable = make([][]float64, len(qs.stimVals))
	wb := psyfun.Weibull{Guess: pr.Guess, Lapse: pr.Lapse}
	for si, x := range qs.stimVals {
		row := make([]float64, np)
		pi := 0
		for _, t := range qs.thrVals {
			wb.Threshold = t
			for _, s := range qs.slpVals {
				wb.Slope = s
				row[pi] = wb.Prop(x)
				pi++
			}
		}
		qs.pTable[si] = row
	}
	qs.visits = make(map[float64]int)
	return qs, nil
}

// NTrials returns the total number of trials folded into the posterior.
func (qs *State) NTrials() int { return qs.nTrials }

// Done returns true once a stopping rule has fired.
func (qs *State) Done() bool { return qs.done }

// Trials returns the recorded trial blocks, in presentation order.
func (qs *State) Trials() []psyfun.Trial { return qs.history }

// Posterior returns the current posterior over the parameter grid
// (threshold-major).  The returned slice is live; do not modify.
func (qs *State) Posterior() []float64 { return qs.post }

// Entropy returns the Shannon entropy (nats) of the posterior.
func (qs *State) Entropy() float64 {
	return entropy(qs.post)
}

// PosteriorMean returns the posterior-mean threshold and slope.
func (qs *State) PosteriorMean() (thresh, slope float64) {
	pi := 0
	for _, t := range qs.thrVals {
		for _, s := range qs.slpVals {
			thresh += qs.post[pi] * t
			slope += qs.post[pi] * s
			pi++
		}
	}
	return
}

func entropy(p []float64) float64 {
	h := 0.0
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

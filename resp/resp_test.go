// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resp

import (
	"math"
	"testing"

	"github.com/emer/emergent/v2/erand"
	"github.com/stretchr/testify/require"
)

func TestNoiseModeFromString(t *testing.T) {
	nm, err := NoiseModeFromString("Random")
	require.NoError(t, err)
	require.Equal(t, RandomNoise, nm)

	_, err = NoiseModeFromString("gaussian")
	require.Error(t, err)
}

func TestPoissonNoNoise(t *testing.T) {
	pp := &PoissonProvider{}
	pp.Defaults()
	pp.NUnits = 4

	st := Stimulus{Name: "test", Contrast: 0.1}
	is, err := pp.Responses(st, 3, NoNoise)
	require.NoError(t, err)
	require.Equal(t, 3, is.NTrials())
	require.Equal(t, 1, is.NTimes())
	require.Equal(t, 4, is.NUnits())

	want := pp.Base + pp.Gain*st.Contrast
	for ti := 0; ti < 3; ti++ {
		for ui := 0; ui < 4; ui++ {
			if is.Value(ti, 0, ui) != want {
				t.Errorf("trial %d unit %d: got %v, want %v", ti, ui, is.Value(ti, 0, ui), want)
			}
		}
	}
}

func TestPoissonRandomNoise(t *testing.T) {
	pp := &PoissonProvider{}
	pp.Defaults()
	pp.NUnits = 8
	pp.Rnd = erand.NewSysRand(17)

	is, err := pp.Responses(Stimulus{Contrast: 0.2}, 200, RandomNoise)
	require.NoError(t, err)

	// mean over many draws should approach the Poisson rate
	lam := pp.MeanRate(0, 0.2)
	sum := 0.0
	for ti := 0; ti < 200; ti++ {
		sum += is.Value(ti, 0, 0)
	}
	mean := sum / 200
	if math.Abs(mean-lam) > 0.15*lam {
		t.Errorf("empirical mean %v too far from rate %v", mean, lam)
	}
}

func TestPoissonErrors(t *testing.T) {
	pp := &PoissonProvider{}
	pp.Defaults()

	_, err := pp.Responses(Stimulus{}, 0, NoNoise)
	require.Error(t, err)

	_, err = pp.Responses(Stimulus{}, 1, NoiseModes(99))
	require.Error(t, err)
}

func TestSameShape(t *testing.T) {
	a := NewInstanceSet(Stimulus{}, 2, 3, 4)
	b := NewInstanceSet(Stimulus{}, 2, 3, 4)
	c := NewInstanceSet(Stimulus{}, 2, 3, 5)
	require.NoError(t, a.SameShape(b))
	require.Error(t, a.SameShape(c))
}

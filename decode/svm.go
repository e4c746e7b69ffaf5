// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"fmt"

	"github.com/emer/emergent/v2/erand"
	"github.com/emer/psyphy/feat"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SVM is the trainable statistical observer: features are centered,
// projected onto a principal-components basis of configured size, and
// classified by a linear support-vector machine trained with dual
// coordinate descent.  The centering vector and basis are computed
// once at train time and re-applied unchanged at predict time.
type SVM struct {
	NComponents int        `min:"1" def:"2" desc:"number of principal components to project onto (clamped to the available rank at train time)"`
	C           float64    `min:"0" def:"1" desc:"SVM box constraint: upper bound on the dual coefficients, trading margin width against training errors"`
	MaxIter     int        `min:"1" def:"1000" desc:"maximum outer passes of dual coordinate descent"`
	Tol         float64    `def:"1e-4" desc:"convergence tolerance on the maximal projected gradient"`
	CVFolds     int        `min:"0" def:"10" desc:"k for k-fold cross-validated accuracy at train time; 0 or 1 disables"`
	BoundaryN   int        `min:"0" def:"64" desc:"grid resolution per axis for the 2D decision-boundary map; values below 2 disable it"`
	Rnd         erand.Rand `view:"-" desc:"random source for coordinate-descent ordering and fold assignment -- seed for reproducibility; nil uses the global source"`

	// training products, read-only after Train
	Means    []float64  `view:"-" desc:"per-feature centering vector (column means of the training features)"`
	Basis    *mat.Dense `view:"-" desc:"principal-components basis, features x components"`
	W        []float64  `view:"-" desc:"SVM weight vector over projected features"`
	B        float64    `view:"-" desc:"SVM bias"`
	TrainAcc float64    `desc:"in-sample accuracy on the training set"`
	CVAcc    float64    `desc:"k-fold cross-validated accuracy estimate, if CVFolds > 1"`
	Boundary *Boundary  `view:"no-inline" desc:"decision-score grid over the projected feature range, computed only when the projection is exactly 2D"`
	trained  bool
}

// NewSVM returns an SVM decoder with default parameters.
func NewSVM() *SVM {
	sv := &SVM{}
	sv.Defaults()
	return sv
}

func (sv *SVM) Defaults() {
	sv.NComponents = 2
	sv.C = 1
	sv.MaxIter = 1000
	sv.Tol = 1e-4
	sv.CVFolds = 10
	sv.BoundaryN = 64
}

func (sv *SVM) Trained() bool { return sv.trained }

// Reset discards all training products, allowing an intentional
// retrain.
func (sv *SVM) Reset() {
	sv.Means = nil
	sv.Basis = nil
	sv.W = nil
	sv.B = 0
	sv.TrainAcc = 0
	sv.CVAcc = 0
	sv.Boundary = nil
	sv.trained = false
}

func (sv *SVM) Clone() Classifier {
	cp := &SVM{}
	*cp = *sv
	cp.Means = append([]float64(nil), sv.Means...)
	cp.W = append([]float64(nil), sv.W...)
	if sv.Basis != nil {
		cp.Basis = mat.DenseCopyOf(sv.Basis)
	}
	if sv.Boundary != nil {
		cp.Boundary = sv.Boundary.Clone()
	}
	return cp
}

// Train computes the centering vector and principal-components basis
// from the feature set, projects, fits the linear SVM on the projected
// features, and records in-sample and (optionally) cross-validated
// accuracy.  Training an already-trained decoder is an error.
func (sv *SVM) Train(fs *feat.Set) error {
	if sv.trained {
		return ErrRetrain
	}
	if sv.NComponents < 1 {
		return fmt.Errorf("decode: NComponents must be >= 1, is %d", sv.NComponents)
	}
	nr, nd := fs.NRows(), fs.NDims()
	if nr < 2 {
		return fmt.Errorf("decode: need at least 2 feature rows to train, have %d", nr)
	}

	sv.Means = colMeans(fs.X)
	xc := centered(fs.X, sv.Means)

	var pc stat.PC
	if ok := pc.PrincipalComponents(xc, nil); !ok {
		return fmt.Errorf("decode: principal components failed on %dx%d features", nr, nd)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, nAvail := vecs.Dims()
	k := sv.NComponents
	if k > nAvail {
		k = nAvail
	}
	sv.Basis = mat.DenseCopyOf(vecs.Slice(0, nd, 0, k))

	proj := &mat.Dense{}
	proj.Mul(xc, sv.Basis)

	sv.W, sv.B = dcdTrain(proj, fs.Labels, sv.C, sv.MaxIter, sv.Tol, sv.Rnd)
	sv.TrainAcc = svmAccuracy(proj, fs.Labels, sv.W, sv.B)
	if sv.CVFolds > 1 {
		sv.CVAcc = sv.crossValidate(proj, fs.Labels)
	}
	if k == 2 && sv.BoundaryN >= 2 {
		sv.Boundary = boundaryGrid(proj, sv.W, sv.B, sv.BoundaryN)
	}
	sv.trained = true
	return nil
}

// Predict re-applies the stored centering and basis (never
// recomputing them), projects, and classifies by the sign of the SVM
// decision score.
func (sv *SVM) Predict(fs *feat.Set) (*Prediction, error) {
	if !sv.trained {
		return nil, ErrNotTrained
	}
	if fs.NDims() != len(sv.Means) {
		return nil, DimsError{Train: len(sv.Means), Predict: fs.NDims()}
	}
	xc := centered(fs.X, sv.Means)
	proj := &mat.Dense{}
	proj.Mul(xc, sv.Basis)
	nr, _ := proj.Dims()
	pred := make([]float64, nr)
	for ri := 0; ri < nr; ri++ {
		if svmScore(proj.RawRowView(ri), sv.W, sv.B) > 0 {
			pred[ri] = 1
		}
	}
	return score(pred, fs.Labels), nil
}

// crossValidate estimates out-of-sample accuracy by k-fold CV over the
// projected training features, refitting the SVM per fold.
func (sv *SVM) crossValidate(proj *mat.Dense, labels []float64) float64 {
	nr, nc := proj.Dims()
	folds := sv.CVFolds
	if folds > nr {
		folds = nr
	}
	ord := make([]int, nr)
	for i := range ord {
		ord[i] = i
	}
	permuteInts(ord, sv.Rnd)
	nCorrect, nTot := 0, 0
	for f := 0; f < folds; f++ {
		var trRows, teRows []int
		for i, ri := range ord {
			if i%folds == f {
				teRows = append(teRows, ri)
			} else {
				trRows = append(trRows, ri)
			}
		}
		if len(trRows) == 0 || len(teRows) == 0 {
			continue
		}
		trX := mat.NewDense(len(trRows), nc, nil)
		trY := make([]float64, len(trRows))
		for i, ri := range trRows {
			trX.SetRow(i, proj.RawRowView(ri))
			trY[i] = labels[ri]
		}
		w, b := dcdTrain(trX, trY, sv.C, sv.MaxIter, sv.Tol, sv.Rnd)
		for _, ri := range teRows {
			lbl := 0.0
			if svmScore(proj.RawRowView(ri), w, b) > 0 {
				lbl = 1
			}
			if lbl == labels[ri] {
				nCorrect++
			}
			nTot++
		}
	}
	if nTot == 0 {
		return 0
	}
	return float64(nCorrect) / float64(nTot)
}

// dcdTrain fits a linear L1-loss SVM by dual coordinate descent
// (the liblinear algorithm), with the bias handled as an augmented
// constant feature.  Labels are 0/1 and mapped to -1/+1 internally.
func dcdTrain(x *mat.Dense, labels []float64, c float64, maxIter int, tol float64, rnd erand.Rand) (w []float64, b float64) {
	nr, nc := x.Dims()
	y := make([]float64, nr)
	for i, l := range labels {
		if l > 0 {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}
	// Q_ii = ||x_i||^2 + 1 (bias feature)
	qii := make([]float64, nr)
	for i := 0; i < nr; i++ {
		row := x.RawRowView(i)
		s := 1.0
		for _, v := range row {
			s += v * v
		}
		qii[i] = s
	}
	alpha := make([]float64, nr)
	w = make([]float64, nc)
	ord := make([]int, nr)
	for i := range ord {
		ord[i] = i
	}
	for it := 0; it < maxIter; it++ {
		permuteInts(ord, rnd)
		maxPG := 0.0
		for _, i := range ord {
			row := x.RawRowView(i)
			g := y[i]*(svmScore(row, w, b)) - 1
			pg := g
			if alpha[i] == 0 && g > 0 {
				pg = 0
			} else if alpha[i] == c && g < 0 {
				pg = 0
			}
			if pg > maxPG {
				maxPG = pg
			} else if -pg > maxPG {
				maxPG = -pg
			}
			if pg == 0 {
				continue
			}
			old := alpha[i]
			na := old - g/qii[i]
			if na < 0 {
				na = 0
			} else if na > c {
				na = c
			}
			alpha[i] = na
			d := (na - old) * y[i]
			for j, v := range row {
				w[j] += d * v
			}
			b += d
		}
		if maxPG < tol {
			break
		}
	}
	return w, b
}

func svmScore(row, w []float64, b float64) float64 {
	s := b
	for j, v := range row {
		s += w[j] * v
	}
	return s
}

func svmAccuracy(x *mat.Dense, labels []float64, w []float64, b float64) float64 {
	nr, _ := x.Dims()
	if nr == 0 {
		return 0
	}
	nc := 0
	for i := 0; i < nr; i++ {
		lbl := 0.0
		if svmScore(x.RawRowView(i), w, b) > 0 {
			lbl = 1
		}
		if lbl == labels[i] {
			nc++
		}
	}
	return float64(nc) / float64(nr)
}

func colMeans(x *mat.Dense) []float64 {
	nr, nc := x.Dims()
	mn := make([]float64, nc)
	for i := 0; i < nr; i++ {
		row := x.RawRowView(i)
		for j, v := range row {
			mn[j] += v
		}
	}
	for j := range mn {
		mn[j] /= float64(nr)
	}
	return mn
}

func centered(x *mat.Dense, means []float64) *mat.Dense {
	nr, nc := x.Dims()
	xc := mat.NewDense(nr, nc, nil)
	for i := 0; i < nr; i++ {
		row := x.RawRowView(i)
		out := xc.RawRowView(i)
		for j, v := range row {
			out[j] = v - means[j]
		}
	}
	return xc
}

func permuteInts(ord []int, rnd erand.Rand) {
	if rnd != nil {
		erand.PermuteInts(ord, rnd)
	} else {
		erand.PermuteInts(ord)
	}
}

// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package decode implements the simulated observers that classify labeled
feature sets, behind one train / predict contract.

Two observer models are provided.  Template is a Poisson ideal
observer: a closed-form likelihood-ratio test against mean response
templates, with no learned parameters.  SVM is a trainable statistical
observer: feature centering, principal-components reduction, and a
linear support-vector machine trained by dual coordinate descent.

A decoder is created unconfigured, trained exactly once, and read-only
afterwards for any number of predictions.  Retraining requires an
explicit Reset.
*/
package decode

import (
	"errors"
	"fmt"

	"github.com/emer/psyphy/feat"
)

var (
	// ErrNotTrained is returned by Predict on a decoder that has not
	// been trained.
	ErrNotTrained = errors.New("decode: decoder has not been trained")

	// ErrRetrain is returned by Train on an already-trained decoder:
	// training happens exactly once; call Reset first to retrain
	// intentionally.
	ErrRetrain = errors.New("decode: decoder is already trained -- Reset to retrain")
)

// DimsError reports a feature dimensionality mismatch between training
// and prediction.
type DimsError struct {
	Train   int
	Predict int
}

func (de DimsError) Error() string {
	return fmt.Sprintf("decode: predict features have %d dims, trained on %d", de.Predict, de.Train)
}

// Prediction is the outcome of classifying one feature set.
type Prediction struct {
	Labels   []float64 `desc:"predicted class per row, 0 or 1"`
	Correct  []bool    `desc:"per-row agreement with the nominal labels"`
	PCorrect float64   `desc:"fraction of rows predicted correctly"`
}

// Classifier is the common contract for observer models.  Train must
// be called exactly once before Predict (Template decoders also train,
// cheaply, to record their response templates).  Predict never mutates
// decoder state, so a trained decoder can be shared across any number
// of prediction calls.
type Classifier interface {
	// Train fits the decoder to the labeled feature set.
	Train(fs *feat.Set) error

	// Predict classifies each row of the feature set and scores the
	// result against the set's nominal labels.
	Predict(fs *feat.Set) (*Prediction, error)

	// Trained returns true once Train has completed.
	Trained() bool

	// Clone returns a deep, value-isolated copy, so trained state can
	// be cached without aliasing the original.
	Clone() Classifier
}

// score fills a Prediction from predicted labels vs. nominal labels.
func score(pred []float64, labels []float64) *Prediction {
	p := &Prediction{Labels: pred, Correct: make([]bool, len(pred))}
	nc := 0
	for i := range pred {
		if pred[i] == labels[i] {
			p.Correct[i] = true
			nc++
		}
	}
	if len(pred) > 0 {
		p.PCorrect = float64(nc) / float64(len(pred))
	}
	return p
}

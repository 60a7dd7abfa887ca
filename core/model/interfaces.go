// Package model provides the interfaces shared by classifiers and the
// helpers that persist trained models.
package model

import (
	"encoding/gob"

	"github.com/YuminosukeSato/catnb/dataset"
)

// RecordClassifier is the interface for models that label categorical records.
type RecordClassifier interface {
	// ClassifySingle returns the most probable label for one record.
	ClassifySingle(record dataset.Record) (dataset.Value, error)

	// ClassifyGroup labels every row of the frame, preserving row order.
	ClassifyGroup(frame *dataset.Frame) ([]dataset.Value, error)
}

// ProbabilisticClassifier adds posterior estimates to RecordClassifier.
type ProbabilisticClassifier interface {
	RecordClassifier

	// PredictProba returns the posterior probability of each class.
	PredictProba(record dataset.Record) (map[dataset.Value]float64, error)
}

// Snapshot is the interface for trained models that can be persisted.
type Snapshot interface {
	gob.GobEncoder
	gob.GobDecoder

	// IsTrained reports whether the model holds usable parameters.
	IsTrained() bool
}

// Exporter is the interface for models that can describe their parameters
// in a language-neutral form.
type Exporter interface {
	Weights() *ModelWeights
}

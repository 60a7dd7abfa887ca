// Package catnb is a categorical Naive Bayes classifier for tabular data,
// with a CLI and an HTTP API around it.
//
// Every feature is treated as a categorical symbol. Training estimates class
// priors and per-feature conditional probability tables with Laplace
// smoothing; classification picks the maximum a posteriori class in log space.
// Values the model never saw fall back to a small fixed probability, so
// classification never fails on new symbols.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/catnb/dataset"
//	    "github.com/YuminosukeSato/catnb/sklearn/naive_bayes"
//	)
//
//	func main() {
//	    frame, err := dataset.LoadCSV("weather.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    model, err := naive_bayes.NewTrainer().TrainFrame(frame, "play")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    clf, err := naive_bayes.NewClassifier(model)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    label, err := clf.ClassifySingle(dataset.Record{"weather": "sunny"})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Prediction:", label)
//	}
//
// # Packages
//
//   - dataset: categorical values, records, frames and CSV I/O
//   - sklearn/naive_bayes: Trainer, immutable Model, Classifier
//   - model_selection: stratified split, stratified k-fold, cross-validation
//   - metrics: confusion matrix, accuracy, per-class report, heat map plot
//   - core/model: gob persistence and JSON weight export
//   - core/parallel: chunked parallel loops for batch classification
//   - pkg/errors, pkg/log: error types and structured logging
//   - internal/engine, internal/server, internal/store, internal/config: the
//     serving side used by cmd/catnb
//
// # Command Line
//
//	catnb train --data weather.csv --target play
//	catnb predict --set weather=sunny --set windy=false
//	catnb validate --data weather.csv --target play --plot cm.png
//	catnb serve
package catnb

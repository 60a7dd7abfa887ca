// Package engine is the serving-side owner of the current model. It pairs the
// trained Model with its target column, swaps both atomically on retrain, and
// persists snapshots and evaluation results through a store.Store.
package engine

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	coremodel "github.com/YuminosukeSato/catnb/core/model"
	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/internal/config"
	"github.com/YuminosukeSato/catnb/internal/store"
	"github.com/YuminosukeSato/catnb/metrics"
	"github.com/YuminosukeSato/catnb/model_selection"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/pkg/log"
	"github.com/YuminosukeSato/catnb/sklearn/naive_bayes"
)

// state is replaced as a whole; readers never see a model paired with the
// wrong target column.
type state struct {
	id         string
	target     string
	trainedAt  time.Time
	model      *naive_bayes.Model
	classifier *naive_bayes.Classifier
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg     *config.Config
	store   store.Store
	trainer *naive_bayes.Trainer
	opts    []naive_bayes.Option
	logger  log.Logger

	current atomic.Pointer[state]
}

// New returns an untrained engine. st may be nil, in which case nothing is persisted.
func New(cfg *config.Config, st store.Store) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	opts := cfg.NaiveBayesOptions()
	return &Engine{
		cfg:     cfg,
		store:   st,
		trainer: naive_bayes.NewTrainer(opts...),
		opts:    opts,
		logger:  log.GetLoggerWithName("engine"),
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Ready reports whether a trained model is installed.
func (e *Engine) Ready() bool {
	s := e.current.Load()
	return s != nil && s.model.IsTrained()
}

// Model returns the installed model, or nil.
func (e *Engine) Model() *naive_bayes.Model {
	if s := e.current.Load(); s != nil {
		return s.model
	}
	return nil
}

// ModelID returns the id of the installed model, or "".
func (e *Engine) ModelID() string {
	if s := e.current.Load(); s != nil {
		return s.id
	}
	return ""
}

// Target returns the label column of the installed model, or "".
func (e *Engine) Target() string {
	if s := e.current.Load(); s != nil {
		return s.target
	}
	return ""
}

// Info describes the installed model.
type Info struct {
	naive_bayes.ModelInfo
	ModelID   string     `json:"model_id,omitempty"`
	Target    string     `json:"target_column,omitempty"`
	Samples   int        `json:"n_samples,omitempty"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
}

// Info returns {Status: "Not trained"} until a model is built or restored.
func (e *Engine) Info() Info {
	s := e.current.Load()
	if s == nil {
		return Info{ModelInfo: (*naive_bayes.Model)(nil).Info()}
	}
	at := s.trainedAt
	return Info{
		ModelInfo: s.model.Info(),
		ModelID:   s.id,
		Target:    s.target,
		Samples:   s.model.NSamples(),
		TrainedAt: &at,
	}
}

func (e *Engine) install(id, target string, trainedAt time.Time, m *naive_bayes.Model) error {
	clf, err := naive_bayes.NewClassifier(m, e.opts...)
	if err != nil {
		return err
	}
	e.current.Store(&state{id: id, target: target, trainedAt: trainedAt, model: m, classifier: clf})
	return nil
}

func (e *Engine) ready(op string) (*state, error) {
	s := e.current.Load()
	if s == nil {
		return nil, errors.NewModelNotTrainedError(op)
	}
	return s, nil
}

// BuildModel trains on frame with target as the label column, installs the
// result, and persists it when a store is configured. On failure the previously
// installed model stays in place.
func (e *Engine) BuildModel(ctx context.Context, frame *dataset.Frame, target string) (string, error) {
	if frame == nil || frame.Len() == 0 {
		return "", errors.NewInvalidInputError("BuildModel", "data cannot be nil or empty")
	}
	m, err := e.trainer.TrainFrame(frame, target)
	if err != nil {
		return "", err
	}
	clf, err := naive_bayes.NewClassifier(m, e.opts...)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	trainedAt := time.Now().UTC()
	if err := e.persist(ctx, id, target, trainedAt, m); err != nil {
		return "", err
	}
	e.current.Store(&state{id: id, target: target, trainedAt: trainedAt, model: m, classifier: clf})
	e.logger.Info("Model installed",
		log.ModelIDKey, id,
		log.TargetKey, target,
		log.SamplesKey, frame.Len(),
		log.ClassesKey, len(m.Classes()),
	)
	return id, nil
}

// Prediction is the outcome of classifying one record.
type Prediction struct {
	Label         dataset.Value      `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// ClassifySingle classifies a record whose values are JSON-like scalars.
func (e *Engine) ClassifySingle(record map[string]any) (*Prediction, error) {
	s, err := e.ready("ClassifySingle")
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, errors.NewInvalidInputError("ClassifySingle", "record cannot be empty")
	}
	r, err := dataset.NormalizeRecord(record)
	if err != nil {
		return nil, err
	}
	return predict(s.classifier, s.model.ConformRecord(r))
}

// ClassifyStrings classifies a record given as command-line style strings.
// Each value is matched against the symbols the model saw for that feature.
func (e *Engine) ClassifyStrings(raw map[string]string) (*Prediction, error) {
	s, err := e.ready("ClassifyStrings")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.NewInvalidInputError("ClassifyStrings", "record cannot be empty")
	}
	return predict(s.classifier, s.classifier.ParseRecord(raw))
}

func predict(clf *naive_bayes.Classifier, r dataset.Record) (*Prediction, error) {
	label, err := clf.ClassifySingle(r)
	if err != nil {
		return nil, err
	}
	proba, err := clf.PredictProba(r)
	if err != nil {
		return nil, err
	}
	out := &Prediction{Label: label, Probabilities: make(map[string]float64, len(proba))}
	for c, p := range proba {
		out.Probabilities[dataset.Format(c)] = p
	}
	return out, nil
}

// Evaluation is the outcome of scoring a model against labelled rows.
type Evaluation struct {
	Accuracy        float64                  `json:"accuracy"`
	ConfusionMatrix *metrics.ConfusionMatrix `json:"confusion_matrix"`
	TestSamples     int                      `json:"test_samples"`
	TrainSamples    int                      `json:"train_samples,omitempty"`
}

// Report returns per-class precision, recall and F1.
func (ev *Evaluation) Report() metrics.Report {
	return ev.ConfusionMatrix.Report()
}

func evaluate(clf *naive_bayes.Classifier, frame *dataset.Frame, target string) (*Evaluation, error) {
	features, labels, err := frame.SplitTarget(target)
	if err != nil {
		return nil, err
	}
	preds, err := clf.ClassifyGroup(features)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.NewConfusionMatrix(labels, preds)
	if err != nil {
		return nil, err
	}
	acc, err := metrics.Accuracy(labels, preds)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Accuracy: acc, ConfusionMatrix: cm, TestSamples: len(labels)}, nil
}

// TestAccuracy scores the installed model on frame. An empty target means the
// column the model was trained on.
func (e *Engine) TestAccuracy(frame *dataset.Frame, target string) (*Evaluation, error) {
	s, err := e.ready("TestAccuracy")
	if err != nil {
		return nil, err
	}
	return e.test(s, frame, target)
}

func (e *Engine) test(s *state, frame *dataset.Frame, target string) (*Evaluation, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, errors.NewInvalidInputError("TestAccuracy", "test data cannot be nil or empty")
	}
	if target == "" {
		target = s.target
	}
	// column kinds are inferred per file; align them with the training symbols
	frame, err := s.model.ConformFrame(frame, target)
	if err != nil {
		return nil, err
	}
	ev, err := evaluate(s.classifier, frame, target)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Model tested",
		log.ModelIDKey, s.id,
		log.TestSamplesKey, ev.TestSamples,
		log.AccuracyKey, ev.Accuracy,
	)
	return ev, nil
}

// ValidateWithSplit splits frame by target, trains a throwaway model on the
// training part, and scores it on the test part. The installed model is not touched.
func (e *Engine) ValidateWithSplit(frame *dataset.Frame, target string, testFraction float64, seed uint64) (*Evaluation, error) {
	if frame == nil {
		return nil, errors.NewInvalidInputError("ValidateWithSplit", "data cannot be nil")
	}
	train, test, err := model_selection.StratifiedSplit(frame, target, testFraction, seed)
	if err != nil {
		return nil, err
	}
	m, err := e.trainer.TrainFrame(train, target)
	if err != nil {
		return nil, err
	}
	clf, err := naive_bayes.NewClassifier(m, e.opts...)
	if err != nil {
		return nil, err
	}
	ev, err := evaluate(clf, test, target)
	if err != nil {
		return nil, err
	}
	ev.TrainSamples = train.Len()
	e.logger.Info("Validation completed",
		log.TargetKey, target,
		log.TrainSamplesKey, ev.TrainSamples,
		log.TestSamplesKey, ev.TestSamples,
		log.RandomSeedKey, seed,
		log.AccuracyKey, ev.Accuracy,
	)
	return ev, nil
}

// CrossValidate runs stratified k-fold cross-validation on frame.
func (e *Engine) CrossValidate(frame *dataset.Frame, target string, folds int, seed uint64) (*model_selection.CVResult, error) {
	skf := model_selection.NewStratifiedKFold(folds, true, seed)
	return model_selection.CrossValidate(e.trainer, frame, target, skf, e.opts...)
}

// snapshot is the stored form of an installed model.
type snapshot struct {
	ID        string
	Target    string
	TrainedAt time.Time
	Model     []byte
}

func (e *Engine) persist(ctx context.Context, id, target string, trainedAt time.Time, m *naive_bayes.Model) error {
	if e.store == nil {
		return nil
	}
	data, err := coremodel.MarshalModel(m)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot{ID: id, Target: target, TrainedAt: trainedAt, Model: data}); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := e.store.Put(ctx, store.ModelKey(id), buf.Bytes()); err != nil {
		return err
	}
	return e.store.Put(ctx, store.LatestModelKey, []byte(id))
}

// Load installs the stored snapshot with the given id.
func (e *Engine) Load(ctx context.Context, id string) error {
	if e.store == nil {
		return errors.NewInvalidInputError("Load", "no store configured")
	}
	data, found, err := e.store.Get(ctx, store.ModelKey(id))
	if err != nil {
		return err
	}
	if !found {
		return errors.NewInvalidInputErrorf("Load", "model %q not found", id)
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.Wrap(err, "decode snapshot")
	}
	var m naive_bayes.Model
	if err := coremodel.UnmarshalModel(&m, snap.Model); err != nil {
		return err
	}
	if err := e.install(snap.ID, snap.Target, snap.TrainedAt, &m); err != nil {
		return err
	}
	e.logger.Info("Model restored", log.ModelIDKey, snap.ID, log.TargetKey, snap.Target)
	return nil
}

// Restore installs the most recently persisted model. It reports false when
// the store holds none.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	if e.store == nil {
		return false, nil
	}
	id, found, err := e.store.Get(ctx, store.LatestModelKey)
	if err != nil || !found {
		return false, err
	}
	if err := e.Load(ctx, string(id)); err != nil {
		return false, err
	}
	return true, nil
}

// cached returns the evaluation stored under key, if any. Corrupt entries are
// treated as misses.
func (e *Engine) cached(ctx context.Context, key string) (*Evaluation, bool) {
	if e.store == nil {
		return nil, false
	}
	data, found, err := e.store.Get(ctx, key)
	if err != nil || !found {
		if err != nil {
			e.logger.Warn("Result cache read failed", log.ErrAttr(err)...)
		}
		return nil, false
	}
	var ev Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		e.logger.Warn("Discarding corrupt cached result", log.ErrAttr(err)...)
		return nil, false
	}
	return &ev, true
}

func (e *Engine) remember(ctx context.Context, key string, ev *Evaluation) {
	if e.store == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err == nil {
		err = e.store.Put(ctx, key, data)
	}
	if err != nil {
		e.logger.Warn("Result cache write failed", log.ErrAttr(err)...)
	}
}

// TrainCSV parses raw CSV bytes and builds a model from them. cached reports
// whether the same bytes and target were trained on before; the model is
// rebuilt either way.
func (e *Engine) TrainCSV(ctx context.Context, raw []byte, target string) (id string, cached bool, err error) {
	key := store.ResultKey([]byte("train"), raw, []byte(target))
	if e.store != nil {
		_, cached, err = e.store.Get(ctx, key)
		if err != nil {
			e.logger.Warn("Result cache read failed", log.ErrAttr(err)...)
		}
	}
	frame, err := dataset.ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return "", false, err
	}
	if id, err = e.BuildModel(ctx, frame, target); err != nil {
		return "", false, err
	}
	if e.store != nil {
		if err := e.store.Put(ctx, key, []byte(id)); err != nil {
			e.logger.Warn("Result cache write failed", log.ErrAttr(err)...)
		}
	}
	return id, cached, nil
}

// TestCSV scores the installed model on raw CSV bytes, reusing a stored
// result for the same bytes, target, and model.
func (e *Engine) TestCSV(ctx context.Context, raw []byte, target string) (*Evaluation, bool, error) {
	s, err := e.ready("TestAccuracy")
	if err != nil {
		return nil, false, err
	}
	if target == "" {
		target = s.target
	}
	key := store.ResultKey([]byte("test"), raw, []byte(target), []byte(s.id))
	if ev, ok := e.cached(ctx, key); ok {
		return ev, true, nil
	}
	frame, err := dataset.ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}
	ev, err := e.test(s, frame, target)
	if err != nil {
		return nil, false, err
	}
	e.remember(ctx, key, ev)
	return ev, false, nil
}

// Package log defines standard attribute keys for classification operations.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that training, scoring and evaluation logs can be
// filtered the same way across the library, the engine and the HTTP server.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model. Example: "CategoricalNB"
	ModelNameKey = "model.name"

	// ModelIDKey identifies a trained model snapshot (UUID).
	ModelIDKey = "model.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "split", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct classes.
	ClassesKey = "data.classes"

	// TargetKey names the label column.
	TargetKey = "data.target"

	// TrainSamplesKey and TestSamplesKey record partition sizes after a split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy, range [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// WorkersKey records how many goroutines served a batch.
	WorkersKey = "perf.workers"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// UnseenValuesKey counts feature values that fell back to the unseen probability.
	UnseenValuesKey = "preds.unseen_values"
)

// Error and Configuration Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SmoothingKey records the Laplace smoothing constant.
	SmoothingKey = "hyperparams.laplace_alpha"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// StoreBackendKey names the persistence backend in use.
	StoreBackendKey = "store.backend"
)

// Standard attribute value constants.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationSplit    = "split"
	OperationScore    = "score"
	OperationValidate = "validate"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotTrained    = "NOT_TRAINED"
	ErrorInvalidInput  = "INVALID_INPUT"
	ErrorUnknownColumn = "UNKNOWN_COLUMN"
	ErrorInternal      = "INTERNAL"
)

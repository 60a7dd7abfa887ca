package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/internal/config"
	"github.com/YuminosukeSato/catnb/internal/store"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

const weatherCSV = `weather,windy,play
sunny,false,yes
sunny,false,yes
sunny,false,yes
rainy,true,no
rainy,true,no
overcast,false,yes
`

func weatherFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(strings.NewReader(weatherCSV))
	require.NoError(t, err)
	return f
}

// largeFrame repeats the weather rows so that a 30% split keeps both classes.
func largeFrame(t *testing.T, copies int) *dataset.Frame {
	t.Helper()
	var b strings.Builder
	b.WriteString("weather,windy,play\n")
	lines := strings.Split(strings.TrimSpace(weatherCSV), "\n")[1:]
	for i := 0; i < copies; i++ {
		for _, l := range lines {
			b.WriteString(l + "\n")
		}
	}
	f, err := dataset.ReadCSV(strings.NewReader(b.String()))
	require.NoError(t, err)
	return f
}

func TestEngineNotReady(t *testing.T) {
	e := New(nil, nil)
	assert.False(t, e.Ready())
	assert.Nil(t, e.Model())
	assert.Equal(t, "Not trained", e.Info().Status)

	_, err := e.ClassifySingle(map[string]any{"weather": "sunny"})
	assert.True(t, errors.IsModelNotTrained(err))
	_, err = e.TestAccuracy(weatherFrame(t), "play")
	assert.True(t, errors.IsModelNotTrained(err))
	_, _, err = e.TestCSV(context.Background(), []byte(weatherCSV), "")
	assert.True(t, errors.IsModelNotTrained(err))
}

func TestBuildModelAndClassify(t *testing.T) {
	e := New(nil, nil)
	id, err := e.BuildModel(context.Background(), weatherFrame(t), "play")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, e.Ready())
	assert.Equal(t, id, e.ModelID())
	assert.Equal(t, "play", e.Target())

	info := e.Info()
	assert.Equal(t, "Trained", info.Status)
	assert.Equal(t, []string{"weather", "windy"}, info.Features)
	assert.Equal(t, 6, info.Samples)
	require.NotNil(t, info.TrainedAt)

	pred, err := e.ClassifySingle(map[string]any{"weather": "sunny"})
	require.NoError(t, err)
	assert.Equal(t, "yes", pred.Label)
	assert.InDelta(t, 1.0, pred.Probabilities["yes"]+pred.Probabilities["no"], 1e-12)

	pred, err = e.ClassifyStrings(map[string]string{"weather": "rainy", "windy": "true"})
	require.NoError(t, err)
	assert.Equal(t, "no", pred.Label)

	_, err = e.ClassifySingle(map[string]any{})
	assert.True(t, errors.IsInvalidInput(err))
	_, err = e.ClassifyStrings(nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestBuildModelFailureKeepsPreviousModel(t *testing.T) {
	e := New(nil, nil)
	id, err := e.BuildModel(context.Background(), weatherFrame(t), "play")
	require.NoError(t, err)

	_, err = e.BuildModel(context.Background(), weatherFrame(t), "missing")
	assert.True(t, errors.IsUnknownColumn(err))
	_, err = e.BuildModel(context.Background(), nil, "play")
	assert.True(t, errors.IsInvalidInput(err))

	assert.Equal(t, id, e.ModelID())
	assert.Equal(t, "play", e.Target())
}

func TestTestAccuracy(t *testing.T) {
	e := New(nil, nil)
	_, err := e.BuildModel(context.Background(), weatherFrame(t), "play")
	require.NoError(t, err)

	ev, err := e.TestAccuracy(weatherFrame(t), "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Accuracy)
	assert.Equal(t, 6, ev.TestSamples)
	assert.Equal(t, 4, ev.ConfusionMatrix.Count("yes", "yes"))
	assert.Equal(t, 2, ev.ConfusionMatrix.Count("no", "no"))
	assert.InDelta(t, ev.Accuracy, float64(ev.ConfusionMatrix.Correct())/float64(ev.ConfusionMatrix.Total()), 1e-12)
	assert.Equal(t, 1.0, ev.Report().MacroF1)

	_, err = e.TestAccuracy(weatherFrame(t), "nope")
	assert.True(t, errors.IsUnknownColumn(err))
}

func TestValidateWithSplitLeavesInstalledModel(t *testing.T) {
	e := New(nil, nil)
	ev, err := e.ValidateWithSplit(largeFrame(t, 10), "play", 0.3, 42)
	require.NoError(t, err)
	assert.False(t, e.Ready(), "validation must not install a model")
	assert.Equal(t, 18, ev.TestSamples)
	assert.Equal(t, 42, ev.TrainSamples)
	assert.Equal(t, 1.0, ev.Accuracy)

	again, err := e.ValidateWithSplit(largeFrame(t, 10), "play", 0.3, 42)
	require.NoError(t, err)
	assert.Equal(t, ev.ConfusionMatrix.Rows(), again.ConfusionMatrix.Rows())

	_, err = e.ValidateWithSplit(nil, "play", 0.3, 42)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestCrossValidate(t *testing.T) {
	e := New(nil, nil)
	res, err := e.CrossValidate(largeFrame(t, 5), "play", 3, 1)
	require.NoError(t, err)
	assert.Len(t, res.TestScores, 3)
	assert.Equal(t, 1.0, res.GetMeanScore())
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	e := New(nil, st)
	id, err := e.BuildModel(ctx, weatherFrame(t), "play")
	require.NoError(t, err)
	latest, found, err := st.Get(ctx, store.LatestModelKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, string(latest))

	restored := New(nil, st)
	ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, restored.ModelID())
	assert.Equal(t, "play", restored.Target())
	assert.Equal(t, e.Model().ClassPriors(), restored.Model().ClassPriors())
	assert.Equal(t, e.Model().FeatureProbabilities(), restored.Model().FeatureProbabilities())

	assert.Error(t, restored.Load(ctx, "no-such-id"))

	empty := New(nil, store.NewMemory())
	ok, err = empty.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = New(nil, nil).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCSVResultCache(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	e := New(config.DefaultConfig(), st)

	id, cached, err := e.TrainCSV(ctx, []byte(weatherCSV), "play")
	require.NoError(t, err)
	assert.False(t, cached)
	id2, cached, err := e.TrainCSV(ctx, []byte(weatherCSV), "play")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.NotEqual(t, id, id2, "training always rebuilds")

	ev, cached, err := e.TestCSV(ctx, []byte(weatherCSV), "")
	require.NoError(t, err)
	assert.False(t, cached)
	hit, cached, err := e.TestCSV(ctx, []byte(weatherCSV), "play")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, ev.Accuracy, hit.Accuracy)
	assert.Equal(t, ev.ConfusionMatrix.Rows(), hit.ConfusionMatrix.Rows())
	assert.Equal(t, ev.ConfusionMatrix.Labels(), hit.ConfusionMatrix.Labels())

	_, _, err = e.TrainCSV(ctx, []byte(""), "play")
	assert.True(t, errors.IsInvalidInput(err))
}

func TestTestCSVAlignsColumnKindsWithTraining(t *testing.T) {
	ctx := context.Background()
	e := New(nil, nil)

	_, _, err := e.TrainCSV(ctx, []byte("code,label\n1,a\n1,a\n1,a\n2,b\n2,b\nx,b\n"), "label")
	require.NoError(t, err)
	values, ok := e.Model().FeatureValues("code")
	require.True(t, ok)
	assert.Equal(t, []dataset.Value{"1", "2", "x"}, values)

	// an all-digit code column is read as numbers
	ev, _, err := e.TestCSV(ctx, []byte("code,label\n1,a\n1,a\n2,b\n2,b\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Accuracy)

	pred, err := e.ClassifySingle(map[string]any{"code": json.Number("2")})
	require.NoError(t, err)
	assert.Equal(t, "b", pred.Label)

	// mixed labels are strings at training time but numbers in the test file
	_, _, err = e.TrainCSV(ctx, []byte("f,label\na,1\na,1\nb,2\nb,x\n"), "label")
	require.NoError(t, err)
	ev, err = e.TestAccuracy(mustReadCSV(t, "f,label\na,1\nb,2\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Accuracy)
	assert.Equal(t, 1, ev.ConfusionMatrix.Count("2", "2"))
}

func mustReadCSV(t *testing.T, text string) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(strings.NewReader(text))
	require.NoError(t, err)
	return f
}

func TestConcurrentClassifyDuringRetrain(t *testing.T) {
	e := New(nil, nil)
	frame := weatherFrame(t)
	_, err := e.BuildModel(context.Background(), frame, "play")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.BuildModel(context.Background(), frame, "play")
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			pred, err := e.ClassifySingle(map[string]any{"weather": "sunny", "windy": i%2 == 0})
			assert.NoError(t, err)
			assert.Equal(t, "yes", pred.Label, fmt.Sprint(i))
		}(i)
	}
	wg.Wait()
}

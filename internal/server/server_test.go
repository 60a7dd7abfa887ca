package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/catnb/internal/config"
	"github.com/YuminosukeSato/catnb/internal/engine"
	"github.com/YuminosukeSato/catnb/internal/store"
)

const weatherCSV = `weather,windy,play
sunny,false,yes
sunny,false,yes
sunny,false,yes
rainy,true,no
rainy,true,no
overcast,false,yes
`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Mode = gin.TestMode
	cfg.Store.Backend = config.BackendMemory
	if mutate != nil {
		mutate(cfg)
	}
	return New(engine.New(cfg, store.NewMemory()))
}

func upload(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func trainWeather(t *testing.T, s *Server) map[string]any {
	t.Helper()
	rec, out := serve(s, upload(t, "/train", "weather.csv", weatherCSV, map[string]string{"target_column": "play"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return out
}

func TestHealthzAndInfoBeforeTraining(t *testing.T) {
	s := newTestServer(t, nil)

	rec, out := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["model_ready"])

	rec, out = serve(s, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Not trained", out["status"])
}

func TestTrainPredictInfo(t *testing.T) {
	s := newTestServer(t, nil)

	out := trainWeather(t, s)
	assert.Equal(t, "play", out["target_column"])
	assert.Equal(t, false, out["cached"])
	assert.NotEmpty(t, out["model_id"])

	out = trainWeather(t, s)
	assert.Equal(t, true, out["cached"])

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"weather":"sunny","windy":false}`))
	req.Header.Set("Content-Type", "application/json")
	rec, out := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "yes", out["prediction"])
	probs, ok := out["probabilities"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 1.0, probs["yes"].(float64)+probs["no"].(float64), 1e-9)

	rec, out = serve(s, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trained", out["status"])
	assert.Equal(t, "play", out["target_column"])
	assert.Equal(t, []any{"weather", "windy"}, out["features"])
}

func TestPredictErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := serve(s, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"weather":"sunny"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no model yet")

	trainWeather(t, s)
	for _, body := range []string{``, `not json`, `{}`, `{"weather":null}`} {
		rec, out := serve(s, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.NotEmpty(t, out["error"])
	}
}

func TestTrainRejectsBadUploads(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxUploadBytes = 1024 })

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
	}{
		{"wrong extension", "weather.txt", weatherCSV, map[string]string{"target_column": "play"}},
		{"missing target", "weather.csv", weatherCSV, nil},
		{"unknown target", "weather.csv", weatherCSV, map[string]string{"target_column": "nope"}},
		{"empty csv", "weather.csv", "", map[string]string{"target_column": "play"}},
		{"too large", "weather.csv", strings.Repeat(weatherCSV, 20), map[string]string{"target_column": "play"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := serve(s, upload(t, "/train", tt.filename, tt.content, tt.fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, out["error"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/train", strings.NewReader("plain"))
	rec, _ := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no multipart body")
}

func TestTestEndpointCachesResults(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := serve(s, upload(t, "/test", "weather.csv", weatherCSV, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no model yet")

	trainWeather(t, s)
	rec, out := serve(s, upload(t, "/test", "weather.csv", weatherCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1.0, out["accuracy"])
	assert.Equal(t, false, out["cached"])
	cm, ok := out["confusion_matrix"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"no", "yes"}, cm["labels"])

	rec, out = serve(s, upload(t, "/test", "weather.csv", weatherCSV, map[string]string{"target_column": "play"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["cached"])
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	data := weatherCSV + strings.Repeat(strings.SplitN(weatherCSV, "\n", 2)[1], 9)

	rec, out := serve(s, upload(t, "/validate", "weather.csv", data, map[string]string{
		"target_column": "play",
		"test_fraction": "0.3",
		"seed":          "7",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1.0, out["accuracy"])
	assert.Equal(t, float64(18), out["test_samples"])
	assert.Equal(t, float64(42), out["train_samples"])
	assert.Contains(t, out, "report")

	rec, out = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, false, out["model_ready"], "validation does not install a model")

	for _, fields := range []map[string]string{
		{"target_column": "play", "test_fraction": "abc"},
		{"target_column": "play", "test_fraction": "1.5"},
		{"target_column": "play", "seed": "-1"},
		{},
	} {
		rec, _ = serve(s, upload(t, "/validate", "weather.csv", data, fields))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "fields %v", fields)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	s := newTestServer(t, nil)
	s.router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec, out := serve(s, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", out["error"])
}

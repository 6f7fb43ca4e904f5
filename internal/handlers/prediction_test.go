package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/WaterWatchLabs/aquasense-backend/internal/inference"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPredictionRouter(t *testing.T, modelDir string) *chi.Mux {
	t.Helper()

	h := NewPredictionHandler(inference.NewService(modelDir), nil)
	r := chi.NewRouter()
	r.Get("/api/prediction/diagnostics", h.Diagnostics)
	r.Post("/api/prediction/predict", h.PredictWater)
	r.Post("/api/prediction/tap", h.PredictWater)
	r.Post("/api/prediction/river", h.PredictWater)
	r.Post("/api/prediction/tap-status", h.PredictTapStatus)
	return r
}

func cleanWaterBody() map[string]interface{} {
	return map[string]interface{}{
		"temperature":     24.0,
		"dissolvedOxygen": 9.0,
		"ph":              7.4,
		"conductivity":    280.0,
		"bod":             1.0,
		"nitrate":         0.8,
		"fecalColiform":   10.0,
		"totalColiform":   50.0,
	}
}

func TestPredictEndpoint(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	w := doJSON(t, router, http.MethodPost, "/api/prediction/predict", cleanWaterBody())
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Excellent", body["prediction"])
}

func TestPredictAliasesBehaveIdentically(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	var responses []string
	for _, path := range []string{"/api/prediction/predict", "/api/prediction/tap", "/api/prediction/river"} {
		w := doJSON(t, router, http.MethodPost, path, cleanWaterBody())
		require.Equal(t, http.StatusOK, w.Code, path)
		responses = append(responses, w.Body.String())
	}
	assert.Equal(t, responses[0], responses[1])
	assert.Equal(t, responses[0], responses[2])
}

func TestPredictMissingFields(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	body := cleanWaterBody()
	delete(body, "temperature")
	delete(body, "bod")

	w := doJSON(t, router, http.MethodPost, "/api/prediction/predict", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Missing required fields: temperature, bod", resp["error"])
}

func TestPredictInvalidNumeric(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	body := cleanWaterBody()
	body["ph"] = "very acidic"

	w := doJSON(t, router, http.MethodPost, "/api/prediction/predict", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "ph")
}

func TestPredictFormEncoded(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	form := url.Values{}
	for key, value := range map[string]string{
		"temperature": "24", "dissolvedOxygen": "9", "ph": "7.4", "conductivity": "280",
		"bod": "1", "nitrate": "0.8", "fecalColiform": "10", "totalColiform": "50",
	} {
		form.Set(key, value)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/prediction/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Excellent", decodeBody(t, w)["prediction"])
}

func TestPredictTapStatusEndpoint(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	w := doJSON(t, router, http.MethodPost, "/api/prediction/tap-status", map[string]interface{}{
		"ph": 10.0, "hardness": 200.0, "solids": 20000.0, "chloramines": 7.0, "turbidity": 4.0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "High", decodeBody(t, w)["prediction"])
}

func TestPredictModelNotLoaded(t *testing.T) {
	router := newPredictionRouter(t, t.TempDir())

	w := doJSON(t, router, http.MethodPost, "/api/prediction/predict", cleanWaterBody())
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "Model not loaded")
}

func TestDiagnosticsEndpoint(t *testing.T) {
	router := newPredictionRouter(t, "testdata")

	req := httptest.NewRequest(http.MethodGet, "/api/prediction/diagnostics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "ok", resp["status"])

	models := resp["models"].(map[string]interface{})
	water := models["water"].(map[string]interface{})
	assert.Equal(t, true, water["loaded"])
	assert.Len(t, water["features"], 8)
}

func TestDiagnosticsDegradedStatus(t *testing.T) {
	router := newPredictionRouter(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/prediction/diagnostics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decodeBody(t, w)["status"])
}

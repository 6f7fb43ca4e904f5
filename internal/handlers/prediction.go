package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/WaterWatchLabs/aquasense-backend/internal/inference"
	"github.com/WaterWatchLabs/aquasense-backend/internal/metrics"
)

// PredictionHandler serves the classification endpoints. The inference
// service is constructed once in main and injected here; handlers never
// touch ambient model state.
type PredictionHandler struct {
	svc       *inference.Service
	collector *metrics.Collector
}

// NewPredictionHandler creates a PredictionHandler. collector may be nil.
func NewPredictionHandler(svc *inference.Service, collector *metrics.Collector) *PredictionHandler {
	return &PredictionHandler{svc: svc, collector: collector}
}

// PredictionResponse mirrors the legacy response shape: predictions use an
// "error" key rather than "message".
type PredictionResponse struct {
	Success    bool   `json:"success"`
	Prediction string `json:"prediction,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PredictWater serves /predict, /tap and /river. The three routes are
// aliases over the same 8-feature water-quality model.
func (h *PredictionHandler) PredictWater(w http.ResponseWriter, r *http.Request) {
	h.predict(w, r, inference.VariantWater)
}

// PredictTapStatus serves /tap-status over the 5-feature model.
func (h *PredictionHandler) PredictTapStatus(w http.ResponseWriter, r *http.Request) {
	h.predict(w, r, inference.VariantTapStatus)
}

func (h *PredictionHandler) predict(w http.ResponseWriter, r *http.Request, variant inference.Variant) {
	payload, err := decodePredictionBody(r)
	if err != nil {
		h.record(variant, "validation_error")
		respondJSON(w, http.StatusBadRequest, PredictionResponse{Success: false, Error: "Request body must be JSON or form-encoded."})
		return
	}

	label, err := h.svc.Predict(variant, payload)
	if err != nil {
		var verr *inference.ValidationError
		switch {
		case errors.As(err, &verr):
			h.record(variant, "validation_error")
			respondJSON(w, http.StatusBadRequest, PredictionResponse{Success: false, Error: verr.Message})
		case errors.Is(err, inference.ErrModelNotLoaded):
			h.record(variant, "not_loaded")
			respondJSON(w, http.StatusInternalServerError, PredictionResponse{Success: false, Error: "Model not loaded properly. Check server logs."})
		default:
			h.record(variant, "error")
			log.Printf("❌ Prediction error (%s): %v", variant, err)
			respondJSON(w, http.StatusInternalServerError, PredictionResponse{Success: false, Error: "Prediction failed."})
		}
		return
	}

	h.record(variant, "ok")
	respondJSON(w, http.StatusOK, PredictionResponse{Success: true, Prediction: label})
}

// DiagnosticsResponse reports artifact load status per model variant.
type DiagnosticsResponse struct {
	Status string                           `json:"status"`
	Models map[string]inference.VariantInfo `json:"models"`
}

// Diagnostics reports load status, expected features and known classes of
// each artifact. Operational and read-only.
func (h *PredictionHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	info := h.svc.Diagnostics()

	status := "ok"
	for _, v := range info {
		if !v.Loaded {
			status = "degraded"
			break
		}
	}

	respondJSON(w, http.StatusOK, DiagnosticsResponse{Status: status, Models: info})
}

func (h *PredictionHandler) record(variant inference.Variant, outcome string) {
	if h.collector != nil {
		h.collector.RecordPrediction(string(variant), outcome)
	}
}

// decodePredictionBody returns the feature payload from a JSON object or a
// form-encoded body. Form values stay strings; the inference service parses
// numerics either way.
func decodePredictionBody(r *http.Request) (map[string]interface{}, error) {
	if isJSONRequest(r) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	payload := make(map[string]interface{}, len(r.PostForm))
	for key := range r.PostForm {
		payload[key] = r.PostForm.Get(key)
	}
	return payload, nil
}

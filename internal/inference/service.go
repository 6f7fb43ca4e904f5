package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
)

// Variant names a deployed classifier family.
type Variant string

const (
	// VariantWater is the 8-feature water-quality model (predict/tap/river).
	VariantWater Variant = "water"
	// VariantTapStatus is the 5-feature tap-water-status model.
	VariantTapStatus Variant = "tap-status"
)

// Artifact file names expected under the model directory.
const (
	waterModelFile     = "best_water_model.json"
	labelEncoderFile   = "label_encoder.json"
	tapStatusModelFile = "tap_status_model.json"
)

// ErrModelNotLoaded is returned when a variant's artifact failed to load at
// startup. The endpoint degrades to a 500, the process stays up.
var ErrModelNotLoaded = errors.New("model not loaded")

// ValidationError reports a client-side input problem (missing or
// non-numeric fields).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type loadedModel struct {
	artifact *Artifact
	decoder  *LabelDecoder // nil when the artifact emits labels directly
	loadErr  error
}

// Service holds the classifier artifacts, loaded once at startup and
// read-only afterward. Construct with NewService and pass to handlers;
// concurrent Predict calls need no synchronization.
type Service struct {
	models map[Variant]*loadedModel
}

// NewService loads all known artifacts from modelDir. A missing or corrupt
// artifact is logged and recorded, not fatal: the corresponding endpoints
// report "model not loaded" instead of the whole service refusing to start.
func NewService(modelDir string) *Service {
	s := &Service{models: make(map[Variant]*loadedModel)}

	water := &loadedModel{}
	water.artifact, water.loadErr = LoadArtifact(filepath.Join(modelDir, waterModelFile))
	if water.loadErr == nil {
		water.decoder, water.loadErr = LoadLabelDecoder(filepath.Join(modelDir, labelEncoderFile))
	}
	if water.loadErr != nil {
		log.Printf("❌ Error loading water quality model: %v", water.loadErr)
	} else {
		log.Println("✅ Loaded water quality model and label encoder")
	}
	s.models[VariantWater] = water

	tap := &loadedModel{}
	tap.artifact, tap.loadErr = LoadArtifact(filepath.Join(modelDir, tapStatusModelFile))
	if tap.loadErr != nil {
		log.Printf("❌ Error loading tap status model: %v", tap.loadErr)
	} else {
		log.Println("✅ Loaded tap status model")
	}
	s.models[VariantTapStatus] = tap

	return s
}

// Predict validates the named numeric inputs for a variant and runs the
// classifier, returning the decoded label.
func (s *Service) Predict(variant Variant, payload map[string]interface{}) (string, error) {
	m, ok := s.models[variant]
	if !ok {
		return "", fmt.Errorf("unknown model variant %q", variant)
	}
	if m.loadErr != nil {
		return "", ErrModelNotLoaded
	}

	features := m.artifact.Features

	// Collect missing fields in declared order; absent, null and empty
	// string count as missing. Zero is a legitimate reading.
	var missing []string
	for _, name := range features {
		v, ok := payload[name]
		if !ok || v == nil || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &ValidationError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}

	row := make([]float64, len(features))
	for i, name := range features {
		f, err := toFloat(payload[name])
		if err != nil {
			return "", &ValidationError{Message: fmt.Sprintf("Invalid numeric value for field %s", name)}
		}
		row[i] = f
	}

	index := m.artifact.PredictIndex(row)
	if m.decoder != nil {
		return m.decoder.Decode(index)
	}
	if len(m.artifact.Classes) == 0 {
		return "", fmt.Errorf("artifact for %q has neither classes nor decoder", variant)
	}
	return m.artifact.Classes[index], nil
}

// Features returns the expected input field names for a variant, in order.
func (s *Service) Features(variant Variant) []string {
	m, ok := s.models[variant]
	if !ok || m.loadErr != nil {
		return nil
	}
	return m.artifact.Features
}

// Loaded reports whether a variant's artifact is usable.
func (s *Service) Loaded(variant Variant) bool {
	m, ok := s.models[variant]
	return ok && m.loadErr == nil
}

// VariantInfo describes the load status of one model variant.
type VariantInfo struct {
	Loaded    bool     `json:"loaded"`
	ModelType string   `json:"model_type,omitempty"`
	ModelPath string   `json:"model_path,omitempty"`
	Features  []string `json:"features,omitempty"`
	Classes   []string `json:"classes,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Diagnostics reports load status, expected features and known classes per
// variant. Read-only, no side effects.
func (s *Service) Diagnostics() map[string]VariantInfo {
	out := make(map[string]VariantInfo, len(s.models))
	for variant, m := range s.models {
		if m.loadErr != nil {
			out[string(variant)] = VariantInfo{Loaded: false, Error: m.loadErr.Error()}
			continue
		}
		info := VariantInfo{
			Loaded:    true,
			ModelType: m.artifact.ModelType,
			ModelPath: m.artifact.Path(),
			Features:  m.artifact.Features,
			Classes:   m.artifact.Classes,
		}
		if m.decoder != nil {
			info.Classes = m.decoder.Classes
		}
		out[string(variant)] = info
	}
	return out
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// Package inference loads pre-trained classifier artifacts from disk and
// serves predictions over them. Artifacts are opaque to the rest of the
// system: they are exported linear classifiers (feature names, per-class
// coefficients, optional standard scaler) serialized as JSON, consumed
// read-only after load.
package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Artifact is a pre-trained linear classifier loaded from disk.
type Artifact struct {
	ModelType    string      `json:"model_type"`
	Features     []string    `json:"features"`
	Classes      []string    `json:"classes,omitempty"` // empty = index output, decode externally
	Coefficients [][]float64 `json:"coefficients"`      // one row per class
	Intercepts   []float64   `json:"intercepts"`
	Scaler       *Scaler     `json:"scaler,omitempty"`

	path string
}

// Scaler holds per-feature standardization parameters.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// LoadArtifact reads and validates a classifier artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	a.path = path

	if len(a.Features) == 0 {
		return nil, fmt.Errorf("artifact %s: no features declared", path)
	}
	if len(a.Coefficients) == 0 || len(a.Coefficients) != len(a.Intercepts) {
		return nil, fmt.Errorf("artifact %s: coefficient/intercept shape mismatch", path)
	}
	for i, row := range a.Coefficients {
		if len(row) != len(a.Features) {
			return nil, fmt.Errorf("artifact %s: class %d has %d coefficients, want %d", path, i, len(row), len(a.Features))
		}
	}
	if len(a.Classes) > 0 && len(a.Classes) != len(a.Coefficients) {
		return nil, fmt.Errorf("artifact %s: %d classes but %d coefficient rows", path, len(a.Classes), len(a.Coefficients))
	}
	if a.Scaler != nil {
		if len(a.Scaler.Mean) != len(a.Features) || len(a.Scaler.Std) != len(a.Features) {
			return nil, fmt.Errorf("artifact %s: scaler shape mismatch", path)
		}
	}

	return &a, nil
}

// Path returns the file the artifact was loaded from.
func (a *Artifact) Path() string {
	return a.path
}

// PredictIndex scores a single standardized input row and returns the
// winning class index. x must be ordered to match Features.
func (a *Artifact) PredictIndex(x []float64) int {
	if a.Scaler != nil {
		scaled := make([]float64, len(x))
		for i, v := range x {
			std := a.Scaler.Std[i]
			if std == 0 {
				std = 1
			}
			scaled[i] = (v - a.Scaler.Mean[i]) / std
		}
		x = scaled
	}

	best := 0
	bestScore := math.Inf(-1)
	for class, row := range a.Coefficients {
		score := a.Intercepts[class]
		for i, w := range row {
			score += w * x[i]
		}
		if score > bestScore {
			bestScore = score
			best = class
		}
	}
	return best
}

// LabelDecoder maps internal class indices to human-readable labels.
// Paired with artifacts whose output is an index instead of a string.
type LabelDecoder struct {
	Classes []string `json:"classes"`
}

// LoadLabelDecoder reads a label decoder file.
func LoadLabelDecoder(path string) (*LabelDecoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var d LabelDecoder
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse label decoder %s: %w", path, err)
	}
	if len(d.Classes) == 0 {
		return nil, fmt.Errorf("label decoder %s: no classes", path)
	}
	return &d, nil
}

// Decode maps a class index to its label.
func (d *LabelDecoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(d.Classes) {
		return "", fmt.Errorf("class index %d out of range (%d classes)", index, len(d.Classes))
	}
	return d.Classes[index], nil
}

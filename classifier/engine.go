// Package classifier wraps a pre-trained image model behind a serialized,
// latency-measuring inference call.
package classifier

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sdeoras/cropguard/labels"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sirupsen/logrus"
)

// Model is an opaque loaded classifier. Predict returns one score per class.
type Model interface {
	Predict(t *preprocess.Tensor) ([]float32, error)
}

// ModelLoadError is returned when the model asset is missing or cannot be imported.
// It disables classification for the lifetime of the process.
type ModelLoadError struct {
	Location string
	Err      error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Location, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// ModelShapeMismatchError is returned when the model output length does not match
// the declared label set.
type ModelShapeMismatchError struct {
	Want, Got int
}

func (e *ModelShapeMismatchError) Error() string {
	return fmt.Sprintf("model returned %d scores, label set has %d", e.Got, e.Want)
}

// NonFiniteScoreError is returned when the model emits NaN or an infinity.
type NonFiniteScoreError struct {
	Index int
	Value float32
}

func (e *NonFiniteScoreError) Error() string {
	return fmt.Sprintf("model returned non-finite score %v at index %d", e.Value, e.Index)
}

// Engine runs one model for one label set. Calls to Infer are serialized.
type Engine struct {
	mu     sync.Mutex
	model  Model
	labels labels.Set

	// now is replaced in tests
	now func() time.Time
}

// NewEngine pairs a loaded model with the labels of its output positions.
func NewEngine(model Model, set labels.Set) (*Engine, error) {
	if model == nil {
		return nil, fmt.Errorf("engine needs a model")
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("engine needs a non-empty label set")
	}
	return &Engine{model: model, labels: set, now: time.Now}, nil
}

// Labels returns the label set the engine was built with.
func (e *Engine) Labels() labels.Set { return e.labels }

// Infer runs the model on t and returns its scores together with the wall clock
// time of the model call in whole milliseconds.
func (e *Engine) Infer(t *preprocess.Tensor) ([]float32, int64, error) {
	if t == nil {
		return nil, 0, &preprocess.InvalidImageError{Reason: "nil tensor"}
	}
	if t.Height != preprocess.H || t.Width != preprocess.W || t.Channels != preprocess.Channels ||
		len(t.Data) != preprocess.H*preprocess.W*preprocess.Channels {
		return nil, 0, &preprocess.InvalidImageError{
			Reason: fmt.Sprintf("tensor shape %dx%dx%d", t.Height, t.Width, t.Channels),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	scores, err := e.model.Predict(t)
	elapsed := e.now().Sub(start)
	if err != nil {
		return nil, 0, fmt.Errorf("inference: %w", err)
	}

	latency := elapsed.Milliseconds()
	if latency < 0 {
		latency = 0
	}

	if len(scores) != e.labels.Len() {
		return nil, 0, &ModelShapeMismatchError{Want: e.labels.Len(), Got: len(scores)}
	}
	for i, v := range scores {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, 0, &NonFiniteScoreError{Index: i, Value: v}
		}
	}

	logrus.WithField("latencyMs", latency).
		WithField("classes", len(scores)).
		Debug("inference done")

	return scores, latency, nil
}

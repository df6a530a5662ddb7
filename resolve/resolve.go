// Package resolve picks the winning class out of a confidence vector.
package resolve

import (
	"fmt"
	"math"
	"sort"

	"github.com/sdeoras/cropguard/labels"
)

// EmptyVectorError is returned for a confidence vector with no scores.
type EmptyVectorError struct{}

func (EmptyVectorError) Error() string { return "empty confidence vector" }

// Result is the single best class of one inference.
type Result struct {
	Label      labels.Label `json:"label"`
	Index      int          `json:"index"`
	Confidence float32      `json:"confidence"`
}

// Score is one label/score pair of a ranked list.
type Score struct {
	Label      labels.Label `json:"label"`
	Confidence float32      `json:"confidence"`
}

// Argmax returns the index and value of the largest score. Equal scores keep the
// leftmost index. Scores below zero are handled, so is a vector of NaNs (index 0).
func Argmax(vector []float32) (int, float32, error) {
	if len(vector) == 0 {
		return 0, 0, EmptyVectorError{}
	}

	best := 0
	bestScore := float32(math.Inf(-1))
	for i, v := range vector {
		if v > bestScore {
			best, bestScore = i, v
		}
	}

	return best, vector[best], nil
}

// Resolve maps the best score of vector onto its label in set.
func Resolve(set labels.Set, vector []float32) (Result, error) {
	i, score, err := Argmax(vector)
	if err != nil {
		return Result{}, err
	}

	label, ok := set.At(i)
	if !ok {
		return Result{}, fmt.Errorf("score index %d outside label set of %d", i, set.Len())
	}

	return Result{Label: label, Index: i, Confidence: score}, nil
}

// TopK returns at most k scores in descending order. Ties keep label order and
// NaN scores are left out.
func TopK(set labels.Set, vector []float32, k int) []Score {
	n := len(vector)
	if set.Len() < n {
		n = set.Len()
	}

	out := make([]Score, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(float64(vector[i])) {
			continue
		}
		label, _ := set.At(i)
		out = append(out, Score{Label: label, Confidence: vector[i]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	if k >= 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

package recommend

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/classifier"
	"github.com/sdeoras/cropguard/labels"
	"github.com/sdeoras/cropguard/metrics"
	"github.com/sdeoras/cropguard/perf"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sdeoras/cropguard/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type staticModel struct {
	scores []float32
	err    error
	calls  int
}

func (m *staticModel) Predict(*preprocess.Tensor) ([]float32, error) {
	m.calls++
	return m.scores, m.err
}

func pipeline(t *testing.T, m classifier.Model) *Pipeline {
	t.Helper()
	engine, err := classifier.NewEngine(m, labels.Default)
	require.NoError(t, err)
	return &Pipeline{Engine: engine, Advisor: advisor.Default(), TopK: 3}
}

func photo() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func TestRecommend(t *testing.T) {
	m := &staticModel{scores: []float32{0.91, 0.02, 0.03, 0.01, 0.01, 0.01, 0.01}}
	p := pipeline(t, m)

	rec, err := p.Recommend(WithRequestID(context.Background(), "req-1"), photo())
	require.NoError(t, err)

	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, labels.Label("Cocoa Black Pod"), rec.Classification.Label)
	assert.Equal(t, float32(0.91), rec.Classification.Confidence)
	assert.Equal(t, "COCOBOD/CODAPEC", rec.Protocol.Authority)
	assert.Len(t, rec.Protocol.Steps, 4)
	assert.GreaterOrEqual(t, rec.Performance.EstimatedLatencyMs, int64(1))
	require.Len(t, rec.Ranked, 3)
	assert.Equal(t, labels.Label("Cocoa Black Pod"), rec.Ranked[0].Label)
	assert.Equal(t, labels.Label("Cocoa Pod Borer"), rec.Ranked[1].Label)
	assert.Equal(t, 1, m.calls)
}

func TestRecommendGeneratesRequestID(t *testing.T) {
	p := pipeline(t, &staticModel{scores: make([]float32, 7)})
	p.Advisor = nil

	rec, err := p.Recommend(context.Background(), photo())
	require.NoError(t, err)
	assert.Len(t, rec.RequestID, 36)
	// all-zero scores resolve to the first label
	assert.Equal(t, labels.Label("Cocoa Black Pod"), rec.Classification.Label)
}

func TestRecommendHealthy(t *testing.T) {
	p := pipeline(t, &staticModel{scores: []float32{-2, -1, -3, -4, -5, -6, -0.5}})

	rec, err := p.Recommend(context.Background(), photo())
	require.NoError(t, err)
	assert.Equal(t, labels.Label("Maize Healthy"), rec.Classification.Label)
	assert.Equal(t, advisor.Healthy, rec.Protocol.Status)
}

func TestRecommendErrors(t *testing.T) {
	var invalid *preprocess.InvalidImageError
	m := &staticModel{scores: make([]float32, 7)}
	_, err := pipeline(t, m).Recommend(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, errors.As(err, &invalid))
	assert.Zero(t, m.calls)

	var mismatch *classifier.ModelShapeMismatchError
	_, err = pipeline(t, &staticModel{scores: make([]float32, 3)}).Recommend(context.Background(), photo())
	assert.True(t, errors.As(err, &mismatch))

	boom := errors.New("boom")
	_, err = pipeline(t, &staticModel{err: boom}).Recommend(context.Background(), photo())
	assert.ErrorIs(t, err, boom)
}

// counts sums every int64 counter by name.
func counts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}

func TestRecommendRejectsNaNScores(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	recorder, err := metrics.New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	p := pipeline(t, &staticModel{scores: []float32{float32(math.NaN()), 0.1, 0.2, 0.1, 0.1, 0.1, 0.1}})
	p.Metrics = recorder
	p.TopK = 2

	_, err = p.Recommend(context.Background(), photo())
	var nonFinite *classifier.NonFiniteScoreError
	require.True(t, errors.As(err, &nonFinite), "got %v", err)
	assert.Equal(t, 0, nonFinite.Index)

	got := counts(t, reader)
	assert.Equal(t, int64(1), got["cropguard.failures"])
	assert.Zero(t, got["cropguard.recommendations"])
}

func TestAssemble(t *testing.T) {
	result := resolve.Result{Label: "Maize Blight", Index: 3, Confidence: 0.7}
	protocol := advisor.Default().Advise(result.Label)

	rec, err := Assemble(result, perf.Estimate(120), protocol)
	require.NoError(t, err)
	assert.Equal(t, result, rec.Classification)
	assert.Equal(t, 12.0, rec.Performance.SpeedupRatio)

	rec.Protocol.Steps[0] = "changed"
	assert.NotEqual(t, "changed", protocol.Steps[0])
}

func TestAssembleValidates(t *testing.T) {
	good := resolve.Result{Label: "Maize Blight"}
	protocol := advisor.Fallback

	_, err := Assemble(resolve.Result{}, perf.Estimate(1), protocol)
	assert.Error(t, err)

	_, err = Assemble(good, perf.Metric{}, protocol)
	assert.Error(t, err)

	_, err = Assemble(good, perf.Estimate(1), advisor.Protocol{Authority: "none"})
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	result := resolve.Result{Label: "Cocoa Black Pod", Confidence: 0.873}
	protocol := advisor.Default().Advise(result.Label)
	rec, err := Assemble(result, perf.Estimate(120), protocol)
	require.NoError(t, err)

	s := rec.Summary()
	assert.Contains(t, s, "87.3% Confidence")
	assert.Contains(t, s, "simulated accelerator 10ms, 12.0x")
	assert.Contains(t, s, "COCOBOD APPROVED PROTOCOL")
	assert.Contains(t, s, "4. Cultural: Remove and bury infected pods immediately.")
	assert.Contains(t, s, "Source: COCOBOD/CODAPEC")
}

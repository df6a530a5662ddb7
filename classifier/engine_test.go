package classifier

import (
	"errors"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sdeoras/cropguard/labels"
	"github.com/sdeoras/cropguard/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Predict(t *preprocess.Tensor) ([]float32, error) {
	args := m.Called(t)
	scores, _ := args.Get(0).([]float32)
	return scores, args.Error(1)
}

func tensor(t *testing.T) *preprocess.Tensor {
	t.Helper()
	out, err := preprocess.Normalize(image.NewRGBA(image.Rect(0, 0, 16, 16)))
	require.NoError(t, err)
	return out
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	cur := time.Unix(0, 0)
	return func() time.Time {
		now := cur
		cur = cur.Add(step)
		return now
	}
}

func TestInfer(t *testing.T) {
	in := tensor(t)
	m := new(mockModel)
	m.On("Predict", in).Return([]float32{0.1, 0.2, 0.3, 0.1, 0.1, 0.1, 0.1}, nil).Once()

	e, err := NewEngine(m, labels.Default)
	require.NoError(t, err)
	e.now = stepClock(42 * time.Millisecond)

	scores, latency, err := e.Infer(in)
	require.NoError(t, err)
	assert.Len(t, scores, 7)
	assert.Equal(t, int64(42), latency)
	m.AssertExpectations(t)
}

func TestInferLatencyTruncatesToMilliseconds(t *testing.T) {
	in := tensor(t)
	m := new(mockModel)
	m.On("Predict", in).Return(make([]float32, 7), nil)

	e, err := NewEngine(m, labels.Default)
	require.NoError(t, err)

	e.now = stepClock(999 * time.Microsecond)
	_, latency, err := e.Infer(in)
	require.NoError(t, err)
	assert.Equal(t, int64(0), latency)

	e.now = stepClock(-5 * time.Millisecond)
	_, latency, err = e.Infer(in)
	require.NoError(t, err)
	assert.Equal(t, int64(0), latency)
}

func TestInferShapeMismatch(t *testing.T) {
	in := tensor(t)
	m := new(mockModel)
	m.On("Predict", in).Return([]float32{0.5, 0.5}, nil)

	e, err := NewEngine(m, labels.Default)
	require.NoError(t, err)

	scores, latency, err := e.Infer(in)
	assert.Nil(t, scores)
	assert.Zero(t, latency)

	var mismatch *ModelShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 7, mismatch.Want)
	assert.Equal(t, 2, mismatch.Got)
}

func TestInferRejectsNonFiniteScores(t *testing.T) {
	in := tensor(t)
	for name, bad := range map[string]float32{
		"nan":  float32(math.NaN()),
		"+inf": float32(math.Inf(1)),
		"-inf": float32(math.Inf(-1)),
	} {
		m := new(mockModel)
		m.On("Predict", in).Return([]float32{0.1, 0.2, bad, 0.1, 0.1, 0.1, 0.1}, nil)

		e, err := NewEngine(m, labels.Default)
		require.NoError(t, err)

		scores, _, err := e.Infer(in)
		assert.Nil(t, scores, name)

		var nonFinite *NonFiniteScoreError
		require.True(t, errors.As(err, &nonFinite), name)
		assert.Equal(t, 2, nonFinite.Index, name)
	}
}

func TestInferModelError(t *testing.T) {
	in := tensor(t)
	boom := errors.New("session closed")
	m := new(mockModel)
	m.On("Predict", in).Return(nil, boom)

	e, err := NewEngine(m, labels.Default)
	require.NoError(t, err)

	_, _, err = e.Infer(in)
	assert.ErrorIs(t, err, boom)
}

func TestInferRejectsBadTensor(t *testing.T) {
	m := new(mockModel)
	e, err := NewEngine(m, labels.Default)
	require.NoError(t, err)

	var invalid *preprocess.InvalidImageError

	_, _, err = e.Infer(nil)
	assert.True(t, errors.As(err, &invalid))

	_, _, err = e.Infer(&preprocess.Tensor{Height: 10, Width: 10, Channels: 3, Data: make([]float32, 300)})
	assert.True(t, errors.As(err, &invalid))

	m.AssertNotCalled(t, "Predict", mock.Anything)
}

type countingModel struct {
	inFlight, maxInFlight int32
}

func (c *countingModel) Predict(*preprocess.Tensor) ([]float32, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&c.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&c.maxInFlight, peak, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)
	return make([]float32, 7), nil
}

func TestInferIsSerialized(t *testing.T) {
	in := tensor(t)
	m := new(countingModel)
	e, err := NewEngine(m, labels.Default)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.Infer(in)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&m.maxInFlight))
}

func TestModelLoadErrorUnwraps(t *testing.T) {
	cause := errors.New("no such file")
	err := error(&ModelLoadError{Location: "model/crops.pb", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "model/crops.pb")
}

func TestNewEngineValidates(t *testing.T) {
	_, err := NewEngine(nil, labels.Default)
	assert.Error(t, err)

	_, err = NewEngine(new(mockModel), labels.Set{})
	assert.Error(t, err)
}

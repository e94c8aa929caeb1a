package ml

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestLayerDenseForward(t *testing.T) {
	layer, err := NewLayerDense(2, 3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	layer.Weights = mat.NewDense(2, 3, []float64{1, 0, -1, 0, 1, 2})
	layer.Biases = []float64{0.5, 0, 0}

	out, err := layer.Forward(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 3}, out.RawRowView(0))
	assert.Equal(t, []float64{3.5, 4, 5}, out.RawRowView(1))
	assert.Same(t, out, layer.Outputs)
}

func TestLayerDenseRejectsMismatchedInputs(t *testing.T) {
	layer, err := NewLayerDense(2, 3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = layer.Forward(mat.NewDense(1, 3, []float64{1, 2, 3}))
	assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
}

func TestNewLayerDenseRejectsZeroSize(t *testing.T) {
	_, err := NewLayerDense(0, 3, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrInvalidParameter), "got %v", err)
}

func TestActivationReLU(t *testing.T) {
	var relu ActivationReLU
	out := relu.Forward(mat.NewDense(2, 2, []float64{-1, 2, 0, -0.5}))
	assert.Equal(t, []float64{0, 2, 0, 0}, out.RawMatrix().Data)
}

func TestActivationSoftmaxRowsSumToOne(t *testing.T) {
	var softmax ActivationSoftmax
	// Large values would overflow exp without the max shift.
	out := softmax.Forward(mat.NewDense(3, 3, []float64{
		1, 2, 3,
		1000, 1000, 1000,
		-5, 0, 800,
	}))

	for i := 0; i < 3; i++ {
		row := out.RawRowView(i)
		assert.InDelta(t, 1.0, floats.Sum(row), 1e-12, "row %d", i)
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, out.RawRowView(1), 1e-12)
	assert.Equal(t, 2, floats.MaxIdx(out.RawRowView(0)))
}

func TestNetworkForwardShape(t *testing.T) {
	d, err := GenerateSpiral(DefaultSpiralConfig().WithSeed(3))
	require.NoError(t, err)

	seed := int64(3)
	n, err := NewNetwork(2, 8, d.Classes, &seed)
	require.NoError(t, err)
	probs, err := n.Forward(d.X)
	require.NoError(t, err)

	r, c := probs.Dims()
	assert.Equal(t, d.Len(), r)
	assert.Equal(t, d.Classes, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, floats.Sum(probs.RawRowView(i)), 1e-9)
	}
	hr, hc := n.Activation.Outputs.Dims()
	assert.Equal(t, []int{d.Len(), 8}, []int{hr, hc})
	assert.GreaterOrEqual(t, floats.Min(n.Activation.Outputs.RawMatrix().Data), 0.0)
}

func TestScoreDatasetSeededIsRepeatable(t *testing.T) {
	d, err := GenerateSpiral(DefaultSpiralConfig().WithSeed(9))
	require.NoError(t, err)

	score := func() Score {
		seed := int64(9)
		n, err := NewNetwork(2, 16, d.Classes, &seed)
		require.NoError(t, err)
		s, err := ScoreDataset(n, d)
		require.NoError(t, err)
		return s
	}

	first, second := score(), score()
	assert.Equal(t, first, second)
	assert.Len(t, first.Predictions, d.Len())
	assert.InDelta(t, math.Log(3), first.Loss, 0.05)
}

func TestDenseRowsCopies(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	rows := DenseRows(m)
	rows[0][0] = 9
	assert.Equal(t, [][]float64{{9, 2}, {3, 4}}, rows)
	assert.Equal(t, 1.0, m.At(0, 0))
}

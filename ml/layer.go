package ml

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// weightScale keeps initial weights small so the first softmax is near uniform.
const weightScale = 0.01

// LayerDense is a fully connected layer: Outputs = Inputs·Weights + Biases.
type LayerDense struct {
	Weights *mat.Dense
	Biases  []float64
	Outputs *mat.Dense
}

// NewLayerDense creates a layer with gaussian weights scaled by 0.01 and zero biases.
func NewLayerDense(nInputs, nNeurons int, rng *rand.Rand) (*LayerDense, error) {
	if nInputs <= 0 || nNeurons <= 0 {
		return nil, fmt.Errorf("%w: layer needs positive sizes, got %dx%d", ErrInvalidParameter, nInputs, nNeurons)
	}
	weights := make([]float64, nInputs*nNeurons)
	for i := range weights {
		weights[i] = weightScale * rng.NormFloat64()
	}
	return &LayerDense{
		Weights: mat.NewDense(nInputs, nNeurons, weights),
		Biases:  make([]float64, nNeurons),
	}, nil
}

// Forward computes the layer outputs for a batch of inputs, one sample per row.
func (l *LayerDense) Forward(inputs mat.Matrix) (*mat.Dense, error) {
	_, c := inputs.Dims()
	if wr, _ := l.Weights.Dims(); c != wr {
		return nil, fmt.Errorf("%w: inputs have %d features, layer expects %d", ErrInvalidInput, c, wr)
	}
	var out mat.Dense
	out.Mul(inputs, l.Weights)
	out.Apply(func(_, j int, v float64) float64 {
		return v + l.Biases[j]
	}, &out)
	l.Outputs = &out
	return &out, nil
}

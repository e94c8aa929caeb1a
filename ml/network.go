package ml

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Network is an untrained dense -> ReLU -> dense -> softmax classifier.
type Network struct {
	Hidden     *LayerDense
	Activation *ActivationReLU
	Output     *LayerDense
	Softmax    *ActivationSoftmax
}

// NewNetwork builds a network with randomly initialised weights.
// A nil seed picks a fresh source.
func NewNetwork(inputs, hidden, classes int, seed *int64) (*Network, error) {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	rng := rand.New(rand.NewSource(s))

	h, err := NewLayerDense(inputs, hidden, rng)
	if err != nil {
		return nil, fmt.Errorf("hidden layer: %w", err)
	}
	o, err := NewLayerDense(hidden, classes, rng)
	if err != nil {
		return nil, fmt.Errorf("output layer: %w", err)
	}
	return &Network{
		Hidden:     h,
		Activation: &ActivationReLU{},
		Output:     o,
		Softmax:    &ActivationSoftmax{},
	}, nil
}

// Forward returns per-class probabilities for every input row.
func (n *Network) Forward(inputs mat.Matrix) (*mat.Dense, error) {
	h, err := n.Hidden.Forward(inputs)
	if err != nil {
		return nil, err
	}
	o, err := n.Output.Forward(n.Activation.Forward(h))
	if err != nil {
		return nil, err
	}
	return n.Softmax.Forward(o), nil
}

// Score is a network's accuracy and loss on a dataset.
type Score struct {
	Evaluation
	Loss float64 `json:"loss"`
}

// ScoreDataset runs a forward pass over d and scores it against d's labels.
func ScoreDataset(n *Network, d *Dataset) (Score, error) {
	probs, err := n.Forward(d.X)
	if err != nil {
		return Score{}, err
	}
	rows := DenseRows(probs)
	targets := Targets{Labels: d.Y}
	eval, err := Evaluate(rows, targets)
	if err != nil {
		return Score{}, err
	}
	loss, err := CategoricalCrossEntropy(rows, targets)
	if err != nil {
		return Score{}, err
	}
	return Score{Evaluation: eval, Loss: loss}, nil
}

// DenseRows copies m into row slices.
func DenseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return rows
}

package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ActivationReLU clamps negative values to zero.
type ActivationReLU struct {
	Outputs *mat.Dense
}

func (a *ActivationReLU) Forward(inputs mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Max(0, v)
	}, inputs)
	a.Outputs = &out
	return &out
}

// ActivationSoftmax turns each row into a probability distribution.
type ActivationSoftmax struct {
	Outputs *mat.Dense
}

// Forward subtracts the row maximum before exponentiating so large inputs do not overflow.
func (a *ActivationSoftmax) Forward(inputs mat.Matrix) *mat.Dense {
	r, c := inputs.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		mat.Row(row, i, inputs)
		top := floats.Max(row)
		for j, v := range row {
			row[j] = math.Exp(v - top)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	a.Outputs = out
	return out
}

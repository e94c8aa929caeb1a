package ml

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Probabilities clipped into this range before taking logs.
const clipEpsilon = 1e-7

// DefaultProbabilities are softmax outputs for three samples over three classes.
var DefaultProbabilities = [][]float64{
	{0.7, 0.2, 0.1},
	{0.5, 0.1, 0.4},
	{0.02, 0.9, 0.08},
}

// DefaultTargets are the ground-truth labels matching DefaultProbabilities.
var DefaultTargets = Targets{Labels: []int{0, 1, 1}}

// Targets holds ground-truth labels either as class indices or one-hot rows.
// When OneHot is set it takes precedence over Labels.
type Targets struct {
	Labels []int
	OneHot [][]float64
}

// IsOneHot reports whether the targets are one-hot encoded.
func (t Targets) IsOneHot() bool {
	return t.OneHot != nil
}

// Len returns the number of samples described by t.
func (t Targets) Len() int {
	if t.IsOneHot() {
		return len(t.OneHot)
	}
	return len(t.Labels)
}

// Resolve returns the targets as class indices, collapsing one-hot rows with Argmax.
func (t Targets) Resolve() ([]int, error) {
	if t.IsOneHot() {
		m, err := oneHotDense(t.OneHot)
		if err != nil {
			return nil, err
		}
		return argmaxDense(m), nil
	}
	if len(t.Labels) == 0 {
		return nil, fmt.Errorf("%w: targets are empty", ErrInvalidInput)
	}
	return slices.Clone(t.Labels), nil
}

// Evaluation is the outcome of comparing predictions against targets.
type Evaluation struct {
	Predictions []int   `json:"predictions"`
	Matches     []bool  `json:"matches"`
	Accuracy    float64 `json:"accuracy"`
}

// oneHotDense converts one-hot rows into a matrix. Every row must be
// non-negative with a single strictly positive maximum.
func oneHotDense(rows [][]float64) (*mat.Dense, error) {
	m, err := ToDense(rows)
	if err != nil {
		return nil, fmt.Errorf("one-hot targets: %w", err)
	}
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		if floats.Min(row) < 0 {
			return nil, fmt.Errorf("%w: one-hot row %d has a negative entry", ErrInvalidInput, i)
		}
		top := floats.Max(row)
		if top <= 0 {
			return nil, fmt.Errorf("%w: one-hot row %d has no positive entry", ErrInvalidInput, i)
		}
		if floats.Count(func(v float64) bool { return v == top }, row) > 1 {
			return nil, fmt.Errorf("%w: one-hot row %d has more than one maximum", ErrInvalidInput, i)
		}
	}
	return m, nil
}

// ToDense converts rectangular rows into a matrix. Empty, ragged or
// non-finite input is rejected.
func ToDense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: matrix has no rows", ErrInvalidInput)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: matrix has no columns", ErrInvalidInput)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidInput, i, len(row), cols)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: value at (%d, %d) is not finite", ErrInvalidInput, i, j)
			}
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Argmax returns the column index of the maximum value in every row.
// Ties resolve to the lowest index.
func Argmax(rows [][]float64) ([]int, error) {
	m, err := ToDense(rows)
	if err != nil {
		return nil, err
	}
	return argmaxDense(m), nil
}

func argmaxDense(m *mat.Dense) []int {
	r, _ := m.Dims()
	idx := make([]int, r)
	for i := 0; i < r; i++ {
		idx[i] = floats.MaxIdx(m.RawRowView(i))
	}
	return idx
}

// Evaluate computes the classification accuracy of probs against targets.
func Evaluate(probs [][]float64, targets Targets) (Evaluation, error) {
	m, err := ToDense(probs)
	if err != nil {
		return Evaluation{}, fmt.Errorf("probabilities: %w", err)
	}
	labels, err := resolveFor(m, targets)
	if err != nil {
		return Evaluation{}, err
	}

	predictions := argmaxDense(m)
	matches := make([]bool, len(predictions))
	hits := make([]int, len(predictions))
	for i, p := range predictions {
		matches[i] = p == labels[i]
		if matches[i] {
			hits[i] = 1
		}
	}
	return Evaluation{
		Predictions: predictions,
		Matches:     matches,
		Accuracy:    Mean(hits),
	}, nil
}

// CategoricalCrossEntropy returns the mean categorical cross-entropy of probs against targets.
func CategoricalCrossEntropy(probs [][]float64, targets Targets) (float64, error) {
	m, err := ToDense(probs)
	if err != nil {
		return 0, fmt.Errorf("probabilities: %w", err)
	}
	r, c := m.Dims()

	var clipped mat.Dense
	clipped.Apply(func(_, _ int, v float64) float64 {
		return math.Max(clipEpsilon, math.Min(v, 1-clipEpsilon))
	}, m)

	losses := make([]float64, r)
	if targets.IsOneHot() {
		t, err := oneHotDense(targets.OneHot)
		if err != nil {
			return 0, err
		}
		if tr, tc := t.Dims(); tr != r || tc != c {
			return 0, fmt.Errorf("%w: targets are %dx%d, probabilities are %dx%d", ErrInvalidInput, tr, tc, r, c)
		}
		for i := 0; i < r; i++ {
			losses[i] = -math.Log(floats.Dot(clipped.RawRowView(i), t.RawRowView(i)))
		}
		return Mean(losses), nil
	}

	labels, err := resolveFor(m, targets)
	if err != nil {
		return 0, err
	}
	for i, label := range labels {
		if label < 0 || label >= c {
			return 0, fmt.Errorf("%w: label %d at sample %d outside [0,%d)", ErrInvalidInput, label, i, c)
		}
		losses[i] = -math.Log(clipped.At(i, label))
	}
	return Mean(losses), nil
}

// resolveFor resolves targets and checks they line up with the rows of m.
func resolveFor(m *mat.Dense, targets Targets) ([]int, error) {
	r, c := m.Dims()
	if targets.IsOneHot() && len(targets.OneHot) > 0 && len(targets.OneHot[0]) != c {
		return nil, fmt.Errorf("%w: one-hot targets have %d classes, probabilities have %d",
			ErrInvalidInput, len(targets.OneHot[0]), c)
	}
	labels, err := targets.Resolve()
	if err != nil {
		return nil, err
	}
	if len(labels) != r {
		return nil, fmt.Errorf("%w: %d targets for %d samples", ErrInvalidInput, len(labels), r)
	}
	return labels, nil
}

package ml

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
)

// MaxSpiralPoints bounds the size of a single generated dataset.
const MaxSpiralPoints = 1_000_000

// SpiralConfig describes a spiral dataset.
//
// Each class forms one arm, and arm c starts at angle c*2π/Classes. Spread is the
// angular span covered by one arm before scaling, Scale winds the arm, and Noise
// is the standard deviation of the gaussian perturbation added to the angle.
type SpiralConfig struct {
	Samples int
	Classes int
	// Seed fixes the random source. Nil means a fresh source per call.
	Seed   *int64
	Spread float64
	Scale  float64
	Noise  float64
}

// DefaultSpiralConfig returns 100 samples for each of 3 classes, unseeded.
func DefaultSpiralConfig() SpiralConfig {
	return SpiralConfig{
		Samples: 100,
		Classes: 3,
		Spread:  4,
		Scale:   2.5,
		Noise:   0.2,
	}
}

// WithSeed returns a copy of c using the given seed.
func (c SpiralConfig) WithSeed(seed int64) SpiralConfig {
	c.Seed = &seed
	return c
}

// Validate checks that c describes a dataset that can be generated.
func (c SpiralConfig) Validate() error {
	switch {
	case c.Samples <= 0:
		return fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidParameter, c.Samples)
	case c.Classes <= 0:
		return fmt.Errorf("%w: classes must be positive, got %d", ErrInvalidParameter, c.Classes)
	case c.Samples > MaxSpiralPoints/c.Classes:
		return fmt.Errorf("%w: %d samples x %d classes exceeds %d points",
			ErrInvalidParameter, c.Samples, c.Classes, MaxSpiralPoints)
	case !finite(c.Spread) || c.Spread <= 0:
		return fmt.Errorf("%w: spread must be positive and finite, got %g", ErrInvalidParameter, c.Spread)
	case !finite(c.Scale) || c.Scale <= 0:
		return fmt.Errorf("%w: scale must be positive and finite, got %g", ErrInvalidParameter, c.Scale)
	case !finite(c.Noise) || c.Noise < 0:
		return fmt.Errorf("%w: noise must be non-negative and finite, got %g", ErrInvalidParameter, c.Noise)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Dataset is a labeled set of 2D points. Row i of X carries label Y[i].
// Rows are class-major: class c occupies rows [c*Samples, (c+1)*Samples).
type Dataset struct {
	X       *mat.Dense
	Y       []int
	Classes int
	Samples int
}

// Len returns the number of points.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Points returns the features as [x, y] pairs in dataset order.
func (d *Dataset) Points() [][]float64 {
	points := make([][]float64, d.Len())
	for i := range points {
		row := d.X.RawRowView(i)
		points[i] = []float64{row[0], row[1]}
	}
	return points
}

// ClassCounts returns how many points carry each label.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, d.Classes)
	for _, label := range d.Y {
		counts[label]++
	}
	return counts
}

// Class returns the points and labels of a single class.
func (d *Dataset) Class(c int) ([][]float64, []int) {
	if c < 0 || c >= d.Classes {
		return nil, nil
	}
	start := c * d.Samples
	points := make([][]float64, d.Samples)
	for i := range points {
		row := d.X.RawRowView(start + i)
		points[i] = []float64{row[0], row[1]}
	}
	return points, d.Y[start : start+d.Samples]
}

// GenerateSpiral builds Samples points for each of Classes spiral arms.
// Points are ordered by class, then by sample index.
func GenerateSpiral(cfg SpiralConfig) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	n := cfg.Samples * cfg.Classes
	armOffset := 2 * math.Pi / float64(cfg.Classes)
	x := mat.NewDense(n, 2, nil)
	y := make([]int, n)

	for c := 0; c < cfg.Classes; c++ {
		for i := 0; i < cfg.Samples; i++ {
			row := c*cfg.Samples + i
			radius := float64(i) / float64(cfg.Samples)
			progress := 0.0
			if cfg.Samples > 1 {
				progress = float64(i) / float64(cfg.Samples-1)
			}
			// Arms start evenly around the circle; Scale only winds the arm itself.
			angle := float64(c)*armOffset + (progress*cfg.Spread+rng.NormFloat64()*cfg.Noise)*cfg.Scale
			x.Set(row, 0, radius*math.Sin(angle))
			x.Set(row, 1, radius*math.Cos(angle))
			y[row] = c
		}
	}

	return &Dataset{X: x, Y: y, Classes: cfg.Classes, Samples: cfg.Samples}, nil
}

package ml

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpiralShape(t *testing.T) {
	d, err := GenerateSpiral(DefaultSpiralConfig())
	require.NoError(t, err)

	rows, cols := d.X.Dims()
	assert.Equal(t, 300, rows)
	assert.Equal(t, 2, cols)
	assert.Len(t, d.Y, 300)
	assert.Len(t, d.Points(), 300)
	assert.Equal(t, []int{100, 100, 100}, d.ClassCounts())
}

func TestGenerateSpiralClassMajorOrder(t *testing.T) {
	cfg := DefaultSpiralConfig()
	cfg.Samples = 4
	d, err := GenerateSpiral(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2}, d.Y)
}

func TestGenerateSpiralWithinUnitRadius(t *testing.T) {
	d, err := GenerateSpiral(DefaultSpiralConfig())
	require.NoError(t, err)

	for i, p := range d.Points() {
		r := math.Hypot(p[0], p[1])
		assert.LessOrEqual(t, r, 1.0+1e-9, "point %d", i)
		// radius grows with the sample index inside each class
		want := float64(i%100) / 100
		assert.InDelta(t, want, r, 1e-9, "point %d", i)
	}
}

func TestGenerateSpiralSeeded(t *testing.T) {
	cfg := DefaultSpiralConfig().WithSeed(42)

	a, err := GenerateSpiral(cfg)
	require.NoError(t, err)
	b, err := GenerateSpiral(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Points(), b.Points())
	assert.Equal(t, a.Y, b.Y)

	c, err := GenerateSpiral(DefaultSpiralConfig().WithSeed(7))
	require.NoError(t, err)
	assert.NotEqual(t, a.Points(), c.Points())
}

func TestGenerateSpiralNoNoiseIsDeterministic(t *testing.T) {
	cfg := DefaultSpiralConfig()
	cfg.Noise = 0
	a, err := GenerateSpiral(cfg)
	require.NoError(t, err)
	b, err := GenerateSpiral(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Points(), b.Points())
}

func TestGenerateSpiralSingleSample(t *testing.T) {
	cfg := DefaultSpiralConfig()
	cfg.Samples = 1
	d, err := GenerateSpiral(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	for _, p := range d.Points() {
		assert.Equal(t, []float64{0, 0}, p)
	}
}

func TestGenerateSpiralInvalidParameters(t *testing.T) {
	cases := map[string]func(*SpiralConfig){
		"zero samples":     func(c *SpiralConfig) { c.Samples = 0 },
		"negative classes": func(c *SpiralConfig) { c.Classes = -1 },
		"too many points":  func(c *SpiralConfig) { c.Samples = MaxSpiralPoints },
		"zero spread":      func(c *SpiralConfig) { c.Spread = 0 },
		"zero scale":       func(c *SpiralConfig) { c.Scale = 0 },
		"negative noise":   func(c *SpiralConfig) { c.Noise = -0.1 },
		"infinite noise":   func(c *SpiralConfig) { c.Noise = math.Inf(1) },
		"nan noise":        func(c *SpiralConfig) { c.Noise = math.NaN() },
		"nan spread":       func(c *SpiralConfig) { c.Spread = math.NaN() },
		"infinite spread":  func(c *SpiralConfig) { c.Spread = math.Inf(1) },
		"nan scale":        func(c *SpiralConfig) { c.Scale = math.NaN() },
		"infinite scale":   func(c *SpiralConfig) { c.Scale = math.Inf(1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultSpiralConfig()
			mutate(&cfg)
			_, err := GenerateSpiral(cfg)
			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestDatasetClass(t *testing.T) {
	d, err := GenerateSpiral(DefaultSpiralConfig().WithSeed(1))
	require.NoError(t, err)

	points, labels := d.Class(2)
	require.Len(t, points, 100)
	assert.Equal(t, d.Points()[200:], points)
	for _, l := range labels {
		assert.Equal(t, 2, l)
	}
}

func TestGenerateSpiralArmsEvenlyOffset(t *testing.T) {
	cfg := DefaultSpiralConfig()
	cfg.Classes = 5
	cfg.Samples = 10
	cfg.Noise = 0
	d, err := GenerateSpiral(cfg)
	require.NoError(t, err)

	points := d.Points()
	for c := 1; c < cfg.Classes; c++ {
		rot := float64(c) * 2 * math.Pi / float64(cfg.Classes)
		for i := 0; i < cfg.Samples; i++ {
			base := points[i]
			// sin(a+rot), cos(a+rot) expressed through the class 0 point
			wantX := base[0]*math.Cos(rot) + base[1]*math.Sin(rot)
			wantY := base[1]*math.Cos(rot) - base[0]*math.Sin(rot)
			got := points[c*cfg.Samples+i]
			assert.InDelta(t, wantX, got[0], 1e-9, "class %d sample %d", c, i)
			assert.InDelta(t, wantY, got[1], 1e-9, "class %d sample %d", c, i)
		}
	}
}

func TestDatasetClassManyClasses(t *testing.T) {
	cfg := DefaultSpiralConfig()
	cfg.Samples = 1
	cfg.Classes = 200_000
	d, err := GenerateSpiral(cfg)
	require.NoError(t, err)

	start := time.Now()
	for c := 0; c < d.Classes; c++ {
		points, labels := d.Class(c)
		if len(points) != 1 || len(labels) != 1 || labels[0] != c {
			t.Fatalf("class %d: got %d points, labels %v", c, len(points), labels)
		}
	}
	assert.Less(t, time.Since(start), 5*time.Second)

	points, labels := d.Class(d.Classes)
	assert.Nil(t, points)
	assert.Nil(t, labels)
}

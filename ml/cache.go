package ml

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type spiralKey struct {
	samples, classes int
	seed             int64
	spread           float64
	scale            float64
	noise            float64
}

// SpiralCache memoizes seeded spiral datasets. Unseeded configurations are
// never cached since every call is expected to differ.
type SpiralCache struct {
	cache *lru.Cache[spiralKey, *Dataset]
}

// NewSpiralCache creates a cache holding at most size datasets.
func NewSpiralCache(size int) (*SpiralCache, error) {
	c, err := lru.New[spiralKey, *Dataset](size)
	if err != nil {
		return nil, fmt.Errorf("create spiral cache: %w", err)
	}
	return &SpiralCache{cache: c}, nil
}

// Get returns the dataset for cfg, generating it on a miss.
// Cached datasets are shared and must not be modified by callers.
func (s *SpiralCache) Get(cfg SpiralConfig) (*Dataset, error) {
	if cfg.Seed == nil {
		return GenerateSpiral(cfg)
	}
	key := spiralKey{
		samples: cfg.Samples,
		classes: cfg.Classes,
		seed:    *cfg.Seed,
		spread:  cfg.Spread,
		scale:   cfg.Scale,
		noise:   cfg.Noise,
	}
	if d, ok := s.cache.Get(key); ok {
		return d, nil
	}
	d, err := GenerateSpiral(cfg)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, d)
	return d, nil
}

// Len returns the number of cached datasets.
func (s *SpiralCache) Len() int {
	return s.cache.Len()
}

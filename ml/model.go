package ml

import (
	"errors"

	"golang.org/x/exp/constraints"
)

var (
	// ErrInvalidInput is returned when a probability matrix or target set is malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidParameter is returned when generator parameters are out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
)

type Number interface {
	constraints.Float | constraints.Integer
}

// Mean returns the arithmetic mean of s, or 0 for an empty slice.
func Mean[T Number](s []T) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return sum / float64(len(s))
}

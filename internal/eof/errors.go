package eof

import "errors"

// Dimension errors.
var (
	ErrDimensionMismatch = errors.New("eof: dimension mismatch")
)

// Domain errors.
var (
	ErrModeCount                = errors.New("eof: mode count out of range")
	ErrInsufficientObservations = errors.New("eof: at least two observations required")
	ErrEmpty                    = errors.New("eof: empty input")
	ErrZeroVariance             = errors.New("eof: total variance is zero")
	ErrInvalidSampleSize        = errors.New("eof: effective sample size must be positive")
)

// Numerical errors.
var (
	ErrNonFinite          = errors.New("eof: non-finite value in input")
	ErrFactorization      = errors.New("eof: factorization failed")
	ErrNegativeEigenvalue = errors.New("eof: negative eigenvalue")
)

package vbmix

import "errors"

var (
	ErrEmptySet             = errors.New("vbmix: empty training set")
	ErrTooFewSamples        = errors.New("vbmix: fewer samples than mixture components")
	ErrTooFewComponents     = errors.New("vbmix: number of components must be at least 1")
	ErrDimensionMismatch    = errors.New("vbmix: dimension mismatch")
	ErrBadPrior             = errors.New("vbmix: invalid prior")
	ErrNotFitted            = errors.New("vbmix: mixture has not been fitted")
	ErrIllDefinedCovariance = errors.New("vbmix: ill-defined covariance, try a larger covariance regularization")
)

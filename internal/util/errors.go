package util

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")

	ErrGeneratorTimeout     = errors.New("generator timed out")
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)

package ports

import "errors"

var (
	ErrNotFound   = errors.New("resource not found")
	ErrEmptyInput = errors.New("empty input")
	ErrTimeout    = errors.New("external call timed out")
)

package client

import "errors"

var (
	ErrUnavailable  = errors.New("catalog unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

package server

import "github.com/Somnusochi/auto-novel/errors"

var (
	// errThrottled is answered with 429 before the facade is consulted
	errThrottled = errors.New("too many job submissions, try again in a minute")

	// errDraining is answered with 503 while the server shuts down
	errDraining = errors.Wrap(errors.ErrServiceUnavailable, "server is shutting down")
)

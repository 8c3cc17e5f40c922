package domain

import "errors"

var (
	// ErrFetch marks network failures and non-success HTTP responses.
	ErrFetch = errors.New("fetch failed")
	// ErrParse marks a response body that is not in the expected shape.
	ErrParse = errors.New("parse failed")
	// ErrLookup marks a missing key, attribute or referenced state.
	ErrLookup = errors.New("lookup failed")
)

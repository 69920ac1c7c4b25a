package gateway

import "errors"

var (
	// ErrSpecFetch indicates the OpenAPI specification document could not be
	// fetched: a network error or a non-success HTTP status. Nothing is
	// cached when this is returned; a later request retries the fetch.
	ErrSpecFetch = errors.New("failed to fetch OpenAPI specification")

	// ErrResourceBuild indicates the specification was fetched but the
	// translator rejected it. Nothing is cached when this is returned.
	ErrResourceBuild = errors.New("failed to build resource from specification")

	// ErrCacheClosed indicates the cache has been shut down.
	ErrCacheClosed = errors.New("origin cache is closed")
)

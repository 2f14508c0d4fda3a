package treesync

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is the error for a repository URL lacking a scheme or a host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedURLScheme is the error for a well-formed repository URL
	// whose scheme is not file, http, or https.
	ErrUnsupportedURLScheme = errors.New("unsupported URL scheme")

	// ErrUnsupportedScheme is the error from proxy.New
	// when no backend serves the URL's scheme.
	ErrUnsupportedScheme = errors.New("no proxy for scheme")

	// ErrNotAFile is the error for reading a metadata record
	// from a path that is not a regular file.
	ErrNotAFile = errors.New("not a file")

	// ErrNotRepository is the error for opening a directory
	// that does not contain a repository (or a client).
	ErrNotRepository = errors.New("not a repository")
)

// HTTPError is the error for an HTTP response outside the 2xx range.
type HTTPError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, e.Reason)
}

package treesync

import (
	"net/url"

	"github.com/pkg/errors"
)

// SupportedSchemes are the URL schemes a repository may be reached by.
var SupportedSchemes = []string{"file", "http", "https"}

// RepositoryURL is a URL that has been checked for use as a repository location.
type RepositoryURL struct {
	raw    string
	parsed *url.URL
}

// ParseRepositoryURL validates s.
// It returns ErrInvalidURL unless s has both a scheme and a host,
// and ErrUnsupportedURLScheme if the scheme is not one of SupportedSchemes.
// The string is kept verbatim.
func ParseRepositoryURL(s string) (RepositoryURL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return RepositoryURL{}, errors.Wrapf(ErrInvalidURL, "parsing %q: %s", s, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return RepositoryURL{}, errors.Wrapf(ErrInvalidURL, "%q needs a scheme and a host", s)
	}
	if !supported(u.Scheme) {
		return RepositoryURL{}, errors.Wrapf(ErrUnsupportedURLScheme, "%q", u.Scheme)
	}
	return RepositoryURL{raw: s, parsed: u}, nil
}

func supported(scheme string) bool {
	for _, s := range SupportedSchemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// String returns the URL exactly as it was given to ParseRepositoryURL.
func (u RepositoryURL) String() string {
	return u.raw
}

// Scheme returns the URL's scheme.
func (u RepositoryURL) Scheme() string {
	if u.parsed == nil {
		return ""
	}
	return u.parsed.Scheme
}

// URL returns a copy of the parsed URL.
func (u RepositoryURL) URL() *url.URL {
	if u.parsed == nil {
		return nil
	}
	cp := *u.parsed
	return &cp
}

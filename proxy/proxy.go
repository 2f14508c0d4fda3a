// Package proxy gives consumers uniform read access to a repository,
// whether it is on a local filesystem or behind a web server.
package proxy

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/treesync"
)

// Proxy reads the three resources a repository publishes.
// Implementations never modify the repository.
type Proxy interface {
	// RepositoryIndex gets the repository index.
	RepositoryIndex(context.Context) (*treesync.Index, error)

	// RepositoryTree gets the tree manifest.
	RepositoryTree(context.Context) (treesync.Tree, error)

	// SyncFile gets the sync artifact for the tracked file with the given name,
	// which is a key of the tree manifest.
	SyncFile(ctx context.Context, name string) (treesync.SyncPayload, error)
}

type options struct {
	conf   treesync.Config
	client *http.Client
}

// Option configures a Proxy.
type Option func(*options)

// WithConfig sets the repository layout the proxy expects.
// The default is treesync.DefaultConfig().
func WithConfig(conf treesync.Config) Option {
	return func(o *options) {
		o.conf = conf
	}
}

// WithHTTPClient sets the HTTP client used by the web backend.
// The default is http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

func makeOptions(opts []Option) options {
	o := options{
		conf:   treesync.DefaultConfig(),
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New produces the Proxy for the repository at rawURL,
// choosing the backend by URL scheme:
// a *Web for http and https,
// a *Local for file.
// Any other scheme yields treesync.ErrUnsupportedScheme.
func New(rawURL string, opts ...Option) (Proxy, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(treesync.ErrInvalidURL, "parsing %q: %s", rawURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewWeb(rawURL, opts...), nil
	case "file":
		l, err := NewLocal(u, opts...)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, errors.Wrapf(treesync.ErrUnsupportedScheme, "%q", u.Scheme)
	}
}

// checkName makes sure a tree manifest key stays inside the repository.
func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") {
		return errors.Errorf("bad file name %q", name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Errorf("file name %q escapes the repository", name)
	}
	return nil
}

// Package client implements the consuming side of treesync:
// a local directory paired with the remote repository it pulls from.
package client

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/metadata"
	"github.com/bobg/treesync/proxy"
	"github.com/bobg/treesync/proxy/logging"
	"github.com/bobg/treesync/proxy/lru"
)

// Client is a handle on a client directory.
type Client struct {
	root   string
	remote treesync.RepositoryURL
	proxy  proxy.Proxy

	conf      treesync.Config
	logger    *log.Logger
	cacheSize int
	proxyOpts []proxy.Option
}

// Option configures a Client.
type Option func(*Client)

// WithConfig sets the layout used by the client and expected of the repository.
// The default is treesync.DefaultConfig().
func WithConfig(conf treesync.Config) Option {
	return func(c *Client) {
		c.conf = conf
	}
}

// WithLogger sets the logger.
// The default is log.Default().
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCache makes the client cache up to size sync artifacts in memory
// (see package proxy/lru).
func WithCache(size int) Option {
	return func(c *Client) {
		c.cacheSize = size
	}
}

// WithProxyOptions passes options to proxy.New.
func WithProxyOptions(opts ...proxy.Option) Option {
	return func(c *Client) {
		c.proxyOpts = append(c.proxyOpts, opts...)
	}
}

// CheckPresence tells whether path contains a client laid out according to conf.
// It has no side effects.
func CheckPresence(path string, conf treesync.Config) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	indexDir := filepath.Join(abs, conf.IndexDir)
	return isDir(abs) && isDir(indexDir) && isFile(filepath.Join(indexDir, conf.ClientIndexFile))
}

// Create creates a client in path linked to the repository at rawURL,
// creating path and any missing parents first.
// A failure to create path,
// including a permission failure,
// is returned to the caller.
//
// If path already holds a client and overwrite is false,
// the client keeps the repository URL it was created with
// and rawURL is ignored.
// Otherwise a fresh client index is written.
func Create(path, rawURL string, overwrite bool, opts ...Option) (*Client, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "making %s absolute", path)
	}

	c := newClient(root, opts)
	if err = c.conf.Validate(); err != nil {
		return nil, err
	}

	if !isDir(root) {
		err = os.MkdirAll(root, 0755)
		if err != nil {
			return nil, errors.Wrapf(err, "creating client dir %s", root)
		}
	}

	if CheckPresence(root, c.conf) && !overwrite {
		c.logger.Debug("adopting existing client", "root", root)
		return Open(root, opts...)
	}

	err = c.connect(rawURL)
	if err != nil {
		return nil, err
	}

	indexDir := filepath.Join(root, c.conf.IndexDir)
	err = os.MkdirAll(indexDir, 0755)
	if err != nil {
		return nil, errors.Wrapf(err, "creating index dir %s", indexDir)
	}

	idx := &treesync.ClientIndex{
		RemoteURL:     rawURL,
		ConfigVersion: c.conf.Version,
	}
	err = metadata.WriteFile(c.indexFilePath(), idx)
	if err != nil {
		return nil, errors.Wrap(err, "writing client index")
	}

	c.logger.Info("created client", "root", root, "remote", rawURL)

	return c, nil
}

// Open opens the existing client in path.
// If path holds no client,
// the error is treesync.ErrNotRepository.
func Open(path string, opts ...Option) (*Client, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "making %s absolute", path)
	}

	c := newClient(root, opts)
	if err = c.conf.Validate(); err != nil {
		return nil, err
	}

	if !CheckPresence(root, c.conf) {
		return nil, errors.Wrapf(treesync.ErrNotRepository, "opening client %s", root)
	}

	var idx treesync.ClientIndex
	err = metadata.ReadFile(c.indexFilePath(), &idx)
	if err != nil {
		return nil, errors.Wrap(err, "reading client index")
	}

	err = c.connect(idx.RemoteURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(root string, opts []Option) *Client {
	c := &Client{
		root:   root,
		conf:   treesync.DefaultConfig(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// connect validates rawURL and builds the proxy chain for it.
func (c *Client) connect(rawURL string) error {
	u, err := treesync.ParseRepositoryURL(rawURL)
	if err != nil {
		return errors.Wrapf(err, "linking client %s", c.root)
	}

	opts := append([]proxy.Option{proxy.WithConfig(c.conf)}, c.proxyOpts...)
	p, err := proxy.New(rawURL, opts...)
	if err != nil {
		return errors.Wrapf(err, "creating proxy for %s", rawURL)
	}
	p = logging.New(p, c.logger)
	if c.cacheSize > 0 {
		p, err = lru.New(p, c.cacheSize)
		if err != nil {
			return errors.Wrap(err, "creating artifact cache")
		}
	}

	c.remote = u
	c.proxy = p
	return nil
}

// Root is the absolute path of the client directory.
func (c *Client) Root() string { return c.root }

// RemoteURL is the URL of the repository the client pulls from.
func (c *Client) RemoteURL() string { return c.remote.String() }

// Proxy is the proxy through which the client reaches its repository.
func (c *Client) Proxy() proxy.Proxy { return c.proxy }

func (c *Client) indexDir() string {
	return filepath.Join(c.root, c.conf.IndexDir)
}

func (c *Client) indexFilePath() string {
	return filepath.Join(c.indexDir(), c.conf.ClientIndexFile)
}

func (c *Client) treeFilePath() string {
	return filepath.Join(c.indexDir(), c.conf.ClientTreeFile)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

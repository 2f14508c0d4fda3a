package proxy

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/metadata"
)

var _ Proxy = &Local{}

// Local is a Proxy for a repository on a local filesystem.
type Local struct {
	root string
	conf treesync.Config
}

// NewLocal produces a Local proxy for the repository named by the file URL u.
// See LocalPath for how u maps to a directory.
func NewLocal(u *url.URL, opts ...Option) (*Local, error) {
	root, err := LocalPath(u)
	if err != nil {
		return nil, err
	}
	o := makeOptions(opts)
	return &Local{root: root, conf: o.conf}, nil
}

// LocalPath resolves a file URL to an absolute directory.
//
// A URL without a host is taken to hold an absolute path:
// file:///srv/repo is /srv/repo.
// A URL with a host treats host and path together as a path
// relative to the current working directory:
// file://repos/mods is ./repos/mods.
//
// A URL naming no path at all,
// such as file:// or the opaque form file:repo,
// yields treesync.ErrInvalidURL.
func LocalPath(u *url.URL) (string, error) {
	if u.Opaque != "" {
		return "", errors.Wrapf(treesync.ErrInvalidURL, "opaque file URL %s", u)
	}
	if u.Host+u.Path == "" {
		return "", errors.Wrapf(treesync.ErrInvalidURL, "file URL %s names no directory", u)
	}
	p, err := filepath.Abs(filepath.FromSlash(u.Host + u.Path))
	return p, errors.Wrapf(err, "resolving %s", u)
}

// Root is the directory the proxy reads from.
func (l *Local) Root() string { return l.root }

// RepositoryIndex implements Proxy.RepositoryIndex.
func (l *Local) RepositoryIndex(_ context.Context) (*treesync.Index, error) {
	var idx treesync.Index
	err := metadata.ReadFile(filepath.Join(l.root, l.conf.IndexDir, l.conf.IndexFile), &idx)
	if err != nil {
		return nil, errors.Wrap(err, "reading repository index")
	}
	return &idx, nil
}

// RepositoryTree implements Proxy.RepositoryTree.
func (l *Local) RepositoryTree(_ context.Context) (treesync.Tree, error) {
	var tree treesync.Tree
	err := metadata.ReadFile(filepath.Join(l.root, l.conf.IndexDir, l.conf.TreeFile), &tree)
	if err != nil {
		return nil, errors.Wrap(err, "reading tree manifest")
	}
	if tree == nil {
		tree = make(treesync.Tree)
	}
	return tree, nil
}

// SyncFile implements Proxy.SyncFile.
func (l *Local) SyncFile(_ context.Context, name string) (treesync.SyncPayload, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var payload treesync.SyncPayload
	err := metadata.ReadFile(filepath.Join(l.root, filepath.FromSlash(name))+l.conf.SyncSuffix, &payload)
	return payload, errors.Wrapf(err, "reading sync file for %s", name)
}

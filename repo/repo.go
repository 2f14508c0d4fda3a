// Package repo implements the publishing side of treesync:
// a directory whose files are tracked for change,
// with an index, a tree manifest, and one sync artifact per tracked file.
//
// On disk a repository looks like this
// (with the names from treesync.DefaultConfig):
//
//   ROOT/.treesync/index    the repository index
//   ROOT/.treesync/tree     the tree manifest
//   ROOT/some/file          a tracked file
//   ROOT/some/file.tsync    its sync artifact
//
// A Repository is not safe for concurrent use,
// and two processes must not build the same directory at once.
package repo

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/files"
	"github.com/bobg/treesync/metadata"
)

// Replaced in tests.
var mkdirAll = os.MkdirAll

// Repository is a handle on a repository directory.
type Repository struct {
	root        string
	url         treesync.RepositoryURL
	displayName string
	conf        treesync.Config
	logger      *log.Logger

	// Whole-file checksums as of the last build,
	// keyed by slash-separated path relative to root.
	checksums treesync.Tree
}

// Option configures a Repository.
type Option func(*Repository)

// WithConfig sets the layout used by the repository.
// The default is treesync.DefaultConfig().
func WithConfig(conf treesync.Config) Option {
	return func(r *Repository) {
		r.conf = conf
	}
}

// WithLogger sets the logger.
// The default is log.Default().
func WithLogger(logger *log.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

func newRepository(root string, opts []Option) (*Repository, error) {
	r := &Repository{
		root:      root,
		conf:      treesync.DefaultConfig(),
		logger:    log.Default(),
		checksums: make(treesync.Tree),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, r.conf.Validate()
}

// CheckPresence tells whether dir contains a repository laid out according to conf.
// It has no side effects.
func CheckPresence(dir string, conf treesync.Config) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	indexDir := filepath.Join(abs, conf.IndexDir)
	return isDir(abs) && isDir(indexDir) && files.IsFile(filepath.Join(indexDir, conf.IndexFile))
}

// Initialize creates a repository in dir,
// creating dir and any missing parents first.
// A failure to create dir,
// including a permission failure
// (which satisfies errors.Is(err, fs.ErrPermission)),
// is returned to the caller.
//
// If dir already holds a repository and overwrite is false,
// the existing repository is opened as with Open:
// its stored name and URL are kept,
// and the displayName and rawURL arguments are ignored.
// Otherwise a fresh index is written.
//
// The URL must pass treesync.ParseRepositoryURL.
func Initialize(dir, displayName, rawURL string, overwrite bool, opts ...Option) (*Repository, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "making %s absolute", dir)
	}

	r, err := newRepository(root, opts)
	if err != nil {
		return nil, err
	}

	u, err := treesync.ParseRepositoryURL(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "initializing repository at %s", root)
	}

	if !isDir(root) {
		err = mkdirAll(root, 0755)
		if err != nil {
			return nil, errors.Wrapf(err, "creating repository dir %s", root)
		}
	}

	if CheckPresence(root, r.conf) && !overwrite {
		r.logger.Debug("adopting existing repository", "root", root)
		return Open(root, opts...)
	}

	r.url = u
	r.displayName = displayName

	err = mkdirAll(r.indexDir(), 0755)
	if err != nil {
		return nil, errors.Wrapf(err, "creating index dir %s", r.indexDir())
	}

	idx, err := r.index()
	if err != nil {
		return nil, err
	}
	err = metadata.WriteFile(r.indexFilePath(), idx)
	if err != nil {
		return nil, errors.Wrap(err, "writing repository index")
	}

	r.logger.Info("initialized repository", "root", root, "name", displayName, "url", rawURL)

	return r, nil
}

// Open opens the existing repository in dir,
// loading its index and its tree manifest.
// Loading the manifest lets the next Build rewrite only what changed
// since the last build by any process.
// If dir holds no repository,
// the error is treesync.ErrNotRepository.
func Open(dir string, opts ...Option) (*Repository, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "making %s absolute", dir)
	}

	r, err := newRepository(root, opts)
	if err != nil {
		return nil, err
	}

	if !CheckPresence(root, r.conf) {
		return nil, errors.Wrapf(treesync.ErrNotRepository, "opening %s", root)
	}

	var idx treesync.Index
	err = metadata.ReadFile(r.indexFilePath(), &idx)
	if err != nil {
		return nil, errors.Wrap(err, "reading repository index")
	}
	if idx.ConfigVersion > r.conf.Version {
		return nil, errors.Errorf("repository %s has config version %d, newer than %d", root, idx.ConfigVersion, r.conf.Version)
	}
	if idx.SyncSuffix != "" && idx.SyncSuffix != r.conf.SyncSuffix {
		return nil, errors.Errorf("repository %s uses sync suffix %q, config has %q", root, idx.SyncSuffix, r.conf.SyncSuffix)
	}

	r.url, err = treesync.ParseRepositoryURL(idx.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing stored URL of repository %s", root)
	}
	r.displayName = idx.DisplayName

	var tree treesync.Tree
	err = metadata.ReadFile(r.treeFilePath(), &tree)
	switch {
	case errors.Is(err, treesync.ErrNotAFile):
		// Never built.
	case err != nil:
		return nil, errors.Wrap(err, "reading tree manifest")
	default:
		r.checksums = tree.Clone()
	}

	return r, nil
}

// Root is the absolute path of the repository directory.
func (r *Repository) Root() string { return r.root }

// URL is the URL where consumers reach the repository.
func (r *Repository) URL() string { return r.url.String() }

// DisplayName is the repository's human-readable name.
func (r *Repository) DisplayName() string { return r.displayName }

// Config is the layout the repository uses.
func (r *Repository) Config() treesync.Config { return r.conf }

// Tree returns a copy of the tree manifest as of the last build.
func (r *Repository) Tree() treesync.Tree { return r.checksums.Clone() }

func (r *Repository) indexDir() string {
	return filepath.Join(r.root, r.conf.IndexDir)
}

func (r *Repository) indexFilePath() string {
	return filepath.Join(r.indexDir(), r.conf.IndexFile)
}

func (r *Repository) treeFilePath() string {
	return filepath.Join(r.indexDir(), r.conf.TreeFile)
}

func (r *Repository) index() (*treesync.Index, error) {
	indexRel, err := r.rel(r.indexFilePath())
	if err != nil {
		return nil, err
	}
	treeRel, err := r.rel(r.treeFilePath())
	if err != nil {
		return nil, err
	}
	return &treesync.Index{
		DisplayName:   r.displayName,
		URL:           r.url.String(),
		ConfigVersion: r.conf.Version,
		IndexFilePath: indexRel,
		TreeFilePath:  treeRel,
		SyncSuffix:    r.conf.SyncSuffix,
	}, nil
}

// rel turns an absolute path beneath the root into a manifest key.
func (r *Repository) rel(path string) (string, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return "", errors.Wrapf(err, "making %s relative to %s", path, r.root)
	}
	return filepath.ToSlash(rel), nil
}

// abs is the inverse of rel.
func (r *Repository) abs(key string) string {
	return filepath.Join(r.root, filepath.FromSlash(key))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

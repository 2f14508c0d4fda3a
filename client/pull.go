package client

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/metadata"
)

// Plan is what a pull would do, or did.
// Paths are tree manifest keys.
type Plan struct {
	// Index is the repository index.
	Index *treesync.Index

	// Tree is the repository's tree manifest.
	Tree treesync.Tree

	// Fetch lists files that are new or changed since the last pull.
	Fetch []string

	// Remove lists files that were tracked at the last pull and no longer are.
	Remove []string
}

// Plan compares the repository's tree manifest
// with the one recorded at the client's last pull.
func (c *Client) Plan(ctx context.Context) (*Plan, error) {
	idx, err := c.proxy.RepositoryIndex(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting repository index")
	}
	if idx.ConfigVersion > c.conf.Version {
		return nil, errors.Errorf("repository config version %d is newer than client's %d", idx.ConfigVersion, c.conf.Version)
	}
	if idx.SyncSuffix != "" && idx.SyncSuffix != c.conf.SyncSuffix {
		return nil, errors.Errorf("repository uses sync suffix %q, client expects %q", idx.SyncSuffix, c.conf.SyncSuffix)
	}

	remote, err := c.proxy.RepositoryTree(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting tree manifest")
	}

	local, err := c.LocalTree()
	if err != nil {
		return nil, err
	}

	plan := &Plan{Index: idx, Tree: remote}
	for _, name := range remote.Paths() {
		if sum, ok := local[name]; !ok || sum != remote[name] {
			plan.Fetch = append(plan.Fetch, name)
		}
	}
	for _, name := range local.Paths() {
		if _, ok := remote[name]; !ok {
			plan.Remove = append(plan.Remove, name)
		}
	}

	return plan, nil
}

// Pull brings the client up to date with its repository.
// It fetches the sync artifact of every file in the plan's Fetch list,
// storing each at the same relative location beneath the client root,
// deletes the artifacts of files in the Remove list,
// and records the repository's tree manifest as of this pull.
//
// Artifacts are fetched one at a time.
// If Pull fails partway,
// the recorded tree is left as it was
// and the next Pull starts over.
func (c *Client) Pull(ctx context.Context) (*Plan, error) {
	plan, err := c.Plan(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range plan.Fetch {
		dest, err := c.artifactPath(name)
		if err != nil {
			return plan, err
		}

		payload, err := c.proxy.SyncFile(ctx, name)
		if err != nil {
			return plan, errors.Wrapf(err, "fetching %s", name)
		}
		if want := plan.Tree[name]; uint64(payload) != want {
			return plan, errors.Errorf("sync file for %s has checksum %d, manifest says %d (repository changed during pull?)", name, payload, want)
		}

		err = metadata.WriteFile(dest, payload)
		if err != nil {
			return plan, errors.Wrapf(err, "storing sync file for %s", name)
		}
		c.logger.Debug("fetched", "name", name, "checksum", uint64(payload))
	}

	for _, name := range plan.Remove {
		dest, err := c.artifactPath(name)
		if err != nil {
			return plan, err
		}
		err = os.Remove(dest)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return plan, errors.Wrapf(err, "removing %s", dest)
		}
		c.logger.Debug("removed", "name", name)
	}

	err = metadata.WriteFile(c.treeFilePath(), plan.Tree)
	if err != nil {
		return plan, errors.Wrap(err, "recording pulled tree")
	}

	c.logger.Info("pulled",
		"remote", c.remote.String(),
		"fetched", len(plan.Fetch),
		"removed", len(plan.Remove),
	)

	return plan, nil
}

// LocalTree is the tree manifest recorded by the last successful Pull.
// Before the first pull it is empty.
func (c *Client) LocalTree() (treesync.Tree, error) {
	var tree treesync.Tree
	err := metadata.ReadFile(c.treeFilePath(), &tree)
	if errors.Is(err, treesync.ErrNotAFile) {
		return make(treesync.Tree), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading client tree")
	}
	if tree == nil {
		tree = make(treesync.Tree)
	}
	return tree, nil
}

// artifactPath is where the client keeps the sync artifact for name.
func (c *Client) artifactPath(name string) (string, error) {
	clean := path.Clean(name)
	if name == "" || path.IsAbs(name) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.Errorf("file name %q escapes the client dir", name)
	}
	if clean == c.conf.IndexDir || strings.HasPrefix(clean, c.conf.IndexDir+"/") {
		return "", errors.Errorf("file name %q is inside the index dir", name)
	}
	return filepath.Join(c.root, filepath.FromSlash(clean)) + c.conf.SyncSuffix, nil
}

package repo

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/files"
	"github.com/bobg/treesync/metadata"
)

// BuildResult reports what a call to Build did.
// Paths are slash-separated and relative to the repository root.
type BuildResult struct {
	// Updated lists the files that were new or whose checksum changed.
	// Each got a fresh sync artifact.
	Updated []string

	// Pruned lists the manifest entries dropped because their file no longer exists.
	Pruned []string

	// Orphans lists the sync artifacts deleted because their source file no longer exists.
	Orphans []string
}

// Build brings the repository's metadata up to date with its files.
// It runs these steps in order:
//
//   1. Prune: drop manifest entries for files that no longer exist.
//   2. Detect: checksum every tracked file
//      (everything outside the index dir not ending in the sync suffix)
//      and find those that are new or changed.
//   3. Apply: record the new checksums and write a sync artifact for each updated file.
//   4. Publish: write the index and the tree manifest.
//   5. Sweep: delete sync artifacts whose source file no longer exists.
//
// Nothing is rolled back if a step fails.
// A failed Build may leave the tree manifest stale relative to the artifacts,
// and calling Build again reconverges.
// A second Build with no intervening file changes rewrites no artifacts
// and writes byte-identical index and manifest files.
func (r *Repository) Build(ctx context.Context) (*BuildResult, error) {
	res := new(BuildResult)

	tree, pruned := r.prune(r.checksums)
	res.Pruned = pruned

	updated, err := r.detect(ctx, tree)
	if err != nil {
		r.checksums = tree
		return res, errors.Wrap(err, "detecting updated files")
	}

	tree, res.Updated, err = r.apply(tree, updated)
	r.checksums = tree
	if err != nil {
		return res, errors.Wrap(err, "writing sync artifacts")
	}

	err = r.publish(tree)
	if err != nil {
		return res, errors.Wrap(err, "publishing repository metadata")
	}

	res.Orphans, err = r.sweep()
	if err != nil {
		return res, errors.Wrap(err, "removing orphaned sync artifacts")
	}

	r.logger.Info("built repository",
		"root", r.root,
		"tracked", len(tree),
		"updated", len(res.Updated),
		"pruned", len(res.Pruned),
		"orphans", len(res.Orphans),
	)

	return res, nil
}

// prune returns a copy of tree without entries for files that no longer exist,
// plus the keys of the dropped entries.
func (r *Repository) prune(tree treesync.Tree) (treesync.Tree, []string) {
	var (
		out    = make(treesync.Tree, len(tree))
		pruned []string
	)
	for key, sum := range tree {
		if files.IsFile(r.abs(key)) {
			out[key] = sum
			continue
		}
		r.logger.Debug("pruning manifest entry", "path", key)
		pruned = append(pruned, key)
	}
	return out, sorted(pruned)
}

// detect returns the checksums of the tracked files that are absent from tree
// or whose checksum differs from the one in tree.
func (r *Repository) detect(ctx context.Context, tree treesync.Tree) (treesync.Tree, error) {
	updated := make(treesync.Tree)

	err := files.Walk(r.root, []string{r.conf.IndexDir}, []string{r.conf.SyncSuffix}, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		key, err := r.rel(path)
		if err != nil {
			return err
		}
		sum, err := files.Checksum(path)
		if err != nil {
			return errors.Wrapf(err, "computing checksum of %s", path)
		}
		if old, ok := tree[key]; !ok || old != uint64(sum) {
			updated[key] = uint64(sum)
		}
		return nil
	})

	return updated, err
}

// apply records each updated checksum in a copy of tree
// and writes the corresponding sync artifact.
// On error the returned tree reflects the artifacts written so far.
func (r *Repository) apply(tree, updated treesync.Tree) (treesync.Tree, []string, error) {
	out := tree.Clone()
	keys := updated.Paths()
	for i, key := range keys {
		sum := updated[key]
		out[key] = sum

		artifact := r.abs(key) + r.conf.SyncSuffix
		err := metadata.WriteFile(artifact, treesync.SyncPayload(sum))
		if err != nil {
			return out, keys[:i], errors.Wrapf(err, "writing sync artifact for %s", key)
		}
		r.logger.Debug("wrote sync artifact", "path", key, "checksum", sum)
	}
	return out, keys, nil
}

func (r *Repository) publish(tree treesync.Tree) error {
	idx, err := r.index()
	if err != nil {
		return err
	}
	err = metadata.WriteFile(r.indexFilePath(), idx)
	if err != nil {
		return errors.Wrap(err, "writing repository index")
	}
	err = metadata.WriteFile(r.treeFilePath(), tree)
	return errors.Wrap(err, "writing tree manifest")
}

// sweep deletes every sync artifact outside the index dir whose source file is gone.
func (r *Repository) sweep() ([]string, error) {
	var orphans []string

	err := files.Walk(r.root, []string{r.conf.IndexDir}, nil, func(path string) error {
		if !strings.HasSuffix(path, r.conf.SyncSuffix) {
			return nil
		}
		source := strings.TrimSuffix(path, r.conf.SyncSuffix)
		if files.IsFile(source) {
			return nil
		}

		err := os.Remove(path)
		if err != nil {
			return errors.Wrapf(err, "removing %s", path)
		}

		key, err := r.rel(source)
		if err != nil {
			return err
		}
		r.logger.Debug("removed orphaned sync artifact", "path", key)
		orphans = append(orphans, key)
		return nil
	})

	return sorted(orphans), err
}

func sorted(keys []string) []string {
	sort.Strings(keys)
	return keys
}

// Package files computes change-detection checksums
// and enumerates the files of a tree.
package files

import (
	"hash/adler32"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Checksum computes the Adler-32 checksum of the whole content of the file at path.
// It is meant for detecting changes, not for integrity or security.
func Checksum(path string) (uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", path)
	}
	return ChecksumBytes(b), nil
}

// ChecksumBytes computes the Adler-32 checksum of b.
func ChecksumBytes(b []byte) uint32 {
	return adler32.Checksum(b)
}

// Walk calls f with the absolute path of every regular file in the tree rooted at root.
// A symlink counts as a file when it resolves to a regular file,
// and is visited by its own path.
// Symlinks to directories are not followed,
// and dangling symlinks are skipped.
//
// A directory is skipped, along with everything beneath it,
// if any of excludedDirs appears anywhere in its path relative to root
// (see ExcludedDir).
// A file is skipped if its name ends with any of excludedSuffixes.
//
// Files are visited in lexical order within each directory,
// but callers should not depend on that.
// If f returns an error,
// Walk exits with that error.
func Walk(root string, excludedDirs, excludedSuffixes []string, f func(string) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrapf(err, "making %s absolute", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walking %s", path)
		}
		if d.IsDir() {
			if ExcludedDir(strings.TrimPrefix(path, root), excludedDirs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsFile(path) {
			return nil
		}
		name := d.Name()
		for _, suffix := range excludedSuffixes {
			if suffix != "" && strings.HasSuffix(name, suffix) {
				return nil
			}
		}
		return f(path)
	})
}

// ExcludedDir tells whether the directory at rel,
// a path relative to the root of a walk,
// is excluded by any of the tokens in excludedDirs.
// A token excludes every directory whose relative path contains it.
func ExcludedDir(rel string, excludedDirs []string) bool {
	for _, ex := range excludedDirs {
		if ex != "" && strings.Contains(rel, ex) {
			return true
		}
	}
	return false
}

// IsFile tells whether path is a regular file or a symlink resolving to one.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// List returns the absolute paths of the files Walk would visit.
func List(root string, excludedDirs, excludedSuffixes []string) ([]string, error) {
	var out []string
	err := Walk(root, excludedDirs, excludedSuffixes, func(path string) error {
		out = append(out, path)
		return nil
	})
	return out, err
}

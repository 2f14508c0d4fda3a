// Package treesync publishes a tree of files
// and lets clients pull only what changed.
//
// A publisher turns a directory into a _repository_
// (see the repo subpackage).
// Each build of the repository computes a cheap whole-file checksum for every file,
// compares it against the checksum recorded in the repository’s _tree manifest_,
// and rewrites the per-file _sync artifact_
// (a small record stored next to the file, named with a special suffix)
// only for files that are new or whose checksum changed.
// Artifacts whose source file has vanished are removed,
// and so are manifest entries for files that no longer exist.
//
// A consumer reaches a repository through a _proxy_
// (see the proxy subpackage),
// which offers the same three resources:
// the repository index,
// the tree manifest,
// and individual sync artifacts,
// whether the repository lives on a local filesystem (a file:// URL)
// or behind a web server (an http:// or https:// URL).
//
// Every on-disk and over-the-wire record is encoded with the metadata subpackage.
//
// Checksums are for change detection only.
// They are not a security or integrity mechanism.
package treesync

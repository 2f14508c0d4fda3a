package treesync

import "sort"

type (
	// Index describes a repository:
	// its identity,
	// the configuration version that produced it,
	// and where its other records live.
	Index struct {
		DisplayName   string `cbor:"display_name"`
		URL           string `cbor:"url"`
		ConfigVersion int    `cbor:"config_version"`
		IndexFilePath string `cbor:"index_file_path"`
		TreeFilePath  string `cbor:"tree_file_path"`
		SyncSuffix    string `cbor:"sync_file_suffix"`
	}

	// Tree is a tree manifest.
	// It maps a tracked file's path,
	// relative to the repository root and slash-separated,
	// to its last-known whole-file checksum.
	Tree map[string]uint64

	// SyncPayload is the content of a sync artifact.
	// At present it is just the checksum of the tracked file.
	SyncPayload uint64

	// ClientIndex is the record a client keeps about the repository it pulls from.
	ClientIndex struct {
		RemoteURL     string `cbor:"remote_url"`
		ConfigVersion int    `cbor:"config_version"`
	}
)

// Paths returns the paths in t in lexicographic order.
func (t Tree) Paths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a copy of t.
// The copy of a nil Tree is an empty, non-nil Tree.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

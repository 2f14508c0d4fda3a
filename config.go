package treesync

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the names and version that determine a repository's on-disk layout.
// Repositories and clients take a Config rather than consulting globals,
// so that instances with different layouts can coexist.
type Config struct {
	// IndexDir is the name of the metadata subdirectory beneath a repository or client root.
	IndexDir string `json:"index_dir"`

	// IndexFile is the name of the repository index file within IndexDir.
	IndexFile string `json:"index_file"`

	// TreeFile is the name of the tree manifest file within IndexDir.
	TreeFile string `json:"tree_file"`

	// ClientIndexFile is the name of the client index file within a client's IndexDir.
	ClientIndexFile string `json:"client_index_file"`

	// ClientTreeFile is the name of the file, within a client's IndexDir,
	// recording the tree manifest as of the client's last pull.
	ClientTreeFile string `json:"client_tree_file"`

	// SyncSuffix is appended to a tracked file's path to name its sync artifact.
	SyncSuffix string `json:"sync_suffix"`

	// Version is the configuration-schema version written into index records.
	Version int `json:"version"`
}

// DefaultConfig returns the standard layout.
func DefaultConfig() Config {
	return Config{
		IndexDir:        ".treesync",
		IndexFile:       "index",
		TreeFile:        "tree",
		ClientIndexFile: "client",
		ClientTreeFile:  "client-tree",
		SyncSuffix:      ".tsync",
		Version:         1,
	}
}

// Validate reports whether c describes a usable layout.
func (c Config) Validate() error {
	names := []struct{ field, val string }{
		{"index_dir", c.IndexDir},
		{"index_file", c.IndexFile},
		{"tree_file", c.TreeFile},
		{"client_index_file", c.ClientIndexFile},
		{"client_tree_file", c.ClientTreeFile},
	}
	for _, n := range names {
		if n.val == "" {
			return errors.Errorf("config: %s is empty", n.field)
		}
		if strings.ContainsAny(n.val, `/\`) {
			return errors.Errorf("config: %s %q contains a path separator", n.field, n.val)
		}
	}
	if !strings.HasPrefix(c.SyncSuffix, ".") || len(c.SyncSuffix) < 2 {
		return errors.Errorf("config: sync_suffix %q must be a dot followed by at least one character", c.SyncSuffix)
	}
	if c.Version <= 0 {
		return errors.Errorf("config: version %d must be positive", c.Version)
	}
	return nil
}

// LoadConfig reads a JSON config file.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(filename string) (Config, error) {
	conf := DefaultConfig()

	f, err := os.Open(filename)
	if err != nil {
		return conf, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	err = dec.Decode(&conf)
	if err != nil {
		return conf, errors.Wrapf(err, "decoding config file %s", filename)
	}

	return conf, errors.Wrapf(conf.Validate(), "validating config file %s", filename)
}

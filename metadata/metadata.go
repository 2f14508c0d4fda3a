// Package metadata encodes and persists treesync records.
//
// Records are encoded as CBOR using Core Deterministic Encoding
// (sorted map keys, shortest integer forms, no indefinite lengths),
// so the same logical record always produces the same bytes.
// A build that changes nothing therefore rewrites identical files.
package metadata

import (
	"io/fs"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/bobg/treesync"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("metadata: building CBOR encoder: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Records only ever use string keys.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("metadata: building CBOR decoder: " + err.Error())
	}
}

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// WriteFile encodes v and writes it to the file at path,
// creating any missing parent directories.
func WriteFile(path string, v any) error {
	b, err := Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding record for %s", path)
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	err = os.WriteFile(path, b, 0644)
	return errors.Wrapf(err, "writing %s", path)
}

// ReadFile reads the file at path and decodes it into v.
// If path does not name a regular file,
// the error is treesync.ErrNotAFile.
func ReadFile(path string, v any) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(treesync.ErrNotAFile, "reading %s", path)
	}
	if err != nil {
		return errors.Wrapf(err, "statting %s", path)
	}
	if !info.Mode().IsRegular() {
		return errors.Wrapf(treesync.ErrNotAFile, "reading %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	return errors.Wrapf(Unmarshal(b, v), "decoding %s", path)
}

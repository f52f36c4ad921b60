package cunit

import (
	"fmt"
	"github.com/ZenLiuCN/fn"
	"io"
	"os"
	"path/filepath"
)

// Resolver maps identifiers onto artifact paths.
type Resolver struct {
	Bootstrap  string //identifier with the search path fallback
	SearchPath string //filepath.ListSeparator delimited
}

// Resolve returns the path to read for id.
//
// The id itself is the path. Only the bootstrap id, when missing, is searched in every
// SearchPath entry in order, first match wins. Without a match the id is returned unchanged
// and the read reports the failure.
func (r Resolver) Resolve(id string) string {
	if exists(id) || id != r.Bootstrap {
		return id
	}
	for _, dir := range filepath.SplitList(r.SearchPath) {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, id)
		if exists(p) {
			return p
		}
	}
	return id
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ReadArtifact reads the whole artifact at path, short reads are failures.
func ReadArtifact(path string) (raw []byte, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return
	}
	defer fn.IgnoreClose(f)
	var si os.FileInfo
	if si, err = f.Stat(); err != nil {
		return
	}
	if si.IsDir() {
		return nil, fmt.Errorf("read %s: is a directory", path)
	}
	raw = make([]byte, si.Size())
	if _, err = io.ReadFull(f, raw); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return
}

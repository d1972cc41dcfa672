package server

import (
	"net/http"
	"os"
	"path"
	"strings"
)

// publicFS serves the public directory without listings or hidden files.
// A directory is only reachable when it has an index.html, and any path
// segment starting with "." is reported as missing.
type publicFS struct {
	root http.FileSystem
}

func newPublicFS(dir string) publicFS {
	return publicFS{root: http.Dir(dir)}
}

func (fsys publicFS) Open(name string) (http.File, error) {
	if hasHiddenSegment(name) {
		return nil, os.ErrNotExist
	}

	f, err := fsys.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := fsys.root.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	_ = index.Close()
	return f, nil
}

func hasHiddenSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

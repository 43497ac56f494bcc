// Package fileutil writes files that only the current user may read:
// session tokens and downloaded partner attachments.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	privateFile os.FileMode = 0600
	privateDir  os.FileMode = 0700
)

// MkdirPrivate creates dir and any missing parents with owner-only access.
func MkdirPrivate(dir string) error {
	created := missingDirs(dir)
	if err := os.MkdirAll(dir, privateDir); err != nil {
		return err
	}
	for _, d := range created {
		restrict(d)
	}
	return nil
}

// WritePrivate writes data to path atomically (temp file + rename) with
// owner-only access.
func WritePrivate(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	restrict(tmpName)

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return fmt.Errorf("write %s: %w", path, werr)
		}
		return fmt.Errorf("close %s: %w", path, cerr)
	}
	if err := os.Chmod(tmpName, privateFile); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CreatePrivate creates path exclusively with owner-only access. It fails
// if path already exists.
func CreatePrivate(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, privateFile)
	if err != nil {
		return nil, err
	}
	restrict(path)
	return f, nil
}

// missingDirs lists dir and each parent that does not exist yet, leaf first.
func missingDirs(dir string) []string {
	var out []string
	p := filepath.Clean(dir)
	for p != "" && p != "." && p != string(filepath.Separator) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		out = append(out, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	return out
}

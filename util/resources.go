// util/resources.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// FindDataDir locates the application's data directory by checking the
// given directory (the working directory if empty) and up to two of its
// parents for a "data" directory that contains a "fonts" subdirectory.
func FindDataDir(start string) (string, error) {
	dir := start
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}

	for range 3 {
		candidate := filepath.Join(dir, "data")
		if _, err := os.Stat(filepath.Join(candidate, "fonts")); err == nil {
			return candidate, nil
		}
		dir = filepath.Join(dir, "..")
	}
	return "", errors.New("unable to find data directory")
}

// ReadFile returns the contents of the given file; if it's zstd
// compressed, it is decompressed transparently.
func ReadFile(fsys fs.FS, name string) ([]byte, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if path.Ext(name) != ".zst" {
		return b, nil
	}

	zr, err := zstd.NewReader(bytes.NewReader(b), zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	d, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// FindFile returns the path of the first file dir/name+ext that exists,
// trying the extensions in order. The error wraps fs.ErrNotExist if none
// is found.
func FindFile(fsys fs.FS, dir, name string, exts []string) (string, error) {
	for _, ext := range exts {
		p := path.Join(dir, name+ext)
		if st, err := fs.Stat(fsys, p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: no file with extension %s in %q: %w", name,
		strings.Join(exts, "/"), dir, fs.ErrNotExist)
}

// ModTime returns the modification time of the given file.
func ModTime(fsys fs.FS, name string) (time.Time, error) {
	st, err := fs.Stat(fsys, name)
	if err != nil {
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

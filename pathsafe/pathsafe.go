// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pathsafe validates and normalizes the relative paths found in
// untrusted archives and profile entries (C2). Archives and manifests are
// untrusted inputs; a lenient ".." resolution would let a crafted archive
// escape the store by chaining components, so normalization never "pops"
// a directory for a ".." component the way path/filepath.Clean does -- it
// rejects the component outright.
package pathsafe

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/AtlasLinux/pandora/errors"
)

// maxPathLen bounds the normalized path length. It mirrors the common
// PATH_MAX of 4096 bytes; there is no portable syscall constant for it.
const maxPathLen = 4096

// Normalize validates raw as a slash-separated relative path and returns
// its canonical form: no leading slash, no repeated slashes, no trailing
// slash, no "." or empty components, and no ".." components at all.
func Normalize(raw string) (string, error) {
	const op = "pathsafe.Normalize"
	if raw == "" {
		return "", errors.E(op, errors.InvalidInput, errors.Errorf("empty path"))
	}
	if strings.HasPrefix(raw, "/") {
		return "", errors.E(op, errors.InvalidInput, errors.Path(raw), errors.Errorf("absolute path"))
	}
	if strings.IndexByte(raw, 0) >= 0 {
		return "", errors.E(op, errors.InvalidInput, errors.Path(raw), errors.Errorf("NUL byte in path"))
	}
	if len(raw) >= maxPathLen {
		return "", errors.E(op, errors.InvalidInput, errors.Path(raw), errors.Errorf("path too long"))
	}

	var parts []string
	for _, comp := range strings.Split(raw, "/") {
		switch comp {
		case "", ".":
			continue // Dropped silently.
		case "..":
			return "", errors.E(op, errors.InvalidInput, errors.Path(raw), errors.Errorf("path traversal component %q", ".."))
		default:
			parts = append(parts, comp)
		}
	}
	if len(parts) == 0 {
		return "", errors.E(op, errors.InvalidInput, errors.Path(raw), errors.Errorf("path has no components"))
	}
	clean := strings.Join(parts, "/")
	if len(clean) >= maxPathLen {
		return "", errors.E(op, errors.InvalidInput, errors.Path(raw), errors.Errorf("path too long"))
	}
	return clean, nil
}

// ValidateTree walks root without following symlinks and rejects the tree
// if any encountered path contains a ".." component relative to root, or
// any symlink has an absolute target, or a target containing "..". A
// successful return means the tree is safe to rename into the store.
func ValidateTree(root string) error {
	const op = "pathsafe.ValidateTree"
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.E(op, errors.Path(path), errors.Internal, err)
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.E(op, errors.Path(path), errors.Internal, err)
		}
		rel = filepath.ToSlash(rel)
		if _, nerr := Normalize(rel); nerr != nil {
			return errors.E(op, errors.UnsafeArchive, errors.Path(rel), nerr)
		}
		if d.Type()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return errors.E(op, errors.Path(path), errors.Internal, err)
			}
			if filepath.IsAbs(target) {
				return errors.E(op, errors.UnsafeArchive, errors.Path(rel), errors.Errorf("absolute symlink target %q", target))
			}
			for _, comp := range strings.Split(filepath.ToSlash(target), "/") {
				if comp == ".." {
					return errors.E(op, errors.UnsafeArchive, errors.Path(rel), errors.Errorf("symlink target %q escapes tree", target))
				}
			}
		}
		return nil
	})
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package profile assembles a symlink forest in a fresh temp directory
// (C7): the set of packages exposed to the user as one atomically
// swappable unit. Assemble never touches the live profile; the caller
// decides whether to activate or discard the result.
package profile

import (
	"os"
	"path/filepath"

	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/pathsafe"
)

// Entry is one member of a profile: the relative path it should appear
// at, the absolute path of what it should point to, and the package
// that contributed it (used only for conflict diagnostics).
type Entry struct {
	RelPath    string
	TargetPath string
	PkgName    string
	PkgVersion string
}

// Assemble builds a new profile directory under root/.tmp-profile-* from
// entries, in order, and returns its path on success. On any failure the
// partial temp directory is removed before returning. The caller owns
// the returned directory and must either pass it to activate.Activate or
// remove it.
func Assemble(root string, entries []Entry) (string, error) {
	const op = "profile.Assemble"

	if err := os.MkdirAll(root, 0755); err != nil {
		return "", errors.E(op, errors.Internal, err)
	}
	tmp, err := os.MkdirTemp(root, ".tmp-profile-*")
	if err != nil {
		return "", errors.E(op, errors.Internal, err)
	}
	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(tmp)
		}
	}()

	owners := make(map[string]Entry) // normalized relpath -> owning entry
	for _, e := range entries {
		rel, err := pathsafe.Normalize(e.RelPath)
		if err != nil {
			return "", errors.E(op, errors.PkgName(e.PkgName), errors.PkgVersion(e.PkgVersion), errors.InvalidInput, err)
		}
		if _, err := os.Lstat(e.TargetPath); err != nil {
			return "", errors.E(op, errors.PkgName(e.PkgName), errors.PkgVersion(e.PkgVersion), errors.ProfileMissingTarget,
				errors.Errorf("target %q does not exist", e.TargetPath))
		}
		if owner, dup := owners[rel]; dup {
			return "", errors.E(op, errors.ProfileConflict, errors.Errorf(
				"%q claimed by both %s@%s and %s@%s", rel, owner.PkgName, owner.PkgVersion, e.PkgName, e.PkgVersion))
		}
		owners[rel] = e

		linkPath := filepath.Join(tmp, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
			return "", errors.E(op, errors.Internal, err)
		}
		if fi, err := os.Lstat(linkPath); err == nil {
			if fi.IsDir() {
				return "", errors.E(op, errors.ProfileConflict, errors.Errorf("%q already exists as a directory in the profile", rel))
			}
			if err := os.Remove(linkPath); err != nil {
				return "", errors.E(op, errors.Internal, err)
			}
		}
		if err := os.Symlink(e.TargetPath, linkPath); err != nil {
			return "", errors.E(op, errors.Internal, err)
		}
	}

	ok = true
	return tmp, nil
}

// List enumerates the symlink entries of an already-assembled or
// already-activated profile directory, returning each relative path and
// the (possibly dangling) target it points to.
func List(profileDir string) (map[string]string, error) {
	const op = "profile.List"
	result := make(map[string]string)
	err := filepath.WalkDir(profileDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.E(op, errors.Internal, err)
		}
		if path == profileDir || d.IsDir() {
			return nil
		}
		if d.Type()&os.ModeSymlink == 0 {
			return nil
		}
		rel, err := filepath.Rel(profileDir, path)
		if err != nil {
			return errors.E(op, errors.Internal, err)
		}
		target, err := os.Readlink(path)
		if err != nil {
			return errors.E(op, errors.Internal, err)
		}
		result[filepath.ToSlash(rel)] = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements the content-addressed package store (C6): an
// immutable directory per (name, version), published by a single atomic
// rename once its contents have been unpacked and path-validated.
package store

import (
	"os"
	"path/filepath"

	"github.com/AtlasLinux/pandora/archive"
	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/hash"
	"github.com/AtlasLinux/pandora/pathsafe"
)

// digestFileName records the digest asserted for a published entry, so a
// later idempotent-reinstall attempt can compare against it without
// rehashing the whole tree.
const digestFileName = ".digest"

// Import unpacks pkgFile (an archive produced by archive.Pack) under
// root/<name>/<version>/files and publishes it with a single rename,
// exactly as §4.6 describes. The caller must hold the whole-program
// lock for the entirety of this call.
func Import(root, pkgFile, name, version string, expected hash.Digest) (string, error) {
	const op = "store.Import"

	if name == "" || version == "" {
		return "", errors.E(op, errors.InvalidInput, errors.Errorf("empty name or version"))
	}

	finalDir := filepath.Join(root, name, version)
	if fi, err := os.Stat(finalDir); err == nil && fi.IsDir() {
		existing, err := readDigest(finalDir)
		if err != nil {
			return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.Internal, err)
		}
		if hash.Equal(existing, expected) {
			return finalDir, nil // Idempotent reinstall.
		}
		return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.StoreConflict,
			errors.Errorf("version already present with digest %s, wanted %s", existing, expected))
	}

	tmpRoot, err := os.MkdirTemp(root, ".tmp-import-*")
	if err != nil {
		return "", errors.E(op, errors.Internal, err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(tmpRoot)
		}
	}()

	tmpEntry := filepath.Join(tmpRoot, name, version)
	filesDir := filepath.Join(tmpEntry, "files")
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return "", errors.E(op, errors.Internal, err)
	}

	f, err := os.Open(pkgFile)
	if err != nil {
		return "", errors.E(op, errors.Path(pkgFile), errors.Internal, err)
	}
	unpackErr := archive.Unpack(f, filesDir)
	f.Close()
	if unpackErr != nil {
		return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), unpackErr)
	}

	if err := pathsafe.ValidateTree(filesDir); err != nil {
		return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.UnsafeArchive, err)
	}

	if err := writeDigest(tmpEntry, expected); err != nil {
		return "", errors.E(op, errors.Internal, err)
	}

	nameDir := filepath.Join(root, name)
	if err := os.MkdirAll(nameDir, 0755); err != nil {
		return "", errors.E(op, errors.Internal, err)
	}

	if fi, err := os.Stat(finalDir); err == nil && fi.IsDir() {
		// Lost a race with a concurrent importer between the check
		// above and here; defer to the same idempotent-reinstall rule.
		existing, err := readDigest(finalDir)
		if err != nil {
			return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.Internal, err)
		}
		if hash.Equal(existing, expected) {
			return finalDir, nil
		}
		return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.StoreConflict,
			errors.Errorf("version already present with digest %s, wanted %s", existing, expected))
	}

	if err := os.Rename(tmpEntry, finalDir); err != nil {
		return "", errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.Internal, err)
	}
	cleanup = false
	os.RemoveAll(tmpRoot) // Best-effort; tmpRoot/name is now empty after the rename.

	return finalDir, nil
}

func writeDigest(entryDir string, d hash.Digest) error {
	return os.WriteFile(filepath.Join(entryDir, digestFileName), []byte(d.String()), 0644)
}

func readDigest(entryDir string) (hash.Digest, error) {
	data, err := os.ReadFile(filepath.Join(entryDir, digestFileName))
	if err != nil {
		return hash.ZeroDigest, err
	}
	return hash.FromHex(string(data))
}

// Entry names one published (name, version) pair.
type Entry struct {
	Name    string
	Version string
}

// List enumerates every published entry under root. It takes no lock:
// renames are atomic, so a concurrent Import can only ever add an entry
// that appears fully formed or not at all.
func List(root string) ([]Entry, error) {
	const op = "store.List"
	names, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.E(op, errors.Internal, err)
	}
	var entries []Entry
	for _, n := range names {
		if !n.IsDir() || isTmpDir(n.Name()) {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(root, n.Name()))
		if err != nil {
			return nil, errors.E(op, errors.Internal, err)
		}
		for _, v := range versions {
			if !v.IsDir() {
				continue
			}
			entries = append(entries, Entry{Name: n.Name(), Version: v.Name()})
		}
	}
	return entries, nil
}

func isTmpDir(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout owns the pandora root: discovering it, bootstrapping
// its required subdirectories, serializing mutating operations through
// a whole-program advisory lock, and sweeping leftover temp state on
// startup (C9).
package layout

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/log"
)

const lockFileName = ".lock"

// requiredDirs are created, idempotently, by Init.
var requiredDirs = []string{"store", "profiles", "manifests", "cache", "tmp"}

// Root resolves the pandora root directory: $PANDORA_HOME if non-empty,
// else $HOME/pandora. A missing $HOME with no $PANDORA_HOME override is
// a fatal configuration error.
func Root() (string, error) {
	const op = "layout.Root"
	if home := os.Getenv("PANDORA_HOME"); home != "" {
		return home, nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", errors.E(op, errors.ConfigMissing, errors.Errorf("neither PANDORA_HOME nor HOME is set"))
	}
	return filepath.Join(home, "pandora"), nil
}

// Init idempotently ensures root and its required subdirectories exist.
// If seedVir is true, it also seeds vir/bin and vir/lib placeholder
// directories for a brand-new root (so $PATH-style setup can point at
// them before any package is ever installed).
func Init(root string, seedVir bool) error {
	const op = "layout.Init"
	if err := os.MkdirAll(root, 0755); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	for _, d := range requiredDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			return errors.E(op, errors.Internal, err)
		}
	}
	if seedVir {
		virPath := filepath.Join(root, "vir")
		if _, err := os.Lstat(virPath); os.IsNotExist(err) {
			placeholder := filepath.Join(root, "profiles", "empty")
			if err := os.MkdirAll(filepath.Join(placeholder, "bin"), 0755); err != nil {
				return errors.E(op, errors.Internal, err)
			}
			if err := os.MkdirAll(filepath.Join(placeholder, "lib"), 0755); err != nil {
				return errors.E(op, errors.Internal, err)
			}
			if err := os.Symlink(placeholder, virPath); err != nil {
				return errors.E(op, errors.Internal, err)
			}
		}
	}
	return nil
}

// Lock acquires the whole-program advisory lock at root/.lock, blocking
// until it is available. The caller must Unlock the returned handle
// when the mutating operation is complete.
func Lock(root string) (*flock.Flock, error) {
	const op = "layout.Lock"
	fl := flock.New(filepath.Join(root, lockFileName))
	if err := fl.Lock(); err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}
	return fl, nil
}

// Recover sweeps leftover temp state from an interrupted prior run:
// store/.tmp-import-*, profiles/.tmp-profile-*, and a vir-new symlink
// whose target no longer exists. It must be called with the lock held.
func Recover(root string) error {
	const op = "layout.Recover"

	if err := sweepTmpDirs(filepath.Join(root, "store"), ".tmp-import-"); err != nil {
		return errors.E(op, err)
	}
	if err := sweepTmpDirs(filepath.Join(root, "profiles"), ".tmp-profile-"); err != nil {
		return errors.E(op, err)
	}

	virNew := filepath.Join(root, "vir-new")
	target, err := os.Readlink(virNew)
	if err == nil {
		if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
			log.Info.Printf("layout.Recover: removing orphan vir-new -> %s", target)
			os.Remove(virNew)
		}
	}
	return nil
}

func sweepTmpDirs(dir, prefix string) error {
	const op = "layout.sweepTmpDirs"
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.E(op, errors.Internal, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			log.Info.Printf("layout.Recover: removing leftover %s", e.Name())
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				return errors.E(op, errors.Path(e.Name()), errors.Internal, err)
			}
		}
	}
	return nil
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AtlasLinux/pandora/activate"
	"github.com/AtlasLinux/pandora/archive"
	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/flags"
	"github.com/AtlasLinux/pandora/profile"
	"github.com/AtlasLinux/pandora/registry"
	"github.com/AtlasLinux/pandora/store"
)

// install resolves the transitive dependency closure of the named
// package, fetches and verifies each member against its manifest
// digest, imports each into the store, assembles a profile exposing
// all of them, and (unless -no-activate) activates it:
// install <name>@<version> -index=<url> [-no-activate] [-profile=<name>] [-y].
func (s *State) install(args ...string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	s.ParseFlags(fs, args, "install fetches, verifies, stores, and activates a package and its dependencies.",
		"install <name>@<version> -index=<url> [-no-activate] [-profile=<name>] [-y]")
	if fs.NArg() != 1 {
		fs.Usage()
	}
	name, version, err := parsePkgArg(fs.Arg(0))
	if err != nil {
		s.Exit(err)
	}
	if flags.Index == "" {
		s.Exitf("-index is required")
	}
	if !s.confirm(fmt.Sprintf("install %s@%s?", name, version)) {
		fmt.Fprintln(s.Stdout, "aborted")
		return
	}

	s.withLock(func(root string) {
		tmpDir := filepath.Join(root, "tmp")
		storeRoot := filepath.Join(root, "store")
		profilesRoot := filepath.Join(root, "profiles")

		client := registry.New(tmpDir)
		client.SetIndex(flags.Index)

		index, err := client.FetchIndex(ctx())
		if err != nil {
			s.Exit(err)
		}
		order, err := registry.ResolveClosure(ctx(), client, index,
			[]registry.Dependency{{Name: name, Version: version}})
		if err != nil {
			s.Exit(err)
		}

		var entries []profile.Entry
		for _, m := range order {
			pkgURL, err := packageURL(index, m, m.Name, m.Version)
			if err != nil {
				s.Exit(err)
			}
			pkgPath, digest, err := fetchAndVerify(tmpDir, pkgURL, m.SHA256)
			if err != nil {
				s.Exit(err)
			}
			storePath, err := store.Import(storeRoot, pkgPath, m.Name, m.Version, digest)
			os.Remove(pkgPath)
			if err != nil {
				s.Exit(err)
			}
			pkgEntries, err := entriesForPackage(storePath, m.Name, m.Version)
			if err != nil {
				s.Exit(err)
			}
			entries = append(entries, pkgEntries...)
			fmt.Fprintf(s.Stdout, "stored %s@%s\n", m.Name, m.Version)
		}

		tmpProfile, err := profile.Assemble(profilesRoot, entries)
		if err != nil {
			s.Exit(err)
		}
		if flags.NoActivate {
			fmt.Fprintf(s.Stdout, "profile staged at %s (not activated)\n", tmpProfile)
			return
		}
		finalPath, err := activate.Activate(root, tmpProfile, flags.Profile)
		if err != nil {
			s.Exit(err)
		}
		fmt.Fprintf(s.Stdout, "activated profile %s\n", finalPath)
	})
}

// entriesForPackage walks a published store entry's files/ tree and
// produces one profile entry per regular file or symlink found, with
// its path relative to files/ mirrored as the profile relpath.
func entriesForPackage(storePath, name, version string) ([]profile.Entry, error) {
	const op = "main.entriesForPackage"
	filesDir := filepath.Join(storePath, "files")
	var entries []profile.Entry
	err := filepath.WalkDir(filesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(filesDir, path)
		if err != nil {
			return err
		}
		if rel == archive.ManifestName {
			return nil
		}
		entries = append(entries, profile.Entry{
			RelPath:    filepath.ToSlash(rel),
			TargetPath: path,
			PkgName:    name,
			PkgVersion: version,
		})
		return nil
	})
	if err != nil {
		return nil, errors.E(op, errors.PkgName(name), errors.PkgVersion(version), errors.Internal, err)
	}
	return entries, nil
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/AtlasLinux/pandora/flags"
	"github.com/AtlasLinux/pandora/registry"
)

// fetch downloads and verifies a single package archive against its
// manifest digest, without storing or activating it: fetch <name>
// <version>. Fetch and hash are lock-free (§4.9).
func (s *State) fetch(args ...string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	s.ParseFlags(fs, args, "fetch downloads and verifies a package archive without installing it.",
		"fetch <name> <version> -index=<url>")
	if fs.NArg() != 2 {
		fs.Usage()
	}
	if flags.Index == "" {
		s.Exitf("-index is required")
	}
	name, version := fs.Arg(0), fs.Arg(1)

	root := s.requireRoot()
	tmpDir := filepath.Join(root, "tmp")

	client := registry.New(tmpDir)
	client.SetIndex(flags.Index)

	index, err := client.FetchIndex(ctx())
	if err != nil {
		s.Exit(err)
	}
	manifestURL, err := registry.FindManifestURL(index, name, version)
	if err != nil {
		s.Exit(err)
	}
	m, err := client.FetchManifest(ctx(), manifestURL)
	if err != nil {
		s.Exit(err)
	}
	pkgURL, err := packageURL(index, m, name, version)
	if err != nil {
		s.Exit(err)
	}
	path, digest, err := fetchAndVerify(tmpDir, pkgURL, m.SHA256)
	if err != nil {
		s.Exit(err)
	}
	fmt.Fprintf(s.Stdout, "%s@%s: %s (%s)\n", name, version, path, digest)
}

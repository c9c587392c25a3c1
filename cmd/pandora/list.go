// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AtlasLinux/pandora/activate"
	"github.com/AtlasLinux/pandora/store"
)

// list enumerates published store entries and available profiles,
// marking whichever profile vir currently points at. It takes no
// lock: both reads tolerate a concurrent mutation in progress (§5).
func (s *State) list(args ...string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	s.ParseFlags(fs, args, "list shows published store entries and available profiles.", "list")
	if fs.NArg() != 0 {
		fs.Usage()
	}

	root := s.requireRoot()

	entries, err := store.List(filepath.Join(root, "store"))
	if err != nil {
		s.Exit(err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})
	fmt.Fprintln(s.Stdout, "store:")
	for _, e := range entries {
		fmt.Fprintf(s.Stdout, "\t%s@%s\n", e.Name, e.Version)
	}

	profilesDir := filepath.Join(root, "profiles")
	names, err := listProfileDirs(profilesDir)
	if err != nil {
		s.Exit(err)
	}
	current, err := activate.Current(root)
	if err != nil {
		s.Exit(err)
	}
	fmt.Fprintln(s.Stdout, "profiles:")
	for _, name := range names {
		marker := " "
		if filepath.Join(profilesDir, name) == current {
			marker = "*"
		}
		fmt.Fprintf(s.Stdout, "\t%s %s\n", marker, name)
	}
}

// listProfileDirs returns the sorted names of the non-hidden entries
// directly under dir.
func listProfileDirs(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() && len(e.Name()) > 0 && e.Name()[0] != '.' {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

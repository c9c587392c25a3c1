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
	"github.com/AtlasLinux/pandora/errors"
)

// rollback re-points vir at an already-existing, still-present profile
// directory, using the same two-rename protocol as activate (the
// profile directory is renamed to a fresh <label>-<pid>-<nsec> name
// within profiles/, then vir-new -> vir): rollback [<profile>]. With no
// argument it lists the
// available profiles to choose from.
func (s *State) rollback(args ...string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	s.ParseFlags(fs, args, "rollback re-activates an existing profile directory.", "rollback [<profile>]")
	if fs.NArg() > 1 {
		fs.Usage()
	}

	s.withLock(func(root string) {
		profilesDir := filepath.Join(root, "profiles")
		if fs.NArg() == 0 {
			names, err := listProfileDirs(profilesDir)
			if err != nil {
				s.Exit(err)
			}
			if len(names) == 0 {
				s.Exitf("no profiles available")
			}
			fmt.Fprintln(s.Stdout, "available profiles:")
			for _, n := range names {
				fmt.Fprintf(s.Stdout, "\t%s\n", n)
			}
			return
		}

		target := filepath.Join(profilesDir, fs.Arg(0))
		fi, err := os.Stat(target)
		if err != nil || !fi.IsDir() {
			s.Exit(errors.E("main.rollback", errors.InvalidInput, errors.Errorf("no such profile %q", fs.Arg(0))))
		}
		finalPath, err := activate.Activate(root, target, labelOf(fs.Arg(0)))
		if err != nil {
			s.Exit(err)
		}
		fmt.Fprintf(s.Stdout, "rolled back to %s\n", finalPath)
	})
}

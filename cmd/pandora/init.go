// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
)

// init bootstraps a fresh pandora root: its required subdirectories
// and a placeholder vir pointing at an empty profile.
func (s *State) init(args ...string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	s.ParseFlags(fs, args, "init creates the pandora root and its required subdirectories.", "init")
	if fs.NArg() != 0 {
		fs.Usage()
	}

	root := s.requireRoot()
	fmt.Fprintf(s.Stdout, "initialized pandora root at %s\n", root)
}

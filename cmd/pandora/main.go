// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Pandora is a single-user, home-directory package manager. It fetches
// signed packages from a registry, materializes them into an immutable
// content-addressed store, and exposes selected (name, version) sets to
// the user through symlink forests ("profiles") that can be swapped
// atomically and rolled back.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/AtlasLinux/pandora/flags"
	"github.com/AtlasLinux/pandora/subcmd"
)

var commands = map[string]func(*State, ...string){
	"init":     (*State).init,
	"fetch":    (*State).fetch,
	"install":  (*State).install,
	"list":     (*State).list,
	"rollback": (*State).rollback,
}

// State extends subcmd.State with the pandora root resolved for this
// invocation, filled in by requireRoot/withLock.
type State struct {
	*subcmd.State
	root string
}

func main() {
	flag.Usage = usage
	flags.Parse(&flags.Root, &flags.Index, &flags.Profile, &flags.NoActivate, &flags.Yes, &flags.Log)

	if len(flag.Args()) < 1 {
		usage()
	}

	name := strings.ToLower(flag.Arg(0))
	fn := commands[name]
	if fn == nil {
		fmt.Fprintf(os.Stderr, "pandora: no such command %q\n", flag.Arg(0))
		usage()
	}

	s := &State{State: subcmd.NewState(name)}
	fn(s, flag.Args()[1:]...)
	os.Exit(s.ExitCode)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of pandora:\n")
	fmt.Fprintf(os.Stderr, "\tpandora [globalflags] <command> [flags] <args>\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	var names []string
	for cmd := range commands {
		names = append(names, cmd)
	}
	sort.Strings(names)
	for _, cmd := range names {
		fmt.Fprintf(os.Stderr, "\t%s\n", cmd)
	}
	fmt.Fprintf(os.Stderr, "Global flags:\n")
	flag.PrintDefaults()
	os.Exit(2)
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AtlasLinux/pandora/configblock"
	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/fetch"
	"github.com/AtlasLinux/pandora/flags"
	"github.com/AtlasLinux/pandora/hash"
	"github.com/AtlasLinux/pandora/layout"
	"github.com/AtlasLinux/pandora/registry"
)

// ctx is the background context used for every network operation.
// Pandora's scheduling model is single-threaded and synchronous
// (§5); there is no cancellation path except process exit.
func ctx() context.Context {
	return context.Background()
}

// requireRoot resolves the pandora root -- flags.Root overrides the
// environment-derived default -- and idempotently bootstraps it.
func (s *State) requireRoot() string {
	const op = "main.requireRoot"
	root := flags.Root
	if root == "" {
		r, err := layout.Root()
		if err != nil {
			s.Exit(errors.E(op, err))
		}
		root = r
	}
	if err := layout.Init(root, true); err != nil {
		s.Exit(errors.E(op, err))
	}
	s.root = root
	return root
}

// withLock resolves and bootstraps the root, acquires the
// whole-program lock, runs the startup recovery sweep, and invokes fn
// for the duration the lock is held. Every verb that mutates store/,
// profiles/, or vir goes through this.
func (s *State) withLock(fn func(root string)) {
	const op = "main.withLock"
	root := s.requireRoot()
	fl, err := layout.Lock(root)
	if err != nil {
		s.Exit(errors.E(op, err))
	}
	defer fl.Unlock()
	if err := layout.Recover(root); err != nil {
		s.Exit(errors.E(op, err))
	}
	fn(root)
}

// parsePkgArg splits "name@version" into its two halves.
func parsePkgArg(arg string) (name, version string, err error) {
	const op = "main.parsePkgArg"
	at := strings.IndexByte(arg, '@')
	if at <= 0 || at == len(arg)-1 {
		return "", "", errors.E(op, errors.InvalidInput, errors.Errorf("expected name@version, got %q", arg))
	}
	return arg[:at], arg[at+1:], nil
}

// confirm prompts for a yes/no answer on stdin, skipping the prompt
// entirely when -y was given.
func (s *State) confirm(prompt string) bool {
	if flags.Yes {
		return true
	}
	fmt.Fprintf(s.Stdout, "%s [y/N] ", prompt)
	var answer string
	fmt.Fscanln(s.Stdin, &answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// packageURL resolves the archive URL for a manifest: its own pkg_url
// field if the manifest document set one, otherwise the index-derived
// fallback sequence from §4.5.
func packageURL(index *configblock.Block, m *registry.Manifest, name, version string) (string, error) {
	if m.PkgURL != "" {
		return m.PkgURL, nil
	}
	return registry.FindPkgURL(index, name, version)
}

// fetchAndVerify downloads url into tmpDir and checks its digest
// against expectedHex (the manifest's sha256 field) -- the C1
// checkpoint that must complete before any archive is ever unpacked
// (§4 data flow: C4 -> C1 -> C3).
func fetchAndVerify(tmpDir, url, expectedHex string) (string, hash.Digest, error) {
	const op = "main.fetchAndVerify"
	path, digest, err := fetch.Fetch(ctx(), url, tmpDir)
	if err != nil {
		return "", hash.ZeroDigest, errors.E(op, err)
	}
	expected, err := hash.FromHex(expectedHex)
	if err != nil {
		os.Remove(path)
		return "", hash.ZeroDigest, errors.E(op, errors.Path(url), err)
	}
	if !hash.Equal(digest, expected) {
		os.Remove(path)
		return "", hash.ZeroDigest, errors.E(op, errors.Path(url), errors.HashMismatch,
			errors.Errorf("got %s, manifest asserts %s", digest, expected))
	}
	return path, digest, nil
}

// labelOf strips a trailing "-<pid>-<nsec>" suffix from a profile
// directory name, recovering the label it was activated under, so
// rollback can re-derive a sensible label for the re-activation.
func labelOf(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) >= 3 {
		if _, err := strconv.ParseInt(parts[len(parts)-1], 10, 64); err == nil {
			if _, err := strconv.Atoi(parts[len(parts)-2]); err == nil {
				return strings.Join(parts[:len(parts)-2], "-")
			}
		}
	}
	return name
}

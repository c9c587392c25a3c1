// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// I/O helpers.

package subcmd

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

var userLookup = user.Lookup

var home string // Main user's home directory.

func homeDir(who string) string {
	if who == "" {
		if home == "" {
			h, err := os.UserHomeDir()
			if err != nil {
				return "~" // What else can we do?
			}
			home = h
		}
		return home
	}
	u, err := userLookup(who)
	if err != nil {
		return "~" + who // Again, what else can we do?
	}
	return u.HomeDir
}

// Tilde processes a leading tilde, if any, in the local file name.
// If the file name does not begin with a tilde, Tilde returns the argument unchanged.
// If the target user does not exist, it returns the original string.
func Tilde(file string) string {
	if file == "" || file[0] != '~' {
		return file
	}
	if file == "~" {
		return homeDir("")
	}
	slash := strings.IndexByte(file, '/')
	if slash < 0 {
		return homeDir(file[1:])
	}
	return filepath.Join(homeDir(file[1:slash]), file[slash+1:])
}

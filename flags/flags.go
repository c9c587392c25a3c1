// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags defines the command-line flags shared across pandora's
// verbs, so they stay consistent between subcommands.
package flags

import (
	"flag"
	"fmt"
	"reflect"

	"github.com/AtlasLinux/pandora/log"
)

// We define the flags in two steps so clients don't have to write *flags.Flag.
// It also makes the documentation easier to read.

var (
	// Root overrides the pandora root directory ($PANDORA_HOME / $HOME/pandora).
	Root = ""

	// Index is the URL or local path of the registry index document.
	Index = ""

	// Profile names the profile label to assemble and activate.
	Profile = "default"

	// NoActivate skips the activation step after a successful install,
	// leaving the assembled profile staged but not live.
	NoActivate = false

	// Yes skips interactive confirmation prompts.
	Yes = false

	// Log sets the logging level.
	Log logFlag
)

type logFlag string

// String implements flag.Value.
func (l *logFlag) String() string {
	return string(*l)
}

// Set implements flag.Value.
func (l *logFlag) Set(level string) error {
	if err := log.SetLevel(level); err != nil {
		return err
	}
	*l = logFlag(log.Level())
	return nil
}

// Get implements flag.Getter.
func (l *logFlag) Get() interface{} {
	return log.Level()
}

// Parse sets up the command-line flags for the given flag variables and
// calls flag.Parse. Passing an unknown variable triggers a panic.
//
// For example:
//	flags.Parse(&flags.Root, &flags.Index)
func Parse(vars ...interface{}) error {
	for i, v := range vars {
		unknown := false
		switch v := v.(type) {
		case *string:
			switch v {
			case &Root:
				flag.StringVar(v, "root", Root, "pandora root directory (overrides PANDORA_HOME)")
			case &Index:
				flag.StringVar(v, "index", Index, "URL or local path of the registry index")
			case &Profile:
				flag.StringVar(v, "profile", Profile, "profile label to assemble and activate")
			default:
				unknown = true
			}
		case *bool:
			switch v {
			case &NoActivate:
				flag.BoolVar(v, "no-activate", NoActivate, "stage the assembled profile without activating it")
			case &Yes:
				flag.BoolVar(v, "y", Yes, "skip interactive confirmation")
			default:
				unknown = true
			}
		case *logFlag:
			switch v {
			case &Log:
				v.Set("info")
				flag.Var(v, "log", "`level` of logging: debug, info, error, disabled")
			default:
				unknown = true
			}
		default:
			unknown = true
		}
		if unknown {
			msg := fmt.Sprintf("flags: unknown flag (%#v, arg %d)", v, i)
			if reflect.TypeOf(v).Kind() != reflect.Ptr {
				msg += ", expected pointer type"
			}
			panic(msg)
		}
	}
	flag.Parse()
	return nil
}

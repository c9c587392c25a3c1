// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package subcmd holds the plumbing shared by every pandora verb:
// a State carrying stdio and exit status, flag-set parsing with a
// uniform -help flag, and local-filesystem helpers.
package subcmd

import (
	"fmt"
	"io"
	"os"
)

// State describes the state of a subcommand. It allows a program to
// run multiple verbs against the same stdio.
type State struct {
	Name     string    // Name of the subcommand we are running.
	Stdin    io.Reader // Where to read standard input.
	Stdout   io.Writer // Where to write standard output.
	Stderr   io.Writer // Where to write error output.
	ExitCode int       // Exit with non-zero status for minor problems.
}

// NewState returns a new State for the named subcommand.
func NewState(name string) *State {
	s := &State{Name: name}
	s.DefaultIO()
	return s
}

func (s *State) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	s.Stdin = stdin
	s.Stdout = stdout
	s.Stderr = stderr
}

func (s *State) DefaultIO() {
	s.SetIO(os.Stdin, os.Stdout, os.Stderr)
}

// Exitf prints the error and exits the program with a non-zero status.
func (s *State) Exitf(format string, args ...interface{}) {
	format = fmt.Sprintf("pandora: %s: %s\n", s.Name, format)
	fmt.Fprintf(s.Stderr, format, args...)
	s.ExitCode = 1
	s.ExitNow()
}

// Exit calls s.Exitf with the error.
func (s *State) Exit(err error) {
	s.Exitf("%s", err)
}

// ExitNow terminates the process with the current ExitCode.
func (s *State) ExitNow() {
	os.Exit(s.ExitCode)
}

// Failf logs the error and sets the exit code. It does not exit the program.
func (s *State) Failf(format string, args ...interface{}) {
	format = fmt.Sprintf("pandora: %s: %s\n", s.Name, format)
	fmt.Fprintf(s.Stderr, format, args...)
	s.ExitCode = 1
}

// Fail calls s.Failf with the error.
func (s *State) Fail(err error) {
	s.Failf("%v", err)
}

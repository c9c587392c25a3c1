// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pathsafe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeOK(t *testing.T) {
	cases := map[string]string{
		"bin/foo":        "bin/foo",
		"./bin/./foo":    "bin/foo",
		"bin//foo":       "bin/foo",
		"bin/foo/":       "bin/foo",
		"a/./b//c":       "a/b/c",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []string{
		"",
		"/abs/path",
		"../escape",
		"a/../b",
		"a/..",
		"..",
		"a/b\x00c",
	}
	for _, in := range cases {
		if _, err := Normalize(in); err == nil {
			t.Errorf("Normalize(%q): expected error, got nil", in)
		}
	}
}

func TestValidateTreeOK(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "bin", "foo"), []byte("hello\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("bin/foo", filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}
	if err := ValidateTree(root); err != nil {
		t.Errorf("ValidateTree: unexpected error: %v", err)
	}
}

func TestValidateTreeRejectsAbsoluteSymlink(t *testing.T) {
	root := t.TempDir()
	if err := os.Symlink("/etc/passwd", filepath.Join(root, "evil")); err != nil {
		t.Fatal(err)
	}
	if err := ValidateTree(root); err == nil {
		t.Error("expected error for absolute symlink target")
	}
}

func TestValidateTreeRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	if err := os.Symlink("../../etc/passwd", filepath.Join(root, "evil")); err != nil {
		t.Fatal(err)
	}
	if err := ValidateTree(root); err == nil {
		t.Error("expected error for symlink target containing ..")
	}
}

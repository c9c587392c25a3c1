// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/AtlasLinux/pandora/archive"
	"github.com/AtlasLinux/pandora/hash"
)

func makePkg(t *testing.T) (string, hash.Digest) {
	t.Helper()
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "bin", "foo"), []byte("hello\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := archive.Pack(&buf, []string{filepath.Join(src, "bin")}); err != nil {
		t.Fatal(err)
	}
	pkgPath := filepath.Join(t.TempDir(), "pkg.pnd")
	if err := os.WriteFile(pkgPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return pkgPath, hash.Sum(buf.Bytes())
}

func TestImportPublishes(t *testing.T) {
	root := t.TempDir()
	pkg, digest := makePkg(t)

	path, err := Import(root, pkg, "libfoo", "1.0", digest)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := filepath.Join(root, "libfoo", "1.0")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	got, err := os.ReadFile(filepath.Join(path, "files", "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello\n" {
		t.Errorf("contents = %q", got)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if isTmpDir(e.Name()) {
			t.Errorf("leftover temp entry: %s", e.Name())
		}
	}
}

func TestImportIdempotentReinstall(t *testing.T) {
	root := t.TempDir()
	pkg, digest := makePkg(t)

	if _, err := Import(root, pkg, "libfoo", "1.0", digest); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	path, err := Import(root, pkg, "libfoo", "1.0", digest)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	want := filepath.Join(root, "libfoo", "1.0")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestImportDigestMismatchIsConflict(t *testing.T) {
	root := t.TempDir()
	pkg, digest := makePkg(t)

	if _, err := Import(root, pkg, "libfoo", "1.0", digest); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	other := hash.Sum([]byte("different content"))
	if _, err := Import(root, pkg, "libfoo", "1.0", other); err == nil {
		t.Error("expected error for conflicting reinstall")
	}
}

// TestImportRejectsUnsafeSymlinkArchive exercises the belt-and-suspenders
// check at step 4: archive.Unpack sanitizes stored *paths* but not
// symlink *targets* (see archive.TestUnpackKeepsAbsoluteSymlinkTarget),
// so pathsafe.ValidateTree on the unpacked tree is what actually catches
// an absolute or escaping symlink target, and must leave no store entry
// behind.
func TestImportRejectsUnsafeSymlinkArchive(t *testing.T) {
	root := t.TempDir()

	var buf bytes.Buffer
	buf.WriteString(archive.Magic)
	writeU64(&buf, 1)
	target := []byte("/etc/passwd")
	path := "evil-link"
	writeU32(&buf, uint32(len(path)))
	writeU64(&buf, uint64(len(target)))
	writeU64(&buf, 0)
	writeU32(&buf, 1) // flagSymlink
	buf.WriteString(path)
	buf.Write(target)

	pkgPath := filepath.Join(t.TempDir(), "evil.pnd")
	if err := os.WriteFile(pkgPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Import(root, pkgPath, "libfoo", "1.0", hash.Sum(buf.Bytes())); err == nil {
		t.Fatal("expected unsafe-archive error")
	}
	if _, err := os.Stat(filepath.Join(root, "libfoo", "1.0")); err == nil {
		t.Error("store entry exists after rejected import")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if isTmpDir(e.Name()) {
			t.Errorf("leftover temp entry after failed import: %s", e.Name())
		}
	}
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
	buf.Write(b[:])
}

func TestList(t *testing.T) {
	root := t.TempDir()
	pkg, digest := makePkg(t)
	if _, err := Import(root, pkg, "libfoo", "1.0", digest); err != nil {
		t.Fatal(err)
	}
	pkg2, digest2 := makePkg(t)
	if _, err := Import(root, pkg2, "libbar", "2.0", digest2); err != nil {
		t.Fatal(err)
	}

	entries, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2", entries)
	}
}

func TestListEmptyRoot(t *testing.T) {
	entries, err := List(filepath.Join(t.TempDir(), "nonexistent"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/AtlasLinux/pandora/hash"
)

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload")
	content := []byte("package contents")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	path, digest, err := Fetch(context.Background(), src, dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("fetched contents = %q, want %q", got, content)
	}
	if want := hash.Sum(content); digest != want {
		t.Errorf("digest = %x, want %x", digest, want)
	}
}

func TestFetchLocalTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	content := []byte("home-relative contents")
	if err := os.WriteFile(filepath.Join(home, "payload"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path, digest, err := Fetch(context.Background(), "~"+string(filepath.Separator)+"payload", dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("fetched contents = %q, want %q", got, content)
	}
	if want := hash.Sum(content); digest != want {
		t.Errorf("digest = %x, want %x", digest, want)
	}
}

func TestFetchLocalMissing(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Fetch(context.Background(), filepath.Join(dir, "nope"), dir); err == nil {
		t.Error("expected error for missing source file")
	}
}

func TestFetchHTTP(t *testing.T) {
	content := []byte("remote package contents")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, digest, err := Fetch(context.Background(), srv.URL, dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("fetched contents = %q, want %q", got, content)
	}
	if want := hash.Sum(content); digest != want {
		t.Errorf("digest = %x, want %x", digest, want)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	if _, _, err := Fetch(context.Background(), srv.URL, dir); err == nil {
		t.Error("expected error for 404 response")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp file not cleaned up on error: %v", entries)
	}
}

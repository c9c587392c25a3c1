// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/AtlasLinux/pandora/configblock"
	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/registry"
)

func TestParsePkgArg(t *testing.T) {
	cases := []struct {
		in              string
		name, version   string
		wantErr         bool
	}{
		{"foo@1.0", "foo", "1.0", false},
		{"foo@1.0.0-beta", "foo", "1.0.0-beta", false},
		{"foo", "", "", true},
		{"@1.0", "", "", true},
		{"foo@", "", "", true},
	}
	for _, c := range cases {
		name, version, err := parsePkgArg(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parsePkgArg(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePkgArg(%q): unexpected error: %v", c.in, err)
			continue
		}
		if name != c.name || version != c.version {
			t.Errorf("parsePkgArg(%q) = (%q, %q), want (%q, %q)", c.in, name, version, c.name, c.version)
		}
	}
}

func TestParsePkgArgKind(t *testing.T) {
	_, _, err := parsePkgArg("nogood")
	if !errors.Is(errors.InvalidInput, err) {
		t.Errorf("expected errors.InvalidInput, got %v", err)
	}
}

func TestLabelOf(t *testing.T) {
	cases := []struct{ in, want string }{
		{"default-1234-5678901234", "default"},
		{"my-label-1234-5678901234", "my-label"},
		{"empty", "empty"},
		{"default-notanumber-5678", "default-notanumber-5678"},
	}
	for _, c := range cases {
		if got := labelOf(c.in); got != c.want {
			t.Errorf("labelOf(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPackageURLPrefersManifest(t *testing.T) {
	m := &registry.Manifest{Name: "foo", Version: "1.0", PkgURL: "https://example.com/foo-1.0.pkg"}
	url, err := packageURL(nil, m, "foo", "1.0")
	if err != nil {
		t.Fatalf("packageURL: %v", err)
	}
	if url != m.PkgURL {
		t.Errorf("packageURL = %q, want %q", url, m.PkgURL)
	}
}

func TestPackageURLFallsBackToIndex(t *testing.T) {
	const idx = `
Registry {
	pkg_base_url = "https://example.com/foo"
}
`
	block, err := configblock.ParseString(idx)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	m := &registry.Manifest{Name: "foo", Version: "1.0"}
	url, err := packageURL(block, m, "foo", "1.0")
	if err != nil {
		t.Fatalf("packageURL: %v", err)
	}
	want := "https://example.com/foo/1.0/foo-1.0.pkg"
	if url != want {
		t.Errorf("packageURL = %q, want %q", url, want)
	}
}

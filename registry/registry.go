// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry resolves (name, version) pairs to manifest and
// package URLs through a cached index document (C5), and resolves the
// transitive dependency closure of an install request.
package registry

import (
	"context"
	"fmt"

	"github.com/AtlasLinux/pandora/configblock"
	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/fetch"
)

// Manifest is the parsed set of fields pandora reads out of a package
// manifest document (§4.2). Additional fields present in the document
// but not named here are ignored.
type Manifest struct {
	Name    string
	Version string
	SHA256  string
	PkgURL  string
	Deps    []Dependency
}

// Dependency is one exact (name, version) pair named by a manifest's
// deps list.
type Dependency struct {
	Name    string
	Version string
}

// Client caches a parsed index document, lazily populated by
// FetchIndex. The zero Client is ready to use once SetIndex is called.
type Client struct {
	indexURL string
	index    *configblock.Block
	tmpDir   string
}

// New returns a Client that downloads transient files into tmpDir (the
// pandora root's tmp/ directory).
func New(tmpDir string) *Client {
	return &Client{tmpDir: tmpDir}
}

// SetIndex records the index URL, invalidating any cached index.
func (c *Client) SetIndex(url string) {
	c.indexURL = url
	c.index = nil
}

// FetchIndex fetches and parses the index document, caching the parsed
// tree. A cached index is not refetched; call SetIndex first to force a
// refresh.
func (c *Client) FetchIndex(ctx context.Context) (*configblock.Block, error) {
	const op = "registry.FetchIndex"
	if c.index != nil {
		return c.index, nil
	}
	if c.indexURL == "" {
		return nil, errors.E(op, errors.InvalidInput, errors.Errorf("no index URL set"))
	}
	path, _, err := fetch.Fetch(ctx, c.indexURL, c.tmpDir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	block, err := configblock.ParseFile(path)
	if err != nil {
		return nil, errors.E(op, errors.Path(c.indexURL), err)
	}
	c.index = block
	return block, nil
}

// FetchManifest fetches and parses a manifest document from url.
func (c *Client) FetchManifest(ctx context.Context, url string) (*Manifest, error) {
	const op = "registry.FetchManifest"
	path, _, err := fetch.Fetch(ctx, url, c.tmpDir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	block, err := configblock.ParseFile(path)
	if err != nil {
		return nil, errors.E(op, errors.Path(url), err)
	}
	return manifestFromBlock(block)
}

func manifestFromBlock(b *configblock.Block) (*Manifest, error) {
	const op = "registry.manifestFromBlock"
	m := &Manifest{}
	var err error
	if m.Name, err = b.GetString("name"); err != nil {
		return nil, errors.E(op, errors.ParseFailed, err)
	}
	if m.Version, err = b.GetString("version"); err != nil {
		return nil, errors.E(op, errors.ParseFailed, err)
	}
	if m.SHA256, err = b.GetString("sha256"); err != nil {
		return nil, errors.E(op, errors.ParseFailed, err)
	}
	if m.PkgURL, err = b.GetString("pkg_url"); err != nil && !errors.Is(errors.NotFound, err) {
		return nil, errors.E(op, errors.ParseFailed, err)
	}
	deps, err := b.Get("deps.entry")
	if err != nil {
		return m, nil // deps is optional.
	}
	list, ok := deps.([]interface{})
	if !ok {
		if single, ok := deps.(map[string]interface{}); ok {
			list = []interface{}{single}
		}
	}
	for i, raw := range list {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, errors.E(op, errors.ParseFailed, errors.Errorf("deps.entry[%d]: not an object", i))
		}
		name, _ := entry["name"].(string)
		version, _ := entry["version"].(string)
		if name == "" || version == "" {
			return nil, errors.E(op, errors.ParseFailed, errors.Errorf("deps.entry[%d]: missing name or version", i))
		}
		m.Deps = append(m.Deps, Dependency{Name: name, Version: version})
	}
	return m, nil
}

// lookupKeys is the fixed sequence of path expressions tried, in order,
// by FindManifestURL and FindPkgURL (§4.5).
func lookupKeys(name, version, key string) []string {
	return []string{
		fmt.Sprintf(`Registry.Package[%q].Version[%q].%s`, name, version, key),
		fmt.Sprintf(`Package[%q].Version[%q].%s`, name, version, key),
		fmt.Sprintf(`Registry.Package[%q].%s_%s`, name, key, version),
		fmt.Sprintf(`Package[%q].%s_%s`, name, key, version),
	}
}

// findURL tries each lookup key in order and returns the first hit.
func findURL(index *configblock.Block, name, version, key string) (string, error) {
	const op = "registry.findURL"
	var lastErr error
	for _, expr := range lookupKeys(name, version, key) {
		url, err := index.GetString(expr)
		if err == nil {
			return url, nil
		}
		lastErr = err
	}
	return "", errors.E(op, errors.NotFound, errors.Errorf("%s/%s: %s: %v", name, version, key, lastErr))
}

// FindManifestURL looks up the manifest URL for (name, version) in
// index, trying the fixed path-expression sequence from §4.5.
func FindManifestURL(index *configblock.Block, name, version string) (string, error) {
	return findURL(index, name, version, "manifest_url")
}

// FindPkgURL looks up the package archive URL for (name, version).
// If none of the direct lookups hit, it falls back to constructing
// "<pkg_base_url>/<version>/<name>-<version>.pkg" from the index's
// Registry.pkg_base_url key.
func FindPkgURL(index *configblock.Block, name, version string) (string, error) {
	const op = "registry.FindPkgURL"
	if url, err := findURL(index, name, version, "pkg_url"); err == nil {
		return url, nil
	}
	base, err := index.GetString("Registry.pkg_base_url")
	if err != nil {
		return "", errors.E(op, errors.NotFound, errors.Errorf("%s/%s: pkg_url", name, version))
	}
	return fmt.Sprintf("%s/%s/%s-%s.pkg", base, version, name, version), nil
}

// ResolveClosure walks the transitive dependency closure of the named
// roots, fetching each manifest exactly once, and returns every
// (name, version) reached in a valid topological order -- dependencies
// before dependents. A cycle is a hard error: pandora installs a DAG,
// not an arbitrary graph.
func ResolveClosure(ctx context.Context, c *Client, index *configblock.Block, roots []Dependency) ([]*Manifest, error) {
	const op = "registry.ResolveClosure"

	visited := make(map[string]*Manifest)
	state := make(map[string]int) // 0 unvisited, 1 in-progress, 2 done
	var order []*Manifest

	var visit func(d Dependency) error
	visit = func(d Dependency) error {
		key := d.Name + "@" + d.Version
		switch state[key] {
		case 2:
			return nil
		case 1:
			return errors.E(op, errors.InvalidInput, errors.Errorf("dependency cycle at %s", key))
		}
		state[key] = 1

		murl, err := FindManifestURL(index, d.Name, d.Version)
		if err != nil {
			return errors.E(op, err)
		}
		m, err := c.FetchManifest(ctx, murl)
		if err != nil {
			return errors.E(op, err)
		}
		visited[key] = m

		for _, dep := range m.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[key] = 2
		order = append(order, m)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return order, nil
}

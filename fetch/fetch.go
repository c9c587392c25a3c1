// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fetch retrieves a package archive from either an http(s) URL or
// a local filesystem path into a private temp file, hashing it as it is
// written so the caller never sees a partially-written file under its
// final digest (C4). The caller only gets a path back once the transfer
// is complete.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/hash"
	"github.com/AtlasLinux/pandora/log"
	"github.com/AtlasLinux/pandora/subcmd"
)

var httpClient = &http.Client{}

// Fetch retrieves url into a new temp file under tmpDir and returns its
// path and digest. url may be "http://", "https://", or a plain
// filesystem path (absolute or relative), handled uniformly: both cases
// stream into the same temp file through the same hasher. The temp file
// is removed on any error.
func Fetch(ctx context.Context, url, tmpDir string) (path string, digest hash.Digest, err error) {
	const op = "fetch.Fetch"

	f, err := os.CreateTemp(tmpDir, "pandora-fetch-*")
	if err != nil {
		return "", hash.ZeroDigest, errors.E(op, errors.Internal, err)
	}
	tmpPath := f.Name()
	success := false
	defer func() {
		f.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	h := hash.New()
	w := io.MultiWriter(f, h)

	if isHTTP(url) {
		if err := fetchHTTP(ctx, url, w); err != nil {
			return "", hash.ZeroDigest, errors.E(op, errors.Path(url), errors.FetchFailed, err)
		}
	} else {
		if err := fetchLocal(url, w); err != nil {
			return "", hash.ZeroDigest, errors.E(op, errors.Path(url), errors.FetchFailed, err)
		}
	}

	if err := f.Sync(); err != nil {
		return "", hash.ZeroDigest, errors.E(op, errors.Internal, err)
	}
	success = true
	log.Debug.Printf("fetch: %s -> %s", url, tmpPath)
	return tmpPath, h.Sum(), nil
}

func isHTTP(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func fetchHTTP(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected HTTP status %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func fetchLocal(path string, w io.Writer) error {
	path = filepath.Clean(subcmd.Tilde(path))
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

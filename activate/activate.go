// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package activate implements the two-rename protocol that makes a
// freshly assembled profile the live one (C8): profile-into-place, then
// the `vir-new -> vir` swap that is the actual user-visible commit
// point. Grounded on the teacher's temp-write-then-rename commit
// pattern used for both cache files and its own write-behind queue log.
package activate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/log"
)

const (
	virName    = "vir"
	virNewName = "vir-new"
)

// Activate moves tmpProfile (produced by profile.Assemble) into
// root/profiles/<label>-<pid>-<nsec>, then atomically repoints
// root/vir at it. On success it returns the final profile path; the
// temp path no longer exists under either name. A best-effort
// transaction log entry is written to root/tmp.
func Activate(root, tmpProfile, label string) (string, error) {
	const op = "activate.Activate"

	profilesDir := filepath.Join(root, "profiles")
	if err := os.MkdirAll(profilesDir, 0755); err != nil {
		return "", errors.E(op, errors.Internal, err)
	}

	finalPath := filepath.Join(profilesDir, fmt.Sprintf("%s-%d-%d", label, os.Getpid(), time.Now().UnixNano()))
	if err := os.Rename(tmpProfile, finalPath); err != nil {
		return "", errors.E(op, errors.Internal, errors.Errorf("rename profile into place: %v", err))
	}

	virNewPath := filepath.Join(root, virNewName)
	os.Remove(virNewPath)
	if err := os.Symlink(finalPath, virNewPath); err != nil {
		return finalPath, errors.E(op, errors.Internal, errors.Errorf(
			"profile %s is staged but not live; vir-new creation failed: %v", finalPath, err))
	}

	virPath := filepath.Join(root, virName)
	if err := os.Rename(virNewPath, virPath); err != nil {
		return finalPath, errors.E(op, errors.Internal, errors.Errorf(
			"profile %s is staged but not live; vir-new->vir rename failed: %v", finalPath, err))
	}

	writeTxnLog(root, finalPath)
	return finalPath, nil
}

// writeTxnLog writes a best-effort record of the activation. Failure to
// write it does not affect the outcome of Activate: the live pointer has
// already been swapped.
func writeTxnLog(root, finalPath string) {
	tmpDir := filepath.Join(root, "tmp")
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		log.Info.Printf("activate: txn log: %v", err)
		return
	}
	name := fmt.Sprintf("txn-%d-%d.log", os.Getpid(), time.Now().UnixNano())
	content := fmt.Sprintf("activated=%s\n", finalPath)
	if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644); err != nil {
		log.Info.Printf("activate: txn log: %v", err)
	}
}

// Current resolves root/vir to the profile directory it currently
// points at, or an empty string if no profile is active.
func Current(root string) (string, error) {
	const op = "activate.Current"
	target, err := os.Readlink(filepath.Join(root, virName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.E(op, errors.Internal, err)
	}
	return target, nil
}

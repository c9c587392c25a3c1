// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive packs and unpacks the pandora ".pnd" container (C3, §6.1):
// a flat, deterministic archive of regular files and symlinks with a fixed
// entry table. Unpacking sanitizes every stored path through pathsafe before
// touching disk, so a crafted archive can never write outside the
// destination directory (P3).
package archive

import (
	"bufio"
	"encoding/binary"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AtlasLinux/pandora/errors"
	"github.com/AtlasLinux/pandora/log"
	"github.com/AtlasLinux/pandora/pathsafe"
)

// Magic is the fixed 8-byte container identifier.
const Magic = "PNDARCH\x01"

// flagSymlink marks an entry whose blob is a symlink target rather than
// file contents. Other bits are reserved and must be zero.
const flagSymlink = 0x1

const (
	headerSize     = 8 + 8        // magic + entry_count
	tableEntryFxed = 4 + 8 + 8 + 4 // path_len, blob_size, blob_offset, flags
)

// ManifestName is the name of the file written into dest by Unpack,
// listing the accepted relative paths in table order, one per line.
const ManifestName = ".manifest"

type record struct {
	path       string // stored, archive-relative path
	size       int64
	offset     int64
	isSymlink  bool
	sourcePath string // absolute path to read blob bytes from, set by Pack
}

// Pack writes a container to w containing every input. Each input is
// resolved to a canonical absolute path; directories are walked in a
// stable depth-first (lexical) order and every regular file or symlink
// found is stored. Device, fifo, and socket nodes are skipped silently.
func Pack(w io.Writer, inputs []string) error {
	const op = "archive.Pack"

	var recs []record
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return errors.E(op, errors.Path(in), errors.Internal, err)
		}
		fi, err := os.Lstat(abs)
		if err != nil {
			return errors.E(op, errors.Path(in), errors.Internal, err)
		}
		if fi.IsDir() {
			found, err := walkDir(abs)
			if err != nil {
				return errors.E(op, errors.Path(in), err)
			}
			recs = append(recs, found...)
			continue
		}
		if !isStorable(fi.Mode()) {
			continue
		}
		recs = append(recs, record{
			path:       filepath.Base(abs),
			isSymlink:  fi.Mode()&os.ModeSymlink != 0,
			sourcePath: abs,
		})
	}

	// Determine sizes and compute deterministic, sequential blob offsets.
	offset := int64(headerSize)
	for i := range recs {
		size, err := blobSize(recs[i])
		if err != nil {
			return errors.E(op, errors.Path(recs[i].path), errors.Internal, err)
		}
		recs[i].size = size
	}
	tableSize := int64(0)
	for _, r := range recs {
		tableSize += tableEntryFxed + int64(len(r.path))
	}
	offset = headerSize + tableSize
	for i := range recs {
		recs[i].offset = offset
		offset += recs[i].size
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, len(recs)); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	for _, r := range recs {
		if err := writeTableEntry(bw, r); err != nil {
			return errors.E(op, errors.Internal, err)
		}
	}
	for _, r := range recs {
		if err := writeBlob(bw, r); err != nil {
			return errors.E(op, errors.Path(r.path), errors.Internal, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	return nil
}

// isStorable reports whether mode is a regular file or symlink; device,
// fifo, and socket nodes are not storable.
func isStorable(mode fs.FileMode) bool {
	if mode&os.ModeSymlink != 0 {
		return true
	}
	return mode.IsRegular()
}

// walkDir enumerates every regular file and symlink under root, in a
// stable depth-first order, storing each under a path relative to root.
func walkDir(root string) ([]record, error) {
	var recs []record
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if !isStorable(fi.Mode()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		recs = append(recs, record{
			path:       filepath.ToSlash(rel),
			isSymlink:  fi.Mode()&os.ModeSymlink != 0,
			sourcePath: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].path < recs[j].path })
	return recs, nil
}

func blobSize(r record) (int64, error) {
	if r.isSymlink {
		target, err := os.Readlink(r.sourcePath)
		if err != nil {
			return 0, err
		}
		return int64(len(target)), nil
	}
	fi, err := os.Stat(r.sourcePath)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func writeHeader(w io.Writer, entryCount int) error {
	var buf [headerSize]byte
	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(entryCount))
	_, err := w.Write(buf[:])
	return err
}

func writeTableEntry(w io.Writer, r record) error {
	var fixed [tableEntryFxed]byte
	binary.LittleEndian.PutUint32(fixed[0:4], uint32(len(r.path)))
	binary.LittleEndian.PutUint64(fixed[4:12], uint64(r.size))
	binary.LittleEndian.PutUint64(fixed[12:20], uint64(r.offset))
	var flags uint32
	if r.isSymlink {
		flags |= flagSymlink
	}
	binary.LittleEndian.PutUint32(fixed[20:24], flags)
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, r.path)
	return err
}

// writeBlob streams the entry's contents. If a regular file's size changed
// between enumeration and streaming, it writes whatever is present and
// logs a warning rather than failing the pack -- an intentional tolerance
// carried over unchanged from the source design (see DESIGN.md).
func writeBlob(w io.Writer, r record) error {
	if r.isSymlink {
		target, err := os.Readlink(r.sourcePath)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, target)
		return err
	}
	f, err := os.Open(r.sourcePath)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := io.CopyN(w, f, r.size)
	if err != nil && err != io.EOF {
		return err
	}
	if n != r.size {
		log.Info.Printf("archive.Pack: %s: size changed during pack (wrote %d of %d declared bytes)", r.path, n, r.size)
	}
	return nil
}

// tableRecord is a parsed, not-yet-materialized entry read from an archive.
type tableRecord struct {
	rawPath string
	path    string // normalized; empty if the entry was rejected
	size    int64
	flags   uint32
}

// Unpack reads a container from r and materializes it under dest. Every
// stored path is sanitized via pathsafe.Normalize before being used;
// entries with an invalid path are skipped, but the stream position still
// advances past their blob so later entries remain readable (§4.3 step 2).
// Unpack writes a ManifestName file listing the accepted paths, one per
// line, in table order (P2). It fails fast -- no partial recovery -- on a
// bad magic, a short read, a failed write, or a failed symlink creation.
func Unpack(r io.Reader, dest string) error {
	const op = "archive.Unpack"

	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return errors.E(op, errors.UnsafeArchive, errors.Errorf("short read of magic: %v", err))
	}
	if string(magic[:]) != Magic {
		return errors.E(op, errors.UnsafeArchive, errors.Errorf("bad magic %q", magic[:]))
	}
	var countBuf [8]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return errors.E(op, errors.UnsafeArchive, errors.Errorf("short read of entry count: %v", err))
	}
	count := binary.LittleEndian.Uint64(countBuf[:])

	recs := make([]tableRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		var fixed [tableEntryFxed]byte
		if _, err := io.ReadFull(r, fixed[:]); err != nil {
			return errors.E(op, errors.UnsafeArchive, errors.Errorf("short read of table entry %d: %v", i, err))
		}
		pathLen := binary.LittleEndian.Uint32(fixed[0:4])
		blobSize := binary.LittleEndian.Uint64(fixed[4:12])
		flags := binary.LittleEndian.Uint32(fixed[20:24])

		pathBuf := make([]byte, pathLen)
		if _, err := io.ReadFull(r, pathBuf); err != nil {
			return errors.E(op, errors.UnsafeArchive, errors.Errorf("short read of path for entry %d: %v", i, err))
		}
		rawPath := string(pathBuf)
		norm, err := pathsafe.Normalize(rawPath)
		if err != nil {
			norm = "" // Rejected; still consume the blob below.
		}
		recs = append(recs, tableRecord{
			rawPath: rawPath,
			path:    norm,
			size:    int64(blobSize),
			flags:   flags,
		})
	}

	var manifest []string
	for _, rec := range recs {
		// An entry below a symlink created by an earlier entry would be
		// written through that link, possibly outside dest; reject it too.
		if rec.path != "" {
			parts := strings.Split(rec.path, "/")
			for i := 1; i < len(parts); i++ {
				fi, err := os.Lstat(filepath.Join(dest, filepath.FromSlash(strings.Join(parts[:i], "/"))))
				if err == nil && fi.Mode()&os.ModeSymlink != 0 {
					rec.path = ""
					break
				}
			}
		}
		if rec.path == "" {
			if _, err := io.CopyN(io.Discard, r, rec.size); err != nil {
				return errors.E(op, errors.UnsafeArchive, errors.Errorf("short read of blob for rejected entry %q: %v", rec.rawPath, err))
			}
			log.Info.Printf("archive.Unpack: skipping unsafe path %q", rec.rawPath)
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rec.path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.E(op, errors.Path(rec.path), errors.Internal, err)
		}
		os.Remove(target) // Remove any pre-existing entry; never traverse into it.

		if rec.flags&flagSymlink != 0 {
			buf := make([]byte, rec.size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return errors.E(op, errors.Path(rec.path), errors.UnsafeArchive, errors.Errorf("short read of symlink target: %v", err))
			}
			if err := os.Symlink(string(buf), target); err != nil {
				return errors.E(op, errors.Path(rec.path), errors.Internal, err)
			}
		} else {
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return errors.E(op, errors.Path(rec.path), errors.Internal, err)
			}
			n, err := io.CopyN(f, r, rec.size)
			if err != nil || n != rec.size {
				f.Close()
				return errors.E(op, errors.Path(rec.path), errors.UnsafeArchive, errors.Errorf("short read of blob: %v", err))
			}
			if err := f.Close(); err != nil {
				return errors.E(op, errors.Path(rec.path), errors.Internal, err)
			}
		}
		manifest = append(manifest, rec.path)
	}

	if err := writeManifest(dest, manifest); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	return nil
}

func writeManifest(dest string, paths []string) error {
	f, err := os.Create(filepath.Join(dest, ManifestName))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, p := range paths {
		if _, err := w.WriteString(p + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadManifest reads back a manifest written by Unpack.
func ReadManifest(dest string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dest, ManifestName))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

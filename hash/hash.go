// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hash provides the streaming SHA-256 hasher and hex codec used to
// make and verify the content-addressed keys of the pandora store (C1).
package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/AtlasLinux/pandora/errors"
)

// Size is the number of bytes in a digest.
const Size = sha256.Size

// ZeroDigest is the zero-valued digest.
var ZeroDigest Digest

// Digest represents a SHA-256 digest. It is always 32 bytes long.
// Its representation is an array so it can be treated as a value.
type Digest [Size]byte

// String returns the 64-character lowercase hex representation of the digest.
func (d Digest) String() string {
	return ToHex(d)
}

// State is a streaming SHA-256 hasher: init/update/finalize.
type State struct {
	h hash.Hash
}

// New returns a new streaming hasher.
func New() *State {
	return &State{h: sha256.New()}
}

// Write implements io.Writer, feeding more data into the hash.
func (s *State) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// Sum finalizes the hash and returns the digest. The State may not be
// reused after calling Sum.
func (s *State) Sum() Digest {
	var d Digest
	copy(d[:], s.h.Sum(nil))
	return d
}

// Sum returns the SHA-256 digest of data in one shot.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// ToHex returns the 64-character lowercase hex representation of a digest.
func ToHex(d Digest) string {
	return hex.EncodeToString(d[:])
}

// FromHex parses a 64-character lowercase hex string into a digest. It
// returns errors.InvalidInput on odd length, non-hex characters, or a
// decoded length other than Size.
func FromHex(s string) (Digest, error) {
	const op = "hash.FromHex"
	var d Digest
	if len(s)%2 != 0 {
		return d, errors.E(op, errors.InvalidInput, errors.Errorf("odd-length hex string"))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, errors.E(op, errors.InvalidInput, err)
	}
	if len(b) != Size {
		return d, errors.E(op, errors.InvalidInput, errors.Errorf("decoded length %d, want %d", len(b), Size))
	}
	copy(d[:], b)
	return d, nil
}

// Equal reports whether a and b are the same digest, in constant time.
// The comparison always examines all Size bytes; it never short-circuits
// on the first mismatched position.
func Equal(a, b Digest) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// File streams the file at path in 64 KiB chunks and returns its digest.
// Memory use is bounded independent of file size. I/O errors surface as
// errors.Internal, distinct from the errors.InvalidInput kind used by
// FromHex.
func File(path string) (Digest, error) {
	const op = "hash.File"
	f, err := os.Open(path)
	if err != nil {
		return ZeroDigest, errors.E(op, errors.Path(path), errors.Internal, err)
	}
	defer f.Close()

	s := New()
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(s, f, buf); err != nil {
		return ZeroDigest, errors.E(op, errors.Path(path), errors.Internal, err)
	}
	return s.Sum(), nil
}

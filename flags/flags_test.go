// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flags

import "testing"

func TestLogFlagSetAndGet(t *testing.T) {
	var l logFlag
	if err := l.Set("debug"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if l.String() != "debug" {
		t.Errorf("String() = %q, want %q", l.String(), "debug")
	}
	if got := l.Get(); got != "debug" {
		t.Errorf("Get() = %v, want %q", got, "debug")
	}
}

func TestLogFlagSetInvalidLevel(t *testing.T) {
	var l logFlag
	if err := l.Set("not-a-level"); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestParsePanicsOnUnknownVar(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered flag variable")
		}
	}()
	var unrelated string
	Parse(&unrelated)
}

// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package configblock reads the index and manifest documents (§6.3) as
// HCL text and exposes them through a dotted, bracket-literal path
// expression resolver, e.g. `Registry.Package["libfoo"].Version["1.0"].manifest_url`.
// Parsing is delegated to hashicorp/hcl, which already solves "parse
// nested, labeled blocks into a generic tree" for the rest of the corpus
// (canonical-lxd, DataDog-datadog-agent, totoriverce-open-policy-agent,
// simon-lentz-yammm all vendor it for the same reason); only the path
// expression traversal on top of that tree is hand-written, since no
// library in the corpus implements this bracket-literal/bracket-index
// syntax.
package configblock

import (
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl"

	"github.com/AtlasLinux/pandora/errors"
)

// Block is a parsed configuration document ready for path-expression
// lookups.
type Block struct {
	root interface{}
}

// ParseFile reads and parses the HCL document at path.
func ParseFile(path string) (*Block, error) {
	const op = "configblock.ParseFile"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(op, errors.Path(path), errors.ConfigMissing, err)
	}
	b, err := ParseString(string(data))
	if err != nil {
		return nil, errors.E(op, errors.Path(path), err)
	}
	return b, nil
}

// ParseString parses an HCL document held in memory, e.g. one just
// fetched over HTTP.
func ParseString(text string) (*Block, error) {
	const op = "configblock.ParseString"
	var tree interface{}
	if err := hcl.Decode(&tree, text); err != nil {
		return nil, errors.E(op, errors.ParseFailed, err)
	}
	return &Block{root: tree}, nil
}

// token is one segment of a path expression: a bare identifier
// ("Registry"), or an identifier with a bracketed selector
// ("Package[\"libfoo\"]", "Version[2]").
type token struct {
	name    string
	literal string // set if the selector was a quoted literal
	index   int    // set if the selector was a bare integer
	hasIdx  bool
	hasLit  bool
}

// parseExpr splits a path expression into its dotted, bracketed tokens.
func parseExpr(expr string) ([]token, error) {
	const op = "configblock.parseExpr"
	var tokens []token
	for _, part := range strings.Split(expr, ".") {
		if part == "" {
			return nil, errors.E(op, errors.InvalidInput, errors.Errorf("empty path segment in %q", expr))
		}
		br := strings.IndexByte(part, '[')
		if br < 0 {
			tokens = append(tokens, token{name: part})
			continue
		}
		if !strings.HasSuffix(part, "]") {
			return nil, errors.E(op, errors.InvalidInput, errors.Errorf("unterminated bracket in %q", part))
		}
		name := part[:br]
		sel := part[br+1 : len(part)-1]
		t := token{name: name}
		if len(sel) >= 2 && sel[0] == '"' && sel[len(sel)-1] == '"' {
			t.literal = sel[1 : len(sel)-1]
			t.hasLit = true
		} else {
			n, err := strconv.Atoi(sel)
			if err != nil {
				return nil, errors.E(op, errors.InvalidInput, errors.Errorf("bad bracket selector %q", sel))
			}
			t.index = n
			t.hasIdx = true
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// Get resolves expr against the block and returns the raw value.
func (b *Block) Get(expr string) (interface{}, error) {
	const op = "configblock.Get"
	tokens, err := parseExpr(expr)
	if err != nil {
		return nil, err
	}
	cur := b.root
	for _, t := range tokens {
		m, ok := asMap(cur)
		if !ok {
			return nil, errors.E(op, errors.NotFound, errors.Errorf("%q: not an object at %q", expr, t.name))
		}
		next, ok := m[t.name]
		if !ok {
			return nil, errors.E(op, errors.NotFound, errors.Errorf("%q: no key %q", expr, t.name))
		}
		switch {
		case t.hasLit:
			next, ok = selectByLabel(next, t.literal)
			if !ok {
				return nil, errors.E(op, errors.NotFound, errors.Errorf("%q: no block %q[%q]", expr, t.name, t.literal))
			}
		case t.hasIdx:
			list, ok := next.([]interface{})
			if !ok || t.index < 0 || t.index >= len(list) {
				return nil, errors.E(op, errors.NotFound, errors.Errorf("%q: index %d out of range for %q", expr, t.index, t.name))
			}
			next = list[t.index]
		}
		cur = next
	}
	return cur, nil
}

// selectByLabel finds the member of a decoded HCL labeled block whose
// label equals name. HCL decodes a single occurrence of a labeled block
// as a map keyed directly by the label; repeated occurrences decode as a
// list of single-key maps. Both shapes are handled here.
func selectByLabel(v interface{}, name string) (interface{}, bool) {
	switch x := v.(type) {
	case map[string]interface{}:
		if inner, ok := x[name]; ok {
			return inner, true
		}
		return nil, false
	case []map[string]interface{}:
		for _, entry := range x {
			if inner, ok := entry[name]; ok {
				return inner, true
			}
		}
		return nil, false
	case []interface{}:
		for _, elem := range x {
			if m, ok := elem.(map[string]interface{}); ok {
				if inner, ok := m[name]; ok {
					return inner, true
				}
			}
		}
		return nil, false
	}
	return nil, false
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// GetString resolves expr and requires a string result.
func (b *Block) GetString(expr string) (string, error) {
	const op = "configblock.GetString"
	v, err := b.Get(expr)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.E(op, errors.InvalidInput, errors.Errorf("%q: not a string (%T)", expr, v))
	}
	return s, nil
}

// GetInt resolves expr and requires an integer result.
func (b *Block) GetInt(expr string) (int64, error) {
	const op = "configblock.GetInt"
	v, err := b.Get(expr)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, errors.E(op, errors.InvalidInput, errors.Errorf("%q: not an integer (%T)", expr, v))
}

// GetFloat64 resolves expr and requires a numeric result.
func (b *Block) GetFloat64(expr string) (float64, error) {
	const op = "configblock.GetFloat64"
	v, err := b.Get(expr)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, errors.E(op, errors.InvalidInput, errors.Errorf("%q: not a number (%T)", expr, v))
}

// GetBool resolves expr and requires a boolean result.
func (b *Block) GetBool(expr string) (bool, error) {
	const op = "configblock.GetBool"
	v, err := b.Get(expr)
	if err != nil {
		return false, err
	}
	bl, ok := v.(bool)
	if !ok {
		return false, errors.E(op, errors.InvalidInput, errors.Errorf("%q: not a bool (%T)", expr, v))
	}
	return bl, nil
}

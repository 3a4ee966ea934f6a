package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NamedJump is a relative navigation target with a fixed non-positive code.
type NamedJump int

const (
	JumpThisPage     NamedJump = 0
	JumpNextPage     NamedJump = -1
	JumpEndOfLesson  NamedJump = -9
	JumpPreviousPage NamedJump = -40
)

var namedJumps = map[NamedJump]string{
	JumpThisPage:     "thispage",
	JumpNextPage:     "nextpage",
	JumpEndOfLesson:  "endoflesson",
	JumpPreviousPage: "previouspage",
}

// Name returns the symbolic name used as anchor fragment and label key.
func (n NamedJump) Name() string { return namedJumps[n] }

// JumpTarget is either a NamedJump (code <= 0) or another page's ID (code > 0).
type JumpTarget struct {
	code int64
}

// Named returns a jump to a relative target.
func Named(n NamedJump) JumpTarget { return JumpTarget{code: int64(n)} }

// PageID returns a jump to the page with the given ID.
func PageID(id int64) JumpTarget { return JumpTarget{code: id} }

// JumpFromCode wraps a raw stored jump code.
func JumpFromCode(code int64) JumpTarget { return JumpTarget{code: code} }

// ParseJumpFragment converts an anchor fragment ("nextpage", "7") back
// into a jump. Unknown names report false.
func ParseJumpFragment(fragment string) (JumpTarget, bool) {
	for n, name := range namedJumps {
		if name == fragment {
			return Named(n), true
		}
	}
	code, err := strconv.ParseInt(fragment, 10, 64)
	if err != nil {
		return JumpTarget{}, false
	}
	return JumpFromCode(code), true
}

// Code returns the raw jump code.
func (j JumpTarget) Code() int64 { return j.code }

// IsNamed reports whether the jump is relative rather than a page ID.
func (j JumpTarget) IsNamed() bool { return j.code <= 0 }

// NamedJump returns the relative target. ok is false for page IDs and for
// non-positive codes missing from the jump table.
func (j JumpTarget) NamedJump() (NamedJump, bool) {
	if !j.IsNamed() {
		return 0, false
	}
	n := NamedJump(j.code)
	_, ok := namedJumps[n]
	return n, ok
}

// PageID returns the target page ID when the jump is not named.
func (j JumpTarget) PageID() (int64, bool) {
	if j.IsNamed() {
		return 0, false
	}
	return j.code, true
}

func (j JumpTarget) String() string {
	if n, ok := j.NamedJump(); ok {
		return n.Name()
	}
	return strconv.FormatInt(j.code, 10)
}

// MarshalJSON writes named jumps by name and page jumps as numbers.
func (j JumpTarget) MarshalJSON() ([]byte, error) {
	if n, ok := j.NamedJump(); ok {
		return json.Marshal(n.Name())
	}
	return json.Marshal(j.code)
}

// UnmarshalJSON accepts a jump name ("nextpage") or a raw code.
func (j *JumpTarget) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		jt, ok := ParseJumpFragment(name)
		if !ok {
			return fmt.Errorf("unknown jump %q", name)
		}
		*j = jt
		return nil
	}
	var code int64
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("jump must be a name or an integer code: %w", err)
	}
	j.code = code
	return nil
}

// PageTitles is the read-only page ID to title lookup used to label jumps.
type PageTitles interface {
	PageTitle(id int64) (string, bool)
}

// PageTitleMap is a PageTitles backed by a map.
type PageTitleMap map[int64]string

// PageTitle implements PageTitles.
func (m PageTitleMap) PageTitle(id int64) (string, bool) {
	t, ok := m[id]
	return t, ok
}

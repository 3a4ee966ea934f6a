package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuestion marks a violated structural precondition.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrMalformedQuestion is the export-side name for ErrInvalidQuestion.
	ErrMalformedQuestion = ErrInvalidQuestion
	// ErrUnresolvedJump marks a jump found in neither the jump table nor the page index.
	ErrUnresolvedJump = errors.New("unresolved jump")
	// ErrParse marks import input missing a required node.
	ErrParse = errors.New("parse error")
	// ErrRender marks a failed markup transform.
	ErrRender = errors.New("render failed")
	// ErrNotFound is returned by lookups of missing lessons or pages.
	ErrNotFound = errors.New("not found")
)

// QuestionError reports which page failed during a batch conversion.
type QuestionError struct {
	QuestionID int64
	Title      string
	Err        error
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("page %d (%q): %v", e.QuestionID, e.Title, e.Err)
}

func (e *QuestionError) Unwrap() error { return e.Err }

// Provides common chit error definitions.
package chit_errors

import "errors"

// Error kinds. Every error returned by chit satisfies errors.Is against
// exactly one of these.
var (
	ErrNotFound         = errors.New("chit: not found")
	ErrValidation       = errors.New("chit: validation failure")
	ErrPrecondition     = errors.New("chit: precondition violation")
	ErrNoCommonAncestor = errors.New("chit: no common ancestor")
	ErrMissingPatch     = errors.New("chit: commit has no producing patch")
	ErrCyclicHistory    = errors.New("chit: cyclic commit history")
	ErrIO               = errors.New("chit: io failure")
)

// Refinements of the kinds above.
var (
	ErrCommitNotFound       = Kind(ErrNotFound, "chit: commit not found")
	ErrWorkingPatchNotEmpty = Kind(ErrPrecondition, "chit: working patch is not empty")
	ErrDetachedHead         = Kind(ErrPrecondition, "chit: detached head")
	ErrNotInWorkingState    = Kind(ErrNotFound, "chit: entity is not in the working state")
	ErrBadContextPath       = Kind(ErrValidation, "chit: bad context path")
	ErrBadFileName          = Kind(ErrValidation, "chit: not a patch file name")
	ErrUniverseMismatch     = Kind(ErrValidation, "chit: index universe does not match")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Kind makes a new sentinel that matches kind under errors.Is.
func Kind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

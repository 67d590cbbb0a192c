package chit_errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.True(t, errors.Is(ErrWorkingPatchNotEmpty, ErrPrecondition))
	assert.True(t, errors.Is(ErrDetachedHead, ErrPrecondition))
	assert.True(t, errors.Is(ErrCommitNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrDetachedHead, ErrWorkingPatchNotEmpty))

	wrapped := fmt.Errorf("merge: %w", ErrDetachedHead)
	assert.True(t, errors.Is(wrapped, ErrDetachedHead))
	assert.True(t, errors.Is(wrapped, ErrPrecondition))
	assert.Equal(t, "merge: chit: detached head", wrapped.Error())
}

func TestKind_Refinements(t *testing.T) {
	kinds := map[error]error{
		ErrCommitNotFound:       ErrNotFound,
		ErrNotInWorkingState:    ErrNotFound,
		ErrWorkingPatchNotEmpty: ErrPrecondition,
		ErrDetachedHead:         ErrPrecondition,
		ErrBadContextPath:       ErrValidation,
		ErrBadFileName:          ErrValidation,
		ErrUniverseMismatch:     ErrValidation,
	}
	for refined, kind := range kinds {
		assert.ErrorIs(t, refined, kind, refined.Error())
		assert.NotErrorIs(t, refined, ErrIO, refined.Error())
	}
}

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &Error{Kind: ErrStorage, Entity: EntityUserStory, ID: "US-1", Err: cause}

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "user story US-1: storage failure", err.Error())
}

func TestErrorMessageWins(t *testing.T) {
	err := &Error{Kind: ErrValidation, Field: "title", Message: "title is required"}
	assert.Equal(t, "title is required", err.Error())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		user bool
	}{
		{"validation", &Error{Kind: ErrValidation}, "validation", true},
		{"already exists", &Error{Kind: ErrAlreadyExists}, "already_exists", true},
		{"not found", &Error{Kind: ErrNotFound}, "not_found", true},
		{"parent not found", &Error{Kind: ErrParentNotFound}, "parent_not_found", true},
		{"limit exceeded", &Error{Kind: ErrLimitExceeded}, "limit_exceeded", true},
		{"storage", &Error{Kind: ErrStorage}, "storage", false},
		{"wrapped typed error", fmt.Errorf("call: %w", &Error{Kind: ErrNotFound}), "not_found", true},
		{"plain error", errors.New("boom"), "storage", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
			assert.Equal(t, tt.user, IsUserError(tt.err))
		})
	}
}

package apierrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code string
	}{
		{"unauthorized", Unauthorized(""), "UNAUTHORIZED"},
		{"forbidden", Forbidden(""), "FORBIDDEN"},
		{"not found", NotFound("Account not found"), "NOT_FOUND"},
		{"validation", Validation("bad"), "BAD_REQUEST"},
		{"rate limit", RateLimitExceeded(""), "RATE_LIMIT_EXCEEDED"},
		{"two factor", TwoFactorRequired(""), "2FA_REQUIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ext gqlerrors.ExtendedError = tt.err
			assert.Equal(t, tt.code, ext.Extensions()["code"])
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestIsFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("create gift cards: %w", Forbidden("nope"))

	assert.True(t, Is(err, CodeForbidden))
	assert.False(t, Is(err, CodeNotFound))
	assert.Equal(t, CodeForbidden, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(NotFound("Account not found"), cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Account not found: connection refused", err.Error())
}

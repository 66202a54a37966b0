package dalerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{&ConnectionError{Op: "open", Cause: errors.New("refused")}, ErrConnection},
		{&TimeoutError{Op: "checkout"}, ErrTimeout},
		{&SyntaxTranslationError{Dialect: "mssql", Construct: "REGEXP"}, ErrSyntaxTranslation},
		{&IdentifierValidationError{Identifier: "a;b", Reason: "bad"}, ErrIdentifierValidation},
		{&TypeMismatchError{Table: "t", Column: "c"}, ErrTypeMismatch},
		{&DestructiveChangeBlocked{Pending: []string{"drop t.c"}}, ErrDestructiveChangeBlocked},
		{&IntrospectionError{Cause: errors.New("denied")}, ErrIntrospection},
		{&UnresolvedReferenceError{Table: "t", Field: "f", Target: "x"}, ErrUnresolvedReference},
		{&NonTransactionalError{Dialect: "mysql"}, ErrNonTransactional},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("outer: %w", tt.err)
		assert.ErrorIs(t, wrapped, tt.sentinel, tt.err.Error())
	}
}

func TestTimeoutUnwrapsCause(t *testing.T) {
	err := &TimeoutError{Op: "statement", Cause: context.DeadlineExceeded}
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsConnection(err))
}

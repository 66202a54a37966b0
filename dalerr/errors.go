// Package dalerr defines the error kinds surfaced by the schema model, the
// dialect compilers, the migration planner and the connection pool.
//
// Every kind is a concrete type that matches its sentinel through errors.Is,
// so callers can either branch on the sentinel or extract details with
// errors.As.
package dalerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrConnection is matched by *ConnectionError.
	ErrConnection = errors.New("connection error")

	// ErrTimeout is matched by *TimeoutError.
	ErrTimeout = errors.New("timeout")

	// ErrSyntaxTranslation is matched by *SyntaxTranslationError.
	ErrSyntaxTranslation = errors.New("construct not representable in dialect")

	// ErrIdentifierValidation is matched by *IdentifierValidationError.
	ErrIdentifierValidation = errors.New("unsafe identifier")

	// ErrTypeMismatch is matched by *TypeMismatchError.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDestructiveChangeBlocked is matched by *DestructiveChangeBlocked.
	ErrDestructiveChangeBlocked = errors.New("destructive change blocked")

	// ErrIntrospection is matched by *IntrospectionError.
	ErrIntrospection = errors.New("introspection failed")

	// ErrUnresolvedReference is matched by *UnresolvedReferenceError.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrNonTransactional is matched by *NonTransactionalError.
	ErrNonTransactional = errors.New("non-transactional DDL not acknowledged")

	// ErrRegistryFinalized is returned when a finalized registry is modified.
	ErrRegistryFinalized = errors.New("registry is finalized")

	// ErrPoolClosed is returned when a closed pool is used.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrConnReleased is returned when a released connection is used.
	ErrConnReleased = errors.New("connection already released")

	// ErrConfig is returned for invalid or unrecognized configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrMigrationInProgress is returned when a plan is applied while another
	// plan is being applied against the same registry.
	ErrMigrationInProgress = errors.New("migration already in progress")
)

// ConnectionError reports an unreachable or dropped backend.
type ConnectionError struct {
	Op       string
	Attempts int
	Cause    error
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("connection error during %s after %d attempts: %v", e.Op, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Cause)
}

func (e *ConnectionError) Unwrap() error        { return e.Cause }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// TimeoutError reports an exceeded checkout or statement deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
	}
	return fmt.Sprintf("%s timed out", e.Op)
}

func (e *TimeoutError) Unwrap() error        { return e.Cause }
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// SyntaxTranslationError reports a logical construct with no representation
// in the target dialect.
type SyntaxTranslationError struct {
	Dialect   string
	Construct string
	Reason    string
}

func (e *SyntaxTranslationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: cannot translate %s: %s", e.Dialect, e.Construct, e.Reason)
	}
	return fmt.Sprintf("%s: cannot translate %s", e.Dialect, e.Construct)
}

func (e *SyntaxTranslationError) Is(target error) bool { return target == ErrSyntaxTranslation }

// IdentifierValidationError reports an identifier rejected before it could
// be embedded in SQL text.
type IdentifierValidationError struct {
	Dialect    string
	Identifier string
	Reason     string
}

func (e *IdentifierValidationError) Error() string {
	if e.Dialect == "" {
		return fmt.Sprintf("identifier %q rejected: %s", e.Identifier, e.Reason)
	}
	return fmt.Sprintf("%s: identifier %q rejected: %s", e.Dialect, e.Identifier, e.Reason)
}

func (e *IdentifierValidationError) Is(target error) bool { return target == ErrIdentifierValidation }

// TypeMismatchError reports a declared type the planner cannot bridge to the
// live column type.
type TypeMismatchError struct {
	Table    string
	Column   string
	Declared string
	Live     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("column %s.%s: declared %s is incompatible with live %s",
		e.Table, e.Column, e.Declared, e.Live)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// DestructiveChangeBlocked lists the drops a plan needed but did not
// schedule because destructive mode was off.
type DestructiveChangeBlocked struct {
	Pending []string
}

func (e *DestructiveChangeBlocked) Error() string {
	return fmt.Sprintf("destructive mode is off; %d change(s) pending: %s",
		len(e.Pending), strings.Join(e.Pending, "; "))
}

func (e *DestructiveChangeBlocked) Is(target error) bool {
	return target == ErrDestructiveChangeBlocked
}

// IntrospectionError reports that the live schema could not be read.
type IntrospectionError struct {
	Table string
	Cause error
}

func (e *IntrospectionError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("introspection of %s failed: %v", e.Table, e.Cause)
	}
	return fmt.Sprintf("introspection failed: %v", e.Cause)
}

func (e *IntrospectionError) Unwrap() error        { return e.Cause }
func (e *IntrospectionError) Is(target error) bool { return target == ErrIntrospection }

// UnresolvedReferenceError reports a reference field whose target table was
// never defined.
type UnresolvedReferenceError struct {
	Table  string
	Field  string
	Target string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("field %s.%s references undefined table %q", e.Table, e.Field, e.Target)
}

func (e *UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

// NonTransactionalError reports plan steps the backend cannot run inside a
// transaction. The caller must acknowledge them before they are applied.
type NonTransactionalError struct {
	Dialect string
	Steps   []string
}

func (e *NonTransactionalError) Error() string {
	return fmt.Sprintf("%s cannot run %d step(s) transactionally: %s",
		e.Dialect, len(e.Steps), strings.Join(e.Steps, "; "))
}

func (e *NonTransactionalError) Is(target error) bool { return target == ErrNonTransactional }

// IsConnection reports whether err is a connection error.
func IsConnection(err error) bool { return errors.Is(err, ErrConnection) }

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsSyntaxTranslation reports whether err is a syntax translation error.
func IsSyntaxTranslation(err error) bool { return errors.Is(err, ErrSyntaxTranslation) }

// IsIdentifierValidation reports whether err is an identifier validation error.
func IsIdentifierValidation(err error) bool { return errors.Is(err, ErrIdentifierValidation) }

// IsTypeMismatch reports whether err is a type mismatch.
func IsTypeMismatch(err error) bool { return errors.Is(err, ErrTypeMismatch) }

// IsIntrospection reports whether err is an introspection error.
func IsIntrospection(err error) bool { return errors.Is(err, ErrIntrospection) }

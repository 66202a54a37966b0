package introspect

import (
	"errors"

	"github.com/satishbabariya/godal/dalerr"
)

var (
	ErrUnsupportedDialect = errors.New("unsupported dialect")
	ErrTableNotFound      = errors.New("table not found")
)

func fail(table string, err error) error {
	var ie *dalerr.IntrospectionError
	if errors.As(err, &ie) {
		return err
	}
	return &dalerr.IntrospectionError{Table: table, Cause: err}
}

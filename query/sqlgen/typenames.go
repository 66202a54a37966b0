package sqlgen

import (
	"fmt"

	"github.com/satishbabariya/godal/types"
)

// typeNames is the native spelling of each logical type on one backend.
// Empty json and list entries fall back to text.
type typeNames struct {
	integer  string
	bigint   string
	double   string
	decimal  string
	boolean  string
	varchar  string
	text     string
	date     string
	datetime string
	time     string
	binary   string
	json     string
	list     string
}

func (n typeNames) render(t types.Type) (string, error) {
	switch t.Kind() {
	case types.Integer, types.Identity, types.Reference:
		return n.integer, nil
	case types.BigInt, types.BigIdentity, types.BigReference:
		return n.bigint, nil
	case types.Double:
		return n.double, nil
	case types.Decimal:
		if t.Precision() == 0 {
			return n.decimal, nil
		}
		return fmt.Sprintf("%s(%d,%d)", n.decimal, t.Precision(), t.Scale()), nil
	case types.Boolean:
		return n.boolean, nil
	case types.String:
		length := t.Length()
		if length == 0 {
			length = types.DefaultStringLength
		}
		return fmt.Sprintf("%s(%d)", n.varchar, length), nil
	case types.Text:
		return n.text, nil
	case types.Date:
		return n.date, nil
	case types.DateTime:
		return n.datetime, nil
	case types.Time:
		return n.time, nil
	case types.Binary:
		return n.binary, nil
	case types.JSON:
		if n.json != "" {
			return n.json, nil
		}
		return n.text, nil
	case types.List:
		if n.list != "" {
			return n.list, nil
		}
		return n.text, nil
	}
	return "", fmt.Errorf("no column type for %s", t)
}

func numericBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

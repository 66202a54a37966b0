package sqlgen

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// List fields are stored as text: every element is written between
// separators and a separator inside an element is doubled, so "|a|b||c|"
// holds "a" and "b|c". An element may not begin or end with the separator:
// ["a|", "b"] and ["a", "|b"] would both encode as "|a|||b|".
const listSeparator = "|"

// ErrListElement is returned by EncodeList for an element that begins or
// ends with the separator.
var ErrListElement = errors.New("list element begins or ends with " + listSeparator)

func escapeListItem(s string) string {
	return strings.ReplaceAll(s, listSeparator, listSeparator+listSeparator)
}

// EncodeList encodes a slice into its stored form. A string is taken as
// already encoded.
func EncodeList(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("list value must be a slice, got %T", v)
	}
	if rv.Len() == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(listSeparator)
	for i := 0; i < rv.Len(); i++ {
		item := fmt.Sprint(rv.Index(i).Interface())
		if strings.HasPrefix(item, listSeparator) || strings.HasSuffix(item, listSeparator) {
			return "", fmt.Errorf("%w: %q", ErrListElement, item)
		}
		sb.WriteString(escapeListItem(item))
		sb.WriteString(listSeparator)
	}
	return sb.String(), nil
}

// DecodeList splits a stored list into its elements.
func DecodeList(s string) []string {
	if len(s) < 2 {
		return nil
	}
	var (
		out []string
		cur strings.Builder
	)
	body := s[1:]
	for i := 0; i < len(body); i++ {
		if body[i] != listSeparator[0] {
			cur.WriteByte(body[i])
			continue
		}
		if i+1 < len(body) && body[i+1] == listSeparator[0] && i+1 != len(body)-1 {
			cur.WriteByte(body[i])
			i++
			continue
		}
		out = append(out, cur.String())
		cur.Reset()
	}
	return out
}

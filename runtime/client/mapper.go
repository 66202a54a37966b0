package client

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/satishbabariya/godal/runtime/driver"
)

// Rows is a materialized result set.
type Rows struct {
	Columns []string
	Records []map[string]any
}

// Len returns the number of records.
func (r *Rows) Len() int { return len(r.Records) }

// Values returns the column of every record, in order.
func (r *Rows) Values(column string) []any {
	out := make([]any, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec[column]
	}
	return out
}

// collect reads every row of rows and closes it.
func collect(rows driver.Rows) (*Rows, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			rec[col] = values[i]
		}
		out.Records = append(out.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, rows.Close()
}

// Decode maps every record onto a T. Columns are matched to fields by db
// tag, then by name ignoring case; unmatched columns are skipped.
func Decode[T any](r *Rows) ([]T, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("decode: %s is not a struct", typ)
	}
	fields := make(map[string][]int, len(r.Columns))
	for _, col := range r.Columns {
		if f, ok := findFieldByName(typ, col); ok {
			fields[col] = f.Index
		}
	}

	out := make([]T, len(r.Records))
	for i, rec := range r.Records {
		val := reflect.ValueOf(&out[i]).Elem()
		for col, index := range fields {
			if err := assign(val.FieldByIndex(index), rec[col]); err != nil {
				return nil, fmt.Errorf("decode %s: %w", col, err)
			}
		}
	}
	return out, nil
}

// findFieldByName finds a struct field by column name (db tag or field name).
func findFieldByName(typ reflect.Type, column string) (reflect.StructField, bool) {
	var fallback reflect.StructField
	found := false
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		if tag == "-" {
			continue
		}
		if tag == column {
			return field, true
		}
		if tag == "" && !found && strings.EqualFold(field.Name, column) {
			fallback, found = field, true
		}
	}
	return fallback, found
}

var timeType = reflect.TypeFor[time.Time]()

// assign stores a driver value in dst, converting between the numeric,
// string and byte representations drivers use.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(v)
	if b, ok := v.([]byte); ok {
		switch dst.Kind() {
		case reflect.String:
			dst.SetString(string(b))
			return nil
		case reflect.Slice:
			if dst.Type().Elem().Kind() == reflect.Uint8 {
				dst.SetBytes(append([]byte(nil), b...))
				return nil
			}
		}
		src = reflect.ValueOf(string(b))
	}

	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case dst.Kind() == reflect.Bool && src.CanInt():
		dst.SetBool(src.Int() != 0)
	case dst.Type() == timeType || src.Type() == timeType:
		return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
	case dst.Kind() == reflect.String && src.Kind() != reflect.String:
		dst.SetString(fmt.Sprint(v))
	case src.Kind() == reflect.String && dst.Kind() == reflect.String:
		dst.SetString(src.String())
	case src.Kind() == reflect.String && dst.CanAddr():
		if _, err := fmt.Sscan(src.String(), dst.Addr().Interface()); err != nil {
			return fmt.Errorf("cannot assign %q to %s: %w", src.String(), dst.Type(), err)
		}
	case src.Type().ConvertibleTo(dst.Type()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
	}
	return nil
}

// Package csvexport serializes flat records into the playlist CSV format.
//
// The format is deliberately minimal: a header built from `csv` struct tags,
// then one line per record with every value wrapped in double quotes. Lines
// are separated by "\n" and the output has no trailing newline. Embedded
// quotes are left as-is unless Options.EscapeQuotes is set.
package csvexport

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/toozej/playlist2csv/internal/types"
)

// Options controls value encoding
type Options struct {
	// EscapeQuotes doubles embedded double quotes (RFC 4180 style)
	EscapeQuotes bool
}

// Header returns the column names for a struct type. The `csv` tag is used
// when present, otherwise the field name. Unexported fields and fields
// tagged `csv:"-"` are skipped.
func Header(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var headers []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		csvTag := field.Tag.Get("csv")
		if csvTag == "-" {
			continue
		}

		headerName := field.Name
		if csvTag != "" {
			headerName = csvTag
		}
		headers = append(headers, headerName)
	}
	return headers
}

// Encode writes records to w. The header comes from the first record's type.
// It returns types.ErrEmptyExport when there is nothing to write.
func Encode[T any](w io.Writer, records []T, opts Options) error {
	if len(records) == 0 {
		return types.ErrEmptyExport
	}

	first := reflect.ValueOf(records[0])
	if first.Kind() == reflect.Ptr {
		first = first.Elem()
	}
	if first.Kind() != reflect.Struct {
		return fmt.Errorf("records must be structs, got %s", first.Kind())
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(Header(first.Type()), ","))

	for i, record := range records {
		row, err := encodeRow(record, opts)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		lines = append(lines, row)
	}

	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func encodeRow(record any, opts Options) (string, error) {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", fmt.Errorf("nil record")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", fmt.Errorf("records must be structs, got %s", v.Kind())
	}

	t := v.Type()
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("csv") == "-" {
			continue
		}
		values = append(values, quote(fmt.Sprint(v.Field(i).Interface()), opts))
	}

	return strings.Join(values, ","), nil
}

func quote(value string, opts Options) string {
	if opts.EscapeQuotes {
		value = strings.ReplaceAll(value, `"`, `""`)
	}
	return `"` + value + `"`
}

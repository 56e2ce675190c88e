package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"record-i18n/internal/record"
	"record-i18n/internal/schema"
	"record-i18n/internal/setutil"
	"record-i18n/internal/sqltype"
	"record-i18n/internal/uuidutil"
)

// coerceWriteFields normalizes a field map for persistence per column kind.
// The args map holds driver-ready values; the rec map holds what the row
// image keeps, which differs only where storage and record forms diverge,
// like binary UUID columns.
func coerceWriteFields(t *schema.RecordType, fields map[string]any) (rec map[string]any, args map[string]any, err error) {
	rec = make(map[string]any, len(fields))
	args = make(map[string]any, len(fields))
	for name, value := range fields {
		col, ok := t.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown column %q for record type %q", name, t.Name)
		}
		recValue, arg, err := coerceWriteValue(col, value)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s.%s: %w", t.Table, name, err)
		}
		rec[name] = recValue
		args[name] = arg
	}
	return rec, args, nil
}

// coerceWriteValue converts one field value into its record and SQL argument
// forms.
func coerceWriteValue(col schema.Column, value any) (any, any, error) {
	if value == nil {
		return nil, nil, nil
	}

	switch col.Kind() {
	case sqltype.KindUUID:
		parsed, canonical, err := uuidutil.Canonicalize(value)
		if err != nil {
			return nil, nil, err
		}
		if uuidutil.BinaryStorage(col.DataType) {
			return canonical, uuidutil.Bytes(parsed), nil
		}
		return canonical, canonical, nil

	case sqltype.KindSet:
		// Discovery warns when member parsing fails; unparsed sets pass through.
		if len(col.EnumValues) == 0 {
			return value, value, nil
		}
		csv, err := setutil.CanonicalizeValue(value, col.EnumValues)
		if err != nil {
			return nil, nil, err
		}
		return csv, csv, nil

	case sqltype.KindEnum:
		if len(col.EnumValues) == 0 {
			return value, value, nil
		}
		s, err := enumString(value)
		if err != nil {
			return nil, nil, err
		}
		if !slices.Contains(col.EnumValues, s) {
			return nil, nil, fmt.Errorf("invalid enum value %q, allowed: %s", s, strings.Join(col.EnumValues, ", "))
		}
		return s, s, nil

	case sqltype.KindJSON:
		switch value.(type) {
		case string, []byte, json.RawMessage:
			return value, value, nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode JSON value: %w", err)
		}
		return value, string(encoded), nil

	case sqltype.KindBool:
		if b, ok := value.(bool); ok {
			return b, b, nil
		}
		b := record.Truthy(value)
		return b, b, nil

	case sqltype.KindInt:
		if b, ok := value.(bool); ok {
			n := int64(0)
			if b {
				n = 1
			}
			return n, n, nil
		}
		n, ok := record.CoerceID(value)
		if !ok {
			return nil, nil, fmt.Errorf("invalid integer value %v", value)
		}
		return n, n, nil

	default:
		// Strings, floats, times, and raw binary pass through; the driver
		// handles their native representations.
		return value, value, nil
	}
}

func enumString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("enum value must be a string, got %T", value)
	}
}

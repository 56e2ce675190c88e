package store

import (
	"strings"

	"record-i18n/internal/dbexec"
	"record-i18n/internal/record"
	"record-i18n/internal/schema"
	"record-i18n/internal/sqltype"
	"record-i18n/internal/uuidutil"
)

// scanRecords reads all rows into hydrated records. Columns are scanned in
// the type's column order, matching the SELECT lists built by this package.
func scanRecords(rows dbexec.Rows, t *schema.RecordType) ([]*record.Record, error) {
	var out []*record.Record
	for rows.Next() {
		values := make([]any, len(t.Columns))
		dest := make([]any, len(t.Columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		fields := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			fields[col.Name] = normalizeValue(col, values[i])
		}
		out = append(out, record.Hydrate(t.Name, fields))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue converts driver byte slices to strings for textual columns.
// UUID columns normalize to their canonical text form regardless of storage;
// other binary column types keep their raw bytes.
func normalizeValue(col schema.Column, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if col.Kind() == sqltype.KindUUID {
		if _, canonical, err := uuidutil.Canonicalize(b); err == nil {
			return canonical
		}
		return b
	}
	switch strings.ToLower(col.DataType) {
	case "binary", "varbinary", "blob", "tinyblob", "mediumblob", "longblob", "bit":
		return b
	default:
		return string(b)
	}
}

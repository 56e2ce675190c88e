// Package uuidutil normalizes UUID values flowing between payloads, records,
// and column storage.
package uuidutil

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Canonicalize accepts the representations UUID values arrive in, canonical
// or uppercase strings from payloads and raw RFC-order bytes from binary
// storage, and returns the parsed UUID with its canonical lower-case string.
func Canonicalize(value any) (uuid.UUID, string, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, strings.ToLower(v.String()), nil
	case string:
		parsed, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("invalid UUID value")
		}
		return parsed, strings.ToLower(parsed.String()), nil
	case []byte:
		if len(v) == 16 {
			parsed, err := uuid.FromBytes(v)
			if err != nil {
				return uuid.Nil, "", fmt.Errorf("invalid UUID bytes")
			}
			return parsed, strings.ToLower(parsed.String()), nil
		}
		// Text storage scans as bytes with some driver configurations.
		return Canonicalize(string(v))
	default:
		return uuid.Nil, "", fmt.Errorf("UUID value must be a string")
	}
}

// Bytes returns the RFC-order bytes of a UUID for binary column storage.
func Bytes(u uuid.UUID) []byte {
	out := make([]byte, len(u))
	copy(out, u[:])
	return out
}

// BinaryStorage reports whether a SQL type stores UUID values as raw bytes.
func BinaryStorage(dataType string) bool {
	baseType := strings.ToLower(strings.TrimSpace(dataType))
	return baseType == "binary" || baseType == "varbinary"
}

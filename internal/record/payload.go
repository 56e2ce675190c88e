package record

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Payload is one nested attribute mapping with a stable key order. Keys keep
// the order in which they were first set so rewrites and field application
// stay deterministic regardless of map iteration.
type Payload struct {
	keys   []string
	fields map[string]any
}

// NewPayload returns an empty payload.
func NewPayload() *Payload {
	return &Payload{fields: make(map[string]any)}
}

// PayloadFromMap builds a payload from a plain map. Keys are applied in
// sorted order since map iteration carries none.
func PayloadFromMap(m map[string]any) *Payload {
	p := &Payload{
		keys:   make([]string, 0, len(m)),
		fields: make(map[string]any, len(m)),
	}
	for _, k := range sortedKeys(m) {
		p.Set(k, m[k])
	}
	return p
}

// Set writes a field. First writes append to the key order.
func (p *Payload) Set(key string, value any) {
	if _, ok := p.fields[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.fields[key] = value
}

// Get returns a field value and whether the field is present.
func (p *Payload) Get(key string) (any, bool) {
	v, ok := p.fields[key]
	return v, ok
}

// Delete removes a field if present.
func (p *Payload) Delete(key string) {
	if _, ok := p.fields[key]; !ok {
		return
	}
	delete(p.fields, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (p *Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of fields.
func (p *Payload) Len() int { return len(p.fields) }

// Empty reports whether no field remains. An empty payload assigned to an
// association is a no-op.
func (p *Payload) Empty() bool { return len(p.fields) == 0 }

// Fields returns a copy of the payload as a plain map.
func (p *Payload) Fields() map[string]any {
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy preserving key order.
func (p *Payload) Clone() *Payload {
	out := &Payload{
		keys:   make([]string, len(p.keys)),
		fields: make(map[string]any, len(p.fields)),
	}
	copy(out.keys, p.keys)
	for k, v := range p.fields {
		out.fields[k] = v
	}
	return out
}

// ID returns the raw id field when it is present and meaningful. Nil and
// blank string ids count as absent, matching form input where an empty id
// column means "new row".
func (p *Payload) ID() (any, bool) {
	v, ok := p.fields[FieldID]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// RecordID returns the id field coerced to int64. ok is false when the id
// is absent or not coercible.
func (p *Payload) RecordID() (int64, bool) {
	v, ok := p.ID()
	if !ok {
		return 0, false
	}
	return CoerceID(v)
}

// ClearID drops the id field so downstream assignment treats the payload as
// a build instruction.
func (p *Payload) ClearID() {
	p.Delete(FieldID)
}

// MarkedForDestroy reports whether the payload carries a truthy destroy
// marker.
func (p *Payload) MarkedForDestroy() bool {
	v, ok := p.fields[FieldDestroy]
	return ok && Truthy(v)
}

// Truthy interprets a destroy-marker style value. Nil, false, numeric zero,
// the empty string and the strings "0", "f", "false", "no" and "off"
// (case-insensitive) are false; everything else is true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "f", "false", "no", "off":
			return false
		}
		return true
	case int:
		return t != 0
	case int8:
		return t != 0
	case int16:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint8:
		return t != 0
	case uint16:
		return t != 0
	case uint32:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// CoerceID converts common wire and driver representations of a primary key
// to int64. Floats must be whole numbers and strings must be all digits with
// an optional sign.
func CoerceID(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > 1<<63-1 {
			return 0, false
		}
		return int64(t), true
	case float32:
		return wholeFloatID(float64(t))
	case float64:
		return wholeFloatID(t)
	case json.Number:
		id, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return id, true
	case string:
		return parseStringID(t)
	case []byte:
		return parseStringID(string(t))
	default:
		return 0, false
	}
}

func wholeFloatID(f float64) (int64, bool) {
	id := int64(f)
	if float64(id) != f {
		return 0, false
	}
	return id, true
}

func parseStringID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// sortPayloadKeysNumeric sorts digit-string keys by numeric value. Used for
// keyed collection input where "10" must come after "2".
func sortPayloadKeysNumeric(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseUint(keys[i], 10, 64)
		b, _ := strconv.ParseUint(keys[j], 10, 64)
		return a < b
	})
}

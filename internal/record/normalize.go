package record

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidShape reports raw nested attribute input whose shape cannot be
// interpreted: a scalar where a mapping is required, a keyed collection with
// a non-numeric key, or an element of the wrong kind. Normalization fails
// before any record is touched or looked up.
var ErrInvalidShape = errors.New("invalid nested attributes shape")

// Shape describes which accepted input form a collection payload arrived in.
type Shape int

const (
	// ShapeList is a sequence of mappings, already ordered.
	ShapeList Shape = iota
	// ShapeIndexed is a mapping from numeric string keys to mappings,
	// ordered by numeric key value.
	ShapeIndexed
)

// NormalizeCollection converts raw collection input into an ordered payload
// sequence. Accepted forms are a slice of mappings and a map keyed by
// numeric strings; keyed input is ordered by numeric key so "10" sorts after
// "2". Anything else fails with ErrInvalidShape.
func NormalizeCollection(raw any) ([]*Payload, Shape, error) {
	switch in := raw.(type) {
	case []*Payload:
		out := make([]*Payload, len(in))
		for i, p := range in {
			if p == nil {
				return nil, ShapeList, fmt.Errorf("%w: nil payload at index %d", ErrInvalidShape, i)
			}
			out[i] = p
		}
		return out, ShapeList, nil
	case []map[string]any:
		out := make([]*Payload, len(in))
		for i, m := range in {
			out[i] = PayloadFromMap(m)
		}
		return out, ShapeList, nil
	case []any:
		out := make([]*Payload, len(in))
		for i, elem := range in {
			p, err := payloadFromElement(elem)
			if err != nil {
				return nil, ShapeList, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = p
		}
		return out, ShapeList, nil
	case map[string]any:
		return normalizeIndexed(in)
	case *Payload:
		return nil, ShapeList, fmt.Errorf("%w: single mapping given for collection", ErrInvalidShape)
	case nil:
		return nil, ShapeList, fmt.Errorf("%w: got nil, want slice or keyed map", ErrInvalidShape)
	default:
		return nil, ShapeList, fmt.Errorf("%w: got %T, want slice or keyed map", ErrInvalidShape, raw)
	}
}

// NormalizeSingle converts raw singular association input into one payload.
// Only a mapping is accepted.
func NormalizeSingle(raw any) (*Payload, error) {
	switch in := raw.(type) {
	case *Payload:
		if in == nil {
			return nil, fmt.Errorf("%w: nil payload", ErrInvalidShape)
		}
		return in, nil
	case map[string]any:
		return PayloadFromMap(in), nil
	case nil:
		return nil, fmt.Errorf("%w: got nil, want mapping", ErrInvalidShape)
	default:
		return nil, fmt.Errorf("%w: got %T, want mapping", ErrInvalidShape, raw)
	}
}

// normalizeIndexed handles the keyed collection form. Every key must be a
// numeric string; values are ordered by key value ascending.
func normalizeIndexed(in map[string]any) ([]*Payload, Shape, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		if _, err := strconv.ParseUint(k, 10, 64); err != nil {
			return nil, ShapeIndexed, fmt.Errorf("%w: collection key %q is not numeric", ErrInvalidShape, k)
		}
		keys = append(keys, k)
	}
	sortPayloadKeysNumeric(keys)

	out := make([]*Payload, 0, len(keys))
	for _, k := range keys {
		p, err := payloadFromElement(in[k])
		if err != nil {
			return nil, ShapeIndexed, fmt.Errorf("key %q: %w", k, err)
		}
		out = append(out, p)
	}
	return out, ShapeIndexed, nil
}

func payloadFromElement(elem any) (*Payload, error) {
	switch e := elem.(type) {
	case *Payload:
		if e == nil {
			return nil, fmt.Errorf("%w: nil payload", ErrInvalidShape)
		}
		return e, nil
	case map[string]any:
		return PayloadFromMap(e), nil
	default:
		return nil, fmt.Errorf("%w: got %T, want mapping", ErrInvalidShape, elem)
	}
}

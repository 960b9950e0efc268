package remote

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Normalize rewrites arbitrary Go values into the JSON value space
// (map[string]any, []any, float64, string, bool, nil).
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DataToStruct converts document fields to a protobuf Struct.
func DataToStruct(data map[string]any) (*structpb.Struct, error) {
	norm, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(norm)
}

func filterToMap(f Filter) map[string]any {
	m := map[string]any{"op": string(f.Op)}
	if f.Field != "" {
		m["field"] = f.Field
	}
	if f.Value != nil {
		m["value"] = f.Value
	}
	if len(f.Values) > 0 {
		m["values"] = f.Values
	}
	if len(f.Filters) > 0 {
		subs := make([]any, 0, len(f.Filters))
		for _, sub := range f.Filters {
			subs = append(subs, filterToMap(sub))
		}
		m["filters"] = subs
	}
	return m
}

func filterFromMap(m map[string]any) (Filter, error) {
	op, _ := m["op"].(string)
	f := Filter{Op: Op(op)}
	f.Field, _ = m["field"].(string)
	f.Value = m["value"]
	if vs, ok := m["values"].([]any); ok {
		f.Values = vs
	}
	if subs, ok := m["filters"].([]any); ok {
		for _, raw := range subs {
			sm, ok := raw.(map[string]any)
			if !ok {
				return Filter{}, fmt.Errorf("%w: nested filter is %T", ErrInvalidQuery, raw)
			}
			sub, err := filterFromMap(sm)
			if err != nil {
				return Filter{}, err
			}
			f.Filters = append(f.Filters, sub)
		}
	}
	return f, f.Validate()
}

// QueryToStruct encodes a query for the wire.
func QueryToStruct(q Query) (*structpb.Struct, error) {
	m := map[string]any{"collection": q.Collection}
	if q.ID != "" {
		m["id"] = q.ID
	}
	if q.Filter != nil {
		m["filter"] = filterToMap(*q.Filter)
	}
	return DataToStruct(m)
}

// QueryFromStruct decodes and validates a wire query.
func QueryFromStruct(s *structpb.Struct) (Query, error) {
	if s == nil {
		return Query{}, fmt.Errorf("%w: empty request", ErrInvalidQuery)
	}
	m := s.AsMap()
	var q Query
	q.Collection, _ = m["collection"].(string)
	q.ID, _ = m["id"].(string)
	if fm, ok := m["filter"].(map[string]any); ok {
		f, err := filterFromMap(fm)
		if err != nil {
			return Query{}, err
		}
		q.Filter = &f
	}
	return q, q.Validate()
}

// SnapshotToStruct encodes a snapshot for the wire.
func SnapshotToStruct(snap Snapshot) (*structpb.Struct, error) {
	docs := make([]any, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		data := d.Data
		if data == nil {
			data = map[string]any{}
		}
		docs = append(docs, map[string]any{"id": d.ID, "data": data})
	}
	return DataToStruct(map[string]any{"docs": docs})
}

// SnapshotFromStruct decodes a wire snapshot.
func SnapshotFromStruct(s *structpb.Struct) (Snapshot, error) {
	var snap Snapshot
	if s == nil {
		return snap, nil
	}
	raw, _ := s.AsMap()["docs"].([]any)
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return Snapshot{}, fmt.Errorf("malformed snapshot entry %T", item)
		}
		id, _ := m["id"].(string)
		data, _ := m["data"].(map[string]any)
		snap.Docs = append(snap.Docs, Document{ID: id, Data: data})
	}
	return snap, nil
}

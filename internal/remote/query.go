package remote

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Op is a filter operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpIn  Op = "in"
	OpAnd Op = "and"
	OpOr  Op = "or"
)

// Filter is a predicate tree over dotted document fields.
type Filter struct {
	Op      Op
	Field   string
	Value   any
	Values  []any
	Filters []Filter
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Op: OpEq, Field: field, Value: v}
}

// Gt matches documents whose field is strictly greater than v.
func Gt(field string, v any) Filter {
	return Filter{Op: OpGt, Field: field, Value: v}
}

// In matches documents whose field equals any of values.
func In(field string, values ...any) Filter {
	return Filter{Op: OpIn, Field: field, Values: values}
}

// And matches documents matched by every filter.
func And(fs ...Filter) Filter {
	return Filter{Op: OpAnd, Filters: fs}
}

// Or matches documents matched by at least one filter.
func Or(fs ...Filter) Filter {
	return Filter{Op: OpOr, Filters: fs}
}

// Validate checks the filter tree is well formed.
func (f Filter) Validate() error {
	switch f.Op {
	case OpEq, OpGt:
		if f.Field == "" {
			return fmt.Errorf("%w: %s without field", ErrInvalidQuery, f.Op)
		}
	case OpIn:
		if f.Field == "" {
			return fmt.Errorf("%w: in without field", ErrInvalidQuery)
		}
		if len(f.Values) == 0 {
			return fmt.Errorf("%w: in on %q with no values", ErrInvalidQuery, f.Field)
		}
	case OpAnd, OpOr:
		if len(f.Filters) == 0 {
			return fmt.Errorf("%w: empty %s", ErrInvalidQuery, f.Op)
		}
		for _, sub := range f.Filters {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Op)
	}
	return nil
}

// Match reports whether data satisfies the filter.
func (f Filter) Match(data map[string]any) bool {
	switch f.Op {
	case OpEq:
		v, ok := Lookup(data, f.Field)
		return ok && equal(v, f.Value)
	case OpGt:
		v, ok := Lookup(data, f.Field)
		return ok && greater(v, f.Value)
	case OpIn:
		v, ok := Lookup(data, f.Field)
		if !ok {
			return false
		}
		for _, want := range f.Values {
			if equal(v, want) {
				return true
			}
		}
		return false
	case OpAnd:
		for _, sub := range f.Filters {
			if !sub.Match(data) {
				return false
			}
		}
		return true
	case OpOr:
		for _, sub := range f.Filters {
			if sub.Match(data) {
				return true
			}
		}
		return false
	}
	return false
}

// Query selects documents from one collection: either a single document
// by ID or every document matching Filter (all documents when nil).
type Query struct {
	Collection string
	ID         string
	Filter     *Filter
}

// Collection starts a query over the collection at path.
func Collection(path string) Query {
	return Query{Collection: path}
}

// Doc starts a single-document query.
func Doc(collection, id string) Query {
	return Query{Collection: collection, ID: id}
}

// Where returns a copy of q restricted by f.
func (q Query) Where(f Filter) Query {
	q.Filter = &f
	return q
}

// Validate checks the query is well formed.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: missing collection", ErrInvalidQuery)
	}
	for _, seg := range strings.Split(q.Collection, "/") {
		if seg == "" {
			return fmt.Errorf("%w: bad collection path %q", ErrInvalidQuery, q.Collection)
		}
	}
	if q.Filter != nil {
		return q.Filter.Validate()
	}
	return nil
}

// Matches reports whether doc belongs to the query's result set.
func (q Query) Matches(doc Document) bool {
	if q.ID != "" && doc.ID != q.ID {
		return false
	}
	return q.Filter == nil || q.Filter.Match(doc.Data)
}

func (q Query) String() string {
	if q.ID != "" {
		return q.Collection + "/" + q.ID
	}
	if q.Filter == nil {
		return q.Collection
	}
	b, _ := json.Marshal(filterToMap(*q.Filter))
	return q.Collection + " where " + string(b)
}

// Path joins collection path segments: Path("chats", id, "messages").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// Lookup resolves a dotted field path inside nested maps.
func Lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath assigns v at a dotted field path, creating intermediate maps.
func SetPath(data map[string]any, path string, v any) {
	keys := strings.Split(path, ".")
	m := data
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func greater(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa > fb
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as > bs
	}
	return false
}

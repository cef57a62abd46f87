// Package store provides a typed, keyed multi-index table with O(1)
// prefix lookup along any leading subset of its index dimensions. It is
// the generic engine behind the domain-specific wrappers (ModelResults,
// PartnerData, Funding, ...) that carry the actual column semantics.
//
// Faithful in spirit to the teacher's repository pattern
// (internal/modules/universe/score_repository.go): a small, dependency-free
// data-access type with named construction and explicit error returns,
// generalised here to the multi-index shape the allocation engine needs
// instead of a single SQL table.
package store

import (
	"strings"

	"github.com/globalfund/allocengine/internal/domain"
)

// Key is an ordered tuple of string-encoded index values, one per
// dimension, in the table's declared dimension order.
type Key []string

func (k Key) encode() string {
	return strings.Join(k, "\x1f")
}

// Row pairs a full key with its stored value.
type Row[V any] struct {
	Key   Key
	Value V
}

// Table is a generic multi-index store. Every row is keyed by a fixed
// number of dimensions (e.g. scenario, funding_fraction, country, year,
// indicator). Prefix indices are maintained at every depth so that
// Get(prefix) is an O(1) map lookup regardless of how many leading
// dimensions the caller specifies.
type Table[V any] struct {
	name string
	dims []string
	rows map[string]Row[V]
	// prefixIndex[depth] maps the encoded prefix of that depth to the set
	// of full keys (encoded) sharing it. depth ranges 1..len(dims).
	prefixIndex []map[string][]string
}

// New creates an empty table over the given ordered dimension names.
func New[V any](name string, dims ...string) *Table[V] {
	t := &Table[V]{
		name: name,
		dims: append([]string(nil), dims...),
		rows: make(map[string]Row[V]),
	}
	t.prefixIndex = make([]map[string][]string, len(dims))
	for i := range t.prefixIndex {
		t.prefixIndex[i] = make(map[string][]string)
	}
	return t
}

// Name returns the table's diagnostic name (used in wrapped errors).
func (t *Table[V]) Name() string { return t.name }

// Dims returns the ordered dimension names.
func (t *Table[V]) Dims() []string { return append([]string(nil), t.dims...) }

// Insert adds a row under the given full key. Insertion merges only when
// keys are disjoint; a colliding key fails with ErrDuplicate.
func (t *Table[V]) Insert(key Key, value V) error {
	if len(key) != len(t.dims) {
		return domain.NewKeyError(t.name, key.encode(), domain.ErrNotFound)
	}
	full := key.encode()
	if _, exists := t.rows[full]; exists {
		return domain.NewKeyError(t.name, full, domain.ErrDuplicate)
	}
	t.rows[full] = Row[V]{Key: append(Key(nil), key...), Value: value}
	for depth := 1; depth <= len(key); depth++ {
		prefix := Key(key[:depth]).encode()
		t.prefixIndex[depth-1][prefix] = append(t.prefixIndex[depth-1][prefix], full)
	}
	return nil
}

// Get returns every row whose leading key dimensions match prefix. An
// empty result is always an error (ErrNotFound), per the store's contract.
func (t *Table[V]) Get(prefix Key) ([]Row[V], error) {
	if len(prefix) == 0 || len(prefix) > len(t.dims) {
		return nil, domain.NewKeyError(t.name, prefix.encode(), domain.ErrNotFound)
	}
	fullKeys, ok := t.prefixIndex[len(prefix)-1][prefix.encode()]
	if !ok || len(fullKeys) == 0 {
		return nil, domain.NewKeyError(t.name, prefix.encode(), domain.ErrNotFound)
	}
	out := make([]Row[V], 0, len(fullKeys))
	for _, fk := range fullKeys {
		out = append(out, t.rows[fk])
	}
	return out, nil
}

// GetOne is a convenience for callers that expect exactly one row to match
// a full (non-prefix) key.
func (t *Table[V]) GetOne(key Key) (V, error) {
	var zero V
	rows, err := t.Get(key)
	if err != nil {
		return zero, err
	}
	if len(rows) != 1 {
		return zero, domain.NewKeyError(t.name, key.encode(), domain.ErrNotFound)
	}
	return rows[0].Value, nil
}

// Has reports whether any row matches the given prefix, without the
// ErrNotFound overhead of Get.
func (t *Table[V]) Has(prefix Key) bool {
	fullKeys, ok := t.prefixIndex[len(prefix)-1][prefix.encode()]
	return ok && len(fullKeys) > 0
}

// All returns every row in the table, in unspecified order.
func (t *Table[V]) All() []Row[V] {
	out := make([]Row[V], 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r)
	}
	return out
}

// Len returns the number of rows in the table.
func (t *Table[V]) Len() int { return len(t.rows) }

// GroupSum groups rows by the dimensions at the given indices (in their
// original order) and sums values within each group using add. This
// mirrors the pandas groupby(...).sum() calls in the Python emulator and
// frontier scripts (see create_frontier.py), generalised to a typed,
// explicit reduction instead of implicit axis arithmetic.
func GroupSum[V any](t *Table[V], groupDims []int, add func(a, b V) V) *Table[V] {
	names := make([]string, len(groupDims))
	for i, d := range groupDims {
		names[i] = t.dims[d]
	}
	out := New[V](t.name+":grouped", names...)
	acc := make(map[string]V)
	keys := make(map[string]Key)
	for _, row := range t.rows {
		groupKey := make(Key, len(groupDims))
		for i, d := range groupDims {
			groupKey[i] = row.Key[d]
		}
		enc := groupKey.encode()
		if existing, ok := acc[enc]; ok {
			acc[enc] = add(existing, row.Value)
		} else {
			acc[enc] = row.Value
			keys[enc] = groupKey
		}
	}
	for enc, v := range acc {
		_ = out.Insert(keys[enc], v)
	}
	return out
}

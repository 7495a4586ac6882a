// Package state holds the client state shared between bound inputs and
// exchanges: a mapping from region name to a JSON-compatible sub-state.
//
// Sub-states are decoded with json.Number so numeric values are sent back to
// the server exactly as they were received.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Store is the client state. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// New creates a store seeded with data. The map is copied.
func New(data map[string]any) *Store {
	s := &Store{data: make(map[string]any, len(data))}
	for k, v := range data {
		s.data[k] = v
	}
	return s
}

// Decode parses a JSON object into a state mapping.
func Decode(data []byte) (map[string]any, error) {
	return DecodeReader(bytes.NewReader(data))
}

// DecodeReader parses a JSON object from r into a state mapping.
func DecodeReader(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Get returns the sub-state of region.
func (s *Store) Get(region string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[region]
	return v, ok
}

// Field returns one field of a region's sub-state.
func (s *Store) Field(region, field string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.data[region].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[field]
	return v, ok
}

// SetField writes one field of a region's sub-state, creating the region
// object if it is absent. A sub-state that is not an object is replaced.
func (s *Store) SetField(region, field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[region].(map[string]any)
	if !ok {
		m = make(map[string]any)
		s.data[region] = m
	}
	m[field] = value
}

// MergeAll overwrites, for every key in update, the corresponding top-level
// entry. Nested values are replaced, not merged.
func (s *Store) MergeAll(update map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range update {
		s.data[k] = v
	}
}

// Reset replaces the whole state.
func (s *Store) Reset(data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any, len(data))
	for k, v := range data {
		s.data[k] = v
	}
}

// Keys returns the region names in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of regions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Slice returns the JSON encoding of every sub-state whose key starts with
// prefix. A parent region therefore also carries its child regions.
func (s *Store) Slice(prefix string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	for k, v := range s.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("state: encode %q: %w", k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = deepCopy(v)
	}
	return out
}

// MarshalJSON encodes the whole state as one JSON object.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.data)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i, val := range t {
			a[i] = deepCopy(val)
		}
		return a
	default:
		return v
	}
}

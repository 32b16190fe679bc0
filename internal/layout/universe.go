package layout

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Universe maps type identifiers to descriptors for one layout version.
// Iteration follows document order.
type Universe struct {
	types *orderedmap.OrderedMap[string, *TypeDescriptor]
}

// NewUniverse creates an empty universe.
func NewUniverse() *Universe {
	return &Universe{types: orderedmap.NewOrderedMap[string, *TypeDescriptor]()}
}

func (u *Universe) m() *orderedmap.OrderedMap[string, *TypeDescriptor] {
	if u.types == nil {
		u.types = orderedmap.NewOrderedMap[string, *TypeDescriptor]()
	}
	return u.types
}

// Get returns the descriptor for id.
func (u *Universe) Get(id string) (*TypeDescriptor, bool) {
	if u == nil || u.types == nil {
		return nil, false
	}
	return u.types.Get(id)
}

// Has reports whether id is defined.
func (u *Universe) Has(id string) bool {
	_, ok := u.Get(id)
	return ok
}

// Set defines or replaces id. A replaced key keeps its original position.
func (u *Universe) Set(id string, t *TypeDescriptor) {
	u.m().Set(id, t)
}

// Len returns the number of types.
func (u *Universe) Len() int {
	if u == nil || u.types == nil {
		return 0
	}
	return u.types.Len()
}

// Keys returns all identifiers in document order.
func (u *Universe) Keys() []string {
	if u == nil || u.types == nil {
		return nil
	}
	return u.types.Keys()
}

// Each calls fn for every type in document order.
func (u *Universe) Each(fn func(id string, t *TypeDescriptor)) {
	if u == nil || u.types == nil {
		return
	}
	for el := u.types.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}

// UnmarshalJSON decodes a JSON object keeping the key order of the document.
func (u *Universe) UnmarshalJSON(data []byte) error {
	u.types = orderedmap.NewOrderedMap[string, *TypeDescriptor]()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("types: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("types: expected string key, got %v", keyTok)
		}
		var t TypeDescriptor
		if err := dec.Decode(&t); err != nil {
			return fmt.Errorf("types[%q]: %w", id, err)
		}
		u.types.Set(id, &t)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the universe as a JSON object in document order.
func (u *Universe) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var encErr error
	u.Each(func(id string, t *TypeDescriptor) {
		if encErr != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(id)
		if err != nil {
			encErr = err
			return
		}
		val, err := json.Marshal(t)
		if err != nil {
			encErr = err
			return
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	})
	if encErr != nil {
		return nil, encErr
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

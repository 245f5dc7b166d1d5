package dto

import "encoding/json"

// Nullable distinguishes an absent JSON key (Set == false) from an explicit
// null (Set == true, Value == nil). Use it with the `omitzero` option so an
// unset field is left out when marshalling.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set Nullable holding v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a set Nullable holding null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// FromPtr returns a set Nullable holding p, which may be nil.
func FromPtr[T any](p *T) Nullable[T] {
	return Nullable[T]{Set: true, Value: p}
}

// UnmarshalJSON is only invoked for keys present in the document.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// IsZero reports whether the key was absent.
func (n Nullable[T]) IsZero() bool {
	return !n.Set
}

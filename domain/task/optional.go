package task

import "encoding/json"

// Optional distinguishes a JSON key that was omitted from one that was sent,
// and a sent value from an explicit null.
//
//	{}              -> Set=false
//	{"x": null}     -> Set=true, Null=true
//	{"x": "value"}  -> Set=true, Value="value"
//	{"x": 123}      -> Set=true, Invalid=true (when T is string)
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
	// Invalid marks a value of the wrong JSON type. The surrounding document
	// still decodes so every field can be validated.
	Invalid bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the key carried a non-null value of the right type.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null && !o.Invalid
}

// IsZero lets `omitzero` drop keys that were never set.
func (o Optional[T]) IsZero() bool {
	return !o.Set
}

// UnmarshalJSON is only invoked for keys present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	if err := json.Unmarshal(data, &o.Value); err != nil {
		var zero T
		o.Value = zero
		o.Invalid = true
	}
	return nil
}

// MarshalJSON renders null for unset or null values.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

package validate

// Field is a single entry of a sparse change set. It distinguishes a key
// that was omitted from a key that was explicitly null, which matters for
// partial updates: omission keeps the stored value, null clears it.
type Field[T any] struct {
	set   bool
	null  bool
	value T
}

// Unset returns a Field for an omitted key.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// Null returns a Field for a key explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// Value returns a Field holding v.
func Value[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// IsSet reports whether the key was present at all (null or value).
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the key was present with an explicit null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// HasValue reports whether the key carries a non-null value.
func (f Field[T]) HasValue() bool { return f.set && !f.null }

// Get returns the value and whether one is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.HasValue()
}

// Apply merges the field onto a nullable current value: unset keeps cur,
// null clears it, a value replaces it.
func (f Field[T]) Apply(cur *T) *T {
	switch {
	case !f.set:
		return cur
	case f.null:
		return nil
	default:
		v := f.value
		return &v
	}
}

// ApplyValue merges the field onto a non-nullable current value. Null is
// treated like unset; decoders reject null for such fields before merge.
func (f Field[T]) ApplyValue(cur T) T {
	if f.HasValue() {
		return f.value
	}
	return cur
}

package models

// Block is the outcome of building an optional sub-block of a record:
// either Present with a value or Absent with the reason it could not be built.
type Block[T any] struct {
	value  T
	ok     bool
	reason error
}

// Present wraps a successfully built block.
func Present[T any](v T) Block[T] {
	return Block[T]{value: v, ok: true}
}

// Absent records why a block is missing. A nil reason is allowed.
func Absent[T any](reason error) Block[T] {
	return Block[T]{reason: reason}
}

// Get returns the value and whether the block is present.
func (b Block[T]) Get() (T, bool) {
	return b.value, b.ok
}

// IsPresent reports whether the block was built.
func (b Block[T]) IsPresent() bool { return b.ok }

// Reason returns the error that made the block absent, or nil.
func (b Block[T]) Reason() error { return b.reason }

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (b Block[T]) Ptr() *T {
	if !b.ok {
		return nil
	}
	v := b.value
	return &v
}

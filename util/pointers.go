package util

// Ptr returns &v. Facet structs use it to mark a value as explicitly set.
func Ptr[T any](v T) *T { return &v }

// Deref returns *p, or the zero value when p is nil.
func Deref[T any](p *T) (v T) {
	if p != nil {
		v = *p
	}
	return v
}

// FirstNonNil returns the first set pointer. An explicit zero wins over a
// later non-zero value, which is what separates it from Coalesce.
func FirstNonNil[T any](ptrs ...*T) *T {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

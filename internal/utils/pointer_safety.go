package utils

// Coalesce returns the first non-nil value, or the zero value when all are nil.
func Coalesce[T any](values ...*T) T {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return *new(T)
}

func Ptr[T any](v T) *T {
	return &v
}

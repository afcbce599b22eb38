// Package utils holds small generic helpers for the JSON models.
package utils

// Ptr returns a pointer to a copy of v, for optional JSON fields.
func Ptr[T any](v T) *T {
	return &v
}


// Package mocks holds testify mocks of the repository and platform
// interfaces shared by service, job and handler tests.
package mocks

import "github.com/stretchr/testify/mock"

// get returns argument i as T, treating an untyped nil as the zero value.
func get[T any](args mock.Arguments, i int) T {
	var zero T
	v := args.Get(i)
	if v == nil {
		return zero
	}
	return v.(T)
}

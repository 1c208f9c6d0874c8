// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "errors"

// Result is the outcome of one service call. Exactly one of the following
// holds:
//   - ok: Err is nil and Value is set
//   - auth expired: AuthExpired is true and Err wraps ErrAuthExpired
//   - failed: Err is non-nil and AuthExpired is false
type Result[T any] struct {
	Value       T
	AuthExpired bool
	Err         error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil && !r.AuthExpired
}

// Unpack returns the value and error in the usual Go shape.
func (r Result[T]) Unpack() (T, error) {
	return r.Value, r.Err
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps err, classifying 401 responses as auth expiry.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result[T]{Err: err, AuthExpired: errors.Is(err, ErrAuthExpired)}
}

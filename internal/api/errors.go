// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error variables for common service errors.
var (
	// ErrAuthExpired indicates the bearer credential was rejected (HTTP 401).
	ErrAuthExpired = errors.New("authorization expired")

	// ErrMalformedResponse indicates a 2xx body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// Error is a non-2xx response from the service.
type Error struct {
	Status int
	// Detail is the server's "detail" message, verbatim. May be empty.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("service error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("service error (HTTP %d)", e.Status)
}

// Unwrap maps well-known statuses to sentinel errors.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Detail returns the server-supplied detail carried by err, or "".
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// newError builds an *Error from a non-2xx response body.
//
// The service reports {"detail": "..."}; validation failures use a list of
// {"msg": "..."} objects instead, which are joined.
func newError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return e
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		e.Detail = s
		return e
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		e.Detail = strings.Join(msgs, "; ")
	}
	return e
}

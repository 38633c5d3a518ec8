// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package remote

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure for retry and reporting decisions.
type ErrorKind int

const (
	// KindTransient covers failures likely to succeed on retry: network
	// timeouts, 5xx responses, and rate-limit signals.
	KindTransient ErrorKind = iota + 1
	// KindAuth covers rejected or missing credentials.
	KindAuth
	// KindValidation covers malformed-input rejections.
	KindValidation
	// KindNotFound covers references to entities the service does not know.
	KindNotFound
	// KindDuplicate covers attempts to create an entity that already exists.
	KindDuplicate
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Error is a classified service failure. Status is the HTTP status when one
// was received, 0 for transport-level failures.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Op, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a service failure worth retrying.
func IsTransient(err error) bool {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind == KindTransient
	}
	return false
}

// KindOf returns the classification of err, or false when err is not a
// service failure.
func KindOf(err error) (ErrorKind, bool) {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind, true
	}
	return 0, false
}

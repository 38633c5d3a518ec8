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


package retry

import (
	"errors"
	"fmt"
)

// ErrInvalidMaxAttempts is returned when a policy has a non-positive
// MaxAttempts.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

// ExhaustedError wraps the last error after the retry budget is spent.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Exhausted reports whether err represents a spent retry budget.
func Exhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

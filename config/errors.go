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

package config

import "errors"

var (
	// ErrMissingBaseURL is returned when a live run has no service URL.
	ErrMissingBaseURL = errors.New("base URL required (set " + EnvBaseURL + " or --base-url)")

	// ErrInvalidBaseURL is returned for a URL that is not http or https.
	ErrInvalidBaseURL = errors.New("base URL must be a valid http or https URL")

	// ErrMissingAPIKey is returned when a live run has no API key.
	ErrMissingAPIKey = errors.New("API key required (set " + EnvAPIKey + " or --api-key)")

	// ErrInvalidAPIKey is returned for a key that does not look like one the
	// service issued.
	ErrInvalidAPIKey = errors.New("API key must start with \"sk-\" and be at least 10 characters")

	// ErrInvalidConcurrency is returned for a worker pool size below 1.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

	// ErrInvalidMaxAttempts is returned for an attempt budget below 1.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")

	// ErrInvalidRetryDelay is returned for a negative retry delay.
	ErrInvalidRetryDelay = errors.New("retry delay must not be negative")

	// ErrInvalidProcessingWait is returned for a negative processing wait.
	ErrInvalidProcessingWait = errors.New("processing wait must not be negative")
)

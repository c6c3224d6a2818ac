// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"errors"
	"fmt"
)

// TransientError is a backend failure worth retrying: rate limiting,
// overload, 5xx responses, timeouts and network errors.
type TransientError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient backend error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient backend error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ErrorType tags spans and error metrics.
func (e *TransientError) ErrorType() string { return "transient" }

// FatalError is a backend failure that no retry will fix: malformed
// requests, authentication and authorization failures, unknown models.
type FatalError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: fatal backend error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: fatal backend error: %v", e.Provider, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func (e *FatalError) ErrorType() string { return "fatal" }

// RetryExhaustedError is returned once every attempt failed transiently.
// errors.As still finds the last TransientError through it.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("llm call failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

func (e *RetryExhaustedError) ErrorType() string { return "retry_exhausted" }

// ClassifyStatus maps an HTTP status from a backend onto the error taxonomy.
// Status 0 means the request never got a response and is transient.
func ClassifyStatus(provider string, status int, err error) error {
	switch {
	case status == 0,
		status == 408, status == 409, status == 425, status == 429,
		status >= 500:
		return &TransientError{Provider: provider, StatusCode: status, Err: err}
	default:
		return &FatalError{Provider: provider, StatusCode: status, Err: err}
	}
}

// IsFatal reports whether err must not be retried. Context errors count as
// fatal for retry purposes.
func IsFatal(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// IsTransient reports whether err is a transient backend failure, including
// one that exhausted its retries.
func IsTransient(err error) bool {
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var exhausted *RetryExhaustedError
	return errors.As(err, &exhausted)
}

// asTransient wraps unclassified errors so that retry bookkeeping always
// sees the taxonomy types.
func asTransient(provider string, err error) error {
	var transient *TransientError
	if errors.As(err, &transient) {
		return err
	}
	return &TransientError{Provider: provider, Err: err}
}

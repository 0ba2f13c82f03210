/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package ingest

import (
	"fmt"
	"strings"
)

// ErrDetectionDegraded describes why delimiter sniffing fell back to the default delimiter.
type ErrDetectionDegraded struct {
	Msg string
	Err error
}

// ErrDecode represents bytes that are not valid in the attempted encoding
type ErrDecode struct {
	Encoding string
	Offset   int
	Err      error
}

// ErrRowShape represents a data row whose field count differs from the header
type ErrRowShape struct {
	Line     int
	Expected int
	Got      int
}

// ErrIngest is returned when every loading strategy failed
type ErrIngest struct {
	Path     string
	Attempts []Attempt
}

func (e *ErrDetectionDegraded) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delimiter detection degraded: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("delimiter detection degraded: %s", e.Msg)
}

func (e *ErrDetectionDegraded) Unwrap() error {
	return e.Err
}

func (e *ErrDecode) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: invalid %s at byte %d: %v", e.Encoding, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode error: invalid %s at byte %d", e.Encoding, e.Offset)
}

func (e *ErrDecode) Unwrap() error {
	return e.Err
}

func (e *ErrRowShape) Error() string {
	return fmt.Sprintf("row shape error: line %d has %d fields, expected %d", e.Line, e.Got, e.Expected)
}

func (e *ErrIngest) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Label(), a.Err))
	}
	return fmt.Sprintf("ingest error: all strategies failed for %s [%s]", e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *ErrIngest) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

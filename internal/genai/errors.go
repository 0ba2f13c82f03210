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
package genai

import "fmt"

// ErrCancelled is returned when the context ends before a call succeeds.
type ErrCancelled struct {
	Msg string
	Err error
}

func (e *ErrCancelled) Error() string {
	return fmt.Sprintf("operation cancelled: %s: %v", e.Msg, e.Err)
}

func (e *ErrCancelled) Unwrap() error {
	return e.Err
}

// ErrEmptyResponse is returned when Gemini answers without any text part.
type ErrEmptyResponse struct {
	FinishReason  string
	SafetyRatings string
}

func (e *ErrEmptyResponse) Error() string {
	return fmt.Sprintf("empty or incomplete response from Gemini API. FinishReason: %s, SafetyRatings: %s", e.FinishReason, e.SafetyRatings)
}

// SPDX-License-Identifier: Apache-2.0

package recovery

import "fmt"

// EmptyCompletionError reports a completion that was empty or contained only
// whitespace. It is distinct from NoJSONFoundError so callers can tell
// "model returned nothing" apart from "model returned prose without JSON".
type EmptyCompletionError struct{}

func (e *EmptyCompletionError) Error() string {
	return "completion was empty or whitespace-only"
}

// NoJSONFoundError reports a completion with no { ... } span at all.
type NoJSONFoundError struct {
	// Raw is the completion as received.
	Raw string
}

func (e *NoJSONFoundError) Error() string {
	return "no JSON object found in completion"
}

// StructuralParseError reports a completion that could not be parsed even
// after every repair stage and every fallback strategy ran. It carries the
// original text and the fully cleaned text so the caller can log both and
// degrade gracefully.
type StructuralParseError struct {
	Raw     string
	Cleaned string
	Err     error
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("completion is structurally unrecoverable: %v", e.Err)
}

func (e *StructuralParseError) Unwrap() error {
	return e.Err
}

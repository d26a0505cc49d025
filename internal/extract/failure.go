package extract

import "fmt"

// FailureKind classifies why an extraction did not produce metadata.
type FailureKind string

const (
	// MalformedInput means the image could not be used: a bad URL, an
	// unreachable or oversized resource, or bytes that do not decode.
	MalformedInput FailureKind = "malformed_input"

	// ModelError means the inference call itself failed.
	ModelError FailureKind = "model_error"

	// MalformedOutput means the model answered with text that is not a
	// JSON object.
	MalformedOutput FailureKind = "malformed_output"

	// Timeout means the per-item deadline expired.
	Timeout FailureKind = "timeout"
)

// Retryable reports whether retrying the same input might succeed.
func (k FailureKind) Retryable() bool {
	return k == ModelError || k == Timeout
}

// Failure is a classified extraction error.
type Failure struct {
	Kind    FailureKind
	Message string

	// RawOutput is the verbatim model text for MalformedOutput.
	RawOutput string

	Err error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether retrying the same input might succeed.
func (f *Failure) Retryable() bool {
	return f.Kind.Retryable()
}

func newFailure(kind FailureKind, msg string, err error) *Failure {
	return &Failure{Kind: kind, Message: msg, Err: err}
}

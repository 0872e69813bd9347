package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
)

// ErrDeferredResult is matched by the ValidationError returned when a Schema
// answers with a Deferred outcome. Manifest validation must be synchronous.
var ErrDeferredResult = errors.New("schema validation must be synchronous")

// Schema validates a manifest input. The input is either a stremio.Manifest,
// a pointer to one, raw JSON bytes or an already decoded JSON value.
type Schema interface {
	Validate(input any) Outcome
}

// SchemaFunc adapts a function to the Schema interface.
type SchemaFunc func(input any) Outcome

func (f SchemaFunc) Validate(input any) Outcome {
	return f(input)
}

// Outcome is either a Result or a Deferred.
type Outcome interface {
	outcome()
}

// Result is a completed validation: either Value or Issues is set.
type Result struct {
	Value  *stremio.Manifest
	Issues []Issue
}

// Deferred is a validation that has not completed yet. Validate rejects it.
type Deferred struct {
	C <-chan Result
}

func (Result) outcome()   {}
func (Deferred) outcome() {}

// Issue is a single validation problem.
type Issue struct {
	Message string
	Path    []string
}

// ValidationError carries every issue found. Its message is the first issue's
// message.
type ValidationError struct {
	Issues []Issue

	cause error
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	return e.Issues[0].Message
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Validate runs schema against input and returns the validated manifest.
func Validate(schema Schema, input any) (*stremio.Manifest, error) {
	switch out := schema.Validate(input).(type) {
	case Deferred:
		return nil, &ValidationError{
			Issues: []Issue{{Message: ErrDeferredResult.Error()}},
			cause:  ErrDeferredResult,
		}
	case Result:
		if len(out.Issues) > 0 {
			return nil, &ValidationError{Issues: out.Issues}
		}
		if out.Value == nil {
			return nil, &ValidationError{Issues: []Issue{{Message: "schema returned no value"}}}
		}
		return out.Value, nil
	default:
		return nil, fmt.Errorf("unexpected validation outcome %T", out)
	}
}

// issues builds a Result out of messages.
func issues(messages ...string) Result {
	r := Result{Issues: make([]Issue, 0, len(messages))}
	for _, m := range messages {
		r.Issues = append(r.Issues, Issue{Message: m})
	}
	return r
}

// decode turns input into both its generic JSON value and a typed manifest.
func decode(input any) (*stremio.Manifest, any, error) {
	var b []byte
	switch in := input.(type) {
	case nil:
		return nil, nil, errors.New("manifest must be an object")
	case []byte:
		b = in
	case json.RawMessage:
		b = in
	case string:
		b = []byte(in)
	default:
		var err error
		b, err = json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to json.Marshal manifest: %w", err)
		}
	}

	var value any
	if err := json.Unmarshal(b, &value); err != nil {
		return nil, nil, fmt.Errorf("failed to json.Unmarshal manifest: %w", err)
	}
	if _, ok := value.(map[string]any); !ok {
		return nil, nil, errors.New("manifest must be an object")
	}

	m := new(stremio.Manifest)
	if err := json.Unmarshal(b, m); err != nil {
		return nil, nil, fmt.Errorf("failed to json.Unmarshal manifest: %w", err)
	}
	return m, value, nil
}

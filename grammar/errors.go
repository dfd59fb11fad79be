package grammar

import (
	"gitlab.com/tozd/go/errors"
)

// Sentinel errors for the compiler's error taxonomy. Use
// errors.Is against these; errors.As for the detail-carrying wrappers
// below.
var (
	// ErrJSON is the only error kind the parse stage raises: a JSON
	// structural or schema failure, always carrying a JSON-pointer-style
	// path to the offending element.
	ErrJSON = errors.Base("textmate grammar: invalid json")

	// ErrRepositoryStackOverflow is raised when a rule sits behind more
	// than MaxRepositoryStackDepth nested repository blocks.
	ErrRepositoryStackOverflow = errors.Base("textmate grammar: repository stack overflow")

	// ErrUnparseableCaptureIndex is raised when a captures map key is not
	// a decimal integer and a rule is actually assigned to that key.
	ErrUnparseableCaptureIndex = errors.Base("textmate grammar: unparseable capture index")
)

// JSONError reports a JSON parse-stage failure at a specific path, e.g.
// "patterns[3].captures.0.name".
type JSONError struct {
	Path string
	Err  error
}

func (e *JSONError) Error() string {
	return errors.Errorf("failed to deserialize json at %q: %w", e.Path, e.Err).Error()
}

func (e *JSONError) Unwrap() error { return ErrJSON }

func (e *JSONError) Cause() error { return e.Err }

func newJSONError(path string, cause error) error {
	return &JSONError{Path: path, Err: cause}
}

// RepositoryStackOverflowError carries no location: by the time it is
// produced, the repository stack is a plain value and doesn't know which
// grammar path led to it (the caller is expected to attribute it to a
// source file).
type RepositoryStackOverflowError struct{}

func (e *RepositoryStackOverflowError) Error() string {
	return errors.Errorf("%w: more than %d nested repository blocks", ErrRepositoryStackOverflow, MaxRepositoryStackDepth).Error()
}

func (e *RepositoryStackOverflowError) Unwrap() error { return ErrRepositoryStackOverflow }

func newRepositoryStackOverflowError() error {
	return &RepositoryStackOverflowError{}
}

// UnparseableCaptureIndexError reports a captures key that isn't a decimal
// integer at the point it was actually about to be assigned a rule.
type UnparseableCaptureIndexError struct {
	Index string
	Err   error
}

func (e *UnparseableCaptureIndexError) Error() string {
	return errors.Errorf("%w: failed to deserialize capture index %q: %v", ErrUnparseableCaptureIndex, e.Index, e.Err).Error()
}

func (e *UnparseableCaptureIndexError) Unwrap() error { return ErrUnparseableCaptureIndex }

func newUnparseableCaptureIndexError(index string, cause error) error {
	return &UnparseableCaptureIndexError{Index: index, Err: cause}
}

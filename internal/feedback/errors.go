package feedback

import "errors"

var (
	// ErrInvalidJSON indicates the input is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON input")
	// ErrNotArray indicates the annotations are not a JSON array.
	ErrNotArray = errors.New("annotations: not an array")
	// ErrTooManyAnnotations indicates the input exceeds the caller's cap.
	ErrTooManyAnnotations = errors.New("too many annotations")
	// ErrInvalidAnnotation indicates an array element is not an annotation object.
	ErrInvalidAnnotation = errors.New("invalid annotation")
	// ErrMissingComment indicates an annotation has no comment field.
	ErrMissingComment = errors.New("annotation is missing the comment field")
	// ErrInvalidTables indicates a keyword table override is malformed.
	ErrInvalidTables = errors.New("invalid keyword tables")
)

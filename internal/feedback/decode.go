package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is a decoded feedback submission.
type Request struct {
	Annotations []Annotation
	ProjectName string
	PageURL     string
}

// DecodeAnnotations accepts either a bare JSON array of annotations or an object
// with an "annotations" array. max caps the number of annotations; max <= 0
// disables the cap.
func DecodeAnnotations(data []byte, max int) ([]Annotation, error) {
	req, err := DecodeRequest(data, max)
	if err != nil {
		return nil, err
	}
	return req.Annotations, nil
}

// DecodeRequest is DecodeAnnotations plus the optional projectName and pageUrl
// fields of the object form.
func DecodeRequest(data []byte, max int) (*Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidJSON)
	}
	if !json.Valid(trimmed) {
		return nil, ErrInvalidJSON
	}

	req := &Request{}
	var items []json.RawMessage

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	case '{':
		var envelope struct {
			Annotations json.RawMessage `json:"annotations"`
			ProjectName string          `json:"projectName"`
			PageURL     string          `json:"pageUrl"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		raw := bytes.TrimSpace(envelope.Annotations)
		if len(raw) == 0 || raw[0] != '[' {
			return nil, ErrNotArray
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		req.ProjectName = envelope.ProjectName
		req.PageURL = envelope.PageURL
	default:
		return nil, ErrNotArray
	}

	if max > 0 && len(items) > max {
		return nil, fmt.Errorf("%w: got %d, limit is %d", ErrTooManyAnnotations, len(items), max)
	}

	req.Annotations = make([]Annotation, 0, len(items))
	for i, item := range items {
		a, err := decodeAnnotation(item)
		if err != nil {
			return nil, fmt.Errorf("annotations[%d]: %w", i, err)
		}
		req.Annotations = append(req.Annotations, a)
	}
	return req, nil
}

// ValidateAnnotations applies the boundary checks to already-decoded annotations.
func ValidateAnnotations(annotations []Annotation, max int) error {
	if max > 0 && len(annotations) > max {
		return fmt.Errorf("%w: got %d, limit is %d", ErrTooManyAnnotations, len(annotations), max)
	}
	return nil
}

// DecodeAnnotation decodes one annotation object with the same checks as
// DecodeAnnotations.
func DecodeAnnotation(data []byte) (Annotation, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Annotation{}, ErrInvalidJSON
	}
	return decodeAnnotation(trimmed)
}

func decodeAnnotation(item json.RawMessage) (Annotation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return Annotation{}, fmt.Errorf("%w: not an object", ErrInvalidAnnotation)
	}

	comment, ok := fields["comment"]
	if !ok || bytes.Equal(bytes.TrimSpace(comment), []byte("null")) {
		return Annotation{}, ErrMissingComment
	}
	var s string
	if err := json.Unmarshal(comment, &s); err != nil {
		return Annotation{}, fmt.Errorf("%w: comment is not a string", ErrInvalidAnnotation)
	}

	var a Annotation
	if err := json.Unmarshal(item, &a); err != nil {
		return Annotation{}, fmt.Errorf("%w: %v", ErrInvalidAnnotation, err)
	}
	return a, nil
}

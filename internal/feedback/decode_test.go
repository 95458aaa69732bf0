package feedback

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnnotation = `{
  "id": "a1",
  "element": "button.signup",
  "comment": "This signup button is broken and confusing",
  "timestamp": "2026-03-01T10:00:00Z",
  "viewport": {"x": 0, "y": 0, "width": 1440, "height": 900},
  "boundingBox": {"x": 120, "y": 340, "width": 180, "height": 48},
  "metadata": {"cssClass": "btn btn-primary"}
}`

func TestDecodeAnnotations_BareArray(t *testing.T) {
	got, err := DecodeAnnotations([]byte("["+sampleAnnotation+"]"), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, "button.signup", a.Element)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), a.Timestamp.Time)
	assert.Equal(t, Rect{X: 120, Y: 340, Width: 180, Height: 48}, a.BoundingBox)
	require.NotNil(t, a.Metadata)
	assert.Equal(t, "btn btn-primary", a.Metadata.CSSClass)
}

func TestDecodeRequest_Envelope(t *testing.T) {
	body := `{"annotations": [` + sampleAnnotation + `], "projectName": "landing", "pageUrl": "https://example.com"}`
	req, err := DecodeRequest([]byte(body), 10)
	require.NoError(t, err)
	assert.Len(t, req.Annotations, 1)
	assert.Equal(t, "landing", req.ProjectName)
	assert.Equal(t, "https://example.com", req.PageURL)
}

func TestDecodeAnnotations_Empty(t *testing.T) {
	got, err := DecodeAnnotations([]byte(`[]`), 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = DecodeAnnotations([]byte(`{"annotations": []}`), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeAnnotations_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  error
	}{
		{"blank", "   ", 0, ErrInvalidJSON},
		{"malformed", `[{"comment": }]`, 0, ErrInvalidJSON},
		{"number", `42`, 0, ErrNotArray},
		{"string", `"hello"`, 0, ErrNotArray},
		{"object without annotations", `{"items": []}`, 0, ErrNotArray},
		{"annotations not array", `{"annotations": {"id": "a"}}`, 0, ErrNotArray},
		{"annotations null", `{"annotations": null}`, 0, ErrNotArray},
		{"too many", `[{"comment": "a"}, {"comment": "b"}, {"comment": "c"}]`, 2, ErrTooManyAnnotations},
		{"missing comment", `[{"id": "a", "element": "div"}]`, 0, ErrMissingComment},
		{"null comment", `[{"id": "a", "comment": null}]`, 0, ErrMissingComment},
		{"comment not string", `[{"id": "a", "comment": 7}]`, 0, ErrInvalidAnnotation},
		{"element not object", `["just text"]`, 0, ErrInvalidAnnotation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAnnotations([]byte(tt.input), tt.max)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeAnnotations_ErrorNamesIndex(t *testing.T) {
	_, err := DecodeAnnotations([]byte(`[{"comment": "ok"}, {"id": "b"}]`), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "annotations[1]")
	assert.Contains(t, err.Error(), "comment")
}

func TestDecodeAnnotations_EmptyCommentAllowed(t *testing.T) {
	got, err := DecodeAnnotations([]byte(`[{"id": "a", "comment": ""}]`), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	task := NewSynthesizer().Synthesize(got[0])
	assert.Equal(t, CategoryVisual, task.Category)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, TypeImprove, task.Type)
}

func TestValidateAnnotations(t *testing.T) {
	assert.NoError(t, ValidateAnnotations(make([]Annotation, 3), 3))
	assert.NoError(t, ValidateAnnotations(make([]Annotation, 3), 0))
	assert.ErrorIs(t, ValidateAnnotations(make([]Annotation, 4), 3), ErrTooManyAnnotations)
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	var a Annotation
	require.NoError(t, json.Unmarshal([]byte(`{"comment": "x", "timestamp": 1767225600000}`), &a))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), a.Timestamp.Time)

	var b Annotation
	require.NoError(t, json.Unmarshal([]byte(`{"comment": "x", "timestamp": null}`), &b))
	assert.True(t, b.Timestamp.IsZero())

	var c Annotation
	require.NoError(t, json.Unmarshal([]byte(`{"comment": "x", "timestamp": "yesterday"}`), &c))
	assert.True(t, c.Timestamp.IsZero())
	assert.Equal(t, "yesterday", c.Timestamp.Raw)
}

func TestTimestamp_UnmarshalJSONLayouts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `"2024-01-15T10:30:00+02:00"`, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)},
		{"date only", `"2024-01-15"`, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"js date string", `"Mon Jan 15 2024 10:00:00 GMT+0000 (Coordinated Universal Time)"`, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"rfc1123", `"Mon, 15 Jan 2024 10:00:00 GMT"`, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
			assert.Empty(t, ts.Raw)
		})
	}
}

func TestDecodeAnnotations_UnparseableTimestampKept(t *testing.T) {
	in := `[{"id":"a1","element":"p","comment":"typo","timestamp":"2024-01-15"},
		{"id":"a2","element":"p","comment":"typo","timestamp":"last tuesday"},
		{"id":"a3","element":"p","comment":"typo","timestamp":true}]`

	got, err := DecodeAnnotations([]byte(in), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got[0].Timestamp.Time)
	assert.True(t, got[1].Timestamp.IsZero())
	assert.Equal(t, "last tuesday", got[1].Timestamp.Raw)
	assert.Equal(t, "true", got[2].Timestamp.Raw)

	out, err := json.Marshal(got[1])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"timestamp":"last tuesday"`)
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	out, err = json.Marshal(Timestamp{Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-01T00:00:00Z"`, string(out))
}

func TestDecodeAnnotation(t *testing.T) {
	a, err := DecodeAnnotation([]byte(`{"id":"a1","element":".cta","comment":"button is broken"}`))
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, ".cta", a.Element)

	_, err = DecodeAnnotation([]byte(`{"id":"a1"}`))
	assert.ErrorIs(t, err, ErrMissingComment)

	_, err = DecodeAnnotation([]byte(`[1]`))
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	_, err = DecodeAnnotation([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

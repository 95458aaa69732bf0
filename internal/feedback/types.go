package feedback

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Category is the functional area a piece of feedback concerns.
type Category string

const (
	CategoryUX            Category = "ux"
	CategoryAccessibility Category = "accessibility"
	CategoryVisual        Category = "visual"
	CategoryContent       Category = "content"
	CategoryPerformance   Category = "performance"
)

// Categories lists every category in classification order.
var Categories = []Category{
	CategoryUX,
	CategoryAccessibility,
	CategoryVisual,
	CategoryContent,
	CategoryPerformance,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Priority is the urgency ranking assigned to a task.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{
	PriorityCritical,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
}

// Rank returns the sort rank of p (critical=0 ... low=3). Unknown values sort last.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return len(Priorities)
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() < len(Priorities)
}

// TaskType describes the kind of change a task asks for.
type TaskType string

const (
	TypeFix      TaskType = "fix"
	TypeImprove  TaskType = "improve"
	TypeRefactor TaskType = "refactor"
	TypeAdd      TaskType = "add"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TypeFix, TypeImprove, TypeRefactor, TypeAdd:
		return true
	}
	return false
}

// Rect is a viewport or element box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Metadata carries optional CSS and accessibility details captured by the annotation UI.
type Metadata struct {
	CSSClass          string            `json:"cssClass,omitempty"`
	AccessibilityInfo string            `json:"accessibilityInfo,omitempty"`
	ComputedStyles    map[string]string `json:"computedStyles,omitempty"`
}

// Annotation is a single piece of user feedback tied to a UI element.
type Annotation struct {
	ID          string    `json:"id"`
	Element     string    `json:"element"`
	Comment     string    `json:"comment"`
	Timestamp   Timestamp `json:"timestamp"`
	Viewport    Rect      `json:"viewport"`
	BoundingBox Rect      `json:"boundingBox"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Task is a classified, actionable item derived from exactly one annotation.
type Task struct {
	ID                 string   `json:"id"`
	Type               TaskType `json:"type"`
	Priority           Priority `json:"priority"`
	Category           Category `json:"category"`
	Selector           string   `json:"selector"`
	Issue              string   `json:"issue"`
	DesiredState       string   `json:"desiredState"`
	SuggestedFix       string   `json:"suggestedFix"`
	CodeSnippet        string   `json:"codeSnippet,omitempty"`
	RelatedAnnotations []string `json:"relatedAnnotations"`
}

// HasSnippet reports whether the task carries a code snippet template.
func (t Task) HasSnippet() bool {
	return t.CodeSnippet != ""
}

// Timestamp is an annotation creation time. The annotation UI emits RFC 3339
// strings or epoch milliseconds, and older clients send date-only or
// Date.toString() values. The field is informational, so a value that does not
// parse is kept verbatim in Raw and Time stays zero.
type Timestamp struct {
	time.Time
	Raw string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			ts.Raw = raw
			return nil
		}
		ts.Time, ts.Raw = parseTimestamp(strings.TrimSpace(s))
		return nil
	}

	millis, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		ts.Raw = raw
		return nil
	}
	ts.Time = time.UnixMilli(int64(millis)).UTC()
	return nil
}

func parseTimestamp(s string) (time.Time, string) {
	if s == "" {
		return time.Time{}, ""
	}
	// Date.toString() appends the zone name in parentheses.
	value := s
	if i := strings.Index(value, " ("); i > 0 {
		value = value[:i]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), ""
		}
	}
	return time.Time{}, s
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		if ts.Raw != "" {
			return json.Marshal(ts.Raw)
		}
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// Counts holds the number of tasks per priority.
type Counts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// CountByPriority tallies tasks per priority.
func CountByPriority(tasks []Task) Counts {
	var c Counts
	for _, t := range tasks {
		switch t.Priority {
		case PriorityCritical:
			c.Critical++
		case PriorityHigh:
			c.High++
		case PriorityMedium:
			c.Medium++
		case PriorityLow:
			c.Low++
		}
	}
	return c
}

// Of returns the count for a single priority.
func (c Counts) Of(p Priority) int {
	switch p {
	case PriorityCritical:
		return c.Critical
	case PriorityHigh:
		return c.High
	case PriorityMedium:
		return c.Medium
	case PriorityLow:
		return c.Low
	}
	return 0
}

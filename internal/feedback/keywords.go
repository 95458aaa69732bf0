package feedback

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps a category to the keywords that select it.
type CategoryRule struct {
	Category Category `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// PriorityRule maps a priority to the keywords that select it.
type PriorityRule struct {
	Priority Priority `yaml:"priority" json:"priority"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// TypeRule maps a task type to the keywords that select it.
type TypeRule struct {
	Type     TaskType `yaml:"type" json:"type"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Tables holds the ordered keyword tables used by the classifier.
// Rules are evaluated in slice order; the first rule with a matching keyword wins.
type Tables struct {
	Categories []CategoryRule `yaml:"categories" json:"categories"`
	Priorities []PriorityRule `yaml:"priorities" json:"priorities"`
	Types      []TypeRule     `yaml:"types" json:"types"`
}

// DefaultTables returns a fresh copy of the built-in keyword tables.
func DefaultTables() Tables {
	return Tables{
		Categories: []CategoryRule{
			{CategoryUX, []string{
				"confusing", "unclear", "hard to", "difficult", "can't find", "where is",
				"how do i", "lost", "stuck", "flow", "navigation", "click", "tap",
			}},
			{CategoryAccessibility, []string{
				"contrast", "readable", "small", "tiny", "can't see", "color blind",
				"screen reader", "keyboard", "focus", "aria", "alt text",
			}},
			{CategoryVisual, []string{
				"color", "spacing", "align", "margin", "padding", "font", "size", "layout",
				"design", "ugly", "weird", "off", "broken layout",
			}},
			{CategoryContent, []string{
				"text", "copy", "message", "wording", "typo", "spelling", "grammar", "tone",
				"confusing text", "unclear message",
			}},
			{CategoryPerformance, []string{
				"slow", "loading", "lag", "freeze", "jank", "animation", "scroll", "performance",
			}},
		},
		Priorities: []PriorityRule{
			{PriorityCritical, []string{"broken", "bug", "error", "crash", "not working", "can't", "blocked"}},
			{PriorityHigh, []string{"urgent", "important", "must", "need", "required", "asap"}},
			{PriorityMedium, []string{"should", "would be nice", "consider", "maybe"}},
			{PriorityLow, []string{"minor", "small", "nitpick", "polish", "eventually"}},
		},
		Types: []TypeRule{
			{TypeAdd, []string{"add", "need", "missing"}},
			{TypeFix, []string{"broken", "fix", "bug"}},
			{TypeRefactor, []string{"refactor", "clean up", "reorganize"}},
		},
	}
}

// LoadTables reads keyword tables from a YAML or JSON file. Sections left out of
// the file keep their built-in rules.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read keyword tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes keyword tables from YAML (JSON is accepted as a YAML subset).
func ParseTables(data []byte) (Tables, error) {
	var override struct {
		Categories *[]CategoryRule `yaml:"categories"`
		Priorities *[]PriorityRule `yaml:"priorities"`
		Types      *[]TypeRule     `yaml:"types"`
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Tables{}, fmt.Errorf("failed to parse keyword tables: %w", err)
	}

	tables := DefaultTables()
	if override.Categories != nil {
		tables.Categories = *override.Categories
	}
	if override.Priorities != nil {
		tables.Priorities = *override.Priorities
	}
	if override.Types != nil {
		tables.Types = *override.Types
	}

	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// Validate checks that every rule names a known key and carries keywords.
func (t Tables) Validate() error {
	for i, r := range t.Categories {
		if !r.Category.Valid() {
			return fmt.Errorf("%w: categories[%d]: unknown category %q", ErrInvalidTables, i, r.Category)
		}
		if err := validateKeywords(r.Keywords); err != nil {
			return fmt.Errorf("%w: categories[%d]: %v", ErrInvalidTables, i, err)
		}
	}
	for i, r := range t.Priorities {
		if !r.Priority.Valid() {
			return fmt.Errorf("%w: priorities[%d]: unknown priority %q", ErrInvalidTables, i, r.Priority)
		}
		if err := validateKeywords(r.Keywords); err != nil {
			return fmt.Errorf("%w: priorities[%d]: %v", ErrInvalidTables, i, err)
		}
	}
	for i, r := range t.Types {
		if !r.Type.Valid() {
			return fmt.Errorf("%w: types[%d]: unknown task type %q", ErrInvalidTables, i, r.Type)
		}
		if err := validateKeywords(r.Keywords); err != nil {
			return fmt.Errorf("%w: types[%d]: %v", ErrInvalidTables, i, err)
		}
	}
	return nil
}

func validateKeywords(keywords []string) error {
	if len(keywords) == 0 {
		return fmt.Errorf("no keywords")
	}
	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("empty keyword")
		}
	}
	return nil
}

// clone deep-copies t so callers cannot mutate a classifier's tables.
func (t Tables) clone() Tables {
	out := Tables{
		Categories: make([]CategoryRule, len(t.Categories)),
		Priorities: make([]PriorityRule, len(t.Priorities)),
		Types:      make([]TypeRule, len(t.Types)),
	}
	for i, r := range t.Categories {
		out.Categories[i] = CategoryRule{r.Category, lowered(r.Keywords)}
	}
	for i, r := range t.Priorities {
		out.Priorities[i] = PriorityRule{r.Priority, lowered(r.Keywords)}
	}
	for i, r := range t.Types {
		out.Types[i] = TypeRule{r.Type, lowered(r.Keywords)}
	}
	return out
}

func lowered(keywords []string) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = strings.ToLower(k)
	}
	return out
}

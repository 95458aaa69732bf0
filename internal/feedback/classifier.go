package feedback

import "strings"

// Classification is the result of classifying one comment.
type Classification struct {
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
	Type     TaskType `json:"type"`
}

// Classifier assigns category, priority and task type by substring keyword matching.
// A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	tables Tables
}

// NewClassifier returns a classifier over a private copy of tables. Tables
// that fail Validate are rejected, since a blank keyword would match every
// comment.
func NewClassifier(tables Tables) (*Classifier, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{tables: tables.clone()}, nil
}

var defaultClassifier = &Classifier{tables: DefaultTables().clone()}

// Tables returns a copy of the classifier's keyword tables.
func (c *Classifier) Tables() Tables {
	return c.tables.clone()
}

// Category returns the first category (in table order) with a keyword contained
// in comment, or CategoryVisual.
func (c *Classifier) Category(comment string) Category {
	lower := strings.ToLower(comment)
	for _, rule := range c.tables.Categories {
		if containsAny(lower, rule.Keywords) {
			return rule.Category
		}
	}
	return CategoryVisual
}

// Priority returns the first priority (in table order) with a keyword contained
// in comment, or PriorityMedium.
func (c *Classifier) Priority(comment string) Priority {
	lower := strings.ToLower(comment)
	for _, rule := range c.tables.Priorities {
		if containsAny(lower, rule.Keywords) {
			return rule.Priority
		}
	}
	return PriorityMedium
}

// Type returns the task type for comment. Add is checked before fix, and fix
// before refactor; anything else is an improvement.
func (c *Classifier) Type(comment string) TaskType {
	lower := strings.ToLower(comment)
	for _, rule := range c.tables.Types {
		if containsAny(lower, rule.Keywords) {
			return rule.Type
		}
	}
	return TypeImprove
}

// Classify runs all three detectors on comment.
func (c *Classifier) Classify(comment string) Classification {
	return Classification{
		Category: c.Category(comment),
		Priority: c.Priority(comment),
		Type:     c.Type(comment),
	}
}

// DetectCategory classifies comment with the built-in tables.
func DetectCategory(comment string) Category {
	return defaultClassifier.Category(comment)
}

// DetectPriority classifies comment with the built-in tables.
func DetectPriority(comment string) Priority {
	return defaultClassifier.Priority(comment)
}

// DetectTaskType classifies comment with the built-in tables.
func DetectTaskType(comment string) TaskType {
	return defaultClassifier.Type(comment)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

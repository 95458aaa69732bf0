package feedback

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Selection controls how a phrasing is picked from a template pool.
type Selection string

const (
	// SelectFirst always uses the first pool entry.
	SelectFirst Selection = "first"
	// SelectHash picks by an FNV-1a hash of the comment, so equal comments get equal text.
	SelectHash Selection = "hash"
	// SelectRandom picks uniformly at random.
	SelectRandom Selection = "random"
)

// ParseSelection converts a config value into a Selection.
func ParseSelection(s string) (Selection, error) {
	switch sel := Selection(strings.ToLower(strings.TrimSpace(s))); sel {
	case SelectFirst, SelectHash, SelectRandom:
		return sel, nil
	case "":
		return SelectHash, nil
	default:
		return "", fmt.Errorf("unknown fix selection %q (must be first, hash or random)", s)
	}
}

// Synthesizer turns an annotation into a task.
type Synthesizer struct {
	classifier *Classifier
	selection  Selection
	newID      func() string
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClassifier replaces the default classifier.
func WithClassifier(c *Classifier) Option {
	return func(s *Synthesizer) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithSelection sets the template selection strategy.
func WithSelection(sel Selection) Option {
	return func(s *Synthesizer) {
		if sel != "" {
			s.selection = sel
		}
	}
}

// WithIDFunc overrides task id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Synthesizer) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewSynthesizer creates a Synthesizer with the built-in tables and hash selection.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		classifier: defaultClassifier,
		selection:  SelectHash,
		newID:      NewTaskID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classifier returns the classifier used by s.
func (s *Synthesizer) Classifier() *Classifier {
	return s.classifier
}

// Synthesize builds the task for one annotation.
func (s *Synthesizer) Synthesize(a Annotation) Task {
	c := s.classifier.Classify(a.Comment)

	task := Task{
		ID:                 s.newID(),
		Type:               c.Type,
		Priority:           c.Priority,
		Category:           c.Category,
		Selector:           a.Element,
		Issue:              a.Comment,
		DesiredState:       s.pick(DesiredStates[c.Category], a.Comment),
		SuggestedFix:       fill(s.pick(FixTemplates[c.Category], a.Comment), a),
		RelatedAnnotations: []string{a.ID},
	}
	if snippet, ok := SnippetTemplates[c.Category]; ok {
		task.CodeSnippet = fill(snippet, a)
	}
	return task
}

func (s *Synthesizer) pick(pool []string, comment string) string {
	if len(pool) == 0 {
		return ""
	}
	switch s.selection {
	case SelectFirst:
		return pool[0]
	case SelectRandom:
		return pool[rand.IntN(len(pool))]
	default:
		h := fnv.New32a()
		h.Write([]byte(comment))
		return pool[h.Sum32()%uint32(len(pool))]
	}
}

// NewTaskID returns a time-prefixed id with a random suffix.
func NewTaskID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("task-%d-%s", time.Now().UnixMilli(), suffix)
}

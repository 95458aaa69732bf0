package feedback

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// ExportVersion is the export format version.
	ExportVersion = "1.0.0"
	// DefaultProject names the project when the caller gives none.
	DefaultProject = "10x-marketing-team"
	// DefaultPageURL is used when neither the caller nor the request names a page.
	DefaultPageURL = "http://localhost:3000"
)

// Export is the full result of one pipeline run.
type Export struct {
	Version     string       `json:"version"`
	ExportedAt  time.Time    `json:"exportedAt"`
	Project     string       `json:"project"`
	PageURL     string       `json:"pageUrl"`
	Summary     string       `json:"summary"`
	Annotations []Annotation `json:"annotations"`
	Tasks       []Task       `json:"tasks"`
}

// Counts tallies the export's tasks per priority.
func (e *Export) Counts() Counts {
	return CountByPriority(e.Tasks)
}

// ExportOptions names the project and page an export belongs to.
type ExportOptions struct {
	Project string
	PageURL string
	Now     func() time.Time
}

// Pipeline classifies, synthesizes and orders annotations.
type Pipeline struct {
	synth *Synthesizer
}

// NewPipeline returns a pipeline over synth, or over a default synthesizer when nil.
func NewPipeline(synth *Synthesizer) *Pipeline {
	if synth == nil {
		synth = NewSynthesizer()
	}
	return &Pipeline{synth: synth}
}

// Synthesizer returns the pipeline's synthesizer.
func (p *Pipeline) Synthesizer() *Synthesizer {
	return p.synth
}

// Process maps each annotation to one task and stable-sorts by priority rank.
func (p *Pipeline) Process(annotations []Annotation) []Task {
	tasks := make([]Task, 0, len(annotations))
	for _, a := range annotations {
		tasks = append(tasks, p.synth.Synthesize(a))
	}
	SortByPriority(tasks)
	return tasks
}

// Export processes annotations and wraps the result with metadata and a summary.
func (p *Pipeline) Export(annotations []Annotation, opts ExportOptions) *Export {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	project := strings.TrimSpace(opts.Project)
	if project == "" {
		project = DefaultProject
	}
	pageURL := strings.TrimSpace(opts.PageURL)
	if pageURL == "" {
		pageURL = DefaultPageURL
	}
	if annotations == nil {
		annotations = []Annotation{}
	}

	tasks := p.Process(annotations)
	return &Export{
		Version:     ExportVersion,
		ExportedAt:  now().UTC(),
		Project:     project,
		PageURL:     pageURL,
		Summary:     Summarize(tasks),
		Annotations: annotations,
		Tasks:       tasks,
	}
}

// SortByPriority orders tasks critical first; equal priorities keep their order.
func SortByPriority(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
}

// Summarize describes the task list in one paragraph.
func Summarize(tasks []Task) string {
	counts := CountByPriority(tasks)

	parts := []string{fmt.Sprintf("Found %d issues from visual feedback.", len(tasks))}
	if counts.Critical > 0 {
		parts = append(parts, fmt.Sprintf("%d CRITICAL issues require immediate attention.", counts.Critical))
	}
	if counts.High > 0 {
		parts = append(parts, fmt.Sprintf("%d high priority issues to address.", counts.High))
	}
	if counts.Medium > 0 {
		parts = append(parts, fmt.Sprintf("%d medium priority improvements.", counts.Medium))
	}
	if counts.Low > 0 {
		parts = append(parts, fmt.Sprintf("%d low priority polish items.", counts.Low))
	}

	if breakdown := CategoryBreakdown(tasks); len(breakdown) > 0 {
		pairs := make([]string, 0, len(breakdown))
		for _, b := range breakdown {
			pairs = append(pairs, fmt.Sprintf("%s: %d", b.Category, b.Count))
		}
		parts = append(parts, fmt.Sprintf("Categories: %s.", strings.Join(pairs, ", ")))
	}

	return strings.Join(parts, " ")
}

// CategoryCount is one entry of a category breakdown.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// CategoryBreakdown counts tasks per category in order of first appearance.
func CategoryBreakdown(tasks []Task) []CategoryCount {
	var out []CategoryCount
	index := make(map[Category]int)
	for _, t := range tasks {
		if i, ok := index[t.Category]; ok {
			out[i].Count++
			continue
		}
		index[t.Category] = len(out)
		out = append(out, CategoryCount{Category: t.Category, Count: 1})
	}
	return out
}

// FilterByPriority returns the tasks with priority p, in order.
func FilterByPriority(tasks []Task, p Priority) []Task {
	var out []Task
	for _, t := range tasks {
		if t.Priority == p {
			out = append(out, t)
		}
	}
	return out
}

// Process runs the default pipeline over annotations.
func Process(annotations []Annotation) []Task {
	return NewPipeline(nil).Process(annotations)
}

package prompt

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/cexll/redesign/internal/feedback"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// OverrideDir is where on-disk report templates are looked up, relative to the
// working directory. A file found there replaces the embedded default.
var OverrideDir = filepath.Join("templates", "report")

// Format names a report rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPrompt   Format = "prompt"
	FormatJSON     Format = "json"
)

// ParseFormat converts a flag or query value into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMarkdown, FormatPrompt, FormatJSON:
		return f, nil
	case "", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (must be markdown, prompt or json)", s)
	}
}

// Instructions is the numbered footer appended to every report.
var Instructions = []string{
	"Start with CRITICAL and HIGH priority items",
	"Use the provided selectors to locate elements",
	"Apply suggested fixes, adapting as needed",
	"Verify each fix addresses the original feedback",
	"Run accessibility checks after visual changes",
	"Test responsive behavior on mobile viewports",
}

// RenderMarkdown renders the export as a Markdown document grouped by priority.
func RenderMarkdown(exp *feedback.Export) string {
	return render("markdown.tmpl", exp)
}

// RenderPrompt renders the export as agent prompt text, led by the summary line.
func RenderPrompt(exp *feedback.Export) string {
	return render("prompt.tmpl", exp)
}

// Render dispatches on format. JSON is not a text rendering and is rejected.
func Render(exp *feedback.Export, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return RenderMarkdown(exp), nil
	case FormatPrompt:
		return RenderPrompt(exp), nil
	default:
		return "", fmt.Errorf("format %q is not a text report", format)
	}
}

type numberedTask struct {
	feedback.Task
	Number int
}

type tier struct {
	Priority feedback.Priority
	Tasks    []numberedTask
}

type reportData struct {
	*feedback.Export
	Counts       feedback.Counts
	Others       int
	Tiers        []tier
	Instructions []string
}

func newReportData(exp *feedback.Export) reportData {
	counts := exp.Counts()
	data := reportData{
		Export:       exp,
		Counts:       counts,
		Others:       len(exp.Tasks) - counts.Critical - counts.High,
		Instructions: Instructions,
	}

	n := 0
	for _, p := range feedback.Priorities {
		tasks := feedback.FilterByPriority(exp.Tasks, p)
		if len(tasks) == 0 {
			continue
		}
		t := tier{Priority: p}
		for _, task := range tasks {
			n++
			t.Tasks = append(t.Tasks, numberedTask{Task: task, Number: n})
		}
		data.Tiers = append(data.Tiers, t)
	}
	return data
}

var funcs = template.FuncMap{
	"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
	"inc":   func(i int) int { return i + 1 },
	"iso":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}

func render(name string, exp *feedback.Export) string {
	data := newReportData(exp)

	if out, ok := renderTemplateFile(filepath.Join(OverrideDir, name), data); ok {
		return out
	}

	tmpl := template.Must(template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/"+name))
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		// Embedded templates only reference reportData fields.
		panic(fmt.Sprintf("render %s: %v", name, err))
	}
	return sb.String()
}

func renderTemplateFile(path string, data any) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).Parse(string(b))
	if err != nil {
		log.Printf("[Report] Ignoring template override %s: %v", path, err)
		return "", false
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		log.Printf("[Report] Ignoring template override %s: %v", path, err)
		return "", false
	}
	return sb.String(), true
}

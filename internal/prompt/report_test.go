package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexll/redesign/internal/feedback"
)

func sampleExport(t *testing.T, annotations ...feedback.Annotation) *feedback.Export {
	t.Helper()
	p := feedback.NewPipeline(feedback.NewSynthesizer(feedback.WithSelection(feedback.SelectFirst)))
	return p.Export(annotations, feedback.ExportOptions{
		Project: "landing",
		PageURL: "https://example.com",
		Now:     func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) },
	})
}

func mixedAnnotations() []feedback.Annotation {
	return []feedback.Annotation{
		{ID: "a1", Element: "footer", Comment: "colors look off"},
		{ID: "a2", Element: "button.signup", Comment: "This signup button is broken and confusing"},
		{ID: "a3", Element: "h1", Comment: "minor typo in the headline text"},
		{ID: "a4", Element: "main", Comment: "urgent: the pricing page loads slowly"},
	}
}

func TestRenderMarkdown_GroupsByTier(t *testing.T) {
	md := RenderMarkdown(sampleExport(t, mixedAnnotations()...))

	assert.True(t, strings.HasPrefix(md, "# Visual Feedback - Redesign Tasks"))
	assert.Contains(t, md, "Generated: 2026-10-16T09:30:00Z")
	assert.Contains(t, md, "Total Annotations: 4")
	assert.Contains(t, md, "- **1 CRITICAL** issues require immediate attention")
	assert.Contains(t, md, "- **1 HIGH** priority issues to address")
	assert.Contains(t, md, "- 2 other improvements")

	critical := strings.Index(md, "### CRITICAL Priority")
	high := strings.Index(md, "### HIGH Priority")
	medium := strings.Index(md, "### MEDIUM Priority")
	low := strings.Index(md, "### LOW Priority")
	require.True(t, critical > 0 && high > critical && medium > high && low > medium, md)

	assert.Contains(t, md, "#### [UX] This signup button is broken and confusing")
	assert.Contains(t, md, "- **Element:** `button.signup`")
	assert.Contains(t, md, "- **Type:** fix")
	assert.Contains(t, md, "```tsx\n// Add loading state to button.signup")
}

func TestRenderMarkdown_ContentHasNoSnippet(t *testing.T) {
	md := RenderMarkdown(sampleExport(t, feedback.Annotation{ID: "a", Element: "h1", Comment: "minor typo in the headline text"}))
	assert.Contains(t, md, "#### [CONTENT] minor typo in the headline text")
	assert.NotContains(t, md, "```tsx")
}

func TestRenderMarkdown_Instructions(t *testing.T) {
	md := RenderMarkdown(sampleExport(t))
	assert.Contains(t, md, "No issues found.")
	for i, step := range Instructions {
		assert.Contains(t, md, strings.Join([]string{string(rune('1' + i)), ". ", step}, ""))
	}
}

func TestRenderPrompt_SummaryFirst(t *testing.T) {
	exp := sampleExport(t, mixedAnnotations()...)
	out := RenderPrompt(exp)

	firstLine := strings.SplitN(out, "\n", 2)[0]
	assert.Equal(t, "> "+exp.Summary, firstLine)
	assert.Contains(t, out, "- **Total Tasks**: 4")
	assert.Contains(t, out, "1. [CRITICAL] [ux] This signup button is broken and confusing")
	assert.Contains(t, out, "2. [HIGH] [performance] urgent: the pricing page loads slowly")
	assert.Contains(t, out, "   Selector: `footer`")
	assert.Contains(t, out, "6. Test responsive behavior on mobile viewports")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "When finished, provide a summary of changes made."))
}

func TestRenderers_ShareTaskData(t *testing.T) {
	exp := sampleExport(t, mixedAnnotations()...)
	md := RenderMarkdown(exp)
	pr := RenderPrompt(exp)

	for _, task := range exp.Tasks {
		assert.Contains(t, md, task.SuggestedFix)
		assert.Contains(t, pr, task.SuggestedFix)
	}
}

func TestRender_Format(t *testing.T) {
	exp := sampleExport(t)

	out, err := Render(exp, FormatPrompt)
	require.NoError(t, err)
	assert.Equal(t, RenderPrompt(exp), out)

	_, err = Render(exp, FormatJSON)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "Prompt": FormatPrompt, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestRender_TemplateOverride(t *testing.T) {
	dir := t.TempDir()
	prev := OverrideDir
	OverrideDir = dir
	t.Cleanup(func() { OverrideDir = prev })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.tmpl"), []byte("{{len .Tasks}} tasks for {{.Project}}"), 0o644))
	assert.Equal(t, "4 tasks for landing", RenderPrompt(sampleExport(t, mixedAnnotations()...)))

	// Broken overrides fall back to the embedded template.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "markdown.tmpl"), []byte("{{.Missing"), 0o644))
	assert.True(t, strings.HasPrefix(RenderMarkdown(sampleExport(t)), "# Visual Feedback"))
}

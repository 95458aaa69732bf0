package feedback

import (
	"strings"
	"unicode"
)

// Placeholders in the fix and snippet templates.
const (
	elementPlaceholder   = "{element}"
	commentPlaceholder   = "{comment}"
	componentPlaceholder = "{component}"
)

// FixTemplates holds the suggested-fix phrasings per category.
var FixTemplates = map[Category][]string{
	CategoryUX: {
		"Review the interaction pattern on `{element}`. Consider adding visual feedback (hover states, loading indicators) or clearer affordances.",
		"Simplify the user flow for `{element}`. Break complex actions into smaller steps with clear progress indication.",
		"Add tooltips or helper text to `{element}` to clarify its purpose.",
	},
	CategoryAccessibility: {
		"Increase contrast ratio on `{element}` to meet WCAG 2.1 AA (4.5:1 for text, 3:1 for large text). Use a contrast checker tool.",
		"Add ARIA labels to `{element}` for screen reader support: `aria-label=\"descriptive text\"`",
		"Ensure `{element}` is keyboard accessible with visible focus states.",
		"Increase font size on `{element}` to minimum 16px for body text.",
	},
	CategoryVisual: {
		"Apply consistent spacing to `{element}` using design system tokens (e.g., `space-4`, `space-8`, or `gap-4`).",
		"Adjust `{element}` alignment to match the grid system. Use flexbox or grid for consistent layout.",
		"Review color usage on `{element}`. Ensure it matches the brand palette and has sufficient contrast.",
		"Fix layout issues on `{element}`. Check for overflow, wrapping, or responsive breakpoints.",
	},
	CategoryContent: {
		"Rewrite copy on `{element}` to be more action-oriented and benefit-focused. Lead with the user's gain.",
		"Shorten text on `{element}` while maintaining clarity. Aim for 6th-8th grade reading level.",
		"Fix typo/grammar issue on `{element}`: \"{comment}\"",
		"Clarify messaging on `{element}`. Make the value proposition clear in the first 5 words.",
	},
	CategoryPerformance: {
		"Optimize `{element}` rendering. Consider memoization (`React.memo`, `useMemo`) to prevent unnecessary re-renders.",
		"Lazy load content in `{element}` to improve initial page load time.",
		"Reduce animation complexity on `{element}` or use CSS transforms instead of layout properties.",
		"Check for memory leaks or excessive DOM nodes in `{element}`.",
	},
}

// DesiredStates holds the target-state phrases per category.
var DesiredStates = map[Category][]string{
	CategoryUX: {
		"Clear and intuitive interaction",
		"Obvious user flow",
		"Immediate feedback on actions",
	},
	CategoryAccessibility: {
		"WCAG 2.1 AA compliant",
		"Sufficient color contrast (4.5:1 minimum)",
		"Readable font size (16px+ minimum)",
	},
	CategoryVisual: {
		"Consistent with design system",
		"Proper spacing and alignment",
		"Visual hierarchy established",
	},
	CategoryContent: {
		"Clear, concise messaging",
		"Action-oriented copy",
		"Benefit-focused content",
	},
	CategoryPerformance: {
		"Fast loading (<100ms)",
		"Smooth animations (60fps)",
		"Optimized assets",
	},
}

// SnippetTemplates holds the code snippet per category. Content has none.
var SnippetTemplates = map[Category]string{
	CategoryAccessibility: `// Add to {element}
<button
  aria-label="Descriptive action label"
  className="focus:ring-2 focus:ring-primary-500 focus:outline-none"
>
  ...
</button>`,
	CategoryVisual: `// Fix spacing on {element}
<div className="flex items-center gap-4 p-6">
  ...
</div>`,
	CategoryUX: `// Add loading state to {element}
{isLoading ? (
  <Skeleton className="h-10 w-full" />
) : (
  <Content />
)}`,
	CategoryPerformance: `// Memoize {element}
const MemoizedComponent = React.memo(function {component}() {
  return <div>...</div>;
});`,
}

func fill(tmpl string, a Annotation) string {
	return strings.NewReplacer(
		elementPlaceholder, a.Element,
		commentPlaceholder, a.Comment,
		componentPlaceholder, componentName(a.Element),
	).Replace(tmpl)
}

// componentName keeps only ASCII letters of an element locator.
func componentName(element string) string {
	var b strings.Builder
	for _, r := range element {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Component"
	}
	return b.String()
}

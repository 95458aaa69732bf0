package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/go-github/v66/github"
	"github.com/google/uuid"

	"github.com/cexll/redesign/internal/feedback"
	"github.com/cexll/redesign/internal/prompt"
)

// maxIssueBody is GitHub's limit on issue body length.
const maxIssueBody = 65536

const truncatedNote = "\n\n_Report truncated; see the full export for the remaining tasks._\n"

// publishMarkerPrefix starts the hidden comment that identifies one Publish call
// in an issue body, so a retried create can find an issue the failed attempt
// already opened.
const publishMarkerPrefix = "<!-- visual-feedback-publish:"

// recentIssuesChecked is how many of the newest feedback issues are searched
// for the marker before a retried create.
const recentIssuesChecked = 30

// FeedbackLabel marks every issue opened from visual feedback.
const FeedbackLabel = "feedback"

var labelColors = map[feedback.Priority]string{
	feedback.PriorityCritical: "b60205",
	feedback.PriorityHigh:     "d93f0b",
	feedback.PriorityMedium:   "fbca04",
	feedback.PriorityLow:      "0e8a16",
}

// IssuePublisher files an export as a GitHub issue.
type IssuePublisher struct {
	client       *github.Client
	owner        string
	repo         string
	maxRetries   int
	initialDelay time.Duration
}

// NewClient returns a GitHub API client authenticated with token.
func NewClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// NewIssuePublisher creates a publisher for repo in owner/name form.
func NewIssuePublisher(client *github.Client, repo string) (*IssuePublisher, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid repository %q (want owner/name)", repo)
	}
	if client == nil {
		return nil, errors.New("github client is required")
	}
	return &IssuePublisher{
		client:       client,
		owner:        owner,
		repo:         name,
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
	}, nil
}

// IssueTitle names the issue for an export.
func IssueTitle(exp *feedback.Export) string {
	return fmt.Sprintf("Visual feedback: %d redesign tasks", len(exp.Tasks))
}

// IssueLabels returns the feedback label plus one priority label per
// priority present, most urgent first.
func IssueLabels(exp *feedback.Export) []string {
	labels := []string{FeedbackLabel}
	counts := exp.Counts()
	for _, p := range feedback.Priorities {
		if counts.Of(p) > 0 {
			labels = append(labels, priorityLabel(p))
		}
	}
	return labels
}

func priorityLabel(p feedback.Priority) string {
	return "priority:" + string(p)
}

// Publish opens one issue holding the Markdown report and returns its URL.
func (p *IssuePublisher) Publish(ctx context.Context, exp *feedback.Export) (string, error) {
	labels := IssueLabels(exp)
	for _, label := range labels {
		if err := p.ensureLabel(ctx, label); err != nil {
			return "", err
		}
	}

	title := IssueTitle(exp)
	marker := publishMarkerPrefix + uuid.NewString() + " -->"
	body := truncate(prompt.RenderMarkdown(exp), maxIssueBody-len(marker)-1) + "\n" + marker
	req := &github.IssueRequest{
		Title:  &title,
		Body:   &body,
		Labels: &labels,
	}

	var issue *github.Issue
	attempt := 0
	err := retryWithBackoff(ctx, p.maxRetries, p.initialDelay, func() error {
		attempt++
		if attempt > 1 {
			// The previous attempt may have been created before its response was lost.
			existing, err := p.findIssue(ctx, marker)
			if err != nil {
				return err
			}
			if existing != nil {
				log.Printf("[Publish] Found issue #%d from an earlier attempt", existing.GetNumber())
				issue = existing
				return nil
			}
		}
		created, _, err := p.client.Issues.Create(ctx, p.owner, p.repo, req)
		if err != nil {
			return err
		}
		issue = created
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create issue in %s/%s: %w", p.owner, p.repo, err)
	}

	log.Printf("[Publish] Created issue #%d in %s/%s with %d tasks", issue.GetNumber(), p.owner, p.repo, len(exp.Tasks))
	return issue.GetHTMLURL(), nil
}

// findIssue returns the recent feedback issue whose body carries marker, or nil.
func (p *IssuePublisher) findIssue(ctx context.Context, marker string) (*github.Issue, error) {
	issues, _, err := p.client.Issues.ListByRepo(ctx, p.owner, p.repo, &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{FeedbackLabel},
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: recentIssuesChecked},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	for _, issue := range issues {
		if strings.Contains(issue.GetBody(), marker) {
			return issue, nil
		}
	}
	return nil, nil
}

// ensureLabel creates label unless it already exists.
func (p *IssuePublisher) ensureLabel(ctx context.Context, label string) error {
	color := "0366d6"
	desc := "Opened from visual feedback"
	if strings.HasPrefix(label, "priority:") {
		pr := feedback.Priority(strings.TrimPrefix(label, "priority:"))
		color = labelColors[pr]
		desc = "Report contains " + string(pr) + " priority tasks"
	}

	return retryWithBackoff(ctx, p.maxRetries, p.initialDelay, func() error {
		_, resp, err := p.client.Issues.CreateLabel(ctx, p.owner, p.repo, &github.Label{
			Name:        &label,
			Color:       &color,
			Description: &desc,
		})
		if err != nil && resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create label %q: %w", label, err)
		}
		return nil
	})
}

func truncate(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	cut := limit - len(truncatedNote)
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + truncatedNote
}

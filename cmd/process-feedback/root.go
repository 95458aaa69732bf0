package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/cexll/redesign/internal/config"
	"github.com/cexll/redesign/internal/feedback"
	"github.com/cexll/redesign/internal/prompt"
	"github.com/cexll/redesign/internal/publish"
)

// exportPublisher files an export somewhere and returns a link to it.
type exportPublisher interface {
	Publish(ctx context.Context, exp *feedback.Export) (string, error)
}

var (
	loadConfig   = config.Load
	newPublisher = func(token, repo string) (exportPublisher, error) {
		return publish.NewIssuePublisher(publish.NewClient(token), repo)
	}
	newTermRenderer = func() (*glamour.TermRenderer, error) {
		return glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	}
)

type processOptions struct {
	input     string
	output    string
	format    string
	project   string
	pageURL   string
	keywords  string
	selection string
	max       int
	publish   string
	pretty    bool
}

func newRootCmd() *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process-feedback --input feedback.json",
		Short: "Turn visual feedback annotations into prioritized redesign tasks",
		Long: `Reads annotations exported from the annotation UI (a JSON array or an
object with an "annotations" array), classifies each one, and writes a
report grouped by priority.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "annotations JSON file (required)")
	f.StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	f.StringVarP(&opts.format, "format", "f", "markdown", "report format: markdown, prompt or json")
	f.StringVar(&opts.project, "project", "", "project name (default $PROJECT_NAME)")
	f.StringVar(&opts.pageURL, "page-url", "", "annotated page URL (default $PAGE_URL)")
	f.StringVar(&opts.keywords, "keywords", "", "YAML or JSON keyword table overrides (default $KEYWORDS_FILE)")
	f.StringVar(&opts.selection, "selection", "", "fix template selection: first, hash or random (default $FIX_SELECTION)")
	f.IntVar(&opts.max, "max", 0, "maximum number of annotations (default $MAX_ANNOTATIONS)")
	f.StringVar(&opts.publish, "publish", "", "also open a GitHub issue in owner/repo (needs $GITHUB_TOKEN)")
	f.BoolVar(&opts.pretty, "pretty", false, "style the markdown or prompt report for the terminal")
	_ = cmd.MarkFlagRequired("input")

	cmd.AddCommand(newTokenCmd())
	return cmd
}

func runProcess(cmd *cobra.Command, opts *processOptions) error {
	stderr := cmd.ErrOrStderr()

	format, err := prompt.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.pretty && (format == prompt.FormatJSON || opts.output != "") {
		return errors.New("--pretty only applies to markdown or prompt reports written to stdout")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.keywords != "" {
		cfg.KeywordsFile = opts.keywords
	}
	if opts.selection != "" {
		if cfg.FixSelection, err = feedback.ParseSelection(opts.selection); err != nil {
			return err
		}
	}
	if opts.max > 0 {
		cfg.MaxAnnotations = opts.max
	}

	pipeline, err := cfg.NewPipeline()
	if err != nil {
		return err
	}

	inputPath, err := filepath.Abs(opts.input)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(inputPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file not found: %s", inputPath)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Fprintf(stderr, "Reading: %s\n", inputPath)
	req, err := feedback.DecodeRequest(data, cfg.MaxAnnotations)
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	fmt.Fprintf(stderr, "Found %d annotations\n", len(req.Annotations))

	exp := pipeline.Export(req.Annotations, feedback.ExportOptions{
		Project: firstNonEmpty(opts.project, req.ProjectName, cfg.ProjectName),
		PageURL: firstNonEmpty(opts.pageURL, req.PageURL, cfg.PageURL),
	})

	report, err := render(exp, format)
	if err != nil {
		return err
	}

	if opts.output != "" {
		outputPath, err := filepath.Abs(opts.output)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, []byte(report), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(stderr, "Tasks saved to: %s\n", outputPath)
	} else {
		if opts.pretty {
			if report, err = style(report); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}

	if opts.publish != "" {
		if cfg.GitHubToken == "" {
			return fmt.Errorf("--publish requires GITHUB_TOKEN")
		}
		publisher, err := newPublisher(cfg.GitHubToken, opts.publish)
		if err != nil {
			return err
		}
		url, err := publisher.Publish(cmd.Context(), exp)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Issue created: %s\n", url)
	}

	printSummary(stderr, exp.Counts())
	return nil
}

func render(exp *feedback.Export, format prompt.Format) (string, error) {
	if format != prompt.FormatJSON {
		return prompt.Render(exp, format)
	}
	b, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func style(report string) (string, error) {
	r, err := newTermRenderer()
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	return r.Render(report)
}

func printSummary(w io.Writer, counts feedback.Counts) {
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "   Critical: %d\n", counts.Critical)
	fmt.Fprintf(w, "   High: %d\n", counts.High)
	fmt.Fprintf(w, "   Medium: %d\n", counts.Medium)
	fmt.Fprintf(w, "   Low: %d\n", counts.Low)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

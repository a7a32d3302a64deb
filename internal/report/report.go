// Package report renders batch status as colored text, Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/dbfc/internal/history"
	"github.com/harrison/dbfc/internal/logger"
	"github.com/harrison/dbfc/internal/models"
)

// Format selects the output representation.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown, FormatHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, markdown or html)", s)
	}
}

// Report is the data rendered for one batch.
type Report struct {
	Batch *models.Batch
	// Failures holds the last failed attempt per source path. Optional.
	Failures map[string]*history.Attempt
	// Runs lists previous runs, most recent first. Optional.
	Runs []history.RunSummary
}

// Write renders r to w in the given format.
func Write(w io.Writer, r Report, format Format) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatHTML:
		html, err := HTML(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return Text(w, r)
	}
}

// Markdown renders r as a Markdown document.
func Markdown(r Report) string {
	b := r.Batch
	s := b.Summary()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Batch %s\n\n", b.Name)
	fmt.Fprintf(&sb, "- Source: `%s`\n", b.SourceDir)
	fmt.Fprintf(&sb, "- Destination: `%s`\n\n", b.DestinationDir)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Status | Jobs |\n|---|---:|\n")
	fmt.Fprintf(&sb, "| Pending | %d |\n", s.Pending)
	fmt.Fprintf(&sb, "| Done | %d |\n", s.Done)
	fmt.Fprintf(&sb, "| Error | %d |\n", s.Error)
	fmt.Fprintf(&sb, "| **Total** | **%d** |\n\n", s.Total)

	if len(b.Rules) > 0 {
		sb.WriteString("## Rules\n\n")
		sb.WriteString("| Extension | Command |\n|---|---|\n")
		for _, ext := range b.Rules.Extensions() {
			fmt.Fprintf(&sb, "| %s | `%s` |\n", cell(ext), cell(b.Rules[ext]))
		}
		sb.WriteString("\n")
	}

	failed := b.JobsWithStatus(models.StatusError)
	if len(failed) > 0 {
		sb.WriteString("## Failed jobs\n\n")
		sb.WriteString("| Source | Stage | Exit code | Reason |\n|---|---|---:|---|\n")
		for _, job := range failed {
			stage, code, reason := "", "", ""
			if a, ok := r.Failures[job.SourcePath]; ok {
				stage = a.Stage
				reason = a.ErrorMessage
				if a.ExitCode != nil {
					code = fmt.Sprintf("%d", *a.ExitCode)
				}
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				cell(relative(b.SourceDir, job.SourcePath)), cell(stage), code, cell(reason))
		}
		sb.WriteString("\n")
	}

	if len(r.Runs) > 0 {
		sb.WriteString("## Runs\n\n")
		sb.WriteString("| Run | Started | Attempted | Failed |\n|---|---|---:|---:|\n")
		for _, run := range r.Runs {
			started := ""
			if !run.Started.IsZero() {
				started = run.Started.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n", run.RunID, started, run.Attempted, run.Failed)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// HTML renders the Markdown report to an HTML fragment.
func HTML(r Report) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("failed to render html report: %w", err)
	}
	return buf.String(), nil
}

// Text writes a compact summary, colored when w is a terminal.
func Text(w io.Writer, r Report) error {
	b := r.Batch
	s := b.Summary()

	label := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	if !logger.IsTerminal(w) {
		for _, c := range []*color.Color{label, green, red, yellow} {
			c.DisableColor()
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", label.Sprint("Batch:"), b.Name)
	fmt.Fprintf(&sb, "%s %s\n", label.Sprint("Source:"), b.SourceDir)
	fmt.Fprintf(&sb, "%s %s\n", label.Sprint("Destination:"), b.DestinationDir)
	fmt.Fprintf(&sb, "%s %d total, %s, %s, %s\n",
		label.Sprint("Jobs:"), s.Total,
		yellow.Sprintf("%d pending", s.Pending),
		green.Sprintf("%d done", s.Done),
		red.Sprintf("%d error", s.Error))

	for _, job := range b.JobsWithStatus(models.StatusError) {
		line := fmt.Sprintf("  %s %s", red.Sprint("✗"), relative(b.SourceDir, job.SourcePath))
		if a, ok := r.Failures[job.SourcePath]; ok && a.ErrorMessage != "" {
			line += ": " + a.ErrorMessage
		}
		sb.WriteString(line + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/dbfc/internal/history"
	"github.com/harrison/dbfc/internal/models"
	"github.com/harrison/dbfc/internal/rules"
)

func sampleReport() Report {
	code := 2
	return Report{
		Batch: &models.Batch{
			Name:           "movies",
			SourceDir:      "/data/src",
			DestinationDir: "/data/dst",
			Rules:          rules.Table{"avi": "ffmpeg -i $file_path $file_path_out", "pipe": "sh -c a|b $file_path $file_path_out"},
			Jobs: []models.Job{
				{SourcePath: "/data/src/a.avi", SourceFingerprint: "x", Status: models.StatusDone, DestinationPath: "/data/dst/a.avi"},
				{SourcePath: "/data/src/b/c.avi", SourceFingerprint: "y", Status: models.StatusError},
				{SourcePath: "/data/src/d.txt", SourceFingerprint: "z", Status: models.StatusPending},
			},
		},
		Failures: map[string]*history.Attempt{
			"/data/src/b/c.avi": {Stage: "execute", ExitCode: &code, ErrorMessage: "command 'ffmpeg' failed with exit code 2"},
		},
		Runs: []history.RunSummary{
			{RunID: "run-1", Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Attempted: 2, Failed: 1},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.Contains(t, md, "# Batch movies")
	assert.Contains(t, md, "| Pending | 1 |")
	assert.Contains(t, md, "| Done | 1 |")
	assert.Contains(t, md, "| Error | 1 |")
	assert.Contains(t, md, "| **Total** | **3** |")
	assert.Contains(t, md, "| b/c.avi | execute | 2 | command 'ffmpeg' failed with exit code 2 |")
	assert.Contains(t, md, `sh -c a\|b`)
	assert.Contains(t, md, "| run-1 |")
}

func TestMarkdownWithoutHistory(t *testing.T) {
	r := sampleReport()
	r.Failures = nil
	r.Runs = nil

	md := Markdown(r)
	assert.Contains(t, md, "| b/c.avi |  |  |  |")
	assert.NotContains(t, md, "## Runs")
}

func TestMarkdownNoFailures(t *testing.T) {
	r := Report{Batch: &models.Batch{Name: "empty", SourceDir: "/s", DestinationDir: "/d", Jobs: []models.Job{}}}
	md := Markdown(r)
	assert.NotContains(t, md, "## Failed jobs")
	assert.NotContains(t, md, "## Rules")
	assert.Contains(t, md, "| **Total** | **0** |")
}

func TestHTML(t *testing.T) {
	html, err := HTML(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Batch movies</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>b/c.avi</td>")
	assert.NotContains(t, html, "| Pending |")
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Batch: movies")
	assert.Contains(t, out, "Jobs: 3 total, 1 pending, 1 done, 1 error")
	assert.Contains(t, out, "✗ b/c.avi: command 'ffmpeg' failed with exit code 2")
	assert.NotContains(t, out, "\x1b[", "buffers must not receive color codes")
}

func TestWriteDispatchesOnFormat(t *testing.T) {
	for _, f := range []Format{FormatText, FormatMarkdown, FormatHTML} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, sampleReport(), f))
		out := buf.String()
		switch f {
		case FormatHTML:
			assert.True(t, strings.HasPrefix(out, "<h1>"), out)
		case FormatMarkdown:
			assert.True(t, strings.HasPrefix(out, "# Batch"), out)
		default:
			assert.True(t, strings.HasPrefix(out, "Batch:"), out)
		}
	}
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/dbfc/internal/config"
	"github.com/harrison/dbfc/internal/history"
	"github.com/harrison/dbfc/internal/models"
	"github.com/harrison/dbfc/internal/state"
)

type cliEnv struct {
	src, dst   string
	configPath string
	logDir     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	env := &cliEnv{
		src:        filepath.Join(root, "src"),
		dst:        filepath.Join(root, "dst"),
		configPath: filepath.Join(root, "config.yaml"),
		logDir:     filepath.Join(root, "logs"),
	}
	files := map[string]string{
		"notes/a.txt": "alpha",
		"b.txt":       "beta",
		"clip.xyz":    "no rule",
	}
	for rel, content := range files {
		path := filepath.Join(env.src, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return env
}

// execute runs the root command with the env's config and log flags.
func (e *cliEnv) execute(args ...string) (string, error) {
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--config", e.configPath, "--log-dir", e.logDir))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRuleAddAndList(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute("rule", "add", "-e", "txt", "-c", "/bin/cp $file_path $file_path_out")
	require.NoError(t, err)
	assert.Contains(t, out, "Rule for .txt saved")

	cfg, err := config.LoadConfig(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, "/bin/cp $file_path $file_path_out", cfg.Rules["txt"])

	out, err = env.execute("rule", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "avi")
	assert.Contains(t, out, "/bin/cp $file_path $file_path_out")
}

func TestRuleAddRejectsInvalidExtension(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute("rule", "add", "-e", ".txt", "-c", "tool")
	require.Error(t, err)
	_, statErr := os.Stat(env.configPath)
	assert.True(t, os.IsNotExist(statErr), "config must not be written for an invalid rule")
}

func TestInitRunStatus(t *testing.T) {
	if _, err := os.Stat("/bin/cp"); err != nil {
		t.Skip("cp not available")
	}
	env := newCLIEnv(t)

	_, err := env.execute("rule", "add", "-e", "txt", "-c", "/bin/cp $file_path $file_path_out")
	require.NoError(t, err)

	out, err := env.execute("init", "batch", "-s", env.src, "-d", env.dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Created batch batch with 3 jobs")

	_, err = env.execute("init", "batch", "-s", env.src, "-d", env.dst)
	require.ErrorIs(t, err, state.ErrAlreadyExists)

	_, err = env.execute("run", "batch", "--dir", env.src)
	require.NoError(t, err, "job failures must not fail the run")

	data, err := os.ReadFile(filepath.Join(env.dst, "notes", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	b, err := state.Load(env.src, "batch")
	require.NoError(t, err)
	summary := b.Summary()
	assert.Equal(t, 2, summary.Done)
	assert.Equal(t, 1, summary.Error)
	for _, j := range b.JobsWithStatus(models.StatusError) {
		assert.Equal(t, filepath.Join(env.src, "clip.xyz"), j.SourcePath)
	}

	_, err = os.Stat(history.DefaultPath(env.src))
	require.NoError(t, err, "history database should be created by run")
	_, err = os.Readlink(filepath.Join(env.logDir, "latest.log"))
	require.NoError(t, err, "run log should be written")

	out, err = env.execute("status", "batch", "--dir", env.src)
	require.NoError(t, err)
	assert.Contains(t, out, "3 total, 0 pending, 2 done, 1 error")
	assert.Contains(t, out, "clip.xyz: job")
	assert.Contains(t, out, "no rule")

	report := filepath.Join(env.dst, "..", "report.html")
	_, err = env.execute("status", "batch", "--dir", env.src, "--format", "html", "--output", report)
	require.NoError(t, err)
	html, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Batch batch</h1>")

	// A second run has nothing left to do.
	out, err = env.execute("run", "batch", "--dir", env.src, "--no-history")
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 3 jobs pending")
}

func TestRunUnknownBatch(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute("run", "missing", "--dir", env.src)
	require.ErrorIs(t, err, state.ErrNotFound)

	_, err = env.execute("run", "missing", "--dir", filepath.Join(env.src, "nope"))
	require.ErrorIs(t, err, state.ErrDirNotFound)
}

func TestRunInvalidTimeout(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute("run", "batch", "--dir", env.src, "--timeout", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestStatusUnknownFormat(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute("init", "batch", "-s", env.src, "-d", env.dst)
	require.NoError(t, err)

	_, err = env.execute("status", "batch", "--dir", env.src, "--format", "pdf")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown report format"))
}

func TestInitWarnsAboutSymlinks(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.Symlink(filepath.Join(env.src, "b.txt"), filepath.Join(env.src, "link.txt")))

	out, err := env.execute("init", "batch", "-s", env.src, "-d", env.dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped 1 entries that are not regular files")
	assert.Contains(t, out, "1. link.txt")
	assert.Contains(t, out, "Created batch batch with 3 jobs")
}

func TestInitFromInsideSourceIgnoresOwnFiles(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.avi"), []byte("video"), 0644))
	t.Setenv(config.EnvConfigPath, "")
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(src))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	run := func(args ...string) string {
		t.Helper()
		cmd := NewRootCommand()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return buf.String()
	}

	// Writes .dbfc/config.yaml and its lock into the source tree.
	run("rule", "add", "-e", "mkv", "-c", "tool $file_path $file_path_out")
	// Opens .dbfc/logs with a latest.log symlink before scanning.
	out := run("init", "movies", "-s", ".", "-d", filepath.Join(root, "dst"))
	assert.NotContains(t, out, "Skipped")
	assert.Contains(t, out, "Created batch movies with 1 jobs")

	_, err = os.Readlink(filepath.Join(src, ".dbfc", "logs", "latest.log"))
	require.NoError(t, err, "run log should be written under the source tree")

	b, err := state.Load(src, "movies")
	require.NoError(t, err)
	require.Len(t, b.Jobs, 1)
	assert.Equal(t, filepath.Join(src, "a.avi"), b.Jobs[0].SourcePath)
}

func TestInitExcludeDirFlag(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute("init", "batch", "-s", env.src, "-d", env.dst, "--exclude-dir", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "Created batch batch with 2 jobs")
}

func TestInitRequiresFlags(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute("init", "batch", "-s", env.src)
	require.Error(t, err)
}

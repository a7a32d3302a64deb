package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{
			name:     "input and output placeholders",
			template: "tool -i $file_path -o $file_path_out",
			want:     []string{"tool", "-i", "/a/in.avi", "-o", "/b/out.mp4"},
		},
		{
			name:     "fixed flags pass through",
			template: "ffmpeg -i $file_path -c:v libx264 -preset slow $file_path_out",
			want:     []string{"ffmpeg", "-i", "/a/in.avi", "-c:v", "libx264", "-preset", "slow", "/b/out.mp4"},
		},
		{
			name:     "irregular whitespace",
			template: "  tool\t$file_path \n  $file_path_out  ",
			want:     []string{"tool", "/a/in.avi", "/b/out.mp4"},
		},
		{
			name:     "partial placeholder is not substituted",
			template: "tool $file_path.tmp prefix$file_path_out",
			want:     []string{"tool", "$file_path.tmp", "prefix$file_path_out"},
		},
		{
			name:     "placeholder repeated",
			template: "cp $file_path $file_path_out $file_path",
			want:     []string{"cp", "/a/in.avi", "/b/out.mp4", "/a/in.avi"},
		},
		{
			name:     "executable only",
			template: "true",
			want:     []string{"true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Plan(tt.template, "/a/in.avi", "/b/out.mp4")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Argv())
			assert.Equal(t, tt.want[0], cmd.Executable)
			assert.Equal(t, tt.want[1:], cmd.Args)
		})
	}
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     error
	}{
		{"empty", "", ErrEmptyTemplate},
		{"whitespace only", " \t ", ErrEmptyTemplate},
		{"source placeholder first", "$file_path -o $file_path_out", ErrPlaceholderExecutable},
		{"destination placeholder first", "$file_path_out", ErrPlaceholderExecutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.template, "/a/in.avi", "/b/out.mp4")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCommand_String(t *testing.T) {
	cmd := Command{Executable: "tool", Args: []string{"-i", "x"}}
	assert.Equal(t, "tool -i x", cmd.String())
}

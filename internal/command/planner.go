// Package command plans and executes the external conversion commands that
// dbfc runs for each job.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/dbfc/internal/rules"
)

var (
	// ErrEmptyTemplate indicates a command template with no tokens.
	ErrEmptyTemplate = errors.New("command template is empty")
	// ErrPlaceholderExecutable indicates a template whose executable position holds a placeholder.
	ErrPlaceholderExecutable = errors.New("command template starts with a placeholder instead of an executable")
)

// Command is a planned invocation: an executable and its arguments.
type Command struct {
	Executable string
	Args       []string
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	return append([]string{c.Executable}, c.Args...)
}

// String renders the command for logs. Arguments are not shell-quoted.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Plan tokenizes template on whitespace and substitutes every token that is
// exactly $file_path or $file_path_out. Other tokens pass through unchanged,
// so a token like "$file_path.tmp" is not substituted.
func Plan(template, source, destination string) (Command, error) {
	tokens := strings.Fields(template)
	if len(tokens) == 0 {
		return Command{}, ErrEmptyTemplate
	}
	if tokens[0] == rules.PlaceholderSource || tokens[0] == rules.PlaceholderDestination {
		return Command{}, fmt.Errorf("%w: %q", ErrPlaceholderExecutable, tokens[0])
	}

	argv := make([]string, len(tokens))
	for i, tok := range tokens {
		switch tok {
		case rules.PlaceholderSource:
			argv[i] = source
		case rules.PlaceholderDestination:
			argv[i] = destination
		default:
			argv[i] = tok
		}
	}

	return Command{Executable: argv[0], Args: argv[1:]}, nil
}

// Package rules maps file extensions to conversion command templates.
package rules

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Placeholders substituted by the command planner.
const (
	PlaceholderSource      = "$file_path"
	PlaceholderDestination = "$file_path_out"
)

var (
	// ErrNoRule indicates the table has no template for an extension.
	ErrNoRule = errors.New("no rule defined for extension")
	// ErrNoExtension indicates a file name carries no extension to look up.
	ErrNoExtension = errors.New("file has no extension")
	// ErrInvalidRule indicates a rule failed validation.
	ErrInvalidRule = errors.New("invalid rule")
)

// Table maps an extension (no leading dot) to a command template.
// Lookups are case-sensitive.
type Table map[string]string

// Defaults returns the built-in rule table.
func Defaults() Table {
	return Table{
		"avi": "ffmpeg -i $file_path -c:v libx264 -preset slow $file_path_out",
	}
}

// Lookup returns the template for ext.
func (t Table) Lookup(ext string) (string, error) {
	if ext == "" {
		return "", ErrNoExtension
	}
	tmpl, ok := t[ext]
	if !ok {
		return "", fmt.Errorf("%w '%s'", ErrNoRule, ext)
	}
	return tmpl, nil
}

// Set adds or replaces the rule for ext after validating both halves.
func (t Table) Set(ext, template string) error {
	if err := ValidateExtension(ext); err != nil {
		return err
	}
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: empty command template for '%s'", ErrInvalidRule, ext)
	}
	t[ext] = template
	return nil
}

// Merge returns a new table holding t overlaid with other.
func (t Table) Merge(other Table) Table {
	merged := make(Table, len(t)+len(other))
	for k, v := range t {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Extensions returns the table keys in sorted order.
func (t Table) Extensions() []string {
	exts := make([]string, 0, len(t))
	for k := range t {
		exts = append(exts, k)
	}
	sort.Strings(exts)
	return exts
}

// ValidateExtension checks that ext can ever match a file name.
func ValidateExtension(ext string) error {
	switch {
	case ext == "":
		return fmt.Errorf("%w: extension is empty", ErrInvalidRule)
	case strings.Contains(ext, "."):
		return fmt.Errorf("%w: extension %q must not contain '.'", ErrInvalidRule, ext)
	case strings.ContainsAny(ext, `/\`) || strings.ContainsAny(ext, " \t\n"):
		return fmt.Errorf("%w: extension %q contains separators or whitespace", ErrInvalidRule, ext)
	}
	return nil
}

// Extension returns the substring after the final '.' of the base name of
// path. A name with no dot, a trailing dot, or only a leading dot
// (".bashrc") has no extension.
func Extension(path string) (string, bool) {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 || idx == len(base)-1 {
		return "", false
	}
	return base[idx+1:], true
}

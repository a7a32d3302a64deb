// Package display formats user-facing warnings for the dbfc CLI.
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Skipped 2 entries that are not regular files",
//	    Files:      []string{"link.avi", "fifo"},
//	    Suggestion: "Symbolic links are never followed",
//	}
//	warning.Display(os.Stderr)
//
// Output is yellow when the writer is a terminal and plain otherwise.
package display

// Package fileutil provides directory scanning for batch job discovery.
//
// The scanner is the single place where dbfc walks a source tree. It is
// strict: a batch must be built from a complete picture of the tree, so any
// walk error aborts the scan instead of being collected and skipped.
//
// # What counts as a file
//
// Only regular files are returned. Directories are descended into (unless
// pruned), and every other entry type is reported in ScanResult.Skipped:
//   - symbolic links (never followed, so cycles are impossible)
//   - devices, sockets and named pipes
//
// # Options
//
// ScanOptions controls pruning and filtering:
//   - ExcludeDirs: directory names pruned at any depth (config exclude_dirs)
//   - ExcludePaths: exact paths pruned; dbfc passes its control directory,
//     .dbfc and its own log and config files
//   - SkipHidden: prune directories starting with "." (config skip_hidden)
//
// # Usage
//
//	result, err := fileutil.ScanDirectory("/media/in", fileutil.ScanOptions{
//	    ExcludePaths: []string{"/media/in/dbfc"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, file := range result.Files {
//	    fmt.Println(file)
//	}
//
// Output is sorted so job order is stable between runs on the same
// filesystem. Callers must not rely on that order for correctness.
package fileutil

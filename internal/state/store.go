// Package state persists batch records as JSON files in a control directory
// beneath the batch's source tree.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/dbfc/internal/filelock"
	"github.com/harrison/dbfc/internal/models"
)

const (
	// ControlDirName is the directory under the source root holding state files.
	ControlDirName = "dbfc"
	// FileExtension is the suffix of batch state files.
	FileExtension = ".bj"
	// RunLockSuffix is appended to a state path to derive the run lock file.
	RunLockSuffix = ".running"
)

var (
	// ErrNotFound indicates no state file exists for the batch name.
	ErrNotFound = errors.New("batch job not found")
	// ErrAlreadyExists indicates init was attempted for an existing batch name.
	ErrAlreadyExists = errors.New("batch job already exists")
	// ErrDirNotFound indicates the directory holding the batch does not exist.
	ErrDirNotFound = errors.New("directory does not exist")
	// ErrBusy indicates another process is running the batch.
	ErrBusy = errors.New("batch job is already running")
)

// ParseError reports a state file that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse batch state %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ControlDir returns the control directory for a source tree.
func ControlDir(sourceDir string) string {
	return filepath.Join(sourceDir, ControlDirName)
}

// Path returns the state file location for batch name under sourceDir.
func Path(sourceDir, name string) string {
	return filepath.Join(ControlDir(sourceDir), name+FileExtension)
}

// ValidateName rejects names that would escape the control directory.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("batch name is required")
	}
	if name == "." || name == ".." || filepath.Base(name) != name || filepath.IsAbs(name) {
		return fmt.Errorf("invalid batch name %q", name)
	}
	return nil
}

// Exists reports whether a state file is present for the batch.
func Exists(sourceDir, name string) (bool, error) {
	_, err := os.Stat(Path(sourceDir, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat batch state: %w", err)
}

// Create persists a newly initialized batch, refusing to replace an
// existing state file for the same name.
func Create(b *models.Batch) error {
	data, err := encode(b)
	if err != nil {
		return err
	}
	path := Path(b.SourceDir, b.Name)
	if err := filelock.WriteNew(path, data); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("a batch job with name %s already exists: %w", b.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to save batch state: %w", err)
	}
	return nil
}

// Save overwrites the batch's state file atomically.
func Save(b *models.Batch) error {
	data, err := encode(b)
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(Path(b.SourceDir, b.Name), data); err != nil {
		return fmt.Errorf("failed to save batch state: %w", err)
	}
	return nil
}

// Load reads the state file for name from dir's control directory.
// Unknown JSON fields are ignored.
func Load(dir, name string) (*models.Batch, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory %q: %w", dir, ErrDirNotFound)
	}

	path := Path(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no batch job named %s in %s: %w", name, dir, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read batch state: %w", err)
	}

	var b models.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := b.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &b, nil
}

// RunLock guards a batch against concurrent runs.
type RunLock struct {
	lock *filelock.FileLock
}

// AcquireRunLock takes the batch's run lock without blocking. Returns
// ErrBusy if another process holds it.
func AcquireRunLock(sourceDir, name string) (*RunLock, error) {
	lock := filelock.NewFileLock(Path(sourceDir, name) + RunLockSuffix)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("%s: %w", name, ErrBusy)
	}
	return &RunLock{lock: lock}, nil
}

// Release frees the run lock.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}

func encode(b *models.Batch) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch state: %w", err)
	}
	return append(data, '\n'), nil
}

package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewFileLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "movies.bj.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}
	if lock.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.Path())
	}
}

func TestLockCreatesParentDirectory(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "dbfc", "movies.bj.lock")

	lock := NewFileLock(lockPath)
	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(filepath.Dir(lockPath)); err != nil {
		t.Errorf("Expected lock directory to exist: %v", err)
	}
}

func TestTryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "movies.bj.running")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	acquired, err := lock1.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Fatal("First TryLock should succeed")
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("Second TryLock should fail when lock is held")
	}

	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Error("TryLock should succeed after unlock")
	}
	lock2.Unlock()
}

func TestAtomicWriteOverwrite(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "movies.bj")

	if err := os.WriteFile(targetPath, []byte(`{"name":"old"}`), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}
	if err := AtomicWrite(targetPath, []byte(`{"name":"new"}`)); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != `{"name":"new"}` {
		t.Errorf("Expected new content, got %q", data)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected permissions 0644, got %v", info.Mode().Perm())
	}
}

func TestAtomicWriteNoTempFileLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "dbfc", "movies.bj")

	for i := 0; i < 3; i++ {
		if err := AtomicWrite(targetPath, []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("AtomicWrite failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(targetPath))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestConcurrentLockAndWrite(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "movies.bj")

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			payload := strings.Repeat(fmt.Sprintf("%d", n), 4096)
			if err := LockAndWrite(targetPath, []byte(payload)); err != nil {
				t.Errorf("LockAndWrite failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4096 {
		t.Fatalf("Expected 4096 bytes, got %d", len(data))
	}
	// Contents must come from exactly one writer.
	if strings.Count(string(data), string(data[0])) != len(data) {
		t.Error("File contains interleaved writes")
	}
}

func TestWriteNew(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "dbfc", "movies.bj")

	if err := WriteNew(targetPath, []byte("first")); err != nil {
		t.Fatalf("WriteNew failed: %v", err)
	}

	err := WriteNew(targetPath, []byte("second"))
	if err == nil {
		t.Fatal("Expected error writing over existing file")
	}
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("Expected os.ErrExist, got %v", err)
	}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first" {
		t.Errorf("Existing file was modified: %q", data)
	}
}

func TestWriteNew_ConcurrentOnlyOneWins(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "movies.bj")

	const writers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			if err := WriteNew(targetPath, []byte(fmt.Sprintf("writer-%d", n))); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly one successful WriteNew, got %d", successes)
	}
}

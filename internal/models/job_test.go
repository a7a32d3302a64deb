package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJob_StartsPending(t *testing.T) {
	job := NewJob("/src/a.avi", "abc123")

	if job.Status != StatusPending {
		t.Errorf("expected status Pending, got %s", job.Status)
	}
	if job.DestinationPath != "" || job.DestinationFingerprint != "" {
		t.Errorf("destination fields should be empty, got %q / %q", job.DestinationPath, job.DestinationFingerprint)
	}
}

func TestJob_MarkDone(t *testing.T) {
	job := NewJob("/src/a.avi", "abc123")

	if err := job.MarkDone("/dst/a.avi"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	if job.Status != StatusDone {
		t.Errorf("expected Done, got %s", job.Status)
	}
	if job.DestinationPath != "/dst/a.avi" {
		t.Errorf("expected destination /dst/a.avi, got %s", job.DestinationPath)
	}
}

func TestJob_TransitionsAreMonotonic(t *testing.T) {
	done := NewJob("/src/a.avi", "x")
	if err := done.MarkDone("/dst/a.avi"); err != nil {
		t.Fatal(err)
	}
	if err := done.MarkError(); err == nil {
		t.Error("expected error moving Done job to Error")
	}
	if err := done.MarkDone("/elsewhere"); err == nil {
		t.Error("expected error marking Done job Done again")
	}
	if done.DestinationPath != "/dst/a.avi" {
		t.Errorf("destination changed after rejected transition: %s", done.DestinationPath)
	}

	failed := NewJob("/src/b.avi", "y")
	if err := failed.MarkError(); err != nil {
		t.Fatal(err)
	}
	if err := failed.MarkDone("/dst/b.avi"); err == nil {
		t.Error("expected error moving Error job to Done")
	}
	if failed.Status != StatusError {
		t.Errorf("expected Error, got %s", failed.Status)
	}
}

func TestJob_JSONFieldNames(t *testing.T) {
	job := NewJob("/src/a.avi", "abc")
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{`"source_path"`, `"source_sha256sum"`, `"destination_path"`, `"destination_sha256sum"`, `"status":"Pending"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

func TestJobStatus_UnmarshalRejectsUnknown(t *testing.T) {
	var job Job
	err := json.Unmarshal([]byte(`{"source_path":"/a","status":"Running"}`), &job)
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	if !strings.Contains(err.Error(), "Running") {
		t.Errorf("error should name the bad status, got %v", err)
	}
}

package pipeline

import (
	"encoding/json"
	"testing"
	"time"
)

func TestContentHashHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}
	for _, tt := range tests {
		if got := ContentHashHex([]byte(tt.in)); got != tt.want {
			t.Errorf("ContentHashHex(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
	if ContentHashHex([]byte("aaa")) == ContentHashHex([]byte("bbb")) {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob_AssignsIDs(t *testing.T) {
	a := NewJob("u1", "", "a.txt", []byte("x"))
	b := NewJob("u1", "mine", "a.txt", []byte("x"))
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct job IDs, got %q and %q", a.ID, b.ID)
	}
	if a.DocID == "" {
		t.Error("expected a generated doc ID")
	}
	if b.DocID != "mine" {
		t.Errorf("expected supplied doc ID, got %q", b.DocID)
	}
	if a.CurrentStatus() != StatusQueued || a.CurrentStatus().Done() {
		t.Errorf("expected a queued, non-terminal job, got %s", a.CurrentStatus())
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob("u1", "d1", "ch.html", []byte("<p>x</p>"))

	for _, status := range []JobStatus{StatusParsing, StatusIndexing, StatusStoring} {
		before := job.Snapshot().UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(status, string(status))
		snap := job.Snapshot()
		if snap.Status != status || snap.Phase != string(status) {
			t.Fatalf("expected %s, got %s (%s)", status, snap.Status, snap.Phase)
		}
		if status.Done() {
			t.Fatalf("expected %s to be non-terminal", status)
		}
		if !snap.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance on %s", status)
		}
	}

	for _, status := range []JobStatus{StatusCompleted, StatusPartial, StatusFailed} {
		if !status.Done() {
			t.Errorf("expected %s to be terminal", status)
		}
	}
}

func TestJob_Progress(t *testing.T) {
	job := NewJob("u1", "d1", "ch.html", nil)
	job.SetTotalLocations(42)
	job.IncrLocationsStored()
	job.IncrLocationsStored()
	job.AddError("location 3: boom")

	snap := job.Snapshot()
	if snap.Progress.TotalLocations != 42 || snap.Progress.LocationsStored != 2 {
		t.Fatalf("expected 2 of 42 stored, got %+v", snap.Progress)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "location 3: boom" {
		t.Fatalf("expected one recorded error, got %v", snap.Progress.Errors)
	}

	// The snapshot is a copy.
	job.AddError("location 7: boom")
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected snapshot to be unaffected, got %v", snap.Progress.Errors)
	}
}

func TestJob_SnapshotJSON(t *testing.T) {
	job := NewJob("u1", "d1", "ch.html", nil)
	job.SetContentHash("abc")

	raw, err := json.Marshal(job.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"job_id", "doc_id", "status", "content_hash", "created_at", "updated_at"} {
		if _, ok := got[key]; !ok {
			t.Errorf("expected key %q in %s", key, raw)
		}
	}
	progress, _ := got["progress"].(map[string]any)
	if errs, ok := progress["errors"].([]any); !ok || len(errs) != 0 {
		t.Errorf("expected an empty errors array, got %v", progress["errors"])
	}
}

func TestJob_MarkDuplicate(t *testing.T) {
	job := NewJob("u1", "", "a.txt", nil)
	job.MarkDuplicate("d0")

	snap := job.Snapshot()
	if snap.Status != StatusDupSkipped || snap.DuplicateOf != "d0" {
		t.Fatalf("expected duplicate of d0, got %s / %q", snap.Status, snap.DuplicateOf)
	}
	if !snap.Status.Done() {
		t.Error("expected duplicate_skipped to be terminal")
	}
}

func TestJob_FileDataReleased(t *testing.T) {
	data := []byte("file content here")
	job := NewJob("u1", "", "a.txt", data)
	if got := job.FileData(); string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
	job.releaseFile()
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
}

func TestJobStore_PutGetCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)
	store.Cleanup()

	old := NewJob("u1", "", "old.txt", nil)
	store.Put(old)
	time.Sleep(100 * time.Millisecond)
	fresh := NewJob("u1", "", "new.txt", nil)
	store.Put(fresh)

	if store.Get(old.ID) != old || store.Len() != 2 {
		t.Fatalf("expected both jobs before cleanup, got %d", store.Len())
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}

	store.Cleanup()
	if store.Get(old.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

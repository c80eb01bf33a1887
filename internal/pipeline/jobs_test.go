package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docatom/internal/ingest"
)

func TestNewJob(t *testing.T) {
	job := NewJob("notes.md", []byte("# Notes"))
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("expected queued job, got %s/%s", job.Status, job.Phase)
	}
	id, err := uuid.Parse(job.ID)
	if err != nil {
		t.Fatalf("expected uuid job id, got %q: %v", job.ID, err)
	}
	if id.Version() != 7 {
		t.Errorf("expected version 7 uuid, got %d", id.Version())
	}
	if string(job.FileData()) != "# Notes" {
		t.Errorf("expected file data retained, got %q", job.FileData())
	}
	if other := NewJob("notes.md", nil); other.ID == job.ID {
		t.Error("expected distinct job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusReading, "reading"},
		{StatusChunking, "chunking"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Done(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		StatusQueued:    false,
		StatusReading:   false,
		StatusChunking:  false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCanceled:  true,
	} {
		if got := status.Done(); got != want {
			t.Errorf("%s: expected Done()=%v, got %v", status, want, got)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("read failed")
	job.AddError("canceled")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "read failed" {
		t.Errorf("expected first error %q, got %q", "read failed", snap.Progress.Errors[0])
	}
}

func TestJob_AddChunk(t *testing.T) {
	job := &Job{ID: "chunk-test", UpdatedAt: time.Now()}
	job.AddChunk(ingest.Chunk{DocumentID: "doc-1", Index: 0, Content: "h\u00e9llo"})
	job.AddChunk(ingest.Chunk{DocumentID: "doc-1", Index: 1, Content: "world"})

	snap := job.Snapshot()
	if snap.Progress.ChunksEmitted != 2 {
		t.Errorf("expected 2 chunks emitted, got %d", snap.Progress.ChunksEmitted)
	}
	if snap.Progress.Runes != 10 {
		t.Errorf("expected 10 runes, got %d", snap.Progress.Runes)
	}
	if snap.DocID != "doc-1" {
		t.Errorf("expected doc id from first chunk, got %q", snap.DocID)
	}

	chunks := job.Chunks()
	chunks[0].Content = "mutated"
	if job.Chunks()[0].Content != "h\u00e9llo" {
		t.Error("expected Chunks to return a copy")
	}
}

func TestJob_ReleaseFileData(t *testing.T) {
	job := NewJob("a.txt", []byte("file content here"))
	job.ReleaseFileData()
	if job.FileData() != nil {
		t.Error("expected file data released")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now()}
	running := &Job{ID: "running", Status: StatusChunking, UpdatedAt: time.Now()}
	store.Put(expired)
	store.Put(running)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", Status: StatusCompleted, UpdatedAt: time.Now()}
	store.Put(fresh)

	if n := store.Cleanup(); n != 1 {
		t.Errorf("expected 1 job removed, got %d", n)
	}

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("running") == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	if n := store.Cleanup(); n != 0 {
		t.Errorf("expected nothing removed, got %d", n)
	}
}

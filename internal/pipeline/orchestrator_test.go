package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/ultratext/internal/config"
	"github.com/dgallion1/ultratext/internal/doctree"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 4
	cfg.PDFFallbackPdftotext = false
	return cfg
}

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish, status %q", job.ID, job.Snapshot().Status)
	return JobSnapshot{}
}

func TestOrchestrator_ImportsAndApplies(t *testing.T) {
	var mu sync.Mutex
	applied := map[string]*doctree.Node{}
	apply := func(_ context.Context, job *Job, root *doctree.Node) error {
		mu.Lock()
		defer mu.Unlock()
		applied[job.SessionID] = root
		return nil
	}

	o := NewOrchestrator(testConfig(), apply, slog.New(slog.DiscardHandler))
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("sess-a", "fruit.csv", []byte("name,qty\napple,3\n"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitDone(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q with errors %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Stats.Blocks != 4 {
		t.Errorf("expected 4 cell blocks, got %d", snap.Progress.Stats.Blocks)
	}
	if snap.ContentHash == "" {
		t.Error("expected a content hash")
	}
	if o.GetJob(job.ID) != job {
		t.Error("expected the job to be tracked")
	}

	mu.Lock()
	root := applied["sess-a"]
	mu.Unlock()
	if root == nil || root.Content[0].Type != "table" {
		t.Fatalf("expected a table to be applied, got %v", root)
	}
}

func TestOrchestrator_FailedImports(t *testing.T) {
	apply := func(_ context.Context, job *Job, _ *doctree.Node) error {
		if job.SessionID == "gone" {
			return errors.New("session not found")
		}
		return nil
	}
	o := NewOrchestrator(testConfig(), apply, slog.New(slog.DiscardHandler))
	o.Start(context.Background())
	defer o.Stop()

	tests := []struct {
		name  string
		job   *Job
		phase string
	}{
		{"unsupported extension", NewJob("s", "tool.exe", []byte("MZ")), "parsing"},
		{"broken docx", NewJob("s", "report.docx", []byte("not a zip")), "parsing"},
		{"apply error", NewJob("gone", "a.txt", []byte("hello")), "applying"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := o.Submit(tt.job); err != nil {
				t.Fatalf("submit: %v", err)
			}
			snap := waitDone(t, tt.job)
			if snap.Status != StatusFailed {
				t.Fatalf("expected failed, got %q", snap.Status)
			}
			if snap.Phase != tt.phase {
				t.Errorf("expected phase %q, got %q", tt.phase, snap.Phase)
			}
			if len(snap.Progress.Errors) == 0 {
				t.Error("expected an error to be recorded")
			}
			if tt.job.FileData() != nil {
				t.Error("expected file data to be released")
			}
		})
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, nil, slog.New(slog.DiscardHandler))

	if err := o.Submit(NewJob("s", "a.txt", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
	second := NewJob("s", "b.txt", nil)
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if second.Snapshot().Status != StatusFailed {
		t.Error("expected rejected job to be marked failed")
	}

	o.Stop()
	if err := o.Submit(NewJob("s", "c.txt", nil)); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after Stop, got %v", err)
	}
	o.Stop()
}

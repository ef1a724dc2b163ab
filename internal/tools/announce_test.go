package tools

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// --- FormatBatchedAnnounce tests ---

// TestFormatBatchedAnnounce_SingleCompleted verifies the exact single-item
// template: "[Agent task 'label' completed successfully]" followed by the
// task and result sections.
func TestFormatBatchedAnnounce_SingleCompleted(t *testing.T) {
	item := AnnounceQueueItem{
		SubagentID: "abc123",
		Label:      "research",
		Task:       "research X",
		Status:     TaskStatusCompleted,
		Result:     "X is Y",
		Runtime:    2 * time.Second,
		Iterations: 3,
	}
	got := FormatBatchedAnnounce([]AnnounceQueueItem{item}, 0)

	if !strings.Contains(got, "[Agent task 'research' completed successfully") {
		t.Errorf("missing completed-successfully header, got: %q", got)
	}
	if !strings.Contains(got, "Task: research X") {
		t.Errorf("missing task line, got: %q", got)
	}
	if !strings.Contains(got, "Result:\nX is Y") {
		t.Errorf("missing result line, got: %q", got)
	}
}

// TestFormatBatchedAnnounce_SingleFailed verifies the failed-status phrasing.
func TestFormatBatchedAnnounce_SingleFailed(t *testing.T) {
	item := AnnounceQueueItem{
		Label:   "crawl",
		Task:    "crawl site",
		Status:  TaskStatusFailed,
		Result:  "timeout",
		Runtime: 5 * time.Second,
	}
	got := FormatBatchedAnnounce([]AnnounceQueueItem{item}, 0)
	if !strings.Contains(got, "[Agent task 'crawl' failed") {
		t.Errorf("missing failed header, got: %q", got)
	}
	if !strings.Contains(got, "Result:\ntimeout") {
		t.Errorf("missing result, got: %q", got)
	}
}

// TestFormatBatchedAnnounce_SingleCancelled verifies the cancelled phrasing
// carries no runtime/iteration clause.
func TestFormatBatchedAnnounce_SingleCancelled(t *testing.T) {
	item := AnnounceQueueItem{Label: "idle-task", Task: "idle", Status: TaskStatusCancelled}
	got := FormatBatchedAnnounce([]AnnounceQueueItem{item}, 0)
	if !strings.Contains(got, "[Agent task 'idle-task' was cancelled]") {
		t.Errorf("unexpected cancelled rendering: %q", got)
	}
}

// TestFormatBatchedAnnounce_RemainingActiveAppended verifies the
// still-running tail is appended when other subagents remain active.
func TestFormatBatchedAnnounce_RemainingActiveAppended(t *testing.T) {
	item := AnnounceQueueItem{Label: "t1", Task: "t", Status: TaskStatusCompleted, Result: "ok"}
	got := FormatBatchedAnnounce([]AnnounceQueueItem{item}, 2)
	if !strings.Contains(got, "2 other subagent(s) still running.") {
		t.Errorf("expected remaining-active tail, got: %q", got)
	}
}

// TestFormatBatchedAnnounce_MultipleItemsNumbered verifies a batch of more
// than one item renders as a numbered digest rather than the single-item
// template.
func TestFormatBatchedAnnounce_MultipleItemsNumbered(t *testing.T) {
	items := []AnnounceQueueItem{
		{Label: "a", Task: "task a", Status: TaskStatusCompleted, Result: "done a"},
		{Label: "b", Task: "task b", Status: TaskStatusFailed, Result: "boom"},
	}
	got := FormatBatchedAnnounce(items, 0)
	if !strings.Contains(got, "2 subagent tasks finished:") {
		t.Errorf("expected batch header, got: %q", got)
	}
	if !strings.Contains(got, "1. [Agent task 'a'") || !strings.Contains(got, "2. [Agent task 'b'") {
		t.Errorf("expected numbered entries, got: %q", got)
	}
}

// --- AnnounceQueue tests ---

// TestAnnounceQueue_DebouncesAndFlushesOnce verifies that multiple Enqueue
// calls on the same session key within the debounce window collapse into
// a single flush carrying every item.
func TestAnnounceQueue_DebouncesAndFlushesOnce(t *testing.T) {
	flushed := make(chan []AnnounceQueueItem, 1)
	q := NewAnnounceQueue(10, 20, func(sessionKey string, items []AnnounceQueueItem, meta AnnounceMetadata) {
		flushed <- items
	}, nil)

	q.Enqueue("sess-1", AnnounceQueueItem{Label: "first"}, AnnounceMetadata{})
	q.Enqueue("sess-1", AnnounceQueueItem{Label: "second"}, AnnounceMetadata{})

	select {
	case items := <-flushed:
		if len(items) != 2 {
			t.Errorf("expected 2 batched items, got %d", len(items))
		}
	case <-time.After(time.Second):
		t.Fatal("flush never fired")
	}
}

// TestAnnounceQueue_SeparateSessionKeysFlushIndependently verifies two
// distinct session keys each get their own batch.
func TestAnnounceQueue_SeparateSessionKeysFlushIndependently(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{}, 2)
	q := NewAnnounceQueue(10, 10, func(sessionKey string, items []AnnounceQueueItem, meta AnnounceMetadata) {
		mu.Lock()
		seen[sessionKey] = len(items)
		mu.Unlock()
		done <- struct{}{}
	}, nil)

	q.Enqueue("sess-a", AnnounceQueueItem{Label: "a"}, AnnounceMetadata{})
	q.Enqueue("sess-b", AnnounceQueueItem{Label: "b"}, AnnounceMetadata{})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("flush never fired for one of the session keys")
		}
	}
	if seen["sess-a"] != 1 || seen["sess-b"] != 1 {
		t.Errorf("expected 1 item per key, got %v", seen)
	}
}

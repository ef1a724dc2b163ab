package tools

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// AnnounceQueueItem is one subagent's completion report, queued for
// batched delivery back to its parent agent's session.
type AnnounceQueueItem struct {
	SubagentID string
	Label      string
	Task       string
	Status     string // TaskStatusCompleted / TaskStatusFailed / TaskStatusCancelled
	Result     string
	Runtime    time.Duration
	Iterations int
}

// AnnounceMetadata carries the origin routing info a batch of announces
// shares — they're only ever batched per (parent agent, origin chat).
type AnnounceMetadata struct {
	OriginChannel    string
	OriginChatID     string
	OriginPeerKind   string
	OriginUserID     string
	ParentAgent      string
	OriginTraceID    string
	OriginRootSpanID string
}

// AnnounceFlushFunc delivers one debounced batch of announces for a session key.
type AnnounceFlushFunc func(sessionKey string, items []AnnounceQueueItem, meta AnnounceMetadata)

// AnnounceCountRunningFunc reports how many subagents are still running for
// a parent, so FormatBatchedAnnounce can mention "N still running".
type AnnounceCountRunningFunc func(parentID string) int

// AnnounceQueue batches subagent-completion announces per session key with
// a debounce window, so several subagents finishing in quick succession
// produce one message instead of a flood. Matches the spawn/announce
// debounce pattern already used by SubagentManager.runTask.
type AnnounceQueue struct {
	maxPending   int
	debounce     time.Duration
	flush        AnnounceFlushFunc
	countRunning AnnounceCountRunningFunc

	mu      sync.Mutex
	pending map[string]*announceBatch
}

type announceBatch struct {
	items []AnnounceQueueItem
	meta  AnnounceMetadata
	timer *time.Timer
}

// NewAnnounceQueue creates a queue that holds at most maxPending items per
// session key (oldest dropped first) and flushes a key's batch debounceMs
// after its first unflushed item arrived.
func NewAnnounceQueue(maxPending int, debounceMs int, flush AnnounceFlushFunc, countRunning AnnounceCountRunningFunc) *AnnounceQueue {
	if maxPending <= 0 {
		maxPending = 1000
	}
	return &AnnounceQueue{
		maxPending:   maxPending,
		debounce:     time.Duration(debounceMs) * time.Millisecond,
		flush:        flush,
		countRunning: countRunning,
		pending:      make(map[string]*announceBatch),
	}
}

// Enqueue adds an item to sessionKey's batch, starting its debounce timer
// if this is the first item since the last flush.
func (q *AnnounceQueue) Enqueue(sessionKey string, item AnnounceQueueItem, meta AnnounceMetadata) {
	q.mu.Lock()
	defer q.mu.Unlock()

	b, ok := q.pending[sessionKey]
	if !ok {
		b = &announceBatch{meta: meta}
		q.pending[sessionKey] = b
	}
	b.items = append(b.items, item)
	if len(b.items) > q.maxPending {
		b.items = b.items[len(b.items)-q.maxPending:]
	}
	b.meta = meta

	if b.timer != nil {
		return // already debouncing; this item rides the existing timer
	}
	d := q.debounce
	if d <= 0 {
		d = time.Millisecond
	}
	b.timer = time.AfterFunc(d, func() { q.flushKey(sessionKey) })
}

func (q *AnnounceQueue) flushKey(sessionKey string) {
	q.mu.Lock()
	b, ok := q.pending[sessionKey]
	if ok {
		delete(q.pending, sessionKey)
	}
	q.mu.Unlock()

	if !ok || q.flush == nil {
		return
	}
	q.flush(sessionKey, b.items, b.meta)
}

// FormatBatchedAnnounce renders one or more completed subagent reports as a
// system message for the parent agent's session.
func FormatBatchedAnnounce(items []AnnounceQueueItem, remainingActive int) string {
	if len(items) == 1 {
		return formatSingleAnnounce(items[0], remainingActive)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d subagent tasks finished:\n\n", len(items))
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatSingleAnnounce(it, -1))
	}
	if remainingActive > 0 {
		fmt.Fprintf(&b, "\n%d subagent(s) still running.", remainingActive)
	}
	return b.String()
}

// formatSingleAnnounce renders one completed task as
// "[Agent task 'label' <status><extra>]\n\nTask: ...\n\nResult:\n...".
func formatSingleAnnounce(it AnnounceQueueItem, remainingActive int) string {
	var statusWord, extra string
	switch it.Status {
	case TaskStatusCompleted:
		statusWord = "completed successfully"
		extra = fmt.Sprintf(" in %s (%d iterations)", it.Runtime.Round(time.Second), it.Iterations)
	case TaskStatusFailed:
		statusWord = "failed"
		extra = fmt.Sprintf(" after %s", it.Runtime.Round(time.Second))
	case TaskStatusCancelled:
		statusWord = "was cancelled"
	default:
		statusWord = fmt.Sprintf("finished with status %q", it.Status)
	}

	label := it.Label
	if label == "" {
		label = it.SubagentID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Agent task '%s' %s%s]\n\nTask: %s\n\nResult:\n%s", label, statusWord, extra, it.Task, it.Result)
	if remainingActive > 0 {
		fmt.Fprintf(&b, "\n\n%d other subagent(s) still running.", remainingActive)
	}
	return b.String()
}

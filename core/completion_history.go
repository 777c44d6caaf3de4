package core

import "sync"

const defaultCompletionHistoryCapacity = 100

// completionHistory is a fixed-size ring of the most recent completions.
type completionHistory struct {
	mu    sync.Mutex
	items []CompletionRecord
	head  int
	count int
}

func newCompletionHistory(capacity int) *completionHistory {
	if capacity < 1 {
		capacity = defaultCompletionHistoryCapacity
	}
	return &completionHistory{items: make([]CompletionRecord, capacity)}
}

func (h *completionHistory) Add(record CompletionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (h *completionHistory) Recent(limit int) []CompletionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]CompletionRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *completionHistory) Last() (CompletionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return CompletionRecord{}, false
	}

	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}

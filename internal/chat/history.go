package chat

import (
	"sort"
	"sync"

	"github.com/olgasafonova/toolcall-mcp-server/internal/llm"
	"github.com/olgasafonova/toolcall-mcp-server/metrics"
)

// DefaultMaxEntries is how many messages are kept per sender.
const DefaultMaxEntries = 10

// History stores recent conversation turns per sender. Each user message
// and each reply counts as one entry.
type History struct {
	mu         sync.Mutex
	bySender   map[string][]llm.Message
	maxEntries int
	total      int
}

func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		bySender:   make(map[string][]llm.Message),
		maxEntries: maxEntries,
	}
}

// MaxEntries returns the per-sender limit.
func (h *History) MaxEntries() int {
	return h.maxEntries
}

// Append adds messages for sender and drops the oldest entries beyond the
// limit. Trimming never leaves a history that opens with an assistant reply.
func (h *History) Append(sender string, msgs ...llm.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.bySender[sender], msgs...)
	if over := len(entries) - h.maxEntries; over > 0 {
		// Never leave a reply whose user message was trimmed at the front.
		for over < len(entries) && entries[over].Role == llm.RoleAssistant {
			over++
		}
		entries = append([]llm.Message(nil), entries[over:]...)
	}
	h.total += len(entries) - len(h.bySender[sender])
	h.bySender[sender] = entries
	metrics.ChatHistoryEntries.Set(float64(h.total))

	return len(entries)
}

// Get returns a copy of sender's entries, oldest first.
func (h *History) Get(sender string) []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.bySender[sender]
	out := make([]llm.Message, len(entries))
	copy(out, entries)
	return out
}

func (h *History) Reset(sender string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total -= len(h.bySender[sender])
	delete(h.bySender, sender)
	metrics.ChatHistoryEntries.Set(float64(h.total))
}

// Senders lists senders with stored history, sorted.
func (h *History) Senders() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.bySender))
	for s := range h.bySender {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

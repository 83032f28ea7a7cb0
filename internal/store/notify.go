package store

import "sync"

// notifier fans change notifications out to per-battle subscribers.
// Sends never block: a subscriber whose buffer is full simply misses the
// nudge, which is safe because every consumer folds notifications into
// an idempotent re-read and keeps a polling fallback.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Change
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]chan Change)}
}

func (n *notifier) subscribe(battleID string) (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan Change, 8)
	if n.subs[battleID] == nil {
		n.subs[battleID] = make(map[int]chan Change)
	}
	n.subs[battleID][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, ok := n.subs[battleID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(n.subs, battleID)
			}
		}
	}
	return ch, cancel
}

func (n *notifier) publish(c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[c.BattleID] {
		select {
		case ch <- c:
		default:
			// full buffer, poller will catch up
		}
	}
}

package controllers

import "sync"

// notifier fans change signals out to subscribers. Signals coalesce: a slow
// subscriber sees at most one pending signal and re-reads State.
type notifier struct {
	mu   sync.Mutex
	subs []chan struct{}
}

// Changes returns a channel that receives a value after state changes.
func (n *notifier) Changes() <-chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

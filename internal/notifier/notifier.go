// Package notifier fans out "state changed" pings from list controllers and
// picklist loaders to the code rendering them.
package notifier

import "sync"

// Notifier broadcasts change signals to all subscribed listeners.
// Listeners receive an empty struct and should re-read the owner's snapshot;
// pings coalesce, so a slow listener sees at most one pending ping.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[<-chan struct{}]chan struct{}
	closed    bool
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[<-chan struct{}]chan struct{}),
	}
}

// Subscribe returns a channel that receives a ping after every state change.
// The caller must call Unsubscribe when done. Subscribing to a closed
// notifier returns an already closed channel.
func (n *Notifier) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return ch
	}
	n.listeners[ch] = ch
	return ch
}

// Unsubscribe removes a listener and closes its channel. Unknown or already
// removed channels are ignored.
func (n *Notifier) Unsubscribe(ch <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(c)
	}
}

// Notify pings every listener without blocking.
func (n *Notifier) Notify() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
			// already has a pending ping
		}
	}
}

// Close closes every listener channel. Later Notify calls are no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for key, ch := range n.listeners {
		delete(n.listeners, key)
		close(ch)
	}
}

// Len returns the number of active listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

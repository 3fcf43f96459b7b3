package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

type fakeRenderer struct {
	mu         sync.Mutex
	next       int
	views      map[string]queue.State // handle -> last drawn state
	removed    []string
	refreshes  int
	publishErr error
	refreshErr error
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{views: map[string]queue.State{}}
}

func (r *fakeRenderer) Publish(_ context.Context, channelID string, st queue.State) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return "", r.publishErr
	}
	r.next++
	h := fmt.Sprintf("msg-%d", r.next)
	st.Queue.Handle = h
	r.views[h] = st
	return h, nil
}

func (r *fakeRenderer) Refresh(_ context.Context, st queue.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[st.Queue.Handle]; !ok {
		return ErrArtifactGone
	}
	if r.refreshErr != nil {
		return r.refreshErr
	}
	r.refreshes++
	r.views[st.Queue.Handle] = st
	return nil
}

func (r *fakeRenderer) Remove(_ context.Context, _ string, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[handle]; !ok {
		return ErrArtifactGone
	}
	delete(r.views, handle)
	r.removed = append(r.removed, handle)
	return nil
}

// drop simulates a moderator deleting the message.
func (r *fakeRenderer) drop(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, handle)
}

func (r *fakeRenderer) view(handle string) (queue.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.views[handle]
	return st, ok
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *fakeNotifier) count(kind NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.Kind == kind {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

// failingStore fails CreateQueue to exercise orphan cleanup.
type failingStore struct {
	queue.Store
}

func (failingStore) CreateQueue(context.Context, queue.Record) error {
	return fmt.Errorf("disk full")
}

package realtime

import (
	"sync"

	"task-board-api/internal/models"
)

// Snapshot is a full replacement of a project's task list.
type Snapshot struct {
	ProjectID string        `json:"projectId"`
	Version   uint64        `json:"version"`
	Tasks     []models.Task `json:"tasks"`
}

// Subscription receives snapshots for one project until cancelled.
// Only the newest undelivered snapshot is kept; older ones are replaced.
type Subscription struct {
	projectID string
	hub       *Hub
	ch        chan Snapshot

	mu          sync.Mutex
	closed      bool
	lastVersion uint64
	offered     bool
}

// C returns the snapshot channel. It is closed after Cancel.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// ProjectID returns the subscribed project.
func (s *Subscription) ProjectID() string {
	return s.projectID
}

// Cancel unregisters the subscription. Calling it more than once is harmless.
func (s *Subscription) Cancel() {
	s.hub.unregister(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Offer queues snap unless it is older than one already offered.
func (s *Subscription) Offer(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.offered && snap.Version < s.lastVersion {
		return false
	}
	s.offered = true
	s.lastVersion = snap.Version
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
	return true
}

// Hub maintains live subscriptions per project and fans snapshots out to them.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*Subscription]struct{}
	versions map[string]uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		versions: make(map[string]uint64),
	}
}

// Subscribe registers a new subscription for projectID.
func (h *Hub) Subscribe(projectID string) *Subscription {
	s := &Subscription{
		projectID: projectID,
		hub:       h,
		ch:        make(chan Snapshot, 1),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[projectID]; !ok {
		h.subs[projectID] = make(map[*Subscription]struct{})
	}
	h.subs[projectID][s] = struct{}{}
	return s
}

func (h *Hub) unregister(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[s.projectID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.subs, s.projectID)
		}
	}
}

// Version returns the version of the last snapshot published for projectID.
func (h *Hub) Version(projectID string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.versions[projectID]
}

// Publish stamps tasks with the next version and offers the snapshot to every subscriber.
func (h *Hub) Publish(projectID string, tasks []models.Task) Snapshot {
	h.mu.Lock()
	h.versions[projectID]++
	snap := Snapshot{ProjectID: projectID, Version: h.versions[projectID], Tasks: tasks}
	targets := make([]*Subscription, 0, len(h.subs[projectID]))
	for s := range h.subs[projectID] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Offer(snap)
	}
	return snap
}

// Subscribers returns the number of live subscriptions for projectID.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}

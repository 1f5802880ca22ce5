package web

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TrackSnapshot is a point-in-time copy of a track, safe to share between
// goroutines.
type TrackSnapshot struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	State     string              `json:"state"`
	Error     string              `json:"error,omitempty"`
	Complete  bool                `json:"complete"`
	Pending   bool                `json:"pending_callback"`
	Files     []string            `json:"files"`
	Genre     []string            `json:"genre,omitempty"`
	Metadata  map[string][]string `json:"metadata"`
	UpdatedAt time.Time           `json:"updated_at"`
	RemovedAt *time.Time          `json:"removed_at,omitempty"`
}

// StateRemoved marks the snapshot of a track that was removed from the album.
const StateRemoved = "removed"

// Hub keeps the latest snapshot of every track and fans updates out to
// subscribers.
type Hub struct {
	tracks    map[string]*TrackSnapshot
	mu        sync.RWMutex
	listeners map[string][]chan *TrackSnapshot
}

const removedRetention = 1 * time.Hour

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		tracks:    make(map[string]*TrackSnapshot),
		listeners: make(map[string][]chan *TrackSnapshot),
	}
}

// StartCleanup starts a background goroutine that forgets removed tracks.
// Stops when ctx is cancelled.
func (h *Hub) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.cleanup()
			}
		}
	}()
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-removedRetention)
	for id, snap := range h.tracks {
		if snap.RemovedAt != nil && snap.RemovedAt.Before(cutoff) {
			delete(h.tracks, id)
			h.closeListeners(id)
		}
	}
}

// Publish stores snap as the latest state of its track and notifies
// subscribers.
func (h *Hub) Publish(snap *TrackSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	h.tracks[snap.ID] = snap
	h.notifyListeners(snap.ID, snap)
}

// Remove marks a track as removed and notifies subscribers.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	old, ok := h.tracks[id]
	if !ok {
		return
	}
	now := time.Now()
	snap := *old
	snap.State = StateRemoved
	snap.UpdatedAt = now
	snap.RemovedAt = &now
	h.tracks[id] = &snap
	h.notifyListeners(id, &snap)
}

// Get returns the latest snapshot of a track.
func (h *Hub) Get(id string) (*TrackSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap, ok := h.tracks[id]
	if !ok {
		return nil, fmt.Errorf("track not found: %s", id)
	}
	return snap, nil
}

// List returns all snapshots ordered by track id.
func (h *Hub) List() []*TrackSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snaps := make([]*TrackSnapshot, 0, len(h.tracks))
	for _, snap := range h.tracks {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// Subscribe subscribes to updates of one track
func (h *Hub) Subscribe(trackID string) <-chan *TrackSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *TrackSnapshot, 10)
	h.listeners[trackID] = append(h.listeners[trackID], ch)
	return ch
}

// Unsubscribe removes a listener
func (h *Hub) Unsubscribe(trackID string, ch <-chan *TrackSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	listeners := h.listeners[trackID]
	for i, listener := range listeners {
		if listener == ch {
			h.listeners[trackID] = append(listeners[:i], listeners[i+1:]...)
			close(listener)
			break
		}
	}
}

func (h *Hub) closeListeners(trackID string) {
	for _, ch := range h.listeners[trackID] {
		close(ch)
	}
	delete(h.listeners, trackID)
}

// notifyListeners sends updates to all listeners. Slow listeners miss
// intermediate snapshots.
func (h *Hub) notifyListeners(trackID string, snap *TrackSnapshot) {
	for _, ch := range h.listeners[trackID] {
		select {
		case ch <- snap:
		default:
		}
	}
}

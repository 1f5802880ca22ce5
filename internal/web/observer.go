package web

import (
	"tracktagger/internal/metadata"
	"tracktagger/internal/track"
)

// trackItem publishes a track's snapshot whenever the track updates.
// Update runs on the event loop.
type trackItem struct {
	s *Server
	t *track.NonAlbumTrack
}

func (i *trackItem) Update() { i.s.publish(i.t) }

// albumItem republishes every track when the album's track list changes.
type albumItem struct {
	s *Server
}

func (i *albumItem) Update() {
	for _, t := range i.s.album.Tracks() {
		i.s.publish(t)
	}
}

type pather interface {
	Path() string
}

func snapshot(t *track.NonAlbumTrack) *TrackSnapshot {
	m := t.Metadata()
	snap := &TrackSnapshot{
		ID:       t.ID(),
		Title:    t.Column(metadata.Title),
		State:    t.State().String(),
		Complete: t.IsComplete(),
		Pending:  t.HasPendingCallback(),
		Files:    []string{},
		Genre:    m.Values(metadata.Genre),
		Metadata: m.Map(),
	}
	if err := t.LastError(); err != nil {
		snap.Error = err.Error()
	}
	for _, f := range t.Files() {
		if p, ok := f.(pather); ok {
			snap.Files = append(snap.Files, p.Path())
		}
	}
	return snap
}

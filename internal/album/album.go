// Package album holds the container that owns non-album tracks.
package album

import (
	"fmt"
	"slices"

	"tracktagger/internal/config"
	"tracktagger/internal/logger"
	"tracktagger/internal/metadata"
	"tracktagger/internal/track"
)

// NonAlbumName is the album title shown for standalone tracks.
const NonAlbumName = "[non-album tracks]"

// Album owns a list of tracks and knows which track each file is linked to.
type Album struct {
	id       string
	cfg      *config.Config
	log      *logger.Logger
	metadata *metadata.Metadata
	item     track.Item

	folksonomyTags   track.TagCounts
	releaseGroupTags track.TagCounts
	hasReleaseGroup  bool
	albumArtists     []*track.Artist

	tracks []*track.NonAlbumTrack
	files  map[track.File]*track.Track
}

// New creates an empty album.
func New(id string, cfg *config.Config, log *logger.Logger) *Album {
	return &Album{
		id:             id,
		cfg:            cfg,
		log:            log,
		metadata:       metadata.New(),
		folksonomyTags: track.TagCounts{},
		files:          make(map[track.File]*track.Track),
	}
}

// NewNonAlbum creates the album that collects tracks looked up on their own.
func NewNonAlbum(cfg *config.Config, log *logger.Logger) *Album {
	a := New("NATS", cfg, log)
	a.metadata.Set(metadata.Album, NonAlbumName)
	return a
}

func (a *Album) String() string {
	return fmt.Sprintf("<Album %s %q>", a.id, a.metadata.Get(metadata.Album))
}

func (a *Album) ID() string                   { return a.id }
func (a *Album) Metadata() *metadata.Metadata { return a.metadata }

// SetItem attaches the observer notified by Update.
func (a *Album) SetItem(item track.Item) {
	a.item = item
}

// Update notifies the album's observer.
func (a *Album) Update() {
	if a.item != nil {
		a.item.Update()
	}
}

// AddFile records that f is linked to t.
func (a *Album) AddFile(t *track.Track, f track.File) {
	a.files[f] = t
}

// RemoveFile forgets the link between f and t.
func (a *Album) RemoveFile(t *track.Track, f track.File) {
	if a.files[f] == t {
		delete(a.files, f)
	}
}

// TrackForFile returns the track f is linked to, or nil.
func (a *Album) TrackForFile(f track.File) *track.Track {
	return a.files[f]
}

// NumFiles returns the number of files linked to the album's tracks.
func (a *Album) NumFiles() int {
	return len(a.files)
}

func (a *Album) FolksonomyTags() track.TagCounts {
	return a.folksonomyTags
}

// SetFolksonomyTags replaces the album's tag votes.
func (a *Album) SetFolksonomyTags(tags track.TagCounts) {
	if tags == nil {
		tags = track.TagCounts{}
	}
	a.folksonomyTags = tags
}

func (a *Album) ReleaseGroupTags() (track.TagCounts, bool) {
	return a.releaseGroupTags, a.hasReleaseGroup
}

// SetReleaseGroupTags attaches a release group with the given tag votes.
func (a *Album) SetReleaseGroupTags(tags track.TagCounts) {
	a.releaseGroupTags = tags
	a.hasReleaseGroup = true
}

func (a *Album) AlbumArtists() []*track.Artist {
	return a.albumArtists
}

// AddAlbumArtist credits an artist on the album and returns it.
func (a *Album) AddAlbumArtist(id string) *track.Artist {
	artist := &track.Artist{ID: id, FolksonomyTags: track.TagCounts{}}
	a.albumArtists = append(a.albumArtists, artist)
	return artist
}

// AddNonAlbumTrack adds a track for the given recording. If the album
// already has it, the existing track is returned.
func (a *Album) AddNonAlbumTrack(id string, loader track.Loader) *track.NonAlbumTrack {
	if t := a.Track(id); t != nil {
		return t
	}
	t := track.NewNonAlbumTrack(id, a, a.cfg, a.log, loader)
	a.tracks = append(a.tracks, t)
	a.log.Debug("Added %s to %s", t, a)
	a.Update()
	return t
}

// Track returns the track with the given recording id, or nil.
func (a *Album) Track(id string) *track.NonAlbumTrack {
	for _, t := range a.tracks {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// Tracks returns the album's tracks in insertion order.
func (a *Album) Tracks() []*track.NonAlbumTrack {
	return slices.Clone(a.tracks)
}

// RemoveTrack unlinks every file from the track and drops it from the album.
func (a *Album) RemoveTrack(id string) bool {
	i := slices.IndexFunc(a.tracks, func(t *track.NonAlbumTrack) bool { return t.ID() == id })
	if i < 0 {
		return false
	}
	t := a.tracks[i]
	for _, f := range t.Files() {
		t.RemoveFile(f)
	}
	a.tracks = slices.Delete(a.tracks, i, i+1)
	a.Update()
	return true
}

// IsComplete reports whether every track of the album is complete.
func (a *Album) IsComplete() bool {
	for _, t := range a.tracks {
		if !t.IsComplete() {
			return false
		}
	}
	return true
}

// Package track links physical files to one canonical set of track metadata,
// aggregates folksonomy tags into genres and drives the asynchronous loading
// of tracks that are looked up individually in the remote catalog.
//
// A track is not safe for concurrent use. All calls for one track, including
// fetch completions, are expected to run on a single goroutine (see
// internal/eventloop).
package track

import (
	"fmt"
	"strings"

	"tracktagger/internal/config"
	"tracktagger/internal/logger"
	"tracktagger/internal/metadata"
)

// VariousArtistsID is the catalog identifier of the "Various Artists" pseudo-artist.
const VariousArtistsID = "89ad4ac3-39f7-470e-963a-56509c546377"

// Titles the catalog uses for tracks that carry no audio of their own.
const (
	SilenceTrackTitle = "[silence]"
	DataTrackTitle    = "[data track]"
)

// Album owns tracks. A track only keeps a back-reference to it.
type Album interface {
	AddFile(t *Track, f File)
	RemoveFile(t *Track, f File)
	Metadata() *metadata.Metadata
	FolksonomyTags() TagCounts
	// ReleaseGroupTags returns the release group's tags, if the album has one.
	ReleaseGroupTags() (TagCounts, bool)
	AlbumArtists() []*Artist
	// Update notifies observers that the album's track list changed.
	Update()
}

// File is a physical audio file that can be linked to a track.
type File interface {
	// Metadata is the working metadata that will be saved.
	Metadata() *metadata.Metadata
	// OrigMetadata is the metadata as read from disk.
	OrigMetadata() *metadata.Metadata
	// Update refreshes the file's observers. With signal false the refresh
	// is not propagated to the file's parent.
	Update(signal bool)
	CanSave() bool
	CanRemove() bool
}

// Item is an observer of a track, typically a UI element.
type Item interface {
	Update()
}

// Artist is an artist credited on a track or album, with the tag votes
// the catalog holds for it.
type Artist struct {
	ID             string
	FolksonomyTags TagCounts
}

// Track is a single logical track with zero or more linked files.
type Track struct {
	id       string
	album    Album
	cfg      *config.Config
	log      *logger.Logger
	metadata *metadata.Metadata
	item     Item

	linkedFiles    []File
	numLinkedFiles int

	folksonomyTags TagCounts
	trackArtists   []*Artist
}

// New creates a track owned by album. cfg is read on every operation, so
// changes to it take effect immediately.
func New(id string, album Album, cfg *config.Config, log *logger.Logger) *Track {
	return &Track{
		id:             id,
		album:          album,
		cfg:            cfg,
		log:            log,
		metadata:       metadata.New(),
		folksonomyTags: TagCounts{},
	}
}

func (t *Track) String() string {
	return fmt.Sprintf("<Track %s %q>", t.id, t.metadata.Get(metadata.Title))
}

func (t *Track) ID() string                   { return t.id }
func (t *Track) Album() Album                 { return t.album }
func (t *Track) Metadata() *metadata.Metadata { return t.metadata }

// SetItem attaches the observer notified by Update.
func (t *Track) SetItem(item Item) {
	t.item = item
}

// Update notifies the track's observer, if any.
func (t *Track) Update() {
	if t.item != nil {
		t.item.Update()
	}
}

// FolksonomyTags returns the track's own tag votes.
func (t *Track) FolksonomyTags() TagCounts {
	return t.folksonomyTags
}

// SetFolksonomyTags replaces the track's own tag votes.
func (t *Track) SetFolksonomyTags(tags TagCounts) {
	if tags == nil {
		tags = TagCounts{}
	}
	t.folksonomyTags = tags
}

// AppendTrackArtist adds an artist credited on this track and returns it so
// the caller can fill in its tags.
func (t *Track) AppendTrackArtist(id string) *Artist {
	a := &Artist{ID: id, FolksonomyTags: TagCounts{}}
	t.trackArtists = append(t.trackArtists, a)
	return a
}

// TrackArtists returns the artists credited on this track.
func (t *Track) TrackArtists() []*Artist {
	return t.trackArtists
}

func (t *Track) resetTrackArtists() {
	t.trackArtists = nil
}

// CanSave reports whether any linked file can be saved.
func (t *Track) CanSave() bool {
	for _, f := range t.linkedFiles {
		if f.CanSave() {
			return true
		}
	}
	return false
}

// CanRemove reports whether any linked file can be removed.
func (t *Track) CanRemove() bool {
	for _, f := range t.linkedFiles {
		if f.CanRemove() {
			return true
		}
	}
	return false
}

func (t *Track) CanEditTags() bool { return true }

func (t *Track) CanViewInfo() bool { return t.numLinkedFiles == 1 }

func (t *Track) CanRefresh() bool { return false }

// Column returns the display value of a metadata column. The title column
// is prefixed with the disc and track number.
func (t *Track) Column(column string) string {
	m := t.metadata
	if column == metadata.Title {
		prefix := ""
		if m.Get(metadata.DiscNumber) != "" && m.Get(metadata.TotalDiscs) != "1" {
			prefix = m.Get(metadata.DiscNumber) + "-"
		}
		return fmt.Sprintf("%s%s  %s", prefix, zeroPad(m.Get(metadata.TrackNumber), 2), m.Get(metadata.Title))
	}
	return m.Get(column)
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

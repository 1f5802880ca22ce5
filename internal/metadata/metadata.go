package metadata

import (
	"slices"
	"strings"
)

// Well-known tag names.
const (
	Title                    = "title"
	Artist                   = "artist"
	ArtistSort               = "artistsort"
	Album                    = "album"
	AlbumArtist              = "albumartist"
	TrackNumber              = "tracknumber"
	TotalTracks              = "totaltracks"
	DiscNumber               = "discnumber"
	TotalDiscs               = "totaldiscs"
	Date                     = "date"
	Genre                    = "genre"
	ISRC                     = "isrc"
	MusicBrainzRecordingID   = "musicbrainz_recordingid"
	MusicBrainzArtistID      = "musicbrainz_artistid"
	MusicBrainzAlbumArtistID = "musicbrainz_albumartistid"
)

// Hidden tags are derived values prefixed with "~". They are never written to files.
const (
	HiddenPrefix = "~"

	Extension = "~extension"
	Length    = "~length"
	Video     = "~video"
	Pregap    = "~pregap"
	DataTrack = "~datatrack"
	Silence   = "~silence"
	Rating    = "~rating"
)

// MultiValueSeparator joins values when a tag is read as a single string.
const MultiValueSeparator = "; "

// IsHidden reports whether name belongs to the derived, non-persisted namespace.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, HiddenPrefix)
}

// Metadata is an ordered mapping of tag name to one or more values.
// Names are case-insensitive and stored lowercase.
type Metadata struct {
	keys   []string
	values map[string][]string

	// Changed marks metadata that differs from what is stored on disk.
	Changed bool
}

// New returns an empty Metadata.
func New() *Metadata {
	return &Metadata{values: make(map[string][]string)}
}

// FromMap builds Metadata from a tag map, sorting keys for a stable order.
func FromMap(tags map[string][]string) *Metadata {
	m := New()
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		m.SetValues(name, tags[name])
	}
	return m
}

func key(name string) string {
	return strings.ToLower(name)
}

// Get returns all values of name joined by MultiValueSeparator.
func (m *Metadata) Get(name string) string {
	return strings.Join(m.values[key(name)], MultiValueSeparator)
}

// Values returns a copy of the values stored under name.
func (m *Metadata) Values(name string) []string {
	return slices.Clone(m.values[key(name)])
}

// Has reports whether name is set.
func (m *Metadata) Has(name string) bool {
	_, ok := m.values[key(name)]
	return ok
}

// Set replaces name with a single value.
func (m *Metadata) Set(name, value string) {
	m.SetValues(name, []string{value})
}

// SetValues replaces name with values. A nil slice still sets the tag, empty.
func (m *Metadata) SetValues(name string, values []string) {
	k := key(name)
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = slices.Clone(values)
	if m.values[k] == nil {
		m.values[k] = []string{}
	}
}

// Add appends value to name.
func (m *Metadata) Add(name, value string) {
	k := key(name)
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = append(m.values[k], value)
}

// Delete removes name.
func (m *Metadata) Delete(name string) {
	k := key(name)
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	m.keys = slices.DeleteFunc(m.keys, func(s string) bool { return s == k })
}

// Keys returns tag names in insertion order.
func (m *Metadata) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of tags.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Copy replaces the contents of m with those of other.
func (m *Metadata) Copy(other *Metadata) {
	if m == other {
		return
	}
	m.keys = make([]string, 0, len(other.keys))
	m.values = make(map[string][]string, len(other.keys))
	for _, k := range other.keys {
		m.keys = append(m.keys, k)
		m.values[k] = slices.Clone(other.values[k])
	}
}

// Update merges other into m, overwriting tags present in both.
func (m *Metadata) Update(other *Metadata) {
	for _, k := range other.keys {
		m.SetValues(k, other.values[k])
	}
}

// Clone returns a deep copy of m, including the Changed flag.
func (m *Metadata) Clone() *Metadata {
	c := New()
	c.Copy(m)
	c.Changed = m.Changed
	return c
}

// ApplyFunc replaces every value with fn(value).
func (m *Metadata) ApplyFunc(fn func(string) string) {
	for _, k := range m.keys {
		vals := m.values[k]
		for i, v := range vals {
			vals[i] = fn(v)
		}
	}
}

// StripWhitespace trims leading and trailing whitespace from every value.
func (m *Metadata) StripWhitespace() {
	m.ApplyFunc(strings.TrimSpace)
}

// Map returns a copy of the tags as a plain map.
func (m *Metadata) Map() map[string][]string {
	out := make(map[string][]string, len(m.keys))
	for _, k := range m.keys {
		out[k] = slices.Clone(m.values[k])
	}
	return out
}

// Equal reports whether m and other hold the same tags and values.
// Key order is not compared.
func (m *Metadata) Equal(other *Metadata) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for _, k := range m.keys {
		ov, ok := other.values[k]
		if !ok || !slices.Equal(m.values[k], ov) {
			return false
		}
	}
	return true
}

package file

import (
	"strings"

	"tracktagger/internal/metadata"
)

// Tag names that differ between taglib's property map and ours.
var tagLibNames = map[string]string{
	metadata.MusicBrainzRecordingID: "MUSICBRAINZ_TRACKID",
	metadata.TotalTracks:            "TRACKTOTAL",
	metadata.TotalDiscs:             "DISCTOTAL",
}

var fromTagLibNames = func() map[string]string {
	m := make(map[string]string, len(tagLibNames))
	for ours, theirs := range tagLibNames {
		m[theirs] = ours
	}
	return m
}()

func toTagLib(name string) string {
	if n, ok := tagLibNames[name]; ok {
		return n
	}
	return strings.ToUpper(name)
}

func fromTagLib(name string) string {
	if n, ok := fromTagLibNames[name]; ok {
		return n
	}
	return strings.ToLower(name)
}

// tagLibMap builds the property map for WriteTags. Tags present in orig but
// missing from m are mapped to nil so taglib deletes them.
func tagLibMap(m, orig *metadata.Metadata) map[string][]string {
	tags := make(map[string][]string, m.Len())
	for _, name := range orig.Keys() {
		if !metadata.IsHidden(name) && !m.Has(name) {
			tags[toTagLib(name)] = nil
		}
	}
	for _, name := range m.Keys() {
		if metadata.IsHidden(name) {
			continue
		}
		tags[toTagLib(name)] = m.Values(name)
	}
	return tags
}

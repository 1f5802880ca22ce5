package track

import "tracktagger/internal/metadata"

func (t *Track) IsVideo() bool   { return t.metadata.Get(metadata.Video) == "1" }
func (t *Track) IsPregap() bool  { return t.metadata.Get(metadata.Pregap) == "1" }
func (t *Track) IsData() bool    { return t.metadata.Get(metadata.DataTrack) == "1" }
func (t *Track) IsSilence() bool { return t.metadata.Get(metadata.Silence) == "1" }

// IsComplete reports whether the track has exactly one linked file or is
// exempt from the completeness check.
func (t *Track) IsComplete() bool {
	return t.IgnoredForCompleteness() || t.numLinkedFiles == 1
}

// IgnoredForCompleteness reports whether the track belongs to a category the
// configuration excludes from completeness checks.
func (t *Track) IgnoredForCompleteness() bool {
	c := t.cfg
	return (c.CompletenessIgnoreVideos && t.IsVideo()) ||
		(c.CompletenessIgnorePregap && t.IsPregap()) ||
		(c.CompletenessIgnoreData && t.IsData()) ||
		(c.CompletenessIgnoreSilence && t.IsSilence())
}

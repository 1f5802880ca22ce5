package track

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tracktagger/internal/metadata"
)

// Spellings that title-casing gets wrong.
var translateTags = map[string]string{
	"hip hop":     "Hip-Hop",
	"synth-pop":   "Synthpop",
	"electronica": "Electronic",
}

// TagCounts maps a folksonomy tag to its vote count.
type TagCounts map[string]int

// Merge adds the counts of other into tc.
func (tc TagCounts) Merge(other TagCounts) {
	for name, count := range other {
		tc[name] += count
	}
}

// titleWords title-cases every run of letters in s on its own, so a letter
// after an apostrophe or a digit starts a new word: "rock'n'roll" becomes
// "Rock'N'Roll" and "80s" becomes "80S".
func titleWords(c cases.Caser, s string) string {
	var b strings.Builder
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(c.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(c.String(s[start:]))
	}
	return b.String()
}

type scoredTag struct {
	score int
	name  string
}

// Genre reduces the tag votes of the track, its album, the album's release
// group and, as a fallback, its artists to an ordered genre list.
// It returns nil when no tag has a positive count.
func (t *Track) Genre() []string {
	tags := TagCounts{}
	tags.Merge(t.folksonomyTags)
	tags.Merge(t.album.FolksonomyTags())
	if rg, ok := t.album.ReleaseGroupTags(); ok {
		tags.Merge(rg)
	}

	if len(tags) == 0 && t.cfg.ArtistsTags {
		// Compilations have no meaningful album artist, use the track artists.
		if t.metadata.Get(metadata.MusicBrainzAlbumArtistID) == VariousArtistsID {
			for _, a := range t.trackArtists {
				tags.Merge(a.FolksonomyTags)
			}
		} else {
			for _, a := range t.album.AlbumArtists() {
				tags.Merge(a.FolksonomyTags)
			}
		}
	}

	maxCount := 0
	for name, count := range tags {
		if count <= 0 {
			delete(tags, name)
			continue
		}
		maxCount = max(maxCount, count)
	}
	if len(tags) == 0 {
		return nil
	}

	ranked := make([]scoredTag, 0, len(tags))
	for name, count := range tags {
		ranked = append(ranked, scoredTag{score: 100 * count / maxCount, name: name})
	}
	slices.SortFunc(ranked, func(a, b scoredTag) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.name, a.name)
	})
	if len(ranked) > t.cfg.MaxTags {
		ranked = ranked[:t.cfg.MaxTags]
	}

	ignored := t.cfg.IgnoredTags()
	titleCaser := cases.Title(language.Und)
	genre := []string{}
	for _, tag := range ranked {
		if slices.Contains(ignored, strings.ToLower(tag.name)) {
			continue
		}
		// Ranked order: nothing after the first tag under the cutoff can pass.
		if tag.score < t.cfg.MinTagUsage {
			break
		}
		name, ok := translateTags[tag.name]
		if !ok {
			name = titleWords(titleCaser, tag.name)
		}
		genre = append(genre, name)
	}

	if t.cfg.JoinTags != "" {
		genre = []string{strings.Join(genre, t.cfg.JoinTags)}
	}
	return genre
}

// convertFolksonomyTagsToGenre writes the aggregated genre into the track's
// metadata. The genre tag is left untouched when there are no tags.
func (t *Track) convertFolksonomyTagsToGenre() {
	genre := t.Genre()
	if genre == nil {
		return
	}
	t.metadata.SetValues(metadata.Genre, genre)
}

// customizeMetadata applies the configured post-lookup adjustments to the
// track's metadata.
func (t *Track) customizeMetadata() {
	tm := t.metadata

	if tm.Get(metadata.MusicBrainzArtistID) == VariousArtistsID {
		tm.Set(metadata.Artist, t.cfg.VAName)
		tm.Set(metadata.ArtistSort, t.cfg.VAName)
	}

	switch tm.Get(metadata.Title) {
	case DataTrackTitle:
		tm.Set(metadata.DataTrack, "1")
	case SilenceTrackTitle:
		tm.Set(metadata.Silence, "1")
	}

	if t.cfg.FolksonomyTags {
		t.convertFolksonomyTagsToGenre()
	}

	if t.cfg.ConvertPunctuation {
		tm.ApplyFunc(metadata.ASCIIPunct)
	}
}

package musicbrainz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tracktagger/internal/metadata"
	"tracktagger/internal/track"
)

// Relationship types copied into metadata, keyed by MusicBrainz type.
var relationTags = map[string]string{
	"producer": "producer",
	"engineer": "engineer",
	"mix":      "mixer",
	"remixer":  "remixer",
	"arranger": "arranger",
}

// Translator fills track metadata from a recording lookup response.
type Translator struct{}

// Translate decodes a recording response into m. It sets the track's
// folksonomy tags and rebuilds its credited artists.
func (Translator) Translate(raw []byte, m *metadata.Metadata, t *track.Track) error {
	var rec recording
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("failed to decode recording: %w", err)
	}
	if rec.ID == "" {
		return errors.New("recording response has no id")
	}

	m.Set(metadata.Title, rec.Title)
	m.Set(metadata.MusicBrainzRecordingID, rec.ID)
	if rec.Length > 0 {
		m.Set(metadata.Length, strconv.Itoa(rec.Length))
	}
	if rec.Video {
		m.Set(metadata.Video, "1")
	}
	if len(rec.ISRCs) > 0 {
		m.SetValues(metadata.ISRC, rec.ISRCs)
	}
	if rec.UserRating != nil && rec.UserRating.Value != nil {
		m.Set(metadata.Rating, strconv.FormatFloat(*rec.UserRating.Value, 'f', -1, 64))
	}

	setArtistCredits(m, rec.ArtistCredit)
	for _, credit := range rec.ArtistCredit {
		a := t.AppendTrackArtist(credit.Artist.ID)
		a.FolksonomyTags = tagCounts(credit.Artist.Tags, credit.Artist.UserTags)
	}

	for _, rel := range rec.Relations {
		switch {
		case rel.TargetType == "artist" && rel.Artist != nil:
			if name, ok := relationTags[rel.Type]; ok {
				m.Add(name, rel.Artist.Name)
			}
		case rel.TargetType == "work" && rel.Work != nil && rel.Type == "performance":
			m.Add("work", rel.Work.Title)
			m.Add("musicbrainz_workid", rel.Work.ID)
		}
	}

	t.SetFolksonomyTags(tagCounts(rec.Tags, rec.UserTags))
	return nil
}

func setArtistCredits(m *metadata.Metadata, credits []artistCredit) {
	if len(credits) == 0 {
		return
	}
	var artist, sortName strings.Builder
	ids := make([]string, 0, len(credits))
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		artist.WriteString(name + c.JoinPhrase)
		sortName.WriteString(c.Artist.SortName + c.JoinPhrase)
		ids = append(ids, c.Artist.ID)
	}
	m.Set(metadata.Artist, artist.String())
	m.Set(metadata.ArtistSort, sortName.String())
	m.SetValues(metadata.MusicBrainzArtistID, ids)
}

// tagCounts merges public tag votes with the user's own tags, which count
// as one vote each.
func tagCounts(public []tag, user []tag) track.TagCounts {
	counts := track.TagCounts{}
	for _, tg := range public {
		counts[tg.Name] += tg.Count
	}
	for _, tg := range user {
		counts[tg.Name]++
	}
	return counts
}

// MusicBrainz API response types

type recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Length       int            `json:"length"`
	Video        bool           `json:"video"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	ISRCs        []string       `json:"isrcs"`
	Tags         []tag          `json:"tags"`
	UserTags     []tag          `json:"user-tags"`
	UserRating   *userRating    `json:"user-rating"`
	Relations    []relation     `json:"relations"`
}

type artistCredit struct {
	Name       string     `json:"name"`
	JoinPhrase string     `json:"joinphrase"`
	Artist     artistInfo `json:"artist"`
}

type artistInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
	Tags     []tag  `json:"tags"`
	UserTags []tag  `json:"user-tags"`
}

type tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type userRating struct {
	Value *float64 `json:"value"`
}

type relation struct {
	Type       string      `json:"type"`
	TargetType string      `json:"target-type"`
	Artist     *artistInfo `json:"artist"`
	Work       *work       `json:"work"`
}

type work struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

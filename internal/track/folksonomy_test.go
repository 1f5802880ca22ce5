package track

import (
	"slices"
	"testing"

	"tracktagger/internal/config"
	"tracktagger/internal/metadata"
)

func genreConfig(maxTags, minUsage int, ignore, join string) config.Config {
	cfg := config.DefaultConfig()
	cfg.FolksonomyTags = true
	cfg.MaxTags = maxTags
	cfg.MinTagUsage = minUsage
	cfg.IgnoreTags = ignore
	cfg.JoinTags = join
	return cfg
}

func TestGenre(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		trackTags TagCounts
		albumTags TagCounts
		rgTags    TagCounts
		want      []string
	}{
		{
			name:      "threshold stops the ranked list",
			cfg:       genreConfig(10, 30, "", ""),
			trackTags: TagCounts{"rock": 5},
			albumTags: TagCounts{"rock": 3, "pop": 2},
			want:      []string{"Rock"},
		},
		{
			name:      "alias translation instead of title case",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"hip hop": 10},
			want:      []string{"Hip-Hop"},
		},
		{
			name:      "other aliases",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"synth-pop": 4, "electronica": 4},
			want:      []string{"Synthpop", "Electronic"},
		},
		{
			name:      "title case",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"drum and bass": 3},
			want:      []string{"Drum And Bass"},
		},
		{
			name:      "title case starts words after apostrophes and digits",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"rock'n'roll": 3, "uk garage": 2, "80s": 1},
			want:      []string{"Rock'N'Roll", "Uk Garage", "80S"},
		},
		{
			name:      "equal scores order by name descending",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"b": 5, "a": 5, "c": 5},
			want:      []string{"C", "B", "A"},
		},
		{
			name:      "score is floored",
			cfg:       genreConfig(10, 67, "", ""),
			trackTags: TagCounts{"a": 3, "b": 2},
			want:      []string{"A"},
		},
		{
			name:      "floored score at threshold passes",
			cfg:       genreConfig(10, 66, "", ""),
			trackTags: TagCounts{"a": 3, "b": 2},
			want:      []string{"A", "B"},
		},
		{
			name:      "max tags limits before filtering",
			cfg:       genreConfig(2, 0, "a", ""),
			trackTags: TagCounts{"a": 10, "b": 9, "c": 8},
			want:      []string{"B"},
		},
		{
			name:      "ignored tags are skipped case-insensitively",
			cfg:       genreConfig(10, 0, " Seen Live ,favorites", ""),
			trackTags: TagCounts{"Seen Live": 10, "rock": 9, "favorites": 8, "pop": 7},
			want:      []string{"Rock", "Pop"},
		},
		{
			name:      "non-positive counts are dropped",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"rock": 5, "pop": -2, "jazz": 0},
			want:      []string{"Rock"},
		},
		{
			name:      "counts are summed before dropping",
			cfg:       genreConfig(10, 0, "", ""),
			trackTags: TagCounts{"rock": -5, "pop": 1},
			albumTags: TagCounts{"rock": 5},
			want:      []string{"Pop"},
		},
		{
			name:      "release group tags are merged",
			cfg:       genreConfig(10, 50, "", ""),
			trackTags: TagCounts{"rock": 2},
			albumTags: TagCounts{"pop": 3},
			rgTags:    TagCounts{"pop": 3},
			want:      []string{"Pop"},
		},
		{
			name:      "join separator",
			cfg:       genreConfig(10, 0, "", " / "),
			trackTags: TagCounts{"rock": 2, "pop": 1},
			want:      []string{"Rock / Pop"},
		},
		{
			name:      "max tags zero",
			cfg:       genreConfig(0, 0, "", ""),
			trackTags: TagCounts{"rock": 2},
			want:      []string{},
		},
		{
			name: "no tags",
			cfg:  genreConfig(10, 0, "", ""),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, album := newTestTrack(tt.cfg)
			tr.SetFolksonomyTags(tt.trackTags)
			if tt.albumTags != nil {
				album.tags = tt.albumTags
			}
			if tt.rgTags != nil {
				album.rgTags = tt.rgTags
				album.hasRG = true
			}

			got := tr.Genre()
			if !slices.Equal(got, tt.want) || (got == nil) != (tt.want == nil) {
				t.Errorf("Genre() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGenreIsDeterministic(t *testing.T) {
	tr, album := newTestTrack(genreConfig(10, 0, "", ""))
	tr.SetFolksonomyTags(TagCounts{"x": 1, "y": 1, "z": 1, "w": 2})
	album.tags = TagCounts{"v": 1}

	first := tr.Genre()
	for i := 0; i < 50; i++ {
		if got := tr.Genre(); !slices.Equal(got, first) {
			t.Fatalf("run %d: Genre() = %v, first run %v", i, got, first)
		}
	}
}

func TestGenreDoesNotMutateSources(t *testing.T) {
	tr, album := newTestTrack(genreConfig(10, 0, "", ""))
	tr.SetFolksonomyTags(TagCounts{"rock": 1})
	album.tags = TagCounts{"rock": 2, "bad": -1}

	tr.Genre()

	if tr.FolksonomyTags()["rock"] != 1 || album.tags["rock"] != 2 || album.tags["bad"] != -1 {
		t.Errorf("sources mutated: track=%v album=%v", tr.FolksonomyTags(), album.tags)
	}
}

func TestGenreArtistFallback(t *testing.T) {
	cfg := genreConfig(10, 0, "", "")
	cfg.ArtistsTags = true

	t.Run("album artists", func(t *testing.T) {
		tr, album := newTestTrack(cfg)
		album.albumArtists = []*Artist{{ID: "a1", FolksonomyTags: TagCounts{"jazz": 4}}}
		tr.AppendTrackArtist("t1").FolksonomyTags["metal"] = 9

		if got := tr.Genre(); !slices.Equal(got, []string{"Jazz"}) {
			t.Errorf("Genre() = %v, want [Jazz]", got)
		}
	})

	t.Run("various artists uses track artists", func(t *testing.T) {
		tr, album := newTestTrack(cfg)
		tr.Metadata().Set(metadata.MusicBrainzAlbumArtistID, VariousArtistsID)
		album.albumArtists = []*Artist{{ID: VariousArtistsID, FolksonomyTags: TagCounts{"jazz": 4}}}
		tr.AppendTrackArtist("t1").FolksonomyTags["metal"] = 9
		tr.AppendTrackArtist("t2").FolksonomyTags["punk"] = 3

		if got := tr.Genre(); !slices.Equal(got, []string{"Metal", "Punk"}) {
			t.Errorf("Genre() = %v, want [Metal Punk]", got)
		}
	})

	t.Run("not used when other sources have tags", func(t *testing.T) {
		tr, album := newTestTrack(cfg)
		tr.SetFolksonomyTags(TagCounts{"rock": 1})
		album.albumArtists = []*Artist{{ID: "a1", FolksonomyTags: TagCounts{"jazz": 4}}}

		if got := tr.Genre(); !slices.Equal(got, []string{"Rock"}) {
			t.Errorf("Genre() = %v, want [Rock]", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		off := cfg
		off.ArtistsTags = false
		tr, album := newTestTrack(off)
		album.albumArtists = []*Artist{{ID: "a1", FolksonomyTags: TagCounts{"jazz": 4}}}

		if got := tr.Genre(); got != nil {
			t.Errorf("Genre() = %v, want nil", got)
		}
	})
}

func TestCustomizeMetadata(t *testing.T) {
	t.Run("writes genre", func(t *testing.T) {
		tr, _ := newTestTrack(genreConfig(10, 0, "", ""))
		tr.SetFolksonomyTags(TagCounts{"rock": 3, "pop": 1})
		tr.customizeMetadata()
		if got := tr.Metadata().Values(metadata.Genre); !slices.Equal(got, []string{"Rock", "Pop"}) {
			t.Errorf("genre = %v", got)
		}
	})

	t.Run("no tags leaves genre unset", func(t *testing.T) {
		tr, _ := newTestTrack(genreConfig(10, 0, "", ""))
		tr.customizeMetadata()
		if tr.Metadata().Has(metadata.Genre) {
			t.Errorf("genre should not be written, got %v", tr.Metadata().Values(metadata.Genre))
		}
	})

	t.Run("folksonomy disabled", func(t *testing.T) {
		cfg := genreConfig(10, 0, "", "")
		cfg.FolksonomyTags = false
		tr, _ := newTestTrack(cfg)
		tr.SetFolksonomyTags(TagCounts{"rock": 3})
		tr.Metadata().Set(metadata.Genre, "Existing")
		tr.customizeMetadata()
		if got := tr.Metadata().Get(metadata.Genre); got != "Existing" {
			t.Errorf("genre = %q, want untouched", got)
		}
	})

	t.Run("various artists name", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.VAName = "V.A."
		tr, _ := newTestTrack(cfg)
		tr.Metadata().Set(metadata.MusicBrainzArtistID, VariousArtistsID)
		tr.Metadata().Set(metadata.Artist, "Various Artists")
		tr.customizeMetadata()
		if tr.Metadata().Get(metadata.Artist) != "V.A." || tr.Metadata().Get(metadata.ArtistSort) != "V.A." {
			t.Errorf("artist = %q, artistsort = %q", tr.Metadata().Get(metadata.Artist), tr.Metadata().Get(metadata.ArtistSort))
		}
	})

	t.Run("data and silence tracks", func(t *testing.T) {
		tr, _ := newTestTrack(config.DefaultConfig())
		tr.Metadata().Set(metadata.Title, DataTrackTitle)
		tr.customizeMetadata()
		if !tr.IsData() {
			t.Error("data track title should set ~datatrack")
		}

		tr, _ = newTestTrack(config.DefaultConfig())
		tr.Metadata().Set(metadata.Title, SilenceTrackTitle)
		tr.customizeMetadata()
		if !tr.IsSilence() {
			t.Error("silence title should set ~silence")
		}
	})

	t.Run("convert punctuation", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.ConvertPunctuation = true
		tr, _ := newTestTrack(cfg)
		tr.Metadata().Set(metadata.Title, "Don’t Stop…")
		tr.customizeMetadata()
		if got := tr.Metadata().Get(metadata.Title); got != "Don't Stop..." {
			t.Errorf("title = %q", got)
		}
	})
}

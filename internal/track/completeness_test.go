package track

import (
	"testing"

	"tracktagger/internal/config"
	"tracktagger/internal/metadata"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		ignore func(*config.Config)
		files  int
		want   bool
	}{
		{name: "one file", files: 1, want: true},
		{name: "no files", files: 0, want: false},
		{name: "two files", files: 2, want: false},
		{
			name:   "ignored video without files",
			flag:   metadata.Video,
			ignore: func(c *config.Config) { c.CompletenessIgnoreVideos = true },
			want:   true,
		},
		{
			name: "video not ignored",
			flag: metadata.Video,
			want: false,
		},
		{
			name:   "ignored pregap with two files",
			flag:   metadata.Pregap,
			ignore: func(c *config.Config) { c.CompletenessIgnorePregap = true },
			files:  2,
			want:   true,
		},
		{
			name:   "ignored data track",
			flag:   metadata.DataTrack,
			ignore: func(c *config.Config) { c.CompletenessIgnoreData = true },
			want:   true,
		},
		{
			name:   "ignored silence",
			flag:   metadata.Silence,
			ignore: func(c *config.Config) { c.CompletenessIgnoreSilence = true },
			want:   true,
		},
		{
			name:   "option for another category",
			flag:   metadata.Silence,
			ignore: func(c *config.Config) { c.CompletenessIgnoreVideos = true },
			want:   false,
		},
		{
			name: "option without flag",
			ignore: func(c *config.Config) {
				c.CompletenessIgnoreVideos = true
				c.CompletenessIgnorePregap = true
				c.CompletenessIgnoreData = true
				c.CompletenessIgnoreSilence = true
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.ignore != nil {
				tt.ignore(&cfg)
			}
			tr, _ := newTestTrack(cfg)
			if tt.flag != "" {
				tr.Metadata().Set(tt.flag, "1")
			}
			for i := 0; i < tt.files; i++ {
				tr.AddFile(newFakeFile("mp3", nil))
			}
			if got := tr.IsComplete(); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoryFlags(t *testing.T) {
	tr, _ := newTestTrack(config.DefaultConfig())
	tr.Metadata().Set(metadata.Video, "0")
	if tr.IsVideo() {
		t.Error("~video=0 should not count as video")
	}
	tr.Metadata().Set(metadata.Video, "1")
	tr.Metadata().Set(metadata.Pregap, "1")
	if !tr.IsVideo() || !tr.IsPregap() || tr.IsData() || tr.IsSilence() {
		t.Error("flags not read from metadata")
	}
}

package track

import (
	"io"

	"tracktagger/internal/config"
	"tracktagger/internal/logger"
	"tracktagger/internal/metadata"
)

type fakeAlbum struct {
	metadata     *metadata.Metadata
	tags         TagCounts
	rgTags       TagCounts
	hasRG        bool
	albumArtists []*Artist
	added        []File
	removed      []File
	updates      int
}

func newFakeAlbum() *fakeAlbum {
	return &fakeAlbum{metadata: metadata.New(), tags: TagCounts{}}
}

func (a *fakeAlbum) AddFile(_ *Track, f File)            { a.added = append(a.added, f) }
func (a *fakeAlbum) RemoveFile(_ *Track, f File)         { a.removed = append(a.removed, f) }
func (a *fakeAlbum) Metadata() *metadata.Metadata        { return a.metadata }
func (a *fakeAlbum) FolksonomyTags() TagCounts           { return a.tags }
func (a *fakeAlbum) ReleaseGroupTags() (TagCounts, bool) { return a.rgTags, a.hasRG }
func (a *fakeAlbum) AlbumArtists() []*Artist             { return a.albumArtists }
func (a *fakeAlbum) Update()                             { a.updates++ }

type fakeFile struct {
	metadata *metadata.Metadata
	orig     *metadata.Metadata
	signals  []bool
	saveable bool
}

func newFakeFile(ext string, tags map[string]string) *fakeFile {
	orig := metadata.New()
	for k, v := range tags {
		orig.Set(k, v)
	}
	if ext != "" {
		orig.Set(metadata.Extension, ext)
	}
	return &fakeFile{metadata: orig.Clone(), orig: orig}
}

func (f *fakeFile) Metadata() *metadata.Metadata     { return f.metadata }
func (f *fakeFile) OrigMetadata() *metadata.Metadata { return f.orig }
func (f *fakeFile) Update(signal bool)               { f.signals = append(f.signals, signal) }
func (f *fakeFile) CanSave() bool                    { return f.saveable }
func (f *fakeFile) CanRemove() bool                  { return true }

type countingItem struct{ updates int }

func (i *countingItem) Update() { i.updates++ }

type fetchCall struct {
	id   string
	req  FetchRequest
	done func([]byte, error)
}

// fakeFetcher records fetches; tests complete them explicitly.
type fakeFetcher struct {
	calls []fetchCall
}

func (f *fakeFetcher) Fetch(id string, req FetchRequest, done func([]byte, error)) {
	f.calls = append(f.calls, fetchCall{id: id, req: req, done: done})
}

func (f *fakeFetcher) complete(i int, raw []byte, err error) {
	f.calls[i].done(raw, err)
}

type translatorFunc func(raw []byte, m *metadata.Metadata, t *Track) error

func (fn translatorFunc) Translate(raw []byte, m *metadata.Metadata, t *Track) error {
	return fn(raw, m, t)
}

type scriptFunc func(script string, m *metadata.Metadata) error

func (fn scriptFunc) Eval(script string, m *metadata.Metadata) error {
	return fn(script, m)
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, false)
}

func newTestTrack(cfg config.Config) (*Track, *fakeAlbum) {
	album := newFakeAlbum()
	return New("track-1", album, &cfg, testLogger()), album
}

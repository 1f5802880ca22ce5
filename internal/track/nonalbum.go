package track

import (
	"errors"
	"fmt"
	"runtime/debug"

	"tracktagger/internal/config"
	"tracktagger/internal/logger"
	"tracktagger/internal/metadata"
)

// LoadingTitle is shown as the title while a track is being fetched.
const LoadingTitle = "[loading track information]"

// ErrNoTranslator is returned when a fetch completes but no translator is configured.
var ErrNoTranslator = errors.New("no recording translator configured")

// FetchRequest describes what a fetch asks the catalog for.
type FetchRequest struct {
	Includes []string
	// Auth requests an authenticated fetch, needed for user tags and ratings.
	Auth     bool
	Priority bool
	// Refresh bypasses any cached response.
	Refresh bool
}

// Fetcher looks up recordings in the remote catalog. Fetch must not block;
// done is called later with the raw response or an error, on the goroutine
// that owns the track.
type Fetcher interface {
	Fetch(id string, req FetchRequest, done func(raw []byte, err error))
}

// Translator fills m from a raw catalog response. It may also set the
// track's folksonomy tags and append track artists.
type Translator interface {
	Translate(raw []byte, m *metadata.Metadata, t *Track) error
}

// ScriptRunner evaluates a user tagging script against metadata.
type ScriptRunner interface {
	Eval(script string, m *metadata.Metadata) error
}

// MetadataProcessor post-processes track metadata after translation. release
// is nil for tracks that are not part of a loaded release.
type MetadataProcessor func(album Album, m *metadata.Metadata, release, recording []byte)

// Loader bundles the collaborators a NonAlbumTrack needs to load itself.
type Loader struct {
	Fetcher    Fetcher
	Translator Translator
	Processors []MetadataProcessor
	Script     ScriptRunner
}

// LoadState is the state of a NonAlbumTrack's lookup.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// LoadErrorKind tells a failed fetch from an unusable response.
type LoadErrorKind int

const (
	FetchFailed LoadErrorKind = iota
	MalformedResponse
)

// LoadError is recorded when a load attempt fails.
type LoadError struct {
	TrackID string
	Kind    LoadErrorKind
	Err     error
}

func (e *LoadError) Error() string {
	if e.Kind == MalformedResponse {
		return fmt.Sprintf("malformed response for track %s: %v", e.TrackID, e.Err)
	}
	return fmt.Sprintf("fetch failed for track %s: %v", e.TrackID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NonAlbumTrack is a track looked up on its own rather than as part of a
// release. Its metadata is unusable until Load completes.
type NonAlbumTrack struct {
	*Track

	loader   Loader
	loaded   bool
	loading  bool
	callback func()
	lastErr  error
}

// NewNonAlbumTrack creates an unloaded track owned by album.
func NewNonAlbumTrack(id string, album Album, cfg *config.Config, log *logger.Logger, loader Loader) *NonAlbumTrack {
	return &NonAlbumTrack{
		Track:  New(id, album, cfg, log),
		loader: loader,
	}
}

func (t *NonAlbumTrack) CanRefresh() bool { return true }

// Column returns the display value of a column. The title is shown bare.
func (t *NonAlbumTrack) Column(column string) string {
	if column == metadata.Title {
		return t.metadata.Get(metadata.Title)
	}
	return t.Track.Column(column)
}

func (t *NonAlbumTrack) Loaded() bool { return t.loaded }

// State returns where the track is in its load cycle.
func (t *NonAlbumTrack) State() LoadState {
	switch {
	case t.loaded:
		return Loaded
	case t.loading:
		return Loading
	default:
		return Unloaded
	}
}

// LastError returns the error of the most recent failed load, or nil.
func (t *NonAlbumTrack) LastError() error { return t.lastErr }

// Load issues a fetch for the track. Observers see the placeholder title
// right away; the metadata is merged when the fetch completes.
//
// Concurrent loads are not ordered: if two fetches are in flight, the one
// that completes last wins.
func (t *NonAlbumTrack) Load(priority, refresh bool) {
	t.metadata.Copy(t.album.Metadata())
	t.metadata.Set(metadata.Title, LoadingTitle)
	t.loaded = false
	t.loading = true
	t.lastErr = nil
	t.album.Update()

	req := t.fetchRequest()
	req.Priority = priority
	req.Refresh = refresh
	t.log.Debug("Fetching recording %s (inc=%v, auth=%v)", t.id, req.Includes, req.Auth)
	t.loader.Fetcher.Fetch(t.id, req, t.recordingRequestFinished)
}

func (t *NonAlbumTrack) fetchRequest() FetchRequest {
	c := t.cfg
	req := FetchRequest{Includes: []string{"artist-credits", "artists", "aliases"}}
	if c.TrackARs {
		req.Includes = append(req.Includes,
			"artist-rels", "url-rels", "recording-rels", "work-rels", "work-level-rels")
	}
	if c.FolksonomyTags {
		if c.OnlyMyTags {
			req.Auth = true
			req.Includes = append(req.Includes, "user-tags")
		} else {
			req.Includes = append(req.Includes, "tags")
		}
	}
	if c.EnableRatings {
		req.Auth = true
		req.Includes = append(req.Includes, "user-ratings")
	}
	return req
}

// RunWhenLoaded calls fn now if the track is loaded, otherwise once the
// pending load succeeds. Only one callback is kept: a second call before
// the load completes replaces the first, which is then never called.
// It reports whether a pending callback was replaced.
func (t *NonAlbumTrack) RunWhenLoaded(fn func()) (replaced bool) {
	if t.loaded {
		fn()
		return false
	}
	replaced = t.callback != nil
	t.callback = fn
	return replaced
}

// HasPendingCallback reports whether a callback is waiting for the load.
func (t *NonAlbumTrack) HasPendingCallback() bool {
	return t.callback != nil
}

func (t *NonAlbumTrack) recordingRequestFinished(raw []byte, err error) {
	t.loading = false
	if err != nil {
		t.fail(&LoadError{TrackID: t.id, Kind: FetchFailed, Err: err})
		return
	}
	if err := t.parseRecording(raw); err != nil {
		t.fail(&LoadError{TrackID: t.id, Kind: MalformedResponse, Err: err})
		return
	}

	for _, f := range t.linkedFiles {
		t.UpdateFileMetadata(f)
	}

	t.loaded = true
	if cb := t.callback; cb != nil {
		t.callback = nil
		cb()
	}
	t.album.Update()
}

func (t *NonAlbumTrack) fail(err error) {
	t.lastErr = err
	t.log.Error("%v", err)
	t.Update()
}

// trackState is what parseRecording restores when translation fails.
type trackState struct {
	metadata       *metadata.Metadata
	folksonomyTags TagCounts
	trackArtists   []*Artist
}

func (t *NonAlbumTrack) parseRecording(raw []byte) (err error) {
	saved := trackState{
		metadata:       t.metadata.Clone(),
		folksonomyTags: t.folksonomyTags,
		trackArtists:   t.trackArtists,
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
		if err != nil {
			t.metadata.Copy(saved.metadata)
			t.folksonomyTags = saved.folksonomyTags
			t.trackArtists = saved.trackArtists
		}
	}()

	if t.loader.Translator == nil {
		return ErrNoTranslator
	}

	m := t.metadata
	t.resetTrackArtists()
	if err := t.loader.Translator.Translate(raw, m, t.Track); err != nil {
		return err
	}
	t.customizeMetadata()
	for _, process := range t.loader.Processors {
		process(t.album, m, nil, raw)
	}
	t.runTaggerScript()
	return nil
}

func (t *NonAlbumTrack) runTaggerScript() {
	if !t.cfg.EnableTaggerScript || t.cfg.TaggerScript == "" || t.loader.Script == nil {
		return
	}
	before := t.metadata.Clone()
	if err := t.loader.Script.Eval(t.cfg.TaggerScript, t.metadata); err != nil {
		t.log.Error("Tagger script failed for track %s: %v", t.id, err)
		t.metadata.Copy(before)
	}
	t.metadata.StripWhitespace()
}

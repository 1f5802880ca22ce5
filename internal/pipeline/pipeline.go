// Package pipeline runs batch lookups: each job names a recording and the
// files to tag with it.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"tracktagger/internal/album"
	"tracktagger/internal/config"
	"tracktagger/internal/eventloop"
	"tracktagger/internal/file"
	"tracktagger/internal/logger"
	"tracktagger/internal/metadata"
	"tracktagger/internal/track"
)

// Job tags the audio files under Paths with one recording.
type Job struct {
	RecordingID string
	Paths       []string
}

type Hooks struct {
	OnTotal    func(total int)
	OnProgress func()
	OnWarning  func(msg string)
}

// Stats summarises a run.
type Stats struct {
	Total  int
	Loaded int
	Failed int
	Saved  int
}

// File is an audio file the pipeline can link and save.
type File interface {
	track.File
	Path() string
	Save() error
}

// Opener opens the audio file at path.
type Opener func(path string) (File, error)

func openFile(path string) (File, error) {
	f, err := file.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Pipeline holds what a run needs. Loop must be running.
type Pipeline struct {
	Config *config.Config
	Log    *logger.Logger
	Loop   *eventloop.Loop
	Loader track.Loader
	Open   Opener
	Hooks  Hooks
}

// jobState is owned by the event loop.
type jobState struct {
	track    *track.NonAlbumTrack
	files    []File
	finished bool
	done     chan struct{}
}

// watcher ends a job when its load fails. It observes the track on the
// event loop.
type watcher struct {
	p     *Pipeline
	job   *jobState
	stats *Stats
	mu    *sync.Mutex
}

func (w *watcher) Update() {
	t := w.job.track
	if w.job.finished || t.State() != track.Unloaded || t.LastError() == nil {
		return
	}
	w.p.warn("Lookup of %s failed: %v", t.ID(), t.LastError())
	w.mu.Lock()
	w.stats.Failed++
	w.mu.Unlock()
	w.p.finish(w.job)
}

// Run looks up every job's recording, links its files and saves them once
// the lookup completes. It returns when all jobs have finished or ctx is
// cancelled.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) (Stats, error) {
	if p.Open == nil {
		p.Open = openFile
	}
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seen[job.RecordingID] {
			return Stats{}, fmt.Errorf("recording %s listed more than once", job.RecordingID)
		}
		seen[job.RecordingID] = true
	}

	stats := Stats{Total: len(jobs)}
	if p.Hooks.OnTotal != nil {
		p.Hooks.OnTotal(len(jobs))
	}

	opened := make([][]File, len(jobs))
	for i, job := range jobs {
		paths, err := file.Expand(job.Paths)
		if err != nil {
			return stats, fmt.Errorf("job %s: %w", job.RecordingID, err)
		}
		for _, path := range paths {
			f, err := p.Open(path)
			if err != nil {
				p.warn("Skipping %s: %v", path, err)
				continue
			}
			opened[i] = append(opened[i], f)
		}
	}

	var mu sync.Mutex
	states := make([]*jobState, len(jobs))
	err := p.Loop.Call(ctx, func() error {
		a := album.NewNonAlbum(p.Config, p.Log)
		for i, job := range jobs {
			st := &jobState{files: opened[i], done: make(chan struct{})}
			states[i] = st
			st.track = a.AddNonAlbumTrack(job.RecordingID, p.Loader)
			st.track.SetItem(&watcher{p: p, job: st, stats: &stats, mu: &mu})
			for _, f := range st.files {
				st.track.AddFile(f)
			}

			st.track.RunWhenLoaded(func() {
				saved := p.save(st)
				mu.Lock()
				stats.Loaded++
				stats.Saved += saved
				mu.Unlock()
				p.finish(st)
			})
			st.track.Load(len(jobs) == 1, false)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to queue lookups: %w", err)
	}

	for _, st := range states {
		select {
		case <-st.done:
		case <-ctx.Done():
			mu.Lock()
			defer mu.Unlock()
			return stats, ctx.Err()
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return stats, nil
}

func (p *Pipeline) finish(st *jobState) {
	if st.finished {
		return
	}
	st.finished = true
	close(st.done)
	if p.Hooks.OnProgress != nil {
		p.Hooks.OnProgress()
	}
}

func (p *Pipeline) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.Log.Warn("%s", msg)
	if p.Hooks.OnWarning != nil {
		p.Hooks.OnWarning(msg)
	}
}

// save writes the track's files and returns how many were written.
func (p *Pipeline) save(st *jobState) int {
	t := st.track
	p.Log.Info("%s: %s - %s", t.ID(), t.Metadata().Get(metadata.Artist), t.Metadata().Get(metadata.Title))
	if genre := t.Metadata().Values(metadata.Genre); len(genre) > 0 {
		p.Log.Debug("%s: genre %v", t.ID(), genre)
	}

	saved := 0
	for _, f := range st.files {
		if !t.CanSave() || !f.CanSave() {
			p.warn("%s is read-only, not saving", f.Path())
			continue
		}
		if p.Config.DryRun {
			for _, line := range Diff(f.OrigMetadata(), f.Metadata()) {
				p.Log.Info("[dry-run] %s: %s", f.Path(), line)
			}
			continue
		}
		if err := f.Save(); err != nil {
			p.warn("Failed to save %s: %v", f.Path(), err)
			continue
		}
		saved++
	}
	return saved
}

// Diff describes the visible tags that differ between before and after,
// in sorted tag order.
func Diff(before, after *metadata.Metadata) []string {
	names := slices.Concat(before.Keys(), after.Keys())
	slices.Sort(names)
	names = slices.Compact(names)

	var lines []string
	for _, name := range names {
		if metadata.IsHidden(name) {
			continue
		}
		old, cur := before.Values(name), after.Values(name)
		if slices.Equal(old, cur) {
			continue
		}
		switch {
		case len(old) == 0:
			lines = append(lines, fmt.Sprintf("%s: + %q", name, after.Get(name)))
		case len(cur) == 0:
			lines = append(lines, fmt.Sprintf("%s: - %q", name, before.Get(name)))
		default:
			lines = append(lines, fmt.Sprintf("%s: %q -> %q", name, before.Get(name), after.Get(name)))
		}
	}
	return lines
}

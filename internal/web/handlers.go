package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tracktagger/internal/track"
)

type AddTrackRequest struct {
	RecordingID string   `json:"recording_id"`
	Files       []string `json:"files"`
}

type FileRequest struct {
	Path string `json:"path"`
}

type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func errStatus(code int, format string, args ...any) error {
	return &statusError{code: code, msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var se *statusError
	if errors.As(err, &se) {
		http.Error(w, se.msg, se.code)
		return
	}
	s.logger.Error("Request failed: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.hub.List())
	case http.MethodPost:
		s.handleAddTrack(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var req AddTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RecordingID == "" {
		http.Error(w, "recording_id is required", http.StatusBadRequest)
		return
	}

	var snap *TrackSnapshot
	err := s.loop.Call(r.Context(), func() error {
		if s.album.Track(req.RecordingID) != nil {
			return errStatus(http.StatusConflict, "track already exists: %s", req.RecordingID)
		}
		files := make([]AudioFile, 0, len(req.Files))
		for _, p := range req.Files {
			f, err := s.fileFor(p)
			if err != nil {
				return err
			}
			if other := s.album.TrackForFile(f); other != nil {
				return errStatus(http.StatusConflict, "%s is linked to track %s", p, other.ID())
			}
			files = append(files, f)
		}

		t := s.album.AddNonAlbumTrack(req.RecordingID, s.loader)
		t.SetItem(&trackItem{s: s, t: t})
		for _, f := range files {
			t.AddFile(f)
		}
		t.Load(true, false)
		snap = snapshot(t)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("Added track %s with %d file(s)", req.RecordingID, len(req.Files))
	writeJSON(w, http.StatusCreated, snap)
}

// fileFor returns the open file for path, opening it on first use.
func (s *Server) fileFor(path string) (AudioFile, error) {
	if f, ok := s.files[path]; ok {
		return f, nil
	}
	f, err := s.open(path)
	if err != nil {
		return nil, errStatus(http.StatusBadRequest, "cannot open %s: %v", path, err)
	}
	s.files[path] = f
	return f, nil
}

func (s *Server) handleTrackAction(w http.ResponseWriter, r *http.Request) {
	// Extract track ID from path: /api/tracks/{id} or /api/tracks/{id}/{action}
	path := strings.TrimPrefix(r.URL.Path, "/api/tracks/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Track ID required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		snap, err := s.hub.Get(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.handleRemove(w, r, id)
	case len(parts) == 2 && r.Method == http.MethodPost:
		switch parts[1] {
		case "reload":
			s.handleReload(w, r, id)
		case "save":
			s.handleSave(w, r, id)
		case "link":
			s.handleLink(w, r, id, true)
		case "unlink":
			s.handleLink(w, r, id, false)
		default:
			http.Error(w, "Unknown action", http.StatusNotFound)
		}
	default:
		http.Error(w, "Invalid request", http.StatusBadRequest)
	}
}

// onTrack runs fn on the event loop with the track, failing with 404 if
// the album has no such track.
func (s *Server) onTrack(r *http.Request, id string, fn func(t *track.NonAlbumTrack) error) (*TrackSnapshot, error) {
	var snap *TrackSnapshot
	err := s.loop.Call(r.Context(), func() error {
		t := s.album.Track(id)
		if t == nil {
			return errStatus(http.StatusNotFound, "track not found: %s", id)
		}
		if err := fn(t); err != nil {
			return err
		}
		snap = snapshot(t)
		return nil
	})
	return snap, err
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.onTrack(r, id, func(t *track.NonAlbumTrack) error {
		t.Load(true, true)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// handleSave saves the track's files now if it is loaded, otherwise once
// the pending load completes. A later save request replaces an earlier
// pending one.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, id string) {
	status := http.StatusOK
	snap, err := s.onTrack(r, id, func(t *track.NonAlbumTrack) error {
		if !t.Loaded() {
			status = http.StatusAccepted
			if t.RunWhenLoaded(func() { s.saveFiles(t) }) {
				s.logger.Debug("Replaced pending save of %s", t)
			}
			s.publish(t)
			return nil
		}
		if failed := s.saveFiles(t); failed > 0 {
			return fmt.Errorf("%d file(s) of %s could not be saved", failed, t.ID())
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, snap)
}

// saveFiles writes every saveable linked file and returns how many failed.
func (s *Server) saveFiles(t *track.NonAlbumTrack) int {
	failed := 0
	for _, f := range t.Files() {
		af, ok := f.(AudioFile)
		if !ok || !af.CanSave() {
			continue
		}
		if s.config.DryRun {
			s.logger.Info("[dry-run] Would save %s", af.Path())
			continue
		}
		if err := af.Save(); err != nil {
			s.logger.Error("Failed to save %s: %v", af.Path(), err)
			failed++
			continue
		}
		s.logger.Info("Saved %s", af.Path())
	}
	s.publish(t)
	return failed
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request, id string, link bool) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	snap, err := s.onTrack(r, id, func(t *track.NonAlbumTrack) error {
		if !link {
			f, ok := s.files[req.Path]
			if !ok {
				return errStatus(http.StatusNotFound, "file not linked: %s", req.Path)
			}
			t.RemoveFile(f)
			return nil
		}
		f, err := s.fileFor(req.Path)
		if err != nil {
			return err
		}
		if other := s.album.TrackForFile(f); other != nil && other.ID() != t.ID() {
			return errStatus(http.StatusConflict, "%s is linked to track %s", req.Path, other.ID())
		}
		t.AddFile(f)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, id string) {
	err := s.loop.Call(r.Context(), func() error {
		if !s.album.RemoveTrack(id) {
			return errStatus(http.StatusNotFound, "track not found: %s", id)
		}
		s.hub.Remove(id)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": StateRemoved})
}

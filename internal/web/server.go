// Package web exposes the non-album track list over HTTP and streams track
// snapshots over websockets.
package web

import (
	"context"
	"net/http"

	"tracktagger/internal/album"
	"tracktagger/internal/config"
	"tracktagger/internal/eventloop"
	"tracktagger/internal/file"
	"tracktagger/internal/logger"
	"tracktagger/internal/track"
)

// AudioFile is a file the server can link to tracks and save.
type AudioFile interface {
	track.File
	Path() string
	Save() error
}

// Opener opens the audio file at path.
type Opener func(path string) (AudioFile, error)

func openFile(path string) (AudioFile, error) {
	f, err := file.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type Server struct {
	ctx    context.Context
	loop   *eventloop.Loop
	album  *album.Album
	hub    *Hub
	loader track.Loader
	config *config.Config
	logger *logger.Logger

	// open and files are only used on the event loop.
	open  Opener
	files map[string]AudioFile
}

// NewServer creates a server for the tracks of a. Every track mutation is
// run on loop.
func NewServer(ctx context.Context, loop *eventloop.Loop, a *album.Album, hub *Hub, loader track.Loader, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		ctx:    ctx,
		loop:   loop,
		album:  a,
		hub:    hub,
		loader: loader,
		config: cfg,
		logger: log,
		open:   openFile,
		files:  make(map[string]AudioFile),
	}
	a.SetItem(&albumItem{s: s})
	return s
}

// SetOpener replaces how audio files are opened.
func (s *Server) SetOpener(open Opener) {
	s.open = open
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/tracks/", s.handleTrackAction)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) publish(t *track.NonAlbumTrack) {
	s.hub.Publish(snapshot(t))
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"tracktagger/internal/album"
	"tracktagger/internal/config"
	"tracktagger/internal/eventloop"
	"tracktagger/internal/logger"
	"tracktagger/internal/provider/musicbrainz"
	"tracktagger/internal/script"
	"tracktagger/internal/shutdown"
	"tracktagger/internal/track"
	"tracktagger/internal/web"
)

func main() {
	var (
		addr       string
		configPath string
		verbose    bool
	)

	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides listen_addr)")
	flag.StringVar(&configPath, "config", "", "Config file path")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	cfg, err := config.LoadConfigFile(config.ExpandHome(configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(cfg.Verbose)
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("tracktagger-web-%d.log", time.Now().Unix()))
		if err := l.SetFileLog(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup file logging: %v\n", err)
		}
	}
	defer l.Close()

	sh := shutdown.New(context.Background())
	sh.Listen()
	defer sh.Shutdown()

	if err := serve(sh.Context(), &cfg, l); err != nil {
		l.Error("Server error: %v", err)
		l.Close()
		os.Exit(1)
	}
	l.Info("Server stopped")
}

func serve(ctx context.Context, cfg *config.Config, l *logger.Logger) error {
	loop := eventloop.New(256)
	loop.OnPanic = func(r any, stack []byte) {
		l.Error("Panic on event loop: %v\n%s", r, stack)
	}
	client := musicbrainz.New(cfg, l, loop.Post)
	loader := track.Loader{
		Fetcher:    client,
		Translator: musicbrainz.Translator{},
		Script:     script.NewParser(),
	}

	hub := web.NewHub()
	hub.StartCleanup(ctx)
	server := web.NewServer(ctx, loop, album.NewNonAlbum(cfg, l), hub, loader, cfg, l)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(client.Run(gctx)) })
	g.Go(func() error {
		l.Info("Starting web server on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

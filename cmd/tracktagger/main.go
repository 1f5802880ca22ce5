package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"tracktagger/internal/config"
	"tracktagger/internal/eventloop"
	"tracktagger/internal/logger"
	"tracktagger/internal/pipeline"
	"tracktagger/internal/progress"
	"tracktagger/internal/provider/musicbrainz"
	"tracktagger/internal/script"
	"tracktagger/internal/shutdown"
	"tracktagger/internal/track"
)

func main() {
	cfg, configPath, jobs, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	sh := shutdown.New(context.Background())
	sh.Listen()
	defer sh.Shutdown()

	log := logger.New(cfg.Verbose)
	defer log.Close()

	if !cfg.Verbose {
		logDir := config.GetDefaultLogPath()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		} else {
			logFile := filepath.Join(logDir, fmt.Sprintf("tracktagger_%s.log", time.Now().Format("2006-01-02_15-04-05")))
			if err := log.SetFileLog(logFile); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
			} else {
				log.Debug("Logging to file: %s", logFile)
			}
		}
	}

	if cfg.Verbose && configPath != "" {
		log.Debug("Loaded configuration from: %s", configPath)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("Configuration error: %v", err)
		os.Exit(1)
	}

	if err := run(sh, &cfg, log, jobs); err != nil {
		log.Error("%v", err)
		sh.Shutdown()
		log.Close()
		os.Exit(1)
	}
}

func run(sh *shutdown.Handler, cfg *config.Config, log *logger.Logger, jobs []pipeline.Job) error {
	ctx, cancel := context.WithCancel(sh.Context())
	defer cancel()

	loop := eventloop.New(256)
	loop.OnPanic = func(r any, stack []byte) {
		log.Error("Panic on event loop: %v\n%s", r, stack)
	}
	client := musicbrainz.New(cfg, log, loop.Post)

	var bar *progress.Bar
	p := &pipeline.Pipeline{
		Config: cfg,
		Log:    log,
		Loop:   loop,
		Loader: track.Loader{
			Fetcher:    client,
			Translator: musicbrainz.Translator{},
			Script:     script.NewParser(),
		},
		Hooks: pipeline.Hooks{
			OnTotal: func(total int) {
				if !cfg.Verbose && total > 1 {
					bar = progress.New(total, "tracks")
					log.SetProgressBar(true)
				}
			},
			OnProgress: func() {
				if bar != nil {
					bar.Increment()
				}
			},
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(client.Run(gctx)) })

	var stats pipeline.Stats
	g.Go(func() error {
		defer cancel()
		var err error
		stats, err = p.Run(gctx, jobs)
		return ignoreCanceled(err)
	})
	err := g.Wait()

	if bar != nil {
		bar.Finish()
		log.SetProgressBar(false)
	}

	if err != nil {
		return err
	}
	if sh.Context().Err() != nil {
		return fmt.Errorf("interrupted after %d of %d tracks", stats.Loaded+stats.Failed, stats.Total)
	}

	log.Info("Loaded %d of %d tracks, saved %d files", stats.Loaded, stats.Total, stats.Saved)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", stats.Failed, stats.Total)
	}
	log.Info("=== Process completed successfully ===")
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"tracktagger/internal/config"
	"tracktagger/internal/pipeline"
)

// parseArgs parses command-line arguments and loads configuration.
// Priority: CLI flags > config file > defaults
func parseArgs(args []string) (config.Config, string, []pipeline.Job, error) {
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printUsage()
			os.Exit(0)
		}
		if arg == "--init-config" {
			return config.Config{}, "", nil, initConfigFile()
		}
	}

	var configPath string
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" || args[i] == "-c" {
			if i+1 >= len(args) {
				return config.Config{}, "", nil, fmt.Errorf("--config requires a path argument")
			}
			configPath = config.ExpandHome(args[i+1])
			break
		}
	}

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return config.Config{}, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	var positional []string
	var batchPath string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--verbose", "-v":
			cfg.Verbose = true

		case "--dry-run", "-n":
			cfg.DryRun = true

		case "--tags", "-t":
			cfg.FolksonomyTags = true

		case "--script", "-s":
			if i+1 >= len(args) {
				return config.Config{}, "", nil, fmt.Errorf("--script requires a file argument")
			}
			i++
			data, err := os.ReadFile(config.ExpandHome(args[i]))
			if err != nil {
				return config.Config{}, "", nil, fmt.Errorf("failed to read script: %w", err)
			}
			cfg.TaggerScript = string(data)
			cfg.EnableTaggerScript = true

		case "--batch", "-b":
			if i+1 >= len(args) {
				return config.Config{}, "", nil, fmt.Errorf("--batch requires a file argument")
			}
			i++
			batchPath = config.ExpandHome(args[i])

		case "--config", "-c":
			i++

		default:
			if len(arg) > 0 && arg[0] == '-' {
				return config.Config{}, "", nil, fmt.Errorf("unknown flag: %s", arg)
			}
			positional = append(positional, arg)
		}
	}

	if batchPath != "" {
		if len(positional) > 0 {
			return config.Config{}, "", nil, fmt.Errorf("--batch cannot be combined with a recording id")
		}
		jobs, err := readBatchFile(batchPath)
		if err != nil {
			return config.Config{}, "", nil, err
		}
		return cfg, configPath, jobs, nil
	}

	if len(positional) < 2 {
		return config.Config{}, "", nil, fmt.Errorf("expected a recording id followed by at least one file or directory")
	}
	paths := make([]string, 0, len(positional)-1)
	for _, p := range positional[1:] {
		paths = append(paths, config.ExpandHome(p))
	}
	return cfg, configPath, []pipeline.Job{{RecordingID: positional[0], Paths: paths}}, nil
}

// readBatchFile reads one job per line: a recording id followed by
// tab-separated paths. Blank lines and lines starting with # are skipped.
func readBatchFile(path string) ([]pipeline.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var jobs []pipeline.Job
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: expected a recording id and at least one path", path, n)
		}
		job := pipeline.Job{RecordingID: strings.TrimSpace(fields[0])}
		for _, p := range fields[1:] {
			if p = strings.TrimSpace(p); p != "" {
				job.Paths = append(job.Paths, config.ExpandHome(p))
			}
		}
		jobs = append(jobs, job)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("batch file %s has no jobs", path)
	}
	return jobs, nil
}

// initConfigFile creates a new config file with default values
func initConfigFile() error {
	path := config.GetDefaultConfigPath()

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file already exists at: %s\n", path)
		fmt.Println("Delete it first if you want to recreate it.")
		os.Exit(0)
	}

	if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("Created default config file at: %s\n", path)
	fmt.Println("\nYou can now edit this file to customize your settings.")
	fmt.Println("Notable options:")
	fmt.Println("  folksonomy_tags: true/false (write genres from tags)")
	fmt.Println("  max_tags, min_tag_usage, ignore_tags, join_tags: genre selection")
	fmt.Println("  va_name: name used for the Various Artists artist")
	fmt.Println("  musicbrainz_token: needed for only_my_tags and enable_ratings")

	os.Exit(0)
	return nil
}

// printUsage displays the help message
func printUsage() {
	fmt.Println("tracktagger - Tag audio files from a MusicBrainz recording")
	fmt.Println()
	fmt.Println("Usage: tracktagger [options] <recording-id> <file-or-dir>...")
	fmt.Println("       tracktagger [options] --batch <file>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose              Show detailed output")
	fmt.Println("  -n, --dry-run              Show tag changes without saving")
	fmt.Println("  -t, --tags                 Write genres from folksonomy tags")
	fmt.Println("  -s, --script <file>        Run a tagger script on each track")
	fmt.Println("  -b, --batch <file>         Read jobs from file: id<TAB>path<TAB>path...")
	fmt.Println("  -c, --config <path>        Path to config file")
	fmt.Println("  -h, --help                 Show this help message")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  --init-config              Create a default config file")
	fmt.Println()
	fmt.Println("Config file locations (checked in order):")
	fmt.Println("  ./tracktagger.yaml")
	fmt.Println("  ~/.config/tracktagger/config.yaml")
	fmt.Println("  ~/.tracktagger.yaml")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Preview the tags a recording would write")
	fmt.Println("  tracktagger -n 5b11f4ce-a62d-471e-81fc-a69a8278c7da song.flac")
	fmt.Println()
	fmt.Println("  # Tag every file in a directory, with genres")
	fmt.Println("  tracktagger -t 5b11f4ce-a62d-471e-81fc-a69a8278c7da ~/Music/single/")
}

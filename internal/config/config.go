package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains the program configuration. Option keys match the tagger
// settings the track logic reads.
type Config struct {
	Verbose bool `yaml:"verbose"`
	DryRun  bool `yaml:"dry_run"`

	// Completeness
	CompletenessIgnoreVideos  bool `yaml:"completeness_ignore_videos"`
	CompletenessIgnorePregap  bool `yaml:"completeness_ignore_pregap"`
	CompletenessIgnoreData    bool `yaml:"completeness_ignore_data"`
	CompletenessIgnoreSilence bool `yaml:"completeness_ignore_silence"`

	// Metadata
	VAName             string `yaml:"va_name"`
	ConvertPunctuation bool   `yaml:"convert_punctuation"`
	TrackARs           bool   `yaml:"track_ars"`
	EnableRatings      bool   `yaml:"enable_ratings"`

	// Folksonomy tags
	FolksonomyTags bool   `yaml:"folksonomy_tags"`
	ArtistsTags    bool   `yaml:"artists_tags"`
	OnlyMyTags     bool   `yaml:"only_my_tags"`
	MaxTags        int    `yaml:"max_tags"`
	MinTagUsage    int    `yaml:"min_tag_usage"`
	IgnoreTags     string `yaml:"ignore_tags"`
	JoinTags       string `yaml:"join_tags"`

	// Scripting
	EnableTaggerScript bool   `yaml:"enable_tagger_script"`
	TaggerScript       string `yaml:"tagger_script"`

	// Remote catalog
	MusicBrainzURL   string  `yaml:"musicbrainz_url"`
	MusicBrainzToken string  `yaml:"musicbrainz_token"`
	RequestRate      float64 `yaml:"request_rate"`

	// Web server
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		VAName:         "Various Artists",
		MaxTags:        5,
		MinTagUsage:    90,
		IgnoreTags:     "seen live,favorites,fixme,owned",
		MusicBrainzURL: "https://musicbrainz.org/ws/2",
		RequestRate:    1,
		ListenAddr:     ":8080",
	}
}

// IgnoredTags returns the lowercased, trimmed entries of IgnoreTags.
func (c *Config) IgnoredTags() []string {
	if c.IgnoreTags == "" {
		return nil
	}
	var tags []string
	for _, s := range strings.Split(c.IgnoreTags, ",") {
		tags = append(tags, strings.ToLower(strings.TrimSpace(s)))
	}
	return tags
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./tracktagger.yaml",
		"./tracktagger.yml",
		filepath.Join(home, ".config", "tracktagger", "config.yaml"),
		filepath.Join(home, ".config", "tracktagger", "config.yml"),
		filepath.Join(home, ".tracktagger.yaml"),
		filepath.Join(home, ".tracktagger.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold an OAuth token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "tracktagger", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "tracktagger", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxTags < 0 {
		return fmt.Errorf("max_tags cannot be negative, got %d", c.MaxTags)
	}
	if c.MinTagUsage < 0 || c.MinTagUsage > 100 {
		return fmt.Errorf("min_tag_usage must be between 0 and 100, got %d", c.MinTagUsage)
	}
	if c.RequestRate <= 0 {
		return fmt.Errorf("request_rate must be positive, got %.2f", c.RequestRate)
	}
	if c.MusicBrainzURL == "" {
		return fmt.Errorf("musicbrainz_url cannot be empty")
	}
	if !strings.HasPrefix(c.MusicBrainzURL, "http://") && !strings.HasPrefix(c.MusicBrainzURL, "https://") {
		return fmt.Errorf("musicbrainz_url must start with http:// or https://")
	}
	if c.OnlyMyTags && c.FolksonomyTags && c.MusicBrainzToken == "" {
		return fmt.Errorf("musicbrainz_token is required when only_my_tags is enabled")
	}
	if c.EnableRatings && c.MusicBrainzToken == "" {
		return fmt.Errorf("musicbrainz_token is required when enable_ratings is enabled")
	}
	return nil
}

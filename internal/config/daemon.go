package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "2s", "500ms", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Plain integers are milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '2s', '500ms', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for telnotifyd.
// Loaded from ~/.config/telnotify/telnotifyd.toml
type DaemonConfig struct {
	Sources    SourcesConfig    `toml:"sources"`
	Dispatcher DispatcherConfig `toml:"dispatcher"`
	Audio      AudioConfig      `toml:"audio"`
	Banners    BannerConfig     `toml:"banners"`
	Indicators IndicatorConfig  `toml:"indicators"`
	Quiet      QuietConfig      `toml:"quiet"`
	State      StateConfig      `toml:"state"`
	Journal    JournalConfig    `toml:"journal"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// SourcesConfig selects where radio events come from.
type SourcesConfig struct {
	Ofono  bool `toml:"ofono"`  // Listen to oFono on the system bus
	Inject bool `toml:"inject"` // Export the injection interface on the session bus

	// Subscriptions reported active when oFono is disabled or unreachable,
	// in slot order.
	Subscriptions []int `toml:"subscriptions"`
}

// DispatcherConfig tunes the event loop.
type DispatcherConfig struct {
	QueueSize int `toml:"queue_size"`
}

// AudioConfig contains tone playback settings.
type AudioConfig struct {
	Enabled       bool     `toml:"enabled"`
	Volume        int      `toml:"volume"`          // 0-100
	MaxToneLength Duration `toml:"max_tone_length"` // 0 = table length
}

// BannerConfig contains transient banner settings.
type BannerConfig struct {
	DisplayInfo Duration `toml:"display_info"` // How long network display text stays up
	Status      Duration `toml:"status"`       // TTY mode and supplementary service banners
}

// IndicatorConfig contains persistent indicator notification settings.
type IndicatorConfig struct {
	AppName string `toml:"app_name"`
	MWIIcon string `toml:"mwi_icon"`
	CFIIcon string `toml:"cfi_icon"`
}

// QuietConfig contains the quiet mode default.
type QuietConfig struct {
	Enabled bool `toml:"enabled"` // Initial state when no shared state exists
}

// StateConfig locates the shared state file.
type StateConfig struct {
	Path string `toml:"path"` // Empty = $XDG_STATE_HOME/telnotify/state.json
}

// JournalConfig controls the event journal.
type JournalConfig struct {
	Enabled    bool     `toml:"enabled"`
	Path       string   `toml:"path"`        // Empty = $XDG_STATE_HOME/telnotify/events.jsonl
	MaxEntries int      `toml:"max_entries"` // Pruned at startup, 0 = unlimited
	MaxAge     Duration `toml:"max_age"`     // Pruned at startup, 0 = unlimited
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Listen string `toml:"listen"` // e.g. "127.0.0.1:9477", empty disables
}

// Limits for validated fields.
const (
	MinQueueSize = 1
	MaxQueueSize = 4096
)

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Sources: SourcesConfig{
			Ofono:         true,
			Inject:        true,
			Subscriptions: []int{1},
		},
		Dispatcher: DispatcherConfig{
			QueueSize: 64,
		},
		Audio: AudioConfig{
			Enabled:       true,
			Volume:        80,
			MaxToneLength: Duration(0),
		},
		Banners: BannerConfig{
			DisplayInfo: Duration(2 * time.Second),
			Status:      Duration(3 * time.Second),
		},
		Indicators: IndicatorConfig{
			AppName: "telnotify",
			MWIIcon: "mail-message-new",
			CFIIcon: "call-start",
		},
		Quiet: QuietConfig{
			Enabled: false,
		},
		Journal: JournalConfig{
			Enabled:    true,
			MaxEntries: 1000,
			MaxAge:     Duration(7 * 24 * time.Hour),
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(ConfigDir(), "telnotifyd.toml")
}

// LoadDaemonConfig loads the daemon configuration from path, or the default
// path when empty. If the file doesn't exist, the defaults are used.
// Environment overrides are applied before validation.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultDaemonConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveDaemonConfig writes cfg to path, or the default path when empty.
func SaveDaemonConfig(cfg *DaemonConfig, path string) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// ApplyEnv overlays TELNOTIFY_* environment variables onto c.
// Malformed values are ignored.
func (c *DaemonConfig) ApplyEnv() {
	c.Sources.Ofono = envBool("OFONO", c.Sources.Ofono)
	c.Sources.Inject = envBool("INJECT", c.Sources.Inject)
	c.Dispatcher.QueueSize = envInt("QUEUE_SIZE", c.Dispatcher.QueueSize)
	c.Audio.Enabled = envBool("AUDIO_ENABLED", c.Audio.Enabled)
	c.Audio.Volume = envInt("AUDIO_VOLUME", c.Audio.Volume)
	c.Audio.MaxToneLength = envDuration("MAX_TONE_LENGTH", c.Audio.MaxToneLength)
	c.Banners.DisplayInfo = envDuration("DISPLAY_INFO_DURATION", c.Banners.DisplayInfo)
	c.Quiet.Enabled = envBool("QUIET", c.Quiet.Enabled)
	c.State.Path = envString("STATE_PATH", c.State.Path)
	c.Journal.Enabled = envBool("JOURNAL", c.Journal.Enabled)
	c.Journal.Path = envString("JOURNAL_PATH", c.Journal.Path)
	c.Metrics.Listen = envString("METRICS_LISTEN", c.Metrics.Listen)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if !c.Sources.Ofono && !c.Sources.Inject {
		return fmt.Errorf("at least one of sources.ofono or sources.inject must be enabled")
	}

	if c.Dispatcher.QueueSize < MinQueueSize || c.Dispatcher.QueueSize > MaxQueueSize {
		return fmt.Errorf("queue_size must be between %d and %d, got %d", MinQueueSize, MaxQueueSize, c.Dispatcher.QueueSize)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Audio.MaxToneLength < 0 {
		return fmt.Errorf("max_tone_length must not be negative")
	}

	if c.Banners.DisplayInfo <= 0 {
		return fmt.Errorf("display_info duration must be positive")
	}
	if c.Banners.Status <= 0 {
		return fmt.Errorf("status duration must be positive")
	}

	if c.Indicators.AppName == "" {
		return fmt.Errorf("indicators.app_name must not be empty")
	}

	if c.Journal.MaxEntries < 0 {
		return fmt.Errorf("journal.max_entries must not be negative")
	}
	if c.Journal.MaxAge < 0 {
		return fmt.Errorf("journal.max_age must not be negative")
	}

	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics.listen %q: %w", c.Metrics.Listen, err)
		}
	}

	return nil
}

// VolumeFraction returns the configured volume as 0.0 to 1.0.
func (c *DaemonConfig) VolumeFraction() float64 {
	return float64(c.Audio.Volume) / 100
}

// GetStatePath returns the shared state path, expanding ~.
func (c *DaemonConfig) GetStatePath() string {
	if c.State.Path == "" {
		return StatePath()
	}
	return expandPath(c.State.Path)
}

// GetJournalPath returns the event journal path, expanding ~.
func (c *DaemonConfig) GetJournalPath() string {
	if c.Journal.Path == "" {
		return JournalPath()
	}
	return expandPath(c.Journal.Path)
}

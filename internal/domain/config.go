package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Store        StoreConfig        `mapstructure:"store"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// EngineConfig contains the download engine policy constants
type EngineConfig struct {
	DestinationDir string        `mapstructure:"destination_dir"`
	MaxRetries     int           `mapstructure:"max_retries"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	InsecureTLS    bool          `mapstructure:"insecure_tls"`
	GeoBypass      bool          `mapstructure:"geo_bypass"`
	AudioCodec     string        `mapstructure:"audio_codec"`
	AudioBitrate   string        `mapstructure:"audio_bitrate"`
	YTDLPBinary    string        `mapstructure:"ytdlp_binary"`
	FFmpegBinary   string        `mapstructure:"ffmpeg_binary"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// StoreConfig contains persistence-related configuration
type StoreConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Engine: EngineConfig{
			DestinationDir: "$HOME/Downloads",
			MaxRetries:     5,
			AttemptTimeout: 30 * time.Second,
			RetryDelay:     2 * time.Second,
			InsecureTLS:    true,
			GeoBypass:      true,
			AudioCodec:     "mp3",
			AudioBitrate:   "192k",
			YTDLPBinary:    "yt-dlp",
			FFmpegBinary:   "ffmpeg",
			UserAgent:      "vidgrab/1.0",
		},
		Store: StoreConfig{
			DatabasePath: "$HOME/.vidgrab/jobs.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

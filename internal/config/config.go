// Package config registers scenecast's settings with viper and exposes them
// as a typed tree.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Output  OutputConfig  `mapstructure:"output"`
	Chunk   ChunkConfig   `mapstructure:"chunk"`
	Workers int           `mapstructure:"workers"`
	Style   StyleConfig   `mapstructure:"style"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Image   ImageConfig   `mapstructure:"image"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Silence SilenceConfig `mapstructure:"silence"`
	Video   VideoConfig   `mapstructure:"video"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

func (o OutputConfig) Images() string { return filepath.Join(o.Dir, "images") }
func (o OutputConfig) Audio() string  { return filepath.Join(o.Dir, "audio") }
func (o OutputConfig) Video() string  { return filepath.Join(o.Dir, "video") }
func (o OutputConfig) Cache() string  { return filepath.Join(o.Dir, ".cache") }

type ChunkConfig struct {
	Seconds        int `mapstructure:"seconds"`
	CharsPerSecond int `mapstructure:"chars_per_second"`
	Budget         int `mapstructure:"budget"`
}

type StyleConfig struct {
	Genre       string `mapstructure:"genre"`
	Language    string `mapstructure:"language"`
	Aspect      string `mapstructure:"aspect"`
	Instruction string `mapstructure:"instruction"`
	Character   string `mapstructure:"character"`
	Title       string `mapstructure:"title"`
	Preset      string `mapstructure:"preset"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type ImageConfig struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	EmptyDelay     time.Duration `mapstructure:"empty_delay"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	Jitter         time.Duration `mapstructure:"jitter"`
	SubmitInterval time.Duration `mapstructure:"submit_interval"`
}

type SupertoneConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type TTSConfig struct {
	Type          string          `mapstructure:"type"`
	Voice         string          `mapstructure:"voice"`
	Language      string          `mapstructure:"language"`
	Speed         float64         `mapstructure:"speed"`
	Pitch         int             `mapstructure:"pitch"`
	MaxChars      int             `mapstructure:"max_chars"`
	Fade          time.Duration   `mapstructure:"fade"`
	Supertone     SupertoneConfig `mapstructure:"supertone"`
	VoiceCacheTTL time.Duration   `mapstructure:"voice_cache_ttl"`
}

type SilenceConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Max       time.Duration `mapstructure:"max"`
	Min       time.Duration `mapstructure:"min"`
	Threshold float64       `mapstructure:"threshold"`
}

type VideoConfig struct {
	FFmpeg       string  `mapstructure:"ffmpeg"`
	FFprobe      string  `mapstructure:"ffprobe"`
	FPS          int     `mapstructure:"fps"`
	MaxCrop      float64 `mapstructure:"max_crop"`
	Bitrate      string  `mapstructure:"bitrate"`
	AudioBitrate string  `mapstructure:"audio_bitrate"`
	Preset       string  `mapstructure:"preset"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	MinWorkers = 1
	MaxWorkers = 10
)

// Init points viper at the config file locations and the environment. A
// .env file in the working directory is loaded first when present.
func Init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env")
	}

	viper.SetConfigName("scenecast")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.scenecast")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("scenecast")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Warn("Failed to read config file")
		}
	}
}

// Load decodes the current viper state. Out of range values are clamped.
func Load() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Workers < MinWorkers {
		cfg.Workers = MinWorkers
	}
	if cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.Chunk.CharsPerSecond <= 0 {
		cfg.Chunk.CharsPerSecond = 8
	}
	if cfg.Video.MaxCrop <= 0 || cfg.Video.MaxCrop > 1 {
		cfg.Video.MaxCrop = 0.85
	}
	return cfg, nil
}

// ConfigureLogging applies log.level and log.format to logrus
func ConfigureLogging(c LogConfig) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}

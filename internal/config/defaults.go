package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers every setting's default value
func SetDefaults() {
	viper.SetDefault("output.dir", "./scenecast_output")

	viper.SetDefault("chunk.seconds", 20)
	viper.SetDefault("chunk.chars_per_second", 8)
	viper.SetDefault("chunk.budget", 0) // 0 derives it from seconds and cps

	viper.SetDefault("workers", 5)

	viper.SetDefault("style.genre", "info")
	viper.SetDefault("style.language", "Korean")
	viper.SetDefault("style.aspect", "16:9")
	viper.SetDefault("style.instruction", "")
	viper.SetDefault("style.character", "")
	viper.SetDefault("style.title", "")
	viper.SetDefault("style.preset", "")

	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.model", "gemini-2.5-pro")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", "")

	viper.SetDefault("image.provider", "gemini")
	viper.SetDefault("image.model", "gemini-3-pro-image-preview")
	viper.SetDefault("image.base_url", "")
	viper.SetDefault("image.max_attempts", 10)
	viper.SetDefault("image.base_delay", 5*time.Second)
	viper.SetDefault("image.empty_delay", 2*time.Second)
	viper.SetDefault("image.rate_limit_delay", 30*time.Second)
	viper.SetDefault("image.jitter", 3*time.Second)
	viper.SetDefault("image.submit_interval", 3*time.Second)

	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "")
	viper.SetDefault("tts.language", "ko")
	viper.SetDefault("tts.speed", 1.0)
	viper.SetDefault("tts.pitch", 0)
	viper.SetDefault("tts.max_chars", 500)
	viper.SetDefault("tts.fade", 30*time.Millisecond)
	viper.SetDefault("tts.supertone.base_url", "https://supertoneapi.com")
	viper.SetDefault("tts.supertone.api_key", "")
	viper.SetDefault("tts.supertone.model", "sona_speech_1")
	viper.SetDefault("tts.voice_cache_ttl", 24*time.Hour)

	viper.SetDefault("silence.enabled", false)
	viper.SetDefault("silence.max", 300*time.Millisecond)
	viper.SetDefault("silence.min", 100*time.Millisecond)
	viper.SetDefault("silence.threshold", -40.0)

	viper.SetDefault("video.ffmpeg", "ffmpeg")
	viper.SetDefault("video.ffprobe", "ffprobe")
	viper.SetDefault("video.fps", 30)
	viper.SetDefault("video.max_crop", 0.85)
	viper.SetDefault("video.bitrate", "8000k")
	viper.SetDefault("video.audio_bitrate", "192k")
	viper.SetDefault("video.preset", "slow")

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

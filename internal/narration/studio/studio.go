// Package studio wires configuration into the generation services and
// implements the command line handlers.
package studio

import (
	"context"
	"fmt"
	"io"
	"scenecast/internal/config"
	"scenecast/internal/domain/run"
	"scenecast/internal/domain/run/store"
	"scenecast/internal/domain/style"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"scenecast/internal/narration/audio"
	"scenecast/internal/narration/image"
	"scenecast/internal/narration/prompt"
	"scenecast/internal/narration/script"
	"scenecast/internal/narration/tts"
	"scenecast/internal/narration/video"
	"scenecast/internal/pipeline"
	"scenecast/internal/retry"
	"scenecast/internal/text/chunk"
	"strings"

	"github.com/sirupsen/logrus"
)

// Studio is the scenecast application: one output directory, its saved run
// and the services that generate it
type Studio struct {
	cfg    config.Config
	store  *store.Store
	source *script.Source

	ctx    context.Context
	Cancel context.CancelFunc

	closers []io.Closer
}

func NewStudio(cfg config.Config) *Studio {
	ctx, cancel := context.WithCancel(context.Background())
	return &Studio{
		cfg:    cfg,
		store:  store.New(cfg.Output.Dir),
		source: script.NewSource(),
		ctx:    ctx,
		Cancel: cancel,
	}
}

// Reconfigure swaps in cfg, typically after command line flags were parsed
func (s *Studio) Reconfigure(cfg config.Config) {
	if cfg.Output.Dir != s.cfg.Output.Dir {
		s.store = store.New(cfg.Output.Dir)
	}
	s.cfg = cfg
}

// Close cancels outstanding work and releases provider clients
func (s *Studio) Close() {
	s.Cancel()
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logrus.WithError(err).Debug("Failed to close client")
		}
	}
	s.closers = nil
}

// Directives builds the run style from config, overlaid with the preset file
// when one is set
func (s *Studio) Directives() (style.Directives, error) {
	d := style.Defaults()
	sc := s.cfg.Style

	genre, err := style.ParseGenreMode(sc.Genre)
	if err != nil {
		return d, err
	}
	aspect, err := style.ParseAspectRatio(sc.Aspect)
	if err != nil {
		return d, err
	}
	d.Genre = genre
	d.Aspect = aspect
	d.Language = style.ParseLanguage(sc.Language)
	if strings.TrimSpace(sc.Instruction) != "" {
		d.Instruction = sc.Instruction
	}
	d.Character = sc.Character
	d.Title = sc.Title

	if sc.Preset != "" {
		return style.LoadPreset(sc.Preset, d)
	}
	return d, nil
}

// Budget is the character budget per scene
func (s *Studio) Budget() int {
	if s.cfg.Chunk.Budget > 0 {
		return s.cfg.Chunk.Budget
	}
	return chunk.BudgetFor(s.cfg.Chunk.Seconds, s.cfg.Chunk.CharsPerSecond)
}

// NewRun chunks the narration at location into a fresh run and saves it,
// replacing any previous run in the output directory
func (s *Studio) NewRun(ctx context.Context, location, title string) (*run.Run, error) {
	text, err := s.source.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	d, err := s.Directives()
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = d.Title
	}

	r, err := run.New(title, text, s.Budget(), d)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(r); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"run":    r.ID,
		"scenes": len(r.Scenes),
		"budget": r.Budget,
	}).Info("Run created")
	return r, nil
}

// LoadRun reads the saved run of the output directory
func (s *Studio) LoadRun() (*run.Run, error) {
	if !s.store.Exists() {
		return nil, fmt.Errorf("no run in %s, start one with: scenecast run <narration>", s.cfg.Output.Dir)
	}
	return s.store.Load()
}

// Orchestrator builds the pipeline for r. Services that cannot be created
// are replaced by stand-ins failing their stage with the reason, so the
// stages that do work remain usable.
func (s *Studio) Orchestrator(ctx context.Context, r *run.Run) *pipeline.Orchestrator {
	opts := pipeline.Options{
		Workers:        s.cfg.Workers,
		SubmitInterval: s.cfg.Image.SubmitInterval,
		Dirs: pipeline.OutputDirs{
			Images: s.cfg.Output.Images(),
			Audio:  s.cfg.Output.Audio(),
			Video:  s.cfg.Output.Video(),
		},
	}
	if sc := s.cfg.Silence; sc.Enabled {
		opts.Silence = &audio.Params{Max: sc.Max, MinSilence: sc.Min, Threshold: sc.Threshold}
	}

	return pipeline.New(r, s.Services(ctx), opts)
}

// Services creates every stage collaborator from config
func (s *Studio) Services(ctx context.Context) pipeline.Services {
	services := pipeline.Services{Store: s.store}

	gen, err := s.TextGenerator(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Text model unavailable, prompts will fail")
		gen = failingGenerator(failure.New(failure.Permanent, "llm", err))
	}
	services.Prompts = prompt.NewGenerator(gen, prompt.DefaultDenylist)

	if svc, err := s.ImageService(ctx); err != nil {
		logrus.WithError(err).Warn("Image service unavailable")
		services.Images = missingImages{failure.New(failure.Permanent, "image", err)}
	} else {
		services.Images = image.NewGenerator(svc, s.imagePolicy())
	}

	if engine, err := s.Engine(ctx); err != nil {
		logrus.WithError(err).Warn("Speech engine unavailable")
		services.Speech = missingSpeech{failure.New(failure.Permanent, "tts", err)}
	} else {
		services.Speech = tts.NewSynthesizer(engine, s.cfg.Output.Audio(), s.ttsConfig())
	}

	if renderer, err := s.Renderer(); err != nil {
		logrus.WithError(err).Warn("Video renderer unavailable")
		services.Renderer = missingRenderer{failure.New(failure.Permanent, "video.render", err)}
	} else {
		services.Renderer = renderer
	}

	if merger, err := s.Merger(); err != nil {
		logrus.WithError(err).Warn("Video merger unavailable")
		services.Merger = missingMerger{failure.New(failure.Permanent, "video.merge", err)}
	} else {
		services.Merger = merger
	}
	return services
}

// TextGenerator builds the configured text model client
func (s *Studio) TextGenerator(ctx context.Context) (llm.TextGenerator, error) {
	gen, err := llm.NewTextGenerator(ctx, llm.Config{
		Provider: llm.Provider(s.cfg.LLM.Provider),
		Model:    s.cfg.LLM.Model,
		APIKey:   s.cfg.LLM.APIKey,
		BaseURL:  s.cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	if c, ok := gen.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	return gen, nil
}

// ImageService builds the configured image provider
func (s *Studio) ImageService(ctx context.Context) (image.Service, error) {
	ic := s.cfg.Image
	switch ic.Provider {
	case "pollinations":
		model := ic.Model
		if strings.HasPrefix(model, "gemini") {
			model = ""
		}
		return image.NewPollinationsService(ic.BaseURL, model), nil
	case "gemini", "":
		if strings.TrimSpace(s.cfg.LLM.APIKey) == "" {
			return nil, fmt.Errorf("gemini image generation needs llm.api_key")
		}
		svc, err := image.NewGeminiService(ctx, s.cfg.LLM.APIKey, ic.Model)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, svc)
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", ic.Provider)
	}
}

func (s *Studio) imagePolicy() *retry.Policy {
	ic := s.cfg.Image
	policy := image.DefaultPolicy()
	if ic.MaxAttempts > 0 {
		policy.MaxAttempts = ic.MaxAttempts
	}
	if ic.BaseDelay > 0 {
		policy.BaseDelay = ic.BaseDelay
	}
	if ic.EmptyDelay > 0 {
		policy.EmptyDelay = ic.EmptyDelay
	}
	if ic.RateLimitDelay > 0 {
		policy.RateLimitDelay = ic.RateLimitDelay
	}
	if ic.Jitter >= 0 {
		policy.Jitter = ic.Jitter
	}
	return policy
}

func (s *Studio) ttsConfig() tts.Config {
	tc := s.cfg.TTS
	return tts.Config{
		Type:     tc.Type,
		Voice:    tc.Voice,
		Language: tc.Language,
		Speed:    tc.Speed,
		Pitch:    tc.Pitch,
		MaxChars: tc.MaxChars,
		Fade:     tc.Fade,
		Supertone: tts.SupertoneConfig{
			BaseURL: tc.Supertone.BaseURL,
			APIKey:  tc.Supertone.APIKey,
			Model:   tc.Supertone.Model,
		},
		CacheDir:      s.cfg.Output.Cache(),
		VoiceCacheTTL: tc.VoiceCacheTTL,
	}
}

// Engine builds the configured speech engine
func (s *Studio) Engine(ctx context.Context) (tts.Engine, error) {
	engine, err := tts.NewEngine(ctx, s.ttsConfig())
	if err != nil {
		return nil, err
	}
	if c, ok := engine.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	return engine, nil
}

// VoiceCatalog lists the voices of the configured engine through the cache
func (s *Studio) VoiceCatalog(ctx context.Context) (*tts.VoiceCatalog, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.ttsConfig()
	return tts.NewVoiceCatalog(engine, tts.Resolve(cfg).String(), cfg.CacheDir, cfg.VoiceCacheTTL), nil
}

func (s *Studio) encoding() video.Encoding {
	vc := s.cfg.Video
	enc := video.DefaultEncoding()
	if vc.FPS > 0 {
		enc.FPS = vc.FPS
	}
	if vc.Bitrate != "" {
		enc.Bitrate = vc.Bitrate
	}
	if vc.AudioBitrate != "" {
		enc.AudioBitrate = vc.AudioBitrate
	}
	if vc.Preset != "" {
		enc.Preset = vc.Preset
	}
	return enc
}

// Renderer builds the scene renderer around the configured ffmpeg
func (s *Studio) Renderer() (*video.Renderer, error) {
	renderer, err := video.NewRenderer(s.cfg.Video.FFmpeg, s.encoding())
	if err != nil {
		return nil, err
	}
	if s.cfg.Video.MaxCrop > 0 {
		renderer.MaxCrop = s.cfg.Video.MaxCrop
	}
	return renderer, nil
}

// Merger builds the clip merger around the configured ffmpeg and ffprobe
func (s *Studio) Merger() (*video.Merger, error) {
	return video.NewMerger(s.cfg.Video.FFmpeg, s.cfg.Video.FFprobe, s.encoding())
}

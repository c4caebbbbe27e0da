package tts

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"scenecast/internal/failure"
	"scenecast/internal/proc"
	"strconv"
	"strings"
)

// renderToFile runs a command that writes a WAV to the path it is given and
// returns the file contents
func renderToFile(ctx context.Context, op string, build func(out string) *exec.Cmd) ([]byte, error) {
	dir, err := os.MkdirTemp("", "scenecast-tts-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "speech.wav")
	if err := proc.Run(build(out)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.New(failure.Permanent, op, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s output: %w", op, err)
	}
	if len(data) == 0 {
		return nil, failure.Newf(failure.Empty, op, "no audio produced")
	}
	return data, nil
}

// ESpeakEngine renders speech with eSpeak or eSpeak-NG
type ESpeakEngine struct {
	path string
}

func NewESpeakEngine() (*ESpeakEngine, error) {
	path, err := proc.Find("espeak-ng", "espeak")
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}
	return &ESpeakEngine{path: path}, nil
}

func (e *ESpeakEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return renderToFile(ctx, "espeak", func(out string) *exec.Cmd {
		args := []string{"-w", out}
		voice := req.Voice
		if voice == "" || voice == "default" {
			voice = req.Language
		}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		// words per minute, default 175
		args = append(args, "-s", strconv.Itoa(int(175*speedOrOne(req.Speed))))
		if req.Pitch != 0 {
			// 0-99, default 50
			args = append(args, "-p", strconv.Itoa(clamp(50+req.Pitch*5, 0, 99)))
		}
		args = append(args, "--", req.Text)
		return proc.Command(ctx, e.path, args...)
	})
}

// ListVoices parses the `espeak --voices` table
func (e *ESpeakEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	out, err := proc.Command(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list eSpeak voices: %w", err)
	}

	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		gender := strings.TrimPrefix(fields[2], "--/")
		voices = append(voices, Voice{
			ID:        fields[1],
			Name:      fields[3],
			Languages: []string{fields[1]},
			Gender:    strings.ToLower(gender),
		})
	}
	return voices, nil
}

// SayEngine uses the macOS say command
type SayEngine struct {
	path string
}

func NewSayEngine() (*SayEngine, error) {
	path, err := proc.Find("say")
	if err != nil {
		return nil, err
	}
	return &SayEngine{path: path}, nil
}

func (s *SayEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return renderToFile(ctx, "say", func(out string) *exec.Cmd {
		args := []string{"-o", out, "--file-format=WAVE", "--data-format=LEI16@22050"}
		if req.Voice != "" && req.Voice != "default" {
			args = append(args, "-v", req.Voice)
		}
		args = append(args, "-r", fmt.Sprintf("%.0f", 175*speedOrOne(req.Speed)))
		args = append(args, "--", req.Text)
		return proc.Command(ctx, s.path, args...)
	})
}

// ListVoices parses `say -v ?`, whose lines look like
// "Yuna                ko_KR    # 안녕하세요. 제 이름은 유나입니다."
func (s *SayEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	out, err := proc.Command(ctx, s.path, "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list say voices: %w", err)
	}

	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, Voice{
			ID:        name,
			Name:      name,
			Languages: []string{strings.ReplaceAll(lang, "_", "-")},
		})
	}
	return voices, nil
}

// SAPIEngine drives System.Speech through PowerShell
type SAPIEngine struct {
	path string
}

const sapiScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
if ($env:SCENECAST_VOICE) { $synth.SelectVoice($env:SCENECAST_VOICE) }
$synth.Rate = [int]$env:SCENECAST_RATE;
$synth.SetOutputToWaveFile($env:SCENECAST_OUT);
$synth.Speak($env:SCENECAST_TEXT);
$synth.Dispose()`

const sapiVoicesScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.GetInstalledVoices() | ForEach-Object { $i = $_.VoiceInfo; "$($i.Name)|$($i.Culture.Name)|$($i.Gender)" }`

func NewSAPIEngine() (*SAPIEngine, error) {
	path, err := proc.Find("powershell", "pwsh")
	if err != nil {
		return nil, err
	}
	return &SAPIEngine{path: path}, nil
}

func (s *SAPIEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return renderToFile(ctx, "sapi", func(out string) *exec.Cmd {
		cmd := proc.Command(ctx, s.path, "-NoProfile", "-Command", sapiScript)
		voice := req.Voice
		if voice == "default" {
			voice = ""
		}
		// SAPI rate runs from -10 to 10
		rate := clamp(int(speedOrOne(req.Speed)*10)-10, -10, 10)
		cmd.Env = append(os.Environ(),
			"SCENECAST_TEXT="+req.Text,
			"SCENECAST_OUT="+out,
			"SCENECAST_VOICE="+voice,
			"SCENECAST_RATE="+strconv.Itoa(rate),
		)
		return cmd
	})
}

func (s *SAPIEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	out, err := proc.Command(ctx, s.path, "-NoProfile", "-Command", sapiVoicesScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list SAPI voices: %w", err)
	}

	var voices []Voice
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) != 3 {
			continue
		}
		voices = append(voices, Voice{
			ID:        parts[0],
			Name:      parts[0],
			Languages: []string{parts[1]},
			Gender:    strings.ToLower(parts[2]),
		})
	}
	return voices, nil
}

func speedOrOne(speed float64) float64 {
	if speed <= 0 {
		return 1
	}
	return speed
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

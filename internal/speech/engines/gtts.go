package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/speech"
	"golang.org/x/time/rate"
)

// GTTSSampleRate is the rate ffmpeg converts Google's MP3 output to.
const GTTSSampleRate = 22050

// GTTSConfig configures the Google TTS engine.
type GTTSConfig struct {
	Slow              bool
	RequestsPerMinute int
	Timeout           time.Duration
}

// GTTS synthesizes speech with gtts-cli and converts the MP3 to PCM with
// ffmpeg. Requests are rate limited to avoid being blocked by Google.
type GTTS struct {
	gttsBinary   string
	ffmpegBinary string
	slow         bool
	timeout      time.Duration
	limiter      *rate.Limiter
}

// NewGTTS detects gtts-cli and ffmpeg.
func NewGTTS(cfg GTTSConfig) (*GTTS, error) {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	gttsBinary, err := exec.LookPath("gtts-cli")
	if err != nil {
		return nil, fmt.Errorf("gtts-cli not found, install with: pip install gtts: %w", speech.ErrUnavailable)
	}
	ffmpegBinary, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found, install with your package manager: %w", speech.ErrUnavailable)
	}

	log.Info("Google TTS engine initialized", "gtts", gttsBinary, "ffmpeg", ffmpegBinary)

	return &GTTS{
		gttsBinary:   gttsBinary,
		ffmpegBinary: ffmpegBinary,
		slow:         cfg.Slow,
		timeout:      cfg.Timeout,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Name returns the engine name.
func (e *GTTS) Name() string { return NameGTTS }

// Synthesize speaks text in the locale's base language.
func (e *GTTS) Synthesize(ctx context.Context, text, locale string) (*speech.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gtts rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	mp3, err := os.CreateTemp("", "callboard-gtts-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	_ = mp3.Close()
	defer func() { _ = os.Remove(mp3.Name()) }()

	args := gttsArgs(text, mp3.Name(), locale, e.slow)
	cmd := exec.CommandContext(ctx, e.gttsBinary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("gtts-cli timed out (network issue?)")
		}
		return nil, fmt.Errorf("gtts-cli failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	ffmpeg := exec.CommandContext(ctx, e.ffmpegBinary, //nolint:gosec
		"-loglevel", "error",
		"-i", mp3.Name(),
		"-f", "s16le",
		"-ar", fmt.Sprint(GTTSSampleRate),
		"-ac", "1",
		"-",
	)
	var pcm bytes.Buffer
	stderr.Reset()
	ffmpeg.Stdout = &pcm
	ffmpeg.Stderr = &stderr
	if err := ffmpeg.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return &speech.Audio{PCM: pcm.Bytes(), SampleRate: GTTSSampleRate, Channels: 1}, nil
}

func gttsArgs(text, output, locale string, slow bool) []string {
	args := []string{text, "--output", output, "--lang", baseLanguage(locale)}
	if slow {
		args = append(args, "--slow")
	}
	return args
}

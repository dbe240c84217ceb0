package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/speech"
)

// Audio format constants for Piper
const (
	// PiperSampleRate is used when the model config does not name a rate.
	PiperSampleRate = 22050
	// DefaultSpeed is the normal speaking speed
	DefaultSpeed = 1.0
	// MinSpeed is the minimum speaking speed
	MinSpeed = 0.5
	// MaxSpeed is the maximum speaking speed
	MaxSpeed = 2.0
)

// PiperError represents Piper-specific errors
type PiperError struct {
	Type    string
	Message string
	Cause   error
}

func (e *PiperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("piper %s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("piper %s: %s", e.Type, e.Message)
}

func (e *PiperError) Unwrap() error {
	return e.Cause
}

// Piper runs the local piper binary for every utterance.
type Piper struct {
	binaryPath string
	modelPath  string
	configPath string
	sampleRate int
	language   string // model language, e.g. "pt" from "pt_BR"; empty when unknown
	speed      float64
	timeout    time.Duration

	mismatchWarned atomic.Bool
}

// NewPiper locates the piper binary (PATH and common locations when binary
// is empty) and loads the ONNX voice model.
func NewPiper(binary, model string) (*Piper, error) {
	e := &Piper{
		speed:      DefaultSpeed,
		sampleRate: PiperSampleRate,
		timeout:    30 * time.Second,
	}

	if err := e.findBinary(binary); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, &PiperError{
			Type:    "model",
			Message: "no voice model configured (set tts.piper.model)",
			Cause:   speech.ErrUnavailable,
		}
	}
	if err := e.SetModel(model); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Piper) findBinary(binary string) error {
	if binary == "" {
		binary = "piper"
	}
	if path, err := exec.LookPath(binary); err == nil {
		e.binaryPath = path
		return nil
	}

	home := os.Getenv("HOME")
	commonPaths := []string{
		"/usr/local/bin/piper",
		"/usr/bin/piper",
		"/opt/piper/piper",
		filepath.Join(home, ".local/bin/piper"),
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			e.binaryPath = path
			return nil
		}
	}

	return &PiperError{
		Type:    "dependency",
		Message: "piper binary not found. Please install piper TTS: https://github.com/rhasspy/piper",
		Cause:   speech.ErrUnavailable,
	}
}

// SetModel selects the ONNX voice model. The accompanying .onnx.json config,
// when present, supplies the output sample rate.
func (e *Piper) SetModel(modelPath string) error {
	if !strings.HasSuffix(modelPath, ".onnx") {
		return &PiperError{
			Type:    "model",
			Message: "model file must be an ONNX file (.onnx extension)",
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return &PiperError{
			Type:    "model",
			Message: fmt.Sprintf("model file not found: %s", modelPath),
			Cause:   err,
		}
	}

	e.modelPath = modelPath
	e.configPath = ""
	e.sampleRate = PiperSampleRate
	e.language = ""

	configPath := modelPath + ".json"
	if data, err := os.ReadFile(configPath); err == nil {
		e.configPath = configPath
		var cfg struct {
			Audio struct {
				SampleRate int `json:"sample_rate"`
			} `json:"audio"`
			Language struct {
				Code string `json:"code"`
			} `json:"language"`
		}
		if json.Unmarshal(data, &cfg) == nil {
			if cfg.Audio.SampleRate > 0 {
				e.sampleRate = cfg.Audio.SampleRate
			}
			if cfg.Language.Code != "" {
				e.language = baseLanguage(strings.ReplaceAll(cfg.Language.Code, "_", "-"))
			}
		}
	}
	return nil
}

// languageMismatch reports whether locale names a language other than the
// model's. Unknown model languages and empty locales never mismatch.
func (e *Piper) languageMismatch(locale string) bool {
	if e.language == "" || locale == "" {
		return false
	}
	return baseLanguage(locale) != e.language
}

// SetSpeed sets the speaking speed
func (e *Piper) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return &PiperError{
			Type:    "parameter",
			Message: fmt.Sprintf("speed must be between %.1f and %.1f", MinSpeed, MaxSpeed),
		}
	}
	e.speed = speed
	return nil
}

// SetTimeout sets the synthesis timeout duration
func (e *Piper) SetTimeout(timeout time.Duration) {
	e.timeout = timeout
}

// Name returns the engine name.
func (e *Piper) Name() string { return NamePiper }

// Synthesize pipes text through piper and returns raw PCM. The voice is
// fixed by the model: a locale in another language is spoken with the
// model's voice anyway, and a warning is logged once.
func (e *Piper) Synthesize(ctx context.Context, text, locale string) (*speech.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return &speech.Audio{SampleRate: e.sampleRate, Channels: 1}, nil
	}
	if e.languageMismatch(locale) && e.mismatchWarned.CompareAndSwap(false, true) {
		log.Warn("piper model language differs from the announcement locale",
			"model", filepath.Base(e.modelPath), "model_language", e.language, "locale", locale)
	}

	args := []string{"--model", e.modelPath, "--output-raw"}
	if e.configPath != "" {
		args = append(args, "--config", e.configPath)
	}
	// Speed 2.0 = length_scale 0.5 (faster)
	if e.speed != DefaultSpeed {
		args = append(args, "--length-scale", fmt.Sprintf("%.2f", 1.0/e.speed))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binaryPath, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &PiperError{Type: "process", Message: "failed to create stdout pipe", Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &PiperError{Type: "process", Message: "failed to start piper process", Cause: err}
	}

	var audio bytes.Buffer
	if _, err := io.Copy(&audio, stdout); err != nil {
		_ = cmd.Wait()
		return nil, &PiperError{Type: "synthesis", Message: "failed to read audio data", Cause: err}
	}

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &PiperError{
				Type:    "timeout",
				Message: fmt.Sprintf("synthesis timed out after %v", e.timeout),
				Cause:   err,
			}
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, &PiperError{Type: "synthesis", Message: msg, Cause: err}
		}
		return nil, &PiperError{Type: "synthesis", Message: "synthesis failed", Cause: err}
	}

	pcm := audio.Bytes()
	if len(pcm) == 0 {
		return nil, &PiperError{Type: "synthesis", Message: "no audio data generated"}
	}
	// 16-bit samples need an even byte count.
	if len(pcm)%2 != 0 {
		pcm = append(pcm, 0)
	}

	return &speech.Audio{PCM: pcm, SampleRate: e.sampleRate, Channels: 1}, nil
}

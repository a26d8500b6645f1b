// Package audio implements the platform playback backend: pre-rendered
// audio is piped to an ffplay subprocess, text is synthesized through an
// HTTP TTS endpoint and then played the same way.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/debate-arena/client-go/pkg/playback"
	"github.com/debate-arena/client-go/pkg/voice"
)

// Options configures a Backend.
type Options struct {
	// FFPlayPath overrides the ffplay binary; defaults to "ffplay" on PATH.
	FFPlayPath string
	// NoSpeaker disables audio output entirely; everything degrades to logs.
	NoSpeaker bool
	// TTS synthesizes text. When nil, text items are logged instead.
	TTS    *Synthesizer
	Logger *slog.Logger
}

// Backend renders through an ffplay subprocess, one process per utterance.
// It satisfies the playback.Backend interface.
type Backend struct {
	ffplayPath string
	noSpeaker  bool
	tts        *Synthesizer
	logger     *slog.Logger
}

// NewBackend builds the platform backend.
func NewBackend(opts Options) *Backend {
	if strings.TrimSpace(opts.FFPlayPath) == "" {
		opts.FFPlayPath = "ffplay"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Backend{
		ffplayPath: opts.FFPlayPath,
		noSpeaker:  opts.NoSpeaker,
		tts:        opts.TTS,
		logger:     opts.Logger,
	}
}

// Decode validates a pre-rendered payload. Container parsing is left to
// ffplay, which handles wav/mp3/raw input itself.
func (b *Backend) Decode(_ context.Context, data []byte) (playback.AudioBuffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio: empty payload")
	}
	return playback.AudioBuffer(data), nil
}

// Play pipes the buffer through one ffplay invocation and blocks until it
// exits or ctx is cancelled.
func (b *Backend) Play(ctx context.Context, buf playback.AudioBuffer, gain float64) error {
	if len(buf) == 0 {
		return nil
	}
	if b.noSpeaker {
		b.logger.Info("speaker disabled, dropping audio", "bytes", len(buf))
		return nil
	}

	volume := int(gain * 100)
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-autoexit",
		"-nodisp",
		"-volume", fmt.Sprintf("%d", volume),
		"-i", "-",
	}
	cmd := exec.CommandContext(ctx, b.ffplayPath, args...)
	cmd.Stdin = bytes.NewReader(buf)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		// SDL can pick a silent dummy audio backend on macOS; prefer CoreAudio.
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio: ffplay: %w", err)
	}
	return nil
}

// Synthesize renders text with the assigned voice, then plays the result.
// Without a TTS endpoint the text is logged instead of spoken.
func (b *Backend) Synthesize(ctx context.Context, text string, v voice.Handle, gain float64) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if b.tts == nil || b.noSpeaker {
		b.logger.Info("speech", "voice", v.VoiceID, "text", text)
		return nil
	}
	audio, err := b.tts.Synthesize(ctx, text, v)
	if err != nil {
		return err
	}
	return b.Play(ctx, playback.AudioBuffer(audio), gain)
}

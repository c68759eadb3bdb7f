package localgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SAZZAD-404/vidpilot/pkg/audio"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

// ErrNoSynthesizer is returned by [LocalSpeaker.Speak] when no supported
// speech synthesizer is installed.
var ErrNoSynthesizer = errors.New("localgen: no local speech synthesizer found")

var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

// baseWPM is the default speaking rate of espeak and say.
const baseWPM = 175

// synthesizers are tried in order.
var synthesizers = []string{"espeak-ng", "espeak", "say"}

// Speaker renders a script locally.
type Speaker interface {
	Speak(ctx context.Context, script string, profile voice.Profile) (content.Audio, error)
}

// LocalSpeaker renders speech with the platform synthesizer and returns it
// as 16-bit WAV in [audio.VoiceFormat].
type LocalSpeaker struct {
	// Binary overrides synthesizer discovery when set.
	Binary string
	// TempDir is where intermediate files are written. Empty means the
	// system default.
	TempDir string
}

var _ Speaker = (*LocalSpeaker)(nil)

// Available reports the synthesizer that would be used, or "" when none is
// installed.
func (s *LocalSpeaker) Available() string {
	bin, err := s.binary()
	if err != nil {
		return ""
	}
	return bin
}

func (s *LocalSpeaker) binary() (string, error) {
	if s.Binary != "" {
		return lookPath(s.Binary)
	}
	for _, name := range synthesizers {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoSynthesizer
}

// Speak implements [Speaker].
func (s *LocalSpeaker) Speak(ctx context.Context, script string, profile voice.Profile) (content.Audio, error) {
	if strings.TrimSpace(script) == "" {
		return content.Audio{}, fmt.Errorf("localgen: speak: empty script")
	}
	bin, err := s.binary()
	if err != nil {
		return content.Audio{}, err
	}

	dir, err := os.MkdirTemp(s.TempDir, "vidpilot-tts-")
	if err != nil {
		return content.Audio{}, fmt.Errorf("localgen: speak: %w", err)
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, "script.txt")
	outPath := filepath.Join(dir, "speech.wav")
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return content.Audio{}, fmt.Errorf("localgen: speak: %w", err)
	}

	cmd := commandContext(ctx, bin, synthArgs(filepath.Base(bin), scriptPath, outPath, profile)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return content.Audio{}, fmt.Errorf("localgen: %s: %w: %s", filepath.Base(bin), err, strings.TrimSpace(string(output)))
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return content.Audio{}, fmt.Errorf("localgen: read recording: %w", err)
	}
	pcm, err := audio.DecodeWAV(raw)
	if err != nil {
		return content.Audio{}, fmt.Errorf("localgen: decode recording: %w", err)
	}
	if pcm.Frames() == 0 {
		return content.Audio{}, fmt.Errorf("localgen: recording is empty")
	}
	pcm = audio.Convert(pcm, audio.VoiceFormat)
	return content.Audio{Data: audio.EncodeWAV(pcm), MIMEType: "audio/wav"}, nil
}

func synthArgs(name, scriptPath, outPath string, profile voice.Profile) []string {
	speed := profile.Speed
	if speed <= 0 {
		speed = 1
	}
	wpm := strconv.Itoa(int(baseWPM * speed))

	if name == "say" {
		args := []string{"-f", scriptPath, "-o", outPath, "--data-format=LEI16@22050", "-r", wpm}
		if profile.ID != "" {
			args = append(args, "-v", profile.ID)
		}
		return args
	}

	v := profile.ID
	if v == "" {
		lang := profile.Language
		if lang == "" {
			lang = "en"
		}
		variant := "+f3"
		if profile.Gender == voice.GenderMale {
			variant = "+m3"
		}
		v = lang + variant
	}
	return []string{"-f", scriptPath, "-w", outPath, "-s", wpm, "-v", v}
}

// Placeholder returns a tone waveform WAV whose length follows the
// estimated read-aloud time of script.
func Placeholder(script string) content.Audio {
	pcm := audio.Placeholder(content.EstimateDuration(script))
	return content.Audio{Data: audio.EncodeWAV(pcm), MIMEType: "audio/wav"}
}

package audio

import (
	"math"
	"time"
)

// Placeholder returns a quiet, speech-paced tone of length d in
// [VoiceFormat]. It is used when no synthesizer can render a script so the
// caller still receives playable audio of the expected duration.
//
// The waveform alternates 300 ms syllable-like pulses and short gaps; each
// pulse is a 220 Hz sine with a Hann envelope so there are no clicks.
func Placeholder(d time.Duration) PCM {
	if d < time.Second {
		d = time.Second
	}
	const (
		freq      = 220.0
		amplitude = 0.2 * math.MaxInt16
		pulse     = 0.3
		gap       = 0.12
	)
	rate := VoiceFormat.SampleRate
	frames := int(d.Seconds() * float64(rate))
	data := make([]byte, frames*2)
	period := pulse + gap
	for i := range frames {
		t := float64(i) / float64(rate)
		phase := math.Mod(t, period)
		if phase >= pulse {
			continue
		}
		env := 0.5 * (1 - math.Cos(2*math.Pi*phase/pulse))
		v := amplitude * env * math.Sin(2*math.Pi*freq*t)
		putSample(data, i, int16(v))
	}
	return PCM{Data: data, Format: VoiceFormat}
}

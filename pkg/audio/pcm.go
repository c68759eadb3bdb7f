// Package audio holds the small amount of signal handling VidPilot needs for
// voice-overs: 16-bit PCM conversion, WAV encoding and decoding, the
// placeholder tone used when no synthesizer is available, and MIME sniffing
// of provider payloads.
package audio

import (
	"encoding/binary"
	"fmt"
)

// Format describes the sample rate and channel count of PCM data.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// VoiceFormat is the format of every locally produced voice-over.
var VoiceFormat = Format{SampleRate: 22050, Channels: 1}

// PCM is little-endian signed 16-bit interleaved audio.
type PCM struct {
	Data []byte
	Format
}

// Frames returns the number of sample frames in p.
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Data) / (2 * p.Channels)
}

// Duration returns the playing time of p in seconds.
func (p PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// Convert returns p in the target format. Resampling happens first so that a
// stereo-to-mono conversion does not resample twice the data. A trailing odd
// byte is dropped.
func Convert(p PCM, target Format) PCM {
	data := p.Data
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	if p.Format == target {
		return PCM{Data: data, Format: target}
	}
	channels := p.Channels
	if p.SampleRate != target.SampleRate {
		data = Resample16(data, channels, p.SampleRate, target.SampleRate)
	}
	switch {
	case channels == 1 && target.Channels == 2:
		data = MonoToStereo(data)
	case channels == 2 && target.Channels == 1:
		data = StereoToMono(data)
	}
	return PCM{Data: data, Format: target}
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
}

func putSample(pcm []byte, i int, s int16) {
	binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
}

func clamp16(v int32) int16 {
	return int16(min(max(v, -32768), 32767))
}

// MonoToStereo duplicates each mono sample into an L+R pair.
func MonoToStereo(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n*4)
	for i := range n {
		s := sampleAt(pcm, i)
		putSample(out, 2*i, s)
		putSample(out, 2*i+1, s)
	}
	return out
}

// StereoToMono averages L and R of each frame.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int32(sampleAt(pcm, 2*i))
		r := int32(sampleAt(pcm, 2*i+1))
		putSample(out, i, clamp16((l+r)/2))
	}
	return out
}

// Resample16 converts interleaved 16-bit PCM with the given channel count
// from srcRate to dstRate using linear interpolation. Invalid rates or equal
// rates return the input unchanged.
func Resample16(pcm []byte, channels, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || channels <= 0 || srcRate == dstRate {
		return pcm
	}
	srcFrames := len(pcm) / (2 * channels)
	if srcFrames == 0 {
		return pcm
	}
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	out := make([]byte, dstFrames*2*channels)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstFrames {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, srcFrames-1)
		for c := range channels {
			s0 := float64(sampleAt(pcm, idx*channels+c))
			s1 := float64(sampleAt(pcm, next*channels+c))
			putSample(out, i*channels+c, int16(s0*(1-frac)+s1*frac))
		}
	}
	return out
}

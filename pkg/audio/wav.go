package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned by [DecodeWAV] for data that is not a 16-bit PCM
// RIFF/WAVE file.
var ErrNotWAV = errors.New("audio: not a 16-bit PCM WAV file")

const wavHeaderSize = 44

// EncodeWAV wraps p in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(p PCM) []byte {
	data := p.Data
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	blockAlign := p.Channels * 2
	byteRate := p.SampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(data))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(p.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(p.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// DecodeWAV parses a RIFF/WAVE file holding 16-bit PCM. Unknown chunks are
// skipped. Synthesizers that stream to a pipe write 0 or 0xFFFFFFFF as the
// data size; in that case the rest of the file is taken as sample data.
func DecodeWAV(b []byte) (PCM, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return PCM{}, ErrNotWAV
	}
	var (
		p      PCM
		gotFmt bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return PCM{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			if binary.LittleEndian.Uint16(b[body:]) != 1 || binary.LittleEndian.Uint16(b[body+14:]) != 16 {
				return PCM{}, fmt.Errorf("%w: unsupported encoding", ErrNotWAV)
			}
			p.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			p.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			gotFmt = true
		case "data":
			if !gotFmt {
				return PCM{}, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			end := body + size
			if size == 0 || end > len(b) || end < body {
				end = len(b)
			}
			p.Data = b[body:end]
			return p, nil
		}
		off = body + size + size%2
	}
	return PCM{}, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
}

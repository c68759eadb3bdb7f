package audio

import (
	"bytes"
	"net/http"
)

// SniffMIME guesses the media type of an encoded audio payload from its
// magic bytes, falling back to net/http content sniffing.
func SniffMIME(b []byte) string {
	switch {
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE":
		return "audio/wav"
	case bytes.HasPrefix(b, []byte("fLaC")):
		return "audio/flac"
	case bytes.HasPrefix(b, []byte("OggS")):
		return "audio/ogg"
	case bytes.HasPrefix(b, []byte("ID3")):
		return "audio/mpeg"
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	}
	if ct := http.DetectContentType(b); ct != "application/octet-stream" && !bytes.HasPrefix([]byte(ct), []byte("text/")) {
		return ct
	}
	return "application/octet-stream"
}

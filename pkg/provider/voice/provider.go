// Package voice defines the Provider interface for text-to-speech backends
// used to render voice-overs.
//
// Implementations must be safe for concurrent use.
package voice

import (
	"context"
	"strings"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
)

// Gender is a coarse voice hint used when no provider-specific voice ID is
// requested.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Profile selects the voice for one synthesis.
type Profile struct {
	// ID is a provider-specific voice identifier. When empty, the provider
	// chooses a default voice matching Gender.
	ID       string
	Gender   Gender
	Language string
	// Speed is the speaking-rate multiplier, 1.0 being normal.
	Speed float64
}

// ProfileFor converts the user-facing voice string into a [Profile]. The
// values "male" and "female" become gender hints; anything else is taken as a
// provider voice ID.
func ProfileFor(v, lang string, speed float64) Profile {
	p := Profile{Language: lang, Speed: speed, Gender: GenderFemale}
	switch Gender(strings.ToLower(strings.TrimSpace(v))) {
	case GenderFemale:
	case GenderMale:
		p.Gender = GenderMale
	default:
		p.ID = strings.TrimSpace(v)
	}
	if p.Speed == 0 {
		p.Speed = 1
	}
	return p
}

// Provider is the abstraction over a TTS backend.
type Provider interface {
	// Synthesize renders text with the given voice and returns the encoded
	// audio. Non-2xx answers are reported as *provider.StatusError; an empty
	// payload yields [provider.ErrEmptyResponse].
	Synthesize(ctx context.Context, text string, profile Profile) (provider.AudioBlob, error)

	// Limits returns the input limits of this backend.
	Limits() provider.Limits
}

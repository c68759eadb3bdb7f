// Package content defines the request and result types shared by every
// generation path: captions, posts, video stories and voice-overs.
//
// Values in this package are plain data. A [Request] is treated as immutable
// for the duration of one generation call and a [Result] is created once per
// generation and never mutated afterwards.
package content

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ErrInvalidRequest is wrapped by every validation failure returned from
// [Request.Validate] and [VoiceRequest.Validate].
var ErrInvalidRequest = errors.New("content: invalid request")

// LocalProvider is the provider name recorded on results produced by the
// network-free local generator.
const LocalProvider = "local-fallback"

// Kind identifies what is being generated.
type Kind string

const (
	KindCaption   Kind = "caption"
	KindPost      Kind = "post"
	KindStory     Kind = "story"
	KindVoiceover Kind = "voiceover"
)

// TextKinds lists the kinds served by the text generation path.
var TextKinds = []Kind{KindCaption, KindPost, KindStory}

// IsText reports whether k is produced by a text provider chain.
func (k Kind) IsText() bool { return slices.Contains(TextKinds, k) }

// Platform is the social network a caption or post targets.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
)

// Platforms lists every supported platform.
var Platforms = []Platform{
	PlatformInstagram, PlatformTikTok, PlatformYouTube,
	PlatformTwitter, PlatformFacebook, PlatformLinkedIn,
}

// HashtagRange returns the recommended number of hashtags for p.
func HashtagRange(p Platform) (lo, hi int) {
	switch p {
	case PlatformInstagram:
		return 5, 15
	case PlatformTikTok:
		return 3, 6
	case PlatformYouTube:
		return 3, 8
	case PlatformLinkedIn:
		return 3, 5
	default:
		return 1, 3
	}
}

// CharLimit returns the platform's hard limit on post text, in characters.
func CharLimit(p Platform) int {
	switch p {
	case PlatformTwitter:
		return 280
	case PlatformTikTok:
		return 2_200
	case PlatformInstagram:
		return 2_200
	case PlatformLinkedIn:
		return 3_000
	case PlatformYouTube:
		return 5_000
	default:
		return 63_206
	}
}

// Tone is the voice of a caption or post.
type Tone string

const (
	ToneCasual        Tone = "casual"
	ToneProfessional  Tone = "professional"
	ToneFunny         Tone = "funny"
	ToneInspirational Tone = "inspirational"
	ToneEducational   Tone = "educational"
	ToneDramatic      Tone = "dramatic"
)

// Tones lists every supported tone.
var Tones = []Tone{
	ToneCasual, ToneProfessional, ToneFunny,
	ToneInspirational, ToneEducational, ToneDramatic,
}

// Genre is the narrative style of a video story.
type Genre string

const (
	GenreAdventure    Genre = "adventure"
	GenreMystery      Genre = "mystery"
	GenreMotivational Genre = "motivational"
	GenreHorror       Genre = "horror"
	GenreComedy       Genre = "comedy"
	GenreEducational  Genre = "educational"
	GenreDocumentary  Genre = "documentary"
)

// Genres lists every supported story genre.
var Genres = []Genre{
	GenreAdventure, GenreMystery, GenreMotivational, GenreHorror,
	GenreComedy, GenreEducational, GenreDocumentary,
}

// Length controls the word budget of captions and posts and the duration
// class of stories.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Lengths lists every supported length.
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

// StoryMinutes returns the target running time of a story of length l.
func (l Length) StoryMinutes() int {
	switch l {
	case LengthShort:
		return 1
	case LengthLong:
		return 8
	default:
		return 3
	}
}

// Words returns the approximate word budget for a caption or post of kind k.
func (l Length) Words(k Kind) int {
	base := map[Length]int{LengthShort: 40, LengthMedium: 90, LengthLong: 180}[l]
	if base == 0 {
		base = 90
	}
	switch k {
	case KindPost:
		return base * 2
	case KindStory:
		return l.StoryMinutes() * WordsPerMinute
	}
	return base
}

// WordsPerMinute is the speaking rate used for duration estimates.
const WordsPerMinute = 150

// Request describes a single text generation.
type Request struct {
	Kind            Kind     `json:"kind"`
	Topic           string   `json:"topic"`
	Platform        Platform `json:"platform,omitempty"`
	Tone            Tone     `json:"tone,omitempty"`
	Genre           Genre    `json:"genre,omitempty"`
	Length          Length   `json:"length,omitempty"`
	Language        string   `json:"language,omitempty"`
	IncludeHashtags bool     `json:"include_hashtags"`
	IncludeCTA      bool     `json:"include_cta"`
	IncludeHook     bool     `json:"include_hook"`
}

// WithDefaults returns a copy of r with zero-valued enums replaced by their
// defaults. The receiver is not modified.
func (r Request) WithDefaults() Request {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Platform == "" {
		if r.Kind == KindStory {
			r.Platform = PlatformYouTube
		} else {
			r.Platform = PlatformInstagram
		}
	}
	if r.Tone == "" {
		r.Tone = ToneCasual
	}
	if r.Genre == "" && r.Kind == KindStory {
		r.Genre = GenreAdventure
	}
	if r.Length == "" {
		r.Length = LengthMedium
	}
	if r.Language == "" {
		r.Language = "en"
	}
	return r
}

// Validate checks every field and returns all problems joined together. Each
// problem wraps [ErrInvalidRequest].
func (r Request) Validate() error {
	var errs []error
	if !r.Kind.IsText() {
		errs = append(errs, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind))
	}
	if strings.TrimSpace(r.Topic) == "" {
		errs = append(errs, fmt.Errorf("%w: topic must not be empty", ErrInvalidRequest))
	}
	if r.Platform != "" && !slices.Contains(Platforms, r.Platform) {
		errs = append(errs, fmt.Errorf("%w: unknown platform %q", ErrInvalidRequest, r.Platform))
	}
	if r.Tone != "" && !slices.Contains(Tones, r.Tone) {
		errs = append(errs, fmt.Errorf("%w: unknown tone %q", ErrInvalidRequest, r.Tone))
	}
	if r.Genre != "" && !slices.Contains(Genres, r.Genre) {
		errs = append(errs, fmt.Errorf("%w: unknown genre %q", ErrInvalidRequest, r.Genre))
	}
	if r.Length != "" && !slices.Contains(Lengths, r.Length) {
		errs = append(errs, fmt.Errorf("%w: unknown length %q", ErrInvalidRequest, r.Length))
	}
	if err := validateLanguage(r.Language); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateLanguage(tag string) error {
	if tag == "" {
		return nil
	}
	if _, err := language.Parse(tag); err != nil {
		return fmt.Errorf("%w: language %q: %v", ErrInvalidRequest, tag, err)
	}
	return nil
}

// Metrics holds quality estimates computed for a result.
type Metrics struct {
	// EngagementScore is a heuristic in the range 0..100.
	EngagementScore int `json:"engagement_score"`
	// EstimatedDuration is the read-aloud time of the primary text.
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// Result is the normalized outcome of one text generation.
type Result struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Provider     string    `json:"provider"`
	Topic        string    `json:"topic,omitempty"`
	PrimaryText  string    `json:"text"`
	Title        string    `json:"title,omitempty"`
	Hashtags     []string  `json:"hashtags"`
	Tags         []string  `json:"tags"`
	CallToAction string    `json:"cta,omitempty"`
	Description  string    `json:"description,omitempty"`
	Metrics      Metrics   `json:"metrics"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsLocal reports whether r was produced by the local generator.
func (r Result) IsLocal() bool { return r.Provider == LocalProvider }

// HashtagSet returns a sorted, deduplicated copy of tags. Each entry is
// prefixed with '#' and compared case-insensitively; the first spelling wins.
func HashtagSet(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		t = strings.TrimLeft(t, "#")
		t = strings.Join(strings.Fields(t), "")
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+t)
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

// MinSpeed and MaxSpeed bound [VoiceRequest.Speed].
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// VoiceRequest describes a single voice-over synthesis.
type VoiceRequest struct {
	Text string `json:"text"`
	// Voice is either a gender hint ("male", "female") or a provider
	// specific voice identifier.
	Voice    string  `json:"voice,omitempty"`
	Language string  `json:"language,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
}

// WithDefaults returns a copy of r with defaults applied.
func (r VoiceRequest) WithDefaults() VoiceRequest {
	r.Text = strings.TrimSpace(r.Text)
	if r.Voice == "" {
		r.Voice = "female"
	}
	if r.Language == "" {
		r.Language = "en"
	}
	if r.Speed == 0 {
		r.Speed = 1.0
	}
	return r
}

// Validate checks the voice request.
func (r VoiceRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Text) == "" {
		errs = append(errs, fmt.Errorf("%w: text must not be empty", ErrInvalidRequest))
	}
	if r.Speed != 0 && (r.Speed < MinSpeed || r.Speed > MaxSpeed) {
		errs = append(errs, fmt.Errorf("%w: speed %.2f outside [%.1f, %.1f]", ErrInvalidRequest, r.Speed, MinSpeed, MaxSpeed))
	}
	if err := validateLanguage(r.Language); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Audio is an encoded audio payload.
type Audio struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// VoiceState is a node of the voice-over state machine.
type VoiceState string

const (
	VoiceIdle            VoiceState = "idle"
	VoiceRequesting      VoiceState = "requesting"
	VoiceSucceeded       VoiceState = "succeeded"
	VoiceFailed          VoiceState = "failed"
	VoiceLocalSynthesis  VoiceState = "local_synthesis"
	VoicePlaybackReady   VoiceState = "playback_ready"
	VoiceRecordingFailed VoiceState = "recording_failed"
	VoicePlaceholder     VoiceState = "placeholder_audio"
)

// Terminal reports whether s ends the state machine.
func (s VoiceState) Terminal() bool {
	return s == VoiceSucceeded || s == VoicePlaybackReady || s == VoicePlaceholder
}

// VoiceStep is one entry of a voice-over trail. Provider is set for
// Requesting, Succeeded and Failed steps.
type VoiceStep struct {
	State    VoiceState `json:"state"`
	Provider string     `json:"provider,omitempty"`
}

// VoiceResult is the outcome of one voice-over synthesis.
type VoiceResult struct {
	ID                string        `json:"id"`
	Provider          string        `json:"provider"`
	Audio             Audio         `json:"audio"`
	Script            string        `json:"script"`
	State             VoiceState    `json:"state"`
	Trail             []VoiceStep   `json:"trail"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	CreatedAt         time.Time     `json:"created_at"`
}

// EstimateDuration returns the read-aloud time of text at [WordsPerMinute].
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return time.Duration(words) * time.Minute / WordsPerMinute
}

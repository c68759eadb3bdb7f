package content

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestRequestWithDefaults(t *testing.T) {
	r := Request{Kind: KindStory, Topic: "  lost city  "}
	got := r.WithDefaults()

	if got.Topic != "lost city" {
		t.Errorf("Topic = %q, want trimmed", got.Topic)
	}
	if got.Platform != PlatformYouTube {
		t.Errorf("Platform = %q, want youtube for stories", got.Platform)
	}
	if got.Genre != GenreAdventure || got.Tone != ToneCasual || got.Length != LengthMedium || got.Language != "en" {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if r.Platform != "" {
		t.Error("WithDefaults must not modify the receiver")
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid caption", Request{Kind: KindCaption, Topic: "coffee"}, false},
		{"valid story", Request{Kind: KindStory, Topic: "ghost", Genre: GenreHorror, Language: "de-DE"}, false},
		{"empty topic", Request{Kind: KindPost, Topic: "   "}, true},
		{"voiceover is not text", Request{Kind: KindVoiceover, Topic: "x"}, true},
		{"unknown platform", Request{Kind: KindCaption, Topic: "x", Platform: "myspace"}, true},
		{"unknown tone", Request{Kind: KindCaption, Topic: "x", Tone: "sarcastic"}, true},
		{"unknown genre", Request{Kind: KindStory, Topic: "x", Genre: "western"}, true},
		{"unknown length", Request{Kind: KindCaption, Topic: "x", Length: "epic"}, true},
		{"bad language", Request{Kind: KindCaption, Topic: "x", Language: "not a tag!"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error %v does not wrap ErrInvalidRequest", err)
			}
		})
	}
}

func TestRequestValidate_JoinsAllProblems(t *testing.T) {
	err := Request{Kind: "nope", Topic: "", Tone: "weird"}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	if n := len(joined.Unwrap()); n != 3 {
		t.Errorf("got %d problems, want 3", n)
	}
}

func TestHashtagSet(t *testing.T) {
	got := HashtagSet([]string{"#Travel", "travel", " food ", "", "#", "##Art", "road trip"})
	want := []string{"#Art", "#food", "#roadtrip", "#Travel"}
	if !slices.Equal(got, want) {
		t.Errorf("HashtagSet = %v, want %v", got, want)
	}
}

func TestLengthWords(t *testing.T) {
	if got := LengthShort.Words(KindCaption); got != 40 {
		t.Errorf("short caption = %d, want 40", got)
	}
	if got := LengthShort.Words(KindPost); got != 80 {
		t.Errorf("short post = %d, want 80", got)
	}
	if got := LengthLong.Words(KindStory); got != 8*WordsPerMinute {
		t.Errorf("long story = %d, want %d", got, 8*WordsPerMinute)
	}
	if got := Length("").Words(KindCaption); got != 90 {
		t.Errorf("default caption = %d, want 90", got)
	}
}

func TestVoiceRequestValidate(t *testing.T) {
	if err := (VoiceRequest{Text: "hello"}).WithDefaults().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (VoiceRequest{Text: ""}).Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty text: got %v", err)
	}
	if err := (VoiceRequest{Text: "x", Speed: 3}).Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("speed out of range: got %v", err)
	}
}

func TestEstimateDuration(t *testing.T) {
	if got := EstimateDuration(""); got != 0 {
		t.Errorf("empty = %v", got)
	}
	text := ""
	for range 300 {
		text += "word "
	}
	if got := EstimateDuration(text); got != 2*time.Minute {
		t.Errorf("300 words = %v, want 2m", got)
	}
}

func TestVoiceStateTerminal(t *testing.T) {
	for _, s := range []VoiceState{VoiceSucceeded, VoicePlaybackReady, VoicePlaceholder} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []VoiceState{VoiceIdle, VoiceRequesting, VoiceFailed, VoiceLocalSynthesis, VoiceRecordingFailed} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestHashtagRange(t *testing.T) {
	for _, p := range Platforms {
		lo, hi := HashtagRange(p)
		if lo < 1 || hi < lo {
			t.Errorf("%s: bad range %d-%d", p, lo, hi)
		}
		if CharLimit(p) < 280 {
			t.Errorf("%s: char limit %d", p, CharLimit(p))
		}
	}
}

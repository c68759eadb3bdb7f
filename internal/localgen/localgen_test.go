package localgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// TestText_EveryToneAndKind checks that every tone and kind yields a
// non-empty, local-tagged result.
func TestText_EveryToneAndKind(t *testing.T) {
	for _, kind := range []content.Kind{content.KindCaption, content.KindPost} {
		for _, tone := range content.Tones {
			req := content.Request{Kind: kind, Topic: "home coffee brewing", Tone: tone, IncludeHashtags: true, IncludeCTA: true, IncludeHook: true}.WithDefaults()
			res, err := Text(req)
			if err != nil {
				t.Fatalf("%s/%s: %v", kind, tone, err)
			}
			if res.PrimaryText == "" || res.CallToAction == "" {
				t.Errorf("%s/%s: missing text or CTA: %+v", kind, tone, res)
			}
			if !res.IsLocal() || res.Kind != kind {
				t.Errorf("%s/%s: provider=%q kind=%q", kind, tone, res.Provider, res.Kind)
			}
			if strings.Contains(res.PrimaryText, "{{") {
				t.Errorf("%s/%s: unrendered template: %q", kind, tone, res.PrimaryText)
			}
		}
	}
}

// TestText_Deterministic checks that equal requests produce equal output.
func TestText_Deterministic(t *testing.T) {
	req := content.Request{Kind: content.KindCaption, Topic: "Rainy Days", IncludeHashtags: true}.WithDefaults()
	a, err := Text(req)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Text(req)
	if a.PrimaryText != b.PrimaryText || strings.Join(a.Hashtags, ",") != strings.Join(b.Hashtags, ",") {
		t.Errorf("non-deterministic output:\n%+v\n%+v", a, b)
	}
}

// TestText_HashtagsWithinRange checks the hashtag count against every
// platform's recommended range.
func TestText_HashtagsWithinRange(t *testing.T) {
	for _, p := range content.Platforms {
		req := content.Request{Kind: content.KindCaption, Topic: "ai", Platform: p, IncludeHashtags: true}.WithDefaults()
		res, err := Text(req)
		if err != nil {
			t.Fatal(err)
		}
		lo, hi := content.HashtagRange(p)
		if n := len(res.Hashtags); n < lo || n > hi {
			t.Errorf("%s: %d hashtags, want %d..%d (%v)", p, n, lo, hi, res.Hashtags)
		}
	}
}

// TestText_NoExtrasWhenNotRequested checks the optional fields stay empty.
func TestText_NoExtrasWhenNotRequested(t *testing.T) {
	res, err := Text(content.Request{Kind: content.KindPost, Topic: "gardening"}.WithDefaults())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hashtags) != 0 || res.CallToAction != "" {
		t.Errorf("unexpected extras: %+v", res)
	}
	if res.Hashtags == nil || res.Tags == nil {
		t.Error("collections should be empty, not nil")
	}
}

// TestText_Story checks every genre produces a titled story that grows with
// the requested length.
func TestText_Story(t *testing.T) {
	for _, g := range content.Genres {
		short, err := Text(content.Request{Kind: content.KindStory, Topic: "the old lighthouse", Genre: g, Length: content.LengthShort}.WithDefaults())
		if err != nil {
			t.Fatalf("%s: %v", g, err)
		}
		long, _ := Text(content.Request{Kind: content.KindStory, Topic: "the old lighthouse", Genre: g, Length: content.LengthLong}.WithDefaults())
		if short.Title == "" || short.Description == "" || len(short.Tags) == 0 {
			t.Errorf("%s: incomplete story %+v", g, short)
		}
		if len(strings.Fields(long.PrimaryText)) < len(strings.Fields(short.PrimaryText)) {
			t.Errorf("%s: long story shorter than short story", g)
		}
		if !strings.Contains(short.Title, "Lighthouse") {
			t.Errorf("%s: title %q should carry the topic", g, short.Title)
		}
	}
}

func TestText_EmptyTopic(t *testing.T) {
	_, err := Text(content.Request{Kind: content.KindCaption, Topic: "  "})
	if !errors.Is(err, ErrFallbackFailed) {
		t.Errorf("err = %v, want ErrFallbackFailed", err)
	}
}

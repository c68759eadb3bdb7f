// Package localgen produces content without any network access. It is the
// last link of every generation chain: text comes from tone and genre keyed
// templates, voice from the platform speech synthesizer or, failing that, a
// placeholder waveform.
//
// Output is deterministic: equal requests produce equal results.
package localgen

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// ErrFallbackFailed is returned when even the local generator cannot serve a
// request. This only happens for requests without a topic.
var ErrFallbackFailed = errors.New("localgen: local fallback failed")

// Text generates a result for req. req should already have defaults applied.
// ID, Metrics and CreatedAt are left for the caller.
func Text(req content.Request) (content.Result, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return content.Result{}, fmt.Errorf("%w: empty topic", ErrFallbackFailed)
	}
	data := templateData{
		Topic:    topic,
		Title:    cases.Title(language.English).String(topic),
		Platform: string(req.Platform),
		Minutes:  req.Length.StoryMinutes(),
	}
	seed := hashOf(string(req.Kind), string(req.Tone), string(req.Genre), strings.ToLower(topic))

	res := content.Result{
		Kind:     req.Kind,
		Provider: content.LocalProvider,
		Topic:    topic,
		Hashtags: []string{},
		Tags:     []string{},
	}

	var err error
	switch req.Kind {
	case content.KindStory:
		err = story(&res, req, data, seed)
	case content.KindCaption, content.KindPost:
		err = social(&res, req, data, seed)
	default:
		err = fmt.Errorf("unsupported kind %q", req.Kind)
	}
	if err != nil {
		return content.Result{}, fmt.Errorf("%w: %w", ErrFallbackFailed, err)
	}
	return res, nil
}

func social(res *content.Result, req content.Request, data templateData, seed uint32) error {
	set := captionTemplates
	if req.Kind == content.KindPost {
		set = postTemplates
	}
	variants := set[req.Tone]
	if len(variants) == 0 {
		variants = set[content.ToneCasual]
	}
	body, err := render(pick(variants, seed), data)
	if err != nil {
		return err
	}
	if req.IncludeHook {
		body = pickString(hooks[req.Tone], seed>>16) + " " + body
	}
	res.PrimaryText = strings.TrimSpace(body)
	if req.IncludeCTA {
		res.CallToAction = pickString(ctas[req.Tone], seed>>8)
	}
	if req.IncludeHashtags {
		res.Hashtags = hashtags(data.Topic, req.Platform)
	}
	return nil
}

func story(res *content.Result, req content.Request, data templateData, seed uint32) error {
	p, ok := storyPlots[req.Genre]
	if !ok {
		p = storyPlots[content.GenreAdventure]
	}
	title, err := render(p.Title, data)
	if err != nil {
		return err
	}
	opening, err := render(p.Opening, data)
	if err != nil {
		return err
	}
	ending, err := render(p.Ending, data)
	if err != nil {
		return err
	}

	paragraphs := []string{opening}
	words := len(strings.Fields(opening)) + len(strings.Fields(ending))
	target := req.Length.Words(content.KindStory)
	// Middle paragraphs rotate from a seed-chosen start; each is used at
	// most once so long stories stay below the budget rather than repeat.
	for i := 0; i < len(p.Middle) && (i == 0 || words < target); i++ {
		start := int(seed % uint32(len(p.Middle)))
		m, err := render(p.Middle[(start+i)%len(p.Middle)], data)
		if err != nil {
			return err
		}
		paragraphs = append(paragraphs, m)
		words += len(strings.Fields(m))
	}
	paragraphs = append(paragraphs, ending)

	res.Title = title
	res.PrimaryText = strings.Join(paragraphs, "\n\n")
	res.Description = fmt.Sprintf("A %d minute %s story about %s.", data.Minutes, req.Genre, data.Topic)
	res.Tags = append(topicWords(data.Topic), string(req.Genre), "story")
	return nil
}

func render(t *template.Template, data templateData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return sb.String(), nil
}

func hashOf(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum32()
}

func pick(ts []*template.Template, seed uint32) *template.Template {
	return ts[int(seed%uint32(len(ts)))]
}

func pickString(ss []string, seed uint32) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[int(seed%uint32(len(ss)))]
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "your": true,
	"how": true, "why": true, "what": true, "from": true, "into": true,
}

// topicWords returns the significant lowercase words of topic in order.
func topicWords(topic string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

var platformTags = map[content.Platform][]string{
	content.PlatformInstagram: {"instagood", "explore", "photooftheday", "reels", "inspo", "daily", "trending"},
	content.PlatformTikTok:    {"fyp", "foryou", "viral", "tiktok"},
	content.PlatformYouTube:   {"shorts", "youtube", "video", "subscribe"},
	content.PlatformTwitter:   {"trending"},
	content.PlatformFacebook:  {"community"},
	content.PlatformLinkedIn:  {"leadership", "growth", "careers"},
}

// hashtags builds a tag set for topic whose size falls inside the
// platform's recommended range.
func hashtags(topic string, p content.Platform) []string {
	lo, hi := content.HashtagRange(p)
	words := topicWords(topic)

	var candidates []string
	if len(words) > 1 {
		var camel strings.Builder
		for _, w := range words {
			camel.WriteString(cases.Title(language.English).String(w))
		}
		candidates = append(candidates, camel.String())
	}
	candidates = append(candidates, words...)
	candidates = append(candidates, platformTags[p]...)
	candidates = append(candidates, "content", "creator", "ideas", "tips", "motivation", "lifestyle", "inspiration", "community", "learn", "daily", "new", "share", "love", "life", "goals")

	set := content.HashtagSet(candidates[:min(len(candidates), hi)])
	for i := hi; len(set) < lo && i < len(candidates); i++ {
		set = content.HashtagSet(append(set, candidates[i]))
	}
	return set
}

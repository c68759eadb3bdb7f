// Package prompt builds the provider prompts for every content kind and fits
// them to a provider's input limit.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

const systemPrompt = `You are a social media copywriter and video script writer.
Answer with a single JSON object and nothing else, using exactly these keys:
{"title": string, "text": string, "hashtags": [string], "tags": [string], "cta": string, "description": string}
"text" is required. Leave other keys empty when they do not apply. Do not use markdown or emoji.`

// Build returns the prompt for req. req should already have defaults applied.
func Build(req content.Request) text.Prompt {
	var sb strings.Builder
	lang := LanguageName(req.Language)
	words := req.Length.Words(req.Kind)

	switch req.Kind {
	case content.KindStory:
		fmt.Fprintf(&sb, "Write a %s YouTube video story script about %q.\n", req.Genre, req.Topic)
		fmt.Fprintf(&sb, "It should take about %d minute(s) to narrate (roughly %d words).\n", req.Length.StoryMinutes(), words)
		sb.WriteString("Open with a strong hook, build tension and end with a satisfying resolution.\n")
		sb.WriteString("Put a catchy video title in \"title\", the narration in \"text\", a YouTube description in \"description\" and 5-10 search keywords in \"tags\".\n")
	case content.KindPost:
		fmt.Fprintf(&sb, "Write a %s %s post about %q of about %d words.\n", req.Tone, req.Platform, req.Topic, words)
		sb.WriteString("Structure it in short paragraphs.\n")
	default:
		fmt.Fprintf(&sb, "Write a %s %s caption about %q of at most %d words.\n", req.Tone, req.Platform, req.Topic, words)
	}

	if req.Kind != content.KindStory {
		if req.IncludeHook {
			sb.WriteString("Start with an attention-grabbing hook line.\n")
		}
		if req.IncludeHashtags {
			fmt.Fprintf(&sb, "Add %s relevant hashtags in \"hashtags\".\n", hashtagRange(req.Platform))
		}
		if req.IncludeCTA {
			sb.WriteString("Add a short call to action in \"cta\".\n")
		}
	}
	fmt.Fprintf(&sb, "Write in %s.", lang)

	return text.Prompt{
		System:      systemPrompt,
		User:        sb.String(),
		Temperature: temperatureFor(req),
		MaxTokens:   maxTokensFor(words),
	}
}

// LanguageName returns the English display name of a BCP-47 tag, or the tag
// itself when it cannot be resolved.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Languages().Name(t); name != "" {
		return name
	}
	return tag
}

func hashtagRange(p content.Platform) string {
	lo, hi := content.HashtagRange(p)
	return fmt.Sprintf("%d-%d", lo, hi)
}

func temperatureFor(req content.Request) float64 {
	switch {
	case req.Kind == content.KindStory:
		return 0.9
	case req.Tone == content.ToneProfessional || req.Tone == content.ToneEducational:
		return 0.5
	default:
		return 0.8
	}
}

// maxTokensFor leaves room for JSON keys, tags and description.
func maxTokensFor(words int) int {
	return words*2 + 300
}

// Fit truncates p so that it fits limits. The system prompt is kept intact
// when possible; the user prompt is shortened first.
func Fit(p text.Prompt, limits provider.Limits) text.Prompt {
	max := limits.MaxInputChars
	if max <= 0 || p.Len() <= max {
		return p
	}
	sys := len([]rune(p.System))
	if sys >= max {
		p.System = Truncate(p.System, max/2)
		sys = len([]rune(p.System))
	}
	p.User = Truncate(p.User, max-sys)
	return p
}

// Truncate returns at most max runes of s, cutting at the last word boundary
// when one exists in the final fifth of the allowance.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := r[:max]
	for i := len(cut) - 1; i >= max*4/5; i-- {
		if cut[i] == ' ' || cut[i] == '\n' {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRight(string(cut), " \n")
}

package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// Score computes quality metrics for res generated from req. The engagement
// score rewards a length close to the word budget, hashtag counts within the
// platform's range, a call to action and an opening hook or question.
func Score(req content.Request, res content.Result) content.Metrics {
	score := 40
	words := len(strings.Fields(res.PrimaryText))

	if target := req.Length.Words(req.Kind); target > 0 {
		ratio := float64(words) / float64(target)
		switch {
		case ratio >= 0.6 && ratio <= 1.4:
			score += 20
		case ratio >= 0.3 && ratio <= 2:
			score += 8
		}
	}

	if req.Kind == content.KindStory {
		if res.Title != "" {
			score += 10
		}
		if res.Description != "" {
			score += 5
		}
		if len(res.Tags) > 0 {
			score += 5
		}
	} else {
		if utf8.RuneCountInString(res.PrimaryText) > content.CharLimit(req.Platform) {
			score -= 15
		}
		lo, hi := content.HashtagRange(req.Platform)
		switch n := len(res.Hashtags); {
		case n >= lo && n <= hi:
			score += 15
		case n > 0:
			score += 5
		}
		if res.CallToAction != "" {
			score += 10
		}
	}

	if hasHook(res.PrimaryText) {
		score += 10
	}
	if readable(res.PrimaryText) {
		score += 5
	}
	score = max(0, min(100, score))

	return content.Metrics{
		EngagementScore:   score,
		EstimatedDuration: content.EstimateDuration(res.PrimaryText),
	}
}

// hasHook reports whether the opening line asks a question or exclaims.
func hasHook(s string) bool {
	first, _, _ := strings.Cut(s, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return false
	}
	if strings.ContainsAny(first, "?!") {
		return true
	}
	return strings.Contains(s, "?")
}

// readable reports whether the average sentence is at most 20 words.
func readable(s string) bool {
	sentences := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '!' || r == '?' || r == '\n' })
	n, words := 0, 0
	for _, sent := range sentences {
		if w := len(strings.Fields(sent)); w > 0 {
			n++
			words += w
		}
	}
	return n > 0 && words/n <= 20
}

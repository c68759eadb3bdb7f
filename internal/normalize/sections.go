package normalize

import (
	"regexp"
	"strings"
)

// sectionLabel matches "LABEL: value" at the start of a line.
var sectionLabel = regexp.MustCompile(`(?i)^\s*\**\s*(title|text|caption|post|story|script|hashtags|tags|cta|call to action|description)\s*\**\s*:\s*(.*)$`)

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// parseSections reads labelled sections from a delimited model answer.
// Lines before the first label, or any text when no primary label is
// present, become the primary text.
func parseSections(s string) payload {
	sections := map[string]*strings.Builder{}
	var order []string
	current := ""
	for _, line := range strings.Split(s, "\n") {
		if m := sectionLabel.FindStringSubmatch(line); m != nil {
			current = canonicalLabel(m[1])
			if _, ok := sections[current]; !ok {
				sections[current] = &strings.Builder{}
				order = append(order, current)
			}
			line = m[2]
		}
		b, ok := sections[current]
		if !ok {
			b = &strings.Builder{}
			sections[current] = b
			order = append(order, current)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}

	get := func(k string) string {
		if b, ok := sections[k]; ok {
			return strings.TrimSpace(b.String())
		}
		return ""
	}
	p := payload{
		Title:       get("title"),
		Text:        get("text"),
		Hashtags:    splitHashtags(get("hashtags")),
		Tags:        splitTags(get("tags")),
		CTA:         get("cta"),
		Description: get("description"),
	}
	if p.Text == "" {
		p.Text = get("")
	}
	return p
}

func canonicalLabel(l string) string {
	switch strings.ToLower(l) {
	case "text", "caption", "post", "story", "script":
		return "text"
	case "cta", "call to action":
		return "cta"
	default:
		return strings.ToLower(l)
	}
}

// splitHashtags finds hashtags in s. Bare words separated by commas or
// whitespace are accepted too when s contains no '#'.
func splitHashtags(s string) []string {
	if found := hashtagPattern.FindAllString(s, -1); len(found) > 0 {
		return found
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitInlineHashtags separates trailing hashtag-only lines from plain text
// and returns the remaining text with every hashtag found.
func splitInlineHashtags(s string) (string, []string) {
	tags := hashtagPattern.FindAllString(s, -1)
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "" || strings.Trim(hashtagPattern.ReplaceAllString(last, ""), " ,.") == "" {
			lines = lines[:len(lines)-1]
			continue
		}
		break
	}
	return strings.Join(lines, "\n"), tags
}

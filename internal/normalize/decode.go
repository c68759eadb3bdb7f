package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
)

// payloadSchema only insists on the primary text. Everything else is
// optional and loosely typed because models disagree on lists vs strings.
const payloadSchema = `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text":        {"type": "string", "minLength": 1},
    "title":       {"type": "string"},
    "cta":         {"type": "string"},
    "description": {"type": "string"},
    "hashtags":    {"type": ["array", "string", "null"]},
    "tags":        {"type": ["array", "string", "null"]}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// primaryAliases are keys models use instead of "text".
var primaryAliases = []string{"caption", "post", "story", "script", "content", "body"}

// payload is the decoded JSON body of a chat completion.
type payload struct {
	Title       string
	Text        string
	Hashtags    []string
	Tags        []string
	CTA         string
	Description string
}

var errNotJSON = errors.New("normalize: not a JSON object")

// decodePayload decodes a model answer into a payload. It returns errNotJSON
// when content holds no JSON object at all, and an error wrapping
// provider.ErrEmptyResponse when the object lacks the primary text.
func decodePayload(content string) (payload, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return payload{}, provider.ErrEmptyResponse
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		sanitized := sanitizeJSONPayload(trimmed)
		if sanitized == "" || sanitized == trimmed || sanitized[0] != '{' {
			return payload{}, errNotJSON
		}
		if err := json.Unmarshal([]byte(sanitized), &doc); err != nil {
			return payload{}, errNotJSON
		}
	}
	if doc == nil {
		return payload{}, errNotJSON
	}

	if s, _ := doc["text"].(string); strings.TrimSpace(s) == "" {
		for _, k := range primaryAliases {
			if alt, ok := doc[k].(string); ok && strings.TrimSpace(alt) != "" {
				doc["text"] = alt
				break
			}
		}
	}

	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return payload{}, fmt.Errorf("normalize: validate payload: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return payload{}, fmt.Errorf("%w: %s (payload: %s)", provider.ErrEmptyResponse, strings.Join(msgs, "; "), provider.Snippet(trimmed))
	}

	str := func(k string) string { s, _ := doc[k].(string); return s }
	return payload{
		Title:       str("title"),
		Text:        str("text"),
		Hashtags:    stringList(doc["hashtags"], splitHashtags),
		Tags:        stringList(doc["tags"], splitTags),
		CTA:         str("cta"),
		Description: str("description"),
	}, nil
}

// stringList accepts a JSON array of strings or a single delimited string.
func stringList(v any, split func(string) []string) []string {
	switch v := v.(type) {
	case string:
		return split(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

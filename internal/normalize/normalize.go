// Package normalize converts provider responses into content results. Each
// response variant has its own decoding path; the output shape is the same
// regardless of which provider answered.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAZZAD-404/vidpilot/pkg/audio"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
	"github.com/SAZZAD-404/vidpilot/pkg/provider"
)

// ErrUnsupportedResponse is returned when a response variant cannot serve
// the requested kind, e.g. audio for a caption.
var ErrUnsupportedResponse = errors.New("normalize: unsupported response variant")

// Text normalizes resp into a result of the given kind. ID, Provider, Topic,
// Metrics and CreatedAt are left for the caller. A response without primary
// text yields an error wrapping [provider.ErrEmptyResponse].
func Text(kind content.Kind, resp provider.Response) (content.Result, error) {
	if !kind.IsText() {
		return content.Result{}, fmt.Errorf("%w: %s is not a text kind", ErrUnsupportedResponse, kind)
	}

	var (
		p   payload
		err error
	)
	switch r := resp.(type) {
	case provider.ChatCompletion:
		p, err = fromChat(r.Content)
	case provider.StructuredText:
		p, err = fromStructured(r.Text)
	case provider.AudioBlob:
		return content.Result{}, fmt.Errorf("%w: audio for %s", ErrUnsupportedResponse, kind)
	case nil:
		return content.Result{}, provider.ErrEmptyResponse
	default:
		return content.Result{}, fmt.Errorf("%w: %T", ErrUnsupportedResponse, resp)
	}
	if err != nil {
		return content.Result{}, err
	}
	return build(kind, p)
}

func fromChat(s string) (payload, error) {
	p, err := decodePayload(s)
	if errors.Is(err, errNotJSON) {
		text, tags := splitInlineHashtags(stripCodeFence(s))
		return payload{Text: text, Hashtags: tags}, nil
	}
	return p, err
}

func fromStructured(s string) (payload, error) {
	if strings.TrimSpace(s) == "" {
		return payload{}, provider.ErrEmptyResponse
	}
	p, err := decodePayload(s)
	if errors.Is(err, errNotJSON) {
		p = parseSections(s)
		if len(p.Hashtags) == 0 {
			p.Text, p.Hashtags = splitInlineHashtags(p.Text)
		}
		return p, nil
	}
	return p, err
}

func build(kind content.Kind, p payload) (content.Result, error) {
	res := content.Result{
		Kind:         kind,
		PrimaryText:  Sanitize(p.Text),
		Title:        sanitizeInline(p.Title),
		Hashtags:     content.HashtagSet(p.Hashtags),
		Tags:         cleanTags(p.Tags),
		CallToAction: sanitizeInline(p.CTA),
		Description:  Sanitize(p.Description),
	}
	if res.PrimaryText == "" {
		return content.Result{}, fmt.Errorf("%w: no primary text", provider.ErrEmptyResponse)
	}
	return res, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = sanitizeInline(strings.TrimLeft(t, "#"))
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Audio validates an audio response. When the provider did not name a
// usable MIME type it is sniffed from the payload.
func Audio(resp provider.Response) (content.Audio, error) {
	blob, ok := resp.(provider.AudioBlob)
	if !ok {
		if resp == nil {
			return content.Audio{}, provider.ErrEmptyResponse
		}
		return content.Audio{}, fmt.Errorf("%w: %T is not audio", ErrUnsupportedResponse, resp)
	}
	if len(blob.Data) == 0 {
		return content.Audio{}, fmt.Errorf("%w: no audio bytes", provider.ErrEmptyResponse)
	}
	mime := blob.MIMEType
	if mime == "" || mime == "application/octet-stream" {
		mime = audio.SniffMIME(blob.Data)
	}
	if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "application/json") {
		return content.Audio{}, fmt.Errorf("%w: payload is %s", ErrUnsupportedResponse, mime)
	}
	return content.Audio{Data: blob.Data, MIMEType: mime}, nil
}

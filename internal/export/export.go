// Package export renders history records as downloadable files.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/SAZZAD-404/vidpilot/internal/history"
)

// ErrUnknownFormat is returned by [ParseFormat] for unsupported names.
var ErrUnknownFormat = errors.New("export: unknown format")

// Format is an export file format.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	Text     Format = "txt"
	Markdown Format = "md"
)

// Formats lists every supported format.
var Formats = []Format{CSV, JSON, Text, Markdown}

// ParseFormat resolves a format name. "text" and "markdown" are accepted as
// aliases; the empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "txt", "text":
		return Text, nil
	case "md", "markdown":
		return Markdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case Text:
		return "text/plain; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename returns a download name for an export made at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("vidpilot-history-%s.%s", t.UTC().Format("20060102-150405"), f)
}

var header = table.Row{"ID", "Created", "Kind", "Provider", "Topic", "Title", "Text", "Hashtags", "CTA", "Score"}

// Write renders recs to w in format f.
func Write(w io.Writer, f Format, recs []history.Record) error {
	if f == JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []history.Record{}
		}
		if err := enc.Encode(recs); err != nil {
			return fmt.Errorf("export: json: %w", err)
		}
		return nil
	}

	tw := table.NewWriter()
	tw.AppendHeader(header)
	for _, r := range recs {
		tw.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			string(r.Kind),
			r.Provider,
			r.Topic,
			r.Title,
			r.PrimaryText,
			strings.Join(r.Hashtags, " "),
			r.CallToAction,
			r.Metrics.EngagementScore,
		})
	}

	var out string
	switch f {
	case CSV:
		out = tw.RenderCSV()
	case Markdown:
		out = tw.RenderMarkdown()
	case Text:
		tw.SetStyle(table.StyleLight)
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 5, WidthMax: 30, WidthMaxEnforcer: text.WrapSoft},
			{Number: 6, WidthMax: 30, WidthMaxEnforcer: text.WrapSoft},
			{Number: 7, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
			{Number: 8, WidthMax: 30, WidthMaxEnforcer: text.WrapSoft},
			{Number: 10, Align: text.AlignRight},
		})
		out = tw.Render()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("export: write %s: %w", f, err)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SAZZAD-404/vidpilot/internal/generate"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

func newGenerateCommands(cc *commandContext) []*cobra.Command {
	descriptions := map[content.Kind]string{
		content.KindCaption: "Generate a social media caption",
		content.KindPost:    "Generate a long-form social media post",
		content.KindStory:   "Generate a narrated video story script",
	}
	cmds := make([]*cobra.Command, 0, len(content.TextKinds))
	for _, kind := range content.TextKinds {
		cmds = append(cmds, newTextCommand(cc, kind, descriptions[kind]))
	}
	return cmds
}

func newTextCommand(cc *commandContext, kind content.Kind, short string) *cobra.Command {
	var (
		req    = content.Request{Kind: kind}
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   string(kind) + " <topic>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Topic = strings.Join(args, " ")
			return cc.open(cmd.Context(), func(app *application) error {
				res, err := app.service.Text(cmd.Context(), cc.user(), req)
				if err != nil {
					return upgradeHint(err)
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, res)
				}
				printResult(out, res)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar((*string)(&req.Platform), "platform", "", "target platform (instagram, tiktok, youtube, twitter, facebook, linkedin)")
	flags.StringVar((*string)(&req.Tone), "tone", "", "tone of voice")
	flags.StringVar((*string)(&req.Length), "length", "", "short, medium or long")
	flags.StringVar(&req.Language, "language", "", "BCP 47 language tag")
	flags.BoolVar(&req.IncludeHashtags, "hashtags", true, "include hashtags")
	flags.BoolVar(&req.IncludeCTA, "cta", kind != content.KindStory, "include a call to action")
	flags.BoolVar(&req.IncludeHook, "hook", true, "open with a hook")
	flags.BoolVar(&asJSON, "json", false, "print the result as JSON")
	if kind == content.KindStory {
		flags.StringVar((*string)(&req.Genre), "genre", "", "story genre")
	}
	return cmd
}

func newVoiceCommand(cc *commandContext) *cobra.Command {
	var (
		req     content.VoiceRequest
		outPath string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "voice [text]",
		Short: "Synthesize a voice-over",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Text = strings.Join(args, " ")
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				req.Text = string(b)
			}
			return cc.open(cmd.Context(), func(app *application) error {
				res, err := app.service.Voice(cmd.Context(), cc.user(), req)
				if err != nil {
					return upgradeHint(err)
				}
				if outPath == "" {
					outPath = "voiceover" + audioExt(res.Audio.MIMEType)
				}
				if err := os.WriteFile(outPath, res.Audio.Data, 0o644); err != nil {
					return fmt.Errorf("write audio: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "provider: %s\nstate:    %s\nduration: %s\naudio:    %s (%s, %d bytes)\n",
					res.Provider, res.State, res.EstimatedDuration.Round(time.Second), outPath, res.Audio.MIMEType, len(res.Audio.Data))
				steps := make([]string, 0, len(res.Trail))
				for _, s := range res.Trail {
					if s.Provider != "" {
						steps = append(steps, fmt.Sprintf("%s(%s)", s.State, s.Provider))
					} else {
						steps = append(steps, string(s.State))
					}
				}
				fmt.Fprintf(out, "trail:    %s\n", strings.Join(steps, " -> "))
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&outPath, "output", "o", "", "file the audio is written to (default voiceover.<ext>)")
	flags.StringVarP(&file, "file", "f", "", "read the script from a file")
	flags.StringVar(&req.Voice, "voice", "", "male, female or a provider voice ID")
	flags.Float64Var(&req.Speed, "speed", 0, "speaking rate between 0.5 and 2.0")
	flags.StringVar(&req.Language, "language", "", "BCP 47 language tag")
	return cmd
}

func audioExt(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	}
	return ".bin"
}

func upgradeHint(err error) error {
	if generate.IsUpgradeRequired(err) {
		return fmt.Errorf("%w (grant more with: vidpilot credits grant <n>)", err)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res content.Result) {
	if res.Title != "" {
		fmt.Fprintf(w, "%s\n\n", res.Title)
	}
	fmt.Fprintln(w, res.PrimaryText)
	if res.CallToAction != "" {
		fmt.Fprintf(w, "\n%s\n", res.CallToAction)
	}
	if len(res.Hashtags) > 0 {
		fmt.Fprintf(w, "\n%s\n", strings.Join(res.Hashtags, " "))
	}
	if res.Description != "" {
		fmt.Fprintf(w, "\n%s\n", res.Description)
	}
	fmt.Fprintf(w, "\n[%s via %s, engagement %d, ~%s]\n",
		res.Kind, res.Provider, res.Metrics.EngagementScore, res.Metrics.EstimatedDuration.Round(time.Second))
}

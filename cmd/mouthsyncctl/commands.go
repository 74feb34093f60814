package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/mouthsync/internal/pronounce"
	"github.com/MrWong99/mouthsync/pkg/hangul"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <token>...",
		Short: "Print the mouth-shape category and mouth groups of IPA tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tCATEGORY\tGROUPS\tIMAGE")
			for _, tok := range args {
				groups := viseme.Groups(tok)
				names := make([]string, len(groups))
				for i, g := range groups {
					names[i] = g.String()
				}
				c := viseme.ClassifyToken(tok)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tok, c, strings.Join(names, " "), viseme.Image(c))
			}
			return tw.Flush()
		},
	}
}

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <ipa>",
		Short: "Split an IPA transcription into tokens, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, tok := range viseme.Tokenize(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), tok)
			}
			return nil
		},
	}
}

// trackFlags are shared by frame and timeline.
type trackFlags struct {
	ipa   string
	words string
}

func (f *trackFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ipa, "ipa", "", "IPA transcription, one token per word")
	cmd.Flags().StringVar(&f.words, "words", "", `JSON file of word spans [{"word","start","end"}], "-" for stdin`)
	_ = cmd.MarkFlagRequired("ipa")
}

func (f *trackFlags) spans(cmd *cobra.Command) ([]viseme.Span, error) {
	if f.words == "" {
		return nil, nil
	}
	var r io.Reader
	if f.words == "-" {
		r = cmd.InOrStdin()
	} else {
		file, err := os.Open(f.words)
		if err != nil {
			return nil, fmt.Errorf("open words: %w", err)
		}
		defer file.Close()
		r = file
	}
	var spans []viseme.Span
	if err := json.NewDecoder(r).Decode(&spans); err != nil {
		return nil, fmt.Errorf("decode words: %w", err)
	}
	slog.Debug("loaded word spans", "count", len(spans), "source", f.words)
	return spans, nil
}

func newFrameCmd() *cobra.Command {
	var (
		track trackFlags
		t     float64
	)
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Resolve the frame shown at one playback position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spans, err := track.spans(cmd)
			if err != nil {
				return err
			}
			var clock viseme.Clock
			if cmd.Flags().Changed("t") {
				if math.IsNaN(t) {
					return errors.New("--t must be a number")
				}
				clock = viseme.At(t)
			}
			return printJSON(cmd.OutOrStdout(), viseme.New().FrameAt(viseme.Tokenize(track.ipa), spans, clock))
		},
	}
	track.register(cmd)
	cmd.Flags().Float64Var(&t, "t", 0, "playback position in seconds; omit for an unknown position")
	return cmd
}

func newTimelineCmd() *cobra.Command {
	var (
		track trackFlags
		fps   float64
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Sample frames across the whole track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fps < 0 {
				return errors.New("--fps must not be negative")
			}
			spans, err := track.spans(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), viseme.New().Timeline(viseme.Tokenize(track.ipa), spans, fps))
		},
	}
	track.register(cmd)
	cmd.Flags().Float64Var(&fps, "fps", 0, "frames per second; 0 uses the engine default")
	return cmd
}

func newIPACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ipa <text>",
		Short: "Convert Korean text to IPA and Revised Romanization",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), hangul.Convert(strings.Join(args, " ")))
		},
	}
}

func newEvalCmd() *cobra.Command {
	var (
		reference  string
		recognized string
		duration   float64
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a recognised sentence against a reference with rule-based feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if math.IsNaN(duration) || duration < 0 {
				return errors.New("--duration must be a non-negative number")
			}
			ev := pronounce.NewCoach().Evaluate(cmd.Context(), reference, recognized, duration)
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}
	cmd.Flags().StringVar(&reference, "reference", "", "sentence the learner meant to say")
	cmd.Flags().StringVar(&recognized, "recognized", "", "sentence the recogniser heard")
	cmd.Flags().Float64Var(&duration, "duration", 0, "recording length in seconds")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("recognized")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

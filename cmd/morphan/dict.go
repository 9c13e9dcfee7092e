package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/morphan/pkg/dictionary"
)

func (a *app) newDictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage the JMdict gloss dictionary",
	}
	cmd.PersistentFlags().String("path", "", "dictionary file (default "+dictionary.DefaultFileName+")")
	a.bind(cmd, "gloss.path", "path")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "fetch",
			Short: "Download the latest jmdict-simplified English release if missing",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := dictionary.EnsureDictionary(cmd.Context(), a.cfg.Gloss.Path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dictionary ready at %s\n", a.cfg.Gloss.Path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import",
			Short: "Store definitions for saved words that have none",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ix, err := a.requireGlossIndex()
				if err != nil {
					return err
				}
				conn, err := a.openDB()
				if err != nil {
					return err
				}
				defer conn.Close()

				im := dictionary.NewImporter(conn, ix)
				im.Logger = a.logger
				n, err := im.ProcessUpdates(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated definitions for %d words\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "lookup <word> [reading]",
			Short: "Look up a word in the gloss dictionary",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ix, err := a.requireGlossIndex()
				if err != nil {
					return err
				}
				var reading string
				if len(args) == 2 {
					reading = args[1]
				}
				entries := ix.Lookup(args[0], reading)
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "no entries for %s\n", args[0])
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s [%s]\n", elementTexts(e.Kanji), elementTexts(e.Kana))
					for i, s := range e.Sense {
						var glosses []string
						for _, g := range s.Gloss {
							if g.Lang == "" || g.Lang == "eng" {
								glosses = append(glosses, g.Text)
							}
						}
						fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, strings.Join(glosses, "; "), strings.Join(s.PartOfSpeech, ","))
					}
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) requireGlossIndex() (*dictionary.Index, error) {
	ix := a.loadGlossIndex()
	if ix == nil {
		return nil, fmt.Errorf("no usable dictionary at %s (run `morphan dict fetch`)", a.cfg.Gloss.Path)
	}
	return ix, nil
}

func elementTexts(els []dictionary.JMdictElement) string {
	texts := make([]string, len(els))
	for i, e := range els {
		texts[i] = e.Text
	}
	return strings.Join(texts, "、")
}

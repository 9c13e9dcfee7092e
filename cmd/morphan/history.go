package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/morphan/pkg/db"
	"github.com/japaniel/morphan/pkg/format"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List analyses stored with --save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			list, err := db.ListAnalyses(conn, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored analyses")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tTITLE\tWORDS\tDISTINCT\tKANJI")
			for _, s := range list {
				src := s.SourceType
				if src == "" {
					src = "text"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"),
					src, s.Title, s.WordCount, s.DistinctCnt, s.KanjiCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of analyses to list")

	cmd.AddCommand(a.newHistoryShowCmd(), a.newHistoryWordsCmd())
	return cmd
}

func (a *app) newHistoryShowCmd() *cobra.Command {
	var outFormat string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid analysis id %q", args[0])
			}
			f, err := format.ParseFormat(outFormat)
			if err != nil {
				return err
			}

			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			_, res, err := db.GetAnalysis(conn, id)
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("analysis #%d not found", id)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch f {
			case format.JSON:
				b, err := format.EncodeJSON(res, glossFunc(a.loadGlossIndex()))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			case format.Text:
				w, k := format.EncodeText(res.ContentWords, res.KanjiList)
				fmt.Fprintln(out, string(w))
				fmt.Fprintln(out, string(k))
			default:
				w, k := format.EncodeCSV(res.ContentWords, res.KanjiList)
				out.Write(w)
				fmt.Fprintln(out)
				out.Write(k)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFormat, "format", "f", "csv", "output format: csv, txt or json")
	return cmd
}

func (a *app) newHistoryWordsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Show the most frequent words across all stored analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			top, err := db.TopWords(conn, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WORD\tPOS\tREADING\tTOTAL\tANALYSES")
			for _, w := range top {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", w.Basic, w.POS, w.Reading, w.Total, w.Analyses)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of words to show")
	return cmd
}

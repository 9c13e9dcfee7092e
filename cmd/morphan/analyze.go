package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/morphan/pkg/dictionary"
	"github.com/japaniel/morphan/pkg/format"
	"github.com/japaniel/morphan/pkg/ingest"
	"github.com/japaniel/morphan/pkg/source"
)

type analyzeOptions struct {
	text  string
	urls  []string
	name  string
	save  bool
	quiet bool
}

func (a *app) newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze text, files or web pages and write word and kanji tables",
		Long: `Analyze Japanese text and write two tables per input: the content words
with their counts and positions (<name>_words.<ext>) and the distinct kanji
(<name>_kanji.<ext>). The json format writes a single <name>.json.

Inputs may be files (.html/.htm pages go through article extraction), "-" for
standard input, --text for literal text and --url for web pages.

Example:
  morphan analyze --text すもももももももものうち
  morphan analyze --format txt --out out/ chapter1.txt chapter2.txt
  morphan analyze --url https://www3.nhk.or.jp/news/easy/ --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "literal text to analyze")
	f.StringSliceVar(&opts.urls, "url", nil, "web page to fetch and analyze (repeatable)")
	f.StringVar(&opts.name, "name", "", "output basename (single input only)")
	f.BoolVar(&opts.save, "save", false, "store the analysis in the history database")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the summary")
	f.StringP("format", "f", "", "output format: csv, txt or json")
	f.StringP("out", "o", "", "output directory")
	f.Int("workers", 0, "number of documents analyzed in parallel")

	a.bind(cmd, "output.format", "format")
	a.bind(cmd, "output.dir", "out")
	a.bind(cmd, "ingest.workers", "workers")
	return cmd
}

func (a *app) collectDocuments(cmd *cobra.Command, args []string, opts analyzeOptions) ([]source.Document, error) {
	var docs []source.Document
	for _, path := range args {
		if path == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			docs = append(docs, source.FromText("stdin", strings.TrimPrefix(string(b), "\ufeff")))
			continue
		}
		doc, err := source.ReadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if cmd.Flags().Changed("text") {
		docs = append(docs, source.FromText("text", opts.text))
	}
	if len(opts.urls) > 0 {
		fetcher := source.NewFetcher(a.cfg.Fetch.Timeout)
		fetcher.MaxBody = a.cfg.Fetch.MaxBody
		for _, u := range opts.urls {
			a.logger.Info("fetching", "url", u)
			doc, err := fetcher.Fetch(cmd.Context(), u)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("nothing to analyze: pass files, --text or --url")
	}
	if opts.name != "" {
		if len(docs) > 1 {
			return nil, fmt.Errorf("--name needs exactly one input, got %d", len(docs))
		}
		docs[0].Name = opts.name
	}
	for i, name := range uniqueNames(docs) {
		if docs[i].Name != name {
			a.logger.Info("output name already used, renaming", "input", docs[i].Name, "name", name)
			docs[i].Name = name
		}
	}
	return docs, nil
}

// uniqueNames returns the document basenames with a -2, -3 ... suffix added to
// repeats, so inputs sharing a stem do not overwrite each other's files.
func uniqueNames(docs []source.Document) []string {
	taken := make(map[string]bool, len(docs))
	for _, d := range docs {
		taken[d.Name] = true
	}
	used := make(map[string]bool, len(docs))
	names := make([]string, len(docs))
	for i, d := range docs {
		name := d.Name
		if used[name] {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s-%d", d.Name, n)
				if !taken[candidate] && !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string, opts analyzeOptions) error {
	outFormat, err := format.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	docs, err := a.collectDocuments(cmd, args, opts)
	if err != nil {
		return err
	}

	analyzer, err := a.newAnalyzer(false)
	if err != nil {
		return err
	}

	var gloss format.GlossFunc
	if outFormat == format.JSON {
		gloss = glossFunc(a.loadGlossIndex())
	}

	p := ingest.NewPipeline(analyzer, nil)
	p.Workers = a.cfg.Ingest.Workers
	p.BatchSize = a.cfg.Ingest.BatchSize
	p.Logger = a.logger
	if opts.save {
		conn, err := a.openDB()
		if err != nil {
			return err
		}
		defer conn.Close()
		p.DB = conn
	}

	out := cmd.OutOrStdout()
	summary, err := p.Run(cmd.Context(), docs, func(r ingest.DocResult) error {
		paths, err := format.WriteFiles(a.cfg.Output.Dir, r.Doc.Name, outFormat, r.Result, gloss)
		if err != nil {
			return err
		}
		if !opts.quiet {
			printSummary(out, r)
			for _, path := range paths {
				fmt.Fprintf(out, "wrote %s\n", path)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.save && !opts.quiet {
		for i, id := range summary.AnalysisIDs {
			fmt.Fprintf(out, "saved %s as analysis #%d\n", docs[i].Name, id)
		}
	}
	return nil
}

// printSummary prints the input excerpt, word table and kanji list.
func printSummary(w io.Writer, r ingest.DocResult) {
	fmt.Fprintf(w, "入力テキスト: %s\n", excerpt(r.Doc.Text, 60))
	if r.Doc.Title != "" {
		fmt.Fprintf(w, "タイトル: %s\n", r.Doc.Title)
	}
	fmt.Fprintln(w, "\n自立語:")
	for _, word := range r.Result.ContentWords {
		fmt.Fprintf(w, "- %s (%s, 読み: %s) - 出現回数: %d\n", word.Basic, word.POS, word.Reading, word.Count)
	}
	fmt.Fprintln(w, "\n漢字:")
	for _, k := range r.Result.KanjiList {
		fmt.Fprintf(w, "- %s\n", k)
	}
	fmt.Fprintln(w)
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func glossFunc(ix *dictionary.Index) format.GlossFunc {
	if ix == nil {
		return nil
	}
	return ix.Glosses
}

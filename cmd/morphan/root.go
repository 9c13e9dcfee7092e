package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/japaniel/morphan/pkg/analysis"
	"github.com/japaniel/morphan/pkg/config"
	"github.com/japaniel/morphan/pkg/db"
	"github.com/japaniel/morphan/pkg/dictionary"
	"github.com/japaniel/morphan/pkg/logging"
	"github.com/japaniel/morphan/pkg/morph"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "morphan",
		Short: "Japanese content-word and kanji frequency analyzer",
		Long: `morphan tokenizes Japanese text, keeps the content words (nouns, verbs,
adjectives and optionally adverbs), counts them by dictionary form and part of
speech, and lists the distinct kanji in order of first appearance.

Settings come from flags, MORPHAN_* environment variables and an optional
morphan.yaml in the working directory or $HOME/.config/morphan.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./morphan.yaml or $HOME/.config/morphan/morphan.yaml)")
	pf.String("pos-tags", "", "content-word tag set: strict, loose or a comma list such as 名詞,動詞")
	pf.String("dictionary", "", "tokenizer dictionary: ipa or uni")
	pf.String("kanji", "", "kanji matcher: script (Unicode Han) or block (U+4E00..U+9FFF)")
	pf.String("db", "", "path to the SQLite history database")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")

	a.bind(root, "pos_tags", "pos-tags")
	a.bind(root, "dictionary", "dictionary")
	a.bind(root, "kanji", "kanji")
	a.bind(root, "db.path", "db")
	a.bind(root, "log.level", "log-level")
	a.bind(root, "log.format", "log-format")

	root.AddCommand(
		a.newAnalyzeCmd(),
		a.newServeCmd(),
		a.newHistoryCmd(),
		a.newDictCmd(),
		a.newConfigCmd(),
	)
	return root
}

// bind connects a viper key to a persistent flag of cmd.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if err := a.v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind %s: %v", flag, err))
	}
}

// initConfig reads in config file and ENV variables and sets up logging.
func (a *app) initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), logging.LevelFromString(cfg.Log.Level), cfg.Log.Format)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) newAnalyzer(keepTokens bool) (*analysis.Analyzer, error) {
	start := time.Now()
	tok, err := morph.New(a.cfg.Dictionary)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("tokenizer ready", "dictionary", tok.DictName(), "elapsed", time.Since(start))
	return analysis.NewAnalyzer(tok, analysis.Options{
		Tags:       a.cfg.Tags(),
		Kanji:      a.cfg.KanjiMatcher(),
		KeepTokens: keepTokens,
	}), nil
}

func (a *app) openDB() (*sql.DB, error) {
	conn, err := db.Open(a.cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("database opened", "path", a.cfg.DB.Path)
	return conn, nil
}

// loadGlossIndex loads the configured dictionary file. A missing file is not
// an error; glosses are simply left out.
func (a *app) loadGlossIndex() *dictionary.Index {
	path := a.cfg.Gloss.Path
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		a.logger.Debug("gloss dictionary not found, skipping", "path", path)
		return nil
	}
	start := time.Now()
	entries, err := dictionary.LoadJMdictSimplified(path)
	if err != nil {
		a.logger.Warn("failed to load gloss dictionary", "path", path, "error", err)
		return nil
	}
	a.logger.Info("gloss dictionary loaded", "entries", len(entries), "elapsed", time.Since(start))
	return dictionary.NewIndex(entries)
}

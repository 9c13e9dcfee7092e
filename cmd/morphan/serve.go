package main

import (
	"github.com/spf13/cobra"

	"github.com/japaniel/morphan/pkg/server"
)

func (a *app) newServeCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and JSON API",
		Long: `Start an HTTP server with a small web UI at / and the JSON API:

  POST /api/analyze          {"text": "...", "posTags": "loose"}
  GET  /api/analyses         stored analyses, newest first (needs --save)
  GET  /api/analyses/{id}    one stored analysis (needs --save)
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := a.newAnalyzer(true)
			if err != nil {
				return err
			}

			opts := server.Options{
				Gloss:   glossFunc(a.loadGlossIndex()),
				MaxBody: a.cfg.Server.MaxBody,
				Logger:  a.logger,
			}
			if save {
				conn, err := a.openDB()
				if err != nil {
					return err
				}
				defer conn.Close()
				opts.DB = conn
			}

			a.logger.Info("starting server", "addr", a.cfg.Server.Addr, "history", save)
			return server.New(analyzer, opts).Run(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().BoolVar(&save, "save", false, "store analyses and enable the history endpoints")
	a.bind(cmd, "server.addr", "addr")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/blogapi"
	"github.com/eringen/blogapi/ingest"
)

func newIngestCmd() *cobra.Command {
	var (
		dbPath string
		env    string
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Load every .txt file in dir into the store",
		Long: `Each .txt file directly under dir becomes one blog. The file name without
its extension is the title and the trimmed body is the content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := blogapi.NewLogger(env, blogapi.EnvOr("LOG_LEVEL", ""))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := blogapi.NewSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			loader := &ingest.Loader{Dir: args[0], Log: log}
			report, err := loader.Run(cmd.Context(), store)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Read %d files, saved %d blogs\n", report.Files, report.Inserted)
			for i, b := range report.Blogs {
				fmt.Fprintf(out, "%d. %q (%d characters)\n", i+1, b.Title, len([]rune(b.Content)))
			}
			for _, name := range report.Skipped {
				fmt.Fprintf(out, "skipped %s: empty title\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", blogapi.EnvOr("DATABASE_PATH", "data/blogs.db"), "SQLite database path")
	cmd.Flags().StringVar(&env, "env", blogapi.EnvOr("ENV", "local"), "logging environment (local, dev, prod)")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Zuo-Peng/adk-session-viewer/internal/config"
	"github.com/Zuo-Peng/adk-session-viewer/internal/history"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func recentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently loaded sessions",
		Long: `List recently loaded sessions as TSV:
  loadedAt, source, ref, app, sessionId, events

The ref column is a local path or a Drive file id, so a row can be
reopened with 'asv view <path>' or 'asv view --drive <id>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			closeLog, err := initLogger(cfg, false)
			if err != nil {
				return err
			}
			defer closeLog()

			db, err := do.Invoke[*history.DB](setupDI(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			locs, err := db.Recent(limit)
			if err != nil {
				return err
			}
			if len(locs) == 0 {
				fmt.Fprintln(os.Stderr, "No sessions loaded yet.")
				return nil
			}
			for _, l := range locs {
				fmt.Printf("%s\t%s\t%s\t%s\t%s\t%d\n",
					l.LoadedAt.Format("2006-01-02 15:04:05"),
					l.Source,
					tsvField(l.Ref),
					tsvField(orDash(l.AppName)),
					tsvField(orDash(l.SessionID)),
					l.EventCount,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max rows")

	return cmd
}

func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
